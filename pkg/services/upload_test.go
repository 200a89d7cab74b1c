package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/storage"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UploadSuite struct {
	suite.Suite
	db  *gorm.DB
	srv *UploadService
	now time.Time
}

func TestUploadSuite(t *testing.T) {
	suite.Run(t, new(UploadSuite))
}

func (s *UploadSuite) SetupTest() {
	s.db = database.NewTestDatabase(s.T())
	store, err := storage.NewDiskStore(s.T().TempDir())
	s.Require().NoError(err)
	s.srv = NewUploadService(repository.New(s.db), store, zap.NewNop())
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *UploadSuite) input(name, content string) UploadInput {
	return UploadInput{Filename: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func (s *UploadSuite) TestUploadCompletesRequest() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.now.Add(-time.Hour))

	saved, err := s.srv.Upload(context.Background(), req.UniqueLink,
		[]UploadInput{s.input("a.txt", "hello"), s.input("b.txt", "world")}, s.now)
	s.NoError(err)
	s.Len(saved, 2)
	s.Equal(int64(5), saved[0].FileSize)

	var reloaded models.FileRequest
	s.Require().NoError(s.db.Where("id = ?", req.ID).First(&reloaded).Error)
	s.Equal(models.RequestStatusCompleted, reloaded.Status)
}

func (s *UploadSuite) TestUploadToExpiredRequestRejected() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.now.Add(-10*24*time.Hour), func(r *models.FileRequest) {
		r.ExpiresAt = s.now.Add(-time.Hour)
	})

	_, err := s.srv.Upload(context.Background(), req.UniqueLink,
		[]UploadInput{s.input("a.txt", "x")}, s.now)
	s.ErrorIs(err, ErrRequestClosed)
}

func (s *UploadSuite) TestUploadToInactiveRequestRejected() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.now.Add(-time.Hour), func(r *models.FileRequest) {
		r.IsActive = false
	})

	_, err := s.srv.Upload(context.Background(), req.UniqueLink,
		[]UploadInput{s.input("a.txt", "x")}, s.now)
	s.ErrorIs(err, ErrRequestClosed)
}

func (s *UploadSuite) TestBatchSizeCap() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.now.Add(-time.Hour))

	inputs := make([]UploadInput, 6)
	for i := range inputs {
		inputs[i] = s.input("f.txt", "x")
	}

	_, err := s.srv.Upload(context.Background(), req.UniqueLink, inputs, s.now)
	s.ErrorIs(err, ErrTooManyFiles)
}

func (s *UploadSuite) TestFileSizeCap() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.now.Add(-time.Hour))

	_, err := s.srv.Upload(context.Background(), req.UniqueLink,
		[]UploadInput{{Filename: "big.bin", Size: 11 * 1024 * 1024, Reader: strings.NewReader("")}}, s.now)
	s.ErrorIs(err, ErrFileTooLarge)
}
