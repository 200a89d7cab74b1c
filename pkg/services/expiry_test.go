package services

import (
	"context"
	"testing"
	"time"

	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ExpirySuite struct {
	suite.Suite
	db     *gorm.DB
	mail   *recordingMailer
	recon  *ExpiryReconciler
	origin time.Time
}

func TestExpirySuite(t *testing.T) {
	suite.Run(t, new(ExpirySuite))
}

func (s *ExpirySuite) SetupTest() {
	s.db = database.NewTestDatabase(s.T())
	s.mail = &recordingMailer{}
	s.recon = NewExpiryReconciler(repository.New(s.db), s.mail, "http://localhost:8080", zap.NewNop())
	s.origin = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func (s *ExpirySuite) activeState(id string) bool {
	var req models.FileRequest
	s.Require().NoError(s.db.Where("id = ?", id).First(&req).Error)
	return req.IsActive
}

func (s *ExpirySuite) TestFreeTierLifecycle() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.origin)

	// 6 days 23 hours in: still active, inside the warning window
	stats, err := s.recon.Run(context.Background(), s.origin.Add(6*24*time.Hour+23*time.Hour))
	s.NoError(err)
	s.Equal(0, stats.Expired)
	s.Equal(1, stats.Warned)
	s.True(s.activeState(req.ID))

	// 7 days 1 hour in: expired
	stats, err = s.recon.Run(context.Background(), s.origin.Add(7*24*time.Hour+time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Expired)
	s.False(s.activeState(req.ID))
}

func (s *ExpirySuite) TestWarningWindowSendsExactlyOneAttempt() {
	user := seedUser(s.db, "owner@example.com")
	seedRequest(s.db, &user.ID, s.origin)

	stats, err := s.recon.Run(context.Background(), s.origin.Add(6*24*time.Hour+2*time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Warned)

	sent := s.mail.sent()
	s.Require().Len(sent, 1)
	s.Equal("recipient@example.com", sent[0].To)
	s.Equal(mailer.KindExpiryWarning, sent[0].Kind)
	s.Contains(sent[0].Payload.UploadURL, "/share/")
}

func (s *ExpirySuite) TestIdempotentSecondRun() {
	user := seedUser(s.db, "owner@example.com")
	req := seedRequest(s.db, &user.ID, s.origin)

	at := s.origin.Add(8 * 24 * time.Hour)
	stats, err := s.recon.Run(context.Background(), at)
	s.NoError(err)
	s.Equal(1, stats.Expired)

	// the second run selects nothing: the row is already inactive
	stats, err = s.recon.Run(context.Background(), at)
	s.NoError(err)
	s.Equal(0, stats.Scanned)
	s.Equal(0, stats.Expired)
	s.False(s.activeState(req.ID))
}

func (s *ExpirySuite) TestPremiumExpiryIsThirtyDays() {
	user := seedUser(s.db, "owner@example.com")
	seedSubscription(s.db, user.ID, "premium")
	req := seedRequest(s.db, &user.ID, s.origin)

	stats, err := s.recon.Run(context.Background(), s.origin.Add(8*24*time.Hour))
	s.NoError(err)
	s.Equal(0, stats.Expired)
	s.True(s.activeState(req.ID))

	stats, err = s.recon.Run(context.Background(), s.origin.Add(31*24*time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Expired)
	s.False(s.activeState(req.ID))
}

func (s *ExpirySuite) TestOrphanRequestDefaultsToFreeTier() {
	req := seedRequest(s.db, nil, s.origin)

	stats, err := s.recon.Run(context.Background(), s.origin.Add(8*24*time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Expired)
	s.False(s.activeState(req.ID))
}

func (s *ExpirySuite) TestEffectiveExpiryIgnoresStoredValue() {
	user := seedUser(s.db, "owner@example.com")
	// stored expires_at claims a much later date; the recomputation wins
	req := seedRequest(s.db, &user.ID, s.origin, func(r *models.FileRequest) {
		r.ExpiresAt = s.origin.Add(365 * 24 * time.Hour)
	})

	stats, err := s.recon.Run(context.Background(), s.origin.Add(8*24*time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Expired)
	s.False(s.activeState(req.ID))
}

func (s *ExpirySuite) TestSendFailureDoesNotBlockExpiries() {
	user := seedUser(s.db, "owner@example.com")
	// one request inside the warning window, one long past its expiry
	seedRequest(s.db, &user.ID, s.origin)
	expired := seedRequest(s.db, &user.ID, s.origin.Add(-10*24*time.Hour))

	s.mail.FailWith = context.DeadlineExceeded

	stats, err := s.recon.Run(context.Background(), s.origin.Add(6*24*time.Hour+2*time.Hour))
	s.NoError(err)
	s.Equal(1, stats.Expired)
	s.Equal(0, stats.Warned)
	s.Equal(1, stats.RowErrors)
	s.False(s.activeState(expired.ID))
}

func (s *ExpirySuite) TestTierLookupFailureSkipsRow() {
	user := seedUser(s.db, "owner@example.com")
	seedSubscription(s.db, user.ID, "premium")
	// 10 days old: expired on free terms, well within the premium window
	req := seedRequest(s.db, &user.ID, s.origin.Add(-10*24*time.Hour))

	recon := NewExpiryReconciler(
		&flakySubscriptions{Repository: repository.New(s.db), err: context.DeadlineExceeded},
		s.mail, "http://localhost:8080", zap.NewNop())

	stats, err := recon.Run(context.Background(), s.origin)
	s.Require().NoError(err)
	s.Equal(1, stats.Scanned)
	s.Equal(0, stats.Expired)
	s.Equal(1, stats.RowErrors)
	s.True(s.activeState(req.ID))
	s.Empty(s.mail.sent())
}

func (s *ExpirySuite) TestTierLookupFailureDoesNotBlockBatch() {
	premium := seedUser(s.db, "premium@example.com")
	seedSubscription(s.db, premium.ID, "premium")
	blocked := seedRequest(s.db, &premium.ID, s.origin.Add(-10*24*time.Hour))

	free := seedUser(s.db, "free@example.com")
	expired := seedRequest(s.db, &free.ID, s.origin.Add(-10*24*time.Hour))

	recon := NewExpiryReconciler(
		&flakySubscriptions{Repository: repository.New(s.db), failFor: premium.ID, err: context.DeadlineExceeded},
		s.mail, "http://localhost:8080", zap.NewNop())

	stats, err := recon.Run(context.Background(), s.origin)
	s.Require().NoError(err)
	s.Equal(2, stats.Scanned)
	s.Equal(1, stats.Expired)
	s.Equal(1, stats.RowErrors)
	s.True(s.activeState(blocked.ID))
	s.False(s.activeState(expired.ID))
}

func (s *ExpirySuite) TestTierLookupRecoversNextPass() {
	user := seedUser(s.db, "owner@example.com")
	seedSubscription(s.db, user.ID, "premium")
	req := seedRequest(s.db, &user.ID, s.origin.Add(-10*24*time.Hour))

	flaky := &flakySubscriptions{Repository: repository.New(s.db), err: context.DeadlineExceeded}
	recon := NewExpiryReconciler(flaky, s.mail, "http://localhost:8080", zap.NewNop())

	_, err := recon.Run(context.Background(), s.origin)
	s.Require().NoError(err)
	s.True(s.activeState(req.ID))

	// lookup healthy again: the premium window applies and the row survives
	flaky.failFor = -1
	stats, err := recon.Run(context.Background(), s.origin)
	s.Require().NoError(err)
	s.Equal(0, stats.Expired)
	s.Equal(0, stats.RowErrors)
	s.True(s.activeState(req.ID))
}
