package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/reqdrop/reqdrop/internal/auth"
	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/services"
	"github.com/reqdrop/reqdrop/pkg/storage"
	"github.com/reqdrop/reqdrop/pkg/tier"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type RoutesSuite struct {
	suite.Suite
	db     *gorm.DB
	server *httptest.Server
}

func TestRoutesSuite(t *testing.T) {
	suite.Run(t, new(RoutesSuite))
}

func (s *RoutesSuite) SetupTest() {
	s.db = database.NewTestDatabase(s.T())
	repo := repository.New(s.db)
	lg := zap.NewNop()

	store, err := storage.NewDiskStore(s.T().TempDir())
	s.Require().NoError(err)

	admission := services.NewAdmissionService(repo, lg)
	requests := services.NewFileRequestService(repo, admission, lg)
	uploads := services.NewUploadService(repo, store, lg)
	integrity := services.NewIntegrityService(repo, lg)

	api := NewAPI(requests, uploads, integrity, lg)
	s.server = httptest.NewServer(auth.Middleware(testJWTSecret)(api.Router()))
	s.T().Cleanup(s.server.Close)
}

func (s *RoutesSuite) getAuthed(path string, userID int64, email string) *http.Response {
	token, err := auth.Encode(testJWTSecret, userID, email, time.Hour)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RoutesSuite) postJSON(path string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(data))
	s.Require().NoError(err)
	return resp
}

func (s *RoutesSuite) TestCreateRequest() {
	resp := s.postJSON("/requests", map[string]string{
		"recipientEmail": "rec@example.com",
		"description":    "contract scans",
	})
	defer resp.Body.Close()
	s.Equal(http.StatusCreated, resp.StatusCode)

	var out models.FileRequest
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.NotEmpty(out.UniqueLink)
	s.Equal(models.RequestStatusPending, out.Status)
}

func (s *RoutesSuite) TestCreateRequestValidation() {
	resp := s.postJSON("/requests", map[string]string{"recipientEmail": "not-an-email"})
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *RoutesSuite) TestCreateRequestQuotaRejection() {
	for i := 0; i < tier.LimitsFor(tier.Free).MaxRequestsPerMonth; i++ {
		resp := s.postJSON("/requests", map[string]string{"recipientEmail": "rec@example.com"})
		resp.Body.Close()
		s.Equal(http.StatusCreated, resp.StatusCode)
	}

	resp := s.postJSON("/requests", map[string]string{"recipientEmail": "rec@example.com"})
	defer resp.Body.Close()
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)

	var out struct {
		Details struct {
			Limit            int  `json:"limit"`
			CurrentCount     int  `json:"currentCount"`
			UpgradeWouldHelp bool `json:"upgradeWouldHelp"`
		} `json:"details"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Equal(10, out.Details.Limit)
	s.Equal(10, out.Details.CurrentCount)
	s.True(out.Details.UpgradeWouldHelp)
}

func (s *RoutesSuite) seedShare() *models.FileRequest {
	req := &models.FileRequest{
		ID:             uuid.NewString(),
		RecipientEmail: "rec@example.com",
		Description:    "photos",
		Status:         models.RequestStatusPending,
		UniqueLink:     uuid.NewString(),
		ExpiresAt:      time.Now().UTC().Add(7 * 24 * time.Hour),
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	s.Require().NoError(s.db.Create(req).Error)
	return req
}

func (s *RoutesSuite) TestGetShare() {
	req := s.seedShare()

	resp, err := http.Get(fmt.Sprintf("%s/share/%s", s.server.URL, req.UniqueLink))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var out shareOut
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Equal("photos", out.Description)
	s.True(out.IsActive)
}

func (s *RoutesSuite) TestGetShareNotFound() {
	resp, err := http.Get(s.server.URL + "/share/nope")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *RoutesSuite) TestUploadToShare() {
	req := s.seedShare()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "a.txt")
	s.Require().NoError(err)
	fw.Write([]byte("hello"))
	s.Require().NoError(mw.Close())

	resp, err := http.Post(
		fmt.Sprintf("%s/share/%s/upload", s.server.URL, req.UniqueLink),
		mw.FormDataContentType(), &buf)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusCreated, resp.StatusCode)

	var reloaded models.FileRequest
	s.Require().NoError(s.db.Where("id = ?", req.ID).First(&reloaded).Error)
	s.Equal(models.RequestStatusCompleted, reloaded.Status)
}

func (s *RoutesSuite) TestUploadToClosedShareGone() {
	req := s.seedShare()
	s.db.Model(&models.FileRequest{}).Where("id = ?", req.ID).Update("is_active", false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("files", "a.txt")
	fw.Write([]byte("x"))
	mw.Close()

	resp, err := http.Post(
		fmt.Sprintf("%s/share/%s/upload", s.server.URL, req.UniqueLink),
		mw.FormDataContentType(), &buf)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusGone, resp.StatusCode)
}

func (s *RoutesSuite) TestListRequestsRequiresAuth() {
	resp, err := http.Get(s.server.URL + "/requests")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RoutesSuite) TestListRequestsAuthenticated() {
	owner := &models.User{Email: "owner@example.com", Name: "Owner"}
	s.Require().NoError(s.db.Create(owner).Error)
	req := s.seedShare()
	s.Require().NoError(s.db.Model(req).Update("user_id", owner.ID).Error)

	resp := s.getAuthed("/requests", owner.ID, owner.Email)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var out []models.FileRequest
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	s.Require().Len(out, 1)
	s.Equal(req.ID, out[0].ID)
}

func (s *RoutesSuite) TestGetForeignRequestHidden() {
	owner := &models.User{Email: "owner@example.com", Name: "Owner"}
	other := &models.User{Email: "other@example.com", Name: "Other"}
	s.Require().NoError(s.db.Create(owner).Error)
	s.Require().NoError(s.db.Create(other).Error)
	req := s.seedShare()
	s.Require().NoError(s.db.Model(req).Update("user_id", owner.ID).Error)

	resp := s.getAuthed("/requests/"+req.ID, other.ID, other.Email)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}
