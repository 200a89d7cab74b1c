package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"go.uber.org/zap"
)

// QuotaExceededError carries the rejection decision so callers can render
// the limit, the current usage and whether upgrading would help.
type QuotaExceededError struct {
	Decision *Decision
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly request quota reached (%d/%d on %s tier)",
		e.Decision.CurrentCount, e.Decision.Limits.MaxRequestsPerMonth, e.Decision.Tier)
}

type CreateRequestInput struct {
	RecipientEmail string     `json:"recipientEmail" validate:"required,email"`
	Description    string     `json:"description" validate:"max=2000"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

type FileRequestService struct {
	repo      repository.Repository
	admission *AdmissionService
	logger    *zap.SugaredLogger
}

func NewFileRequestService(repo repository.Repository, admission *AdmissionService, logger *zap.Logger) *FileRequestService {
	return &FileRequestService{repo: repo, admission: admission, logger: logger.Sugar()}
}

// Create runs admission and persists the request. The expiry is fixed here
// from the tier in effect now; later tier changes never shift it.
func (s *FileRequestService) Create(ctx context.Context, ident Identity, in *CreateRequestInput, now time.Time) (*models.FileRequest, error) {
	decision, err := s.admission.Admit(ctx, ident, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{Decision: decision}
	}

	userID := decision.UserID
	req := &models.FileRequest{
		ID:             uuid.NewString(),
		UserID:         &userID,
		RecipientEmail: in.RecipientEmail,
		Description:    in.Description,
		Deadline:       in.Deadline,
		Status:         models.RequestStatusPending,
		UniqueLink:     uuid.NewString(),
		ExpiresAt:      now.Add(time.Duration(decision.Limits.ExpiryDays) * 24 * time.Hour),
		IsActive:       true,
		CreatedAt:      now,
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Infow("request created",
		"request", req.ID, "user", userID, "tier", string(decision.Tier), "expiresAt", req.ExpiresAt)
	return req, nil
}

func (s *FileRequestService) Get(ctx context.Context, id string) (*models.FileRequest, error) {
	return s.repo.FindRequestByID(ctx, id)
}

func (s *FileRequestService) GetByLink(ctx context.Context, link string) (*models.FileRequest, error) {
	return s.repo.FindRequestByLink(ctx, link)
}

func (s *FileRequestService) ListByOwner(ctx context.Context, userID int64) ([]models.FileRequest, error) {
	return s.repo.ListRequestsByOwner(ctx, userID)
}

func (s *FileRequestService) Complete(ctx context.Context, id string) error {
	return s.repo.UpdateRequestStatus(ctx, id, models.RequestStatusCompleted)
}

func (s *FileRequestService) ListFiles(ctx context.Context, requestID string) ([]models.UploadedFile, error) {
	return s.repo.ListFilesByRequest(ctx, requestID)
}
