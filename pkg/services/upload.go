package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/storage"
	"github.com/reqdrop/reqdrop/pkg/tier"
	"go.uber.org/zap"
)

var (
	ErrRequestClosed   = errors.New("request is no longer accepting uploads")
	ErrTooManyFiles    = errors.New("too many files in one upload")
	ErrFileTooLarge    = errors.New("file exceeds the per-file size limit")
	ErrStorageExceeded = errors.New("owner storage quota exceeded")
)

type UploadInput struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

type UploadService struct {
	repo   repository.Repository
	store  storage.Store
	logger *zap.SugaredLogger
}

func NewUploadService(repo repository.Repository, store storage.Store, logger *zap.Logger) *UploadService {
	return &UploadService{repo: repo, store: store, logger: logger.Sugar()}
}

// Upload stores a batch of files against the request behind link, enforcing
// the owner's tier caps, and marks the request completed.
func (s *UploadService) Upload(ctx context.Context, link string, files []UploadInput, now time.Time) ([]models.UploadedFile, error) {
	req, err := s.repo.FindRequestByLink(ctx, link)
	if err != nil {
		return nil, err
	}
	if !req.IsActive || now.After(req.ExpiresAt) || req.Status != models.RequestStatusPending {
		return nil, ErrRequestClosed
	}

	limits := tier.LimitsFor(s.ownerTier(ctx, req))
	if len(files) == 0 {
		return nil, fmt.Errorf("no files in upload")
	}
	if len(files) > limits.MaxUploadFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), limits.MaxUploadFiles)
	}

	var batchSize int64
	for _, f := range files {
		if f.Size > limits.MaxFileSizeBytes() {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, f.Filename, f.Size)
		}
		batchSize += f.Size
	}

	if req.UserID != nil {
		used, err := s.repo.SumFileSizesByOwner(ctx, *req.UserID)
		if err != nil {
			return nil, fmt.Errorf("check storage usage: %w", err)
		}
		if used+batchSize > limits.MaxStorageBytes() {
			return nil, fmt.Errorf("%w: %d used, %d incoming, %d allowed",
				ErrStorageExceeded, used, batchSize, limits.MaxStorageBytes())
		}
	}

	saved := make([]models.UploadedFile, 0, len(files))
	for _, f := range files {
		path, size, err := s.store.Save(ctx, req.ID, f.Filename, f.Reader)
		if err != nil {
			return saved, fmt.Errorf("store %s: %w", f.Filename, err)
		}
		requestID := req.ID
		row := models.UploadedFile{
			ID:          uuid.NewString(),
			RequestID:   &requestID,
			Filename:    f.Filename,
			StoragePath: path,
			FileSize:    size,
			UploadedAt:  now,
		}
		if err := s.repo.CreateFile(ctx, &row); err != nil {
			return saved, fmt.Errorf("record %s: %w", f.Filename, err)
		}
		saved = append(saved, row)
	}

	if err := s.repo.UpdateRequestStatus(ctx, req.ID, models.RequestStatusCompleted); err != nil {
		return saved, fmt.Errorf("complete request %s: %w", req.ID, err)
	}

	s.logger.Infow("upload complete", "request", req.ID, "files", len(saved), "bytes", batchSize)
	return saved, nil
}

// ownerTier caps uploads at free-tier limits when the subscription is
// missing, inactive, or unreadable. The fallback only ever tightens limits.
func (s *UploadService) ownerTier(ctx context.Context, req *models.FileRequest) tier.Tier {
	if req.UserID == nil {
		return tier.Free
	}
	sub, err := s.repo.FindSubscription(ctx, *req.UserID)
	if err != nil || sub == nil || !sub.IsActive {
		return tier.Free
	}
	return tier.Parse(sub.Tier)
}
