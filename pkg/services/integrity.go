package services

import (
	"context"

	"github.com/reqdrop/reqdrop/internal/metrics"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"go.uber.org/zap"
)

type IntegrityReport struct {
	OrphanedRequests     int
	RepairedRequests     int
	UnrepairableRequests int
	OrphanedFiles        []models.UploadedFile
	RowErrors            int
}

// IntegrityService repairs requests that lost their owning user and reports
// files that lost their owning request. Files are never auto-repaired: there
// is no signal linking a stray blob to its intended request, and guessing
// would misattribute user data.
type IntegrityService struct {
	repo   repository.Repository
	logger *zap.SugaredLogger
}

func NewIntegrityService(repo repository.Repository, logger *zap.Logger) *IntegrityService {
	return &IntegrityService{repo: repo, logger: logger.Sugar()}
}

// Check reports orphan counts without mutating anything.
func (s *IntegrityService) Check(ctx context.Context) (*IntegrityReport, error) {
	return s.run(ctx, false)
}

// Repair additionally resolves owners for orphaned requests from their
// recipient email. Safe to rerun: the user upsert is keyed on the unique
// email index and the owner write only fills a null value.
func (s *IntegrityService) Repair(ctx context.Context) (*IntegrityReport, error) {
	return s.run(ctx, true)
}

func (s *IntegrityService) run(ctx context.Context, repair bool) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	orphans, err := s.repo.ListOrphanedRequests(ctx)
	if err != nil {
		return nil, err
	}
	report.OrphanedRequests = len(orphans)

	for i := range orphans {
		req := &orphans[i]
		if req.RecipientEmail == "" {
			report.UnrepairableRequests++
			s.logger.Warnw("orphaned request has no recipient email, cannot repair", "request", req.ID)
			continue
		}
		if !repair {
			continue
		}

		user, err := s.repo.CreateUser(ctx, req.RecipientEmail)
		if err != nil {
			report.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("integrity").Inc()
			s.logger.Errorw("failed to resolve user for orphaned request",
				"request", req.ID, "email", req.RecipientEmail, "err", err)
			continue
		}
		if err := s.repo.UpdateRequestOwner(ctx, req.ID, user.ID); err != nil {
			report.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("integrity").Inc()
			s.logger.Errorw("failed to set request owner", "request", req.ID, "err", err)
			continue
		}
		report.RepairedRequests++
		metrics.OrphanRequestsRepaired.Inc()
		s.logger.Infow("repaired orphaned request", "request", req.ID, "user", user.ID)
	}

	files, err := s.repo.ListOrphanedFiles(ctx)
	if err != nil {
		return nil, err
	}
	report.OrphanedFiles = files
	for i := range files {
		s.logger.Warnw("orphaned file, no automatic repair possible",
			"file", files[i].ID, "filename", files[i].Filename)
	}

	metrics.ReconcilerPasses.WithLabelValues("integrity").Inc()
	s.logger.Infow("integrity pass complete",
		"orphanedRequests", report.OrphanedRequests,
		"repaired", report.RepairedRequests,
		"unrepairable", report.UnrepairableRequests,
		"orphanedFiles", len(report.OrphanedFiles),
		"repairApplied", repair)
	return report, nil
}
