package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/internal/metrics"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/tier"
	"go.uber.org/zap"
)

// Identity is the creator of a file request: an authenticated user id, or a
// bare email for the unauthenticated flow. Email-only identities still count
// against the resolved user's monthly quota.
type Identity struct {
	UserID int64
	Email  string
}

// Decision is returned to the creation path. A disallowed decision is an
// expected business outcome, not an error.
type Decision struct {
	Allowed          bool
	Tier             tier.Tier
	Limits           tier.Limits
	CurrentCount     int
	UserID           int64
	UpgradeWouldHelp bool
}

type AdmissionService struct {
	repo   repository.Repository
	logger *zap.SugaredLogger
}

func NewAdmissionService(repo repository.Repository, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{repo: repo, logger: logger.Sugar()}
}

// Admit checks monthly quota for the calendar month containing now. Any
// repository failure is returned as an error and the caller must reject:
// quota correctness outranks availability here.
func (s *AdmissionService) Admit(ctx context.Context, id Identity, now time.Time) (*Decision, error) {
	userID := id.UserID
	if userID == 0 {
		if id.Email == "" {
			return nil, fmt.Errorf("admission: identity has neither user id nor email")
		}
		user, err := s.repo.CreateUser(ctx, id.Email)
		if err != nil {
			metrics.AdmissionDecisions.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("admission: resolve user %s: %w", id.Email, err)
		}
		userID = user.ID
	}

	userTier, err := s.resolveTier(ctx, userID)
	if err != nil {
		metrics.AdmissionDecisions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("admission: resolve tier for user %d: %w", userID, err)
	}
	limits := tier.LimitsFor(userTier)

	count, err := s.repo.CountRequestsSince(ctx, userID, firstOfMonth(now))
	if err != nil {
		metrics.AdmissionDecisions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("admission: count requests for user %d: %w", userID, err)
	}

	decision := &Decision{
		Allowed:      count < int64(limits.MaxRequestsPerMonth),
		Tier:         userTier,
		Limits:       limits,
		CurrentCount: int(count),
		UserID:       userID,
	}
	if !decision.Allowed && userTier != tier.Premium {
		decision.UpgradeWouldHelp = count < int64(tier.LimitsFor(tier.Premium).MaxRequestsPerMonth)
	}

	if decision.Allowed {
		metrics.AdmissionDecisions.WithLabelValues("allowed").Inc()
	} else {
		metrics.AdmissionDecisions.WithLabelValues("rejected").Inc()
		s.logger.Infow("admission rejected",
			"user", userID, "tier", string(userTier), "count", count, "limit", limits.MaxRequestsPerMonth)
	}
	return decision, nil
}

// resolveTier maps a missing or inactive subscription to the free tier; any
// other lookup failure is returned so admission fails closed.
func (s *AdmissionService) resolveTier(ctx context.Context, userID int64) (tier.Tier, error) {
	sub, err := s.repo.FindSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return tier.Free, nil
		}
		return tier.Free, err
	}
	if sub == nil || !sub.IsActive {
		return tier.Free, nil
	}
	return tier.Parse(sub.Tier), nil
}

func firstOfMonth(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
