package services

import (
	"context"
	"errors"
	"time"

	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/internal/metrics"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/models"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/tier"
	"go.uber.org/zap"
)

// warningWindow is how long before the effective expiry a request counts as
// expiring soon.
const warningWindow = 24 * time.Hour

type ExpiryStats struct {
	Scanned   int
	Expired   int
	Warned    int
	RowErrors int
}

// ExpiryReconciler recomputes each active request's effective expiry from its
// creation time and the owner's current-pass tier, deactivates expired rows
// and warns about rows inside the final day. The stored expires_at is never
// trusted; it is display-only.
type ExpiryReconciler struct {
	repo    repository.Repository
	mailer  mailer.Mailer
	baseURL string
	logger  *zap.SugaredLogger
}

func NewExpiryReconciler(repo repository.Repository, m mailer.Mailer, baseURL string, logger *zap.Logger) *ExpiryReconciler {
	return &ExpiryReconciler{repo: repo, mailer: m, baseURL: baseURL, logger: logger.Sugar()}
}

// Run performs one pass. Per-row failures are logged and skipped so one bad
// row never blocks the rest of the batch. Deactivation is idempotent: a rerun
// selects nothing for already-inactive rows.
func (r *ExpiryReconciler) Run(ctx context.Context, now time.Time) (*ExpiryStats, error) {
	reqs, err := r.repo.ListActiveRequests(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ExpiryStats{Scanned: len(reqs)}
	tiers := map[int64]tier.Tier{}

	for i := range reqs {
		req := &reqs[i]
		ownerTier, err := r.tierFor(ctx, req, tiers)
		if err != nil {
			// A failed lookup must not expire the row on free-tier terms;
			// skip it and let the next pass retry.
			stats.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("expiry").Inc()
			r.logger.Errorw("failed to resolve owner tier", "request", req.ID, "err", err)
			continue
		}
		limits := tier.LimitsFor(ownerTier)
		effectiveExpiry := req.CreatedAt.Add(time.Duration(limits.ExpiryDays) * 24 * time.Hour)

		switch {
		case now.After(effectiveExpiry):
			if err := r.repo.UpdateRequestActive(ctx, req.ID, false); err != nil {
				stats.RowErrors++
				metrics.ReconcilerRowErrors.WithLabelValues("expiry").Inc()
				r.logger.Errorw("failed to deactivate expired request", "request", req.ID, "err", err)
				continue
			}
			stats.Expired++
			metrics.RequestsExpired.Inc()
			r.logger.Infow("request expired", "request", req.ID, "createdAt", req.CreatedAt, "expiry", effectiveExpiry)

		case now.After(effectiveExpiry.Add(-warningWindow)):
			// Best effort, no watermark: a rerun inside the final day sends
			// the warning again. Failures are retried naturally next pass.
			if r.warnExpiring(ctx, req, effectiveExpiry) {
				stats.Warned++
				metrics.ExpiryWarningsSent.Inc()
			} else {
				stats.RowErrors++
				metrics.ReconcilerRowErrors.WithLabelValues("expiry").Inc()
			}
		}
	}

	metrics.ReconcilerPasses.WithLabelValues("expiry").Inc()
	r.logger.Infow("expiry pass complete",
		"scanned", stats.Scanned, "expired", stats.Expired, "warned", stats.Warned, "rowErrors", stats.RowErrors)
	return stats, nil
}

// tierFor resolves the owner's current tier. A missing or inactive
// subscription is the free tier; a lookup failure is returned so the caller
// skips the row instead of expiring it on free-tier terms. Only resolved
// tiers enter the per-pass cache.
func (r *ExpiryReconciler) tierFor(ctx context.Context, req *models.FileRequest, cache map[int64]tier.Tier) (tier.Tier, error) {
	if req.UserID == nil {
		return tier.Free, nil
	}
	if t, ok := cache[*req.UserID]; ok {
		return t, nil
	}
	sub, err := r.repo.FindSubscription(ctx, *req.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return tier.Free, err
	}
	t := tier.Free
	if sub != nil && sub.IsActive {
		t = tier.Parse(sub.Tier)
	}
	cache[*req.UserID] = t
	return t, nil
}

func (r *ExpiryReconciler) warnExpiring(ctx context.Context, req *models.FileRequest, expiry time.Time) bool {
	to, err := recipientAddress(ctx, r.repo, req)
	if err != nil {
		r.logger.Warnw("no address for expiry warning", "request", req.ID, "err", err)
		return false
	}
	err = r.mailer.Send(ctx, to, mailer.KindExpiryWarning, mailer.Payload{
		Description: req.Description,
		UploadURL:   uploadURL(r.baseURL, req.UniqueLink),
		ExpiresAt:   expiry,
		Deadline:    req.Deadline,
	})
	if err != nil {
		r.logger.Errorw("failed to send expiry warning", "request", req.ID, "err", err)
		return false
	}
	return true
}
