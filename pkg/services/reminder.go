package services

import (
	"context"
	"time"

	"github.com/reqdrop/reqdrop/internal/metrics"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"go.uber.org/zap"
)

type ReminderStats struct {
	Selected  int
	Sent      int
	RowErrors int
}

// ReminderService nudges recipients of pending requests whose deadline is
// imminent or absent. The last_reminder_sent_at watermark caps sends to one
// per period: the selection query excludes rows reminded within the current
// period, and the watermark is only advanced after a successful send so a
// failed send retries on the next pass.
type ReminderService struct {
	repo    repository.Repository
	mailer  mailer.Mailer
	lead    time.Duration
	period  time.Duration
	baseURL string
	logger  *zap.SugaredLogger
}

func NewReminderService(repo repository.Repository, m mailer.Mailer, lead, period time.Duration, baseURL string, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		repo:    repo,
		mailer:  m,
		lead:    lead,
		period:  period,
		baseURL: baseURL,
		logger:  logger.Sugar(),
	}
}

func (s *ReminderService) Run(ctx context.Context, now time.Time) (*ReminderStats, error) {
	reqs, err := s.repo.ListPendingRequestsNearingDeadline(ctx, now, s.lead, s.period)
	if err != nil {
		return nil, err
	}

	stats := &ReminderStats{Selected: len(reqs)}

	for i := range reqs {
		req := &reqs[i]

		to, err := recipientAddress(ctx, s.repo, req)
		if err != nil {
			stats.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("reminder").Inc()
			s.logger.Warnw("no address for reminder", "request", req.ID, "err", err)
			continue
		}

		err = s.mailer.Send(ctx, to, mailer.KindReminder, mailer.Payload{
			Description: req.Description,
			UploadURL:   uploadURL(s.baseURL, req.UniqueLink),
			ExpiresAt:   req.ExpiresAt,
			Deadline:    req.Deadline,
		})
		if err != nil {
			stats.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("reminder").Inc()
			s.logger.Errorw("failed to send reminder", "request", req.ID, "err", err)
			continue
		}

		if err := s.repo.UpdateRequestLastReminder(ctx, req.ID, now); err != nil {
			// The send went out but the watermark write failed; the next pass
			// may remind again, which the at-least-once contract allows.
			stats.RowErrors++
			metrics.ReconcilerRowErrors.WithLabelValues("reminder").Inc()
			s.logger.Errorw("failed to record reminder watermark", "request", req.ID, "err", err)
			continue
		}
		stats.Sent++
		metrics.RemindersSent.Inc()
	}

	metrics.ReconcilerPasses.WithLabelValues("reminder").Inc()
	s.logger.Infow("reminder pass complete",
		"selected", stats.Selected, "sent", stats.Sent, "rowErrors", stats.RowErrors)
	return stats, nil
}
