// Package cron schedules the periodic reconciliation passes. One instance of
// the service is assumed to run them; each job runs single-flight on its own
// timer and may overlap the other jobs and live traffic, which is safe
// because every job only writes fields it exclusively owns.
package cron

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/reqdrop/reqdrop/internal/config"
	"github.com/reqdrop/reqdrop/internal/logging"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/services"
	"go.uber.org/zap"
)

type CronService struct {
	expiry    *services.ExpiryReconciler
	reminder  *services.ReminderService
	integrity *services.IntegrityService
	cnf       *config.CronJobConfig
	logger    *zap.SugaredLogger
}

func StartCronJobs(ctx context.Context, scheduler *gocron.Scheduler, repo repository.Repository, m mailer.Mailer, cnf *config.ServerCmdConfig) {
	if !cnf.CronJobs.Enable {
		return
	}

	lg := logging.DefaultLogger()

	cron := CronService{
		expiry:    services.NewExpiryReconciler(repo, m, cnf.Server.BaseURL, lg),
		reminder:  services.NewReminderService(repo, m, cnf.CronJobs.ReminderLead, cnf.CronJobs.ReminderInterval, cnf.Server.BaseURL, lg),
		integrity: services.NewIntegrityService(repo, lg),
		cnf:       &cnf.CronJobs,
		logger:    lg.Sugar(),
	}

	// Expiry and integrity also run once at start; reminders wait out a grace
	// period so a restart does not trigger an immediate send burst.
	go cron.RunIntegrity(ctx)
	go cron.RunExpiry(ctx)

	scheduler.Every(cnf.CronJobs.ExpiryInterval).SingletonMode().Do(cron.RunExpiry, ctx)

	if cnf.CronJobs.RemindersEnabled {
		scheduler.Every(cnf.CronJobs.ReminderInterval).
			StartAt(time.Now().UTC().Add(cnf.CronJobs.ReminderGrace)).
			SingletonMode().
			Do(cron.RunReminders, ctx)
	}

	scheduler.StartAsync()
}

func (c *CronService) RunExpiry(ctx context.Context) {
	if _, err := c.expiry.Run(ctx, time.Now().UTC()); err != nil {
		c.logger.Errorw("expiry pass failed", "err", err)
	}
}

func (c *CronService) RunReminders(ctx context.Context) {
	if _, err := c.reminder.Run(ctx, time.Now().UTC()); err != nil {
		c.logger.Errorw("reminder pass failed", "err", err)
	}
}

func (c *CronService) RunIntegrity(ctx context.Context) {
	if _, err := c.integrity.Repair(ctx); err != nil {
		c.logger.Errorw("integrity pass failed", "err", err)
	}
}
