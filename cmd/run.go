package cmd

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/reqdrop/reqdrop/internal/auth"
	"github.com/reqdrop/reqdrop/internal/chizap"
	"github.com/reqdrop/reqdrop/internal/config"
	"github.com/reqdrop/reqdrop/internal/database"
	"github.com/reqdrop/reqdrop/internal/logging"
	"github.com/reqdrop/reqdrop/pkg/cron"
	"github.com/reqdrop/reqdrop/pkg/mailer"
	"github.com/reqdrop/reqdrop/pkg/repository"
	"github.com/reqdrop/reqdrop/pkg/routes"
	"github.com/reqdrop/reqdrop/pkg/services"
	"github.com/reqdrop/reqdrop/pkg/storage"
	"go.uber.org/zap/zapcore"
)

func NewRun() *cobra.Command {
	var cfg config.ServerCmdConfig
	loader := config.NewConfigLoader()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the reqdrop server",
		Run: func(cmd *cobra.Command, args []string) {
			runApplication(cmd.Context(), &cfg)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loader.Load(cmd, &cfg)
		},
	}
	config.AddCommonFlags(cmd.Flags(), &cfg)
	return cmd
}

func runApplication(ctx context.Context, conf *config.ServerCmdConfig) {
	lvl, err := zapcore.ParseLevel(conf.Log.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	logging.SetConfig(&logging.Config{
		Level:    lvl,
		FilePath: conf.Log.File,
	})

	lg := logging.DefaultLogger().Sugar()

	defer lg.Sync()

	db, err := database.NewDatabase(&conf.DB, lg)
	if err != nil {
		lg.Fatalw("failed to create database", "err", err)
	}

	if err := database.MigrateDB(db); err != nil {
		lg.Fatalw("failed to migrate database", "err", err)
	}

	repo := repository.New(db)

	var m mailer.Mailer
	if conf.Mail.Enabled {
		m = mailer.NewSMTPMailer(&conf.Mail)
	} else {
		lg.Info("SMTP not configured, notifications will be logged only")
		m = mailer.NewLogMailer(lg)
	}

	store, err := storage.NewDiskStore(conf.Storage.Dir)
	if err != nil {
		lg.Fatalw("failed to create blob storage", "err", err)
	}

	srv := setupServer(conf, repo, store, m)

	scheduler := gocron.NewScheduler(time.UTC)
	cron.StartCronJobs(ctx, scheduler, repo, m, conf)

	go func() {
		lg.Infof("Server started at http://localhost:%d", conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Errorw("failed to start server", "err", err)
		}
	}()

	<-ctx.Done()

	lg.Info("Shutting down server...")

	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), conf.Server.GracefulShutdown)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Errorw("server shutdown failed", "err", err)
	}

	lg.Info("Server stopped")
}

func setupServer(cfg *config.ServerCmdConfig, repo repository.Repository, store storage.Store, m mailer.Mailer) *http.Server {
	lg := logging.DefaultLogger()

	admission := services.NewAdmissionService(repo, lg)
	requests := services.NewFileRequestService(repo, admission, lg)
	uploads := services.NewUploadService(repo, store, lg)
	integrity := services.NewIntegrityService(repo, lg)

	api := routes.NewAPI(requests, uploads, integrity, lg)

	mux := chi.NewRouter()

	mux.Use(chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH", "HEAD"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))
	mux.Use(chimiddleware.RealIP)
	mux.Use(chizap.ChizapWithConfig(lg, &chizap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPathRegexps: []*regexp.Regexp{
			regexp.MustCompile(`^/metrics`),
		},
	}))
	mux.Use(auth.Middleware(cfg.JWT.Secret))
	mux.Mount("/api", api.Router())
	mux.Handle("/metrics", routes.MetricsHandler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
