package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oriontel/backoffice-api/internal/handler"
	"github.com/oriontel/backoffice-api/internal/notify"
	"github.com/oriontel/backoffice-api/internal/repository"
	"github.com/oriontel/backoffice-api/internal/service"
	"github.com/oriontel/backoffice-api/pkg/cache"
	"github.com/oriontel/backoffice-api/pkg/config"
	"github.com/oriontel/backoffice-api/pkg/database"
	"github.com/oriontel/backoffice-api/pkg/logger"
	"github.com/oriontel/backoffice-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, metric snapshots disabled", zap.Error(err))
	}
	snapshots := cache.NewSnapshots(redisClient, cfg.Metrics.CacheTTL)

	users := repository.NewUserRepository(db)
	calendar := repository.NewCalendarRepository(db)
	emails := repository.NewEmailRepository(db)
	pbx := repository.NewPbxRepository(db)
	system := repository.NewSystemRepository(db)

	smtpMailer := mailer.NewSMTP(cfg.SMTP)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notify.New(smtpMailer, users, cfg.Notify, log)
	notifier.Start(ctx)
	defer notifier.Stop()

	authService := service.NewAuthService(users, cfg.JWT)
	calendarService := service.NewCalendarService(calendar, users, notifier, snapshots)
	emailService := service.NewEmailService(emails, users, smtpMailer)
	pbxService := service.NewPbxService(pbx)
	systemService := service.NewSystemService(system)

	if cfg.Reminders.Enabled {
		dispatcher := service.NewReminderDispatcher(calendar, users, notifier, cfg.Reminders.CronSpec, log)
		if err := dispatcher.Start(ctx); err != nil {
			log.Fatal("reminder dispatcher failed to start", zap.Error(err))
		}
		defer dispatcher.Stop()
	}

	router := handler.NewRouter(cfg, log, authService, handler.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Calendar: handler.NewCalendarHandler(calendarService),
		Email:    handler.NewEmailHandler(emailService),
		Pbx:      handler.NewPbxHandler(pbxService),
		System:   handler.NewSystemHandler(systemService),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
