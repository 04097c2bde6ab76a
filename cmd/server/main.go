package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"inkwell/internal/audit"
	"inkwell/internal/platform/config"
	"inkwell/internal/platform/httpserver"
	"inkwell/internal/platform/logger"
	platformmetrics "inkwell/internal/platform/metrics"
	"inkwell/internal/platform/middleware"
	"inkwell/internal/platform/postgres"
	"inkwell/internal/subscription/handler"
	subscriptionmetrics "inkwell/internal/subscription/metrics"
	"inkwell/internal/subscription/notify"
	"inkwell/internal/subscription/service"
	"inkwell/internal/subscription/store"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	environment := os.Getenv("APP_ENVIRONMENT")
	if environment == "" {
		environment = "local"
	}
	log := logger.New(environment)

	cfg, err := config.Load("configuration")
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	subscriberStore := store.NewPostgres(db)
	auditStore := audit.NewPostgresStore(db)

	auditInbox := make(chan audit.Event, cfg.Audit.BufferSize)
	auditPublisher := audit.NewPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)

	notifier := notify.NewClient(cfg.NotificationClient, notify.WithLogger(log))

	httpMetrics := platformmetrics.New()
	subscriptionMetrics := subscriptionmetrics.New()

	subscriptions := service.New(subscriberStore, notifier, cfg.Application.BaseURL,
		service.WithLogger(log),
		service.WithMetrics(subscriptionMetrics),
		service.WithAuditPublisher(auditPublisher),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(httpMetrics))
	router.Use(middleware.Timeout(30 * time.Second))

	handler.New(subscriptions, log).Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Application.Addr(), router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting server", "addr", cfg.Application.Addr(), "environment", environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := auditWorker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
