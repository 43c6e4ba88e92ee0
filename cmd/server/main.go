// cmd/server/main.go
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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moehefner/streb/internal/app"
	"github.com/moehefner/streb/internal/config"
	"github.com/moehefner/streb/internal/controller"
	"github.com/moehefner/streb/internal/handler"
	"github.com/moehefner/streb/internal/queue"
	"github.com/moehefner/streb/internal/scheduler"
	"github.com/moehefner/streb/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("invalid configuration")
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	// Actions run on a single consumer, either in this process or in the
	// AMQP worker.
	var dispatcher queue.Dispatcher
	switch cfg.DispatchMode {
	case config.DispatchAMQP:
		q, err := queue.DialAMQP(cfg.AMQPURL, cfg.MaxJobRetries, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer q.Close()
		dispatcher = q
	default:
		q := queue.NewInMemoryQueue(256)
		defer q.Close()
		worker := service.NewWorker(a.Runner, q.Jobs(), cfg.MaxJobRetries, logger)
		go worker.Start(ctx)
		dispatcher = q
	}

	sweeper := a.NewSweeper(dispatcher)
	sched, err := scheduler.NewScheduler(cfg.SweepSchedule, sweeper, logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid SWEEP_SCHEDULE")
	}
	sched.Start()
	defer sched.Stop()

	campaignController := controller.NewCampaignController(a.Campaigns, a.Runner, logger)
	cronHandler := &handler.CronHandler{Sweeper: sweeper, Secret: cfg.CronSecret, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	r.Post("/cron/sweep", cronHandler.Sweep)
	campaignController.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
