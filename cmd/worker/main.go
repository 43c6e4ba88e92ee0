// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/moehefner/streb/internal/app"
	"github.com/moehefner/streb/internal/config"
	"github.com/moehefner/streb/internal/queue"
)

// The worker consumes action jobs published by the server when
// DISPATCH_MODE=amqp. Prefetch is one, so actions run one at a time.
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

	q, err := queue.DialAMQP(cfg.AMQPURL, cfg.MaxJobRetries, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	defer q.Close()

	logger.Info("worker running, waiting for jobs")
	if err := q.Consume(ctx, a.Runner.Handle); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("consumer stopped")
	}
}
