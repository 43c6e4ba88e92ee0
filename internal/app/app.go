// internal/app/app.go
package app

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/moehefner/streb/internal/client"
	"github.com/moehefner/streb/internal/config"
	"github.com/moehefner/streb/internal/db"
	"github.com/moehefner/streb/internal/lease"
	"github.com/moehefner/streb/internal/metrics"
	"github.com/moehefner/streb/internal/model"
	"github.com/moehefner/streb/internal/queue"
	"github.com/moehefner/streb/internal/repository"
	"github.com/moehefner/streb/internal/scheduler"
	"github.com/moehefner/streb/internal/service"
)

// App owns the process-wide connections and the services built on them.
type App struct {
	Config   *config.Config
	Logger   *logrus.Logger
	DB       *sqlx.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	CampaignRepo *repository.CampaignRepository
	UsageRepo    *repository.UsageRepository

	Campaigns *service.CampaignService
	Outreach  *service.OutreachService
	Content   *service.ContentService
	Outbox    *service.OutboxService
	Runner    *service.ActionRunner
}

// New connects to Postgres (and Redis when configured) and wires every
// service. Missing API keys do not fail here; the affected action reports a
// configuration error when it runs.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	rdb, err := db.OpenRedis(ctx, cfg.RedisAddress, cfg.RedisPassword, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	var locker lease.Locker
	if rdb != nil {
		locker = lease.NewRedisLocker(rdb)
	} else {
		logger.Warn("REDIS_ADDRESS not set, outreach leases are process-local")
		locker = lease.NewLocalLocker()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	campaignRepo := &repository.CampaignRepository{DB: conn}
	usageRepo := &repository.UsageRepository{DB: conn}
	leadRepo := &repository.LeadRepository{DB: conn}
	activityRepo := &repository.ActivityRepository{DB: conn}
	subscriptionRepo := &repository.SubscriptionRepository{DB: conn}
	outboxRepo := &repository.OutboxRepository{DB: conn}
	runStore := &repository.RunStore{DB: conn}

	httpc := client.NewHTTPClient(30 * time.Second)
	var periods service.PeriodFetcher
	if cfg.StripeSecretKey != "" {
		periods = client.NewStripe(cfg.StripeSecretKey, httpc)
	}
	billing := &service.BillingService{
		Subscriptions: subscriptionRepo,
		Provider:      periods,
		Logger:        logger,
	}

	outreach := &service.OutreachService{
		Campaigns:   campaignRepo,
		Usage:       usageRepo,
		Leads:       leadRepo,
		Runs:        runStore,
		Outbox:      outboxRepo,
		Billing:     billing,
		Finder:      client.NewApollo(cfg.ApolloAPIKey, httpc),
		Generator:   client.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, httpc),
		Sender:      client.NewResend(cfg.ResendAPIKey, httpc),
		Locker:      locker,
		Metrics:     m,
		Logger:      logger,
		SendDelay:   cfg.OutreachSendDelay,
		LeaseTTL:    cfg.OutreachLeaseTTL,
		RunInterval: cfg.RunInterval,
		MaxPerDay:   cfg.DefaultMaxPerDay,
	}
	content := &service.ContentService{
		Campaigns: campaignRepo,
		Usage:     usageRepo,
		Runs:      runStore,
		Publisher: client.NewContentWebhook(cfg.ContentWebhookURL, cfg.ContentWebhookAuth, httpc),
		Metrics:   m,
		Logger:    logger,
	}

	runner := service.NewActionRunner(logger,
		content.For(model.ActionPost),
		content.For(model.ActionVideo),
		outreach,
	)
	runner.Campaigns = campaignRepo

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           conn,
		Redis:        rdb,
		Registry:     reg,
		Metrics:      m,
		CampaignRepo: campaignRepo,
		UsageRepo:    usageRepo,
		Campaigns: &service.CampaignService{
			CampaignRepo: campaignRepo,
			UsageRepo:    usageRepo,
			LeadRepo:     leadRepo,
			ActivityRepo: activityRepo,
			Billing:      billing,
			MaxPerDay:    cfg.DefaultMaxPerDay,
			RunInterval:  cfg.RunInterval,
			Logger:       logger,
		},
		Outreach: outreach,
		Content:  content,
		Outbox:   &service.OutboxService{Outbox: outboxRepo, Runs: runStore, Logger: logger},
		Runner:   runner,
	}, nil
}

// NewSweeper builds the sweep over this app's repositories.
func (a *App) NewSweeper(d queue.Dispatcher) *scheduler.Sweeper {
	return &scheduler.Sweeper{
		Campaigns:  a.CampaignRepo,
		Usage:      a.UsageRepo,
		Dispatcher: d,
		Outbox:     a.Outbox,
		Metrics:    a.Metrics,
		Logger:     a.Logger,
	}
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close redis")
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.WithError(err).Warn("failed to close database")
	}
}
