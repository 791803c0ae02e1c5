package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/archivesurmer-backend/internal/cron"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/internal/offers"
	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
	"github.com/angelmondragon/archivesurmer-backend/pkg/migrate"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/redis"
)

const lockName = "cron-worker:%s"

// -once runs a single locked cycle and exits, for one-off schedulers.
var once = flag.Bool("once", false, "run one maintenance cycle and exit")

func main() {
	flag.Parse()
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	maintenanceMetrics := metrics.NewMaintenanceMetrics(prometheus.DefaultRegisterer)
	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	jobs, err := buildJobs(cfg, logg, dbClient, marketMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}
	schedule, err := cron.NewSchedule(jobs...)
	if err != nil {
		logg.Error(context.Background(), "failed to schedule cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Schedule: schedule,
		Lock:     lock,
		Metrics:  maintenanceMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"service_kind":    cfg.Service.Kind,
		"interval":        cfg.Cron.Interval.String(),
		"reservation_ttl": cfg.Marketplace.ReservationTTL.String(),
		"offer_ttl":       cfg.Marketplace.OfferTTL.String(),
	})

	if !*once {
		metrics.ServeWorker(ctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg)
	}

	if *once {
		report, err := service.RunCycle(ctx)
		if err == nil && len(report.Failed) > 0 {
			err = fmt.Errorf("jobs failed: %v", report.Failed)
		}
		if err != nil {
			logg.Error(ctx, "single maintenance cycle failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "affected", report.Affected), "single maintenance cycle complete")
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockName, env)
}

func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, marketMetrics *metrics.MarketplaceMetrics) ([]cron.Job, error) {
	emitter := outbox.NewWriter(outbox.NewRepository(dbClient.DB()), logg)
	listingRepo := listings.NewRepository(dbClient.DB())

	lifecycle, err := listings.NewLifecycle(dbClient, listingRepo, emitter, logg)
	if err != nil {
		return nil, fmt.Errorf("listing lifecycle: %w", err)
	}
	sweep, err := cron.NewReservationSweepJob(cron.ReservationSweepJobParams{
		Logger:   logg,
		Listings: listingRepo,
		Releaser: lifecycle,
		TTL:      cfg.Marketplace.ReservationTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("reservation sweep job: %w", err)
	}

	profileService, err := profiles.NewService(profiles.NewRepository(dbClient.DB()), nil, logg)
	if err != nil {
		return nil, fmt.Errorf("profiles service: %w", err)
	}
	offerService, err := offers.NewService(offers.ServiceParams{
		Tx:         dbClient,
		Repo:       offers.NewRepository(dbClient.DB()),
		Listings:   listingRepo,
		Identities: profileService,
		Outbox:     emitter,
		Metrics:    marketMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("offers service: %w", err)
	}
	expiry, err := cron.NewOfferExpiryJob(cron.OfferExpiryJobParams{
		Logger: logg,
		Offers: offerService,
		TTL:    cfg.Marketplace.OfferTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("offer expiry job: %w", err)
	}

	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		MaxAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	return []cron.Job{sweep, expiry, retention}, nil
}
