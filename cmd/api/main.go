package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/archivesurmer-backend/api/controllers"
	"github.com/angelmondragon/archivesurmer-backend/api/routes"
	checkoutsvc "github.com/angelmondragon/archivesurmer-backend/internal/checkout"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/internal/media"
	"github.com/angelmondragon/archivesurmer-backend/internal/offers"
	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/internal/savedsearches"
	"github.com/angelmondragon/archivesurmer-backend/internal/stripewebhook"
	"github.com/angelmondragon/archivesurmer-backend/internal/wishlist"
	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	"github.com/angelmondragon/archivesurmer-backend/pkg/db"
	"github.com/angelmondragon/archivesurmer-backend/pkg/idempotency"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
	"github.com/angelmondragon/archivesurmer-backend/pkg/migrate"
	"github.com/angelmondragon/archivesurmer-backend/pkg/outbox"
	"github.com/angelmondragon/archivesurmer-backend/pkg/redis"
	"github.com/angelmondragon/archivesurmer-backend/pkg/storage/gcs"
	"github.com/angelmondragon/archivesurmer-backend/pkg/stripe"
)

const webhookGuardScope = "stripe-webhook"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})
	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketMetrics := metrics.NewMarketplaceMetrics(registry)

	readiness := map[string]controllers.Pinger{
		"db":    dbClient,
		"redis": redisClient,
	}

	params := routes.Params{
		Config:           cfg,
		Logger:           logg,
		Gatherer:         registry,
		Readiness:        readiness,
		IdempotencyStore: redisClient,
		RateLimiter:      redisClient,
	}

	emitter := outbox.NewWriter(outbox.NewRepository(dbClient.DB()), logg)
	listingRepo := listings.NewRepository(dbClient.DB())
	profileRepo := profiles.NewRepository(dbClient.DB())

	var stripeClient *stripe.Client
	if cfg.Stripe.APIKey != "" {
		stripeClient, err = stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Error(ctx, "failed to create stripe client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "stripe api key not set; checkout and onboarding disabled")
	}

	var accounts profiles.AccountProvider
	if stripeClient != nil {
		accounts = stripeClient
	}
	profileService, err := profiles.NewService(profileRepo, accounts, logg)
	if err != nil {
		logg.Error(ctx, "failed to create profiles service", err)
		os.Exit(1)
	}
	params.Profiles = profileService

	params.Listings, err = listings.NewService(dbClient, listingRepo, profileService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create listings service", err)
		os.Exit(1)
	}
	params.Moderation, err = listings.NewModerationService(dbClient, listingRepo, emitter, logg)
	if err != nil {
		logg.Error(ctx, "failed to create moderation service", err)
		os.Exit(1)
	}
	lifecycle, err := listings.NewLifecycle(dbClient, listingRepo, emitter, logg)
	if err != nil {
		logg.Error(ctx, "failed to create listing lifecycle", err)
		os.Exit(1)
	}

	params.Offers, err = offers.NewService(offers.ServiceParams{
		Tx:         dbClient,
		Repo:       offers.NewRepository(dbClient.DB()),
		Listings:   listingRepo,
		Identities: profileService,
		Outbox:     emitter,
		Metrics:    marketMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create offers service", err)
		os.Exit(1)
	}

	if stripeClient != nil {
		params.Checkout, err = checkoutsvc.NewService(checkoutsvc.Params{
			Listings:     listingRepo,
			Sellers:      profileRepo,
			Reservations: lifecycle,
			Gateway:      stripeClient,
			FeePercent:   cfg.Marketplace.PlatformFeePercent,
			Metrics:      marketMetrics,
			Logger:       logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create checkout service", err)
			os.Exit(1)
		}
		params.WebhookVerifier = stripeClient
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Listings: lifecycle,
		Metrics:  marketMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create webhook service", err)
		os.Exit(1)
	}
	params.WebhookService = webhookService
	params.WebhookGuard, err = idempotency.NewGuard(redisClient, cfg.Stripe.WebhookTTL, webhookGuardScope)
	if err != nil {
		logg.Error(ctx, "failed to create webhook guard", err)
		os.Exit(1)
	}

	params.Wishlist, err = wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlist.NewRepository(dbClient.DB()),
		Customers:    profileService,
		Listings:     listingRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create wishlist service", err)
		os.Exit(1)
	}

	params.SavedSearches, err = savedsearches.NewService(savedsearches.NewRepository(dbClient.DB()), profileService)
	if err != nil {
		logg.Error(ctx, "failed to create saved searches service", err)
		os.Exit(1)
	}

	if cfg.GCS.BucketName != "" {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap gcs", err)
			os.Exit(1)
		}
		defer func() {
			if err := gcsClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing gcs client", err)
			}
		}()
		readiness["gcs"] = gcsClient
		params.Media, err = media.NewService(gcsClient, cfg.Media.MaxUploadBytes(), cfg.Media.DefaultFolder, logg)
		if err != nil {
			logg.Error(ctx, "failed to create media service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "gcs bucket not set; image uploads disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	stripeEnv := ""
	if stripeClient != nil {
		stripeEnv = stripeClient.Environment()
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   id,
		"stripe_env": stripeEnv,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(params),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
