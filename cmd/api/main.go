package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contentforge/contentforge-backend/api/routes"
	"github.com/contentforge/contentforge-backend/internal/admin"
	"github.com/contentforge/contentforge-backend/internal/analytics"
	"github.com/contentforge/contentforge-backend/internal/auth"
	"github.com/contentforge/contentforge-backend/internal/billing"
	"github.com/contentforge/contentforge-backend/internal/contact"
	"github.com/contentforge/contentforge-backend/internal/content"
	"github.com/contentforge/contentforge-backend/internal/entitlement"
	"github.com/contentforge/contentforge-backend/internal/generation"
	"github.com/contentforge/contentforge-backend/internal/risk"
	"github.com/contentforge/contentforge-backend/internal/subscriptions"
	"github.com/contentforge/contentforge-backend/internal/users"
	paymentwebhook "github.com/contentforge/contentforge-backend/internal/webhooks/payment"
	"github.com/contentforge/contentforge-backend/pkg/auth/session"
	"github.com/contentforge/contentforge-backend/pkg/bigquery"
	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/metrics"
	"github.com/contentforge/contentforge-backend/pkg/migrate"
	"github.com/contentforge/contentforge-backend/pkg/outbox"
	"github.com/contentforge/contentforge-backend/pkg/providers"
	"github.com/contentforge/contentforge-backend/pkg/redis"
	"github.com/contentforge/contentforge-backend/pkg/storage/gcs"
	"github.com/contentforge/contentforge-backend/pkg/stripe"
)

const webhookReplayTTL = 72 * time.Hour

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	outboxEmitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	generationMetrics := metrics.NewGenerationMetrics(prometheus.DefaultRegisterer)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	riskService, err := risk.NewService(risk.ServiceParams{
		Repo:   risk.NewRepository(dbClient.DB()),
		Users:  usersRepo,
		Outbox: outboxEmitter,
		Config: cfg.Risk,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create risk service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		Risk:           riskService,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	entitlementService, err := entitlement.NewService(entitlement.ServiceParams{
		DB:      dbClient,
		Users:   usersRepo,
		Outbox:  outboxEmitter,
		Config:  cfg.Entitlement,
		Logger:  logg,
		Metrics: generationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	textClient, err := providers.NewTextClient(cfg.Providers)
	if err != nil {
		logg.Error(context.Background(), "failed to create text provider", err)
		os.Exit(1)
	}
	imageClient, err := providers.NewImageClient(cfg.Providers)
	if err != nil {
		logg.Error(context.Background(), "failed to create image provider", err)
		os.Exit(1)
	}
	speechClient, err := providers.NewSpeechClient(cfg.Providers)
	if err != nil {
		logg.Error(context.Background(), "failed to create speech provider", err)
		os.Exit(1)
	}

	contentRepo := content.NewRepository(dbClient.DB())
	generationService, err := generation.NewService(generation.ServiceParams{
		Entitlement: entitlementService,
		Text:        textClient,
		Image:       imageClient,
		Speech:      speechClient,
		Store:       gcsClient,
		Content:     contentRepo,
		Logger:      logg,
		Metrics:     generationMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create generation service", err)
		os.Exit(1)
	}

	contentService, err := content.NewService(content.ServiceParams{Repo: contentRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create content service", err)
		os.Exit(1)
	}

	replayGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, webhookReplayTTL, "subscription-event")
	if err != nil {
		logg.Error(context.Background(), "failed to create replay guard", err)
		os.Exit(1)
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		DB:     dbClient,
		Repo:   subscriptions.NewRepository(dbClient.DB()),
		Users:  usersRepo,
		Guard:  replayGuard,
		Outbox: outboxEmitter,
		Trial:  cfg.Trial,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, webhookReplayTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Applier: subscriptionService,
		Fetcher: paymentwebhook.NewSubscriptionFetcher(stripeClient),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:     billing.NewRepository(dbClient.DB()),
		Sessions: billing.NewStripeSessionCreator(),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	contactService, err := contact.NewService(contact.ServiceParams{
		Repo:   contact.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contact service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		DB:         dbClient,
		Users:      usersRepo,
		Audit:      admin.NewRepository(dbClient.DB()),
		Activities: risk.NewRepository(dbClient.DB()),
		Outbox:     outboxEmitter,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(bqClient, dbClient.DB(), cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.UsageEventsTable)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
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
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	deps := routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		GCS:            gcsClient,
		BigQuery:       bqClient,
		Sessions:       sessionManager,
		Stripe:         stripeClient,
		WebhookService: webhookService,
		WebhookGuard:   webhookGuard,
	}
	svcs := routes.Services{
		Auth:          authService,
		Register:      registerService,
		Generation:    generationService,
		Usage:         entitlementService,
		Content:       contentService,
		Subscriptions: subscriptionService,
		Billing:       billingService,
		Contact:       contactService,
		Admin:         adminService,
		Analytics:     analyticsService,
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
