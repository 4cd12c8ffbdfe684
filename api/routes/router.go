package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/contentforge/contentforge-backend/api/controllers"
	webhookcontrollers "github.com/contentforge/contentforge-backend/api/controllers/webhooks"
	"github.com/contentforge/contentforge-backend/api/middleware"
	"github.com/contentforge/contentforge-backend/internal/analytics"
	"github.com/contentforge/contentforge-backend/internal/auth"
	paymentwebhook "github.com/contentforge/contentforge-backend/internal/webhooks/payment"
	"github.com/contentforge/contentforge-backend/pkg/auth/session"
	"github.com/contentforge/contentforge-backend/pkg/bigquery"
	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/redis"
	"github.com/contentforge/contentforge-backend/pkg/storage/gcs"
	"github.com/contentforge/contentforge-backend/pkg/stripe"
)

// Services bundles the domain services the router wires to controllers.
type Services struct {
	Auth          auth.Service
	Register      auth.RegisterService
	Generation    controllers.GenerationService
	Usage         controllers.UsageService
	Content       controllers.ContentService
	Subscriptions controllers.SubscriptionService
	Billing       controllers.BillingService
	Contact       controllers.ContactService
	Admin         controllers.AdminService
	Analytics     analytics.Service
}

// Dependencies carries the infrastructure clients the router needs directly.
type Dependencies struct {
	DB             db.Pinger
	Redis          *redis.Client
	GCS            gcs.Pinger
	BigQuery       bigquery.Pinger
	Sessions       session.AccessSessionChecker
	Stripe         *stripe.Client
	WebhookService *paymentwebhook.Service
	WebhookGuard   *paymentwebhook.IdempotencyGuard
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svcs Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.GCS, deps.BigQuery))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookcontrollers.PaymentWebhook(deps.WebhookService, deps.Stripe, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(svcs.Register, svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
	})

	// Marketing-site endpoints take no credentials.
	r.Post("/api/v1/contact", controllers.ContactSubmit(svcs.Contact, logg))
	r.Route("/api/v1/newsletter", func(r chi.Router) {
		r.Post("/subscribe", controllers.NewsletterSubscribe(svcs.Contact, logg))
		r.Post("/unsubscribe", controllers.NewsletterUnsubscribe(svcs.Contact, logg))
	})
	r.Get("/api/v1/billing/plans", controllers.BillingPlans(svcs.Billing, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Post("/generate", controllers.Generate(svcs.Generation, logg))
		r.Get("/usage", controllers.Usage(svcs.Usage, logg))

		r.Route("/content", func(r chi.Router) {
			r.Get("/", controllers.ContentList(svcs.Content, logg))
			r.Get("/{contentId}", controllers.ContentGet(svcs.Content, logg))
			r.Patch("/{contentId}", controllers.ContentUpdate(svcs.Content, logg))
			r.Post("/{contentId}/favorite", controllers.ContentToggleFavorite(svcs.Content, logg))
			r.Delete("/{contentId}", controllers.ContentDelete(svcs.Content, logg))
		})

		r.Post("/trial/start", controllers.TrialStart(svcs.Subscriptions, logg))
		r.Get("/subscriptions", controllers.SubscriptionsList(svcs.Subscriptions, logg))
		r.Post("/billing/checkout", controllers.BillingCheckout(svcs.Billing, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(svcs.Admin, logg))
			r.Get("/{userId}", controllers.AdminGetUser(svcs.Admin, logg))
			r.Post("/{userId}/actions", controllers.AdminUserAction(svcs.Admin, logg))
		})
		r.Get("/audit", controllers.AdminAuditLogs(svcs.Admin, logg))
		r.Get("/security/suspicious", controllers.AdminSuspiciousActivities(svcs.Admin, logg))
		r.Get("/analytics", controllers.AdminAnalytics(svcs.Analytics, logg))
		r.Route("/contact", func(r chi.Router) {
			r.Get("/messages", controllers.AdminContactMessages(svcs.Contact, logg))
			r.Post("/messages/{messageId}/read", controllers.AdminMarkMessageRead(svcs.Contact, logg))
		})
		r.Get("/newsletter/subscribers", controllers.AdminNewsletterSubscribers(svcs.Contact, logg))
	})

	return r
}
