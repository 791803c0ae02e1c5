package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/archivesurmer-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/archivesurmer-backend/api/controllers/webhooks"
	"github.com/angelmondragon/archivesurmer-backend/api/middleware"
	"github.com/angelmondragon/archivesurmer-backend/api/responses"
	checkoutsvc "github.com/angelmondragon/archivesurmer-backend/internal/checkout"
	"github.com/angelmondragon/archivesurmer-backend/internal/listings"
	"github.com/angelmondragon/archivesurmer-backend/internal/media"
	"github.com/angelmondragon/archivesurmer-backend/internal/offers"
	"github.com/angelmondragon/archivesurmer-backend/internal/profiles"
	"github.com/angelmondragon/archivesurmer-backend/internal/savedsearches"
	"github.com/angelmondragon/archivesurmer-backend/internal/wishlist"
	"github.com/angelmondragon/archivesurmer-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/archivesurmer-backend/pkg/errors"
	"github.com/angelmondragon/archivesurmer-backend/pkg/idempotency"
	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/payments"
	pkgredis "github.com/angelmondragon/archivesurmer-backend/pkg/redis"
)

// WebhookVerifier checks a provider signature and decodes the event.
type WebhookVerifier interface {
	VerifyAndParseWebhook(payload []byte, signatureHeader string) (payments.Event, error)
}

// Params carries everything the HTTP surface depends on. Nil services answer
// 500 on their routes; nil Redis surfaces disable rate limiting and
// Idempotency-Key replay.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer

	Readiness map[string]controllers.Pinger

	IdempotencyStore pkgredis.IdempotencyStore
	RateLimiter      pkgredis.RateLimiter

	Listings      listings.Service
	Moderation    listings.ModerationService
	Offers        offers.Service
	Checkout      checkoutsvc.Service
	Profiles      profiles.Service
	Wishlist      wishlist.Service
	SavedSearches savedsearches.Service
	Media         media.Service

	WebhookService  webhookcontrollers.StripeWebhookService
	WebhookVerifier WebhookVerifier
	WebhookGuard    *idempotency.Guard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigin),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Route not found."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeMethodNotAllowed, "Method not allowed."))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	writePolicy := middleware.NewRateLimitPolicy("write", cfg.RateLimit.Window, cfg.RateLimit.WriteIPLimit)

	r.Route("/api", func(r chi.Router) {
		// Provider retries are not throttled.
		r.Post("/stripe-webhook", webhookcontrollers.StripeWebhook(p.WebhookService, p.WebhookVerifier, guardOrNil(p.WebhookGuard), logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(writePolicy, p.RateLimiter, logg))

			r.Route("/listings", func(r chi.Router) {
				r.Get("/", controllers.ListingsList(p.Listings, logg))
				r.Post("/", controllers.ListingsCreate(p.Listings, logg))
				r.Patch("/", controllers.ListingsUpdateStatus(p.Listings, logg))
			})

			r.Route("/offers", func(r chi.Router) {
				r.Get("/", controllers.OffersList(p.Offers, logg))
				r.Post("/", controllers.OffersCreate(p.Offers, logg))
				r.Patch("/", controllers.OffersAct(p.Offers, logg))
			})

			r.With(middleware.Idempotency(p.IdempotencyStore, cfg.Marketplace.CheckoutReplayTTL, logg)).
				Post("/create-checkout-session", controllers.CreateCheckoutSession(p.Checkout, cfg.App.PublicOrigin, logg))

			r.Route("/moderate-listings", func(r chi.Router) {
				r.Use(middleware.RequireAdminToken(cfg.Admin.Token, logg))
				r.Get("/", controllers.ModerationQueue(p.Moderation, logg))
				r.Post("/", controllers.ModerationDecide(p.Moderation, logg))
			})

			r.Post("/start-onboarding", controllers.StartOnboarding(p.Profiles, cfg.App.PublicOrigin, logg))
			r.Post("/account-status", controllers.AccountStatus(p.Profiles, logg))
			r.Post("/customer-signup", controllers.CustomerSignup(p.Profiles, logg))

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", controllers.WishlistGet(p.Wishlist, logg))
				r.Post("/", controllers.WishlistAdd(p.Wishlist, logg))
				r.Delete("/", controllers.WishlistRemove(p.Wishlist, logg))
			})

			r.Route("/saved-searches", func(r chi.Router) {
				r.Get("/", controllers.SavedSearchesList(p.SavedSearches, logg))
				r.Post("/", controllers.SavedSearchesCreate(p.SavedSearches, logg))
				r.Delete("/", controllers.SavedSearchesDelete(p.SavedSearches, logg))
			})

			r.Post("/upload-image", controllers.UploadImage(p.Media, cfg.Media.MaxUploadBytes(), logg))
		})
	})

	return r
}

// guardOrNil keeps a nil *Guard from becoming a non-nil interface value.
func guardOrNil(g *idempotency.Guard) webhookcontrollers.EventGuard {
	if g == nil {
		return nil
	}
	return g
}
