package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grattia/grattia-backend/api/controllers"
	"github.com/grattia/grattia-backend/api/middleware"
	"github.com/grattia/grattia-backend/internal/auth"
	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/catalog"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/platform"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/internal/redemptions"
	"github.com/grattia/grattia-backend/internal/rewards"
	"github.com/grattia/grattia-backend/internal/webhooks"
	"github.com/grattia/grattia-backend/pkg/auth/session"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/redis"
)

// Params carries everything the HTTP surface depends on.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker

	Auth        auth.Service
	Companies   companies.Service
	Members     profiles.Service
	Points      points.Service
	Rewards     rewards.Service
	Catalog     catalog.Service
	Redemptions redemptions.Service
	Billing     billing.Service
	Platform    platform.Service
	Stripe      webhooks.StripeService
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe/{environment}", controllers.StripeWebhook(p.Stripe, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
			r.Post("/password", controllers.AuthChangePassword(p.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequireCompany(logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/company", func(r chi.Router) {
			r.Get("/", controllers.CompanyGet(p.Companies, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
				r.Patch("/", controllers.CompanyUpdate(p.Companies, logg))
				r.Delete("/", controllers.CompanyDelete(p.Companies, logg))
			})
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", controllers.MemberList(p.Members, logg))
			r.Get("/{memberId}", controllers.MemberGet(p.Members, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
				r.Post("/", controllers.MemberInvite(p.Members, logg))
				r.Patch("/{memberId}", controllers.MemberUpdate(p.Members, logg))
				r.Delete("/{memberId}", controllers.MemberRemove(p.Members, logg))
			})
		})

		r.Route("/points", func(r chi.Router) {
			r.Post("/give", controllers.PointsGive(p.Points, logg))
			r.Get("/history", controllers.PointsHistory(p.Points, logg))
		})

		r.Route("/rewards", func(r chi.Router) {
			r.Get("/", controllers.RewardList(p.Rewards, logg))
			r.Get("/{rewardId}", controllers.RewardGet(p.Rewards, logg))
			r.Post("/{rewardId}/redeem", controllers.RewardRedeem(p.Redemptions, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
				r.Post("/import", controllers.CatalogImport(p.Catalog, logg))
				r.Delete("/{rewardId}", controllers.RewardDelete(p.Rewards, logg))
			})
		})

		r.Get("/redemptions", controllers.RedemptionList(p.Redemptions, logg))

		r.Route("/billing", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.MemberRoleAdmin), logg))
			r.Post("/customer", controllers.BillingEnsureCustomer(p.Billing, logg))
			r.Post("/checkout", controllers.BillingCheckout(p.Billing, logg))
			r.Post("/checkout/verify", controllers.BillingVerifyCheckout(p.Billing, logg))
			r.Post("/seats/sync", controllers.BillingSeatSync(p.Billing, logg))
			r.Get("/events", controllers.BillingEvents(p.Billing, logg))
		})
	})

	r.Route("/api/platform/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequirePlatformAdmin(logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/companies", func(r chi.Router) {
			r.Post("/", controllers.PlatformCompanyCreate(p.Companies, logg))
			r.Delete("/{companyId}", controllers.PlatformCompanyDelete(p.Companies, logg))
			r.Post("/{companyId}/points", controllers.PlatformPointsAdjust(p.Platform, logg))
		})
		r.Post("/rewards/import", controllers.PlatformCatalogImport(p.Catalog, logg))
		r.Post("/redemptions/{redemptionId}/advance", controllers.RedemptionAdvance(p.Redemptions, logg))
	})

	return r
}
