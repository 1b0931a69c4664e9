package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/grattia/grattia-backend/api/routes"
	"github.com/grattia/grattia-backend/internal/auth"
	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/catalog"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/platform"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/internal/redemptions"
	"github.com/grattia/grattia-backend/internal/rewards"
	"github.com/grattia/grattia-backend/internal/users"
	"github.com/grattia/grattia-backend/internal/webhooks"
	"github.com/grattia/grattia-backend/pkg/auth/session"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/email"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/goody"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/migrate"
	"github.com/grattia/grattia-backend/pkg/redis"
	"github.com/grattia/grattia-backend/pkg/rye"
	pkgstripe "github.com/grattia/grattia-backend/pkg/stripe"
)

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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	stripeCreds, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to load stripe credentials", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)
	profileRepo := profiles.NewRepository(conn)
	companyRepo := companies.NewRepository(conn)
	pointsRepo := points.NewRepository(conn)
	rewardRepo := rewards.NewRepository(conn)
	redemptionRepo := redemptions.NewRepository(conn)
	billingRepo := billing.NewRepository(conn)

	var emailSender email.Sender
	if cfg.Email.RelayURL != "" {
		sender, err := email.NewClient(cfg.Email)
		if err != nil {
			logg.Error(context.Background(), "failed to create email client", err)
			os.Exit(1)
		}
		emailSender = sender
	} else {
		logg.Warn(context.Background(), "email relay not configured, invitations will not be sent")
	}

	memberService, err := profiles.NewService(profiles.ServiceParams{
		DB:          dbClient,
		Repo:        profileRepo,
		Users:       userRepo,
		Email:       emailSender,
		PasswordCfg: cfg.Password,
		Logger:      logg,
	})
	exitOnError(logg, "member service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       userRepo,
		Profiles:    profileRepo,
		Memberships: memberService,
		Sessions:    sessionManager,
		Limiter:     redisClient,
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		RateLimit:   cfg.AuthRateLimit,
		Logger:      logg,
	})
	exitOnError(logg, "auth service", err)

	companyService, err := companies.NewService(companies.ServiceParams{
		DB:     dbClient,
		Repo:   companyRepo,
		Logger: logg,
	})
	exitOnError(logg, "company service", err)

	pointsService, err := points.NewService(points.ServiceParams{
		DB:       dbClient,
		Repo:     pointsRepo,
		Profiles: profileRepo,
		Logger:   logg,
	})
	exitOnError(logg, "points service", err)

	rewardService, err := rewards.NewService(rewards.ServiceParams{
		Repo:   rewardRepo,
		Logger: logg,
	})
	exitOnError(logg, "reward service", err)

	fetchers, checkers := providerClients(logg, cfg)

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:     rewardRepo,
		Fetchers: fetchers,
		Logger:   logg,
	})
	exitOnError(logg, "catalog service", err)

	redemptionService, err := redemptions.NewService(redemptions.ServiceParams{
		DB:       dbClient,
		Repo:     redemptionRepo,
		Rewards:  rewardRepo,
		Profiles: profileRepo,
		Ledger:   pointsRepo,
		Checkers: checkers,
		Logger:   logg,
	})
	exitOnError(logg, "redemption service", err)

	billingService, err := billing.NewService(billing.ServiceParams{
		DB:          dbClient,
		Repo:        billingRepo,
		Companies:   companyRepo,
		Profiles:    profileRepo,
		Stripe:      billing.NewStripeClient(stripeCreds),
		SeatPriceID: stripeCreds.SeatPriceID(),
		Logger:      logg,
	})
	exitOnError(logg, "billing service", err)

	platformService, err := platform.NewService(platform.ServiceParams{
		DB:        dbClient,
		Companies: companyRepo,
		Ledger:    pointsRepo,
		Logger:    logg,
	})
	exitOnError(logg, "platform service", err)

	webhookService, err := webhooks.NewStripeService(webhooks.StripeServiceParams{
		DB:        dbClient,
		Companies: companyRepo,
		Billing:   billingRepo,
		Creds:     stripeCreds,
		Idempot:   redisClient,
		Logger:    logg,
	})
	exitOnError(logg, "webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Sessions:    sessionManager,
			Auth:        authService,
			Companies:   companyService,
			Members:     memberService,
			Points:      pointsService,
			Rewards:     rewardService,
			Catalog:     catalogService,
			Redemptions: redemptionService,
			Billing:     billingService,
			Platform:    platformService,
			Stripe:      webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// providerClients builds the catalog fetchers and order checkers for every
// provider whose credentials are configured. Missing credentials disable the
// provider rather than failing startup.
func providerClients(logg *logger.Logger, cfg *config.Config) (map[enums.RewardProvider]catalog.ProductFetcher, map[enums.RewardProvider]redemptions.OrderChecker) {
	fetchers := map[enums.RewardProvider]catalog.ProductFetcher{}
	checkers := map[enums.RewardProvider]redemptions.OrderChecker{}

	if cfg.Goody.APIKey != "" {
		client, err := goody.NewClient(cfg.Goody)
		if err != nil {
			logg.Error(context.Background(), "failed to create goody client", err)
			os.Exit(1)
		}
		fetchers[enums.RewardProviderGoody] = &catalog.GoodyFetcher{Client: client}
		checkers[enums.RewardProviderGoody] = &redemptions.GoodyChecker{Client: client}
	} else {
		logg.Warn(context.Background(), "goody credentials not configured, provider disabled")
	}

	if cfg.Rye.APIKey != "" {
		client, err := rye.NewClient(cfg.Rye)
		if err != nil {
			logg.Error(context.Background(), "failed to create rye client", err)
			os.Exit(1)
		}
		fetchers[enums.RewardProviderRye] = &catalog.RyeFetcher{Client: client, Marketplace: rye.MarketplaceAmazon}
		checkers[enums.RewardProviderRye] = &redemptions.RyeChecker{Client: client}
	} else {
		logg.Warn(context.Background(), "rye credentials not configured, provider disabled")
	}

	return fetchers, checkers
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
