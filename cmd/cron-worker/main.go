package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/grattia/grattia-backend/internal/allocation"
	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/cron"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/internal/redemptions"
	"github.com/grattia/grattia-backend/internal/rewards"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/goody"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/metrics"
	"github.com/grattia/grattia-backend/pkg/migrate"
	"github.com/grattia/grattia-backend/pkg/redis"
	"github.com/grattia/grattia-backend/pkg/rye"
	pkgstripe "github.com/grattia/grattia-backend/pkg/stripe"
)

const lockKeyFormat = "gr:cron-worker:lock:%s"

func main() {
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

	stripeCreds, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to load stripe credentials", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	profileRepo := profiles.NewRepository(conn)
	companyRepo := companies.NewRepository(conn)
	pointsRepo := points.NewRepository(conn)
	rewardRepo := rewards.NewRepository(conn)
	redemptionRepo := redemptions.NewRepository(conn)
	billingRepo := billing.NewRepository(conn)

	allocationService, err := allocation.NewService(allocation.ServiceParams{
		DB:        dbClient,
		Repo:      allocation.NewRepository(conn),
		Companies: companyRepo,
		Profiles:  profileRepo,
		Ledger:    pointsRepo,
		Logger:    logg,
	})
	exitOnError(logg, "allocation service", err)

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

	redemptionService, err := redemptions.NewService(redemptions.ServiceParams{
		DB:       dbClient,
		Repo:     redemptionRepo,
		Rewards:  rewardRepo,
		Profiles: profileRepo,
		Ledger:   pointsRepo,
		Checkers: orderCheckers(logg, cfg),
		Logger:   logg,
	})
	exitOnError(logg, "redemption service", err)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(
		&cron.AllocationJob{Allocator: allocationService, Logger: logg},
		&cron.SeatReconcileJob{Billing: billingService, Companies: companyRepo, Logger: logg},
		&cron.RedemptionSyncJob{Redemptions: redemptionService, Logger: logg},
	)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	exitOnError(logg, "cron service", err)

	go serveMetrics(logg, cfg.Cron.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func orderCheckers(logg *logger.Logger, cfg *config.Config) map[enums.RewardProvider]redemptions.OrderChecker {
	checkers := map[enums.RewardProvider]redemptions.OrderChecker{}
	if cfg.Goody.APIKey != "" {
		client, err := goody.NewClient(cfg.Goody)
		if err != nil {
			logg.Error(context.Background(), "failed to create goody client", err)
			os.Exit(1)
		}
		checkers[enums.RewardProviderGoody] = &redemptions.GoodyChecker{Client: client}
	}
	if cfg.Rye.APIKey != "" {
		client, err := rye.NewClient(cfg.Rye)
		if err != nil {
			logg.Error(context.Background(), "failed to create rye client", err)
			os.Exit(1)
		}
		checkers[enums.RewardProviderRye] = &redemptions.RyeChecker{Client: client}
	}
	return checkers
}

func serveMetrics(logg *logger.Logger, port string) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
	}
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
