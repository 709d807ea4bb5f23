package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/harborline/payments-core/api/routes"
	"github.com/harborline/payments-core/internal/gateway"
	"github.com/harborline/payments-core/internal/payments"
	"github.com/harborline/payments-core/internal/provider/squarepay"
	"github.com/harborline/payments-core/internal/provider/systempay"
	"github.com/harborline/payments-core/internal/registry"
	"github.com/harborline/payments-core/pkg/config"
	"github.com/harborline/payments-core/pkg/db"
	"github.com/harborline/payments-core/pkg/logger"
	"github.com/harborline/payments-core/pkg/metrics"
	"github.com/harborline/payments-core/pkg/migrate"
	"github.com/harborline/payments-core/pkg/outbox"
	"github.com/harborline/payments-core/pkg/redis"
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

	var redisClient *redis.Client
	locker := payments.CollectionLocker(payments.NoopLocker{})
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		locker = payments.NewRedisLocker(redisClient)
	} else {
		logg.Warn(context.Background(), "redis not configured, collection locking degrades to CAS retries")
	}

	providerRegistry, err := buildProviderRegistry(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to register payment providers", err)
		os.Exit(1)
	}

	providerRepo := registry.NewRepository(dbClient.DB())
	syncer, err := registry.NewSyncer(providerRegistry, providerRepo, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider syncer", err)
		os.Exit(1)
	}
	if err := syncer.Sync(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to sync provider registry", err)
		os.Exit(1)
	}

	metricsRegistry := prometheus.NewRegistry()
	providerMetrics := metrics.NewProviderCallMetrics(metricsRegistry)

	providerGateway, err := gateway.New(providerRegistry, providerMetrics, logg, cfg.Providers.CallTimeout)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider gateway", err)
		os.Exit(1)
	}

	eventEmitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	paymentService, err := payments.NewService(
		dbClient,
		payments.NewRepository(dbClient.DB()),
		providerGateway,
		eventEmitter,
		locker,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"providers": providerRegistry.Identifiers(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			paymentService,
			providerRepo,
			metricsRegistry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildProviderRegistry(cfg *config.Config, logg *logger.Logger) (*registry.Registry, error) {
	reg := registry.New()
	for _, id := range cfg.Providers.Enabled {
		switch id {
		case systempay.Identifier:
			if err := reg.Register(systempay.New()); err != nil {
				return nil, err
			}
		case squarepay.Identifier:
			sq, err := squarepay.New(cfg.Square, logg)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(sq); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown payment provider %q", id)
		}
	}
	return reg, nil
}
