package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mishafoods/storefront-backend/api/routes"
	cartsvc "github.com/mishafoods/storefront-backend/internal/cart"
	"github.com/mishafoods/storefront-backend/internal/catalog"
	"github.com/mishafoods/storefront-backend/internal/checkout"
	"github.com/mishafoods/storefront-backend/internal/pricing"
	"github.com/mishafoods/storefront-backend/pkg/config"
	"github.com/mishafoods/storefront-backend/pkg/events"
	"github.com/mishafoods/storefront-backend/pkg/kv"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/metrics"
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

	cat, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		logg.Error(context.Background(), "failed to load product catalog", err)
		os.Exit(1)
	}

	policy, err := pricing.FromConfig(cfg.Pricing, cfg.Delivery)
	if err != nil {
		logg.Error(context.Background(), "failed to build pricing policy", err)
		os.Exit(1)
	}

	var (
		store kv.Store
		bus   events.Bus
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		redisStore, err := kv.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		store = redisStore
		bus = events.NewRedisBus(redisStore.Raw(), cfg.Sync.Channel, logg)
	case config.StorageBackendSQLite:
		sqliteStore, err := kv.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap sqlite", err)
			os.Exit(1)
		}
		store = sqliteStore
		bus = events.NewMemoryBus()
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logg.Error(context.Background(), "error closing event bus", err)
		}
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	prom := prometheus.NewRegistry()
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(prom)

	registry, err := cartsvc.NewRegistry(cartsvc.RegistryParams{
		KV:          store,
		Bus:         bus,
		Catalog:     cat,
		Policy:      policy,
		Region:      pricing.ParseRegion(cfg.Delivery.DefaultRegion),
		BaseKey:     cfg.Cart.StorageKey,
		BackupKeep:  cfg.Cart.BackupKeep,
		Logger:      logg,
		Metrics:     cartMetrics,
		WarnOnClamp: cfg.Cart.WarnOnClamp,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart registry", err)
		os.Exit(1)
	}
	defer registry.Shutdown()

	builder, err := checkout.NewBuilder(cfg.Checkout.WhatsAppNumber)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout builder", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"backend":  cfg.Storage.Backend,
		"products": cat.Len(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, store, registry, cat, builder, prom),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
