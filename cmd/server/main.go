package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mytheresa/storefront-pricing/app/catalog"
	"github.com/mytheresa/storefront-pricing/app/categories"
	"github.com/mytheresa/storefront-pricing/app/middleware"
	promotionsapp "github.com/mytheresa/storefront-pricing/app/promotions"
	"github.com/mytheresa/storefront-pricing/config"
	"github.com/mytheresa/storefront-pricing/metrics"
	"github.com/mytheresa/storefront-pricing/models"
	"github.com/mytheresa/storefront-pricing/pricing"
	"github.com/mytheresa/storefront-pricing/promotions"
	"github.com/mytheresa/storefront-pricing/tracing"
)

const serviceName = "storefront-pricing"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	log.Logger = logger
	ctx = logger.WithContext(ctx)

	tp, err := tracing.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	db, err := models.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	formatter, err := pricing.NewFormatter(cfg.Locale, cfg.Currency, pricing.SymbolPosition(cfg.SymbolPosition))
	if err != nil {
		return fmt.Errorf("configuring price formatter: %w", err)
	}

	var source pricing.Source
	switch cfg.PromotionsSource {
	case "db":
		source = promotions.NewDBSource(models.NewPromotionsRepository(db))
	default:
		source = promotions.NewHTTPSource(cfg.PromotionsURL, cfg.PromotionsTimeout, nil)
	}

	var cache *promotions.RedisCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = promotions.NewRedisCache(rdb, source, promotions.DefaultCacheKey, cfg.RedisTTL)
		source = cache
		logger.Info().Str("addr", cfg.RedisAddr).Msg("sharing promotions through redis")
	}

	repo := pricing.NewRepository(source, pricing.WithLogger(logger.With().Str("component", "promotions").Logger()))
	pricer := pricing.NewPricer(repo, formatter, nil)

	// Views render base prices until the first load lands.
	go func() {
		if err := pricer.Load(ctx); err != nil {
			logger.Warn().Err(err).Msg("no promotions active: initial load failed")
		}
	}()
	go repo.Run(ctx, cfg.PromotionsRefreshInterval)

	if len(cfg.KafkaBrokers) > 0 {
		opts := []promotions.RefresherOption{
			promotions.WithRefresherLogger(logger.With().Str("component", "refresher").Logger()),
		}
		if cache != nil {
			opts = append(opts, promotions.WithInvalidator(cache))
		}
		refresher := promotions.NewRefresher(
			promotions.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID),
			pricer,
			opts...,
		)
		defer refresher.Close()
		go func() {
			if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("promotion refresher stopped")
			}
		}()
	}

	// Initialize handlers
	catHandler := catalog.NewCatalogHandler(models.NewProductsRepository(db), pricer)
	categoryHandler := categories.NewCategoryHandler(models.NewCategoriesRepository(db))
	promoHandler := promotionsapp.NewPromotionsHandler(pricer)

	// Set up routing
	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog", catHandler.HandleGet)
	mux.HandleFunc("GET /catalog/{code}", catHandler.HandleGetProduct)
	mux.HandleFunc("GET /offers", catHandler.HandleOffers)
	mux.HandleFunc("GET /categories", categoryHandler.HandleGetAll)
	mux.HandleFunc("POST /categories", categoryHandler.HandleCreate)
	mux.HandleFunc("GET /promotions", promoHandler.HandleGet)
	mux.HandleFunc("POST /promotions/reload", promoHandler.HandleReload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.Logger(logger), middleware.Metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", serviceName).Logger()
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", serviceName).Logger()
}
