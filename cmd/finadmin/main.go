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

	"github.com/boddenberg/finadmin-bfa-go/internal/config"
	"github.com/boddenberg/finadmin-bfa-go/internal/domain"
	"github.com/boddenberg/finadmin-bfa-go/internal/handler"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/cache"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/client"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/events"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/observability"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/finadmin-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/finadmin-bfa-go/internal/port"
	"github.com/boddenberg/finadmin-bfa-go/internal/service"

	"go.uber.org/zap"
)

// stores is the backend selected by LEDGER_SOURCE.
type stores struct {
	accounts port.AccountStore
	ledger   port.LedgerStore
	bills    port.BillStore
	close    func() error
}

func main() {
	// --- Load .env file (for local development) ---
	envErr := config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	// a missing .env is normal outside local development
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("could not load .env file", zap.Error(envErr))
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("ledger_source", cfg.LedgerSource),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("kafka_brokers", len(cfg.KafkaBrokers)),
		zap.Bool("auth_enabled", cfg.JWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finadmin-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Stores ---
	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open ledger source", zap.Error(err))
	}
	defer st.close()

	// --- Events ---
	var publisher port.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaBillsTopic, "bill.recorded", logger)
		defer kp.Close()
		publisher = kp
		logger.Info("bill events enabled", zap.String("topic", cfg.KafkaBillsTopic))
	} else {
		publisher = events.NewNopPublisher(logger)
		logger.Warn("KAFKA_BROKERS not set, bill events are not published")
	}

	// --- Cache ---
	entryCache := cache.New[[]domain.LedgerEntry](cfg.CacheTTL)
	defer entryCache.Close()

	// --- Services ---
	ledgerSvc := service.NewLedgerService(st.accounts, st.ledger, entryCache, metrics, logger)
	taxSvc := service.NewTaxService(metrics, logger)
	billSvc := service.NewBillService(st.bills, publisher, taxSvc, ledgerSvc, metrics, logger)

	var tokens *service.TokenValidator
	if cfg.JWTSecret != "" {
		tokens = service.NewTokenValidator(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, /v1 is served without authentication")
	}
	limiter := handler.NewClientLimiter(cfg.ResolveRateLimit, cfg.ResolveRateBurst)

	// --- Router ---
	router := handler.NewRouter(ledgerSvc, taxSvc, billSvc, tokens, limiter, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.LedgerSource == config.SourcePostgres {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := postgres.Open(ctx, postgres.Config{
			DSN:          cfg.DatabaseURL,
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
			QueryTimeout: cfg.HTTPTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres as ledger source")
		return &stores{accounts: db, ledger: db, bills: db, close: db.Close}, nil
	}

	logger.Info("using finance API as ledger source", zap.String("url", cfg.FinanceAPIURL))
	fc := client.NewFinanceClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.FinanceAPIURL,
		cfg.FinanceAPIKey,
		resilience.NewCircuitBreaker("finance-api", logger),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		logger,
	)
	return &stores{accounts: fc, ledger: fc, bills: fc, close: func() error { return nil }}, nil
}
