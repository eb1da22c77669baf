package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-credit-ledger/config"
	chainAdapter "campus-credit-ledger/internal/adapter/chain"
	httpHandler "campus-credit-ledger/internal/adapter/http/handler"
	pgStorage "campus-credit-ledger/internal/adapter/storage/postgres"
	redisStorage "campus-credit-ledger/internal/adapter/storage/redis"
	"campus-credit-ledger/internal/core/ports"
	"campus-credit-ledger/internal/service"
	"campus-credit-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Campus Credit Ledger")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	rateRepo := pgStorage.NewRateRepo(pool)
	alertRepo := pgStorage.NewAlertRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	dedupCache := redisStorage.NewDedupCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	custodySvc, err := service.NewKeyCustodyService(cfg.Custody.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key custody service")
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	fraudEngine := service.NewFraudEngine(service.FraudConfig{
		LargeTxThreshold: cfg.Ledger.LargeTxThreshold,
		DailyCap:         cfg.Ledger.DailyCap,
		VelocityMax:      cfg.Ledger.VelocityMax,
		VelocityWindow:   cfg.Ledger.VelocityWindow,
		OutlierSigma:     cfg.Ledger.OutlierSigma,
		OutlierMinSample: cfg.Ledger.OutlierMinSample,
	})

	walletRegistry := service.NewWalletRegistry(walletRepo, custodySvc, transactor, cfg.Ledger.DailyCap, log)

	chainBridge := chainAdapter.NewClient(
		cfg.Chain.BaseURL,
		cfg.Chain.SigningSecret,
		&http.Client{Timeout: cfg.Chain.RequestTimeout},
		log,
	)

	ledgerSvc := service.NewLedgerService(
		walletRegistry,
		txRepo,
		alertRepo,
		fraudEngine,
		chainBridge,
		dedupCache,
		transactor,
		service.LedgerOptions{
			SingleTxCap:   cfg.Ledger.SingleTxCap,
			HistoryWindow: cfg.Ledger.HistoryWindow,
			Retry: service.RetryPolicy{
				MaxAttempts: cfg.Chain.MaxAttempts,
				BaseDelay:   cfg.Chain.BaseDelay,
				MaxDelay:    cfg.Chain.MaxDelay,
			},
		},
		log,
	)

	rateStore, err := service.NewRateStore(ctx, rateRepo, transactor, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exchange rates")
	}

	reconciler := service.NewReconciler(walletRepo, txRepo, alertRepo, chainBridge, transactor, cfg.Reconcile.Tolerance, log)

	// Background reconciliation and settlement loops
	go reconciler.Run(ctx, cfg.Reconcile.Interval)
	go ledgerSvc.RunSettlement(ctx, cfg.Reconcile.Interval)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		WalletRegistry: walletRegistry,
		RateStore:      rateStore,
		AlertRepo:      alertRepo,
		Reconciler:     reconciler,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
