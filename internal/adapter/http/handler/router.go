package handler

import (
	"campus-credit-ledger/internal/adapter/http/middleware"
	redisStore "campus-credit-ledger/internal/adapter/storage/redis"
	"campus-credit-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	WalletRegistry ports.WalletRegistry
	RateStore      ports.RateStore
	AlertRepo      ports.AlertRepository
	Reconciler     ports.Reconciler
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.AdminOnly()

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Wallet routes (JWT-authenticated) ---
	walletHandler := NewWalletHandler(deps.WalletRegistry)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.POST("", rl("wallets"), walletHandler.Provision)
		wallets.GET("/:id", rl("wallets"), walletHandler.GetWallet)
		wallets.GET("/:id/balance", rl("wallets"), walletHandler.GetBalance)
		wallets.GET("/:id/remaining-limit", rl("wallets"), walletHandler.GetRemainingLimit)
	}

	// --- Ledger routes (JWT-authenticated) ---
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.POST("/mint", adminOnly, rl("ledger_mint"), ledgerHandler.Mint)
		ledger.POST("/transfer", rl("ledger_transfer"), ledgerHandler.Transfer)
		ledger.POST("/burn", rl("ledger_burn"), ledgerHandler.Burn)
		ledger.GET("/transactions/:id", rl("wallets"), ledgerHandler.GetTransaction)
		ledger.POST("/transactions/:id/cancel", rl("ledger_transfer"), ledgerHandler.Cancel)
	}

	// --- Rate routes (JWT-authenticated) ---
	rateHandler := NewRateHandler(deps.RateStore)
	rates := v1.Group("/rates", jwtAuth)
	{
		rates.GET("/convert", rl("wallets"), rateHandler.Convert)
	}

	// --- Admin routes (JWT-authenticated, admin role) ---
	adminHandler := NewAdminHandler(deps.WalletRegistry, deps.RateStore, deps.AlertRepo, deps.Reconciler, deps.TokenSvc)
	admin := v1.Group("/admin", jwtAuth, adminOnly)
	{
		admin.PUT("/wallets/:id/status", rl("admin"), adminHandler.SetWalletStatus)
		admin.POST("/wallets/:id/reconcile", rl("admin"), adminHandler.ReconcileWallet)
		admin.GET("/rates", rl("admin"), adminHandler.GetRate)
		admin.POST("/rates", rl("admin"), adminHandler.SetRate)
		admin.GET("/alerts", rl("admin"), adminHandler.ListAlerts)
		admin.PUT("/alerts/:id", rl("admin"), adminHandler.UpdateAlert)
		admin.POST("/tokens", rl("admin"), adminHandler.IssueToken)
	}

	return r
}
