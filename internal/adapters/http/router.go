// Package http - Router configuration for the ledger REST API.
//
// Router assembles all handlers and middleware into a single entry point.
//
// Pattern: Composition Root
// - every dependency is wired here
// - handlers only receive the ports/orchestrator they need
// - middleware is applied to the matching route groups
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creditledger/ledger/internal/adapters/http/common"
	"github.com/creditledger/ledger/internal/adapters/http/handlers"
	"github.com/creditledger/ledger/internal/adapters/http/middleware"
	"github.com/creditledger/ledger/internal/application/orchestrator"
	"github.com/creditledger/ledger/internal/application/ports"
)

// RouterConfig - router configuration.
type RouterConfig struct {
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Version        string
	BuildTime      string
	Environment    string
	AllowedOrigins []string
	// Issuer configures how the caller identity stamped on
	// transactions is derived from the request.
	Issuer middleware.IssuerConfig
}

// DefaultRouterConfig - default configuration for development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:         slog.Default(),
		Version:        "dev",
		BuildTime:      "unknown",
		Environment:    "development",
		AllowedOrigins: []string{"*"},
		Issuer:         middleware.IssuerConfig{DefaultIssuer: "unknown"},
	}
}

// Dependencies bundles the ports and orchestrator the router wires
// into handlers. Any field may be nil; RouterBuilder does not
// register a resource group whose dependencies it wasn't given.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Wallets      ports.WalletRepository
	Balances     ports.BalanceStore
	Transactions ports.TransactionStore
	CreditTypes  ports.CreditTypeRepository
}

// RouterBuilder - builder for constructing the router.
//
// Pattern: Builder
// - lets the router be configured step by step
// - easier to test
// - configuration pieces can be reused
type RouterBuilder struct {
	config *RouterConfig
	deps   *Dependencies
}

// NewRouterBuilder creates a new builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{config: config}
}

// WithDependencies attaches the ports and orchestrator used by
// handlers.
func (b *RouterBuilder) WithDependencies(deps *Dependencies) *RouterBuilder {
	b.deps = deps
	return b
}

// Build creates the configured Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	handlers.SetupValidator()

	// ============================================
	// Global Middleware
	// ============================================

	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	router.Use(middleware.RequestID())

	if b.config.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(b.config.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/live", "/ready", "/metrics"},
	}))

	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	router.Use(middleware.Metrics())

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(b.config.Pool, b.config.Version, b.config.BuildTime)
	healthHandler.RegisterRoutes(router)

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/api/v1")
	v1.Use(middleware.IssuerExtractor(b.config.Issuer))

	if b.deps != nil {
		if b.deps.CreditTypes != nil {
			handlers.NewCreditTypeHandler(b.deps.CreditTypes).RegisterRoutes(v1)
		}

		if b.deps.Orchestrator != nil && b.deps.Wallets != nil && b.deps.Balances != nil {
			walletHandler := handlers.NewWalletHandler(b.deps.Orchestrator, b.deps.Wallets, b.deps.Balances)

			financialOps := v1.Group("")
			financialOps.Use(middleware.TransactionRateLimit())
			walletHandler.RegisterRoutes(financialOps)
		}

		if b.deps.Transactions != nil {
			handlers.NewTransactionHandler(b.deps.Transactions).RegisterRoutes(v1)
		}
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, 404, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}

// NewRouter creates a router with the given configuration.
func NewRouter(config *RouterConfig, deps *Dependencies) *gin.Engine {
	return NewRouterBuilder(config).WithDependencies(deps).Build()
}
