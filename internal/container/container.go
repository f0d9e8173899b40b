// Package container - Dependency Injection container for the application.
//
// Container manages the lifecycle of every dependency:
// - creation (all at once, in Initialize)
// - access (getters)
// - teardown (cleanup)
//
// Pattern: Composition Root
// - every dependency is assembled in one place
// - easy to test
// - easy to swap implementations
package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/jackc/pgx/v5/pgxpool"

	libhttp "github.com/creditledger/ledger/internal/adapters/http"
	"github.com/creditledger/ledger/internal/adapters/http/middleware"
	"github.com/creditledger/ledger/internal/application/orchestrator"
	"github.com/creditledger/ledger/internal/application/ports"
	"github.com/creditledger/ledger/internal/config"
	"github.com/creditledger/ledger/internal/infrastructure/events"
	"github.com/creditledger/ledger/internal/infrastructure/lock"
	"github.com/creditledger/ledger/internal/infrastructure/persistence/postgres"
)

// Container - the application's DI container.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool       *pgxpool.Pool
	redis      *redis.Client
	natsConn   *nats.Conn
	mutex      *lock.RedisMutex
	publisher  *events.NATSPublisher
	flusher    *events.Flusher
	flusherCancel context.CancelFunc

	// Repositories / stores
	walletRepo     ports.WalletRepository
	creditTypeRepo ports.CreditTypeRepository
	balanceStore   ports.BalanceStore
	transactionRepo ports.TransactionStore
	outboxRepo     *postgres.OutboxRepository

	// Unit of Work
	uow ports.UnitOfWork

	// Orchestrator
	orchestrator *orchestrator.Orchestrator

	// HTTP
	httpServer *libhttp.Server
}

// New creates a new container with the given configuration.
func New(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Initialize wires up every dependency.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = c.initLogger()
	c.logger.Info("Initializing application container...")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database connected")

	if err := c.initLock(ctx); err != nil {
		return fmt.Errorf("failed to initialize lock: %w", err)
	}
	c.logger.Info("Redis lock client connected")

	c.initRepositories()
	c.logger.Info("Repositories initialized")

	if err := c.initEvents(ctx); err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}
	c.logger.Info("Event publisher and outbox flusher started")

	c.initOrchestrator()
	c.logger.Info("Orchestrator initialized")

	c.initHTTPServer()
	c.logger.Info("HTTP server initialized")

	c.logger.Info("Container initialization complete")
	return nil
}

// initLogger sets up the structured logger.
func (c *Container) initLogger() *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch c.config.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: c.config.App.Debug,
	}

	if c.config.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// initDatabase opens the database connection pool.
func (c *Container) initDatabase(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(c.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = c.config.Database.MaxConnections
	poolConfig.MinConns = c.config.Database.MinConnections
	poolConfig.MaxConnLifetime = c.config.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.config.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.pool = pool
	return nil
}

// initLock sets up the Redis-backed per-key mutex.
func (c *Container) initLock(ctx context.Context) error {
	lockCfg := lock.Config{
		Addr:         c.config.Lock.Addr,
		Password:     c.config.Lock.Password,
		DB:           c.config.Lock.DB,
		Lease:        c.config.Lock.Lease,
		AcquireWait:  c.config.Lock.AcquireWait,
		RetryBackoff: c.config.Lock.RetryBackoff,
	}

	c.redis = lock.NewClient(lockCfg)
	c.mutex = lock.NewRedisMutex(c.redis, lockCfg)

	if err := c.mutex.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// initRepositories wires up the repositories and stores.
func (c *Container) initRepositories() {
	c.walletRepo = postgres.NewWalletRepository(c.pool)
	c.creditTypeRepo = postgres.NewCreditTypeRepository(c.pool)
	c.balanceStore = postgres.NewBalanceStore(c.pool)
	c.transactionRepo = postgres.NewTransactionRepository(c.pool)
	c.outboxRepo = postgres.NewOutboxRepository(c.pool)

	c.uow = postgres.NewUnitOfWork(c.pool)
}

// initEvents wires up the NATS publisher and starts the background
// outbox flusher, which continuously drains events written to the DB
// onto their NATS subjects.
func (c *Container) initEvents(ctx context.Context) error {
	conn, err := events.Connect(c.config.Events.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	c.natsConn = conn
	c.publisher = events.NewNATSPublisher(conn, c.config.Events.SubjectPrefix)

	c.flusher = events.NewFlusher(
		c.outboxRepo,
		c.publisher,
		c.config.Events.FlushInterval,
		c.config.Events.FlushBatchSize,
		c.logger,
	)

	flusherCtx, cancel := context.WithCancel(context.Background())
	c.flusherCancel = cancel
	go c.flusher.Run(flusherCtx)

	_ = ctx
	return nil
}

// initOrchestrator assembles the Orchestrator from already-built dependencies.
func (c *Container) initOrchestrator() {
	c.orchestrator = orchestrator.New(
		c.transactionRepo,
		c.balanceStore,
		c.mutex,
		c.uow,
		c.outboxRepo,
		c.logger,
	)
}

// initHTTPServer sets up the HTTP server.
func (c *Container) initHTTPServer() {
	routerConfig := &libhttp.RouterConfig{
		Logger:         c.logger,
		Pool:           c.pool,
		Version:        c.config.App.Version,
		BuildTime:      c.config.App.BuildTime,
		Environment:    c.config.App.Environment,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		Issuer: middleware.IssuerConfig{
			HeaderName:    c.config.Auth.HeaderName,
			JWTSecret:     c.config.Auth.JWTSecret,
			DefaultIssuer: c.config.Auth.DefaultIssuer,
			RequireIssuer: c.config.Auth.RequireIssuer,
		},
	}

	router := libhttp.NewRouter(routerConfig, &libhttp.Dependencies{
		Orchestrator: c.orchestrator,
		Wallets:      c.walletRepo,
		Balances:     c.balanceStore,
		Transactions: c.transactionRepo,
		CreditTypes:  c.creditTypeRepo,
	})

	serverConfig := &libhttp.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            fmt.Sprintf("%d", c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}

	c.httpServer = libhttp.NewServer(serverConfig, router)
}

// ============================================
// Getters
// ============================================

func (c *Container) Config() *config.Config { return c.config }
func (c *Container) Logger() *slog.Logger   { return c.logger }
func (c *Container) Pool() *pgxpool.Pool    { return c.pool }
func (c *Container) HTTPServer() *libhttp.Server { return c.httpServer }

func (c *Container) WalletRepository() ports.WalletRepository         { return c.walletRepo }
func (c *Container) CreditTypeRepository() ports.CreditTypeRepository { return c.creditTypeRepo }
func (c *Container) BalanceStore() ports.BalanceStore                 { return c.balanceStore }
func (c *Container) TransactionStore() ports.TransactionStore         { return c.transactionRepo }
func (c *Container) UnitOfWork() ports.UnitOfWork                     { return c.uow }
func (c *Container) Orchestrator() *orchestrator.Orchestrator         { return c.orchestrator }

// ============================================
// Shutdown
// ============================================

// Shutdown gracefully tears down every component.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	var errs []error

	if c.flusherCancel != nil {
		c.flusherCancel()
	}

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	if c.natsConn != nil {
		c.natsConn.Close()
	}

	if c.mutex != nil {
		if err := c.mutex.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis client close: %w", err))
		}
	}

	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("Database connection closed")
		case <-ctx.Done():
			c.logger.Warn("Database close timeout")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// ============================================
// Run
// ============================================

// Run starts the application and waits for a shutdown signal.
func (c *Container) Run() error {
	c.logger.Info("Starting credit ledger API server",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	return c.httpServer.Run()
}

// ============================================
// Health Check
// ============================================

// HealthStatus - application health status.
type HealthStatus struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  time.Duration     `json:"uptime"`
	Checks  map[string]string `json:"checks"`
}

// Health returns the application's health status.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:  "healthy",
		Version: c.config.App.Version,
		Checks:  make(map[string]string),
	}

	if err := c.pool.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Checks["database"] = "error: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if err := c.mutex.Ping(ctx); err != nil {
		status.Status = "unhealthy"
		status.Checks["redis"] = "error: " + err.Error()
	} else {
		status.Checks["redis"] = "ok"
	}

	return status
}
