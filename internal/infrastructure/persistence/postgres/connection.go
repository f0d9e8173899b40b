// Package postgres implements the persistence layer on top of PostgreSQL.
//
// SOLID Principles:
// - SRP: each file owns one entity
// - DIP: implements the interfaces declared in ports, no dependency on the
//   application layer
// - OCP: new methods are added without touching existing ones
//
// Patterns:
// - Repository Pattern: abstracts data access
// - Unit of Work: manages transaction boundaries
// - Connection Pool: reuses connections efficiently
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host            string        // DB host (e.g., "localhost")
	Port            int           // DB port (e.g., 5432)
	Database        string        // Database name
	User            string        // Username
	Password        string        // Password
	SSLMode         string        // SSL mode (disable, require, verify-full)
	MaxConns        int32         // Max connections in the pool
	MinConns        int32         // Min connections in the pool
	MaxConnLifetime time.Duration // Max connection lifetime
	MaxConnIdleTime time.Duration // Max connection idle time
	ConnectTimeout  time.Duration // Connect timeout
}

// DefaultConfig returns a sane development configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "creditledger",
		User:            "postgres",
		Password:        "postgres",
		SSLMode:         "disable",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// ConnectionString builds a PostgreSQL DSN from the configuration.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d",
		c.Host,
		c.Port,
		c.Database,
		c.User,
		c.Password,
		c.SSLMode,
		int(c.ConnectTimeout.Seconds()),
	)
}

// NewConnectionPool creates a PostgreSQL connection pool.
//
// Returns:
// - *pgxpool.Pool: a thread-safe connection pool
// - error: connection error
//
// The pool automatically:
// - manages connections (creates/closes as needed)
// - reuses connections (connection pooling)
// - checks connection health
// - reconnects on lost connectivity
//
// Example:
//
//	pool, err := NewConnectionPool(ctx, DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewConnectionPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// HealthCheck checks the health of the database connection.
// Used for Kubernetes readiness/liveness probes.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return pool.Ping(ctx)
}

// PoolStats reports connection pool statistics.
// Useful for monitoring and dashboards.
type PoolStats struct {
	TotalConns      int32 // Total connections
	IdleConns       int32 // Idle connections
	AcquiredConns   int32 // Connections in use
	MaxConns        int32 // Max connections
	AcquireCount    int64 // Number of times a connection was requested
	AcquireDuration int64 // Total time spent waiting for connections (ns)
}

// GetPoolStats returns the current pool statistics.
func GetPoolStats(pool *pgxpool.Pool) PoolStats {
	stat := pool.Stat()
	return PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().Nanoseconds(),
	}
}
