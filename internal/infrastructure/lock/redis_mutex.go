// Package lock implements ports.PerKeyMutex over Redis: a leased,
// token-guarded SET NX lock keyed by (wallet_id, credit_type_id).
//
// This is the external serialization point the orchestrator relies on
// in place of optimistic locking, since the balance arithmetic is not
// expressed as a conditional SQL update (see orchestrator.go). The
// lease bounds how long a crashed holder can wedge a key; the release
// token makes sure a caller can only unlock the key it actually
// acquired, not one a later holder took over after the lease expired.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/creditledger/ledger/internal/application/ports"
	domainerrors "github.com/creditledger/ledger/internal/domain/errors"
)

// Compile-time check
var _ ports.PerKeyMutex = (*RedisMutex)(nil)

// releaseScript deletes the key only if it still holds the token we
// set, so a lock we lost to lease expiry is never released out from
// under whoever acquired it next.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// RedisMutex is a ports.PerKeyMutex backed by a single Redis client.
type RedisMutex struct {
	client       *redis.Client
	lease        time.Duration
	acquireWait  time.Duration
	retryBackoff time.Duration
}

// Config configures a RedisMutex.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Lease        time.Duration
	AcquireWait  time.Duration
	RetryBackoff time.Duration
}

// NewRedisMutex builds a RedisMutex from a dedicated go-redis client.
func NewRedisMutex(client *redis.Client, cfg Config) *RedisMutex {
	lease := cfg.Lease
	if lease <= 0 {
		lease = 20 * time.Second
	}
	acquireWait := cfg.AcquireWait
	if acquireWait <= 0 {
		acquireWait = 5 * time.Second
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = 50 * time.Millisecond
	}
	return &RedisMutex{
		client:       client,
		lease:        lease,
		acquireWait:  acquireWait,
		retryBackoff: retryBackoff,
	}
}

// NewClient builds the go-redis client RedisMutex needs from raw
// connection settings, so callers don't need to import go-redis
// themselves just to wire this up.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// lockKey matches the original implementation's namespace verbatim:
// "balance_write_lock" joined with "{wallet_id}_{credit_type_id}".
func lockKey(walletID, creditTypeID uuid.UUID) string {
	return fmt.Sprintf("balance_write_lock%s_%s", walletID, creditTypeID)
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Acquire blocks, retrying on RetryBackoff intervals, until the lock is
// held or AcquireWait elapses (or ctx is cancelled first). On timeout
// it returns errors.NewBusy.
func (m *RedisMutex) Acquire(ctx context.Context, walletID, creditTypeID uuid.UUID) (func(context.Context) error, error) {
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}

	key := lockKey(walletID, creditTypeID)
	deadline := time.Now().Add(m.acquireWait)
	ticker := time.NewTicker(m.retryBackoff)
	defer ticker.Stop()

	for {
		ok, err := m.client.SetNX(ctx, key, token, m.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			release := func(releaseCtx context.Context) error {
				return releaseScript.Run(releaseCtx, m.client, []string{key}, token).Err()
			}
			return release, nil
		}

		if time.Now().After(deadline) {
			return nil, domainerrors.NewBusy(walletID.String(), creditTypeID.String())
		}

		select {
		case <-ctx.Done():
			return nil, domainerrors.NewBusy(walletID.String(), creditTypeID.String())
		case <-ticker.C:
		}
	}
}

// Ping verifies connectivity, used by the container's health check.
func (m *RedisMutex) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close releases the underlying Redis client.
func (m *RedisMutex) Close() error {
	return m.client.Close()
}
