package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ledgerworks/walletledger/internal/money"
)

const (
	cachePrefix   = "wallet:v1:"
	versionPrefix = "wallet:v1:gen:"
)

var errStaleSnapshot = errors.New("wallet snapshot is stale")

// Version is the invalidation generation of a wallet's cache entry. A
// snapshot read at one version is only stored while the version is unchanged.
type Version int64

// Cache serves display reads of wallets. It is never consulted when a
// transfer is committed.
type Cache interface {
	// Get returns the cached wallet if present, and the current version.
	Get(ctx context.Context, id int64) (Wallet, Version, bool, error)
	// Set stores w unless the wallet was invalidated after ver was read.
	Set(ctx context.Context, w Wallet, ver Version) error
	Invalidate(ctx context.Context, ids ...int64) error
}

type cachedWallet struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisCache stores wallet snapshots in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache builds a Redis-backed wallet cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(id int64) string {
	return cachePrefix + strconv.FormatInt(id, 10)
}

func versionKey(id int64) string {
	return versionPrefix + strconv.FormatInt(id, 10)
}

// Get returns the cached wallet, the wallet's cache version, and whether the
// snapshot was present.
func (c *RedisCache) Get(ctx context.Context, id int64) (Wallet, Version, bool, error) {
	pipe := c.client.Pipeline()
	snapshot := pipe.Get(ctx, cacheKey(id))
	version := pipe.Get(ctx, versionKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Wallet{}, 0, false, fmt.Errorf("redis get wallet %d: %w", id, err)
	}

	ver, err := version.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Wallet{}, 0, false, fmt.Errorf("decode cache version %d: %w", id, err)
	}
	raw, err := snapshot.Bytes()
	if errors.Is(err, redis.Nil) {
		return Wallet{}, Version(ver), false, nil
	}
	if err != nil {
		return Wallet{}, 0, false, fmt.Errorf("redis get wallet %d: %w", id, err)
	}

	var cw cachedWallet
	if err := json.Unmarshal(raw, &cw); err != nil {
		return Wallet{}, 0, false, fmt.Errorf("decode cached wallet %d: %w", id, err)
	}
	balance, err := decimal.NewFromString(cw.Balance)
	if err != nil {
		return Wallet{}, 0, false, fmt.Errorf("decode cached balance %d: %w", id, err)
	}
	return Wallet{
		ID:        cw.ID,
		UserID:    cw.UserID,
		Currency:  money.Currency(cw.Currency),
		Balance:   balance,
		CreatedAt: cw.CreatedAt,
	}, Version(ver), true, nil
}

// Set stores a wallet snapshot read at version ver. It is a no-op when the
// wallet was invalidated in the meantime.
func (c *RedisCache) Set(ctx context.Context, w Wallet, ver Version) error {
	payload, err := json.Marshal(cachedWallet{
		ID:        w.ID,
		UserID:    w.UserID,
		Currency:  string(w.Currency),
		Balance:   money.Format(w.Balance),
		CreatedAt: w.CreatedAt,
	})
	if err != nil {
		return err
	}

	vkey := versionKey(w.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if Version(current) != ver {
			return errStaleSnapshot
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(w.ID), payload, c.ttl)
			return nil
		})
		return err
	}, vkey)
	if errors.Is(err, errStaleSnapshot) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the snapshots of the given wallets and bumps their
// versions so in-flight reads do not store what they saw.
func (c *RedisCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, versionKey(id))
			pipe.Del(ctx, cacheKey(id))
		}
		return nil
	})
	return err
}
