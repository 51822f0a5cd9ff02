package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campuslost/lostfound/internal/store"
)

// Revoker tracks logged-out tokens by JTI until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SQLiteRevoker keeps revocations in the revoked_tokens table.
type SQLiteRevoker struct {
	DB *sql.DB
}

func (r *SQLiteRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	return store.RevokeToken(ctx, r.DB, jti, expiresAt)
}

func (r *SQLiteRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return store.IsTokenRevoked(ctx, r.DB, jti, time.Now())
}

// Purge drops revocations of tokens that have expired.
func (r *SQLiteRevoker) Purge(ctx context.Context) (int64, error) {
	return store.PurgeExpiredTokens(ctx, r.DB, time.Now())
}

// RedisRevoker keeps revocations as Redis keys that expire with the token.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker connects to Redis and verifies the connection.
func NewRedisRevoker(addr, password string, db int) (*RedisRevoker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisRevoker{client: rdb, prefix: "lostfound:revoked:"}, nil
}

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return n > 0, nil
}

// Close releases the Redis connection pool.
func (r *RedisRevoker) Close() error {
	return r.client.Close()
}
