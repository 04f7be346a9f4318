package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SignInThrottle counts failed sign-ins per email in Redis.
// Key format: signin:failures:<email>
type SignInThrottle struct {
	client *redis.Client
}

func NewSignInThrottle(client *redis.Client) *SignInThrottle {
	return &SignInThrottle{client: client}
}

func (t *SignInThrottle) Failures(ctx context.Context, key string) (int, error) {
	n, err := t.client.Get(ctx, t.key(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("throttle read: %w", err)
	}
	return n, nil
}

// RecordFailure increments the counter. The expiry is only set by the first
// failure so the window does not slide on every attempt.
func (t *SignInThrottle) RecordFailure(ctx context.Context, key string, window time.Duration) error {
	k := t.key(key)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

func (t *SignInThrottle) Reset(ctx context.Context, key string) error {
	return t.client.Del(ctx, t.key(key)).Err()
}

func (t *SignInThrottle) key(email string) string {
	return "signin:failures:" + strings.ToLower(email)
}

// TokenRevoker keeps revoked token ids until the token would have expired.
// Key format: revoked:<jti>
type TokenRevoker struct {
	client *redis.Client
}

func NewTokenRevoker(client *redis.Client) *TokenRevoker {
	return &TokenRevoker{client: client}
}

func (r *TokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(tokenID), "1", ttl).Err()
}

func (r *TokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (r *TokenRevoker) key(tokenID string) string {
	return "revoked:" + tokenID
}
