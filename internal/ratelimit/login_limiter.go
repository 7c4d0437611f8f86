package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/blogkit/blog-service/pkg/util"
)

const keyPrefix = "login_attempts:"

// LoginLimiter throttles failed login attempts per identifier using a
// fixed window counter in Redis. Redis outages fail open: login still works,
// only the throttle is lost.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLoginLimiter builds a limiter. A nil client disables throttling.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// Allow returns a rate-limited error once the identifier has exhausted its
// failed attempts for the current window.
func (l *LoginLimiter) Allow(ctx context.Context, identifier string) error {
	if l == nil || l.client == nil {
		return nil
	}
	count, err := l.client.Get(ctx, keyPrefix+identifier).Int()
	if err != nil {
		return nil
	}
	if count >= l.maxAttempts {
		return apperrors.NewRateLimited("too many login attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed attempt, starting the window on the first.
func (l *LoginLimiter) RecordFailure(ctx context.Context, identifier string) {
	if l == nil || l.client == nil {
		return
	}
	key := keyPrefix + identifier
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	_, _ = pipe.Exec(ctx)
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) {
	if l == nil || l.client == nil {
		return
	}
	_ = l.client.Del(ctx, keyPrefix+identifier).Err()
}
