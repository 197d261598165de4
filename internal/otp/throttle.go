// AngelaMos | 2026
// throttle.go

package otp

import (
	"context"
	"fmt"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/diplomate/backend/internal/config"
	"github.com/diplomate/backend/internal/core"
)

// Throttle gates how often a single email may be issued a code: a short
// resend cooldown plus an hourly ceiling. Keyed by email rather than IP
// because the abuse vector is mailbox flooding, not request volume.
type Throttle interface {
	Allow(ctx context.Context, email string) error
}

type redisThrottle struct {
	rdb     *redis.Client
	limiter *redis_rate.Limiter
	cfg     config.OTPConfig
}

func NewRedisThrottle(rdb *redis.Client, cfg config.OTPConfig) Throttle {
	return &redisThrottle{
		rdb:     rdb,
		limiter: redis_rate.NewLimiter(rdb),
		cfg:     cfg,
	}
}

func (t *redisThrottle) Allow(ctx context.Context, email string) error {
	cooldownKey := "otp:cooldown:" + email

	ok, err := t.rdb.SetNX(ctx, cooldownKey, 1, t.cfg.ResendCooldown).Result()
	if err != nil {
		return fmt.Errorf("otp cooldown check: %w", err)
	}
	if !ok {
		ttl, ttlErr := t.rdb.TTL(ctx, cooldownKey).Result()
		if ttlErr != nil || ttl < 0 {
			ttl = t.cfg.ResendCooldown
		}
		return core.NewAppError(
			core.ErrInvalidInput,
			fmt.Sprintf(
				"please wait %d seconds before requesting another code",
				int(ttl.Seconds())+1,
			),
			429,
			"OTP_COOLDOWN",
		)
	}

	res, err := t.limiter.Allow(ctx, "otp:issue:"+email, redis_rate.Limit{
		Rate:   t.cfg.IssuePerHour,
		Burst:  t.cfg.IssuePerHour,
		Period: time.Hour,
	})
	if err != nil {
		return fmt.Errorf("otp issue limit check: %w", err)
	}
	if res.Allowed == 0 {
		return core.NewAppError(
			core.ErrInvalidInput,
			"too many codes requested for this email, try again later",
			429,
			"OTP_RATE_LIMITED",
		)
	}

	return nil
}
