// Package validation checks incoming tracker payloads and applies per-app
// rate limiting backed by Redis counters.
package validation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modernmarket/telemetry/internal/config"
)

type Validator struct {
	redis *redis.Client
	limit int
}

// New creates a validator. An empty Redis address disables rate limiting;
// validation still applies.
func New(redisCfg config.RedisConfig, rateCfg config.RateLimitConfig) *Validator {
	var rdb *redis.Client
	if redisCfg.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
	}
	return &Validator{
		redis: rdb,
		limit: rateCfg.RequestsPerSecond,
	}
}

// ValidateEvent checks the fields every tracker envelope must carry. The
// event_data payload itself is free form and not inspected.
func (v *Validator) ValidateEvent(event map[string]any) error {
	for _, field := range []string{"session_id", "app_type", "event_type"} {
		s, _ := event[field].(string)
		if s == "" {
			return errors.New("missing required field: " + field)
		}
	}
	return nil
}

// ValidateEndSignal checks a session-end payload.
func (v *Validator) ValidateEndSignal(signal map[string]any) error {
	if s, _ := signal["session_id"].(string); s == "" {
		return errors.New("missing required field: session_id")
	}
	return nil
}

// CheckRateLimit returns false when appType+clientIP exceeded the per-second
// budget. Redis errors and a disabled limiter both allow the request; the
// collector never drops telemetry because its own infrastructure wobbled.
func (v *Validator) CheckRateLimit(appType, clientIP string) bool {
	if v.redis == nil {
		return true
	}

	ctx := context.Background()
	key := "ratelimit:" + appType + ":" + clientIP

	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		v.redis.Expire(ctx, key, time.Second)
	}

	return count <= int64(v.limit)
}

func (v *Validator) Close() {
	if v.redis != nil {
		v.redis.Close()
	}
}
