// Package sessions aggregates per-session counters in Redis while a session
// is live and flushes them to ClickHouse when the tracker signals its end.
package sessions

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/config"
	"github.com/modernmarket/telemetry/internal/processor/storage"
)

// sessionTTL bounds how long an abandoned session lingers in Redis when no
// end signal ever arrives.
const sessionTTL = time.Hour

// SessionStore persists finished sessions.
type SessionStore interface {
	UpsertSession(ctx context.Context, session storage.SessionRow) error
}

type Aggregator struct {
	store SessionStore
	redis *redis.Client
}

func NewAggregator(store SessionStore, redisCfg config.RedisConfig) *Aggregator {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	return &Aggregator{store: store, redis: rdb}
}

// UpdateSession folds one event into the session's Redis hash.
func (a *Aggregator) UpdateSession(ctx context.Context, event storage.EventRow) error {
	if a.redis == nil {
		return nil
	}

	key := "session:" + event.SessionID
	pipe := a.redis.Pipeline()

	pipe.HSet(ctx, key, "last_seen", event.Timestamp.UnixMilli())
	pipe.HIncrBy(ctx, key, "events_count", 1)

	switch event.EventType {
	case "page_view":
		pipe.HIncrBy(ctx, key, "page_views", 1)
		pipe.HSetNX(ctx, key, "entry_page", event.PageURL)
		pipe.HSet(ctx, key, "exit_page", event.PageURL)
	case "add_to_cart":
		pipe.HIncrBy(ctx, key, "cart_adds", 1)
	case "purchase":
		pipe.HIncrBy(ctx, key, "purchases", 1)
	}

	pipe.HSetNX(ctx, key, "app_type", event.AppType)
	pipe.HSetNX(ctx, key, "started_at", event.Timestamp.UnixMilli())
	if event.UserID != "" {
		pipe.HSet(ctx, key, "user_id", event.UserID)
	}

	pipe.Expire(ctx, key, sessionTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Error().Err(err).Str("session_id", event.SessionID).Msg("Failed to update session in Redis")
	}
	return err
}

// FlushSession writes the aggregated session to ClickHouse and removes it
// from Redis. A session whose key is already gone is a no-op, which is what
// makes the tracker's at-least-once end signaling safe: the first signal
// flushes, the rest fall through here.
func (a *Aggregator) FlushSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	if a.redis == nil || a.store == nil {
		return nil
	}

	key := "session:" + sessionID
	data, err := a.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	session := parseSessionData(sessionID, data, endedAt)
	if err := a.store.UpsertSession(ctx, session); err != nil {
		return err
	}

	a.redis.Del(ctx, key)
	return nil
}

// parseSessionData builds a SessionRow from the raw Redis hash.
func parseSessionData(sessionID string, data map[string]string, endedAt time.Time) storage.SessionRow {
	session := storage.SessionRow{
		SessionID: sessionID,
		EndedAt:   endedAt,
	}

	session.AppType = data["app_type"]
	session.UserID = data["user_id"]
	session.EntryPage = data["entry_page"]
	session.ExitPage = data["exit_page"]

	if v, ok := data["started_at"]; ok {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			session.StartedAt = time.UnixMilli(ms)
		}
	}
	if session.EndedAt.IsZero() {
		if v, ok := data["last_seen"]; ok {
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
				session.EndedAt = time.UnixMilli(ms)
			}
		}
	}
	if !session.StartedAt.IsZero() && session.EndedAt.After(session.StartedAt) {
		session.DurationMs = uint64(session.EndedAt.Sub(session.StartedAt).Milliseconds())
	}

	if v, ok := data["page_views"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			session.PageViews = uint32(n)
		}
	}
	if v, ok := data["events_count"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			session.EventsCount = uint32(n)
		}
	}
	if v, ok := data["cart_adds"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			session.CartAdds = uint32(n)
		}
	}
	if v, ok := data["purchases"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			session.Purchases = uint32(n)
		}
	}

	if session.PageViews <= 1 {
		session.IsBounced = 1
	}

	return session
}

// FlushAllSessions flushes every pending session, used on shutdown.
func (a *Aggregator) FlushAllSessions(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}

	keys, err := a.redis.Keys(ctx, "session:*").Result()
	if err != nil {
		return err
	}

	for _, key := range keys {
		sessionID := key[len("session:"):]
		if err := a.FlushSession(ctx, sessionID, time.Time{}); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to flush session")
		}
	}

	return nil
}

func (a *Aggregator) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
