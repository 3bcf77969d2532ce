package processor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/processor/transform"
)

// SessionFlusher finalizes a session when its end signal arrives.
type SessionFlusher interface {
	FlushSession(ctx context.Context, sessionID string, endedAt time.Time) error
}

// EndSignals consumes the session-end topic. Trackers signal at least once;
// the flusher treats an already-flushed session as a no-op, so duplicates
// are harmless here.
type EndSignals struct {
	flusher SessionFlusher
}

func NewEndSignals(flusher SessionFlusher) *EndSignals {
	return &EndSignals{flusher: flusher}
}

func (e *EndSignals) Process(ctx context.Context, signal map[string]any) error {
	sessionID, endedAt, err := transform.EndSignal(signal)
	if err != nil {
		return err
	}

	if err := e.flusher.FlushSession(ctx, sessionID, endedAt); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to flush session")
		return err
	}
	return nil
}

func (e *EndSignals) Flush() {}
