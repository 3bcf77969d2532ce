// Package tracker is the Modern Market Connect telemetry SDK. It records
// user-interaction events against the collector service, tagged with a
// per-page-load session, without ever blocking or failing the host
// application: delivery is fire and forget, losses are logged and dropped.
package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultCollectorURL is used when no collector is configured.
const DefaultCollectorURL = "https://api.modernmarket.app/analytics"

// storageKeyUserID is the client-storage key holding the persisted user id.
const storageKeyUserID = "userId"

// State is the tracker lifecycle state.
type State int

const (
	// Active is the state from construction until the first end signal.
	Active State = iota
	// Ended is entered on the first unload/hidden signal and never left.
	// It does not suppress further end signals: the collector receives one
	// session-end post per signal, at least once overall.
	Ended
)

// Tracker records telemetry for one page-load session. Construct one per
// application instance with New; a fresh instance means a fresh session.
type Tracker struct {
	appType      string
	collectorURL string
	sessionID    string
	env          Environment
	client       *http.Client
	logger       zerolog.Logger

	mu     sync.Mutex
	userID *string
	state  State

	inFlight sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithCollectorURL overrides DefaultCollectorURL.
func WithCollectorURL(url string) Option {
	return func(t *Tracker) { t.collectorURL = url }
}

// WithHTTPClient overrides the HTTP client used for delivery.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Tracker) { t.client = c }
}

// WithEnvironment supplies the host environment. Defaults to an empty
// StaticEnvironment.
func WithEnvironment(env Environment) Option {
	return func(t *Tracker) { t.env = env }
}

// WithLogger overrides the logger used for delivery-failure warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// New creates a tracker for appType, starts a session, emits the initial
// page_view and hooks session-end signaling to the environment's unload and
// hidden events. Construction never fails on network conditions.
func New(appType string, opts ...Option) *Tracker {
	t := &Tracker{
		appType:      appType,
		collectorURL: DefaultCollectorURL,
		client:       &http.Client{},
		logger:       log.Logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.env == nil {
		t.env = &StaticEnvironment{}
	}

	t.sessionID = newSessionID()
	if id, ok := t.env.StoredValue(storageKeyUserID); ok && id != "" {
		t.userID = &id
	}

	t.TrackPageView()
	t.env.OnUnload(t.EndSession)
	t.env.OnHidden(t.EndSession)

	return t
}

// newSessionID combines a random component with the current timestamp.
// Uniqueness is best effort, which is enough for analytics.
func newSessionID() string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 9)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return fmt.Sprintf("session_%s_%d", b, time.Now().UnixMilli())
}

// SessionID returns the session identifier for this tracker instance.
func (t *Tracker) SessionID() string { return t.sessionID }

// AppType returns the application tag this tracker reports under.
func (t *Tracker) AppType() string { return t.appType }

// State reports whether an end signal has been observed.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetUserID attaches a stable user identifier to the session and persists it
// so later sessions recover it. It never contacts the collector; the change
// shows up in the next emitted event's context.
func (t *Tracker) SetUserID(userID string) {
	t.mu.Lock()
	t.userID = &userID
	t.mu.Unlock()
	t.env.SetStoredValue(storageKeyUserID, userID)
}

// Track emits one event. It returns before delivery completes; transport
// failures, non-2xx responses and serialization failures are logged as
// warnings and dropped. No retries, no ordering between events.
func (t *Tracker) Track(eventType, eventName string, eventData map[string]any) {
	t.send("/track", t.snapshot(eventType, eventName, eventData))
}

// snapshot assembles the full context at emission time.
func (t *Tracker) snapshot(eventType, eventName string, eventData map[string]any) Event {
	t.mu.Lock()
	userID := t.userID
	t.mu.Unlock()

	if eventData == nil {
		eventData = map[string]any{}
	}
	return Event{
		SessionID:        t.sessionID,
		UserID:           userID,
		AppType:          t.appType,
		PageURL:          t.env.CurrentURL(),
		PageTitle:        t.env.PageTitle(),
		Referrer:         t.env.Referrer(),
		ScreenResolution: t.env.ScreenResolution(),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		EventType:        eventType,
		EventName:        eventName,
		EventData:        eventData,
	}
}

// EndSession signals the end of the session to the collector. It fires on
// every unload/hidden signal without deduplication; the collector contract
// tolerates repeated end posts for one session.
func (t *Tracker) EndSession() {
	t.mu.Lock()
	t.state = Ended
	t.mu.Unlock()

	t.send("/session/end", map[string]string{"session_id": t.sessionID})
}

// send delivers payload to the collector from a goroutine. All failure modes
// are swallowed after one warning.
func (t *Tracker) send(path string, payload any) {
	t.inFlight.Add(1)
	go func() {
		defer t.inFlight.Done()

		body, err := json.Marshal(payload)
		if err != nil {
			t.logger.Warn().Err(err).Str("path", path).Msg("analytics payload not serializable")
			return
		}

		resp, err := t.client.Post(t.collectorURL+path, "application/json", bytes.NewReader(body))
		if err != nil {
			t.logger.Warn().Err(err).Str("path", path).Msg("analytics delivery failed")
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			t.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("analytics delivery failed")
		}
	}()
}

// Flush waits for in-flight deliveries to settle. Hosts may call it on
// shutdown; it does not change the non-blocking semantics of Track.
func (t *Tracker) Flush() {
	t.inFlight.Wait()
}
