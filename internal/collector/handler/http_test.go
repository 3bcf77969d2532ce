package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/modernmarket/telemetry/internal/collector/enricher"
	"github.com/modernmarket/telemetry/internal/collector/validation"
	"github.com/modernmarket/telemetry/internal/config"
)

// fakeSink records published traffic in memory.
type fakeSink struct {
	mu       sync.Mutex
	events   []map[string]any
	sessions []string
	fail     bool
}

func (s *fakeSink) PublishEvent(ctx context.Context, sessionID string, event map[string]any) error {
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSink) PublishSessionEnd(ctx context.Context, sessionID string) error {
	if s.fail {
		return errors.New("broker unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sessionID)
	return nil
}

func newTestServer(t *testing.T, sink *fakeSink) *httptest.Server {
	t.Helper()
	v := validation.New(config.RedisConfig{}, config.RateLimitConfig{RequestsPerSecond: 50})
	h := New(sink, v, enricher.New(""))
	ts := httptest.NewServer(Router(h))
	t.Cleanup(ts.Close)
	return ts
}

func trackBody() string {
	return `{
		"session_id": "session_abc123def_1725000000000",
		"user_id": null,
		"app_type": "vendor",
		"page_url": "https://vendor.modernmarket.app/products",
		"page_title": "Products",
		"referrer": "",
		"screen_resolution": "1920x1080",
		"timestamp": "2026-08-29T10:00:00Z",
		"event_type": "add_to_cart",
		"event_name": "Add to Cart",
		"event_data": {"product_id": "p1", "quantity": 2}
	}`
}

func TestHandleTrackAccepts(t *testing.T) {
	sink := &fakeSink{}
	ts := newTestServer(t, sink)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/track", strings.NewReader(trackBody()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	if out["success"] != true {
		t.Errorf("success = %v, want true", out["success"])
	}

	if len(sink.events) != 1 {
		t.Fatalf("published %d events, want 1", len(sink.events))
	}
	ev := sink.events[0]

	// Enrichment applied server side.
	if _, ok := ev["server_timestamp"]; !ok {
		t.Error("published event missing server_timestamp")
	}
	if ev["browser"] != "Chrome" {
		t.Errorf("browser = %v, want Chrome", ev["browser"])
	}
	eventID, _ := ev["event_id"].(string)
	if _, err := uuid.Parse(eventID); err != nil {
		t.Errorf("event_id %q is not a valid uuid", eventID)
	}

	// Tracker fields pass through untouched.
	if ev["event_type"] != "add_to_cart" || ev["app_type"] != "vendor" {
		t.Errorf("tracker fields altered: %v", ev)
	}
}

func TestHandleTrackRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", `{nope`, http.StatusBadRequest},
		{"missing session_id", `{"app_type":"vendor","event_type":"click"}`, http.StatusBadRequest},
		{"missing app_type", `{"session_id":"s1","event_type":"click"}`, http.StatusBadRequest},
		{"missing event_type", `{"session_id":"s1","app_type":"vendor"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			ts := newTestServer(t, sink)

			resp, err := http.Post(ts.URL+"/track", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if len(sink.events) != 0 {
				t.Errorf("rejected event was published: %v", sink.events)
			}
		})
	}
}

func TestHandleTrackSinkFailure(t *testing.T) {
	ts := newTestServer(t, &fakeSink{fail: true})

	resp, err := http.Post(ts.URL+"/track", "application/json", strings.NewReader(trackBody()))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleSessionEnd(t *testing.T) {
	sink := &fakeSink{}
	ts := newTestServer(t, sink)

	body := `{"session_id":"session_abc123def_1725000000000"}`

	// The tracker signals at least once; each signal must be accepted.
	for i := 0; i < 2; i++ {
		resp, err := http.Post(ts.URL+"/session/end", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", resp.StatusCode)
		}
	}

	if len(sink.sessions) != 2 {
		t.Fatalf("published %d end signals, want 2", len(sink.sessions))
	}
	if sink.sessions[0] != "session_abc123def_1725000000000" {
		t.Errorf("session id = %q", sink.sessions[0])
	}
}

func TestHandleSessionEndRejectsEmpty(t *testing.T) {
	ts := newTestServer(t, &fakeSink{})

	resp, err := http.Post(ts.URL+"/session/end", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndCORS(t *testing.T) {
	ts := newTestServer(t, &fakeSink{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/track", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
