// Package transform converts enriched tracker events, as published by the
// collector, into ClickHouse rows.
package transform

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/modernmarket/telemetry/internal/processor/storage"
)

// Event transforms a raw event map into an events-table row.
func Event(raw map[string]any) (*storage.EventRow, error) {
	sessionID := getString(raw, "session_id")
	if sessionID == "" {
		return nil, errors.New("event missing session_id")
	}

	row := &storage.EventRow{
		SessionID:        sessionID,
		UserID:           getString(raw, "user_id"),
		AppType:          getString(raw, "app_type"),
		EventType:        getString(raw, "event_type"),
		EventName:        getString(raw, "event_name"),
		PageURL:          getString(raw, "page_url"),
		PageTitle:        getString(raw, "page_title"),
		Referrer:         getString(raw, "referrer"),
		ScreenResolution: getString(raw, "screen_resolution"),
		Browser:          getString(raw, "browser"),
		BrowserVersion:   getString(raw, "browser_version"),
		OS:               getString(raw, "os"),
		DeviceType:       getString(raw, "device_type"),
		Country:          getString(raw, "country"),
		City:             getString(raw, "city"),
	}

	// Reject malformed ids rather than trusting the wire.
	if id := getString(raw, "event_id"); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			row.EventID = id
		}
	}
	if row.EventID == "" {
		row.EventID = uuid.New().String()
	}

	row.Timestamp = eventTime(raw)

	if data, ok := raw["event_data"].(map[string]any); ok {
		payload, _ := json.Marshal(data)
		row.EventData = string(payload)
	}

	return row, nil
}

// eventTime prefers the tracker's RFC3339 timestamp and falls back to the
// collector's server_timestamp, then to now.
func eventTime(raw map[string]any) time.Time {
	if ts := getString(raw, "timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return t
		}
	}
	if ms := getInt64(raw, "server_timestamp"); ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Now().UTC()
}

// EndSignal extracts the session id and end time from a session-end message.
func EndSignal(raw map[string]any) (string, time.Time, error) {
	sessionID := getString(raw, "session_id")
	if sessionID == "" {
		return "", time.Time{}, errors.New("end signal missing session_id")
	}
	endedAt := time.Now().UTC()
	if ms := getInt64(raw, "ended_at"); ms > 0 {
		endedAt = time.UnixMilli(ms)
	}
	return sessionID, endedAt, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getInt64(m map[string]any, key string) int64 {
	if v, ok := m[key].(float64); ok {
		return int64(v)
	}
	return 0
}
