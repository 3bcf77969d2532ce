package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validRaw() map[string]any {
	return map[string]any{
		"event_id":          "7f9c24e5-1f33-4bde-a7e8-3a2f1b5c9d01",
		"session_id":        "session_abc123def_1725000000000",
		"user_id":           "u123",
		"app_type":          "buyer",
		"event_type":        "add_to_cart",
		"event_name":        "Add to Cart",
		"timestamp":         "2026-08-29T10:15:00Z",
		"page_url":          "https://buyer.modernmarket.app/products",
		"page_title":        "Products",
		"referrer":          "https://buyer.modernmarket.app/",
		"screen_resolution": "390x844",
		"browser":           "Safari",
		"browser_version":   "17.0",
		"os":                "iOS",
		"device_type":       "mobile",
		"country":           "NG",
		"city":              "Benin City",
		"event_data":        map[string]any{"product_id": "p1", "quantity": float64(2)},
		"server_timestamp":  float64(1725000001000),
	}
}

func TestEventFullRow(t *testing.T) {
	row, err := Event(validRaw())
	if err != nil {
		t.Fatalf("Event: %v", err)
	}

	if row.EventID != "7f9c24e5-1f33-4bde-a7e8-3a2f1b5c9d01" {
		t.Errorf("EventID = %q, want wire value", row.EventID)
	}
	if row.SessionID != "session_abc123def_1725000000000" {
		t.Errorf("SessionID = %q", row.SessionID)
	}
	if row.UserID != "u123" || row.AppType != "buyer" {
		t.Errorf("identity fields = %q/%q", row.UserID, row.AppType)
	}
	want := time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC)
	if !row.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", row.Timestamp, want)
	}
	if row.Browser != "Safari" || row.DeviceType != "mobile" || row.Country != "NG" {
		t.Errorf("enrichment fields = %q/%q/%q", row.Browser, row.DeviceType, row.Country)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(row.EventData), &data); err != nil {
		t.Fatalf("EventData is not JSON: %v", err)
	}
	if data["product_id"] != "p1" {
		t.Errorf("EventData.product_id = %v", data["product_id"])
	}
}

func TestEventMissingSessionID(t *testing.T) {
	raw := validRaw()
	delete(raw, "session_id")
	if _, err := Event(raw); err == nil {
		t.Error("Event without session_id returned nil error")
	}
}

func TestEventInvalidIDReplaced(t *testing.T) {
	tests := []string{"", "not-a-uuid"}
	for _, id := range tests {
		raw := validRaw()
		raw["event_id"] = id
		row, err := Event(raw)
		if err != nil {
			t.Fatalf("Event: %v", err)
		}
		if _, err := uuid.Parse(row.EventID); err != nil {
			t.Errorf("EventID %q for wire id %q is not a uuid", row.EventID, id)
		}
		if row.EventID == id {
			t.Errorf("invalid wire id %q kept", id)
		}
	}
}

func TestEventTimestampFallback(t *testing.T) {
	raw := validRaw()
	raw["timestamp"] = "yesterday-ish"
	row, err := Event(raw)
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if !row.Timestamp.Equal(time.UnixMilli(1725000001000)) {
		t.Errorf("Timestamp = %v, want server_timestamp fallback", row.Timestamp)
	}

	delete(raw, "timestamp")
	delete(raw, "server_timestamp")
	row, _ = Event(raw)
	if time.Since(row.Timestamp) > time.Minute {
		t.Errorf("Timestamp without any wire time = %v, want approximately now", row.Timestamp)
	}
}

func TestEndSignal(t *testing.T) {
	id, endedAt, err := EndSignal(map[string]any{
		"session_id": "session_a_1",
		"ended_at":   float64(1725000002000),
	})
	if err != nil {
		t.Fatalf("EndSignal: %v", err)
	}
	if id != "session_a_1" {
		t.Errorf("session id = %q", id)
	}
	if !endedAt.Equal(time.UnixMilli(1725000002000)) {
		t.Errorf("endedAt = %v", endedAt)
	}

	if _, _, err := EndSignal(map[string]any{}); err == nil {
		t.Error("EndSignal without session_id returned nil error")
	}
}
