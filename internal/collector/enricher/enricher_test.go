package enricher

import "testing"

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	mobileUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestEnrichParsesUserAgent(t *testing.T) {
	e := New("")
	defer e.Close()

	tests := []struct {
		name    string
		ua      string
		browser string
		device  string
	}{
		{"desktop chrome", chromeUA, "Chrome", "desktop"},
		{"mobile safari", mobileUA, "Safari", "mobile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := map[string]any{"event_type": "click"}
			e.Enrich(event, tt.ua, "203.0.113.7")

			if event["browser"] != tt.browser {
				t.Errorf("browser = %v, want %s", event["browser"], tt.browser)
			}
			if event["device_type"] != tt.device {
				t.Errorf("device_type = %v, want %s", event["device_type"], tt.device)
			}
			if event["client_ip"] != "203.0.113.7" {
				t.Errorf("client_ip = %v", event["client_ip"])
			}
			if _, ok := event["server_timestamp"]; !ok {
				t.Error("server_timestamp not set")
			}
		})
	}
}

func TestEnrichWithoutUserAgent(t *testing.T) {
	e := New("")
	defer e.Close()

	event := map[string]any{"event_type": "click"}
	e.Enrich(event, "", "")

	if _, ok := event["browser"]; ok {
		t.Error("browser set without a user agent")
	}
	if _, ok := event["client_ip"]; ok {
		t.Error("client_ip set without an address")
	}
	if _, ok := event["server_timestamp"]; !ok {
		t.Error("server_timestamp not set")
	}
}

func TestEnrichPreservesTrackerFields(t *testing.T) {
	e := New("")
	defer e.Close()

	event := map[string]any{
		"session_id": "session_x_1",
		"event_type": "purchase",
		"event_data": map[string]any{"order_id": "o1"},
	}
	e.Enrich(event, chromeUA, "203.0.113.7")

	if event["session_id"] != "session_x_1" || event["event_type"] != "purchase" {
		t.Errorf("tracker fields altered: %v", event)
	}
}

func TestNewWithMissingGeoIPDatabase(t *testing.T) {
	// Geo lookups degrade to nothing; construction must not fail.
	e := New("/nonexistent/GeoLite2-City.mmdb")
	defer e.Close()

	event := map[string]any{"event_type": "click"}
	e.Enrich(event, chromeUA, "203.0.113.7")
	if _, ok := event["country"]; ok {
		t.Error("country set without a GeoIP database")
	}
}
