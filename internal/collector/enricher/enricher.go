// Package enricher augments incoming tracker events with server-side context:
// receive timestamp, browser/OS/device parsed from the User-Agent, and
// country/city from an optional GeoIP database.
package enricher

import (
	"net"
	"time"

	"github.com/mssola/useragent"
	"github.com/oschwald/geoip2-golang"
)

type Enricher struct {
	geoIP *geoip2.Reader
}

// New opens the GeoIP database at path when provided. A missing or unreadable
// database disables geo lookups; everything else still works.
func New(geoIPPath string) *Enricher {
	var geoIP *geoip2.Reader
	if geoIPPath != "" {
		geoIP, _ = geoip2.Open(geoIPPath)
	}
	return &Enricher{geoIP: geoIP}
}

// Enrich adds server-side fields to a raw tracker event in place and returns
// it. Tracker-supplied fields are never overwritten.
func (e *Enricher) Enrich(event map[string]any, userAgentString, clientIP string) map[string]any {
	event["server_timestamp"] = time.Now().UnixMilli()

	if userAgentString != "" {
		ua := useragent.New(userAgentString)
		browser, version := ua.Browser()
		event["browser"] = browser
		event["browser_version"] = version
		event["os"] = ua.OS()
		event["device_type"] = deviceType(ua)
	}

	if e.geoIP != nil && clientIP != "" {
		if ip := net.ParseIP(clientIP); ip != nil {
			if record, err := e.geoIP.City(ip); err == nil {
				event["country"] = record.Country.IsoCode
				if name, ok := record.City.Names["en"]; ok {
					event["city"] = name
				}
			}
		}
	}

	if clientIP != "" {
		event["client_ip"] = clientIP
	}

	return event
}

func deviceType(ua *useragent.UserAgent) string {
	if ua.Mobile() {
		return "mobile"
	}
	if ua.Bot() {
		return "bot"
	}
	return "desktop"
}

func (e *Enricher) Close() {
	if e.geoIP != nil {
		e.geoIP.Close()
	}
}
