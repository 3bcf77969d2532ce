// Package storage writes processed telemetry to ClickHouse.
package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/modernmarket/telemetry/internal/config"
)

type ClickHouse struct {
	conn driver.Conn
}

// EventRow represents a row in the events table.
type EventRow struct {
	EventID          string
	SessionID        string
	UserID           string
	AppType          string
	EventType        string
	EventName        string
	Timestamp        time.Time
	PageURL          string
	PageTitle        string
	Referrer         string
	ScreenResolution string
	Browser          string
	BrowserVersion   string
	OS               string
	DeviceType       string
	Country          string
	City             string
	EventData        string
}

// SessionRow represents a row in the sessions table.
type SessionRow struct {
	SessionID   string
	AppType     string
	UserID      string
	StartedAt   time.Time
	EndedAt     time.Time
	DurationMs  uint64
	PageViews   uint32
	EventsCount uint32
	CartAdds    uint32
	Purchases   uint32
	EntryPage   string
	ExitPage    string
	IsBounced   uint8
}

func NewClickHouse(cfg config.ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	return &ClickHouse{conn: conn}, nil
}

func (c *ClickHouse) InsertEvents(ctx context.Context, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO events (
			event_id, session_id, user_id, app_type,
			event_type, event_name, timestamp,
			page_url, page_title, referrer, screen_resolution,
			browser, browser_version, os, device_type,
			country, city, event_data
		)
	`)
	if err != nil {
		return err
	}

	for _, e := range events {
		err := batch.Append(
			e.EventID, e.SessionID, e.UserID, e.AppType,
			e.EventType, e.EventName, e.Timestamp,
			e.PageURL, e.PageTitle, e.Referrer, e.ScreenResolution,
			e.Browser, e.BrowserVersion, e.OS, e.DeviceType,
			e.Country, e.City, e.EventData,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (c *ClickHouse) UpsertSession(ctx context.Context, session SessionRow) error {
	return c.conn.Exec(ctx, `
		INSERT INTO sessions (
			session_id, app_type, user_id,
			started_at, ended_at, duration_ms,
			page_views, events_count, cart_adds, purchases,
			entry_page, exit_page, is_bounced
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.SessionID, session.AppType, session.UserID,
		session.StartedAt, session.EndedAt, session.DurationMs,
		session.PageViews, session.EventsCount, session.CartAdds, session.Purchases,
		session.EntryPage, session.ExitPage, session.IsBounced,
	)
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}
