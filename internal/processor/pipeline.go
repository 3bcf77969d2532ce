// Package processor turns the collector's Kafka output into ClickHouse rows:
// events are batched into the events table, end signals flush session
// aggregates.
package processor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/config"
	"github.com/modernmarket/telemetry/internal/processor/storage"
	"github.com/modernmarket/telemetry/internal/processor/transform"
)

// EventStore receives flushed event batches.
type EventStore interface {
	InsertEvents(ctx context.Context, events []storage.EventRow) error
}

// Aggregator folds events into live session state.
type Aggregator interface {
	UpdateSession(ctx context.Context, event storage.EventRow) error
}

// Pipeline buffers transformed events and flushes them on size or interval.
type Pipeline struct {
	store    EventStore
	agg      Aggregator
	batchCfg config.BatchConfig

	mu     sync.Mutex
	buffer []storage.EventRow

	ticker *time.Ticker
	done   chan struct{}
}

func NewPipeline(store EventStore, agg Aggregator, batchCfg config.BatchConfig) *Pipeline {
	p := &Pipeline{
		store:    store,
		agg:      agg,
		batchCfg: batchCfg,
		buffer:   make([]storage.EventRow, 0, batchCfg.Size),
		done:     make(chan struct{}),
	}

	p.ticker = time.NewTicker(batchCfg.FlushInterval)
	go p.flushLoop()

	return p
}

// Process transforms and buffers a single raw event.
func (p *Pipeline) Process(ctx context.Context, event map[string]any) error {
	row, err := transform.Event(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.buffer = append(p.buffer, *row)
	shouldFlush := len(p.buffer) >= p.batchCfg.Size
	p.mu.Unlock()

	if p.agg != nil {
		go p.agg.UpdateSession(ctx, *row)
	}

	if shouldFlush {
		p.Flush()
	}

	return nil
}

func (p *Pipeline) flushLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.Flush()
		}
	}
}

// Flush writes all buffered events to the store.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	if len(p.buffer) == 0 {
		p.mu.Unlock()
		return
	}
	events := p.buffer
	p.buffer = make([]storage.EventRow, 0, p.batchCfg.Size)
	p.mu.Unlock()

	start := time.Now()
	if err := p.store.InsertEvents(context.Background(), events); err != nil {
		log.Error().Err(err).Int("count", len(events)).Msg("Failed to insert events")
		return
	}
	log.Info().
		Int("count", len(events)).
		Dur("duration", time.Since(start)).
		Msg("Flushed events to ClickHouse")
}

// Stop stops the ticker and performs a final flush.
func (p *Pipeline) Stop() {
	p.ticker.Stop()
	close(p.done)
	p.Flush()
}
