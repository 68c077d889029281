// Package relay forwards outbox notifications to a broker.
//
// The relay polls the outbox for unpublished events, hands each batch to a
// Sink and marks the batch published only after the sink accepted it. Delivery
// is at-least-once; consumers de-duplicate on Event.ID.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "provenant/pkg/platform/audit"
)

// Source is the outbox side of the relay.
type Source interface {
	FetchUnpublished(ctx context.Context, limit int) ([]audit.Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink delivers a batch downstream. A nil error means every event was accepted.
type Sink interface {
	Publish(ctx context.Context, events []audit.Event) error
}

// Metrics tracks relay throughput and failures.
type Metrics struct {
	Relayed  prometheus.Counter
	Failures prometheus.Counter
}

// NewMetrics registers relay metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Relayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_outbox_relayed_total",
			Help: "Total number of notifications delivered to the broker",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_outbox_relay_failures_total",
			Help: "Total number of failed relay passes",
		}),
	}
}

const (
	defaultInterval = time.Second
	defaultBatch    = 100
)

type Relay struct {
	source   Source
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func New(source Source, sink Sink, opts ...Option) *Relay {
	r := &Relay{
		source:   source,
		sink:     sink,
		interval: defaultInterval,
		batch:    defaultBatch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Failed passes are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			if r.metrics != nil {
				r.metrics.Failures.Inc()
			}
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush relays batches until the outbox is drained and returns how many
// events were delivered.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	delivered := 0
	for {
		events, err := r.source.FetchUnpublished(ctx, r.batch)
		if err != nil {
			return delivered, err
		}
		if len(events) == 0 {
			return delivered, nil
		}

		if err := r.sink.Publish(ctx, events); err != nil {
			return delivered, err
		}

		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if err := r.source.MarkPublished(ctx, ids); err != nil {
			return delivered, err
		}

		delivered += len(events)
		if r.metrics != nil {
			r.metrics.Relayed.Add(float64(len(events)))
		}
		if len(events) < r.batch {
			return delivered, nil
		}
	}
}
