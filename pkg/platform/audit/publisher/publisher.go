// Package publisher emits passport registry notifications to an audit.Store.
//
// In sync mode Emit returns once the store accepted the event. In async mode
// Emit enqueues into a bounded buffer drained by a background goroutine;
// Close drains what is left.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

// ErrBufferFull is returned in async mode when the buffer cannot take more events.
var ErrBufferFull = errors.New("audit buffer full")

// Metrics counts emitted, dropped and failed notifications.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers publisher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provenant_notifications_emitted_total",
			Help: "Total number of notifications accepted by the store, by category",
		}, []string{"category"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_notifications_dropped_total",
			Help: "Total number of notifications dropped because the async buffer was full",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "provenant_notifications_persist_failures_total",
			Help: "Total number of notifications the store rejected",
		}),
	}
}

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics

	async  chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.async = make(chan audit.Event, size)
		}
	}
}

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.async != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit fills defaults (id, timestamp, category, request id) and hands the
// event to the store.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.async == nil {
		return p.persist(ctx, event)
	}

	select {
	case p.async <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "notification dropped, buffer full",
				"action", event.Action,
				"entity_id", event.EntityID,
			)
		}
		return ErrBufferFull
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "failed to persist notification",
				"action", event.Action,
				"entity_kind", event.EntityKind,
				"entity_id", event.EntityID,
				"error", err,
			)
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.Emitted.WithLabelValues(string(event.Category)).Inc()
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.async {
		_ = p.persist(context.Background(), event)
	}
}

// List returns stored notifications for one entity.
func (p *Publisher) List(ctx context.Context, kind audit.EntityKind, entityID string) ([]audit.Event, error) {
	return p.store.ListByEntity(ctx, kind, entityID)
}

// Close stops accepting async events and waits for the buffer to drain.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.async != nil {
			close(p.async)
			p.wg.Wait()
		}
	})
}
