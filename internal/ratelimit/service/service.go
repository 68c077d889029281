// Package service decides whether a request fits its class budget. A shared
// bucket store is primary; an in-process store takes over while the breaker
// is open.
package service

import (
	"context"
	"errors"
	"log/slog"

	"provenant/internal/ratelimit/metrics"
	"provenant/internal/ratelimit/models"
	"provenant/internal/ratelimit/store/bucket"
	"provenant/pkg/platform/circuit"
)

// BucketStore records requests against sliding windows.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

type Service struct {
	primary  BucketStore
	fallback BucketStore
	limits   map[models.Class]models.Limit
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithFallback(store BucketStore) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func New(primary BucketStore, limits map[models.Class]models.Limit, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, errors.New("bucket store is required")
	}
	if len(limits) == 0 {
		return nil, errors.New("at least one class limit is required")
	}
	s := &Service{
		primary: primary,
		limits:  limits,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = bucket.New()
	}
	if s.breaker == nil {
		s.breaker = circuit.New("ratelimit")
	}
	return s, nil
}

// Check records one request for subject in class. Classes without a
// configured limit are always allowed and yield a nil result.
func (s *Service) Check(ctx context.Context, subject string, class models.Class) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok {
		return nil, nil
	}
	key := models.Key(subject, class)

	if s.breaker.IsOpen() {
		// Probe the primary so the breaker can close; the fallback decides.
		if _, err := s.primary.Allow(ctx, key, limit); err == nil {
			if _, change := s.breaker.RecordSuccess(); change.Closed {
				s.logger.InfoContext(ctx, "rate limit store recovered", "breaker", s.breaker.Name())
				s.metrics.SetDegraded(false)
			}
		}
		return s.decide(ctx, s.fallback, key, limit, class)
	}

	res, err := s.primary.Allow(ctx, key, limit)
	if err != nil {
		s.metrics.IncrementStoreFailures()
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "rate limit store unavailable, using in-process fallback",
				"breaker", s.breaker.Name(),
				"error", err,
			)
			s.metrics.SetDegraded(true)
		}
		return s.decide(ctx, s.fallback, key, limit, class)
	}
	s.breaker.RecordSuccess()
	s.metrics.ObserveDecision(class, res.Allowed)
	return res, nil
}

func (s *Service) decide(ctx context.Context, store BucketStore, key string, limit models.Limit, class models.Class) (*models.Result, error) {
	res, err := store.Allow(ctx, key, limit)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDecision(class, res.Allowed)
	return res, nil
}

// Degraded reports whether the fallback is currently serving checks.
func (s *Service) Degraded() bool {
	return s.breaker.IsOpen()
}
