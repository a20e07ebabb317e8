package service

import (
	"time"

	"github.com/okian/ourabridge/internal/adapters/repository"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithInterval sets the time between scheduled cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCycleTimeout bounds one whole cycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cycleTimeout = d
		}
	}
}

// WithPartialCycles keeps a cycle going when a resource returns an invalid
// response or fails in transport. The default aborts the cycle.
func WithPartialCycles(enabled bool) Option {
	return func(s *Service) { s.partial = enabled }
}

// WithRingConfiguration sets the ring descriptor used when the ring endpoint
// is not fetched.
func WithRingConfiguration(ring model.RingConfiguration) Option {
	return func(s *Service) { s.ring = ring }
}

// WithRingFetch fetches ring configuration from the API instead of using
// the configured descriptor.
func WithRingFetch(enabled bool) Option {
	return func(s *Service) { s.ringFetch = enabled }
}

// WithStore replaces the in-memory store that holds the current snapshot.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublishers adds snapshot consumers.
func WithPublishers(pubs ...Publisher) Option {
	return func(s *Service) {
		for _, p := range pubs {
			if p != nil {
				s.publishers = append(s.publishers, p)
			}
		}
	}
}

// WithFetchConcurrency bounds parallel resource fetches per cycle.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
