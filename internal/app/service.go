// Package service runs the poll cycle: fetch every Oura resource, build a
// snapshot keyed by metric name and hand it to the publishers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ourabridge/internal/adapters/mq/queue"
	"github.com/okian/ourabridge/internal/adapters/mq/worker"
	"github.com/okian/ourabridge/internal/adapters/oura"
	"github.com/okian/ourabridge/internal/adapters/repository"
	"github.com/okian/ourabridge/internal/domain/decode"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
	"github.com/okian/ourabridge/pkg/logger"
	"github.com/okian/ourabridge/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultInterval     = 30 * time.Minute
	defaultCycleTimeout = 10 * time.Second
	defaultConcurrency  = 4
)

// Fetcher retrieves the decoded items of one resource.
type Fetcher interface {
	Fetch(ctx context.Context, kind model.Kind) ([]model.Record, error)
}

// Publisher receives every successful snapshot.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, snap model.Snapshot) error
}

// StaleMarker is implemented by publishers that can flag the last
// published snapshot as stale after a failed cycle.
type StaleMarker interface {
	MarkStale(ctx context.Context, cycleID string, cause error) error
}

// Status describes the scheduler and the last cycle.
type Status struct {
	Running     bool                         `json:"running"`
	Stale       bool                         `json:"stale"`
	Cycles      int                          `json:"cycles"`
	Failures    int                          `json:"failures"`
	LastCycleID string                       `json:"last_cycle_id,omitempty"`
	LastAttempt time.Time                    `json:"last_attempt,omitempty"`
	LastSuccess time.Time                    `json:"last_success,omitempty"`
	LastError   string                       `json:"last_error,omitempty"`
	Outcomes    map[model.Kind]model.Outcome `json:"outcomes,omitempty"`
	Interval    string                       `json:"interval"`
	Partial     bool                         `json:"partial_cycles"`
}

// Service owns the current snapshot and the refresh schedule.
type Service struct {
	fetcher    Fetcher
	store      repository.Store
	publishers []Publisher

	// Configuration
	interval     time.Duration
	cycleTimeout time.Duration
	concurrency  int
	partial      bool
	ringFetch    bool
	ring         model.RingConfiguration
	clock        func() time.Time

	// cycleMu is held for the duration of a cycle.
	cycleMu sync.Mutex

	mu       sync.RWMutex
	status   Status
	started  bool
	stopCh   chan struct{}
	loopDone chan struct{}

	logger logger.Logger
}

// New constructs a Service around fetcher.
func New(fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:      fetcher,
		store:        repository.NewMemoryStore(),
		interval:     defaultInterval,
		cycleTimeout: defaultCycleTimeout,
		concurrency:  defaultConcurrency,
		ring:         model.PlaceholderRing(),
		clock:        time.Now,
		logger:       logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("poller")
	s.status.Interval = s.interval.String()
	s.status.Partial = s.partial
	return s
}

// Start runs a cycle immediately and then every interval until Stop or ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	s.started = true
	s.status.Running = true

	go s.loop(ctx, s.stopCh, s.loopDone)

	s.logger.Info(ctx, "poller started",
		logger.Duration("interval", s.interval),
		logger.Duration("cycle_timeout", s.cycleTimeout),
		logger.Bool("partial_cycles", s.partial),
		logger.Int("fetch_concurrency", s.concurrency),
	)
	return nil
}

// Stop ends the schedule and waits for an in-flight cycle to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.loopDone
	s.started = false
	s.status.Running = false
	s.mu.Unlock()

	<-done
	s.logger.Info(context.Background(), "poller stopped")
}

func (s *Service) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	s.scheduled(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.scheduled(ctx)
		}
	}
}

func (s *Service) scheduled(ctx context.Context) {
	if _, err := s.RunCycle(ctx); errors.Is(err, ErrCycleBusy) {
		s.logger.Debug(ctx, "skipping scheduled cycle, previous still running")
	}
}

type result struct {
	records []model.Record
	status  model.OutcomeStatus
	err     error
}

// RunCycle fetches every resource once and publishes the resulting snapshot.
//
// In the default strict mode an invalid response or transport failure from
// any resource aborts the cycle and no snapshot is returned. Empty resources
// and undecodable items are absorbed and reported in the snapshot outcomes.
// A failed cycle leaves the previous snapshot in place, flagged stale.
func (s *Service) RunCycle(ctx context.Context) (model.Snapshot, error) {
	if !s.cycleMu.TryLock() {
		metrics.RecordCycleBusy()
		return model.Snapshot{}, ErrCycleBusy
	}
	defer s.cycleMu.Unlock()

	cycleID := uuid.NewString()
	started := s.clock()
	log := s.logger.With(logger.String("cycle_id", cycleID))

	s.mu.Lock()
	s.status.LastAttempt = started
	s.status.LastCycleID = cycleID
	s.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	kinds := model.Kinds()
	results := make([]result, len(kinds))
	tasks := make([]queue.Task, 0, len(kinds))
	for i, kind := range kinds {
		i, kind := i, kind
		if kind == model.KindRing && !s.ringFetch {
			results[i] = result{records: []model.Record{s.ring}, status: model.OutcomeStatic}
			continue
		}
		// Overwritten by the task; survives only if the fetch panics.
		results[i] = result{
			status: model.OutcomeTransportError,
			err:    fmt.Errorf("%s: %w", kind, ErrFetchIncomplete),
		}
		tasks = append(tasks, queue.Task{
			Name: kind.String(),
			Run: func(ctx context.Context) {
				results[i] = s.fetch(ctx, log, kind)
			},
		})
	}

	if err := worker.RunAll(cctx, s.concurrency, tasks, worker.WithLogger(s.logger)); err != nil {
		return model.Snapshot{}, s.fail(ctx, log, cycleID, started, nil, err)
	}

	records := make(map[model.Kind]model.Record, len(kinds))
	outcomes := make(map[model.Kind]model.Outcome, len(kinds))
	var fatal []error
	for i, kind := range kinds {
		r := results[i]
		outcome := model.Outcome{Status: r.status, Items: len(r.records)}
		if r.err != nil {
			outcome.Error = r.err.Error()
		}
		outcomes[kind] = outcome

		switch r.status {
		case model.OutcomeOK, model.OutcomeStatic:
			records[kind] = r.records[len(r.records)-1]
		case model.OutcomeEmpty, model.OutcomeDecodeError:
		default:
			fatal = append(fatal, r.err)
		}
	}

	if err := cctx.Err(); err != nil {
		return model.Snapshot{}, s.fail(ctx, log, cycleID, started, outcomes, fmt.Errorf("cycle timed out: %w", err))
	}
	if len(fatal) > 0 && !s.partial {
		return model.Snapshot{}, s.fail(ctx, log, cycleID, started, outcomes, fatal[0])
	}
	if len(fatal) > 0 {
		log.Warn(ctx, "continuing with partial cycle", logger.Int("failed_resources", len(fatal)))
	}

	snap := model.NewSnapshot(cycleID, started, records, outcomes)
	if err := s.store.Save(ctx, snap); err != nil {
		return model.Snapshot{}, s.fail(ctx, log, cycleID, started, outcomes, fmt.Errorf("store snapshot: %w", err))
	}
	s.succeed(ctx, log, snap, started)
	return snap, nil
}

// fetch runs one resource and classifies the outcome.
func (s *Service) fetch(ctx context.Context, log logger.Logger, kind model.Kind) result {
	t0 := time.Now()
	records, err := s.fetcher.Fetch(ctx, kind)
	r := result{records: records, err: err}

	switch {
	case err == nil && len(records) == 0 && kind == model.KindRing:
		r.records = []model.Record{s.ring}
		r.status = model.OutcomeStatic
	case err == nil && len(records) == 0:
		r.status = model.OutcomeEmpty
		r.err = fmt.Errorf("%s: %w", kind, oura.ErrEmptyResource)
	case err == nil:
		r.status = model.OutcomeOK
	case errors.Is(err, oura.ErrUnauthorized):
		r.status = model.OutcomeUnauthorized
	case errors.Is(err, oura.ErrInvalidResponse):
		r.status = model.OutcomeInvalidResponse
	case errors.Is(err, decode.ErrDecode):
		r.status = model.OutcomeDecodeError
	default:
		r.status = model.OutcomeTransportError
	}

	metrics.RecordFetch(kind.String(), string(r.status), float64(time.Since(t0).Milliseconds()))

	switch r.status {
	case model.OutcomeOK, model.OutcomeStatic:
	case model.OutcomeEmpty:
		log.Warn(ctx, "resource omitted from cycle", logger.String("resource", kind.String()))
	case model.OutcomeDecodeError:
		log.Error(ctx, "resource omitted, item failed to decode",
			logger.String("resource", kind.String()),
			logger.Error(err),
		)
	default:
		log.Error(ctx, "resource fetch failed",
			logger.String("resource", kind.String()),
			logger.String("outcome", string(r.status)),
			logger.Error(err),
		)
	}
	return r
}

func (s *Service) succeed(ctx context.Context, log logger.Logger, snap model.Snapshot, started time.Time) {
	s.mu.Lock()
	s.status.Cycles++
	s.status.Stale = false
	s.status.LastError = ""
	s.status.LastSuccess = snap.FetchedAt
	s.status.Outcomes = snap.Outcomes
	s.mu.Unlock()

	for _, st := range sensor.States(snap) {
		if v, ok := st.Numeric(); ok {
			metrics.SetSensor(st.Key, v, st.Available)
			continue
		}
		metrics.SetSensorAvailability(st.Key, st.Available)
	}

	for _, p := range s.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			metrics.RecordPublish(p.Name(), "error")
			log.Error(ctx, "publisher failed", logger.String("publisher", p.Name()), logger.Error(err))
			continue
		}
		metrics.RecordPublish(p.Name(), "ok")
	}

	took := s.clock().Sub(started)
	metrics.RecordCycle("success", float64(took.Milliseconds()))
	metrics.RecordCycleSuccess(snap.FetchedAt, snap.Len())
	log.Info(ctx, "poll cycle complete",
		logger.Int("records", snap.Len()),
		logger.Duration("took", took),
	)
}

func (s *Service) fail(ctx context.Context, log logger.Logger, cycleID string, started time.Time, outcomes map[model.Kind]model.Outcome, cause error) error {
	s.mu.Lock()
	s.status.Cycles++
	s.status.Failures++
	s.status.Stale = true
	s.status.LastError = cause.Error()
	if outcomes != nil {
		s.status.Outcomes = outcomes
	}
	s.mu.Unlock()

	metrics.SetStale(true)
	metrics.RecordCycle("failure", float64(s.clock().Sub(started).Milliseconds()))
	log.Error(ctx, "poll cycle failed, keeping previous snapshot", logger.Error(cause))

	for _, p := range s.publishers {
		if m, ok := p.(StaleMarker); ok {
			if err := m.MarkStale(ctx, cycleID, cause); err != nil {
				metrics.RecordPublish(p.Name(), "error")
			}
		}
	}
	return fmt.Errorf("%w: %w", ErrCycleFailed, cause)
}

// Snapshot returns the last successful snapshot from the store.
func (s *Service) Snapshot() (model.Snapshot, error) {
	snap, err := s.store.Latest(context.Background())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.Snapshot{}, ErrNoSnapshot
	case err != nil:
		return model.Snapshot{}, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	case snap.IsZero():
		return model.Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

// Status returns a copy of the scheduler status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if s.status.Outcomes != nil {
		st.Outcomes = make(map[model.Kind]model.Outcome, len(s.status.Outcomes))
		for k, v := range s.status.Outcomes {
			st.Outcomes[k] = v
		}
	}
	return st
}

// Sensors evaluates the sensor table against the current snapshot. Before
// the first successful cycle every sensor is unavailable.
func (s *Service) Sensors() []sensor.State {
	snap, _ := s.Snapshot()
	return sensor.States(snap)
}

// Device returns the ring device descriptor from the current snapshot.
func (s *Service) Device(name string) sensor.Device {
	snap, _ := s.Snapshot()
	return sensor.DeviceFor(snap, name)
}
