package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/ourabridge/internal/adapters/oura"
	"github.com/okian/ourabridge/internal/adapters/repository"
	service "github.com/okian/ourabridge/internal/app"
	"github.com/okian/ourabridge/internal/domain/decode"
	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
	"github.com/okian/ourabridge/internal/fakeoura"
)

const token = "cycle-token"

var fixedNow = time.Date(2024, 11, 12, 10, 30, 0, 0, time.Local)

type recordingPublisher struct {
	mu     sync.Mutex
	snaps  []model.Snapshot
	stale  []string
	failOn bool
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, snap model.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	if p.failOn {
		return errors.New("downstream unavailable")
	}
	return nil
}

func (p *recordingPublisher) MarkStale(_ context.Context, cycleID string, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stale = append(p.stale, cycleID)
	return nil
}

func newFixture(opts ...service.Option) (*fakeoura.Server, *httptest.Server, *service.Service) {
	fake := fakeoura.New(fakeoura.WithToken(token))
	srv := httptest.NewServer(fake)
	client := oura.New(srv.URL, token, oura.WithClock(func() time.Time { return fixedNow }))
	return fake, srv, service.New(client, opts...)
}

func TestRunCycle(t *testing.T) {
	Convey("Given nine canned single-item responses", t, func() {
		fake, srv, svc := newFixture(service.WithRingFetch(true))
		defer srv.Close()

		snap, err := svc.RunCycle(context.Background())

		Convey("Then the snapshot has exactly the nine metric keys", func() {
			So(err, ShouldBeNil)
			So(snap.CycleID, ShouldNotBeEmpty)
			So(model.MetricNames(snap.Kinds()), ShouldResemble, model.MetricNames(model.Kinds()))
			ring, ok := snap.Ring()
			So(ok, ShouldBeTrue)
			So(ring.ID, ShouldEqual, "ring-8f2c")
		})

		Convey("Then cardiovascular age is in the snapshot but not in the sensor set", func() {
			So(snap.Has(model.KindDailyCardiovascularAge), ShouldBeTrue)
			for _, st := range svc.Sensors() {
				So(st.Metric, ShouldNotEqual, "daily_cardiovascular_age")
				So(st.Available, ShouldBeTrue)
			}
			So(len(svc.Sensors()), ShouldEqual, len(sensor.All()))
		})

		Convey("Then every request used the fixed-clock windows", func() {
			req, ok := fake.RequestFor(model.KindDailyActivity)
			So(ok, ShouldBeTrue)
			So(req.Query.Get("start_date"), ShouldEqual, "2024-11-11")
			So(req.Query.Get("end_date"), ShouldEqual, "2024-11-13")

			req, _ = fake.RequestFor(model.KindHeartRate)
			So(req.Query.Get("start_datetime"), ShouldEqual, "2024-11-12")
			So(req.Query.Get("end_datetime"), ShouldEqual, "2024-11-13")
			So(len(fake.Requests()), ShouldEqual, 9)
		})

		Convey("Then status reports a fresh cycle", func() {
			st := svc.Status()
			So(st.Stale, ShouldBeFalse)
			So(st.Cycles, ShouldEqual, 1)
			So(st.LastCycleID, ShouldEqual, snap.CycleID)
			So(st.Outcomes[model.KindDailySleep].Status, ShouldEqual, model.OutcomeOK)
		})
	})

	Convey("Given the default static ring", t, func() {
		fake, srv, svc := newFixture()
		defer srv.Close()

		snap, err := svc.RunCycle(context.Background())

		Convey("Then the ring endpoint is not called and the placeholder is used", func() {
			So(err, ShouldBeNil)
			_, called := fake.RequestFor(model.KindRing)
			So(called, ShouldBeFalse)
			So(len(fake.Requests()), ShouldEqual, 8)

			ring, ok := snap.Ring()
			So(ok, ShouldBeTrue)
			So(ring, ShouldResemble, model.PlaceholderRing())
			So(snap.Outcomes[model.KindRing].Status, ShouldEqual, model.OutcomeStatic)
			So(svc.Device("Oura").Model, ShouldEqual, "Stealth_black Balance Gen4 Ring")
		})
	})

	Convey("Given one resource returns no items", t, func() {
		fake, srv, svc := newFixture()
		defer srv.Close()
		fake.RespondItems(model.KindDailySleep)

		snap, err := svc.RunCycle(context.Background())

		Convey("Then the cycle succeeds without that key", func() {
			So(err, ShouldBeNil)
			So(snap.Has(model.KindDailySleep), ShouldBeFalse)
			So(snap.Len(), ShouldEqual, 8)
			So(snap.Outcomes[model.KindDailySleep].Status, ShouldEqual, model.OutcomeEmpty)
		})
	})

	Convey("Given one resource has an undecodable item", t, func() {
		fake, srv, svc := newFixture()
		defer srv.Close()
		fake.RespondItems(model.KindDailyStress, fakeoura.Without(model.KindDailyStress, "stress_high"))

		snap, err := svc.RunCycle(context.Background())

		Convey("Then only that resource is omitted", func() {
			So(err, ShouldBeNil)
			So(snap.Has(model.KindDailyStress), ShouldBeFalse)
			So(snap.Outcomes[model.KindDailyStress].Status, ShouldEqual, model.OutcomeDecodeError)
			So(snap.Outcomes[model.KindDailyStress].Error, ShouldContainSubstring, "stress_high")
		})
	})
}

func TestRunCycleFailures(t *testing.T) {
	Convey("Given a previous successful cycle", t, func() {
		pub := &recordingPublisher{}
		fake, srv, svc := newFixture(service.WithPublishers(pub))
		defer srv.Close()

		first, err := svc.RunCycle(context.Background())
		So(err, ShouldBeNil)

		Convey("When exactly one resource lacks the data key", func() {
			fake.Respond(model.KindDailyResilience, http.StatusOK, []byte(`{"detail":"changed"}`))
			snap, err := svc.RunCycle(context.Background())

			Convey("Then the cycle aborts with no partial mapping", func() {
				So(errors.Is(err, service.ErrCycleFailed), ShouldBeTrue)
				So(errors.Is(err, oura.ErrInvalidResponse), ShouldBeTrue)
				So(snap.Records, ShouldBeNil)
				So(snap.IsZero(), ShouldBeTrue)
			})

			Convey("Then the previous snapshot stays visible and is flagged stale", func() {
				current, err := svc.Snapshot()
				So(err, ShouldBeNil)
				So(current.CycleID, ShouldEqual, first.CycleID)

				st := svc.Status()
				So(st.Stale, ShouldBeTrue)
				So(st.Failures, ShouldEqual, 1)
				So(st.LastError, ShouldContainSubstring, "daily_resilience")
				So(st.Outcomes[model.KindDailyResilience].Status, ShouldEqual, model.OutcomeInvalidResponse)
			})

			Convey("Then publishers are told and not given a new snapshot", func() {
				So(len(pub.snaps), ShouldEqual, 1)
				So(len(pub.stale), ShouldEqual, 1)
			})

			Convey("When the next cycle succeeds", func() {
				fake.Reset()
				_, err := svc.RunCycle(context.Background())
				So(err, ShouldBeNil)
				So(svc.Status().Stale, ShouldBeFalse)
				So(len(pub.snaps), ShouldEqual, 2)
			})
		})

		Convey("When the token is rejected", func() {
			fake.Respond(model.KindDailySleep, http.StatusUnauthorized, []byte(`{"detail":"expired"}`))
			_, err := svc.RunCycle(context.Background())

			So(errors.Is(err, oura.ErrUnauthorized), ShouldBeTrue)
			So(svc.Status().Outcomes[model.KindDailySleep].Status, ShouldEqual, model.OutcomeUnauthorized)
		})
	})

	Convey("Given partial cycles are enabled", t, func() {
		fake, srv, svc := newFixture(service.WithPartialCycles(true))
		defer srv.Close()
		fake.Respond(model.KindDailyResilience, http.StatusOK, []byte(`{"detail":"changed"}`))

		snap, err := svc.RunCycle(context.Background())

		Convey("Then the remaining resources still publish", func() {
			So(err, ShouldBeNil)
			So(snap.Len(), ShouldEqual, 8)
			So(snap.Has(model.KindDailyResilience), ShouldBeFalse)
			So(snap.Outcomes[model.KindDailyResilience].Status, ShouldEqual, model.OutcomeInvalidResponse)
			So(svc.Status().Partial, ShouldBeTrue)
		})
	})

	Convey("Given an API slower than the cycle timeout", t, func() {
		slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
		srv := httptest.NewServer(slow)
		defer srv.Close()
		svc := service.New(oura.New(srv.URL, token), service.WithCycleTimeout(50*time.Millisecond))

		start := time.Now()
		_, err := svc.RunCycle(context.Background())

		Convey("Then the cycle fails promptly instead of hanging", func() {
			So(errors.Is(err, service.ErrCycleFailed), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(time.Since(start), ShouldBeLessThan, time.Second)
			_, err := svc.Snapshot()
			So(errors.Is(err, service.ErrNoSnapshot), ShouldBeTrue)
		})
	})

	Convey("Given a fetcher that panics on one resource", t, func() {
		f := panickingFetcher{kind: model.KindDailySleep}

		Convey("When the cycle is strict", func() {
			svc := service.New(f)
			var err error
			So(func() { _, err = svc.RunCycle(context.Background()) }, ShouldNotPanic)

			Convey("Then it fails like a transport error and records the outcome", func() {
				So(errors.Is(err, service.ErrCycleFailed), ShouldBeTrue)
				So(errors.Is(err, service.ErrFetchIncomplete), ShouldBeTrue)
				st := svc.Status()
				So(st.Stale, ShouldBeTrue)
				So(st.Outcomes[model.KindDailySleep].Status, ShouldEqual, model.OutcomeTransportError)
			})
		})

		Convey("When partial cycles are enabled", func() {
			svc := service.New(f, service.WithPartialCycles(true))
			snap, err := svc.RunCycle(context.Background())

			Convey("Then the other resources still publish", func() {
				So(err, ShouldBeNil)
				So(snap.Has(model.KindDailySleep), ShouldBeFalse)
				So(snap.Has(model.KindHeartRate), ShouldBeTrue)
				So(snap.Outcomes[model.KindDailySleep].Error, ShouldContainSubstring, "fetch did not complete")
			})
		})
	})

	Convey("Given a store that rejects writes", t, func() {
		pub := &recordingPublisher{}
		_, srv, svc := newFixture(service.WithStore(failingStore{}), service.WithPublishers(pub))
		defer srv.Close()

		_, err := svc.RunCycle(context.Background())

		Convey("Then the cycle fails and nothing is published", func() {
			So(errors.Is(err, service.ErrCycleFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "store snapshot")
			So(pub.snaps, ShouldBeEmpty)
			So(pub.stale, ShouldHaveLength, 1)
		})
	})
}

type panickingFetcher struct {
	kind model.Kind
}

func (f panickingFetcher) Fetch(_ context.Context, kind model.Kind) ([]model.Record, error) {
	if kind == f.kind {
		var m map[string]int
		m["boom"]++
	}
	return []model.Record{fakeRecord(kind)}, nil
}

func fakeRecord(kind model.Kind) model.Record {
	rec, err := decode.Decode(kind, fakeoura.Fixture(kind))
	if err != nil {
		panic(err)
	}
	return rec
}

type failingStore struct{}

func (failingStore) Save(context.Context, model.Snapshot) error {
	return errors.New("disk full")
}

func (failingStore) Latest(context.Context) (model.Snapshot, error) {
	return model.Snapshot{}, repository.ErrNotFound
}

type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Fetch(ctx context.Context, kind model.Kind) ([]model.Record, error) {
	f.once.Do(func() { close(f.entered) })
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func TestOverlap(t *testing.T) {
	Convey("Given a cycle in flight", t, func() {
		f := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{})}
		svc := service.New(f, service.WithCycleTimeout(5*time.Second))

		done := make(chan error, 1)
		go func() {
			_, err := svc.RunCycle(context.Background())
			done <- err
		}()
		<-f.entered

		Convey("When another cycle is requested", func() {
			_, err := svc.RunCycle(context.Background())
			close(f.release)
			first := <-done

			Convey("Then it is rejected as busy and the first completes", func() {
				So(errors.Is(err, service.ErrCycleBusy), ShouldBeTrue)
				So(first, ShouldBeNil)
			})
		})
	})
}

func TestSchedule(t *testing.T) {
	Convey("Given a started service with a memory store", t, func() {
		store := repository.NewMemoryStore()
		_, srv, svc := newFixture(
			service.WithInterval(20*time.Millisecond),
			service.WithStore(store),
			service.WithFetchConcurrency(2),
		)
		defer srv.Close()

		So(svc.Start(context.Background()), ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)

		deadline := time.Now().Add(3 * time.Second)
		for svc.Status().Cycles < 2 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		svc.Stop()
		svc.Stop()

		Convey("Then it ran immediately and on the ticker, then stopped", func() {
			st := svc.Status()
			So(st.Cycles, ShouldBeGreaterThanOrEqualTo, 2)
			So(st.Running, ShouldBeFalse)

			latest, err := store.Latest(context.Background())
			So(err, ShouldBeNil)
			So(latest.Len(), ShouldEqual, 9)
		})
	})

	Convey("Given a publisher that fails", t, func() {
		pub := &recordingPublisher{failOn: true}
		_, srv, svc := newFixture(service.WithPublishers(pub))
		defer srv.Close()

		_, err := svc.RunCycle(context.Background())

		Convey("Then the cycle still succeeds", func() {
			So(err, ShouldBeNil)
			So(len(pub.snaps), ShouldEqual, 1)
		})
	})
}
