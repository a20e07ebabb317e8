package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ourabridge/internal/adapters/mq/queue"
	"github.com/okian/ourabridge/internal/adapters/mq/worker"
	"github.com/okian/ourabridge/pkg/logger"
)

func TestRunAll(t *testing.T) {
	convey.Convey("Given nine tasks and a concurrency of three", t, func() {
		var (
			running int32
			peak    int32
			mu      sync.Mutex
			results = make([]int, 9)
		)
		tasks := make([]queue.Task, 9)
		for i := range tasks {
			i := i
			tasks[i] = queue.Task{
				Name: "task",
				Run: func(ctx context.Context) {
					n := atomic.AddInt32(&running, 1)
					mu.Lock()
					if n > peak {
						peak = n
					}
					mu.Unlock()
					time.Sleep(5 * time.Millisecond)
					results[i] = i * i
					atomic.AddInt32(&running, -1)
				},
			}
		}

		err := worker.RunAll(context.Background(), 3, tasks, worker.WithLogger(logger.Nop()))

		convey.Convey("Then every task writes its own slot", func() {
			convey.So(err, convey.ShouldBeNil)
			for i, v := range results {
				convey.So(v, convey.ShouldEqual, i*i)
			}
		})

		convey.Convey("Then no more than three run at once", func() {
			convey.So(peak, convey.ShouldBeLessThanOrEqualTo, 3)
			convey.So(peak, convey.ShouldBeGreaterThan, 0)
		})
	})

	convey.Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var seen int32
		tasks := []queue.Task{
			{Name: "a", Run: func(ctx context.Context) {
				if ctx.Err() != nil {
					atomic.AddInt32(&seen, 1)
				}
			}},
			{Name: "b", Run: func(ctx context.Context) {
				if ctx.Err() != nil {
					atomic.AddInt32(&seen, 1)
				}
			}},
		}

		convey.Convey("Then every task still runs and observes the cancellation", func() {
			convey.So(worker.RunAll(ctx, 4, tasks), convey.ShouldBeNil)
			convey.So(atomic.LoadInt32(&seen), convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given a panicking task", t, func() {
		var ran int32
		tasks := []queue.Task{
			{Name: "boom", Run: func(context.Context) { panic("boom") }},
			{Name: "ok", Run: func(context.Context) { atomic.AddInt32(&ran, 1) }},
		}

		convey.Convey("Then the pool survives and runs the rest", func() {
			convey.So(func() { _ = worker.RunAll(context.Background(), 1, tasks) }, convey.ShouldNotPanic)
			convey.So(atomic.LoadInt32(&ran), convey.ShouldEqual, 1)
		})
	})
}

func TestPoolDrain(t *testing.T) {
	convey.Convey("Given a default-sized pool with queued tasks", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		ctx := context.Background()

		var ran int32
		for i := 0; i < 8; i++ {
			task := queue.Task{Name: "t", Run: func(context.Context) { atomic.AddInt32(&ran, 1) }}
			convey.So(q.Enqueue(ctx, task), convey.ShouldBeNil)
		}

		pool := worker.NewPool(0, q)
		pool.Start(ctx)

		convey.Convey("When drained", func() {
			pool.Drain()

			convey.Convey("Then every task ran and the queue refuses more", func() {
				convey.So(atomic.LoadInt32(&ran), convey.ShouldEqual, 8)
				err := q.Enqueue(ctx, queue.Task{Name: "late"})
				convey.So(errors.Is(err, queue.ErrClosed), convey.ShouldBeTrue)
			})
		})
	})
}
