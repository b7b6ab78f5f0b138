package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/spotcheck/internal/adapters/mq/queue"
	worker "github.com/okian/spotcheck/internal/adapters/mq/worker"
	model "github.com/okian/spotcheck/internal/domain/model"
	logging "github.com/okian/spotcheck/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockSender struct {
	mu    sync.Mutex
	sent  []model.MinerUID
	fail  map[model.MinerUID]error
	delay time.Duration
}

func newMockSender() *mockSender {
	return &mockSender{fail: make(map[model.MinerUID]error)}
}

func (ms *mockSender) Send(ctx context.Context, job queue.Job) error {
	if ms.delay > 0 {
		select {
		case <-time.After(ms.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err, ok := ms.fail[job.MinerUID]; ok {
		return err
	}
	ms.sent = append(ms.sent, job.MinerUID)
	return nil
}

func (ms *mockSender) delivered() []model.MinerUID {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]model.MinerUID(nil), ms.sent...)
}

func digestJob(uid string) queue.Job {
	return queue.Job{
		DatasetType: model.DatasetGoogleMapsReviews,
		MinerUID:    model.MinerUID(uid),
		Reviews:     []model.Review{{ReviewID: "r-" + uid}},
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		sender := newMockSender()

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, sender,
				worker.WithName("test-worker"),
				worker.WithJobTimeout(time.Second),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, sender)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And jobs arrive", func() {
				sender.fail["bad"] = errors.New("platform down")
				q.jobs <- digestJob("1")
				q.jobs <- digestJob("bad")
				q.jobs <- digestJob("2")
				_ = q.Close()

				select {
				case <-w.Done():
				case <-time.After(time.Second):
				}

				convey.Convey("Then it should deliver each job and keep going after a failure", func() {
					convey.So(sender.delivered(), convey.ShouldResemble, []model.MinerUID{"1", "2"})
				})
			})

			convey.Convey("And the worker is shut down", func() {
				err := w.Shutdown(context.Background())

				convey.Convey("Then it should stop cleanly", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})

			convey.Convey("And the worker is shut down twice", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)

				convey.Convey("Then the second shutdown should be a no-op", func() {
					convey.So(func() { _ = w.Shutdown(context.Background()) }, convey.ShouldNotPanic)
				})
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		sender := newMockSender()
		pool := worker.NewPool(3, q, sender)

		convey.Convey("When jobs are enqueued and the pool shuts down", func() {
			pool.Start(context.Background())
			for _, uid := range []string{"a", "b", "c", "d", "e"} {
				convey.So(q.Enqueue(context.Background(), digestJob(uid)), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(context.Background())

			convey.Convey("Then every queued job should be drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(sender.delivered(), convey.ShouldHaveLength, 5)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a delivery outlasts the drain deadline", func() {
			sender.delay = 500 * time.Millisecond
			pool.Start(context.Background())
			convey.So(q.Enqueue(context.Background(), digestJob("slow")), convey.ShouldBeTrue)
			time.Sleep(20 * time.Millisecond)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then shutdown should report the stuck workers", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the pool is sized automatically", func() {
			auto := worker.NewPool(0, q, sender)

			convey.Convey("Then it should have at least one worker", func() {
				convey.So(auto.Size(), convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}
