package worker_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/spoofwatch/internal/adapters/mq/queue"
	worker "github.com/okian/spoofwatch/internal/adapters/mq/worker"
	model "github.com/okian/spoofwatch/internal/domain/model"
	logging "github.com/okian/spoofwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// mockQueue feeds chunks through a plain channel.
type mockQueue struct {
	chunks chan model.Chunk
	once   sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{chunks: make(chan model.Chunk, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan model.Chunk {
	return mq.chunks
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.chunks) })
	return nil
}

// mockProcessor reports the record count as Read and fails or panics on
// configured chunk indices.
type mockProcessor struct {
	mu     sync.Mutex
	fail   map[int]error
	panics map[int]bool
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{fail: make(map[int]error), panics: make(map[int]bool)}
}

func (mp *mockProcessor) Process(ctx context.Context, c model.Chunk) (model.ChunkResult, error) {
	mp.mu.Lock()
	err := mp.fail[c.Index]
	panics := mp.panics[c.Index]
	mp.mu.Unlock()

	if panics {
		panic("boom")
	}
	if err != nil {
		return model.ChunkResult{}, err
	}
	return model.ChunkResult{Index: c.Index, Read: len(c.Records)}, nil
}

func receive(t *testing.T, ch <-chan worker.Outcome) worker.Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outcome")
		return worker.Outcome{}
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		proc := newMockProcessor()
		results := make(chan worker.Outcome, 10)

		convey.Convey("When creating a worker with custom options", func() {
			w := worker.NewInMemoryWorker(q, proc, results, worker.WithName("test-worker"))

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, proc, results, worker.WithName("w0"))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)

			convey.Convey("And when processing a chunk", func() {
				q.chunks <- model.Chunk{Index: 4, Records: make([]model.Record, 3)}
				out := receive(t, results)

				convey.Convey("Then it should report the result", func() {
					convey.So(out.Err, convey.ShouldBeNil)
					convey.So(out.Index, convey.ShouldEqual, 4)
					convey.So(out.Result.Read, convey.ShouldEqual, 3)
					convey.So(out.Worker, convey.ShouldEqual, "w0")
				})
			})

			convey.Convey("And when processing fails", func() {
				proc.mu.Lock()
				proc.fail[1] = errors.New("bad chunk")
				proc.mu.Unlock()
				q.chunks <- model.Chunk{Index: 1}
				out := receive(t, results)

				convey.Convey("Then the error should be reported", func() {
					convey.So(out.Err, convey.ShouldNotBeNil)
					convey.So(out.Index, convey.ShouldEqual, 1)
				})
			})

			convey.Convey("And when processing panics", func() {
				proc.mu.Lock()
				proc.panics[2] = true
				proc.mu.Unlock()
				q.chunks <- model.Chunk{Index: 2}
				out := receive(t, results)

				convey.Convey("Then the panic should become an error", func() {
					convey.So(errors.Is(out.Err, worker.ErrPanic), convey.ShouldBeTrue)
					convey.So(out.Index, convey.ShouldEqual, 2)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the queue is closed", func() {
			w := worker.NewInMemoryWorker(q, proc, results)
			_ = q.Close()

			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()

			convey.Convey("Then the worker should exit on its own", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("worker did not exit")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new Pool", t, func() {
		_ = logging.Init()

		proc := newMockProcessor()

		convey.Convey("When creating a pool with default count", func() {
			pool := worker.NewPool(0, newMockQueue(), proc)

			convey.Convey("Then it should use the default size", func() {
				convey.So(pool.Size(), convey.ShouldEqual, worker.DefaultWorkerCount())
				convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When running chunks through a real queue", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(2))
			pool := worker.NewPool(3, q, proc)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			go func() {
				for i := 0; i < 20; i++ {
					_ = q.Submit(ctx, model.Chunk{Index: i, Records: make([]model.Record, i)})
				}
				_ = q.Close()
			}()

			var indices []int
			for out := range pool.Results() {
				convey.So(out.Err, convey.ShouldBeNil)
				convey.So(out.Result.Read, convey.ShouldEqual, out.Index)
				indices = append(indices, out.Index)
			}
			sort.Ints(indices)

			convey.Convey("Then every chunk should be processed exactly once", func() {
				convey.So(len(indices), convey.ShouldEqual, 20)
				for i, idx := range indices {
					convey.So(idx, convey.ShouldEqual, i)
				}
			})

			convey.Convey("Then shutdown should succeed after the results close", func() {
				err := pool.Shutdown(context.Background())
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the collector stops reading and cancels", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(1))
			pool := worker.NewPool(2, q, proc, worker.WithResultBuffer(0))
			ctx, cancel := context.WithCancel(context.Background())

			pool.Start(ctx)
			_ = q.Submit(ctx, model.Chunk{Index: 0})
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			err := pool.Shutdown(shutdownCtx)

			convey.Convey("Then the pool should still tear down", func() {
				convey.So(err, convey.ShouldBeNil)
				for range pool.Results() {
				}
			})
		})

		convey.Convey("When shutting down a pool that never started", func() {
			pool := worker.NewPool(2, newMockQueue(), proc)

			convey.Convey("Then it should return immediately", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})
	})
}
