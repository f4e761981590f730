package service_test

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/okian/spoofwatch/internal/adapters/ingest"
	"github.com/okian/spoofwatch/internal/adapters/mq/worker"
	service "github.com/okian/spoofwatch/internal/app"
	"github.com/okian/spoofwatch/internal/domain/chunk"
	"github.com/okian/spoofwatch/internal/domain/model"
	"github.com/okian/spoofwatch/internal/synthetic"
	"github.com/okian/spoofwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// faultyProcessor delegates to a real pipeline but fails or panics on one chunk.
type faultyProcessor struct {
	inner  chunk.Processor
	failAt int
	panics bool
}

func (f *faultyProcessor) Process(ctx context.Context, c model.Chunk) (model.ChunkResult, error) {
	if c.Index == f.failAt {
		if f.panics {
			panic("corrupt chunk")
		}
		return model.ChunkResult{}, errors.New("corrupt chunk")
	}
	return f.inner.Process(ctx, c)
}

// cancellingProcessor cancels the caller's context while the first chunk is
// still being processed.
type cancellingProcessor struct {
	inner  chunk.Processor
	cancel context.CancelFunc
}

func (c *cancellingProcessor) Process(ctx context.Context, ch model.Chunk) (model.ChunkResult, error) {
	res, err := c.inner.Process(ctx, ch)
	if ch.Index == 0 {
		c.cancel()
		<-ctx.Done()
	}
	return res, err
}

// brokenSource yields one chunk and then fails.
type brokenSource struct{ calls int }

func (b *brokenSource) Next(ctx context.Context) (model.Chunk, error) {
	b.calls++
	if b.calls == 1 {
		return model.Chunk{Index: 0}, nil
	}
	return model.Chunk{}, io.ErrUnexpectedEOF
}

func positions(t *testing.T) []model.Record {
	t.Helper()
	recs, _, err := synthetic.Generate(context.Background(), synthetic.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should run sequentially", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Strategy().Name(), ShouldEqual, service.StrategySequential)
		})
	})

	Convey("Given strategy names", t, func() {
		Convey("When the name is known", func() {
			s, err := service.StrategyFor(service.StrategyParallel, 3, 0)

			Convey("Then the strategy should be built", func() {
				So(err, ShouldBeNil)
				So(s.Name(), ShouldEqual, service.StrategyParallel)
				So(s.(*service.Parallel).Workers(), ShouldEqual, 3)
			})
		})

		Convey("When the worker count is not set", func() {
			p := service.NewParallel(0, 0)

			Convey("Then it should default to one less than the CPU count", func() {
				So(p.Workers(), ShouldEqual, worker.DefaultWorkerCount())
			})
		})

		Convey("When the name is unknown", func() {
			_, err := service.StrategyFor("threads", 0, 0)

			Convey("Then it should fail", func() {
				So(errors.Is(err, service.ErrUnknownStrategy), ShouldBeTrue)
			})
		})
	})
}

func TestService_Equivalence(t *testing.T) {
	Convey("Given a synthetic position log", t, func() {
		ctx := context.Background()
		recs := positions(t)
		schema := model.Schema{HasSOG: true, HasCOG: true}
		proc := chunk.NewPipeline(chunk.WithNeighbors(true))

		seq, err := service.New(service.WithProcessor(proc)).
			Run(ctx, ingest.NewSliceReader(recs, schema, 300))
		So(err, ShouldBeNil)

		for _, workers := range []int{1, 3, 8} {
			par, err := service.New(
				service.WithProcessor(proc),
				service.WithStrategy(service.NewParallel(workers, 2)),
			).Run(ctx, ingest.NewSliceReader(recs, schema, 300))

			Convey("When run in parallel with "+strconv.Itoa(workers)+" workers", func() {
				Convey("Then the counts should match the sequential run", func() {
					So(err, ShouldBeNil)
					So(par.Chunks, ShouldEqual, seq.Chunks)
					So(par.Read, ShouldEqual, len(recs))
					So(len(par.Cleaned), ShouldEqual, len(seq.Cleaned))
					So(len(par.Anomalies), ShouldEqual, len(seq.Anomalies))
					So(len(seq.Anomalies), ShouldBeGreaterThan, 0)
				})

				Convey("Then the records themselves should match", func() {
					So(par.Cleaned, ShouldResemble, seq.Cleaned)
					So(par.Anomalies, ShouldResemble, seq.Anomalies)
				})

				Convey("Then every chunk should have a latency", func() {
					So(len(par.ChunkLatencies), ShouldEqual, par.Chunks)
					So(par.Workers, ShouldEqual, workers)
				})
			})
		}

		Convey("When the sequential result is inspected", func() {
			Convey("Then it should cover every chunk", func() {
				So(seq.Chunks, ShouldEqual, (len(recs)+299)/300)
				So(seq.Strategy, ShouldEqual, service.StrategySequential)
				So(seq.Read-seq.Dropped, ShouldEqual, len(seq.Cleaned))
			})
		})
	})
}

func TestService_Failures(t *testing.T) {
	Convey("Given a processor that fails on the third chunk", t, func() {
		ctx := context.Background()
		recs := positions(t)
		schema := model.Schema{HasSOG: true, HasCOG: true}
		strategies := []struct {
			name  string
			build func() service.Strategy
		}{
			{"sequential", func() service.Strategy { return service.NewSequential() }},
			{"parallel", func() service.Strategy { return service.NewParallel(3, 1) }},
		}

		for _, st := range strategies {
			name, build := st.name, st.build
			Convey("When running "+name, func() {
				proc := &faultyProcessor{inner: chunk.NewPipeline(), failAt: 2}
				res, err := service.New(service.WithProcessor(proc), service.WithStrategy(build())).
					Run(ctx, ingest.NewSliceReader(recs, schema, 100))

				Convey("Then the whole run should fail with no output", func() {
					So(errors.Is(err, service.ErrChunkFailed), ShouldBeTrue)
					So(res.Cleaned, ShouldBeEmpty)
					So(res.Anomalies, ShouldBeEmpty)
				})
			})

			Convey("When the processor panics under "+name, func() {
				proc := &faultyProcessor{inner: chunk.NewPipeline(), failAt: 1, panics: true}
				_, err := service.New(service.WithProcessor(proc), service.WithStrategy(build())).
					Run(ctx, ingest.NewSliceReader(recs, schema, 100))

				Convey("Then the panic should surface as a chunk failure", func() {
					So(errors.Is(err, service.ErrChunkFailed), ShouldBeTrue)
					So(errors.Is(err, worker.ErrPanic), ShouldBeTrue)
				})
			})

			Convey("When the source breaks under "+name, func() {
				_, err := service.New(service.WithStrategy(build())).Run(ctx, &brokenSource{})

				Convey("Then the run should fail with a source error", func() {
					So(errors.Is(err, service.ErrSource), ShouldBeTrue)
					So(errors.Is(err, io.ErrUnexpectedEOF), ShouldBeTrue)
				})
			})

			Convey("When the source is empty under "+name, func() {
				res, err := service.New(service.WithStrategy(build())).
					Run(ctx, ingest.NewSliceReader(nil, schema, 100))

				Convey("Then the run should succeed with nothing", func() {
					So(err, ShouldBeNil)
					So(res.Chunks, ShouldEqual, 0)
					So(res.Cleaned, ShouldBeEmpty)
				})
			})

			Convey("When the context is cancelled under "+name, func() {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				_, err := service.New(service.WithStrategy(build())).
					Run(cctx, ingest.NewSliceReader(recs, schema, 100))

				Convey("Then the run should fail", func() {
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
				})
			})
		}
	})
}

func TestService_CancelMidRun(t *testing.T) {
	Convey("Given a run that is cancelled while the first chunk is in flight", t, func() {
		recs := positions(t)
		schema := model.Schema{HasSOG: true, HasCOG: true}
		strategies := []struct {
			name  string
			build func() service.Strategy
		}{
			{"sequential", func() service.Strategy { return service.NewSequential() }},
			{"parallel", func() service.Strategy { return service.NewParallel(2, 64) }},
		}

		for _, st := range strategies {
			name, build := st.name, st.build
			Convey("When running "+name, func() {
				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()
				proc := &cancellingProcessor{inner: chunk.NewPipeline(), cancel: cancel}
				res, err := service.New(service.WithProcessor(proc), service.WithStrategy(build())).
					Run(ctx, ingest.NewSliceReader(recs, schema, 100))

				Convey("Then the run should report the cancellation", func() {
					So(len(recs), ShouldBeGreaterThan, 100)
					So(errors.Is(err, context.Canceled), ShouldBeTrue)
					So(errors.Is(err, service.ErrIncomplete), ShouldBeFalse)
					So(res.Cleaned, ShouldBeEmpty)
				})
			})
		}
	})
}
