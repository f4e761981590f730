// Package sampler measures wall time, CPU and memory of a function call by
// polling the running process.
package sampler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/okian/spoofwatch/pkg/logger"
)

const bytesPerMB = 1024 * 1024

// Usage summarises one measured call.
type Usage struct {
	Elapsed   time.Duration
	PeakCPU   float64 // system CPU percent
	MeanCPU   float64
	PeakMemMB float64 // process RSS
	MeanMemMB float64
	Samples   int
}

// Sampler polls system CPU percent and process RSS.
type Sampler struct {
	interval time.Duration
	proc     *process.Process
	logger   logger.Logger
}

// New creates a Sampler for the current process.
func New(opts ...Option) (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits int32
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcess, err)
	}
	s := &Sampler{
		interval: DefaultInterval,
		proc:     proc,
		logger:   logger.Get().Named("sampler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Interval returns the polling period.
func (s *Sampler) Interval() time.Duration { return s.interval }

// Measure runs fn while sampling every interval. The usage is returned even
// when fn fails.
func (s *Sampler) Measure(ctx context.Context, fn func(ctx context.Context) error) (Usage, error) {
	var (
		cpuSeries []float64
		memSeries []float64
	)
	take := func() {
		if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
			cpuSeries = append(cpuSeries, pct[0])
		}
		if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
			memSeries = append(memSeries, float64(mem.RSS)/bytesPerMB)
		}
	}

	// Prime the CPU counters so the first reading covers this call only.
	_, _ = cpu.PercentWithContext(ctx, 0, false)
	take()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				take()
			}
		}
	}()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	close(stop)
	<-done
	take()

	usage := Usage{Elapsed: elapsed, Samples: len(memSeries)}
	usage.PeakCPU, usage.MeanCPU = summarise(cpuSeries)
	usage.PeakMemMB, usage.MeanMemMB = summarise(memSeries)

	s.logger.Debug(ctx, "measured call",
		logger.Duration("elapsed", elapsed),
		logger.Float64("peak_cpu", usage.PeakCPU),
		logger.Float64("peak_mem_mb", usage.PeakMemMB),
		logger.Int("samples", usage.Samples),
	)
	return usage, err
}

// summarise returns the max and mean of a series, or zeros when empty.
func summarise(series []float64) (peak, mean float64) {
	data := stats.Float64Data(series)
	peak, err := stats.Max(data)
	if err != nil {
		return 0, 0
	}
	mean, _ = stats.Mean(data)
	return peak, mean
}

// Percentile returns the p-th percentile of durations in milliseconds.
func Percentile(ds []time.Duration, p float64) (float64, error) {
	if len(ds) == 0 {
		return 0, ErrNoSamples
	}
	data := make(stats.Float64Data, len(ds))
	for i, d := range ds {
		data[i] = float64(d.Microseconds()) / 1000
	}
	if len(data) == 1 {
		return data[0], nil
	}
	v, err := stats.Percentile(data, p)
	if err != nil {
		return 0, fmt.Errorf("percentile %v: %w", p, err)
	}
	return v, nil
}
