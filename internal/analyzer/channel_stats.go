package analyzer

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats summarises the samples of one channel. Min, Max, Mean and
// StdDev cover finite samples only and are zero when there are none.
type ChannelStats struct {
	Channel    int     `json:"channel"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	OutOfRange int     `json:"out_of_range"` // finite samples outside [0, 1]
	NonFinite  int     `json:"non_finite"`   // NaN and ±Inf samples
}

// StatsCalculator computes per-channel statistics over interleaved samples
type StatsCalculator interface {
	CalculateChannelStats(pixels []float32, channels int) []ChannelStats
	Close() error
}

type statsCalculator struct {
	workerPool *WorkerPool
	slicePool  sync.Pool
}

// NewStatsCalculator creates a calculator that spreads channels over
// a worker pool. workers <= 0 uses the CPU count.
func NewStatsCalculator(workers int) StatsCalculator {
	pool := NewWorkerPool(workers)
	pool.Start()

	return &statsCalculator{
		workerPool: pool,
		slicePool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0, 1024)
				return &s
			},
		},
	}
}

// CalculateChannelStats returns one entry per channel. A sample count that
// is not a multiple of channels, or an empty buffer, yields nil.
func (sc *statsCalculator) CalculateChannelStats(pixels []float32, channels int) []ChannelStats {
	if channels <= 0 || len(pixels) == 0 || len(pixels)%channels != 0 {
		return nil
	}

	results := make([]ChannelStats, channels)
	var wg sync.WaitGroup
	for c := 0; c < channels; c++ {
		c := c
		wg.Add(1)
		job := func() {
			defer wg.Done()
			results[c] = sc.channelStats(pixels, channels, c)
		}
		if !sc.workerPool.Submit(job) {
			job()
		}
	}
	wg.Wait()

	return results
}

func (sc *statsCalculator) channelStats(pixels []float32, channels, c int) ChannelStats {
	bufPtr := sc.slicePool.Get().(*[]float64)
	data := (*bufPtr)[:0]
	defer func() {
		*bufPtr = data[:0]
		sc.slicePool.Put(bufPtr)
	}()

	outOfRange, nonFinite := 0, 0
	for i := c; i < len(pixels); i += channels {
		v := float64(pixels[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			nonFinite++
			continue
		}
		if v < 0 || v > 1 {
			outOfRange++
		}
		data = append(data, v)
	}
	if len(data) == 0 {
		return ChannelStats{Channel: c, NonFinite: nonFinite}
	}

	mean, std := stat.MeanStdDev(data, nil)
	if len(data) < 2 {
		std = 0
	}

	return ChannelStats{
		Channel:    c,
		Min:        floats.Min(data),
		Max:        floats.Max(data),
		Mean:       mean,
		StdDev:     std,
		OutOfRange: outOfRange,
		NonFinite:  nonFinite,
	}
}

// Close stops the worker pool
func (sc *statsCalculator) Close() error {
	sc.workerPool.Close()
	return nil
}
