package bench

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNoIterations = errors.New("bench: iterations must be at least 1")

// Timing is the wall-clock cost of a repeated kernel launch.
type Timing struct {
	Iterations int             `json:"iterations"`
	Total      time.Duration   `json:"total"`
	Samples    []time.Duration `json:"-"`
}

// PerFrame is the mean time of one iteration.
func (t Timing) PerFrame() time.Duration {
	if t.Iterations == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Iterations)
}

// Millis returns the samples in milliseconds, for plotting.
func (t Timing) Millis() []float64 {
	ms := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		ms[i] = float64(s) / float64(time.Millisecond)
	}
	return ms
}

// Run calls fn iterations times and times each call. It stops at the first
// error or when ctx is done.
func Run(ctx context.Context, iterations int, fn func(ctx context.Context, i int) error) (Timing, error) {
	if iterations < 1 {
		return Timing{}, ErrNoIterations
	}

	t := Timing{Samples: make([]time.Duration, 0, iterations)}
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return t, err
		}

		s := time.Now()
		if err := fn(ctx, i); err != nil {
			return t, fmt.Errorf("iteration %d: %w", i, err)
		}
		t.Samples = append(t.Samples, time.Since(s))
		t.Iterations++
	}
	t.Total = time.Since(start)
	return t, nil
}

// Once times a single call.
func Once(ctx context.Context, fn func(ctx context.Context) error) (Timing, error) {
	return Run(ctx, 1, func(ctx context.Context, _ int) error { return fn(ctx) })
}
