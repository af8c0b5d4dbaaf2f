package compute

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/parlab/internal/bilateral"
)

// serialBodies is the body count below which forces are summed on the
// calling goroutine.
const serialBodies = 16

type CPUDevice struct {
	workers int
}

func NewCPUDevice() *CPUDevice {
	return NewCPUDeviceWorkers(runtime.NumCPU())
}

// NewCPUDeviceWorkers returns a CPU device that uses at most workers
// goroutines at a time.
func NewCPUDeviceWorkers(workers int) *CPUDevice {
	if workers < 1 {
		workers = 1
	}
	return &CPUDevice{workers: workers}
}

func (c *CPUDevice) Name() string {
	if name := strings.TrimSpace(cpuid.CPU.BrandName); name != "" {
		return name
	}
	return "cpu"
}

func (c *CPUDevice) Kind() Kind      { return KindCPU }
func (c *CPUDevice) Available() bool { return true }
func (c *CPUDevice) Cleanup()        {}
func (c *CPUDevice) Workers() int    { return c.workers }

func (c *CPUDevice) Describe() string {
	simd := "scalar"
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		simd = "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2):
		simd = "avx2"
	case cpuid.CPU.Supports(cpuid.ASIMD):
		simd = "neon"
	}
	return fmt.Sprintf("%d workers, %d physical cores, %s, %s/%s",
		c.workers, cpuid.CPU.PhysicalCores, simd, runtime.GOOS, runtime.GOARCH)
}

// Bilateral filters src into dst, one tile per task. Tiles are disjoint so
// workers never write the same pixel.
func (c *CPUDevice) Bilateral(ctx context.Context, src, dst *image.NRGBA, p bilateral.Params, wg WorkGroup) error {
	if src.Rect.Size() != dst.Rect.Size() {
		return ErrSizeMismatch
	}
	if err := wg.Validate(); err != nil {
		return err
	}

	k := bilateral.NewKernel(p)
	tiles := Tiles(src.Rect.Dx(), src.Rect.Dy(), wg, c.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, t := range tiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			k.Rect(src, dst, t)
			return nil
		})
	}
	return g.Wait()
}

// NBodyForces returns the softened gravitational acceleration on every body.
// positions holds interleaved (x, y) pairs.
func (c *CPUDevice) NBodyForces(ctx context.Context, positions, masses []float64, g, softening float64) ([]float64, []float64, error) {
	n := len(masses)
	if len(positions) != 2*n {
		return nil, nil, fmt.Errorf("%w: %d coordinates for %d masses", ErrDimensionMismatch, len(positions), n)
	}

	ax := make([]float64, n)
	ay := make([]float64, n)

	if n < serialBodies || c.workers == 1 {
		accumulate(positions, masses, g, softening, ax, ay, 0, n)
		return ax, ay, ctx.Err()
	}

	chunk := (n + c.workers - 1) / c.workers
	eg, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			accumulate(positions, masses, g, softening, ax, ay, start, end)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return ax, ay, nil
}

// accumulate sums the acceleration of bodies [start, end) over all other
// bodies. Each body is owned by exactly one caller.
func accumulate(pos, masses []float64, g, eps float64, ax, ay []float64, start, end int) {
	n := len(masses)
	eps2 := eps * eps

	for i := start; i < end; i++ {
		xi, yi := pos[i*2], pos[i*2+1]
		var sx, sy float64

		for j := 0; j < n; j++ {
			if i == j {
				continue
			}

			rx := pos[j*2] - xi
			ry := pos[j*2+1] - yi
			r2 := rx*rx + ry*ry + eps2

			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			f := g * masses[j] * r3Inv
			sx += f * rx
			sy += f * ry
		}

		ax[i] = sx
		ay[i] = sy
	}
}
