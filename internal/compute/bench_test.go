package compute

import (
	"context"
	"testing"

	"github.com/san-kum/parlab/internal/bilateral"
)

func BenchmarkBilateralReference(b *testing.B) {
	src := checkerboard(320, 240, 8)
	dst := bilateral.NewOutput(src)
	p := bilateral.DefaultParams()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bilateral.Reference(src, dst, p)
	}
}

func BenchmarkBilateralCPU(b *testing.B) {
	src := checkerboard(320, 240, 8)
	dst := bilateral.NewOutput(src)
	p := bilateral.DefaultParams()
	dev := NewCPUDevice()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dev.Bilateral(context.Background(), src, dst, p, WorkGroup{})
	}
}

func BenchmarkBilateralCPUGroups(b *testing.B) {
	src := checkerboard(320, 240, 8)
	dst := bilateral.NewOutput(src)
	p := bilateral.DefaultParams()
	dev := NewCPUDevice()
	wg := WorkGroup{Width: 16, Height: 16}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dev.Bilateral(context.Background(), src, dst, p, wg)
	}
}
