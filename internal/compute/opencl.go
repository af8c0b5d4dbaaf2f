//go:build opencl

package compute

import (
	"context"
	_ "embed"
	"fmt"
	"image"
	"sync"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	cl "github.com/jgillich/go-opencl"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/parlab/internal/bilateral"
)

//go:embed kernels/bilateral.cl
var bilateralSource string

const buildOptions = "-cl-fast-relaxed-math -cl-single-precision-constant"

// OpenCLDevice runs the bilateral kernel on an OpenCL device. The context,
// queue and program are created on first use. N-body forces run on the CPU.
type OpenCLDevice struct {
	device   *cl.Device
	platform string
	log      *logrus.Entry
	cpu      *CPUDevice

	once    sync.Once
	initErr error
	mu      sync.Mutex
	ctx     *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	kernel  *cl.Kernel
}

func probeOpenCL(log *logrus.Entry) ([]Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, fmt.Errorf("opencl: list platforms: %w", err)
	}

	var devs []Device
	var errs error
	for _, p := range platforms {
		ds, err := p.GetDevices(cl.DeviceTypeAll)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("opencl: platform %s: %w", p.Name(), err))
			continue
		}
		for _, d := range ds {
			devs = append(devs, &OpenCLDevice{
				device:   d,
				platform: p.Name(),
				log:      log.WithField("device", d.Name()),
				cpu:      NewCPUDevice(),
			})
		}
	}
	return devs, errs
}

func (o *OpenCLDevice) Name() string    { return o.device.Name() }
func (o *OpenCLDevice) Kind() Kind      { return KindOpenCL }
func (o *OpenCLDevice) Available() bool { return o.device != nil }

func (o *OpenCLDevice) Describe() string {
	return fmt.Sprintf("%s, %s, %d compute units, %d MiB",
		o.platform, o.device.Vendor(), o.device.MaxComputeUnits(), o.device.GlobalMemSize()>>20)
}

func (o *OpenCLDevice) init() error {
	o.once.Do(func() {
		o.initErr = o.build()
	})
	return o.initErr
}

func (o *OpenCLDevice) build() error {
	ctx, err := cl.CreateContext([]*cl.Device{o.device})
	if err != nil {
		return o.fail("context", err)
	}
	o.ctx = ctx

	queue, err := ctx.CreateCommandQueue(o.device, 0)
	if err != nil {
		return o.fail("queue", err)
	}
	o.queue = queue

	program, err := ctx.CreateProgramWithSource([]string{bilateralSource})
	if err != nil {
		return o.fail("program", err)
	}
	o.program = program

	if err := program.BuildProgram([]*cl.Device{o.device}, buildOptions); err != nil {
		o.log.WithError(err).Error("bilateral kernel failed to build")
		return o.fail("build", err)
	}

	kernel, err := program.CreateKernel("bilateral")
	if err != nil {
		return o.fail("kernel", err)
	}
	o.kernel = kernel

	o.log.WithField("options", buildOptions).Debug("built bilateral kernel")
	return nil
}

func (o *OpenCLDevice) fail(stage string, err error) error {
	return &KernelError{Device: o.Name(), Kernel: "bilateral", Wrapped: fmt.Errorf("%s: %w", stage, err)}
}

// Bilateral uploads src, runs one work-item per pixel and reads the result
// back into dst. The work group, when set, becomes the local size and the
// global size is rounded up to a multiple of it.
func (o *OpenCLDevice) Bilateral(ctx context.Context, src, dst *image.NRGBA, p bilateral.Params, wg WorkGroup) error {
	if src.Rect.Size() != dst.Rect.Size() {
		return ErrSizeMismatch
	}
	if err := wg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.init(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	w, h := src.Rect.Dx(), src.Rect.Dy()
	size := w * h * 4
	if size == 0 {
		return nil
	}
	in := packed(src)

	input, err := o.ctx.CreateEmptyBuffer(cl.MemReadOnly, size)
	if err != nil {
		return o.fail("input buffer", err)
	}
	defer input.Release()

	output, err := o.ctx.CreateEmptyBuffer(cl.MemWriteOnly, size)
	if err != nil {
		return o.fail("output buffer", err)
	}
	defer output.Release()

	if _, err := o.queue.EnqueueWriteBuffer(input, true, 0, size, unsafe.Pointer(&in[0]), nil); err != nil {
		return o.fail("write", err)
	}

	if err := o.kernel.SetArgs(input, output, int32(w), int32(h), p.SigmaDomain, p.SigmaRange); err != nil {
		return o.fail("args", err)
	}

	global := []int{w, h}
	var local []int
	if !wg.IsZero() {
		local = []int{wg.Width, wg.Height}
		global = []int{roundUp(w, wg.Width), roundUp(h, wg.Height)}
	}
	if _, err := o.queue.EnqueueNDRangeKernel(o.kernel, nil, global, local, nil); err != nil {
		return o.fail("enqueue", err)
	}
	if err := o.queue.Finish(); err != nil {
		return o.fail("finish", err)
	}

	out := in
	if _, err := o.queue.EnqueueReadBuffer(output, true, 0, size, unsafe.Pointer(&out[0]), nil); err != nil {
		return o.fail("read", err)
	}
	unpack(dst, out)
	return nil
}

func (o *OpenCLDevice) NBodyForces(ctx context.Context, positions, masses []float64, g, softening float64) ([]float64, []float64, error) {
	return o.cpu.NBodyForces(ctx, positions, masses, g, softening)
}

func (o *OpenCLDevice) Cleanup() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.kernel != nil {
		o.kernel.Release()
		o.kernel = nil
	}
	if o.program != nil {
		o.program.Release()
		o.program = nil
	}
	if o.queue != nil {
		o.queue.Release()
		o.queue = nil
	}
	if o.ctx != nil {
		o.ctx.Release()
		o.ctx = nil
	}
}

func roundUp(v, m int) int {
	return (v + m - 1) / m * m
}
