package compute

import (
	"context"
	"fmt"
	"image"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/san-kum/parlab/internal/bilateral"
)

type Kind string

const (
	KindCPU    Kind = "cpu"
	KindOpenCL Kind = "opencl"
)

// WorkGroup is the local work size hint passed to a device. The zero value
// lets the device choose.
type WorkGroup struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func (w WorkGroup) IsZero() bool { return w.Width == 0 && w.Height == 0 }

func (w WorkGroup) Validate() error {
	if w.IsZero() {
		return nil
	}
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadWorkGroup, w.Width, w.Height)
	}
	return nil
}

func (w WorkGroup) String() string {
	if w.IsZero() {
		return "auto"
	}
	return fmt.Sprintf("%dx%d", w.Width, w.Height)
}

// Device runs the exercise kernels. Implementations must leave src
// untouched and write every pixel of dst exactly once per call.
type Device interface {
	Name() string
	Kind() Kind
	Available() bool
	// Describe returns a one-line summary of the device's capabilities.
	Describe() string
	Bilateral(ctx context.Context, src, dst *image.NRGBA, p bilateral.Params, wg WorkGroup) error
	NBodyForces(ctx context.Context, positions, masses []float64, g, softening float64) (ax, ay []float64, err error)
	Cleanup()
}

// Probe lists the devices on this machine. Accelerators come first, the CPU
// device is always last, so index 0 is the best available device. A non-nil
// error reports accelerators that failed to enumerate; the returned list is
// still usable.
func Probe(log *logrus.Entry) ([]Device, error) {
	var errs error

	accel, err := probeOpenCL(log)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	devs := make([]Device, 0, len(accel)+1)
	for _, d := range accel {
		if d.Available() {
			devs = append(devs, d)
			continue
		}
		log.WithField("device", d.Name()).Warn("skipping unavailable device")
	}
	devs = append(devs, NewCPUDevice())

	log.WithField("count", len(devs)).Debug("probed compute devices")
	return devs, errs
}

// Select returns devs[index], ErrInvalidDevice when index is out of range or
// ErrUnavailable when the device cannot run kernels.
func Select(devs []Device, index int) (Device, error) {
	if index < 0 || index >= len(devs) {
		return nil, fmt.Errorf("%w: %d (have %d, try 'devices')", ErrInvalidDevice, index, len(devs))
	}
	if !devs[index].Available() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, devs[index].Name())
	}
	return devs[index], nil
}

// Cleanup releases every device in devs.
func Cleanup(devs []Device) {
	for _, d := range devs {
		d.Cleanup()
	}
}
