package compute

import "errors"

var (
	// ErrInvalidDevice indicates a device index outside the probed list.
	ErrInvalidDevice = errors.New("compute: invalid device index")

	// ErrUnavailable indicates the device cannot run kernels.
	ErrUnavailable = errors.New("compute: device not available")

	// ErrSizeMismatch indicates source and destination images differ in size.
	ErrSizeMismatch = errors.New("compute: source and destination sizes differ")

	// ErrBadWorkGroup indicates a work-group hint with a non-positive side.
	ErrBadWorkGroup = errors.New("compute: work-group dimensions must be positive")

	// ErrDimensionMismatch indicates position and mass vectors of different bodies.
	ErrDimensionMismatch = errors.New("compute: positions and masses disagree on body count")
)

// KernelError wraps a failure raised while building or running a kernel.
type KernelError struct {
	Device  string
	Kernel  string
	Wrapped error
}

func (e *KernelError) Error() string {
	return "compute: " + e.Kernel + " on " + e.Device + ": " + e.Wrapped.Error()
}

func (e *KernelError) Unwrap() error {
	return e.Wrapped
}
