package bilateral

import (
	"errors"
	"image"

	"github.com/chewxy/math32"
)

// Radius of the filter window. The window is always (2*Radius+1) squared;
// changing it breaks parity with the accelerator kernels.
const Radius = 2

const window = 2*Radius + 1

// ErrSizeMismatch is returned when source and destination differ in size.
var ErrSizeMismatch = errors.New("bilateral: source and destination sizes differ")

// Kernel holds the per-run constants of the filter. A Kernel is read-only
// after construction and may be shared between goroutines.
type Kernel struct {
	spatial  [window * window]float32
	invRange float32
}

func NewKernel(p Params) *Kernel {
	k := &Kernel{
		invRange: 1 / p.SigmaRange,
	}

	invDomain := 1 / p.SigmaDomain
	for j := -Radius; j <= Radius; j++ {
		for i := -Radius; i <= Radius; i++ {
			norm := math32.Sqrt(float32(i*i)+float32(j*j)) * invDomain
			k.spatial[(j+Radius)*window+(i+Radius)] = math32.Exp(-0.5 * (norm * norm))
		}
	}

	return k
}

// SpatialWeight returns the domain weight for offset (i, j) of the window.
func (k *Kernel) SpatialWeight(i, j int) float32 {
	return k.spatial[(j+Radius)*window+(i+Radius)]
}

// Pixel filters the pixel at (x, y), relative to the image origin, from src
// into dst.
func (k *Kernel) Pixel(src, dst *image.NRGBA, x, y int) {
	b := src.Rect
	w, h := b.Dx(), b.Dy()

	c := src.PixOffset(b.Min.X+x, b.Min.Y+y)
	cr := float32(src.Pix[c+0]) / 255
	cg := float32(src.Pix[c+1]) / 255
	cb := float32(src.Pix[c+2]) / 255

	var coeff, sr, sg, sb float32

	for j := -Radius; j <= Radius; j++ {
		ny := clamp(y+j, 0, h-1)
		row := k.spatial[(j+Radius)*window:]

		for i := -Radius; i <= Radius; i++ {
			nx := clamp(x+i, 0, w-1)
			o := src.PixOffset(b.Min.X+nx, b.Min.Y+ny)

			r := float32(src.Pix[o+0]) / 255
			g := float32(src.Pix[o+1]) / 255
			bl := float32(src.Pix[o+2]) / 255

			dr, dg, db := r-cr, g-cg, bl-cb
			norm := math32.Sqrt(dr*dr+dg*dg+db*db) * k.invRange
			weight := row[i+Radius] * math32.Exp(-0.5*(norm*norm))

			coeff += weight
			sr += weight * r
			sg += weight * g
			sb += weight * bl
		}
	}

	d := dst.PixOffset(dst.Rect.Min.X+x, dst.Rect.Min.Y+y)
	dst.Pix[d+0] = quantize(sr / coeff)
	dst.Pix[d+1] = quantize(sg / coeff)
	dst.Pix[d+2] = quantize(sb / coeff)
	dst.Pix[d+3] = src.Pix[c+3]
}

// Rect filters every pixel of r, given relative to the image origin. r is
// clipped to the image.
func (k *Kernel) Rect(src, dst *image.NRGBA, r image.Rectangle) {
	r = r.Intersect(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			k.Pixel(src, dst, x, y)
		}
	}
}

// Reference is the serial oracle: it filters src into dst one pixel at a
// time in row-major order.
func Reference(src, dst *image.NRGBA, p Params) error {
	if src.Rect.Size() != dst.Rect.Size() {
		return ErrSizeMismatch
	}

	k := NewKernel(p)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k.Pixel(src, dst, x, y)
		}
	}
	return nil
}

// NewOutput allocates a zeroed destination the size of src, anchored at the
// origin.
func NewOutput(src *image.NRGBA) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
}

// quantize clamps v to [0,1] and truncates it to 8 bits.
func quantize(v float32) uint8 {
	return uint8(math32.Min(math32.Max(v, 0), 1) * 255)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
