package bilateral_test

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/parlab/internal/bilateral"
)

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func checkerboard(w, h, cell int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40)
			if (x/cell+y/cell)%2 == 0 {
				v = 210
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v / 2, 255 - v, 255})
		}
	}
	return img
}

func filter(src *image.NRGBA, p bilateral.Params) *image.NRGBA {
	dst := bilateral.NewOutput(src)
	Expect(bilateral.Reference(src, dst, p)).To(Succeed())
	return dst
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// clampedPixel recomputes one output pixel from an explicitly edge-padded
// copy of the image, without any coordinate clamping in the loop.
func clampedPixel(src *image.NRGBA, p bilateral.Params, x, y int) [3]uint8 {
	const r = bilateral.Radius
	w, h := src.Rect.Dx(), src.Rect.Dy()
	padded := image.NewNRGBA(image.Rect(0, 0, w+2*r, h+2*r))
	for py := 0; py < h+2*r; py++ {
		for px := 0; px < w+2*r; px++ {
			sx := min(max(px-r, 0), w-1)
			sy := min(max(py-r, 0), h-1)
			padded.SetNRGBA(px, py, src.NRGBAAt(sx, sy))
		}
	}

	at := func(px, py int) [3]float32 {
		c := padded.NRGBAAt(px, py)
		return [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
	}

	centre := at(x+r, y+r)
	var coeff float32
	var sum [3]float32
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			n := at(x+r+i, y+r+j)
			ns := math32.Sqrt(float32(i*i)+float32(j*j)) / p.SigmaDomain
			dr, dg, db := n[0]-centre[0], n[1]-centre[1], n[2]-centre[2]
			nc := math32.Sqrt(dr*dr+dg*dg+db*db) / p.SigmaRange
			weight := math32.Exp(-0.5*ns*ns) * math32.Exp(-0.5*nc*nc)
			coeff += weight
			for c := range sum {
				sum[c] += weight * n[c]
			}
		}
	}

	var out [3]uint8
	for c := range out {
		out[c] = uint8(min(max(sum[c]/coeff, 0), 1) * 255)
	}
	return out
}

var _ = Describe("Params", func() {
	It("defaults to the exercise values", func() {
		p := bilateral.DefaultParams()
		Expect(p.SigmaDomain).To(Equal(float32(3)))
		Expect(p.SigmaRange).To(Equal(float32(0.2)))
		Expect(p.Validate()).To(Succeed())
	})

	DescribeTable("rejects degenerate sigmas",
		func(p bilateral.Params) {
			Expect(p.Validate()).To(MatchError(bilateral.ErrInvalidParams))
		},
		Entry("zero domain", bilateral.Params{SigmaDomain: 0, SigmaRange: 0.2}),
		Entry("negative range", bilateral.Params{SigmaDomain: 3, SigmaRange: -1}),
		Entry("NaN range", bilateral.Params{SigmaDomain: 3, SigmaRange: math32.NaN()}),
		Entry("infinite domain", bilateral.Params{SigmaDomain: math32.Inf(1), SigmaRange: 0.2}),
	)
})

var _ = Describe("Kernel", func() {
	p := bilateral.DefaultParams()

	It("has unit spatial weight at the centre and decays outwards", func() {
		k := bilateral.NewKernel(p)
		Expect(k.SpatialWeight(0, 0)).To(Equal(float32(1)))
		Expect(k.SpatialWeight(1, 0)).To(BeNumerically("<", float32(1)))
		Expect(k.SpatialWeight(2, 2)).To(BeNumerically("<", k.SpatialWeight(1, 1)))
		Expect(k.SpatialWeight(-2, 1)).To(Equal(k.SpatialWeight(2, -1)))
	})

	Context("on a uniform image", func() {
		DescribeTable("reproduces extreme levels exactly",
			func(v uint8, sd, sr float32) {
				src := uniform(7, 5, color.NRGBA{v, v, v, 255})
				dst := filter(src, bilateral.Params{SigmaDomain: sd, SigmaRange: sr})
				Expect(dst.Pix).To(Equal(src.Pix))
			},
			Entry("black", uint8(0), float32(3), float32(0.2)),
			Entry("white", uint8(255), float32(3), float32(0.2)),
			Entry("white, narrow sigmas", uint8(255), float32(0.5), float32(0.01)),
			Entry("black, wide sigmas", uint8(0), float32(50), float32(10)),
		)

		DescribeTable("stays within one truncation step for mid levels",
			func(c color.NRGBA, sd, sr float32) {
				src := uniform(6, 6, c)
				dst := filter(src, bilateral.Params{SigmaDomain: sd, SigmaRange: sr})
				for i := range src.Pix {
					Expect(absDiff(dst.Pix[i], src.Pix[i])).To(BeNumerically("<=", 1), "byte %d", i)
				}
			},
			Entry("gray", color.NRGBA{128, 128, 128, 255}, float32(3), float32(0.2)),
			Entry("colour", color.NRGBA{37, 200, 91, 255}, float32(1), float32(0.05)),
			Entry("translucent", color.NRGBA{12, 240, 180, 77}, float32(8), float32(2)),
		)
	})

	It("keeps an impulse strongest at its own location", func() {
		src := uniform(9, 9, color.NRGBA{128, 128, 128, 255})
		src.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})

		dst := filter(src, p)

		centre := dst.NRGBAAt(0, 0)
		diag := dst.NRGBAAt(2, 2)
		Expect(centre.R).To(BeNumerically(">", diag.R))
		Expect(centre.R).To(BeNumerically(">", 250))
		Expect(absDiff(diag.R, 128)).To(BeNumerically("<=", 1))
	})

	It("copies alpha unchanged", func() {
		src := checkerboard(11, 7, 2)
		for y := 0; y < 7; y++ {
			for x := 0; x < 11; x++ {
				c := src.NRGBAAt(x, y)
				c.A = uint8((x*37 + y*91) % 256)
				src.SetNRGBA(x, y, c)
			}
		}

		dst := filter(src, p)
		for y := 0; y < 7; y++ {
			for x := 0; x < 11; x++ {
				Expect(dst.NRGBAAt(x, y).A).To(Equal(src.NRGBAAt(x, y).A), "pixel (%d,%d)", x, y)
			}
		}
	})

	It("replicates edges instead of reading outside the image", func() {
		src := uniform(6, 5, color.NRGBA{10, 10, 10, 255})
		src.SetNRGBA(0, 0, color.NRGBA{250, 250, 250, 255})
		src.SetNRGBA(5, 4, color.NRGBA{200, 30, 120, 255})
		src.SetNRGBA(5, 0, color.NRGBA{90, 180, 20, 255})
		wide := bilateral.Params{SigmaDomain: 3, SigmaRange: 0.3}

		dst := filter(src, wide)

		for _, pt := range []image.Point{{0, 0}, {5, 0}, {0, 4}, {5, 4}} {
			want := clampedPixel(src, wide, pt.X, pt.Y)
			got := dst.NRGBAAt(pt.X, pt.Y)
			Expect(absDiff(got.R, want[0])).To(BeNumerically("<=", 1), "corner %v red", pt)
			Expect(absDiff(got.G, want[1])).To(BeNumerically("<=", 1), "corner %v green", pt)
			Expect(absDiff(got.B, want[2])).To(BeNumerically("<=", 1), "corner %v blue", pt)
		}

		// A zero-padded window would pull the bright corner well below 200.
		Expect(dst.NRGBAAt(0, 0).R).To(BeNumerically(">", 200))
	})

	It("is deterministic across runs", func() {
		src := checkerboard(32, 24, 3)
		a := filter(src, p)
		b := filter(src, p)
		Expect(a.Pix).To(Equal(b.Pix))
	})

	It("filters sub-rectangles independently of the rest of the image", func() {
		src := checkerboard(20, 16, 4)
		want := filter(src, p)

		got := bilateral.NewOutput(src)
		k := bilateral.NewKernel(p)
		k.Rect(src, got, image.Rect(0, 0, 20, 8))
		k.Rect(src, got, image.Rect(0, 8, 20, 16))
		k.Rect(src, got, image.Rect(-5, -5, 0, 0))
		Expect(got.Pix).To(Equal(want.Pix))
	})

	It("honours a non-zero source origin", func() {
		full := checkerboard(16, 16, 2)
		sub := full.SubImage(image.Rect(4, 4, 12, 12)).(*image.NRGBA)

		compact := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				compact.SetNRGBA(x, y, full.NRGBAAt(x+4, y+4))
			}
		}

		Expect(filter(sub, p).Pix).To(Equal(filter(compact, p).Pix))
	})

	It("rejects mismatched destinations", func() {
		src := checkerboard(8, 8, 2)
		dst := image.NewNRGBA(image.Rect(0, 0, 4, 8))
		Expect(bilateral.Reference(src, dst, p)).To(MatchError(bilateral.ErrSizeMismatch))
	})
})
