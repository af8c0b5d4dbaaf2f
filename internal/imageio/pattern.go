package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownPattern is returned by [Pattern] for names it does not know.
var ErrUnknownPattern = errors.New("imageio: unknown pattern")

// Generator fills a synthetic test image.
type Generator func(w, h int, seed int64) *image.NRGBA

var patterns = map[string]Generator{
	"checkerboard": func(w, h int, _ int64) *image.NRGBA { return Checkerboard(w, h, 16) },
	"gradient":     func(w, h int, _ int64) *image.NRGBA { return Gradient(w, h) },
	"noise":        Noise,
}

// Pattern returns a synthetic image by name.
func Pattern(name string, w, h int, seed int64) (*image.NRGBA, error) {
	gen, ok := patterns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownPattern, name, strings.Join(PatternNames(), ", "))
	}
	if w <= 0 || h <= 0 {
		return nil, ErrEmpty
	}
	return gen(w, h, seed), nil
}

func PatternNames() []string {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Checkerboard alternates two saturated colours in square cells.
func Checkerboard(w, h, cell int) *image.NRGBA {
	if cell < 1 {
		cell = 1
	}
	light := color.NRGBA{R: 230, G: 200, B: 40, A: 255}
	dark := color.NRGBA{R: 20, G: 60, B: 180, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetNRGBA(x, y, light)
			} else {
				img.SetNRGBA(x, y, dark)
			}
		}
	}
	return img
}

// Gradient ramps red along x and green along y.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Noise fills every channel but alpha with uniform random bytes.
func Noise(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

// Uniform fills the whole image with c.
func Uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// ParseSize parses "WxH", e.g. "1920x1080".
func ParseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("imageio: size %q must be WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("imageio: bad width in %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("imageio: bad height in %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("imageio: size %q must be positive", s)
	}
	return w, h, nil
}
