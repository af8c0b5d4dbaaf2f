package verify

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// MaxShown is how many mismatches a Report keeps for display.
const MaxShown = 8

var ErrSizeMismatch = errors.New("verify: images differ in size")

// Mismatch is one channel whose difference exceeded the tolerance.
type Mismatch struct {
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Channel int   `json:"channel"`
	Got     uint8 `json:"got"`
	Want    uint8 `json:"want"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("(%d,%d,%d): %d vs %d", m.X, m.Y, m.Channel, m.Got, m.Want)
}

type Report struct {
	Checked    int        `json:"checked"`
	Tolerance  int        `json:"tolerance"`
	Errors     int        `json:"errors"`
	MaxDiff    int        `json:"max_diff"`
	Mismatches []Mismatch `json:"mismatches"`
	// Histogram[d] counts channels that differ by exactly d.
	Histogram [256]int `json:"-"`
}

func (r *Report) Passed() bool { return r.Errors == 0 }

// CompareImages checks the RGB channels of got against want. Alpha is not
// compared. Every mismatch is counted; only the first MaxShown in row-major
// order are kept. visit, if non-nil, sees every mismatch.
func CompareImages(got, want *image.NRGBA, tolerance int, visit func(Mismatch)) (*Report, error) {
	if got.Rect.Size() != want.Rect.Size() {
		return nil, fmt.Errorf("%w: %v vs %v", ErrSizeMismatch, got.Rect.Size(), want.Rect.Size())
	}

	r := &Report{Tolerance: tolerance}
	w, h := got.Rect.Dx(), got.Rect.Dy()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := got.PixOffset(got.Rect.Min.X+x, got.Rect.Min.Y+y)
			o := want.PixOffset(want.Rect.Min.X+x, want.Rect.Min.Y+y)

			for c := 0; c < 3; c++ {
				out, ref := got.Pix[g+c], want.Pix[o+c]
				diff := int(out) - int(ref)
				if diff < 0 {
					diff = -diff
				}

				r.Checked++
				r.Histogram[diff]++
				if diff > r.MaxDiff {
					r.MaxDiff = diff
				}
				if diff <= tolerance {
					continue
				}

				m := Mismatch{X: x, Y: y, Channel: c, Got: out, Want: ref}
				if r.Errors < MaxShown {
					r.Mismatches = append(r.Mismatches, m)
				}
				r.Errors++
				if visit != nil {
					visit(m)
				}
			}
		}
	}

	return r, nil
}

// FloatReport summarises a comparison of two float vectors.
type FloatReport struct {
	Checked     int     `json:"checked"`
	Tolerance   float64 `json:"tolerance"`
	Errors      int     `json:"errors"`
	MaxRelError float64 `json:"max_rel_error"`
	FirstBad    []int   `json:"first_bad"`
}

func (r *FloatReport) Passed() bool { return r.Errors == 0 }

// CompareFloats checks |got-want| <= tol*max(|want|, 1) elementwise. NaN in
// either vector is always an error.
func CompareFloats(got, want []float64, tol float64) (*FloatReport, error) {
	if len(got) != len(want) {
		return nil, fmt.Errorf("verify: length %d vs %d", len(got), len(want))
	}

	r := &FloatReport{Checked: len(got), Tolerance: tol}
	for i := range got {
		scale := math.Max(math.Abs(want[i]), 1)
		rel := math.Abs(got[i]-want[i]) / scale
		if math.IsNaN(rel) {
			rel = math.Inf(1)
		}
		if rel > r.MaxRelError {
			r.MaxRelError = rel
		}
		if rel <= tol {
			continue
		}
		if r.Errors < MaxShown {
			r.FirstBad = append(r.FirstBad, i)
		}
		r.Errors++
	}
	return r, nil
}
