package report

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/parlab/internal/bench"
	"github.com/san-kum/parlab/internal/compute"
	"github.com/san-kum/parlab/internal/storage"
	"github.com/san-kum/parlab/internal/verify"
)

func solid(w, h int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}

func TestVerification_Passed(t *testing.T) {
	r, _ := verify.CompareImages(solid(4, 4, 9), solid(4, 4, 10), 1, nil)

	var buf bytes.Buffer
	Verification(&buf, r)
	if !strings.Contains(buf.String(), "Verification passed.") {
		t.Errorf("expected pass line, got %q", buf.String())
	}
}

func TestVerification_Failed(t *testing.T) {
	r, _ := verify.CompareImages(solid(4, 4, 0), solid(4, 4, 10), 1, nil)

	var buf bytes.Buffer
	Verification(&buf, r)
	out := buf.String()

	if !strings.Contains(out, "Verification failed:") {
		t.Errorf("expected failure header, got %q", out)
	}
	if !strings.Contains(out, "(0,0,0): 0 vs 10") {
		t.Errorf("expected first mismatch, got %q", out)
	}
	if strings.Count(out, " vs ") != verify.MaxShown {
		t.Errorf("expected %d mismatch lines, got %q", verify.MaxShown, out)
	}
	if !strings.Contains(out, "Total errors:") || !strings.Contains(out, "48") {
		t.Errorf("expected total of 48 errors, got %q", out)
	}
}

func TestTiming(t *testing.T) {
	var buf bytes.Buffer
	Timing(&buf, "OpenCL", bench.Timing{Iterations: 4, Total: 10 * time.Millisecond})
	if got := buf.String(); !strings.Contains(got, "OpenCL took") || !strings.Contains(got, "10.0ms") || !strings.Contains(got, "2.5ms") {
		t.Errorf("unexpected timing line %q", got)
	}

	buf.Reset()
	Timing(&buf, "Reference", bench.Timing{Iterations: 1, Total: 3 * time.Millisecond})
	if got := buf.String(); strings.Contains(got, "/ frame") {
		t.Errorf("single iteration should not print per-frame, got %q", got)
	}
}

func TestFramePlot(t *testing.T) {
	if FramePlot(bench.Timing{Samples: []time.Duration{time.Millisecond}}, 5) != "" {
		t.Error("expected no plot for a single sample")
	}

	plot := FramePlot(bench.Timing{Samples: []time.Duration{time.Millisecond, 3 * time.Millisecond, 2 * time.Millisecond}}, 5)
	if !strings.Contains(plot, "ms per iteration") {
		t.Errorf("expected caption in plot, got %q", plot)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 4); got != "────" {
		t.Errorf("expected flat line, got %q", got)
	}
	got := Sparkline([]float64{0, 1, 2, 3}, 4)
	for _, r := range []string{"▁", "█"} {
		if !strings.Contains(got, r) {
			t.Errorf("expected %q in %q", r, got)
		}
	}
}

func TestDevices(t *testing.T) {
	var buf bytes.Buffer
	if err := Devices(&buf, []compute.Device{compute.NewCPUDeviceWorkers(2)}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0:") || !strings.Contains(buf.String(), "2 workers") {
		t.Errorf("unexpected device listing %q", buf.String())
	}

	buf.Reset()
	Devices(&buf, nil)
	if !strings.Contains(buf.String(), "No devices found.") {
		t.Errorf("unexpected empty listing %q", buf.String())
	}
}

func TestRuns(t *testing.T) {
	var buf bytes.Buffer
	Runs(&buf, []storage.RunMetadata{
		{ID: "bilateral_1", Exercise: "bilateral", Verification: storage.Verification{Passed: true}},
		{ID: "nbody_2", Exercise: "nbody", Verification: storage.Verification{Errors: 3}},
	})
	out := buf.String()
	if !strings.Contains(out, "bilateral_1") || !strings.Contains(out, "pass") || !strings.Contains(out, "3 errors") {
		t.Errorf("unexpected runs table %q", out)
	}
}

func TestFloatVerification(t *testing.T) {
	r, _ := verify.CompareFloats([]float64{1, 5}, []float64{1, 2}, 1e-6)
	var buf bytes.Buffer
	FloatVerification(&buf, r)
	if !strings.Contains(buf.String(), "Verification failed:") || !strings.Contains(buf.String(), "components 1") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestTable(t *testing.T) {
	table := &storage.Table{
		Name:   "mismatches",
		Header: []string{"x", "y"},
		Rows:   [][]string{{"1", "2"}, {"3", "4"}, {"5", "6"}},
	}

	var buf bytes.Buffer
	if err := Table(&buf, table, 2); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "mismatches.csv") || !strings.Contains(out, "(3 rows)") {
		t.Errorf("missing title in %q", out)
	}
	if !strings.Contains(out, "X") || !strings.Contains(out, "3  4") {
		t.Errorf("missing header or rows in %q", out)
	}
	if strings.Contains(out, "5  6") || !strings.Contains(out, "... 1 more") {
		t.Errorf("expected the third row to be cut, got %q", out)
	}
}
