package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/parlab/internal/bench"
	"github.com/san-kum/parlab/internal/compute"
	"github.com/san-kum/parlab/internal/storage"
	"github.com/san-kum/parlab/internal/verify"
)

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Using prints the selected device.
func Using(w io.Writer, dev compute.Device) {
	fmt.Fprintf(w, "\n%s %s\n\n", Label.Render("Using "+string(dev.Kind())+" device:"), Value.Render(dev.Name()))
}

// Devices prints the probed device list with indices.
func Devices(w io.Writer, devs []compute.Device) error {
	if len(devs) == 0 {
		fmt.Fprintln(w, "No devices found.")
		return nil
	}

	fmt.Fprintln(w, Title.Render("Devices:"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, d := range devs {
		fmt.Fprintf(tw, "%d:\t%s\t%s\t%s\n", i, d.Name(), d.Kind(), d.Describe())
	}
	return tw.Flush()
}

// Timing prints "<what> took X ms (Y ms / frame)".
func Timing(w io.Writer, what string, t bench.Timing) {
	total := ms(t.Total)
	if t.Iterations > 1 {
		fmt.Fprintf(w, "%s took %s (%s / frame)\n\n", what,
			Value.Render(fmt.Sprintf("%.1fms", total)),
			Value.Render(fmt.Sprintf("%.1fms", ms(t.PerFrame()))))
		return
	}
	fmt.Fprintf(w, "%s took %s\n\n", what, Value.Render(fmt.Sprintf("%.1fms", total)))
}

// FramePlot renders per-iteration times as a small line graph.
func FramePlot(t bench.Timing, height int) string {
	samples := t.Millis()
	if len(samples) < 2 {
		return ""
	}
	return asciigraph.Plot(samples,
		asciigraph.Height(height),
		asciigraph.Precision(2),
		asciigraph.Caption("ms per iteration"))
}

// Verification prints the comparison against the reference: the first
// mismatches, then either the total or a pass line.
func Verification(w io.Writer, r *verify.Report) {
	if r.Passed() {
		fmt.Fprintln(w, Pass.Render("Verification passed."))
		fmt.Fprintf(w, "%s %s\n", Label.Render("diff spread:"), DiffSpread(r, r.MaxDiff+1))
		return
	}

	fmt.Fprintln(w, Fail.Render("Verification failed:"))
	for _, m := range r.Mismatches {
		fmt.Fprintln(w, m.String())
	}
	fmt.Fprintf(w, "Total errors: %s\n", Fail.Render(fmt.Sprint(r.Errors)))
	fmt.Fprintf(w, "%s %s\n", Label.Render("diff spread:"), DiffSpread(r, 32))
}

// DiffSpread sparklines the first width buckets of the difference
// histogram on a log scale, so rare large differences stay visible.
func DiffSpread(r *verify.Report, width int) string {
	width = min(max(width, 2), len(r.Histogram))
	values := make([]float64, width)
	for d := 0; d < width; d++ {
		if n := r.Histogram[d]; n > 0 {
			values[d] = 1 + logish(n)
		}
	}
	return Sparkline(values, width)
}

func logish(n int) float64 {
	v := 0.0
	for n > 1 {
		n /= 2
		v++
	}
	return v
}

// FloatVerification prints the N-body force comparison.
func FloatVerification(w io.Writer, r *verify.FloatReport) {
	if r.Passed() {
		fmt.Fprintf(w, "%s %s\n", Pass.Render("Verification passed."),
			Subtle.Render(fmt.Sprintf("(max relative error %.3g)", r.MaxRelError)))
		return
	}

	fmt.Fprintln(w, Fail.Render("Verification failed:"))
	idx := make([]string, len(r.FirstBad))
	for i, b := range r.FirstBad {
		idx[i] = fmt.Sprint(b)
	}
	fmt.Fprintf(w, "components %s exceed tolerance %.3g (max relative error %.3g)\n",
		strings.Join(idx, ", "), r.Tolerance, r.MaxRelError)
	fmt.Fprintf(w, "Total errors: %s\n", Fail.Render(fmt.Sprint(r.Errors)))
}

// Runs prints recorded runs as a table.
func Runs(w io.Writer, runs []storage.RunMetadata) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXERCISE\tTIME\tDEVICE\tITERS\tMS/FRAME\tVERIFIED")
	for _, run := range runs {
		verified := "pass"
		if !run.Verification.Passed {
			verified = fmt.Sprintf("%d errors", run.Verification.Errors)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%s\n",
			run.ID,
			run.Exercise,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Device,
			run.Iterations,
			run.PerFrameMs,
			verified,
		)
	}
	return tw.Flush()
}

// Table prints the header and the first limit rows of t, then how many
// rows were left out.
func Table(w io.Writer, t *storage.Table, limit int) error {
	fmt.Fprintf(w, "%s %s\n", Title.Render(t.Name+".csv"), Subtle.Render(fmt.Sprintf("(%d rows)", len(t.Rows))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(t.Header, "\t")))
	rows := t.Rows
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if hidden := len(t.Rows) - len(rows); hidden > 0 {
		fmt.Fprintln(w, Subtle.Render(fmt.Sprintf("... %d more", hidden)))
	}
	return nil
}
