package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/parlab/internal/bench"
	"github.com/san-kum/parlab/internal/bilateral"
	"github.com/san-kum/parlab/internal/compute"
	"github.com/san-kum/parlab/internal/config"
	"github.com/san-kum/parlab/internal/imageio"
	"github.com/san-kum/parlab/internal/report"
	"github.com/san-kum/parlab/internal/storage"
	"github.com/san-kum/parlab/internal/verify"
)

// maxMismatchRows caps the mismatches CSV of a badly failing run.
const maxMismatchRows = 100000

func runBilateral(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "bilateral")
	if err != nil {
		return err
	}
	bc := cfg.Bilateral
	log := newLogger().WithFields(logrus.Fields{
		"exercise": "bilateral",
		"params":   bc.Params.String(),
	})

	src, input, err := loadInput(bc)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"input":  input,
		"width":  src.Rect.Dx(),
		"height": src.Rect.Dy(),
	}).Debug("loaded input")

	devs, dev, err := selectDevice(log, cfg.Device)
	if err != nil {
		return err
	}
	defer compute.Cleanup(devs)

	w := cmd.OutOrStdout()
	report.Using(w, dev)

	ctx := cmd.Context()
	dst := bilateral.NewOutput(src)

	// The first launch builds kernels and warms caches; it is not timed.
	if err := dev.Bilateral(ctx, src, dst, bc.Params, bc.WorkGroup); err != nil {
		return err
	}

	fmt.Fprintf(w, "Running %s (%d iterations, work group %s)...\n", dev.Name(), bc.Iterations, bc.WorkGroup)
	timing, err := bench.Run(ctx, bc.Iterations, func(ctx context.Context, _ int) error {
		return dev.Bilateral(ctx, src, dst, bc.Params, bc.WorkGroup)
	})
	if err != nil {
		return err
	}
	report.Timing(w, dev.Name(), timing)
	if plot {
		fmt.Fprintln(w, report.FramePlot(timing, 8))
		fmt.Fprintln(w)
	}

	if err := imageio.SaveBMP(bc.Output, dst); err != nil {
		return err
	}
	log.WithField("output", bc.Output).Debug("wrote output")

	ref := bilateral.NewOutput(src)
	refTiming, err := bench.Once(ctx, func(context.Context) error {
		return bilateral.Reference(src, ref, bc.Params)
	})
	if err != nil {
		return err
	}
	report.Timing(w, "Reference", refTiming)

	table := &storage.Table{
		Name:   "mismatches",
		Header: []string{"x", "y", "channel", "out", "ref"},
	}
	rep, err := verify.CompareImages(dst, ref, bc.Tolerance, func(m verify.Mismatch) {
		if len(table.Rows) >= maxMismatchRows {
			return
		}
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(m.X), strconv.Itoa(m.Y), strconv.Itoa(m.Channel),
			strconv.Itoa(int(m.Got)), strconv.Itoa(int(m.Want)),
		})
	})
	if err != nil {
		return err
	}
	report.Verification(w, rep)

	if !save {
		return nil
	}

	meta := storage.RunMetadata{
		Exercise:   "bilateral",
		Device:     dev.Name(),
		DeviceKind: string(dev.Kind()),
		Input:      input,
		Output:     bc.Output,
		Params: map[string]float64{
			"sigma_domain": float64(bc.Params.SigmaDomain),
			"sigma_range":  float64(bc.Params.SigmaRange),
			"width":        float64(src.Rect.Dx()),
			"height":       float64(src.Rect.Dy()),
			"wg_width":     float64(bc.WorkGroup.Width),
			"wg_height":    float64(bc.WorkGroup.Height),
		},
		Iterations:  timing.Iterations,
		TotalMs:     millis(timing.Total),
		PerFrameMs:  millis(timing.PerFrame()),
		ReferenceMs: millis(refTiming.Total),
		Verification: storage.Verification{
			Passed:    rep.Passed(),
			Checked:   rep.Checked,
			Errors:    rep.Errors,
			Tolerance: float64(rep.Tolerance),
			MaxDiff:   float64(rep.MaxDiff),
		},
	}
	var attach *storage.Table
	if len(table.Rows) > 0 {
		attach = table
	}
	return saveRun(w, log, meta, attach)
}

// loadInput returns the source image and a label for it. A pattern, when
// set, replaces the input file.
func loadInput(bc config.BilateralConfig) (*image.NRGBA, string, error) {
	if bc.Pattern == "" {
		img, err := imageio.LoadBMP(bc.Image)
		return img, bc.Image, err
	}

	w, h, err := imageio.ParseSize(bc.Size)
	if err != nil {
		return nil, "", err
	}
	img, err := imageio.Pattern(bc.Pattern, w, h, config.DefaultSeed)
	if err != nil {
		return nil, "", err
	}
	return img, fmt.Sprintf("pattern:%s:%dx%d", bc.Pattern, w, h), nil
}

func saveRun(w io.Writer, log *logrus.Entry, meta storage.RunMetadata, table *storage.Table) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(meta, table)
	if err != nil {
		return err
	}
	log.WithField("run", runID).Debug("saved run")
	fmt.Fprintf(w, "%s %s\n", report.Label.Render("run id:"), runID)
	return nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
