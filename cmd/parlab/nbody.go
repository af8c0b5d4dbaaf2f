package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/parlab/internal/bench"
	"github.com/san-kum/parlab/internal/compute"
	"github.com/san-kum/parlab/internal/nbody"
	"github.com/san-kum/parlab/internal/report"
	"github.com/san-kum/parlab/internal/storage"
	"github.com/san-kum/parlab/internal/verify"
)

func runNBody(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "nbody")
	if err != nil {
		return err
	}
	nc := cfg.NBody
	log := newLogger().WithFields(logrus.Fields{
		"exercise": "nbody",
		"bodies":   nc.Bodies,
	})

	sys, x0, err := nbody.NewRing(nc.Bodies, nc.Seed)
	if err != nil {
		return err
	}
	sys.G = nc.G
	sys.Softening = nc.Softening

	devs, dev, err := selectDevice(log, cfg.Device)
	if err != nil {
		return err
	}
	defer compute.Cleanup(devs)

	w := cmd.OutOrStdout()
	report.Using(w, dev)

	ctx := cmd.Context()

	// Forces on the initial state are what gets verified.
	pos := sys.Positions(x0)
	ax, ay, err := dev.NBodyForces(ctx, pos, sys.Masses, sys.G, sys.Softening)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Running %s (%d bodies, %d steps x %d iterations)...\n", dev.Name(), nc.Bodies, nc.Steps, nc.Iterations)
	var final nbody.State
	timing, err := bench.Run(ctx, nc.Iterations, func(ctx context.Context, _ int) error {
		var err error
		final, err = sys.Run(ctx, dev, x0, nc.Dt, nc.Steps, nil)
		return err
	})
	if err != nil {
		return err
	}
	report.Timing(w, dev.Name(), timing)

	// Energy is sampled along the reference trajectory, eight times per run.
	drift := nbody.NewDrift(sys, max(nc.Steps/8, 1))
	drift.Sample(x0)
	refTiming, err := bench.Once(ctx, func(ctx context.Context) error {
		_, err := sys.Run(ctx, sys.Reference(), x0, nc.Dt, nc.Steps, drift.Observe)
		return err
	})
	if err != nil {
		return err
	}
	report.Timing(w, "Reference", refTiming)

	rax, ray := sys.Forces(x0)
	got := append(append(make([]float64, 0, 2*len(ax)), ax...), ay...)
	want := append(append(make([]float64, 0, 2*len(rax)), rax...), ray...)
	rep, err := verify.CompareFloats(got, want, nc.Tolerance)
	if err != nil {
		return err
	}
	report.FloatVerification(w, rep)

	inv := sys.Invariants(final)
	fmt.Fprintf(w, "%s %.3e (max %.3e)  %s (%.3e, %.3e)  %s %.6f\n",
		report.Label.Render("energy drift:"), drift.Final(), drift.Max(),
		report.Label.Render("momentum:"), inv.Px, inv.Py,
		report.Label.Render("angular momentum:"), inv.Angular)

	if !save {
		return nil
	}

	table := &storage.Table{
		Name:   "bodies",
		Header: []string{"body", "mass", "x", "y", "vx", "vy"},
	}
	for i := 0; i < sys.N(); i++ {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(i),
			strconv.FormatFloat(sys.Masses[i], 'g', -1, 64),
			strconv.FormatFloat(final[i*4], 'g', -1, 64),
			strconv.FormatFloat(final[i*4+1], 'g', -1, 64),
			strconv.FormatFloat(final[i*4+2], 'g', -1, 64),
			strconv.FormatFloat(final[i*4+3], 'g', -1, 64),
		})
	}

	meta := storage.RunMetadata{
		Exercise:   "nbody",
		Device:     dev.Name(),
		DeviceKind: string(dev.Kind()),
		Params: map[string]float64{
			"bodies":       float64(nc.Bodies),
			"steps":        float64(nc.Steps),
			"dt":           nc.Dt,
			"g":            nc.G,
			"softening":    nc.Softening,
			"seed":         float64(nc.Seed),
			"energy_drift": drift.Max(),
			"angular":      inv.Angular,
		},
		Iterations:  timing.Iterations,
		TotalMs:     millis(timing.Total),
		PerFrameMs:  millis(timing.PerFrame()),
		ReferenceMs: millis(refTiming.Total),
		Verification: storage.Verification{
			Passed:    rep.Passed(),
			Checked:   rep.Checked,
			Errors:    rep.Errors,
			Tolerance: rep.Tolerance,
			MaxDiff:   rep.MaxRelError,
		},
	}
	return saveRun(w, log, meta, table)
}
