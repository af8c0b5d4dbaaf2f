package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/parlab/internal/compute"
	"github.com/san-kum/parlab/internal/config"
	"github.com/san-kum/parlab/internal/report"
	"github.com/san-kum/parlab/internal/storage"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	deviceIdx  int
	preset     string

	imagePath   string
	pattern     string
	size        string
	outputPath  string
	sigmaDomain float32
	sigmaRange  float32
	iterations  int
	tolerance   int
	wgSize      string
	plot        bool
	save        bool

	numBodies  int
	steps      int
	dt         float64
	softening  float64
	seed       int64
	forceTol   float64
	nbodyIters int
)

// runTables names the CSV attachment each exercise saves.
var runTables = map[string]string{
	"bilateral": "mismatches",
	"nbody":     "bodies",
}

// showRows is how many attachment rows 'show' prints.
const showRows = 10

// probeDevices lists the devices commands can select from.
var probeDevices = compute.Probe

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd registers the exercise commands. Flags are bound to the
// package-level variables, which are reset to their defaults on every call.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "parlab",
		Short:        "parallel kernels checked against serial references",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".parlab", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	bilateralCmd := &cobra.Command{
		Use:   "bilateral",
		Short: "run the bilateral filter and verify it against the serial reference",
		Args:  cobra.NoArgs,
		RunE:  runBilateral,
	}
	bilateralCmd.Flags().StringVar(&imagePath, "image", config.DefaultImage, "input BMP")
	bilateralCmd.Flags().StringVar(&pattern, "pattern", "", "synthetic input instead of --image (checkerboard, gradient, noise)")
	bilateralCmd.Flags().StringVar(&size, "size", "1920x1080", "pattern size WxH")
	bilateralCmd.Flags().StringVar(&outputPath, "output", config.DefaultOutput, "output BMP")
	bilateralCmd.Flags().Float32Var(&sigmaDomain, "sd", 3.0, "sigma domain")
	bilateralCmd.Flags().Float32Var(&sigmaRange, "sr", 0.2, "sigma range")
	bilateralCmd.Flags().IntVarP(&iterations, "iterations", "i", config.DefaultIterations, "timed iterations")
	bilateralCmd.Flags().IntVar(&tolerance, "tolerance", config.DefaultTolerance, "allowed per-channel difference")
	bilateralCmd.Flags().IntVar(&deviceIdx, "device", 0, "device index (see 'devices')")
	bilateralCmd.Flags().StringVar(&wgSize, "wgsize", "", "work-group size W,H")
	bilateralCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	bilateralCmd.Flags().BoolVar(&plot, "plot", false, "plot per-iteration times")
	bilateralCmd.Flags().BoolVar(&save, "save", true, "record the run in the data directory")

	nbodyCmd := &cobra.Command{
		Use:   "nbody",
		Short: "run the N-body force kernel and verify it against the serial reference",
		Args:  cobra.NoArgs,
		RunE:  runNBody,
	}
	nbodyCmd.Flags().IntVar(&numBodies, "bodies", config.DefaultBodies, "number of bodies")
	nbodyCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "leapfrog steps per iteration")
	nbodyCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	nbodyCmd.Flags().Float64Var(&softening, "softening", config.DefaultSoftening, "softening length")
	nbodyCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	nbodyCmd.Flags().IntVar(&deviceIdx, "device", 0, "device index (see 'devices')")
	nbodyCmd.Flags().Float64Var(&forceTol, "tolerance", config.DefaultForceTol, "relative force tolerance")
	nbodyCmd.Flags().IntVarP(&nbodyIters, "iterations", "i", 1, "timed iterations")
	nbodyCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	nbodyCmd.Flags().BoolVar(&save, "save", true, "record the run in the data directory")

	devicesCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "list compute devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			devs, err := probeDevices(log)
			if err != nil {
				log.WithError(err).Warn("device probe incomplete")
			}
			defer compute.Cleanup(devs)
			return report.Devices(cmd.OutOrStdout(), devs)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [exercise]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			exercises := []string{"bilateral", "nbody"}
			if len(args) == 1 {
				exercises = args
			}
			for _, ex := range exercises {
				presets := config.ListPresets(ex)
				if len(presets) == 0 {
					fmt.Fprintf(out, "no presets for exercise: %s\n", ex)
					continue
				}
				fmt.Fprintf(out, "presets for %s:\n", ex)
				for _, p := range presets {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			return report.Runs(cmd.OutOrStdout(), runs)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(meta); err != nil {
				return err
			}

			name, ok := runTables[meta.Exercise]
			if !ok {
				return nil
			}
			table, err := st.LoadTable(meta.ID, name)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			return report.Table(out, table, showRows)
		},
	}

	rootCmd.AddCommand(bilateralCmd, nbodyCmd, devicesCmd, presetsCmd, runsCmd, showCmd)
	return rootCmd
}

func newLogger() *logrus.Entry {
	rootLogger := logrus.New()
	rootLogger.SetOutput(os.Stderr)
	rootLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		rootLogger.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(rootLogger).WithField("app", "parlab")
}

// loadConfig layers defaults, the config file, the preset and finally any
// flag set on the command line.
func loadConfig(cmd *cobra.Command, exercise string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if preset != "" && !config.ApplyPreset(cfg, exercise, preset) {
		return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(exercise))
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device = deviceIdx
	}

	switch exercise {
	case "bilateral":
		b := &cfg.Bilateral
		if flags.Changed("image") {
			b.Image = imagePath
		}
		if flags.Changed("pattern") {
			b.Pattern = pattern
		}
		if flags.Changed("size") {
			b.Size = size
		}
		if flags.Changed("output") {
			b.Output = outputPath
		}
		if flags.Changed("sd") {
			b.Params.SigmaDomain = sigmaDomain
		}
		if flags.Changed("sr") {
			b.Params.SigmaRange = sigmaRange
		}
		if flags.Changed("iterations") {
			b.Iterations = iterations
		}
		if flags.Changed("tolerance") {
			b.Tolerance = tolerance
		}
		if flags.Changed("wgsize") {
			wg, err := parseWorkGroup(wgSize)
			if err != nil {
				return nil, err
			}
			b.WorkGroup = wg
		}
	case "nbody":
		n := &cfg.NBody
		if flags.Changed("bodies") {
			n.Bodies = numBodies
		}
		if flags.Changed("steps") {
			n.Steps = steps
		}
		if flags.Changed("dt") {
			n.Dt = dt
		}
		if flags.Changed("softening") {
			n.Softening = softening
		}
		if flags.Changed("seed") {
			n.Seed = seed
		}
		if flags.Changed("tolerance") {
			n.Tolerance = forceTol
		}
		if flags.Changed("iterations") {
			n.Iterations = nbodyIters
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseWorkGroup reads "W,H". An empty string means no hint.
func parseWorkGroup(s string) (compute.WorkGroup, error) {
	if s == "" {
		return compute.WorkGroup{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return compute.WorkGroup{}, fmt.Errorf("%w: %q, want W,H", compute.ErrBadWorkGroup, s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil {
		return compute.WorkGroup{}, fmt.Errorf("%w: %q, want W,H", compute.ErrBadWorkGroup, s)
	}
	wg := compute.WorkGroup{Width: w, Height: h}
	return wg, wg.Validate()
}

func selectDevice(log *logrus.Entry, index int) ([]compute.Device, compute.Device, error) {
	devs, err := probeDevices(log)
	if err != nil {
		log.WithError(err).Warn("device probe incomplete")
	}
	dev, err := compute.Select(devs, index)
	if err != nil {
		compute.Cleanup(devs)
		return nil, nil, err
	}
	return devs, dev, nil
}
