package nbody

import "math"

// Drift tracks how far the total energy strays from its first observed
// value over a run. Only every Every-th step is sampled since each sample
// costs as much as a force evaluation.
type Drift struct {
	Every int

	sys      *System
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewDrift(sys *System, every int) *Drift {
	if every < 1 {
		every = 1
	}
	return &Drift{Every: every, sys: sys}
}

// Observe has the onStep signature of [System.Run].
func (d *Drift) Observe(step int, x State) {
	if d.samples > 0 && step%d.Every != 0 {
		return
	}
	d.Sample(x)
}

// Sample records x unconditionally.
func (d *Drift) Sample(x State) {
	energy := d.sys.Energy(x)
	if d.samples == 0 {
		d.initial = energy
	}
	d.current = energy
	d.samples++

	if d.initial != 0 {
		d.maxDrift = math.Max(d.maxDrift, math.Abs(energy-d.initial)/math.Abs(d.initial))
	}
}

// Max is the largest relative drift seen.
func (d *Drift) Max() float64 { return d.maxDrift }

// Final is the relative drift of the last sample.
func (d *Drift) Final() float64 {
	if d.initial == 0 {
		return 0
	}
	return math.Abs(d.current-d.initial) / math.Abs(d.initial)
}

func (d *Drift) Samples() int { return d.samples }

func (d *Drift) Reset() {
	d.initial = 0
	d.current = 0
	d.maxDrift = 0
	d.samples = 0
}
