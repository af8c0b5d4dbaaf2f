package nbody

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrTooFewBodies is returned for systems with fewer than two bodies.
var ErrTooFewBodies = errors.New("nbody: need at least two bodies")

// State holds x, y, vx, vy for every body, body after body.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Forcer computes accelerations for interleaved (x, y) positions.
// compute.Device satisfies it.
type Forcer interface {
	NBodyForces(ctx context.Context, positions, masses []float64, g, softening float64) (ax, ay []float64, err error)
}

type System struct {
	Masses    []float64
	G         float64
	Softening float64

	positions []float64
}

// NewRing places n bodies on a jittered unit ring with near-circular
// velocities and masses in [0.5, 1.5). The same seed always yields the same
// system.
func NewRing(n int, seed int64) (*System, State, error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d", ErrTooFewBodies, n)
	}

	rng := rand.New(rand.NewSource(seed))
	sys := &System{
		Masses:    make([]float64, n),
		G:         1.0,
		Softening: 0.01,
		positions: make([]float64, n*2),
	}

	x := make(State, n*4)
	for i := 0; i < n; i++ {
		sys.Masses[i] = 0.5 + rng.Float64()

		angle := float64(i) * 2.0 * math.Pi / float64(n)
		radius := 1.0 + 0.05*(rng.Float64()-0.5)
		x[i*4] = radius * math.Cos(angle)
		x[i*4+1] = radius * math.Sin(angle)
		x[i*4+2] = -math.Sin(angle) * 0.5
		x[i*4+3] = math.Cos(angle) * 0.5
	}
	return sys, x, nil
}

func (s *System) N() int { return len(s.Masses) }

// Positions returns the interleaved (x, y) pairs of x. The slice is reused
// by the next call.
func (s *System) Positions(x State) []float64 {
	n := s.N()
	if len(s.positions) != n*2 {
		s.positions = make([]float64, n*2)
	}
	for i := 0; i < n; i++ {
		s.positions[i*2] = x[i*4]
		s.positions[i*2+1] = x[i*4+1]
	}
	return s.positions
}

// pairs visits every unordered pair i < j once with the separation from i
// to j and the softened inverse distance.
func (s *System) pairs(x State, visit func(i, j int, rx, ry, rInv float64)) {
	n := s.N()
	eps2 := s.Softening * s.Softening
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rx := x[j*4] - x[i*4]
			ry := x[j*4+1] - x[i*4+1]
			visit(i, j, rx, ry, 1/math.Sqrt(rx*rx+ry*ry+eps2))
		}
	}
}

// Forces is the serial reference. Each pair is evaluated once and applied
// to both bodies with opposite sign.
func (s *System) Forces(x State) ([]float64, []float64) {
	ax := make([]float64, s.N())
	ay := make([]float64, s.N())

	s.pairs(x, func(i, j int, rx, ry, rInv float64) {
		r3 := s.G * rInv * rInv * rInv
		ax[i] += s.Masses[j] * r3 * rx
		ay[i] += s.Masses[j] * r3 * ry
		ax[j] -= s.Masses[i] * r3 * rx
		ay[j] -= s.Masses[i] * r3 * ry
	})
	return ax, ay
}

// Reference returns a Forcer backed by [System.Forces].
func (s *System) Reference() Forcer { return reference{s} }

type reference struct{ s *System }

func (r reference) NBodyForces(ctx context.Context, positions, _ []float64, _, _ float64) ([]float64, []float64, error) {
	n := r.s.N()
	x := make(State, n*4)
	for i := 0; i < n; i++ {
		x[i*4] = positions[i*2]
		x[i*4+1] = positions[i*2+1]
	}
	ax, ay := r.s.Forces(x)
	return ax, ay, ctx.Err()
}

func (s *System) accel(ctx context.Context, f Forcer, x State) ([]float64, []float64, error) {
	return f.NBodyForces(ctx, s.Positions(x), s.Masses, s.G, s.Softening)
}

// Step advances x by dt with a kick-drift-kick leapfrog.
func (s *System) Step(ctx context.Context, f Forcer, x State, dt float64) (State, error) {
	n := s.N()
	if len(x) != n*4 {
		return nil, fmt.Errorf("nbody: state has %d values for %d bodies", len(x), n)
	}

	ax, ay, err := s.accel(ctx, f, x)
	if err != nil {
		return nil, err
	}

	halfDt := dt * 0.5
	next := make(State, len(x))
	for i := 0; i < n; i++ {
		vx := x[i*4+2] + ax[i]*halfDt
		vy := x[i*4+3] + ay[i]*halfDt
		next[i*4] = x[i*4] + vx*dt
		next[i*4+1] = x[i*4+1] + vy*dt
		next[i*4+2] = vx
		next[i*4+3] = vy
	}

	ax, ay, err = s.accel(ctx, f, next)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		next[i*4+2] += ax[i] * halfDt
		next[i*4+3] += ay[i] * halfDt
	}

	if !next.IsValid() {
		return nil, ErrUnstable
	}
	return next, nil
}

// ErrUnstable indicates the state diverged to NaN or Inf.
var ErrUnstable = errors.New("nbody: simulation unstable (state diverged)")

// Run takes steps leapfrog steps from x0. onStep, if non-nil, is called after
// every step.
func (s *System) Run(ctx context.Context, f Forcer, x0 State, dt float64, steps int, onStep func(step int, x State)) (State, error) {
	x := x0
	for i := 0; i < steps; i++ {
		next, err := s.Step(ctx, f, x, dt)
		if err != nil {
			return x, fmt.Errorf("step %d: %w", i, err)
		}
		x = next
		if onStep != nil {
			onStep(i, x)
		}
	}
	return x, nil
}

// Invariants are the quantities a symplectic step should conserve.
type Invariants struct {
	Energy  float64
	Px, Py  float64
	Angular float64
}

// Invariants sums kinetic and softened potential energy, linear momentum
// and angular momentum about the origin.
func (s *System) Invariants(x State) Invariants {
	var inv Invariants
	for i, m := range s.Masses {
		px, py := x[i*4], x[i*4+1]
		vx, vy := x[i*4+2], x[i*4+3]

		inv.Energy += 0.5 * m * (vx*vx + vy*vy)
		inv.Px += m * vx
		inv.Py += m * vy
		inv.Angular += m * (px*vy - py*vx)
	}

	s.pairs(x, func(i, j int, _, _, rInv float64) {
		inv.Energy -= s.G * s.Masses[i] * s.Masses[j] * rInv
	})
	return inv
}

func (s *System) Energy(x State) float64 { return s.Invariants(x).Energy }
