package nbody

import (
	"context"
	"errors"
	"math"
	"testing"
)

type countingForcer struct {
	inner Forcer
	calls int
}

func (c *countingForcer) NBodyForces(ctx context.Context, pos, masses []float64, g, eps float64) ([]float64, []float64, error) {
	c.calls++
	return c.inner.NBodyForces(ctx, pos, masses, g, eps)
}

func TestNewRing(t *testing.T) {
	sys, x, err := NewRing(6, 7)
	if err != nil {
		t.Fatal(err)
	}
	if sys.N() != 6 || len(x) != 24 {
		t.Fatalf("expected 6 bodies / 24 values, got %d / %d", sys.N(), len(x))
	}
	for i, m := range sys.Masses {
		if m < 0.5 || m >= 1.5 {
			t.Errorf("mass %d out of range: %f", i, m)
		}
	}

	_, y, _ := NewRing(6, 7)
	for i := range x {
		if x[i] != y[i] {
			t.Fatal("expected identical state for identical seed")
		}
	}

	if _, _, err := NewRing(1, 0); !errors.Is(err, ErrTooFewBodies) {
		t.Errorf("expected ErrTooFewBodies, got %v", err)
	}
}

func TestForces_TwoBodies(t *testing.T) {
	sys := &System{Masses: []float64{1, 3}, G: 2, Softening: 0}
	x := State{0, 0, 0, 0, 2, 0, 0, 0}

	ax, ay := sys.Forces(x)
	// |a0| = G*m1/r^2 = 2*3/4, towards +x; |a1| = G*m0/r^2 = 2/4, towards -x.
	if math.Abs(ax[0]-1.5) > 1e-12 || math.Abs(ax[1]+0.5) > 1e-12 {
		t.Errorf("unexpected ax %v", ax)
	}
	if ay[0] != 0 || ay[1] != 0 {
		t.Errorf("expected no y acceleration, got %v", ay)
	}
}

func TestStep_ConservesInvariants(t *testing.T) {
	sys, x, _ := NewRing(8, 3)
	before := sys.Invariants(x)

	x, err := sys.Run(context.Background(), sys.Reference(), x, 0.001, 200, nil)
	if err != nil {
		t.Fatal(err)
	}
	after := sys.Invariants(x)

	if math.Abs(after.Px-before.Px) > 1e-9 || math.Abs(after.Py-before.Py) > 1e-9 {
		t.Errorf("momentum drifted: (%g,%g) -> (%g,%g)", before.Px, before.Py, after.Px, after.Py)
	}
	if math.Abs(after.Angular-before.Angular) > 1e-6 {
		t.Errorf("angular momentum drifted: %g -> %g", before.Angular, after.Angular)
	}
	if math.Abs((after.Energy-before.Energy)/before.Energy) > 1e-3 {
		t.Errorf("energy drifted: %g -> %g", before.Energy, after.Energy)
	}
}

func TestInvariants_TwoBodies(t *testing.T) {
	sys := &System{Masses: []float64{1, 3}, G: 2, Softening: 0}
	// Body 0 at the origin moving +y, body 1 at (2,0) moving -y.
	x := State{0, 0, 0, 1, 2, 0, 0, -1}

	inv := sys.Invariants(x)
	// KE = 0.5*1*1 + 0.5*3*1 = 2, PE = -2*1*3/2 = -3.
	if math.Abs(inv.Energy+1) > 1e-12 {
		t.Errorf("expected energy -1, got %g", inv.Energy)
	}
	if inv.Px != 0 || inv.Py != -2 {
		t.Errorf("expected momentum (0,-2), got (%g,%g)", inv.Px, inv.Py)
	}
	// L = 3 * (2*-1 - 0) = -6.
	if inv.Angular != -6 {
		t.Errorf("expected angular momentum -6, got %g", inv.Angular)
	}
	if sys.Energy(x) != inv.Energy {
		t.Error("Energy disagrees with Invariants")
	}
}

func TestRun_CallsForcerTwicePerStep(t *testing.T) {
	sys, x, _ := NewRing(4, 1)
	f := &countingForcer{inner: sys.Reference()}

	steps := 0
	_, err := sys.Run(context.Background(), f, x, 0.01, 5, func(int, State) { steps++ })
	if err != nil {
		t.Fatal(err)
	}
	if steps != 5 || f.calls != 10 {
		t.Errorf("expected 5 steps / 10 force calls, got %d / %d", steps, f.calls)
	}
}

func TestRun_Canceled(t *testing.T) {
	sys, x, _ := NewRing(4, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sys.Run(ctx, sys.Reference(), x, 0.01, 3, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStep_BadState(t *testing.T) {
	sys, _, _ := NewRing(3, 1)
	if _, err := sys.Step(context.Background(), sys.Reference(), State{1, 2}, 0.01); err == nil {
		t.Error("expected error for short state")
	}
}

func TestStep_Unstable(t *testing.T) {
	sys := &System{Masses: []float64{1, 1}, G: 1, Softening: 0}
	x := State{0, 0, 0, 0, 0, 0, 0, 0}
	if _, err := sys.Step(context.Background(), sys.Reference(), x, 0.01); !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
}
