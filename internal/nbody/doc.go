// Package nbody provides the gravitational N-body exercise.
//
// A [System] holds masses and constants; the state vector is passed around
// explicitly. Accelerations come from a [Forcer], normally a compute
// device, so the same leapfrog loop runs on any device:
//
//	sys, x0, _ := nbody.NewRing(1024, 42)
//	x, err := sys.Run(ctx, dev, x0, 0.001, 32, nil)
//
// [System.Forces] is the serial pairwise reference used for verification.
package nbody
