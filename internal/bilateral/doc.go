// Package bilateral implements the edge-preserving bilateral filter used by
// the image exercise.
//
// Every output pixel is the normalised weighted average of its fixed 5x5
// neighbourhood. The weight of a neighbour is the product of a spatial
// Gaussian (controlled by [Params.SigmaDomain]) and a range Gaussian on the
// RGB distance to the centre pixel (controlled by [Params.SigmaRange]).
// Neighbour coordinates are clamped to the image, so edges are replicated.
// Alpha is copied through untouched.
//
// All arithmetic is single precision and results are truncated back to 8
// bits, so the output matches the accelerator kernels bit for bit on the
// CPU and within one level on relaxed-math GPU builds.
//
// # Example
//
//	k := bilateral.NewKernel(bilateral.DefaultParams())
//	dst := bilateral.NewOutput(src)
//	k.Rect(src, dst, src.Bounds())
//
// [Reference] runs the same kernel serially and is the correctness oracle
// for the parallel devices in package compute.
package bilateral
