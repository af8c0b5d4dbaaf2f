// Package compute provides the devices the exercises run on.
//
// [Probe] lists what is available on this machine:
//
//   - OpenCL: every device of every platform, when built with -tags opencl
//   - CPU: a goroutine pool sized to the logical core count, always present
//
// Accelerators are listed first, so device 0 is the best one available:
//
//	devs, err := compute.Probe(log)
//	dev, err := compute.Select(devs, 0)
//	err = dev.Bilateral(ctx, src, dst, params, compute.WorkGroup{})
//
// The CPU device reproduces the serial reference bit for bit. The OpenCL
// kernel is built with relaxed math and is expected to agree within one
// level per channel.
package compute
