//go:build !opencl

package compute

import "github.com/sirupsen/logrus"

// probeOpenCL reports no accelerators when built without the opencl tag.
func probeOpenCL(log *logrus.Entry) ([]Device, error) {
	log.Debug("opencl support not compiled in (build with -tags opencl)")
	return nil, nil
}
