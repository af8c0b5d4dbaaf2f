package bilateral

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

const (
	DefaultSigmaDomain float32 = 3.0
	DefaultSigmaRange  float32 = 0.2
)

// ErrInvalidParams is returned for sigma values that are not positive and finite.
var ErrInvalidParams = errors.New("bilateral: sigma values must be positive and finite")

type Params struct {
	SigmaDomain float32 `yaml:"sigma_domain" json:"sigma_domain"`
	SigmaRange  float32 `yaml:"sigma_range" json:"sigma_range"`
}

func DefaultParams() Params {
	return Params{
		SigmaDomain: DefaultSigmaDomain,
		SigmaRange:  DefaultSigmaRange,
	}
}

// Validate rejects sigmas for which the weights degenerate to NaN. The
// kernel itself performs no such check.
func (p Params) Validate() error {
	if !usable(p.SigmaDomain) {
		return fmt.Errorf("%w: sigma domain %v", ErrInvalidParams, p.SigmaDomain)
	}
	if !usable(p.SigmaRange) {
		return fmt.Errorf("%w: sigma range %v", ErrInvalidParams, p.SigmaRange)
	}
	return nil
}

func usable(v float32) bool {
	return v > 0 && !math32.IsNaN(v) && !math32.IsInf(v, 0)
}

func (p Params) String() string {
	return fmt.Sprintf("sd=%.3g sr=%.3g", p.SigmaDomain, p.SigmaRange)
}
