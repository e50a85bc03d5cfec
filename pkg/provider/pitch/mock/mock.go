// Package mock provides an in-memory mock implementation of
// [pitch.Estimator] for use in unit tests.
package mock

import (
	"sync"

	"github.com/kavachapp/kavach/pkg/provider/pitch"
)

// Estimator is a mock [pitch.Estimator] that returns a scripted sequence of
// estimates. Safe for concurrent use.
type Estimator struct {
	mu sync.Mutex

	// Results is the sequence returned by successive Estimate calls. Once
	// exhausted, the last entry repeats. An empty slice yields the zero
	// (unvoiced) estimate.
	Results []pitch.Estimate

	// CallCountEstimate records how many times Estimate was called.
	CallCountEstimate int
}

// Compile-time interface check.
var _ pitch.Estimator = (*Estimator)(nil)

// Estimate returns the next scripted estimate and records the call.
func (e *Estimator) Estimate(_ []int16, _ int) pitch.Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.CallCountEstimate
	e.CallCountEstimate++
	if len(e.Results) == 0 {
		return pitch.Estimate{}
	}
	if idx >= len(e.Results) {
		idx = len(e.Results) - 1
	}
	return e.Results[idx]
}
