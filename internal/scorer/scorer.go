// Package scorer implements the acoustic scoring stage of the detection
// pipeline. A [Scorer] looks at one frame's worth of derived audio data and
// emits a [Signal]; the fusion engine maps signals onto threat levels.
//
// Two strategies ship: [RuleBased] applies fixed acoustic thresholds, and
// [ModelFused] layers asynchronous classifier inference on top of the rules.
// Strategies are swappable through configuration without the fusion engine
// noticing.
package scorer

import "context"

// Signal is the per-frame verdict of a scorer.
type Signal int

const (
	// SignalNone means the frame carries no acoustic indication of danger.
	SignalNone Signal = iota

	// SignalDanger means the frame crossed a danger threshold.
	SignalDanger
)

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "NONE"
	case SignalDanger:
		return "DANGER"
	default:
		return "UNKNOWN"
	}
}

// Observation is the per-frame input to a scorer. The audio worker fills it
// from the feature extractor and pitch estimator after the silence gate, so
// scorers only ever see voiced frames.
type Observation struct {
	// PitchHz is the estimated fundamental frequency of the frame.
	PitchHz float64

	// Voiced reports whether the pitch estimate is reliable.
	Voiced bool

	// RMS is the frame energy on the raw 0..1 scale.
	RMS float64

	// Vector is the current normalized feature vector snapshot.
	Vector [VectorDim]float64

	// VectorOK reports whether Vector was produced with scaler parameters
	// loaded. Model-based scoring is disabled when false.
	VectorOK bool
}

// VectorDim is the feature vector dimensionality scorers accept.
const VectorDim = 17

// Scorer turns per-frame observations into danger signals. Implementations
// are driven by the single audio worker goroutine; Score is never called
// concurrently.
type Scorer interface {
	// Score evaluates one voiced frame. It must return promptly — any
	// expensive work happens off the calling goroutine.
	Score(ctx context.Context, obs Observation) Signal

	// Reset clears accumulated scoring state for a new session.
	Reset()
}
