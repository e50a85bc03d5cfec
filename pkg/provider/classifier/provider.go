// Package classifier defines the Model interface for binary threat
// classification backends.
//
// A classifier consumes the pipeline's fixed 17-dimension normalized feature
// vector and returns a danger probability in [0, 1]. The model's internals
// (training, architecture) are external to this system; this package only
// fixes the contract and ships two reference backends: a local logistic
// regression (subpackage logreg) and an HTTP prediction endpoint
// (subpackage httpapi).
package classifier

import "context"

// FeatureDim is the fixed dimensionality of the input vector. Every call to
// Predict receives exactly this many values, already normalized with the
// scaler parameters loaded at monitoring start.
const FeatureDim = 17

// Model is the abstraction over any binary threat classifier.
//
// Implementations must be safe for concurrent use.
type Model interface {
	// Predict returns the danger probability in [0, 1] for the given
	// normalized feature vector. The slice always has length [FeatureDim];
	// implementations must not retain it after returning.
	//
	// Errors are per-cycle: the caller skips the cycle and carries on.
	Predict(ctx context.Context, features []float64) (float64, error)
}
