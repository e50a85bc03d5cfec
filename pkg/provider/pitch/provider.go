// Package pitch defines the Estimator interface for fundamental-frequency
// detection backends.
//
// A pitch estimator analyses a single mono PCM frame and returns the
// estimated fundamental frequency in Hz, or reports the frame as unvoiced
// (no periodic content found). Estimation is synchronous by design:
// Estimate returns immediately, making it suitable for the per-frame
// pipeline stage that feeds the acoustic scorer.
//
// Implementations must be safe for concurrent use unless documented
// otherwise; the standard pipeline calls Estimate from a single worker
// goroutine.
package pitch

// Estimate is the result of analysing one frame.
type Estimate struct {
	// Hz is the estimated fundamental frequency. Only meaningful when
	// Voiced is true.
	Hz float64

	// Voiced reports whether periodic content was found. An unvoiced frame
	// carries no pitch information and must not feed pitch statistics.
	Voiced bool

	// Confidence is the estimator's confidence in the result (0.0–1.0).
	// May be zero for estimators that do not report confidence.
	Confidence float64
}

// Estimator analyses mono PCM frames for fundamental frequency.
type Estimator interface {
	// Estimate analyses one frame of signed 16-bit mono PCM at the given
	// sample rate. It must not retain the samples slice after returning.
	Estimate(samples []int16, sampleRate int) Estimate
}
