// Package yin implements the [pitch.Estimator] interface using the YIN
// algorithm (de Cheveigné & Kawahara, 2002): cumulative-mean-normalised
// difference over the autocorrelation lag range, absolute threshold pick,
// and parabolic interpolation of the selected lag.
//
// The implementation is allocation-conscious: the difference buffer is
// reused across calls, so a single Estimator must not be shared between
// goroutines. The standard pipeline calls it from one worker only.
package yin

import (
	"math"

	"github.com/kavachapp/kavach/pkg/provider/pitch"
)

const (
	// defaultThreshold is the YIN absolute threshold on the normalised
	// difference function. 0.15 is the value recommended by the paper for
	// speech.
	defaultThreshold = 0.15

	// minFrequency bounds the search range from below. Lags longer than
	// sampleRate/minFrequency are not examined.
	minFrequency = 50.0

	// maxFrequency bounds the search range from above.
	maxFrequency = 2000.0
)

// Option is a functional option for configuring an [Estimator].
type Option func(*Estimator)

// WithThreshold sets the YIN absolute threshold. Lower values demand clearer
// periodicity before a frame is declared voiced. Default: 0.15.
func WithThreshold(t float64) Option {
	return func(e *Estimator) { e.threshold = t }
}

// Estimator implements [pitch.Estimator] using YIN. Not safe for concurrent
// use: the internal difference buffer is reused across calls.
type Estimator struct {
	threshold float64
	diff      []float64
}

// Compile-time interface check.
var _ pitch.Estimator = (*Estimator)(nil)

// New returns a YIN estimator with the supplied options applied.
func New(opts ...Option) *Estimator {
	e := &Estimator{threshold: defaultThreshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Estimate analyses one mono PCM frame and returns the pitch estimate.
// Frames shorter than twice the maximum examined lag are reported unvoiced.
func (e *Estimator) Estimate(samples []int16, sampleRate int) pitch.Estimate {
	if sampleRate <= 0 || len(samples) < 4 {
		return pitch.Estimate{}
	}

	maxLag := int(float64(sampleRate) / minFrequency)
	minLag := int(float64(sampleRate) / maxFrequency)
	if minLag < 2 {
		minLag = 2
	}
	if maxLag >= len(samples)/2 {
		maxLag = len(samples)/2 - 1
	}
	if maxLag <= minLag {
		return pitch.Estimate{}
	}

	if cap(e.diff) < maxLag+1 {
		e.diff = make([]float64, maxLag+1)
	}
	d := e.diff[:maxLag+1]

	// Step 1+2: difference function over the first half of the frame.
	half := len(samples) / 2
	for lag := 1; lag <= maxLag; lag++ {
		var sum float64
		for i := 0; i < half; i++ {
			delta := float64(samples[i]) - float64(samples[i+lag])
			sum += delta * delta
		}
		d[lag] = sum
	}

	// Step 3: cumulative mean normalised difference.
	d[0] = 1
	var running float64
	for lag := 1; lag <= maxLag; lag++ {
		running += d[lag]
		if running == 0 {
			d[lag] = 1
		} else {
			d[lag] = d[lag] * float64(lag) / running
		}
	}

	// Step 4: absolute threshold — first lag dipping below the threshold,
	// refined to the local minimum of the dip.
	tau := -1
	for lag := minLag; lag <= maxLag; lag++ {
		if d[lag] < e.threshold {
			for lag+1 <= maxLag && d[lag+1] < d[lag] {
				lag++
			}
			tau = lag
			break
		}
	}
	if tau < 0 {
		return pitch.Estimate{}
	}

	// Step 5: parabolic interpolation around tau.
	better := float64(tau)
	if tau > minLag && tau < maxLag {
		s0, s1, s2 := d[tau-1], d[tau], d[tau+1]
		denom := 2*s1 - s2 - s0
		if denom != 0 {
			better += (s2 - s0) / (2 * denom)
		}
	}

	hz := float64(sampleRate) / better
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz < minFrequency || hz > maxFrequency {
		return pitch.Estimate{}
	}

	return pitch.Estimate{
		Hz:         hz,
		Voiced:     true,
		Confidence: 1 - d[tau],
	}
}
