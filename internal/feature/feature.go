// Package feature turns raw audio frames, pitch estimates, and final
// transcripts into the rolling 17-dimension feature vector consumed by the
// model-based threat classifier.
//
// The vector layout is fixed by the trained model:
//
//	[0]  has-keywords flag (0/1)
//	[1]  keyword threat score (0–100)
//	[2]  critical-keyword flag (0/1)
//	[3]  negative-sentiment flag (0/1)
//	[4]  sentiment score (0–100, 50 = neutral)
//	[5]  dominant emotion score (0–100)
//	[6]  stress score (0–100)
//	[7]  fear score (0–100)
//	[8]  rolling pitch mean (Hz)
//	[9]  rolling pitch stddev
//	[10] rolling RMS energy mean (0–1 scale)
//	[11] rolling RMS energy stddev
//	[12] rolling zero-crossing rate mean
//	[13] tempo (fixed default 125 BPM; no tempo tracker is wired)
//	[14..16] baseline-delta slots, pinned to 0 to match the training
//	         distribution (the training data has zero variance here)
//
// An [Extractor] is driven from the single audio worker goroutine and is
// NOT safe for concurrent use.
package feature

import "math"

// Dim is the fixed feature vector dimensionality.
const Dim = 17

// SilenceRMS is the RMS level (0..1 scale) below which a frame is treated
// as ambient silence: it is excluded from feature accumulation and never
// triggers downstream inference.
const SilenceRMS = 0.005

// defaultTempo fills slot 13 so an absent tempo tracker does not produce a
// training-distribution outlier.
const defaultTempo = 125.0

// Vector is one normalized feature vector. The array type makes the
// length-17 invariant structural.
type Vector [Dim]float64

// RMS returns the root-mean-square amplitude of the frame on a 0..1 scale.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ZCR returns the zero-crossing rate of the frame: the fraction of adjacent
// sample pairs with opposite sign.
func ZCR(samples []int16) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}
