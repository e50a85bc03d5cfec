package yin

import (
	"math"
	"math/rand"
	"testing"
)

// sine renders n samples of a pure tone at freq Hz.
func sine(n int, freq float64, sampleRate int, amplitude float64) []int16 {
	s := make([]int16, n)
	for i := range s {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		s[i] = int16(v * 30000)
	}
	return s
}

func TestEstimate_PureTones(t *testing.T) {
	tests := []struct {
		name string
		freq float64
	}{
		{"low voice", 110},
		{"typical voice", 220},
		{"high voice", 440},
		{"scream range", 800},
	}

	e := New()
	const sampleRate = 22050
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Estimate(sine(4096, tc.freq, sampleRate, 0.8), sampleRate)
			if !got.Voiced {
				t.Fatalf("Estimate(%v Hz tone).Voiced = false, want true", tc.freq)
			}
			if math.Abs(got.Hz-tc.freq) > tc.freq*0.03 {
				t.Errorf("Estimate() Hz = %v, want within 3%% of %v", got.Hz, tc.freq)
			}
			if got.Confidence <= 0 || got.Confidence > 1 {
				t.Errorf("Confidence = %v, want in (0, 1]", got.Confidence)
			}
		})
	}
}

func TestEstimate_NoiseIsUnvoiced(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := make([]int16, 4096)
	for i := range samples {
		samples[i] = int16(rng.Intn(20000) - 10000)
	}

	e := New()
	if got := e.Estimate(samples, 22050); got.Voiced {
		t.Errorf("Estimate(noise) = %+v, want unvoiced", got)
	}
}

func TestEstimate_SilenceIsUnvoiced(t *testing.T) {
	e := New()
	if got := e.Estimate(make([]int16, 4096), 22050); got.Voiced {
		t.Errorf("Estimate(silence) = %+v, want unvoiced", got)
	}
}

func TestEstimate_DegenerateInputs(t *testing.T) {
	e := New()
	tests := []struct {
		name       string
		samples    []int16
		sampleRate int
	}{
		{"empty", nil, 22050},
		{"too short", sine(16, 220, 22050, 0.8), 22050},
		{"zero rate", sine(4096, 220, 22050, 0.8), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Estimate(tc.samples, tc.sampleRate); got.Voiced {
				t.Errorf("Estimate() = %+v, want unvoiced zero value", got)
			}
		})
	}
}

func TestEstimate_StricterThreshold(t *testing.T) {
	// A clean tone passes even a strict threshold.
	e := New(WithThreshold(0.05))
	got := e.Estimate(sine(4096, 330, 22050, 0.8), 22050)
	if !got.Voiced {
		t.Fatalf("Estimate(clean tone) with strict threshold: Voiced = false, want true")
	}
}

func TestEstimate_BufferReuseAcrossCalls(t *testing.T) {
	e := New()
	const sampleRate = 22050

	first := e.Estimate(sine(4096, 220, sampleRate, 0.8), sampleRate)
	second := e.Estimate(sine(4096, 660, sampleRate, 0.8), sampleRate)

	if !first.Voiced || !second.Voiced {
		t.Fatalf("Voiced = %v then %v, want true for both", first.Voiced, second.Voiced)
	}
	if math.Abs(second.Hz-660) > 660*0.03 {
		t.Errorf("second Estimate() Hz = %v, want within 3%% of 660", second.Hz)
	}
}
