package feature

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func constSamples(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// alternating returns n samples flipping between +v and -v every sample, so
// every adjacent pair crosses zero.
func alternating(n int, v int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		if i%2 == 0 {
			s[i] = v
		} else {
			s[i] = -v
		}
	}
	return s
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", constSamples(64, 0), 0},
		{"full scale", constSamples(64, -32768), 1},
		{"half scale", constSamples(64, 16384), 0.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RMS(tc.samples)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("RMS() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestZCR(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"too short", []int16{5}, 0},
		{"constant", constSamples(16, 100), 0},
		{"alternating", alternating(16, 100), 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ZCR(tc.samples); got != tc.want {
				t.Errorf("ZCR() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestObserveFrame_SilenceGate(t *testing.T) {
	e := NewExtractor()

	st := e.ObserveFrame(constSamples(128, 50))
	if !st.Silent {
		t.Fatalf("ObserveFrame(quiet) Silent = false, want true")
	}
	if v := e.Vector(); v[10] != 0 {
		t.Errorf("RMS mean after silent frame = %v, want 0", v[10])
	}

	st = e.ObserveFrame(constSamples(128, 3000))
	if st.Silent {
		t.Fatalf("ObserveFrame(loud) Silent = true, want false")
	}
	if v := e.Vector(); v[10] == 0 {
		t.Error("RMS mean after loud frame = 0, want > 0")
	}
}

func TestVector_Layout(t *testing.T) {
	e := NewExtractor()
	e.ObserveFrame(constSamples(128, 16384))
	e.ObservePitch(200)
	e.ObservePitch(300)

	v := e.Vector()
	if got := v[8]; math.Abs(got-250) > 1e-9 {
		t.Errorf("pitch mean = %v, want 250", got)
	}
	if got := v[9]; math.Abs(got-50) > 1e-9 {
		t.Errorf("pitch stddev = %v, want 50", got)
	}
	if got := v[10]; math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS mean = %v, want 0.5", got)
	}
	if got := v[13]; got != defaultTempo {
		t.Errorf("tempo slot = %v, want %v", got, defaultTempo)
	}
	for i := 14; i < Dim; i++ {
		if v[i] != 0 {
			t.Errorf("baseline slot [%d] = %v, want 0", i, v[i])
		}
	}
}

func TestVector_NeutralSentimentBeforeTranscript(t *testing.T) {
	e := NewExtractor()
	if got := e.Vector()[4]; got != 50 {
		t.Errorf("sentiment slot before transcript = %v, want 50", got)
	}
}

func TestObserveText_ReplacesPrevious(t *testing.T) {
	e := NewExtractor()

	e.ObserveText("help me please, call the police")
	v := e.Vector()
	if v[0] != 1 {
		t.Errorf("has-keywords slot = %v, want 1", v[0])
	}
	if v[2] != 1 {
		t.Errorf("critical slot = %v, want 1", v[2])
	}

	e.ObserveText("what a wonderful happy day")
	v = e.Vector()
	if v[0] != 0 {
		t.Errorf("has-keywords slot after benign text = %v, want 0", v[0])
	}
	if v[2] != 0 {
		t.Errorf("critical slot after benign text = %v, want 0", v[2])
	}
}

func TestTextFeatures(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantKeywords float64
		wantCritical float64
		wantNegative float64
	}{
		{"empty", "", 0, 0, 0},
		{"benign", "the weather is nice today", 0, 0, 0},
		{"negative", "I am so scared and afraid", 1, 0, 1},
		{"critical", "somebody call the police", 1, 1, 1},
		{"apostrophe", "don't hurt me", 1, 0, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := textFeatures(tc.text)
			if out[0] != tc.wantKeywords {
				t.Errorf("has-keywords = %v, want %v", out[0], tc.wantKeywords)
			}
			if out[2] != tc.wantCritical {
				t.Errorf("critical = %v, want %v", out[2], tc.wantCritical)
			}
			if out[3] != tc.wantNegative {
				t.Errorf("negative = %v, want %v", out[3], tc.wantNegative)
			}
		})
	}
}

func TestTextFeatures_FearScoreCaps(t *testing.T) {
	out := textFeatures("scared afraid terrified frightened fearful panic")
	if out[7] != 100 {
		t.Errorf("fear score = %v, want 100", out[7])
	}
}

func TestReset(t *testing.T) {
	e := NewExtractor()
	e.ObserveFrame(constSamples(128, 16384))
	e.ObservePitch(440)
	e.ObserveText("help help help")

	e.Reset()
	v := e.Vector()
	for i, got := range v {
		want := 0.0
		switch i {
		case 4:
			want = 50
		case 13:
			want = defaultTempo
		}
		if got != want {
			t.Errorf("Vector()[%d] after Reset = %v, want %v", i, got, want)
		}
	}
}

func TestRolling_WindowEviction(t *testing.T) {
	r := newRolling(3)
	for _, v := range []float64{100, 1, 2, 3} {
		r.push(v)
	}
	if got := r.mean(); got != 2 {
		t.Errorf("mean after eviction = %v, want 2", got)
	}
}

func TestScaler_Normalize(t *testing.T) {
	mean := make([]float64, Dim)
	scale := make([]float64, Dim)
	for i := range scale {
		mean[i] = 1
		scale[i] = 2
	}
	s, err := NewScaler(mean, scale)
	if err != nil {
		t.Fatalf("NewScaler: %v", err)
	}

	var raw Vector
	raw[0] = 5
	out := s.Normalize(raw)
	if out[0] != 2 {
		t.Errorf("Normalize()[0] = %v, want 2", out[0])
	}
	if out[1] != -0.5 {
		t.Errorf("Normalize()[1] = %v, want -0.5", out[1])
	}
}

func TestNewScaler_Validation(t *testing.T) {
	good := make([]float64, Dim)
	for i := range good {
		good[i] = 1
	}

	if _, err := NewScaler(good[:5], good); err == nil {
		t.Error("NewScaler with short mean: want error, got nil")
	}

	zeroed := make([]float64, Dim)
	copy(zeroed, good)
	zeroed[3] = 0
	if _, err := NewScaler(good, zeroed); err == nil {
		t.Error("NewScaler with zero scale: want error, got nil")
	}
}

func TestLoadScaler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scaler.yaml")

	content := "mean: [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0]\n" +
		"scale: [1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadScaler(path)
	if err != nil {
		t.Fatalf("LoadScaler: %v", err)
	}
	if s.Scale[16] != 1 {
		t.Errorf("Scale[16] = %v, want 1", s.Scale[16])
	}

	if _, err := LoadScaler(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadScaler(missing): want error, got nil")
	}
}
