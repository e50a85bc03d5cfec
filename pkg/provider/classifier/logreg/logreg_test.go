package logreg

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kavachapp/kavach/pkg/provider/classifier"
)

func zeroFeatures() []float64 {
	return make([]float64, classifier.FeatureDim)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(make([]float64, 5), 0); err == nil {
		t.Error("New with 5 weights: want error, got nil")
	}
	if _, err := New(zeroFeatures(), 0); err != nil {
		t.Errorf("New with %d weights: %v", classifier.FeatureDim, err)
	}
}

func TestPredict(t *testing.T) {
	weights := zeroFeatures()
	weights[0] = 2

	tests := []struct {
		name string
		bias float64
		x0   float64
		want float64
	}{
		{"zero logit", 0, 0, 0.5},
		{"positive logit", 0, 1, 1 / (1 + math.Exp(-2))},
		{"negative bias", -4, 0, 1 / (1 + math.Exp(4))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(weights, tc.bias)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			features := zeroFeatures()
			features[0] = tc.x0

			got, err := m.Predict(context.Background(), features)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("Predict() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPredict_WrongDimension(t *testing.T) {
	m, err := New(zeroFeatures(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.Predict(context.Background(), make([]float64, 3)); err == nil {
		t.Error("Predict with 3 features: want error, got nil")
	}
}

func TestPredict_CancelledContext(t *testing.T) {
	m, err := New(zeroFeatures(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Predict(ctx, zeroFeatures()); err == nil {
		t.Error("Predict with cancelled context: want error, got nil")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")

	entries := make([]string, classifier.FeatureDim)
	for i := range entries {
		entries[i] = "0.1"
	}
	content := "weights: [" + strings.Join(entries, ", ") + "]\nbias: -1.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := m.Predict(context.Background(), zeroFeatures())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := 1 / (1 + math.Exp(1.5))
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Predict() on zero vector = %v, want %v", got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing): want error, got nil")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("weights: [1, 2, 3]\nbias: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("Load(short weights): want error, got nil")
	}
}
