// Package mock provides an in-memory mock implementation of
// [classifier.Model] for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/kavachapp/kavach/pkg/provider/classifier"
)

// Model is a mock [classifier.Model]. Safe for concurrent use.
type Model struct {
	mu sync.Mutex

	// Probabilities is the sequence returned by successive Predict calls.
	// Once exhausted, the last entry repeats. Empty means 0.
	Probabilities []float64

	// PredictError is returned by Predict when non-nil.
	PredictError error

	// Block, when non-nil, is received from inside Predict before
	// returning, letting tests hold an inference in flight.
	Block chan struct{}

	// CallCountPredict records how many times Predict was called.
	CallCountPredict int

	// RecordedVectors holds copies of the feature vectors passed to
	// Predict, in order.
	RecordedVectors [][]float64
}

// Compile-time interface check.
var _ classifier.Model = (*Model)(nil)

// PredictCalls returns how many times Predict was called. Safe to call
// while inferences are in flight.
func (m *Model) PredictCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCountPredict
}

// Predict returns the next scripted probability and records the call.
func (m *Model) Predict(ctx context.Context, features []float64) (float64, error) {
	m.mu.Lock()
	idx := m.CallCountPredict
	m.CallCountPredict++
	cp := make([]float64, len(features))
	copy(cp, features)
	m.RecordedVectors = append(m.RecordedVectors, cp)
	block := m.Block
	err := m.PredictError
	var p float64
	if len(m.Probabilities) > 0 {
		if idx >= len(m.Probabilities) {
			idx = len(m.Probabilities) - 1
		}
		p = m.Probabilities[idx]
	}
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}
	return p, nil
}
