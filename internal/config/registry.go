package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kavachapp/kavach/pkg/capture"
	"github.com/kavachapp/kavach/pkg/provider/asr"
	"github.com/kavachapp/kavach/pkg/provider/classifier"
	"github.com/kavachapp/kavach/pkg/provider/pitch"
	"github.com/kavachapp/kavach/pkg/telephony"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// capability. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	capture    map[string]func(ProviderEntry) (capture.Device, error)
	pitch      map[string]func(ProviderEntry) (pitch.Estimator, error)
	asr        map[string]func(ProviderEntry) (asr.Provider, error)
	classifier map[string]func(ProviderEntry) (classifier.Model, error)
	telephony  map[string]func(ProviderEntry) (telephony.Dialer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		capture:    make(map[string]func(ProviderEntry) (capture.Device, error)),
		pitch:      make(map[string]func(ProviderEntry) (pitch.Estimator, error)),
		asr:        make(map[string]func(ProviderEntry) (asr.Provider, error)),
		classifier: make(map[string]func(ProviderEntry) (classifier.Model, error)),
		telephony:  make(map[string]func(ProviderEntry) (telephony.Dialer, error)),
	}
}

// RegisterCapture registers a capture device factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterCapture(name string, factory func(ProviderEntry) (capture.Device, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterPitch registers a pitch estimator factory under name.
func (r *Registry) RegisterPitch(name string, factory func(ProviderEntry) (pitch.Estimator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pitch[name] = factory
}

// RegisterASR registers a speech recognizer factory under name.
func (r *Registry) RegisterASR(name string, factory func(ProviderEntry) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[name] = factory
}

// RegisterClassifier registers a classifier factory under name.
func (r *Registry) RegisterClassifier(name string, factory func(ProviderEntry) (classifier.Model, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifier[name] = factory
}

// RegisterTelephony registers a telephony dialer factory under name.
func (r *Registry) RegisterTelephony(name string, factory func(ProviderEntry) (telephony.Dialer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.telephony[name] = factory
}

// CreateCapture instantiates a capture device using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has
// been registered for that name.
func (r *Registry) CreateCapture(entry ProviderEntry) (capture.Device, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePitch instantiates a pitch estimator using the factory registered under entry.Name.
func (r *Registry) CreatePitch(entry ProviderEntry) (pitch.Estimator, error) {
	r.mu.RLock()
	factory, ok := r.pitch[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: pitch/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateASR instantiates a speech recognizer using the factory registered under entry.Name.
func (r *Registry) CreateASR(entry ProviderEntry) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateClassifier instantiates a classifier using the factory registered under entry.Name.
func (r *Registry) CreateClassifier(entry ProviderEntry) (classifier.Model, error) {
	r.mu.RLock()
	factory, ok := r.classifier[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: classifier/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTelephony instantiates a telephony dialer using the factory registered under entry.Name.
func (r *Registry) CreateTelephony(entry ProviderEntry) (telephony.Dialer, error) {
	r.mu.RLock()
	factory, ok := r.telephony[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: telephony/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
