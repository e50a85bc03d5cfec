// Package mock provides in-memory mock implementations of the
// [capture.Device] and [capture.Source] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	src := mock.NewSource(8)
//	dev := &mock.Device{OpenResult: src}
//	go func() {
//	    src.Push(capture.Frame{Samples: samples, SampleRate: 22050})
//	    src.Finish()
//	}()
package mock

import (
	"sync"

	"github.com/kavachapp/kavach/pkg/capture"
)

// ─── Device ───────────────────────────────────────────────────────────────────

// Device is a mock implementation of [capture.Device].
// Set the exported Result fields before use; inspect the Call* fields after.
type Device struct {
	mu sync.Mutex

	// OpenResult is returned by [Device.Open] when OpenError is nil.
	OpenResult capture.Source

	// OpenError is returned by [Device.Open] when non-nil.
	OpenError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int

	// RecordedConfigs holds the configs passed to Open, in order.
	RecordedConfigs []capture.Config
}

// Open returns the configured result or error and records the call.
func (d *Device) Open(cfg capture.Config) (capture.Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountOpen++
	d.RecordedConfigs = append(d.RecordedConfigs, cfg)
	if d.OpenError != nil {
		return nil, d.OpenError
	}
	return d.OpenResult, nil
}

// ─── Source ───────────────────────────────────────────────────────────────────

// Source is a mock implementation of [capture.Source] whose frames the test
// feeds via [Source.Push]. Call [Source.Finish] to end the stream without
// closing the device, or Close to do both.
type Source struct {
	mu sync.Mutex

	frames chan capture.Frame

	// CloseError is returned by [Source.Close].
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	finished bool
}

// NewSource creates a Source with a frame buffer of the given size.
func NewSource(buffer int) *Source {
	return &Source{frames: make(chan capture.Frame, buffer)}
}

// Push delivers a frame to the consumer. It blocks if the buffer is full and
// panics if the stream has already finished, mirroring a real source that
// never produces after close.
func (s *Source) Push(f capture.Frame) {
	s.frames <- f
}

// Finish closes the frame channel, signalling end of stream.
func (s *Source) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.frames)
	}
}

// Frames returns the frame channel.
func (s *Source) Frames() <-chan capture.Frame { return s.frames }

// Close ends the stream and records the call.
func (s *Source) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	err := s.CloseError
	s.mu.Unlock()
	s.Finish()
	return err
}

// Compile-time interface checks.
var (
	_ capture.Device = (*Device)(nil)
	_ capture.Source = (*Source)(nil)
)
