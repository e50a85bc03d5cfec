// Package mock provides in-memory mock implementations of the
// [asr.Provider] and [asr.SessionHandle] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	sess := mock.NewSession(8)
//	provider := &mock.Provider{StartStreamResult: sess}
//	sess.EmitFinal(asr.Segment{Text: "call police", Final: true})
package mock

import (
	"context"
	"sync"

	"github.com/kavachapp/kavach/pkg/provider/asr"
)

// ─── Provider ─────────────────────────────────────────────────────────────────

// Provider is a mock implementation of [asr.Provider].
type Provider struct {
	mu sync.Mutex

	// StartStreamResult is returned by StartStream when StartStreamError is
	// nil.
	StartStreamResult asr.SessionHandle

	// StartStreamError is returned by StartStream when non-nil.
	StartStreamError error

	// CallCountStartStream records how many times StartStream was called.
	CallCountStartStream int

	// RecordedConfigs holds the configs passed to StartStream, in order.
	RecordedConfigs []asr.StreamConfig
}

// Compile-time interface check.
var _ asr.Provider = (*Provider)(nil)

// StartStream returns the configured session or error and records the call.
func (p *Provider) StartStream(_ context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountStartStream++
	p.RecordedConfigs = append(p.RecordedConfigs, cfg)
	if p.StartStreamError != nil {
		return nil, p.StartStreamError
	}
	return p.StartStreamResult, nil
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Session is a mock [asr.SessionHandle] whose segments the test emits via
// [Session.EmitPartial] and [Session.EmitFinal].
type Session struct {
	mu sync.Mutex

	partials chan asr.Segment
	finals   chan asr.Segment

	// SendAudioError is returned by SendAudio when non-nil.
	SendAudioError error

	// CallCountSendAudio records how many times SendAudio was called.
	CallCountSendAudio int

	// ReceivedBytes accumulates all audio passed to SendAudio.
	ReceivedBytes int

	// CallCountClose records how many times Close was called.
	CallCountClose int

	closed bool
}

// Compile-time interface check.
var _ asr.SessionHandle = (*Session)(nil)

// NewSession creates a Session with segment buffers of the given size.
func NewSession(buffer int) *Session {
	return &Session{
		partials: make(chan asr.Segment, buffer),
		finals:   make(chan asr.Segment, buffer),
	}
}

// EmitPartial delivers an interim segment to the consumer.
func (s *Session) EmitPartial(seg asr.Segment) { s.partials <- seg }

// EmitFinal delivers an authoritative segment to the consumer.
func (s *Session) EmitFinal(seg asr.Segment) { s.finals <- seg }

// SendAudio records the call and the chunk size.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountSendAudio++
	s.ReceivedBytes += len(chunk)
	return s.SendAudioError
}

// SendAudioCalls returns how many times SendAudio was called. Safe to poll
// while the session is in use.
func (s *Session) SendAudioCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountSendAudio
}

// AudioBytes returns the total audio bytes received. Safe to poll while the
// session is in use.
func (s *Session) AudioBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ReceivedBytes
}

// Partials returns the partial segment channel.
func (s *Session) Partials() <-chan asr.Segment { return s.partials }

// Finals returns the final segment channel.
func (s *Session) Finals() <-chan asr.Segment { return s.finals }

// Close closes both segment channels and records the call. Safe to call
// more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.partials)
		close(s.finals)
	}
	return nil
}
