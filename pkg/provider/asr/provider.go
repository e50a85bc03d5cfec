// Package asr defines the Provider interface for speech recognition
// backends.
//
// A recognizer wraps a streaming speech-to-text engine (a local whisper.cpp
// model, a cloud websocket endpoint, …) and exposes a uniform streaming
// interface. The central abstraction is [SessionHandle]: once opened, a
// session accepts raw PCM audio and emits two streams of [Segment] values —
// low-latency partials for UI feedback and authoritative finals for keyword
// analysis. Only finals feed the threat pipeline.
//
// Implementations must be safe for concurrent use. Audio input and segment
// output channels are goroutine-safe by construction.
package asr

import (
	"context"
	"time"
)

// StreamConfig describes the audio format and recognition hints for a new
// recognizer session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. The detection pipeline
	// captures at 22050.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// recognizers). Implementors may downmix internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g. "en", "hi").
	// Empty lets the provider auto-detect, if supported.
	Language string
}

// Segment represents one recognition result. Both partial (interim) and
// final segments use this type.
type Segment struct {
	// Text is the transcribed speech content.
	Text string

	// Final indicates whether this is an authoritative result. Only final
	// segments are analyzed for keywords.
	Final bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration
}

// SessionHandle represents an open recognition session. It is an interface
// so that test code can provide mock implementations without a live backend.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and connections inside the provider. All
// methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian PCM bytes for
	// recognition. The chunk must match the SampleRate and Channels agreed
	// in StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// segments. Suitable for UI indicators; never fed to keyword analysis.
	// The channel is closed when the session ends.
	Partials() <-chan Segment

	// Finals returns a read-only channel emitting authoritative segments.
	// These are the values handed to the keyword spotter. The channel is
	// closed when the session ends.
	Finals() <-chan Segment

	// Close terminates the session, flushes pending audio, and releases all
	// associated resources. After Close returns, the Partials and Finals
	// channels are closed. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider is the abstraction over any speech recognition backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// StartStream opens a new streaming recognition session with the given
	// audio format. The returned SessionHandle accepts audio immediately.
	//
	// Returns an error if the session cannot be established (model missing,
	// auth failure, ctx already cancelled). The caller owns the handle and
	// must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
