// Package capture defines the interfaces and types for audio input within
// Kavach.
//
// The central abstraction is [Source]: something that owns an audio capture
// device and produces a continuous sequence of fixed-size PCM frames until
// explicitly closed. Implementations for real microphone hardware live in
// platform-specific adapter packages; this package ships [PCMSource], a
// reader-backed reference implementation that makes the pipeline drivable
// from files, pipes, or an external capture process.
//
// This package lives under pkg/ because external code (platform microphone
// adapters) is expected to implement [Source].
package capture

import (
	"fmt"
	"time"
)

const (
	// DefaultSampleRate is the capture sample rate in Hz used throughout the
	// detection pipeline.
	DefaultSampleRate = 22050

	// DefaultFrameSize is the configured floor for frame size in samples.
	// Real devices use max(platform minimum, DefaultFrameSize).
	DefaultFrameSize = 4096
)

// Frame is a single fixed-size chunk of mono 16-bit PCM audio. Frames are
// the atomic unit of the detection pipeline: produced by a [Source], consumed
// exactly once by the feature extractor, and never retained.
type Frame struct {
	// Samples holds signed 16-bit mono PCM samples.
	Samples []int16

	// SampleRate in Hz (22050 for the standard pipeline).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	// It increases monotonically across frames from the same Source.
	Timestamp time.Duration
}

// Duration returns the wall-clock length of the frame's audio.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// Config describes the capture format requested from a [Source].
type Config struct {
	// SampleRate is the requested sample rate in Hz. Zero means
	// [DefaultSampleRate].
	SampleRate int

	// FrameSize is the requested frame size floor in samples. The source may
	// deliver larger frames if the platform minimum buffer exceeds it.
	// Zero means [DefaultFrameSize].
	FrameSize int
}

// withDefaults returns cfg with zero fields replaced by package defaults.
func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	return c
}

// Source produces a continuous stream of audio [Frame] values from a capture
// device.
//
// A Source is obtained from a [Device] and remains valid until Close is
// called. The Frames channel is closed when the stream ends, either because
// Close was called or because the underlying device failed.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Frames returns the read-only channel delivering captured frames in
	// capture order. The channel is closed when the stream terminates.
	Frames() <-chan Frame

	// Close synchronously releases the capture device. It must not return
	// until the device is released, regardless of in-flight frame delivery.
	// Calling Close more than once is safe and returns nil.
	Close() error
}

// Device is the entry point for an audio capture backend. Implementations
// wrap platform audio APIs and expose a uniform [Source] abstraction.
//
// Implementations must be safe for concurrent use.
type Device interface {
	// Open starts capturing with the given format and returns an active
	// [Source]. A failure to open (device busy, permission missing) is
	// reported as a [*InitError]; monitoring must not partially start on top
	// of a failed open.
	Open(cfg Config) (Source, error)
}

// InitError reports that the capture device could not be opened. It is fatal
// to starting a monitoring session.
type InitError struct {
	// Device names the capture backend that failed (e.g. "pcm-reader").
	Device string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("capture: open %s: %v", e.Device, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *InitError) Unwrap() error { return e.Err }
