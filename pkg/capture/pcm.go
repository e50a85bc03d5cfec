package capture

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"
)

// Compile-time interface checks.
var (
	_ Device = (*PCMDevice)(nil)
	_ Source = (*pcmSource)(nil)
)

// PCMDevice is a [Device] backed by an io.Reader of raw signed 16-bit
// little-endian mono PCM. It exists so the detection pipeline can be driven
// from files, pipes, or an external capture process (e.g. arecord/sox output)
// without platform audio bindings.
type PCMDevice struct {
	r io.Reader

	// closer, when non-nil, is invoked by the source's Close to release the
	// underlying reader (e.g. an *os.File).
	closer io.Closer
}

// NewPCMDevice wraps r as a capture device. If r also implements io.Closer it
// is closed when the source is closed.
func NewPCMDevice(r io.Reader) *PCMDevice {
	d := &PCMDevice{r: r}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Open starts reading frames from the underlying reader. A nil reader is an
// open failure, reported as [*InitError] like any device-level fault.
func (d *PCMDevice) Open(cfg Config) (Source, error) {
	if d.r == nil {
		return nil, &InitError{Device: "pcm-reader", Err: errors.New("nil reader")}
	}
	cfg = cfg.withDefaults()

	s := &pcmSource{
		r:      d.r,
		closer: d.closer,
		cfg:    cfg,
		frames: make(chan Frame, 4),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

// pcmSource reads fixed-size PCM frames from an io.Reader on a dedicated
// goroutine. All reader state is confined to readLoop.
type pcmSource struct {
	r      io.Reader
	closer io.Closer
	cfg    Config

	frames chan Frame

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Frames returns the channel of captured frames.
func (s *pcmSource) Frames() <-chan Frame { return s.frames }

// Close stops the read loop and waits for it to drain before releasing the
// underlying reader. Safe to call more than once.
func (s *pcmSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// readLoop reads one frame's worth of bytes at a time and delivers decoded
// frames until EOF, a read error, or Close.
func (s *pcmSource) readLoop() {
	defer s.wg.Done()
	defer close(s.frames)

	frameBytes := s.cfg.FrameSize * 2
	buf := make([]byte, frameBytes)
	var elapsed time.Duration
	frameDur := time.Duration(s.cfg.FrameSize) * time.Second / time.Duration(s.cfg.SampleRate)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			// Drop a trailing odd byte; samples are two bytes each.
			samples := make([]int16, n/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
			}
			f := Frame{
				Samples:    samples,
				SampleRate: s.cfg.SampleRate,
				Timestamp:  elapsed,
			}
			elapsed += frameDur

			select {
			case s.frames <- f:
			case <-s.done:
				return
			}
		}
		if err != nil {
			// EOF and short reads end the stream; both are normal for
			// file-backed sources.
			return
		}
	}
}
