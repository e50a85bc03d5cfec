// Package stream provides a speech recognizer backed by a streaming
// WebSocket transcription endpoint. It implements the asr.Provider
// interface.
//
// The wire protocol is the common streaming-STT shape: the client opens a
// WebSocket with format parameters in the query string, sends raw PCM as
// binary messages, and receives JSON result events carrying a transcript,
// a final flag, and a confidence score. A `{"type":"CloseStream"}` text
// message flushes pending audio on shutdown. Any endpoint speaking this
// shape (a self-hosted recognizer, a cloud gateway) can serve as backend.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/kavachapp/kavach/pkg/provider/asr"
)

const (
	defaultLanguage   = "en"
	defaultSampleRate = 22050
)

// Compile-time assertion that Provider implements asr.Provider.
var _ asr.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = language }
}

// WithSampleRate sets the provider-level default sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithAuthToken sets a bearer token sent in the Authorization header.
func WithAuthToken(token string) Option {
	return func(p *Provider) { p.authToken = token }
}

// Provider implements asr.Provider against a streaming WebSocket endpoint.
type Provider struct {
	endpoint   string
	authToken  string
	language   string
	sampleRate int
}

// New creates a Provider for the given WebSocket endpoint URL
// (e.g. "wss://stt.example.com/v1/listen"). endpoint must be non-empty.
func New(endpoint string, opts ...Option) (*Provider, error) {
	if endpoint == "" {
		return nil, errors.New("stream: endpoint must not be empty")
	}
	p := &Provider{
		endpoint:   endpoint,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// StartStream opens a streaming recognition session against the endpoint.
// It respects cfg.SampleRate, cfg.Channels, and cfg.Language.
func (p *Provider) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("stream: build URL: %w", err)
	}

	headers := http.Header{}
	if p.authToken != "" {
		headers.Set("Authorization", "Bearer "+p.authToken)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("stream: dial: %w", err)
	}

	sess := &session{
		conn:     conn,
		partials: make(chan asr.Segment, 64),
		finals:   make(chan asr.Segment, 64),
		audio:    make(chan []byte, 256),
		done:     make(chan struct{}),
		started:  time.Now(),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// buildURL constructs the endpoint URL with format parameters for cfg.
func (p *Provider) buildURL(cfg asr.StreamConfig) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}

	q := u.Query()
	q.Set("language", lang)
	q.Set("interim_results", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ─── session ─────────────────────────────────────────────────────────────────

// resultEvent is the JSON structure received for a transcription result.
type resultEvent struct {
	Type       string  `json:"type"`
	IsFinal    bool    `json:"is_final"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// session is a live streaming recognition session. It implements
// asr.SessionHandle.
type session struct {
	conn     *websocket.Conn
	partials chan asr.Segment
	finals   chan asr.Segment
	audio    chan []byte

	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	started time.Time
}

// Compile-time assertion that session satisfies asr.SessionHandle.
var _ asr.SessionHandle = (*session)(nil)

// SendAudio queues a PCM audio chunk for delivery to the endpoint.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("stream: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("stream: session is closed")
	}
}

// Partials returns the channel of interim segments.
func (s *session) Partials() <-chan asr.Segment { return s.partials }

// Finals returns the channel of final segments.
func (s *session) Finals() <-chan asr.Segment { return s.finals }

// Close terminates the session cleanly.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Ask the endpoint to flush pending audio.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to the
// endpoint.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from the endpoint and dispatches them to
// the partials and finals channels.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancellation.
			return
		}

		seg, ok := parseResult(msg, s.started)
		if !ok {
			continue
		}

		if seg.Final {
			select {
			case s.finals <- seg:
			case <-s.done:
			}
		} else {
			select {
			case s.partials <- seg:
			case <-s.done:
			}
		}
	}
}

// parseResult parses a raw result message into a Segment. Returns
// (zero, false) for events that should be ignored.
func parseResult(data []byte, started time.Time) (asr.Segment, bool) {
	var ev resultEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return asr.Segment{}, false
	}
	if ev.Type != "" && ev.Type != "Results" {
		return asr.Segment{}, false
	}
	if ev.Transcript == "" {
		return asr.Segment{}, false
	}

	return asr.Segment{
		Text:       ev.Transcript,
		Final:      ev.IsFinal,
		Confidence: ev.Confidence,
		Timestamp:  time.Since(started),
	}, true
}
