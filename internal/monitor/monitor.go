// Package monitor runs the live threat-detection session. It owns the single
// audio worker goroutine that advances capture, feature extraction, acoustic
// scoring, and threat fusion serially per frame, plus the recognizer pump
// that feeds finalized transcripts back into that worker. Countdown and
// dispatch are wired through callbacks so a HIGH threat arms the countdown
// and an expired countdown fires the emergency fan-out.
//
// Callers observe the session through [Event] values delivered on a dedicated
// notifier goroutine; the event queue never blocks the audio worker.
package monitor

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kavachapp/kavach/internal/countdown"
	"github.com/kavachapp/kavach/internal/dispatch"
	"github.com/kavachapp/kavach/internal/feature"
	"github.com/kavachapp/kavach/internal/fusion"
	"github.com/kavachapp/kavach/internal/journal"
	"github.com/kavachapp/kavach/internal/keyword"
	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/internal/scorer"
	"github.com/kavachapp/kavach/pkg/capture"
	"github.com/kavachapp/kavach/pkg/contacts"
	"github.com/kavachapp/kavach/pkg/provider/asr"
	"github.com/kavachapp/kavach/pkg/provider/pitch"
	"github.com/kavachapp/kavach/pkg/telephony"
)

// eventQueueSize bounds the notification queue. When the callback cannot
// keep up, further events are dropped with a logged warning rather than
// stalling the audio worker.
const eventQueueSize = 64

// transcriptQueueSize bounds the final-transcript hand-off from the
// recognizer pump to the audio worker.
const transcriptQueueSize = 8

// Config holds the dependencies and tunables for a [Monitor].
type Config struct {
	// Device opens the audio capture source. Required.
	Device capture.Device

	// Capture is the requested audio format. Zero fields use the capture
	// package defaults.
	Capture capture.Config

	// Pitch estimates fundamental frequency per frame. Required.
	Pitch pitch.Estimator

	// Recognizer opens streaming speech recognition sessions. Nil disables
	// transcripts and keyword detection.
	Recognizer asr.Provider

	// Language is the recognition language hint passed to the recognizer.
	Language string

	// Scorer produces acoustic danger signals. Nil means rule-based scoring
	// with default thresholds.
	Scorer scorer.Scorer

	// Extractor accumulates the feature vector. Nil means a fresh extractor
	// without normalization parameters.
	Extractor *feature.Extractor

	// Spotter analyses final transcripts. Nil means the default bilingual
	// keyword tiers.
	Spotter *keyword.Spotter

	// Dialer places emergency calls and SMS. Nil means dispatch is recorded
	// but no transport is invoked.
	Dialer telephony.Dialer

	// Contacts supplies the emergency contact set. Required.
	Contacts contacts.Store

	// Journal persists incident history. Nil means no journal.
	Journal journal.Journal

	// CountdownSeconds overrides the countdown length. Zero means the
	// countdown package default.
	CountdownSeconds int

	// CancelSecret overrides the countdown cancellation secret. Empty means
	// the countdown package default.
	CancelSecret string

	// TickInterval overrides the countdown tick interval. Zero means one
	// second.
	TickInterval time.Duration

	// Debounce overrides the dispatch debounce window. Zero means the
	// dispatch package default.
	Debounce time.Duration

	// Message overrides the distress SMS text. Empty means the dispatch
	// package default.
	Message string
}

// Option is a functional option for configuring a [Monitor].
type Option func(*Monitor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mx *observe.Metrics) Option {
	return func(m *Monitor) { m.metrics = mx }
}

// WithOnEvent registers the session event callback. It is invoked on a
// dedicated notifier goroutine, one event at a time, in queue order.
func WithOnEvent(fn func(Event)) Option {
	return func(m *Monitor) { m.onEvent = fn }
}

// Monitor is the monitoring session life-cycle manager. Only one session can
// be active at a time. All exported methods are safe for concurrent use.
type Monitor struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics
	onEvent func(Event)

	mu        sync.Mutex
	running   bool
	sessionID string
	startedAt time.Time
	source    capture.Source
	recog     asr.SessionHandle
	engine    *fusion.Engine
	count     *countdown.Controller
	disp      *dispatch.Dispatcher
	cancel    context.CancelFunc
	group     *errgroup.Group
	notifyEnd chan struct{}
	notified  chan struct{}
}

// New creates a Monitor. Start opens the capture device; construction does
// not touch hardware.
func New(cfg Config, opts ...Option) *Monitor {
	if cfg.Scorer == nil {
		cfg.Scorer = scorer.NewRuleBased()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = feature.NewExtractor()
	}
	if cfg.Spotter == nil {
		cfg.Spotter = keyword.New()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	m := &Monitor{
		cfg: cfg,
		log: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start begins a new monitoring session. It opens the capture device, opens
// the recognizer stream when one is configured, arms the threat pipeline, and
// starts the worker goroutines.
//
// A capture open failure is fatal and nothing is left running. A recognizer
// open failure is not: the session continues without transcripts.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor: a session is already active (id=%s)", m.sessionID)
	}

	sessionID := uuid.NewString()

	source, err := m.cfg.Device.Open(m.cfg.Capture)
	if err != nil {
		return fmt.Errorf("monitor: open capture: %w", err)
	}

	var recog asr.SessionHandle
	if m.cfg.Recognizer != nil {
		recog, err = m.cfg.Recognizer.StartStream(ctx, asr.StreamConfig{
			SampleRate: sampleRate(m.cfg.Capture),
			Channels:   1,
			Language:   m.cfg.Language,
		})
		if err != nil {
			m.log.Warn("monitor: recognizer unavailable, continuing without transcripts",
				"session_id", sessionID, "err", err)
			recog = nil
		}
	}

	// Session-scoped context for the worker goroutines. Detached from the
	// Start context: the caller's request ending must not end the session.
	sessionCtx, cancel := context.WithCancel(context.Background())

	events := make(chan Event, eventQueueSize)

	disp := m.newDispatcher(events, sessionID)
	count := m.newCountdown(sessionCtx, events, sessionID, disp)
	engine := m.newEngine(sessionCtx, events, sessionID, count, disp)

	group := new(errgroup.Group)
	transcripts := make(chan string, transcriptQueueSize)

	group.Go(func() error {
		return m.worker(sessionCtx, events, source, recog, engine, transcripts, sessionID)
	})
	if recog != nil {
		group.Go(func() error {
			return m.pump(sessionCtx, recog, transcripts)
		})
	}

	notifyEnd := make(chan struct{})
	notified := make(chan struct{})
	go m.notify(events, notifyEnd, notified)

	m.running = true
	m.sessionID = sessionID
	m.startedAt = time.Now().UTC()
	m.source = source
	m.recog = recog
	m.engine = engine
	m.count = count
	m.disp = disp
	m.cancel = cancel
	m.group = group
	m.notifyEnd = notifyEnd
	m.notified = notified

	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, 1)
	}
	m.log.Info("monitoring started",
		"session_id", sessionID,
		"sample_rate", sampleRate(m.cfg.Capture),
		"transcripts", recog != nil,
		"model_scoring", m.cfg.Extractor.HasScaler(),
	)
	return nil
}

// Stop ends the active session. It cancels the workers, waits for them to
// drain, closes the capture source and recognizer session, delivers queued
// events, and resets the threat pipeline. It is synchronous: when Stop
// returns, nothing from the session is still running.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return fmt.Errorf("monitor: no active session to stop")
	}
	sessionID := m.sessionID

	m.cancel()
	if err := m.source.Close(); err != nil {
		m.log.Warn("monitor: capture close error", "session_id", sessionID, "err", err)
	}
	if err := m.group.Wait(); err != nil {
		m.log.Warn("monitor: worker error", "session_id", sessionID, "err", err)
	}
	if m.recog != nil {
		if err := m.recog.Close(); err != nil {
			m.log.Warn("monitor: recognizer close error", "session_id", sessionID, "err", err)
		}
	}

	// Workers are done; discard any in-flight countdown before shutting the
	// notifier down so no callback fires into a closed queue.
	m.count.Reset()
	m.engine.Reset(ctx)
	m.cfg.Scorer.Reset()
	m.cfg.Extractor.Reset()

	close(m.notifyEnd)
	<-m.notified

	m.running = false
	m.sessionID = ""
	m.startedAt = time.Time{}
	m.source = nil
	m.recog = nil
	m.engine = nil
	m.count = nil
	m.disp = nil
	m.cancel = nil
	m.group = nil
	m.notifyEnd = nil
	m.notified = nil

	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, -1)
	}
	m.log.Info("monitoring stopped", "session_id", sessionID)
	return nil
}

// Status is an observable snapshot of the monitor.
type Status struct {
	Running   bool      `json:"running"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Threat    string    `json:"threat"`
	Source    string    `json:"source,omitempty"`
	Countdown string    `json:"countdown"`
	Remaining int       `json:"remaining,omitempty"`
}

// Status returns a snapshot of the active session, or an idle snapshot when
// none is running.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running:   m.running,
		SessionID: m.sessionID,
		StartedAt: m.startedAt,
		Threat:    fusion.LevelSafe.String(),
		Countdown: countdown.PhaseIdle.String(),
	}
	if m.engine != nil {
		a := m.engine.Current()
		s.Threat = a.Level.String()
		s.Source = a.Source
	}
	if m.count != nil {
		cs := m.count.State()
		s.Countdown = cs.Phase.String()
		s.Remaining = cs.Remaining
	}
	return s
}

// Running reports whether a session is currently active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// SessionID returns the active session's identifier, or "" when idle.
func (m *Monitor) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Threat returns the current fused assessment. Zero value when idle.
func (m *Monitor) Threat() fusion.Assessment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.engine == nil {
		return fusion.Assessment{}
	}
	return m.engine.Current()
}

// Countdown returns the current countdown state. Zero value when idle.
func (m *Monitor) Countdown() countdown.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == nil {
		return countdown.State{}
	}
	return m.count.State()
}

// Cancel attempts to cancel a running countdown with the given secret.
// Returns [countdown.ErrNotCounting] when no countdown is running and
// [countdown.ErrWrongSecret] when the secret does not match.
func (m *Monitor) Cancel(ctx context.Context, secret string) error {
	m.mu.Lock()
	count := m.count
	m.mu.Unlock()
	if count == nil {
		return countdown.ErrNotCounting
	}
	return count.Cancel(ctx, secret)
}

// newDispatcher builds the per-session emergency dispatcher with events and
// journal writes attached.
func (m *Monitor) newDispatcher(events chan Event, sessionID string) *dispatch.Dispatcher {
	opts := []dispatch.Option{
		dispatch.WithLogger(m.log),
		dispatch.WithOnAction(func(a dispatch.Action) {
			m.publish(events, Event{
				Type:      EventDispatchAttempted,
				SessionID: sessionID,
				Timestamp: a.Timestamp,
				Action:    a,
			})
			m.journalAction(sessionID, a)
		}),
	}
	if m.cfg.Debounce > 0 {
		opts = append(opts, dispatch.WithDebounce(m.cfg.Debounce))
	}
	if m.cfg.Message != "" {
		opts = append(opts, dispatch.WithMessage(m.cfg.Message))
	}
	if m.metrics != nil {
		opts = append(opts, dispatch.WithMetrics(m.metrics))
	}
	return dispatch.New(m.cfg.Dialer, m.cfg.Contacts, opts...)
}

// newCountdown builds the per-session countdown controller. Expiry triggers
// dispatch; cancellation returns the session to SAFE.
func (m *Monitor) newCountdown(sessionCtx context.Context, events chan Event, sessionID string, disp *dispatch.Dispatcher) *countdown.Controller {
	opts := []countdown.Option{
		countdown.WithLogger(m.log),
		countdown.WithOnTick(func(remaining int) {
			m.publish(events, Event{
				Type:      EventCountdownTick,
				SessionID: sessionID,
				Timestamp: time.Now().UTC(),
				Remaining: remaining,
			})
		}),
		countdown.WithOnExpired(func() {
			m.publish(events, Event{
				Type:      EventCountdownExpired,
				SessionID: sessionID,
				Timestamp: time.Now().UTC(),
			})
			m.journalCountdown(sessionID, "expired")
			disp.Trigger(sessionCtx)
		}),
	}
	if m.cfg.CountdownSeconds > 0 {
		opts = append(opts, countdown.WithDuration(m.cfg.CountdownSeconds))
	}
	if m.cfg.CancelSecret != "" {
		opts = append(opts, countdown.WithSecret(m.cfg.CancelSecret))
	}
	if m.cfg.TickInterval > 0 {
		opts = append(opts, countdown.WithTickInterval(m.cfg.TickInterval))
	}
	if m.metrics != nil {
		opts = append(opts, countdown.WithMetrics(m.metrics))
	}
	return countdown.New(opts...)
}

// newEngine builds the per-session fusion engine. Entering HIGH arms the
// countdown; the cancellation callback is attached afterwards because it
// needs the engine itself to reset.
func (m *Monitor) newEngine(sessionCtx context.Context, events chan Event, sessionID string, count *countdown.Controller, disp *dispatch.Dispatcher) *fusion.Engine {
	opts := []fusion.Option{
		fusion.WithLogger(m.log),
		fusion.WithOnChange(func(a fusion.Assessment) {
			m.publish(events, Event{
				Type:       EventThreatLevelChanged,
				SessionID:  sessionID,
				Timestamp:  a.Timestamp,
				Assessment: a,
			})
			m.journalTransition(sessionID, a)
		}),
		fusion.WithOnHigh(func(fusion.Assessment) {
			count.Start(sessionCtx)
		}),
	}
	if m.metrics != nil {
		opts = append(opts, fusion.WithMetrics(m.metrics))
	}
	engine := fusion.NewEngine(opts...)

	count.SetOnCancelled(func() {
		m.publish(events, Event{
			Type:      EventCountdownCancelled,
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
		})
		m.journalCountdown(sessionID, "cancelled")
		engine.Reset(sessionCtx)
		disp.ResetEpisode()
		// Back to Idle so the next HIGH entry can arm a fresh countdown.
		count.Reset()
	})
	return engine
}

// worker is the single audio goroutine. Every frame advances the pipeline
// serially: feature accumulation, silence gate, pitch estimation, scoring,
// fusion. Final transcripts arriving from the pump are folded in between
// frames on this same goroutine; the extractor is not safe for concurrent
// use.
func (m *Monitor) worker(ctx context.Context, events chan Event, source capture.Source, recog asr.SessionHandle, engine *fusion.Engine, transcripts <-chan string, sessionID string) error {
	ext := m.cfg.Extractor
	sc := m.cfg.Scorer

	for {
		select {
		case <-ctx.Done():
			return nil

		case text := <-transcripts:
			m.observeTranscript(ctx, events, engine, text, sessionID)

		case frame, ok := <-source.Frames():
			if !ok {
				m.log.Warn("monitor: audio stream ended", "session_id", sessionID)
				return nil
			}

			if recog != nil {
				if err := recog.SendAudio(pcmBytes(frame.Samples)); err != nil {
					m.log.Debug("monitor: send audio", "session_id", sessionID, "err", err)
				}
			}

			st := ext.ObserveFrame(frame.Samples)
			if m.metrics != nil {
				m.metrics.RecordFrame(ctx, st.Silent)
			}
			if st.Silent {
				continue
			}

			est := m.cfg.Pitch.Estimate(frame.Samples, frame.SampleRate)
			if est.Voiced {
				ext.ObservePitch(est.Hz)
			}

			sig := sc.Score(ctx, scorer.Observation{
				PitchHz:  est.Hz,
				Voiced:   est.Voiced,
				RMS:      st.RMS,
				Vector:   [scorer.VectorDim]float64(ext.Vector()),
				VectorOK: ext.HasScaler(),
			})
			if sig == scorer.SignalDanger {
				engine.ObserveSignal(ctx, sig)
			}
		}
	}
}

// observeTranscript folds one final transcript into the extractor and runs
// keyword analysis.
func (m *Monitor) observeTranscript(ctx context.Context, events chan Event, engine *fusion.Engine, text string, sessionID string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	m.cfg.Extractor.ObserveText(text)

	match := m.cfg.Spotter.Analyze(text)
	m.publish(events, Event{
		Type:       EventTranscriptDetected,
		SessionID:  sessionID,
		Timestamp:  time.Now().UTC(),
		Transcript: text,
		Keyword:    match,
	})
	if match.Tier != keyword.TierNone {
		engine.ObserveKeyword(ctx, match)
	}
}

// pump forwards final recognition segments from the recognizer session to
// the audio worker. Partials are intentionally ignored.
func (m *Monitor) pump(ctx context.Context, recog asr.SessionHandle, transcripts chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case seg, ok := <-recog.Finals():
			if !ok {
				return nil
			}
			select {
			case transcripts <- seg.Text:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// notify delivers queued events to the registered callback, one at a time.
// After end is closed it drains whatever is still queued and exits.
func (m *Monitor) notify(events <-chan Event, end <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-events:
			m.deliver(ev)
		case <-end:
			for {
				select {
				case ev := <-events:
					m.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver invokes the event callback when one is registered.
func (m *Monitor) deliver(ev Event) {
	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// publish enqueues an event without blocking. A full queue drops the event
// with a warning.
func (m *Monitor) publish(events chan<- Event, ev Event) {
	select {
	case events <- ev:
	default:
		m.log.Warn("monitor: event queue full, dropping event",
			"session_id", ev.SessionID, "type", ev.Type.String())
	}
}

// journalTransition records a threat transition, best-effort.
func (m *Monitor) journalTransition(sessionID string, a fusion.Assessment) {
	err := m.cfg.Journal.RecordTransition(context.Background(), journal.Transition{
		SessionID: sessionID,
		Level:     a.Level.String(),
		Source:    a.Source,
		At:        a.Timestamp,
	})
	if err != nil {
		m.log.Warn("monitor: journal transition", "session_id", sessionID, "err", err)
	}
}

// journalAction records a dispatch attempt, best-effort.
func (m *Monitor) journalAction(sessionID string, a dispatch.Action) {
	err := m.cfg.Journal.RecordAction(context.Background(), journal.Action{
		SessionID: sessionID,
		Kind:      string(a.Kind),
		Target:    a.Target,
		Failed:    a.Failed,
		Error:     a.Error,
		At:        a.Timestamp,
	})
	if err != nil {
		m.log.Warn("monitor: journal action", "session_id", sessionID, "err", err)
	}
}

// journalCountdown records a countdown outcome, best-effort.
func (m *Monitor) journalCountdown(sessionID, outcome string) {
	err := m.cfg.Journal.RecordCountdown(context.Background(), journal.CountdownEvent{
		SessionID: sessionID,
		Outcome:   outcome,
		At:        time.Now().UTC(),
	})
	if err != nil {
		m.log.Warn("monitor: journal countdown", "session_id", sessionID, "err", err)
	}
}

// sampleRate resolves the effective capture sample rate.
func sampleRate(cfg capture.Config) int {
	if cfg.SampleRate > 0 {
		return cfg.SampleRate
	}
	return capture.DefaultSampleRate
}

// pcmBytes converts mono samples to the little-endian byte layout the
// recognizer session expects.
func pcmBytes(samples []int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	return buf
}
