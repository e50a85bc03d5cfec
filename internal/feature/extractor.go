package feature

// defaultWindow is the number of recent non-silent frames contributing to
// the rolling audio statistics. At the 22.05 kHz / 4096-sample frame size
// this covers roughly the last twelve seconds of speech.
const defaultWindow = 64

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithScaler supplies the normalization parameters. Without a scaler the
// extractor still produces raw vectors (identity scale) but
// [Extractor.HasScaler] reports false so the caller can disable model-based
// scoring.
func WithScaler(s *Scaler) Option {
	return func(e *Extractor) { e.scaler = s }
}

// WithWindow sets the rolling statistics window in frames. Default: 64.
func WithWindow(n int) Option {
	return func(e *Extractor) { e.window = n }
}

// FrameStats is the per-frame result of [Extractor.ObserveFrame].
type FrameStats struct {
	// RMS is the frame's root-mean-square amplitude on the 0..1 scale.
	RMS float64

	// ZCR is the frame's zero-crossing rate.
	ZCR float64

	// Silent reports that the frame fell below [SilenceRMS] and was
	// excluded from accumulation. Silent frames must not trigger
	// downstream inference.
	Silent bool
}

// Extractor accumulates rolling audio statistics and text observations into
// the 17-dimension feature vector. It is driven from the single audio
// worker goroutine and is NOT safe for concurrent use.
type Extractor struct {
	scaler *Scaler
	window int

	rms   *rolling
	zcr   *rolling
	pitch *rolling

	text [8]float64
}

// NewExtractor creates an Extractor with the supplied options applied.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{window: defaultWindow}
	for _, o := range opts {
		o(e)
	}
	e.rms = newRolling(e.window)
	e.zcr = newRolling(e.window)
	e.pitch = newRolling(e.window)
	e.text[4] = 50 // neutral sentiment until the first transcript
	return e
}

// HasScaler reports whether normalization parameters were loaded. Without
// them the classifier must not run.
func (e *Extractor) HasScaler() bool { return e.scaler != nil }

// ObserveFrame folds one audio frame into the rolling statistics and
// returns its per-frame stats. Frames below the silence gate are measured
// but not accumulated.
func (e *Extractor) ObserveFrame(samples []int16) FrameStats {
	st := FrameStats{
		RMS: RMS(samples),
		ZCR: ZCR(samples),
	}
	if st.RMS < SilenceRMS {
		st.Silent = true
		return st
	}
	e.rms.push(st.RMS)
	e.zcr.push(st.ZCR)
	return st
}

// ObservePitch folds one voiced pitch estimate (Hz) into the rolling pitch
// statistics. Unvoiced frames must not be reported here.
func (e *Extractor) ObservePitch(hz float64) {
	e.pitch.push(hz)
}

// ObserveText folds one final transcript into the text feature slots.
// Each transcript replaces the previous text observation; the model was
// trained on per-utterance text features, not a running aggregate.
func (e *Extractor) ObserveText(text string) {
	e.text = textFeatures(text)
}

// Vector assembles the current feature vector. With a scaler loaded the
// result is normalized; otherwise the raw values are returned unchanged.
func (e *Extractor) Vector() Vector {
	var v Vector
	copy(v[0:8], e.text[:])
	v[8] = e.pitch.mean()
	v[9] = e.pitch.stddev()
	v[10] = e.rms.mean()
	v[11] = e.rms.stddev()
	v[12] = e.zcr.mean()
	v[13] = defaultTempo
	// Slots 14..16 stay zero.

	if e.scaler != nil {
		return e.scaler.Normalize(v)
	}
	return v
}

// Reset discards all accumulated state. Called when monitoring stops so a
// later session starts clean.
func (e *Extractor) Reset() {
	e.rms.reset()
	e.zcr.reset()
	e.pitch.reset()
	e.text = [8]float64{}
	e.text[4] = 50
}
