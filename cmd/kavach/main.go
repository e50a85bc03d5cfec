// Command kavach is the main entry point for the Kavach threat-detection
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kavachapp/kavach/internal/config"
	"github.com/kavachapp/kavach/internal/feature"
	"github.com/kavachapp/kavach/internal/journal"
	"github.com/kavachapp/kavach/internal/monitor"
	"github.com/kavachapp/kavach/internal/observe"
	"github.com/kavachapp/kavach/internal/resilience"
	"github.com/kavachapp/kavach/internal/scorer"
	"github.com/kavachapp/kavach/pkg/capture"
	"github.com/kavachapp/kavach/pkg/provider/asr"
	asrstream "github.com/kavachapp/kavach/pkg/provider/asr/stream"
	"github.com/kavachapp/kavach/pkg/provider/asr/whisper"
	"github.com/kavachapp/kavach/pkg/provider/classifier"
	"github.com/kavachapp/kavach/pkg/provider/classifier/httpapi"
	"github.com/kavachapp/kavach/pkg/provider/classifier/logreg"
	"github.com/kavachapp/kavach/pkg/provider/pitch"
	"github.com/kavachapp/kavach/pkg/provider/pitch/yin"
	"github.com/kavachapp/kavach/pkg/telephony"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "kavach: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "kavach: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("kavach starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"strategy", cfg.Detection.Strategy,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "kavach",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Incident journal (optional) ───────────────────────────────────────────
	jnl, err := journal.Open(ctx, cfg.Journal.PostgresDSN)
	if err != nil {
		slog.Error("failed to open incident journal", "err", err)
		return 1
	}
	defer jnl.Close()

	// ── HTTP server ───────────────────────────────────────────────────────────
	app := newApp(cfg, providers, metrics, jnl)

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := app.serve(ctx); err != nil {
		slog.Error("serve error", "err", err)
		return 1
	}

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyReload(app, level, old, new)
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// applyReload applies a hot-reloadable config change. The log level changes
// immediately; pipeline settings take effect when the next session starts.
func applyReload(app *app, level *slog.LevelVar, old, new *config.Config) {
	diff := config.Diff(old, new)
	if !diff.Any() {
		return
	}
	if diff.LogLevelChanged {
		level.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.KeywordsChanged || diff.ContactsChanged || diff.DispatchChanged ||
		diff.CountdownChanged || diff.DetectionChanged {
		app.updateConfig(new)
		slog.Info("configuration reloaded",
			"keywords", diff.KeywordsChanged,
			"contacts", diff.ContactsChanged,
			"dispatch", diff.DispatchChanged,
			"countdown", diff.CountdownChanged,
			"detection", diff.DetectionChanged,
		)
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// Providers holds the concrete capability implementations named in the
// configuration.
type Providers struct {
	Capture    capture.Device
	Pitch      pitch.Estimator
	ASR        asr.Provider
	Classifier classifier.Model
	Dialer     telephony.Dialer
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("pcm", func(entry config.ProviderEntry) (capture.Device, error) {
		path := optString(entry.Options, "path")
		if path == "" {
			return nil, errors.New(`pcm capture requires options.path (raw s16le file or pipe)`)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open pcm input: %w", err)
		}
		return capture.NewPCMDevice(f), nil
	})

	reg.RegisterCapture("stdin", func(_ config.ProviderEntry) (capture.Device, error) {
		return capture.NewPCMDevice(os.Stdin), nil
	})

	// ── Pitch ─────────────────────────────────────────────────────────────────

	reg.RegisterPitch("yin", func(entry config.ProviderEntry) (pitch.Estimator, error) {
		var opts []yin.Option
		if th := optFloat(entry.Options, "threshold"); th > 0 {
			opts = append(opts, yin.WithThreshold(th))
		}
		return yin.New(opts...), nil
	})

	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whisper-native", func(entry config.ProviderEntry) (asr.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(modelPath, opts...)
	})

	reg.RegisterASR("stream", func(entry config.ProviderEntry) (asr.Provider, error) {
		var opts []asrstream.Option
		if entry.APIKey != "" {
			opts = append(opts, asrstream.WithAuthToken(entry.APIKey))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, asrstream.WithLanguage(lang))
		}
		return asrstream.New(entry.BaseURL, opts...)
	})

	// ── Classifier ────────────────────────────────────────────────────────────

	reg.RegisterClassifier("logreg", func(entry config.ProviderEntry) (classifier.Model, error) {
		weightsPath := entry.Model
		if weightsPath == "" {
			weightsPath = optString(entry.Options, "weights_path")
		}
		return logreg.Load(weightsPath)
	})

	reg.RegisterClassifier("http", func(entry config.ProviderEntry) (classifier.Model, error) {
		return httpapi.New(entry.BaseURL)
	})

	// ── Telephony ─────────────────────────────────────────────────────────────

	reg.RegisterTelephony("null", func(_ config.ProviderEntry) (telephony.Dialer, error) {
		return &telephony.NullDialer{}, nil
	})
}

// buildProviders instantiates the providers named in cfg. Capture and pitch
// are required; recognizer, classifier, and telephony failures degrade the
// pipeline instead of aborting startup.
func buildProviders(cfg *config.Config, reg *config.Registry) (*Providers, error) {
	ps := &Providers{}

	dev, err := reg.CreateCapture(cfg.Providers.Capture)
	if err != nil {
		return nil, fmt.Errorf("create capture provider %q: %w", cfg.Providers.Capture.Name, err)
	}
	ps.Capture = dev

	est, err := reg.CreatePitch(cfg.Providers.Pitch)
	if err != nil {
		return nil, fmt.Errorf("create pitch provider %q: %w", cfg.Providers.Pitch.Name, err)
	}
	ps.Pitch = est

	if name := cfg.Providers.ASR.Name; name != "" {
		p, err := reg.CreateASR(cfg.Providers.ASR)
		if err != nil {
			slog.Warn("recognizer unavailable, keyword detection disabled", "name", name, "err", err)
		} else {
			// Route recognition through the failover group so a flapping
			// backend trips its breaker instead of failing every session.
			group := resilience.NewASRFallback(p, name, resilience.FallbackConfig{})
			if fb := cfg.Providers.ASRFallback.Name; fb != "" {
				fp, err := reg.CreateASR(cfg.Providers.ASRFallback)
				if err != nil {
					slog.Warn("fallback recognizer unavailable", "name", fb, "err", err)
				} else {
					group.AddFallback(fb, fp)
					slog.Info("provider created", "kind", "asr-fallback", "name", fb)
				}
			}
			ps.ASR = group
			slog.Info("provider created", "kind", "asr", "name", name)
		}
	}

	if name := cfg.Providers.Classifier.Name; name != "" {
		m, err := reg.CreateClassifier(cfg.Providers.Classifier)
		if err != nil {
			slog.Warn("classifier unavailable, rule-based scoring only", "name", name, "err", err)
		} else {
			ps.Classifier = m
			slog.Info("provider created", "kind", "classifier", "name", name)
		}
	}

	if name := cfg.Providers.Telephony.Name; name != "" {
		d, err := reg.CreateTelephony(cfg.Providers.Telephony)
		if err != nil {
			slog.Warn("telephony unavailable, dispatch will be recorded only", "name", name, "err", err)
		} else {
			ps.Dialer = d
			slog.Info("provider created", "kind", "telephony", "name", name)
		}
	}

	return ps, nil
}

// buildMonitor assembles a Monitor from the active configuration.
func buildMonitor(cfg *config.Config, ps *Providers, metrics *observe.Metrics, jnl journal.Journal) *monitor.Monitor {
	scaler := loadScaler(cfg.Detection.ScalerPath)
	extractor := feature.NewExtractor(feature.WithScaler(scaler))

	mcfg := monitor.Config{
		Device: ps.Capture,
		Capture: capture.Config{
			SampleRate: cfg.Audio.SampleRate,
			FrameSize:  cfg.Audio.FrameSize,
		},
		Pitch:            ps.Pitch,
		Recognizer:       ps.ASR,
		Language:         optString(cfg.Providers.ASR.Options, "language"),
		Scorer:           buildScorer(cfg, ps, metrics),
		Extractor:        extractor,
		Spotter:          buildSpotter(cfg),
		Dialer:           ps.Dialer,
		Contacts:         contactsStore(cfg),
		Journal:          jnl,
		CountdownSeconds: cfg.Countdown.Seconds,
		CancelSecret:     cfg.Countdown.Secret,
		Debounce:         time.Duration(cfg.Dispatch.DebounceMillis) * time.Millisecond,
		Message:          cfg.Dispatch.Message,
	}
	return monitor.New(mcfg,
		monitor.WithMetrics(metrics),
		monitor.WithOnEvent(logEvent),
	)
}

// buildScorer selects the scoring strategy. The model strategy silently
// falls back to rules when no classifier could be built.
func buildScorer(cfg *config.Config, ps *Providers, metrics *observe.Metrics) scorer.Scorer {
	var ruleOpts []scorer.RuleOption
	if cfg.Detection.DangerPitchHz > 0 {
		ruleOpts = append(ruleOpts, scorer.WithDangerPitch(cfg.Detection.DangerPitchHz))
	}
	if cfg.Detection.HighEnergyRMS > 0 {
		ruleOpts = append(ruleOpts, scorer.WithHighEnergy(cfg.Detection.HighEnergyRMS))
	}
	rules := scorer.NewRuleBased(ruleOpts...)

	if cfg.Detection.Strategy != config.StrategyModel || ps.Classifier == nil {
		return rules
	}

	modelOpts := []scorer.ModelOption{
		scorer.WithRules(rules),
		scorer.WithMetrics(metrics),
	}
	if cfg.Detection.InferenceInterval > 0 {
		modelOpts = append(modelOpts, scorer.WithInterval(cfg.Detection.InferenceInterval))
	}
	if cfg.Detection.DangerProbability > 0 {
		modelOpts = append(modelOpts, scorer.WithDangerProbability(cfg.Detection.DangerProbability))
	}
	return scorer.NewModelFused(ps.Classifier, modelOpts...)
}

// logEvent mirrors session events into the log.
func logEvent(ev monitor.Event) {
	switch ev.Type {
	case monitor.EventThreatLevelChanged:
		slog.Info("event: threat level changed",
			"session_id", ev.SessionID,
			"level", ev.Assessment.Level.String(),
			"source", ev.Assessment.Source,
		)
	case monitor.EventTranscriptDetected:
		slog.Debug("event: transcript",
			"session_id", ev.SessionID,
			"text", ev.Transcript,
			"keyword_tier", ev.Keyword.Tier.String(),
		)
	case monitor.EventDispatchAttempted:
		slog.Info("event: dispatch attempted",
			"session_id", ev.SessionID,
			"kind", string(ev.Action.Kind),
			"target", ev.Action.Target,
			"failed", ev.Action.Failed,
		)
	case monitor.EventCountdownTick:
		slog.Debug("event: countdown tick", "session_id", ev.SessionID, "remaining", ev.Remaining)
	case monitor.EventCountdownCancelled:
		slog.Info("event: countdown cancelled", "session_id", ev.SessionID)
	case monitor.EventCountdownExpired:
		slog.Warn("event: countdown expired", "session_id", ev.SessionID)
	}
}

// loadScaler loads the feature normalization parameters. A missing or broken
// file disables model-based scoring; the pipeline continues on rules.
func loadScaler(path string) *feature.Scaler {
	if path == "" {
		return nil
	}
	s, err := feature.LoadScaler(path)
	if err != nil {
		slog.Warn("scaler parameters unavailable, model scoring disabled", "path", path, "err", err)
		return nil
	}
	return s
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a
// string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optFloat extracts a float value from a provider Options map. YAML decodes
// numbers as int or float64 depending on their spelling.
func optFloat(opts map[string]any, key string) float64 {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
