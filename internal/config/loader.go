package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per capability.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"capture":    {"pcm", "stdin"},
	"pitch":      {"yin"},
	"asr":        {"whisper-native", "stream"},
	"classifier": {"logreg", "http"},
	"telephony":  {"null"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d is negative", cfg.Audio.FrameSize))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("capture", cfg.Providers.Capture.Name)
	validateProviderName("pitch", cfg.Providers.Pitch.Name)
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("asr", cfg.Providers.ASRFallback.Name)
	if cfg.Providers.ASRFallback.Name != "" && cfg.Providers.ASR.Name == "" {
		errs = append(errs, errors.New("providers.asr_fallback is set but providers.asr is not"))
	}
	validateProviderName("classifier", cfg.Providers.Classifier.Name)
	validateProviderName("telephony", cfg.Providers.Telephony.Name)

	// Detection
	if cfg.Detection.Strategy != "" && !cfg.Detection.Strategy.IsValid() {
		errs = append(errs, fmt.Errorf("detection.strategy %q is invalid; valid values: rule, model", cfg.Detection.Strategy))
	}
	if cfg.Detection.DangerProbability < 0 || cfg.Detection.DangerProbability > 1 {
		errs = append(errs, fmt.Errorf("detection.danger_probability %.2f is out of range [0, 1]", cfg.Detection.DangerProbability))
	}
	if cfg.Detection.InferenceInterval < 0 {
		errs = append(errs, fmt.Errorf("detection.inference_interval %d is negative", cfg.Detection.InferenceInterval))
	}
	if cfg.Detection.Strategy == StrategyModel {
		if cfg.Providers.Classifier.Name == "" {
			errs = append(errs, errors.New("detection.strategy \"model\" requires a classifier provider but providers.classifier is not configured"))
		}
		if cfg.Detection.ScalerPath == "" {
			slog.Warn("detection.strategy is \"model\" but detection.scaler_path is empty; model scoring will stay disabled")
		}
	}

	// Keywords
	if cfg.Keywords.FuzzyThreshold != 0 {
		if cfg.Keywords.FuzzyThreshold <= 0 || cfg.Keywords.FuzzyThreshold > 1 {
			errs = append(errs, fmt.Errorf("keywords.fuzzy_threshold %.2f is out of range (0, 1]", cfg.Keywords.FuzzyThreshold))
		}
	}

	// Contacts
	if cfg.Contacts.Primary == "" && len(cfg.Contacts.Secondary) == 0 {
		slog.Warn("no emergency contacts configured; a dispatch will have nothing to do")
	}

	// Dispatch
	if cfg.Dispatch.DebounceMillis < 0 {
		errs = append(errs, fmt.Errorf("dispatch.debounce_ms %d is negative", cfg.Dispatch.DebounceMillis))
	}

	// Countdown
	if cfg.Countdown.Seconds < 0 {
		errs = append(errs, fmt.Errorf("countdown.seconds %d is negative", cfg.Countdown.Seconds))
	}

	// Journal
	if cfg.Journal.PostgresDSN == "" {
		slog.Info("journal.postgres_dsn is empty; incident journal disabled")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
