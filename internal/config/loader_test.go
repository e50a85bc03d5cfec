package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kavachapp/kavach/internal/config"
)

func TestLoad_FromFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "kavach.yaml")
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
detection:
  strategy: rule
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want %q", cfg.Server.LogLevel, config.LogDebug)
	}
	if cfg.Detection.Strategy != config.StrategyRule {
		t.Errorf("strategy = %q, want %q", cfg.Detection.Strategy, config.StrategyRule)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestValidate_RuleStrategyWithoutClassifierIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
detection:
  strategy: rule
contacts:
  primary: "+911234567890"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ModelStrategyWithClassifierIsValid(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  classifier:
    name: logreg
    model: /etc/kavach/weights.yaml
detection:
  strategy: model
  scaler_path: /etc/kavach/scaler.yaml
contacts:
  primary: "+911234567890"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
detection:
  strategy: psychic
countdown:
  seconds: -5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "strategy", "seconds"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	asrNames := config.ValidProviderNames["asr"]
	if len(asrNames) == 0 {
		t.Fatal("ValidProviderNames[\"asr\"] should not be empty")
	}
	found := false
	for _, n := range asrNames {
		if n == "whisper-native" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"asr\"] should contain \"whisper-native\"")
	}
}
