package config

import (
	"errors"
	"testing"

	"github.com/kavachapp/kavach/pkg/capture"
	capmock "github.com/kavachapp/kavach/pkg/capture/mock"
	"github.com/kavachapp/kavach/pkg/provider/pitch"
	pitchmock "github.com/kavachapp/kavach/pkg/provider/pitch/mock"
)

func TestRegistry_CreateUsesRegisteredFactory(t *testing.T) {
	reg := NewRegistry()
	var gotEntry ProviderEntry
	reg.RegisterCapture("test", func(entry ProviderEntry) (capture.Device, error) {
		gotEntry = entry
		return &capmock.Device{}, nil
	})

	entry := ProviderEntry{Name: "test", Model: "model.bin"}
	dev, err := reg.CreateCapture(entry)
	if err != nil {
		t.Fatalf("CreateCapture: %v", err)
	}
	if dev == nil {
		t.Fatal("CreateCapture returned nil device")
	}
	if gotEntry.Model != "model.bin" {
		t.Errorf("factory entry.Model = %q, want %q", gotEntry.Model, "model.bin")
	}
}

func TestRegistry_UnknownNameIsSentinel(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.CreatePitch(ProviderEntry{Name: "nope"})
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("CreatePitch error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistry_ReRegistrationOverwrites(t *testing.T) {
	reg := NewRegistry()
	first := &pitchmock.Estimator{}
	second := &pitchmock.Estimator{}
	reg.RegisterPitch("yin", func(ProviderEntry) (pitch.Estimator, error) { return first, nil })
	reg.RegisterPitch("yin", func(ProviderEntry) (pitch.Estimator, error) { return second, nil })

	got, err := reg.CreatePitch(ProviderEntry{Name: "yin"})
	if err != nil {
		t.Fatalf("CreatePitch: %v", err)
	}
	if got != second {
		t.Error("CreatePitch returned the first factory's estimator, want the overwriting one")
	}
}

func TestRegistry_FactoryErrorPropagates(t *testing.T) {
	reg := NewRegistry()
	wantErr := errors.New("device busy")
	reg.RegisterCapture("flaky", func(ProviderEntry) (capture.Device, error) {
		return nil, wantErr
	})

	_, err := reg.CreateCapture(ProviderEntry{Name: "flaky"})
	if !errors.Is(err, wantErr) {
		t.Errorf("CreateCapture error = %v, want %v", err, wantErr)
	}
}
