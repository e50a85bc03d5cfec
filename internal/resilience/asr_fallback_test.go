package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/kavachapp/kavach/pkg/provider/asr"
	asrmock "github.com/kavachapp/kavach/pkg/provider/asr/mock"
)

func TestASRFallback_StartStream_PrimarySuccess(t *testing.T) {
	sess := asrmock.NewSession(1)
	primary := &asrmock.Provider{StartStreamResult: sess}
	secondary := &asrmock.Provider{}

	fb := NewASRFallback(primary, "whisper-native", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("stream", secondary)

	handle, err := fb.StartStream(context.Background(), asr.StreamConfig{
		SampleRate: 22050,
		Channels:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == nil {
		t.Fatal("handle is nil")
	}
	if primary.CallCountStartStream != 1 {
		t.Fatalf("primary called %d times, want 1", primary.CallCountStartStream)
	}
	if secondary.CallCountStartStream != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCountStartStream)
	}
	_ = handle.Close()
}

func TestASRFallback_StartStream_Failover(t *testing.T) {
	primary := &asrmock.Provider{
		StartStreamError: errors.New("model load failed"),
	}
	secondarySess := asrmock.NewSession(1)
	secondary := &asrmock.Provider{StartStreamResult: secondarySess}

	fb := NewASRFallback(primary, "whisper-native", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("stream", secondary)

	handle, err := fb.StartStream(context.Background(), asr.StreamConfig{
		SampleRate: 22050,
		Channels:   1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == nil {
		t.Fatal("handle is nil")
	}
	if secondary.CallCountStartStream != 1 {
		t.Fatalf("secondary called %d times, want 1", secondary.CallCountStartStream)
	}
	_ = handle.Close()
}

func TestASRFallback_StartStream_AllFail(t *testing.T) {
	primary := &asrmock.Provider{StartStreamError: errors.New("primary down")}
	secondary := &asrmock.Provider{StartStreamError: errors.New("secondary down")}

	fb := NewASRFallback(primary, "whisper-native", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("stream", secondary)

	_, err := fb.StartStream(context.Background(), asr.StreamConfig{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
