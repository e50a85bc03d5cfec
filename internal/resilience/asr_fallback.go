package resilience

import (
	"context"

	"github.com/kavachapp/kavach/pkg/provider/asr"
)

// ASRFallback implements [asr.Provider] with automatic failover across
// multiple speech recognizers. Each backend has its own circuit breaker, so
// a whisper model that fails to load stops being tried while a streaming
// endpoint keeps serving, and vice versa.
type ASRFallback struct {
	group *FallbackGroup[asr.Provider]
}

// Compile-time interface assertion.
var _ asr.Provider = (*ASRFallback)(nil)

// NewASRFallback creates an [ASRFallback] with primary as the preferred
// backend.
func NewASRFallback(primary asr.Provider, primaryName string, cfg FallbackConfig) *ASRFallback {
	return &ASRFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional speech recognizer as a fallback.
func (f *ASRFallback) AddFallback(name string, provider asr.Provider) {
	f.group.AddFallback(name, provider)
}

// StartStream opens a streaming recognition session against the first
// healthy recognizer. If the primary fails to start the stream, subsequent
// fallbacks are tried.
func (f *ASRFallback) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	return ExecuteWithResult(f.group, func(p asr.Provider) (asr.SessionHandle, error) {
		return p.StartStream(ctx, cfg)
	})
}
