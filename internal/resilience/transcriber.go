package resilience

import (
	"context"
	"iter"

	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
)

// TranscriberFallback is an [stt.Transcriber] that tries a chain of engines in
// order, each behind its own circuit breaker.
type TranscriberFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

var _ stt.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// first engine tried.
func NewTranscriberFallback(primary stt.Transcriber, name string, cfg FallbackConfig) *TranscriberFallback {
	return &TranscriberFallback{group: NewFallbackGroup(primary, name, cfg)}
}

// AddFallback appends an engine tried after the primary and every earlier
// fallback.
func (f *TranscriberFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Names returns the engine names in the order they are tried.
func (f *TranscriberFallback) Names() []string {
	return f.group.Names()
}

// Transcribe runs the utterance through the first engine that succeeds. chunks
// is replayed from the start for every engine attempted.
func (f *TranscriberFallback) Transcribe(ctx context.Context, chunks iter.Seq[[]byte], format audio.Format) (*stt.Transcription, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, t stt.Transcriber) (*stt.Transcription, error) {
		return t.Transcribe(ctx, chunks, format)
	})
}
