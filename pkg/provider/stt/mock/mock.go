// Package mock provides a test double for the stt.Transcriber interface.
//
// Example:
//
//	tr := &mock.Transcriber{Result: &stt.Transcription{Text: "hello"}}
//	res, _ := tr.Transcribe(ctx, slices.Values(chunks), audio.SpeechFormat)
package mock

import (
	"context"
	"iter"
	"sync"

	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Chunks holds copies of every chunk the sequence yielded.
	Chunks [][]byte
	// Format is the audio format passed to Transcribe.
	Format audio.Format
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe when Err is nil.
	Result *stt.Transcription

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Panic, if non-nil, is raised by Transcribe after recording the call.
	Panic any

	// Gate, if non-nil, holds Transcribe after the call is recorded until it
	// is closed or ctx is done.
	Gate chan struct{}

	// Calls records every call to Transcribe.
	Calls []TranscribeCall
}

// Transcribe records the call, draining chunks, and returns Result, Err.
func (m *Transcriber) Transcribe(ctx context.Context, chunks iter.Seq[[]byte], format audio.Format) (*stt.Transcription, error) {
	var recorded [][]byte
	for c := range chunks {
		recorded = append(recorded, append([]byte(nil), c...))
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, TranscribeCall{Chunks: recorded, Format: format})
	result, err, p, gate := m.Result, m.Err, m.Panic, m.Gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p != nil {
		panic(p)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (m *Transcriber) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
