// Package stt defines the Transcriber interface for speech-to-text engines.
//
// A Transcriber receives the complete audio of one utterance as a finite,
// ordered sequence of raw PCM chunks and returns a single [Transcription].
// Engines may fail; callers that must never fail (the ASR session dispatcher)
// wrap them with a fail-open adapter.
//
// Implementations must be safe for concurrent use: several sites may finish
// their sessions at the same time.
package stt

import (
	"bytes"
	"context"
	"iter"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

// Transcription is the result of transcribing one utterance.
type Transcription struct {
	// Text is the recognised utterance. Empty when nothing was recognised.
	Text string

	// Likelihood is the engine's confidence in Text (0.0–1.0). Engines that
	// do not report confidence use 1 for a non-empty transcript and 0
	// otherwise.
	Likelihood float64

	// TranscribeSeconds is the wall-clock time the engine spent.
	TranscribeSeconds float64

	// WavSeconds is the duration of the transcribed audio.
	WavSeconds float64
}

// Transcriber is the abstraction over any batch STT backend.
type Transcriber interface {
	// Transcribe consumes every chunk of PCM audio in format and returns the
	// transcription. chunks yields the chunks in arrival order and may be
	// iterated more than once.
	Transcribe(ctx context.Context, chunks iter.Seq[[]byte], format audio.Format) (*Transcription, error)
}

// Join concatenates chunks into a single PCM buffer.
func Join(chunks iter.Seq[[]byte]) []byte {
	var buf bytes.Buffer
	for c := range chunks {
		buf.Write(c)
	}
	return buf.Bytes()
}

// LikelihoodForText returns the conventional likelihood for engines without a
// confidence score.
func LikelihoodForText(text string) float64 {
	if text == "" {
		return 0
	}
	return 1
}
