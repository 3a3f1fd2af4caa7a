package whisper

import (
	"context"
	"os"
	"slices"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

func TestNewNative_EmptyPath(t *testing.T) {
	t.Parallel()
	if _, err := NewNative(""); err == nil {
		t.Fatal("expected error for empty modelPath")
	}
}

// TestNativeTranscribe_Silence runs a real model over one second of silence.
// Set WHISPER_MODEL_PATH to a ggml model file to enable it.
func TestNativeTranscribe_Silence(t *testing.T) {
	modelPath := os.Getenv("WHISPER_MODEL_PATH")
	if modelPath == "" {
		t.Skip("WHISPER_MODEL_PATH not set")
	}

	tr, err := NewNative(modelPath, WithNativeLanguage("en"))
	if err != nil {
		t.Fatalf("NewNative: %v", err)
	}
	defer tr.Close()

	pcm := make([]byte, audio.SpeechFormat.BytesPerSecond())
	res, err := tr.Transcribe(context.Background(), slices.Values([][]byte{pcm}), audio.SpeechFormat)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.WavSeconds != 1 {
		t.Errorf("WavSeconds = %v, want 1", res.WavSeconds)
	}
	if res.Likelihood < 0 || res.Likelihood > 1 {
		t.Errorf("Likelihood = %v out of range", res.Likelihood)
	}
}
