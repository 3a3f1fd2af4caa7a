package audio_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

func TestEncodeDecodeWAV(t *testing.T) {
	t.Parallel()

	pcm := samplesToBytes([]int16{0, 1000, -1000, 32767, -32768})
	wav, err := audio.EncodeWAV(pcm, audio.SpeechFormat)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	if !bytes.HasPrefix(wav, []byte("RIFF")) {
		t.Fatalf("missing RIFF header: %q", wav[:4])
	}
	if len(wav) != 44+len(pcm) {
		t.Errorf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}

	got, f, err := audio.DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if f != audio.SpeechFormat {
		t.Errorf("format = %v, want %v", f, audio.SpeechFormat)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("pcm mismatch: got %v, want %v", bytesToSamples(got), bytesToSamples(pcm))
	}
}

func TestStream_StereoDownmixAndResample(t *testing.T) {
	t.Parallel()

	// 32 kHz stereo, 4 frames: every frame has L=200, R=400.
	src := samplesToBytes([]int16{200, 400, 200, 400, 200, 400, 200, 400})
	wav, err := audio.EncodeWAV(src, audio.Format{SampleRate: 32000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	var s audio.Stream
	pcm, err := s.Convert(wav)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	got := bytesToSamples(pcm)
	if len(got) != 2 {
		t.Fatalf("samples = %d, want 2", len(got))
	}
	for i, v := range got {
		if v != 300 {
			t.Errorf("sample %d = %d, want 300", i, v)
		}
	}
}

func TestStream_SpeechFormatIsIdentity(t *testing.T) {
	t.Parallel()

	pcm := samplesToBytes([]int16{5, -5, 7, -7})
	wav, err := audio.EncodeWAV(pcm, audio.SpeechFormat)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	var s audio.Stream
	got, err := s.Convert(wav)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !bytes.Equal(got, pcm) {
		t.Errorf("got %v, want %v", bytesToSamples(got), bytesToSamples(pcm))
	}
}

func TestDecodeWAV_Invalid(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("not a wav file at all, sorry")} {
		if _, _, err := audio.DecodeWAV(data); !errors.Is(err, audio.ErrInvalidWAV) {
			t.Errorf("DecodeWAV(%q) error = %v, want ErrInvalidWAV", data, err)
		}
	}
}

func TestEncodeWAV_RejectsNon16Bit(t *testing.T) {
	t.Parallel()

	if _, err := audio.EncodeWAV(nil, audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 24}); err == nil {
		t.Fatal("expected error for 24-bit encode")
	}
}
