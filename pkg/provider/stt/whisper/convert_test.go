package whisper

import (
	"math"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

func TestPcmToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sample int16
		want   float32
	}{
		{"zero", 0, 0},
		{"max", 32767, 32767.0 / 32768.0},
		{"min", -32768, -1},
		{"half", 16384, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := pcmToFloat32(pcmOf(tt.sample))
			if len(got) != 1 {
				t.Fatalf("len = %d, want 1", len(got))
			}
			if math.Abs(float64(got[0]-tt.want)) > 1e-6 {
				t.Errorf("got %v, want %v", got[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByte(t *testing.T) {
	t.Parallel()
	if got := pcmToFloat32([]byte{0, 0, 7}); len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestToWhisperInput_StereoAt48k(t *testing.T) {
	t.Parallel()

	// 48 kHz stereo: 3 frames collapse to one 16 kHz mono sample.
	pcm := pcmOf(16384, 16384, 16384, 16384, 16384, 16384)
	got := toWhisperInput(pcm, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16})
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0] != 0.5 {
		t.Errorf("sample = %v, want 0.5", got[0])
	}
}
