package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestDownmixMono16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []int16
		channels int
		want     []int16
	}{
		{"mono passthrough", []int16{1, 2, 3}, 1, []int16{1, 2, 3}},
		{"stereo average", []int16{100, 200, -100, -200}, 2, []int16{150, -150}},
		{"stereo no overflow", []int16{32767, 32767}, 2, []int16{32767}},
		{"three channels", []int16{30, 60, 90}, 3, []int16{60}},
		{"trailing partial frame dropped", []int16{10, 20, 30}, 2, []int16{15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := bytesToSamples(audio.DownmixMono16(samplesToBytes(tt.in), tt.channels))
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d: got %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestResampleMono16_SameRate(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes([]int16{1, 2, 3, 4})
	out := audio.ResampleMono16(pcm, 16000, 16000)
	if &out[0] != &pcm[0] {
		t.Error("same-rate resample should return the input slice")
	}
}

func TestResampleMono16_Downsample(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes(make([]int16, 48000))
	out := audio.ResampleMono16(pcm, 48000, 16000)
	if got := len(out) / 2; got != 16000 {
		t.Errorf("samples = %d, want 16000", got)
	}
}

func TestResampleMono16_Upsample(t *testing.T) {
	t.Parallel()
	out := bytesToSamples(audio.ResampleMono16(samplesToBytes([]int16{0, 100}), 8000, 16000))
	want := []int16{0, 50, 100, 100}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestResampleMono16_ZeroRate(t *testing.T) {
	t.Parallel()
	pcm := samplesToBytes([]int16{1, 2})
	if got := audio.ResampleMono16(pcm, 0, 16000); len(got) != len(pcm) {
		t.Error("zero source rate should return input unchanged")
	}
}

func TestRMS16(t *testing.T) {
	t.Parallel()

	if got := audio.RMS16(nil); got != 0 {
		t.Errorf("RMS16(nil) = %v, want 0", got)
	}
	if got := audio.RMS16(samplesToBytes([]int16{1000, -1000, 1000, -1000})); math.Abs(got-1000) > 1e-9 {
		t.Errorf("RMS16(square) = %v, want 1000", got)
	}
}

func TestFormat_Seconds(t *testing.T) {
	t.Parallel()

	if got := audio.SpeechFormat.Seconds(32000); got != 1 {
		t.Errorf("Seconds(32000) = %v, want 1", got)
	}
	if got := (audio.Format{}).Seconds(100); got != 0 {
		t.Errorf("zero format Seconds = %v, want 0", got)
	}
	if got := audio.SpeechFormat.String(); got != "16000Hz mono 16bit" {
		t.Errorf("String() = %q", got)
	}
}
