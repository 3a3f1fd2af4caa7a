package energy_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/provider/vad"
	"github.com/MrWong99/hermes-asr/pkg/provider/vad/energy"
)

// makeFrame returns a 30 ms 16 kHz frame of a 440 Hz sine at amplitude.
func makeFrame(amplitude float64) []byte {
	const samples = 480
	buf := make([]byte, samples*2)
	for i := range samples {
		v := int16(amplitude * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func newSession(t *testing.T) vad.SessionHandle {
	t.Helper()
	s, err := energy.New().NewSession(vad.Config{
		SampleRate:      16000,
		FrameSizeMs:     30,
		SpeechThreshold: energy.ThresholdFromRMS(300),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_EventSequence(t *testing.T) {
	t.Parallel()
	s := newSession(t)

	frames := [][]byte{makeFrame(0), makeFrame(10000), makeFrame(10000), makeFrame(0), makeFrame(0)}
	want := []vad.VADEventType{vad.VADSilence, vad.VADSpeechStart, vad.VADSpeechContinue, vad.VADSpeechEnd, vad.VADSilence}

	for i, f := range frames {
		ev, err := s.ProcessFrame(f)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if ev.Type != want[i] {
			t.Errorf("frame %d: type = %v, want %v", i, ev.Type, want[i])
		}
	}
}

func TestSession_WrongFrameSize(t *testing.T) {
	t.Parallel()
	s := newSession(t)
	if _, err := s.ProcessFrame(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestSession_ClosedAndReset(t *testing.T) {
	t.Parallel()
	s := newSession(t)

	if ev, _ := s.ProcessFrame(makeFrame(10000)); !ev.IsSpeech() {
		t.Fatal("loud frame should be speech")
	}
	s.Reset()
	if ev, _ := s.ProcessFrame(makeFrame(10000)); ev.Type != vad.VADSpeechStart {
		t.Errorf("after Reset type = %v, want SpeechStart", ev.Type)
	}

	_ = s.Close()
	if _, err := s.ProcessFrame(makeFrame(0)); !errors.Is(err, energy.ErrClosed) {
		t.Errorf("error after Close = %v, want ErrClosed", err)
	}
}

func TestEngine_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  vad.Config
	}{
		{"zero rate", vad.Config{FrameSizeMs: 30}},
		{"zero frame", vad.Config{SampleRate: 16000}},
		{"threshold too high", vad.Config{SampleRate: 16000, FrameSizeMs: 30, SpeechThreshold: 2}},
		{"silence above speech", vad.Config{SampleRate: 16000, FrameSizeMs: 30, SpeechThreshold: 0.1, SilenceThreshold: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := energy.New().NewSession(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
