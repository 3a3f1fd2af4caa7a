// Package energy implements a vad.Engine that classifies frames by their RMS
// energy. It needs no model files and is fully deterministic, which makes it
// the default detector for end-of-utterance decisions.
//
// The reported probability is the frame RMS as a fraction of 16-bit full
// scale, so a threshold of 300 sample units corresponds to
// SpeechThreshold = 300/32767.
package energy

import (
	"errors"
	"fmt"
	"math"

	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/provider/vad"
)

// ErrClosed is returned by ProcessFrame after Close.
var ErrClosed = errors.New("energy vad: session closed")

// Compile-time interface assertions.
var (
	_ vad.Engine        = (*Engine)(nil)
	_ vad.SessionHandle = (*Session)(nil)
)

// ThresholdFromRMS converts an RMS level in 16-bit sample units to the
// probability scale used by this engine.
func ThresholdFromRMS(rms float64) float64 {
	return rms / math.MaxInt16
}

// Engine creates energy-based VAD sessions. The zero value is ready to use.
type Engine struct{}

// New returns an Engine.
func New() *Engine { return &Engine{} }

// NewSession implements vad.Engine.
func (e *Engine) NewSession(cfg vad.Config) (vad.SessionHandle, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("energy vad: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.FrameSizeMs <= 0 || cfg.FrameBytes() == 0 {
		return nil, fmt.Errorf("energy vad: invalid frame size %dms", cfg.FrameSizeMs)
	}
	if cfg.SpeechThreshold < 0 || cfg.SpeechThreshold > 1 {
		return nil, fmt.Errorf("energy vad: speech threshold %.4f out of range [0, 1]", cfg.SpeechThreshold)
	}
	if cfg.SilenceThreshold == 0 {
		cfg.SilenceThreshold = cfg.SpeechThreshold
	}
	if cfg.SilenceThreshold > cfg.SpeechThreshold {
		return nil, fmt.Errorf("energy vad: silence threshold %.4f above speech threshold %.4f",
			cfg.SilenceThreshold, cfg.SpeechThreshold)
	}
	return &Session{cfg: cfg, frameBytes: cfg.FrameBytes()}, nil
}

// Session is a single energy VAD stream. It is not safe for concurrent use.
type Session struct {
	cfg        vad.Config
	frameBytes int
	inSpeech   bool
	closed     bool
}

// ProcessFrame implements vad.SessionHandle. Speech starts when a frame
// reaches SpeechThreshold and ends when one drops below SilenceThreshold.
func (s *Session) ProcessFrame(frame []byte) (vad.VADEvent, error) {
	if s.closed {
		return vad.VADEvent{}, ErrClosed
	}
	if len(frame) != s.frameBytes {
		return vad.VADEvent{}, fmt.Errorf("energy vad: frame is %d bytes, want %d", len(frame), s.frameBytes)
	}

	p := min(audio.RMS16(frame)/math.MaxInt16, 1)
	ev := vad.VADEvent{Probability: p}
	switch {
	case !s.inSpeech && p >= s.cfg.SpeechThreshold:
		s.inSpeech = true
		ev.Type = vad.VADSpeechStart
	case s.inSpeech && p < s.cfg.SilenceThreshold:
		s.inSpeech = false
		ev.Type = vad.VADSpeechEnd
	case s.inSpeech:
		ev.Type = vad.VADSpeechContinue
	default:
		ev.Type = vad.VADSilence
	}
	return ev, nil
}

// Reset implements vad.SessionHandle.
func (s *Session) Reset() { s.inSpeech = false }

// Close implements vad.SessionHandle.
func (s *Session) Close() error {
	s.closed = true
	return nil
}
