// Package vad defines the Engine interface for voice activity detection.
//
// A VAD engine classifies fixed-size PCM frames as speech or silence. Each
// session carries its own smoothing state so that concurrent audio streams are
// judged independently. ProcessFrame is synchronous and must not block; it is
// called from the audio path of every listening session.
//
// A single SessionHandle must not be shared between goroutines unless the
// implementation documents otherwise.
package vad

// Config holds the parameters for a VAD session.
type Config struct {
	// SampleRate is the rate of the 16-bit mono PCM passed to ProcessFrame.
	SampleRate int

	// FrameSizeMs is the duration of each frame. ProcessFrame rejects frames
	// of any other length.
	FrameSizeMs int

	// SpeechThreshold is the probability at or above which a frame counts as
	// speech. Range: [0.0, 1.0].
	SpeechThreshold float64

	// SilenceThreshold is the probability below which an active speech
	// segment ends. Must be ≤ SpeechThreshold.
	SilenceThreshold float64
}

// FrameBytes returns the byte length of one 16-bit mono frame under c.
func (c Config) FrameBytes() int {
	return c.SampleRate * c.FrameSizeMs / 1000 * 2
}

// SessionHandle is an active VAD session for a single audio stream.
type SessionHandle interface {
	// ProcessFrame classifies one frame of raw 16-bit little-endian PCM.
	ProcessFrame(frame []byte) (VADEvent, error)

	// Reset clears the detection state without closing the session.
	Reset()

	// Close releases the session. Calling Close more than once is safe.
	Close() error
}

// Engine creates VAD sessions. Implementations must be safe for concurrent
// use.
type Engine interface {
	// NewSession validates cfg and returns a session ready for frames.
	NewSession(cfg Config) (SessionHandle, error)
}
