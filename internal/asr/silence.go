package asr

import (
	"errors"
	"fmt"
	"math"

	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/provider/vad"
	"github.com/MrWong99/hermes-asr/pkg/provider/vad/energy"
)

// SilenceSettings tunes end-of-utterance detection. All durations are in
// seconds of audio, not wall-clock time.
type SilenceSettings struct {
	// FrameMs is the analysis frame length.
	FrameMs int `yaml:"frame_ms"`

	// RMSThreshold is the frame RMS (16-bit sample units) at or above which a
	// frame counts as speech.
	RMSThreshold float64 `yaml:"rms_threshold"`

	// SpeechSeconds is how much consecutive speech starts an utterance.
	SpeechSeconds float64 `yaml:"speech_seconds"`

	// SilenceSeconds is how much consecutive silence ends an utterance.
	SilenceSeconds float64 `yaml:"silence_seconds"`

	// MinSeconds is the shortest utterance that may end on silence.
	MinSeconds float64 `yaml:"min_seconds"`

	// MaxSeconds ends a session that has buffered this much audio. Ambient
	// sessions count it from the start of speech. Zero means unlimited.
	MaxSeconds float64 `yaml:"max_seconds"`

	// SkipSeconds of audio at the start of a session are ignored, e.g. to
	// step over the wake word tail.
	SkipSeconds float64 `yaml:"skip_seconds"`
}

// DefaultSilenceSettings returns the settings used when none are configured.
func DefaultSilenceSettings() SilenceSettings {
	return SilenceSettings{
		FrameMs:        30,
		RMSThreshold:   300,
		SpeechSeconds:  0.3,
		SilenceSeconds: 0.5,
		MinSeconds:     1,
		MaxSeconds:     30,
	}
}

// Validate reports every invalid field.
func (s SilenceSettings) Validate() error {
	var errs []error
	if s.FrameMs <= 0 {
		errs = append(errs, fmt.Errorf("frame_ms must be positive, got %d", s.FrameMs))
	}
	if s.RMSThreshold <= 0 || s.RMSThreshold > 32767 {
		errs = append(errs, fmt.Errorf("rms_threshold must be in (0, 32767], got %g", s.RMSThreshold))
	}
	if s.SpeechSeconds < 0 || s.SilenceSeconds <= 0 || s.MinSeconds < 0 || s.MaxSeconds < 0 || s.SkipSeconds < 0 {
		errs = append(errs, errors.New("durations must not be negative and silence_seconds must be positive"))
	}
	if s.MaxSeconds > 0 && s.MaxSeconds < s.MinSeconds {
		errs = append(errs, fmt.Errorf("max_seconds (%g) below min_seconds (%g)", s.MaxSeconds, s.MinSeconds))
	}
	return errors.Join(errs...)
}

// Decision is the outcome of feeding audio to a [SilenceDetector].
type Decision int

const (
	// Undecided means the utterance is still running.
	Undecided Decision = iota

	// EndOfSpeech means enough trailing silence followed the utterance.
	EndOfSpeech

	// Timeout means the session reached MaxSeconds.
	Timeout
)

// String returns the finalize reason recorded in metrics and logs.
func (d Decision) String() string {
	switch d {
	case EndOfSpeech:
		return "silence"
	case Timeout:
		return "timeout"
	default:
		return "undecided"
	}
}

// SilenceDetector decides when an utterance has ended. Audio is cut into
// fixed frames, each classified by an energy VAD; only the partial frame left
// over from the previous chunk is retained between calls. All durations are
// converted to whole frames up front, so identical input always yields the
// identical decision.
//
// A sliding detector only keeps a window of pending speech while no
// utterance is running; ambient sessions use one so an idle site never
// accumulates audio or times out.
//
// A detector is owned by one session and is not safe for concurrent use.
type SilenceDetector struct {
	vad        vad.SessionHandle
	frameBytes int

	skipFrames    int
	speechFrames  int
	silenceFrames int
	minFrames     int
	maxFrames     int // 0 = unlimited

	sliding bool

	carry      []byte
	frames     int
	origin     int
	speechRun  int
	silenceRun int
	inSpeech   bool
	speechAt   int
	decision   Decision
}

// NewSilenceDetector returns a detector for 16-bit mono PCM at
// [audio.SpeechFormat]'s sample rate.
func NewSilenceDetector(cfg SilenceSettings) (*SilenceDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("asr: silence settings: %w", err)
	}
	vcfg := vad.Config{
		SampleRate:      audio.SpeechFormat.SampleRate,
		FrameSizeMs:     cfg.FrameMs,
		SpeechThreshold: energy.ThresholdFromRMS(cfg.RMSThreshold),
	}
	sess, err := energy.New().NewSession(vcfg)
	if err != nil {
		return nil, fmt.Errorf("asr: silence detector: %w", err)
	}

	toFrames := func(sec float64) int {
		return int(math.Ceil(sec*1000/float64(cfg.FrameMs) - 1e-9))
	}
	return &SilenceDetector{
		vad:           sess,
		frameBytes:    vcfg.FrameBytes(),
		skipFrames:    toFrames(cfg.SkipSeconds),
		speechFrames:  max(toFrames(cfg.SpeechSeconds), 1),
		silenceFrames: max(toFrames(cfg.SilenceSeconds), 1),
		minFrames:     toFrames(cfg.MinSeconds),
		maxFrames:     toFrames(cfg.MaxSeconds),
	}, nil
}

// Process consumes the next chunk of PCM and returns the current decision.
// Once a decision other than [Undecided] is reached it is sticky.
func (d *SilenceDetector) Process(pcm []byte) Decision {
	if d.decision != Undecided {
		return d.decision
	}

	buf := append(d.carry, pcm...)
	off := 0
	for ; off+d.frameBytes <= len(buf); off += d.frameBytes {
		if d.decision = d.frame(buf[off : off+d.frameBytes]); d.decision != Undecided {
			d.carry = nil
			return d.decision
		}
	}
	d.carry = append(d.carry[:0:0], buf[off:]...)
	return Undecided
}

// InSpeech reports whether an utterance has started.
func (d *SilenceDetector) InSpeech() bool { return d.inSpeech }

// PendingBytes returns how many of the most recent PCM bytes fall inside the
// current window. Everything before it is no longer needed.
func (d *SilenceDetector) PendingBytes() int {
	return (d.frames-d.origin)*d.frameBytes + len(d.carry)
}

// frame advances the state machine by one frame.
func (d *SilenceDetector) frame(f []byte) Decision {
	d.frames++
	if d.sliding && !d.inSpeech {
		d.origin = max(d.frames-d.speechRun-1, 0)
	}
	if d.maxFrames > 0 && (d.inSpeech || !d.sliding) && d.frames-d.origin >= d.maxFrames {
		return Timeout
	}
	if d.frames <= d.skipFrames {
		return Undecided
	}

	ev, err := d.vad.ProcessFrame(f)
	if err != nil {
		return Undecided
	}
	speech := ev.IsSpeech()

	if !d.inSpeech {
		if !speech {
			d.speechRun = 0
			return Undecided
		}
		d.speechRun++
		if d.speechRun >= d.speechFrames {
			d.inSpeech = true
			d.speechAt = d.frames - d.speechRun
			d.silenceRun = 0
		}
		return Undecided
	}

	if speech {
		d.silenceRun = 0
	} else {
		d.silenceRun++
	}
	length := d.frames - d.speechAt
	if d.silenceRun >= d.silenceFrames && length >= d.minFrames {
		return EndOfSpeech
	}
	return Undecided
}

// Close releases the VAD session.
func (d *SilenceDetector) Close() error {
	return d.vad.Close()
}
