package asr

import (
	"testing"
)

func TestSilenceSettings_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SilenceSettings)
		wantErr bool
	}{
		{"defaults", func(*SilenceSettings) {}, false},
		{"zero frame", func(s *SilenceSettings) { s.FrameMs = 0 }, true},
		{"zero threshold", func(s *SilenceSettings) { s.RMSThreshold = 0 }, true},
		{"threshold above full scale", func(s *SilenceSettings) { s.RMSThreshold = 40000 }, true},
		{"negative skip", func(s *SilenceSettings) { s.SkipSeconds = -1 }, true},
		{"zero silence", func(s *SilenceSettings) { s.SilenceSeconds = 0 }, true},
		{"max below min", func(s *SilenceSettings) { s.MinSeconds = 5; s.MaxSeconds = 2 }, true},
		{"unlimited max", func(s *SilenceSettings) { s.MaxSeconds = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := DefaultSilenceSettings()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSilenceDetector_EndOfSpeech(t *testing.T) {
	t.Parallel()

	d, err := NewSilenceDetector(DefaultSilenceSettings())
	if err != nil {
		t.Fatalf("NewSilenceDetector: %v", err)
	}
	defer d.Close()

	if got := d.Process(quiet(1)); got != Undecided {
		t.Fatalf("leading silence: got %v, want undecided", got)
	}
	if got := d.Process(tone(1.5, 8000)); got != Undecided {
		t.Fatalf("speech: got %v, want undecided", got)
	}
	if got := d.Process(quiet(0.3)); got != Undecided {
		t.Fatalf("short pause: got %v, want undecided", got)
	}
	if got := d.Process(quiet(0.3)); got != EndOfSpeech {
		t.Fatalf("trailing silence: got %v, want %v", got, EndOfSpeech)
	}
	if got := d.Process(tone(1, 8000)); got != EndOfSpeech {
		t.Errorf("decision should be sticky, got %v", got)
	}
}

func TestSilenceDetector_ShortUtteranceNeedsMinSeconds(t *testing.T) {
	t.Parallel()

	d, _ := NewSilenceDetector(DefaultSilenceSettings())
	defer d.Close()

	// 0.4 s of speech + 0.6 s of silence is enough silence, but the
	// utterance is still shorter than min_seconds (1 s).
	if got := d.Process(concat(tone(0.4, 8000), quiet(0.6))); got != Undecided {
		t.Fatalf("got %v, want undecided", got)
	}
	if got := d.Process(quiet(0.2)); got != EndOfSpeech {
		t.Fatalf("got %v, want %v once min_seconds is reached", got, EndOfSpeech)
	}
}

func TestSilenceDetector_NoSpeechNeverEnds(t *testing.T) {
	t.Parallel()

	d, _ := NewSilenceDetector(DefaultSilenceSettings())
	defer d.Close()

	if got := d.Process(concat(quiet(10), tone(0.1, 8000), quiet(10))); got != Undecided {
		t.Errorf("got %v, want undecided for noise burst shorter than speech_seconds", got)
	}
}

func TestSilenceDetector_Timeout(t *testing.T) {
	t.Parallel()

	s := DefaultSilenceSettings()
	s.MaxSeconds = 2
	d, _ := NewSilenceDetector(s)
	defer d.Close()

	if got := d.Process(tone(1.9, 8000)); got != Undecided {
		t.Fatalf("got %v before max_seconds", got)
	}
	if got := d.Process(tone(0.2, 8000)); got != Timeout {
		t.Fatalf("got %v, want %v", got, Timeout)
	}
}

func TestSilenceDetector_TimeoutWithoutSpeech(t *testing.T) {
	t.Parallel()

	s := DefaultSilenceSettings()
	s.MaxSeconds = 2
	d, _ := NewSilenceDetector(s)
	defer d.Close()

	if got := d.Process(quiet(1.9)); got != Undecided {
		t.Fatalf("got %v before max_seconds", got)
	}
	if got := d.Process(quiet(0.2)); got != Timeout {
		t.Fatalf("got %v, want %v for a session that never heard speech", got, Timeout)
	}
}

func TestSilenceDetector_SlidingWindowStaysBounded(t *testing.T) {
	t.Parallel()

	d, _ := NewSilenceDetector(DefaultSilenceSettings())
	d.sliding = true
	defer d.Close()

	limit := (d.speechFrames + 1) * d.frameBytes
	for _, c := range split(quiet(60), 2048) {
		if got := d.Process(c); got != Undecided {
			t.Fatalf("idle audio: got %v, want undecided", got)
		}
		if n := d.PendingBytes(); n > limit {
			t.Fatalf("pending window = %d bytes, want at most %d", n, limit)
		}
	}
	if got := d.Process(concat(tone(1.2, 8000), quiet(1))); got != EndOfSpeech {
		t.Fatalf("got %v, want %v after an idle minute", got, EndOfSpeech)
	}
}

func TestSilenceDetector_SkipSeconds(t *testing.T) {
	t.Parallel()

	s := DefaultSilenceSettings()
	s.SkipSeconds = 1
	d, _ := NewSilenceDetector(s)
	defer d.Close()

	// Speech inside the skipped window never starts an utterance.
	if got := d.Process(concat(tone(0.9, 8000), quiet(1))); got != Undecided {
		t.Errorf("got %v, want undecided", got)
	}
}

func TestSilenceDetector_ChunkBoundariesDoNotMatter(t *testing.T) {
	t.Parallel()

	pcm := concat(quiet(0.5), tone(1.2, 8000), quiet(0.8))

	whole, _ := NewSilenceDetector(DefaultSilenceSettings())
	defer whole.Close()
	want := whole.Process(pcm)

	for _, size := range []int{2, 333, 960, 4096} {
		d, _ := NewSilenceDetector(DefaultSilenceSettings())
		got := Undecided
		for _, c := range split(pcm, size) {
			got = d.Process(c)
		}
		d.Close()
		if got != want {
			t.Errorf("chunk size %d: got %v, want %v", size, got, want)
		}
	}
	if want != EndOfSpeech {
		t.Errorf("whole buffer: got %v, want %v", want, EndOfSpeech)
	}
}

func TestDecision_String(t *testing.T) {
	t.Parallel()
	for d, want := range map[Decision]string{Undecided: "undecided", EndOfSpeech: "silence", Timeout: "timeout"} {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", d, got, want)
		}
	}
}
