package asr

import (
	"log/slog"
	"time"
)

// SessionKey identifies a listening session. An empty SessionID is the
// site's ambient session, which collects audio that arrives without an
// explicitly started session.
type SessionKey struct {
	SiteID    string
	SessionID string
}

// Ambient reports whether k is the site's ambient session.
func (k SessionKey) Ambient() bool { return k.SessionID == "" }

// LogValue implements slog.LogValuer.
func (k SessionKey) LogValue() slog.Value {
	id := k.SessionID
	if k.Ambient() {
		id = "<ambient>"
	}
	return slog.GroupValue(slog.String("site_id", k.SiteID), slog.String("session_id", id))
}

// SessionSettings is the configuration snapshot taken when a session starts.
type SessionSettings struct {
	StopOnSilence     bool
	SendAudioCaptured bool
	Lang              string
	WakewordID        string
	Silence           SilenceSettings
}

// Session is one listening turn. It is reachable only through the
// [Registry]; its buffer is touched by a single owner at a time.
type Session struct {
	Key      SessionKey
	Settings SessionSettings
	Started  time.Time

	audio    Aggregator
	detector *SilenceDetector
	seq      uint64
}

// Append buffers pcm and runs silence detection over it. Until speech
// starts, an ambient session keeps only the detector's pending window.
func (s *Session) Append(pcm []byte) Decision {
	s.audio.Append(pcm)
	if s.detector == nil {
		return Undecided
	}
	d := s.detector.Process(pcm)
	if d == Undecided && s.detector.sliding && !s.detector.InSpeech() {
		s.audio.KeepLast(s.detector.PendingBytes())
	}
	return d
}

// Audio returns the session buffer.
func (s *Session) Audio() *Aggregator { return &s.audio }

// close releases per-session resources.
func (s *Session) close() {
	if s.detector != nil {
		_ = s.detector.Close()
	}
}
