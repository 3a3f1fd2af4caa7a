// Package asr implements the Hermes ASR state machine: listening sessions
// keyed by site and session id, per-session audio aggregation with silence
// detection, fail-open transcription, training, and pronunciation guessing.
//
// [Router.Handle] takes one decoded inbound message and returns the outbound
// messages it produces. The router holds no transport; internal/bridge feeds
// it from MQTT and publishes its output.
//
// Per-session state machine:
//
//	Idle --startListening--> Listening
//	Listening --audioFrame--> Listening | Idle (silence with stopOnSilence)
//	Listening --stopListening--> Idle
//
// Leaving Listening always publishes textCaptured, followed by audioCaptured
// when the session asked for it.
package asr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

// ConvertFunc normalises a WAV payload from siteID into raw PCM in
// [audio.SpeechFormat]. It is called in arrival order for each site.
type ConvertFunc func(siteID string, wav []byte) ([]byte, error)

// Router routes inbound Hermes messages. Handle is safe for concurrent use
// as long as messages for the same site are handled in arrival order by one
// goroutine at a time.
type Router struct {
	registry   *Registry
	dispatcher *Dispatcher
	training   *TrainingCoordinator
	pronouncer *Pronouncer
	convert    ConvertFunc
	metrics    *observe.Metrics

	streamMu sync.Mutex
	streams  map[string]*audio.Stream

	mu       sync.RWMutex
	siteIDs  map[string]struct{}
	disabled map[string]bool
	silence  SilenceSettings
}

// Option configures a Router.
type Option func(*Router)

// WithSiteIDs restricts the router to the given sites. An empty list
// accepts every site.
func WithSiteIDs(ids ...string) Option {
	return func(r *Router) { r.siteIDs = siteSet(ids) }
}

// WithSilenceSettings sets the silence settings snapshotted into new
// sessions.
func WithSilenceSettings(s SilenceSettings) Option {
	return func(r *Router) { r.silence = s }
}

// WithConvert replaces the WAV conversion used for audio frames.
func WithConvert(fn ConvertFunc) Option {
	return func(r *Router) { r.convert = fn }
}

// WithTraining enables train requests.
func WithTraining(c *TrainingCoordinator) Option {
	return func(r *Router) { r.training = c }
}

// WithPronouncer enables g2p requests.
func WithPronouncer(p *Pronouncer) Option {
	return func(r *Router) { r.pronouncer = p }
}

// WithMetrics records session metrics to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// NewRouter returns a router that transcribes through d.
func NewRouter(d *Dispatcher, opts ...Option) *Router {
	r := &Router{
		dispatcher: d,
		streams:    make(map[string]*audio.Stream),
		disabled:   make(map[string]bool),
		silence:    DefaultSilenceSettings(),
	}
	r.convert = r.convertStream
	for _, o := range opts {
		o(r)
	}
	r.registry = NewRegistry(r.metrics)
	return r
}

// Registry exposes the session registry, mainly for health and tests.
func (r *Router) Registry() *Registry { return r.registry }

// SetSiteIDs replaces the accepted site list. An empty list accepts every
// site.
func (r *Router) SetSiteIDs(ids []string) {
	set := siteSet(ids)
	r.mu.Lock()
	r.siteIDs = set
	r.mu.Unlock()
}

// SetSilenceSettings replaces the defaults for sessions started afterwards.
func (r *Router) SetSilenceSettings(s SilenceSettings) {
	r.mu.Lock()
	r.silence = s
	r.mu.Unlock()
}

// Handle processes msg and returns the messages to publish, in order.
func (r *Router) Handle(ctx context.Context, msg hermes.Message) []hermes.Message {
	site := hermes.SiteOf(msg)
	if !r.accepts(site) {
		slog.Debug("ignoring message for foreign site", "topic", msg.Topic(), "site_id", site)
		return nil
	}

	switch m := msg.(type) {
	case hermes.AsrStartListening:
		return r.startListening(ctx, m)
	case hermes.AsrStopListening:
		return r.stopListening(ctx, m)
	case hermes.AudioFrame:
		return r.audioFrame(ctx, m.SiteID, "", m.WAV)
	case hermes.AudioSessionFrame:
		return r.audioFrame(ctx, m.SiteID, m.SessionID, m.WAV)
	case hermes.AsrToggleOn:
		r.setEnabled(m.SiteID, true, m.Reason)
		return nil
	case hermes.AsrToggleOff:
		r.setEnabled(m.SiteID, false, m.Reason)
		return nil
	case hermes.AsrTrain:
		if r.training == nil {
			return []hermes.Message{hermes.AsrError{Error: ErrNoTrainer.Error(), Context: m.GraphPath, SiteID: m.SiteID, SessionID: m.ID}}
		}
		return []hermes.Message{r.training.Train(ctx, m, m.SiteID)}
	case hermes.G2pPronounce:
		if r.pronouncer == nil {
			return []hermes.Message{hermes.G2pError{ID: m.ID, Error: "asr: no g2p guesser configured", SiteID: m.SiteID, SessionID: m.SessionID}}
		}
		return []hermes.Message{r.pronouncer.Pronounce(ctx, m)}
	default:
		slog.Debug("ignoring unhandled message", "topic", msg.Topic())
		return nil
	}
}

func (r *Router) startListening(ctx context.Context, m hermes.AsrStartListening) []hermes.Message {
	if !r.enabled(m.SiteID) {
		slog.Debug("asr disabled, ignoring startListening", "site_id", m.SiteID, "session_id", m.SessionID)
		return nil
	}
	settings := SessionSettings{
		StopOnSilence:     m.StopOnSilence,
		SendAudioCaptured: m.SendAudioCaptured,
		Lang:              m.Lang,
		WakewordID:        m.WakewordID,
		Silence:           r.silenceSettings(),
	}
	key := SessionKey{SiteID: m.SiteID, SessionID: m.SessionID}
	if !key.Ambient() {
		// Audio that raced ahead of this start landed in the ambient session.
		if _, ok := r.registry.Remove(ctx, SessionKey{SiteID: m.SiteID}); ok {
			slog.Debug("discarded ambient session", "site_id", m.SiteID)
		}
	}
	if _, err := r.registry.Start(ctx, key, settings); err != nil {
		slog.Error("failed to start session", "session", key, "error", err)
		return []hermes.Message{hermes.AsrError{Error: err.Error(), Context: "startListening", SiteID: m.SiteID, SessionID: m.SessionID}}
	}
	slog.Debug("session started", "session", key, "stop_on_silence", settings.StopOnSilence)
	return nil
}

func (r *Router) stopListening(ctx context.Context, m hermes.AsrStopListening) []hermes.Message {
	key := SessionKey{SiteID: m.SiteID, SessionID: m.SessionID}
	s, ok := r.registry.Remove(ctx, key)
	if !ok {
		slog.Debug("stopListening for unknown session", "session", key)
		return nil
	}
	return r.finalize(ctx, s, "stop")
}

// audioFrame appends a frame to the session it names or, when it names none
// or an unknown one, to every session of the site. A site without sessions
// gets an ambient session with default settings.
func (r *Router) audioFrame(ctx context.Context, site, sessionID string, wav []byte) []hermes.Message {
	if !r.enabled(site) {
		return nil
	}
	pcm, err := r.convert(site, wav)
	if err != nil {
		slog.Warn("dropping undecodable audio frame", "site_id", site, "error", err)
		return nil
	}

	var targets []*Session
	if sessionID != "" {
		if s, ok := r.registry.Lookup(SessionKey{SiteID: site, SessionID: sessionID}); ok {
			targets = []*Session{s}
		}
	}
	if targets == nil {
		targets = r.registry.Site(site)
	}
	if len(targets) == 0 {
		s, err := r.registry.Start(ctx, SessionKey{SiteID: site}, r.defaultSettings())
		if err != nil {
			slog.Error("failed to create ambient session", "site_id", site, "error", err)
			return nil
		}
		targets = []*Session{s}
	}

	var out []hermes.Message
	for _, s := range targets {
		d := s.Append(pcm)
		if d == Undecided || !s.Settings.StopOnSilence {
			continue
		}
		if _, ok := r.registry.Remove(ctx, s.Key); ok {
			out = append(out, r.finalize(ctx, s, d.String())...)
		}
	}
	return out
}

// finalize transcribes a removed session and builds its result messages.
func (r *Router) finalize(ctx context.Context, s *Session, reason string) []hermes.Message {
	ctx, span := observe.StartSpan(ctx, "asr.finalize", s.Key.SiteID, s.Key.SessionID)
	defer span.End()

	buf := s.Audio()
	res := r.dispatcher.Transcribe(ctx, buf.Chunks(), buf.Len(), audio.SpeechFormat)
	if r.metrics != nil {
		r.metrics.RecordTextCaptured(ctx, s.Key.SiteID, reason)
	}
	observe.Logger(ctx).Info("session finished",
		"reason", reason,
		"audio_seconds", audio.SpeechFormat.Seconds(buf.Len()),
		"text", res.Text,
		"likelihood", res.Likelihood,
	)

	out := []hermes.Message{hermes.AsrTextCaptured{
		Text:       res.Text,
		Likelihood: res.Likelihood,
		Seconds:    res.TranscribeSeconds,
		SiteID:     s.Key.SiteID,
		SessionID:  s.Key.SessionID,
		WakewordID: s.Settings.WakewordID,
		Lang:       s.Settings.Lang,
	}}
	if s.Settings.SendAudioCaptured {
		wav, err := audio.EncodeWAV(buf.Bytes(), audio.SpeechFormat)
		if err != nil {
			slog.Error("failed to encode captured audio", "session", s.Key, "error", err)
		} else {
			out = append(out, hermes.AsrAudioCaptured{WAV: wav, SiteID: s.Key.SiteID, SessionID: s.Key.SessionID})
		}
	}
	buf.Reset()
	return out
}

// convertStream resamples each site's frames as one continuous stream.
func (r *Router) convertStream(site string, wav []byte) ([]byte, error) {
	r.streamMu.Lock()
	st, ok := r.streams[site]
	if !ok {
		st = new(audio.Stream)
		r.streams[site] = st
	}
	r.streamMu.Unlock()
	return st.Convert(wav)
}

func (r *Router) defaultSettings() SessionSettings {
	return SessionSettings{StopOnSilence: true, Silence: r.silenceSettings()}
}

func (r *Router) silenceSettings() SilenceSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.silence
}

func (r *Router) accepts(site string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.siteIDs) == 0 {
		return true
	}
	_, ok := r.siteIDs[site]
	return ok
}

func (r *Router) enabled(site string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.disabled[site]
}

func (r *Router) setEnabled(site string, on bool, reason string) {
	r.mu.Lock()
	if on {
		delete(r.disabled, site)
	} else {
		r.disabled[site] = true
	}
	r.mu.Unlock()
	slog.Info("asr toggled", "site_id", site, "enabled", on, "reason", reason)
}

func siteSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

