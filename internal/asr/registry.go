package asr

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/hermes-asr/internal/observe"
)

// Registry is the key → session map. Only structural operations (insert,
// remove, lookup) take the lock; session buffers are owned by the caller
// that looked them up.
type Registry struct {
	mu       sync.Mutex
	sessions map[SessionKey]*Session
	seq      uint64
	metrics  *observe.Metrics
}

// NewRegistry returns an empty registry. metrics may be nil.
func NewRegistry(metrics *observe.Metrics) *Registry {
	return &Registry{
		sessions: make(map[SessionKey]*Session),
		metrics:  metrics,
	}
}

// Start creates the session for key, replacing (and discarding) any session
// already registered under it.
func (r *Registry) Start(ctx context.Context, key SessionKey, settings SessionSettings) (*Session, error) {
	det, err := NewSilenceDetector(settings.Silence)
	if err != nil {
		return nil, fmt.Errorf("asr: start session: %w", err)
	}
	det.sliding = key.Ambient()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s := &Session{
		Key:      key,
		Settings: settings,
		Started:  time.Now(),
		detector: det,
		seq:      r.seq,
	}
	if old, ok := r.sessions[key]; ok {
		old.close()
	} else if r.metrics != nil {
		r.metrics.ActiveSessions.Add(ctx, 1)
	}
	r.sessions[key] = s
	return s, nil
}

// Lookup returns the session registered under key.
func (r *Registry) Lookup(key SessionKey) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Remove unregisters the session under key and returns it.
func (r *Registry) Remove(ctx context.Context, key SessionKey) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	s.close()
	if r.metrics != nil {
		r.metrics.ActiveSessions.Add(ctx, -1)
	}
	return s, true
}

// Site returns the sessions of siteID in start order.
func (r *Registry) Site(siteID string) []*Session {
	r.mu.Lock()
	var out []*Session
	for k, s := range r.sessions {
		if k.SiteID == siteID {
			out = append(out, s)
		}
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b *Session) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Keys returns the keys of all open sessions.
func (r *Registry) Keys() []SessionKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]SessionKey, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	return keys
}
