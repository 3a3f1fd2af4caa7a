package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	stt     map[string]func(ProviderEntry) (stt.Transcriber, error)
	g2p     map[string]func(ProviderEntry) (g2p.Guesser, error)
	trainer map[string]func(ProviderEntry) (trainer.Trainer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:     make(map[string]func(ProviderEntry) (stt.Transcriber, error)),
		g2p:     make(map[string]func(ProviderEntry) (g2p.Guesser, error)),
		trainer: make(map[string]func(ProviderEntry) (trainer.Trainer, error)),
	}
}

// RegisterSTT registers a transcription engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Transcriber, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterG2P registers a pronunciation guesser factory under name.
func (r *Registry) RegisterG2P(name string, factory func(ProviderEntry) (g2p.Guesser, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.g2p[name] = factory
}

// RegisterTrainer registers a trainer factory under name.
func (r *Registry) RegisterTrainer(name string, factory func(ProviderEntry) (trainer.Trainer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainer[name] = factory
}

// CreateSTT instantiates a transcription engine using the factory registered
// under entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Transcriber, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateG2P instantiates a pronunciation guesser using the factory registered under entry.Name.
func (r *Registry) CreateG2P(entry ProviderEntry) (g2p.Guesser, error) {
	r.mu.RLock()
	factory, ok := r.g2p[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: g2p/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTrainer instantiates a trainer using the factory registered under entry.Name.
func (r *Registry) CreateTrainer(entry ProviderEntry) (trainer.Trainer, error) {
	r.mu.RLock()
	factory, ok := r.trainer[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: trainer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// ─── Option helpers ──────────────────────────────────────────────────────────

// StringOption returns entry.Options[key] if it is a string, else def.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// IntOption returns entry.Options[key] if it is a whole number, else def.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return def
}

// StringsOption returns entry.Options[key] as a string list. A single string
// becomes a one-element list. Other types yield nil.
func (e ProviderEntry) StringsOption(key string) []string {
	switch v := e.Options[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	}
	return nil
}
