// Package mock provides a test double for the g2p.Guesser interface.
//
// Example:
//
//	g := &mock.Guesser{Phonemes: []string{"F", "UW"}}
//	guesses, _ := g.Guess(ctx, []string{"foo"}, 2) // two identical guesses for "foo"
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
)

// GuessCall records a single invocation of Guesser.Guess.
type GuessCall struct {
	Words      []string
	NumGuesses int
}

// Guesser is a mock implementation of g2p.Guesser.
type Guesser struct {
	mu sync.Mutex

	// Result, if non-nil, is returned verbatim from Guess.
	Result []g2p.Guess

	// Phonemes is used when Result is nil: every requested word receives
	// numGuesses copies of Phonemes.
	Phonemes []string

	// Err, if non-nil, is returned as the error from Guess.
	Err error

	// Calls records every call to Guess.
	Calls []GuessCall
}

// Guess records the call and returns the configured guesses.
func (m *Guesser) Guess(_ context.Context, words []string, numGuesses int) ([]g2p.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, GuessCall{Words: slices.Clone(words), NumGuesses: numGuesses})

	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	var out []g2p.Guess
	for _, w := range words {
		for range numGuesses {
			out = append(out, g2p.Guess{Word: w, Phonemes: slices.Clone(m.Phonemes)})
		}
	}
	return out, nil
}

// CallCount returns the number of Guess calls. Thread-safe.
func (m *Guesser) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Ensure Guesser implements g2p.Guesser at compile time.
var _ g2p.Guesser = (*Guesser)(nil)
