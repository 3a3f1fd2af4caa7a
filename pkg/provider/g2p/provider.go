// Package g2p defines the Guesser interface for grapheme-to-phoneme engines.
//
// A Guesser produces pronunciations for words that are not in a pronunciation
// dictionary. Results come back as a flat, ordered list of (word, phonemes)
// pairs; a word may appear several times (one entry per guess) or not at all.
// Grouping per requested word is the caller's job.
package g2p

import "context"

// Guess is a single pronunciation guess for one word.
type Guess struct {
	// Word is the word as reported by the engine.
	Word string

	// Phonemes is the guessed phoneme sequence (e.g., ["HH", "AH", "L", "OW"]).
	Phonemes []string
}

// Guesser is the abstraction over any g2p backend.
//
// Implementations must be safe for concurrent use.
type Guesser interface {
	// Guess returns up to numGuesses pronunciations for each word in words.
	// numGuesses is always positive.
	Guess(ctx context.Context, words []string, numGuesses int) ([]Guess, error)
}
