// Package metaphone implements [g2p.Guesser] without a trained model by
// deriving phonemes from Double Metaphone codes.
//
// Double Metaphone reduces a word to a primary and an optional alternate
// consonant skeleton. Each code letter is mapped to an ARPAbet-style phoneme,
// so a word yields at most two guesses: the primary encoding and, when it
// differs, the alternate one. The guesses are coarse (vowels after the first
// letter are dropped) but good enough to seed a dictionary for rare names when
// no phonetisaurus model is available.
package metaphone

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
)

// Compile-time assertion that Guesser satisfies g2p.Guesser.
var _ g2p.Guesser = (*Guesser)(nil)

// codePhonemes maps Double Metaphone code letters to phonemes.
var codePhonemes = map[rune]string{
	'0': "TH",
	'A': "AH",
	'B': "B",
	'F': "F",
	'H': "HH",
	'J': "JH",
	'K': "K",
	'L': "L",
	'M': "M",
	'N': "N",
	'P': "P",
	'R': "R",
	'S': "S",
	'T': "T",
	'W': "W",
	'X': "SH",
	'Y': "Y",
}

// Guesser is a stateless Double Metaphone g2p engine. It is safe for
// concurrent use.
type Guesser struct{}

// New returns a new [Guesser].
func New() *Guesser {
	return &Guesser{}
}

// Guess returns up to min(numGuesses, 2) pronunciations per word. Words that
// encode to nothing (digits, punctuation) produce no guesses.
func (g *Guesser) Guess(ctx context.Context, words []string, numGuesses int) ([]g2p.Guess, error) {
	var out []g2p.Guess
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, phonemes := range encode(w) {
			if countFor(out, w) >= numGuesses {
				break
			}
			out = append(out, g2p.Guess{Word: w, Phonemes: phonemes})
		}
	}
	return out, nil
}

// encode returns the distinct phoneme sequences for word's metaphone codes.
func encode(word string) [][]string {
	primary, secondary := matchr.DoubleMetaphone(strings.ToLower(word))

	var out [][]string
	if p := toPhonemes(primary); len(p) > 0 {
		out = append(out, p)
	}
	if secondary != primary {
		if s := toPhonemes(secondary); len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func toPhonemes(code string) []string {
	var phonemes []string
	for _, r := range code {
		if p, ok := codePhonemes[r]; ok {
			phonemes = append(phonemes, p)
		}
	}
	return phonemes
}

func countFor(guesses []g2p.Guess, word string) int {
	n := 0
	for _, g := range guesses {
		if g.Word == word {
			n++
		}
	}
	return n
}
