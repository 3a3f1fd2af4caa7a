// Package phonetisaurus implements [g2p.Guesser] by running the
// phonetisaurus-apply command-line tool against a trained FST model.
//
// Each Guess call writes the words to a temporary word list and runs:
//
//	phonetisaurus-apply --model <model.fst> --word_list <file> --nbest <n>
//
// The tool prints one "word<TAB>phonemes" line per guess, best guess first.
package phonetisaurus

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
)

const defaultBinary = "phonetisaurus-apply"

// Compile-time assertion that Guesser satisfies g2p.Guesser.
var _ g2p.Guesser = (*Guesser)(nil)

// Option is a functional option for configuring a Guesser.
type Option func(*Guesser)

// WithBinary overrides the path of the phonetisaurus-apply executable.
func WithBinary(path string) Option {
	return func(g *Guesser) {
		g.binary = path
	}
}

// Guesser runs phonetisaurus-apply for every request. It is safe for
// concurrent use.
type Guesser struct {
	model  string
	binary string
}

// New returns a Guesser for the FST model at modelPath.
func New(modelPath string, opts ...Option) (*Guesser, error) {
	if modelPath == "" {
		return nil, errors.New("phonetisaurus: model path must not be empty")
	}
	g := &Guesser{model: modelPath, binary: defaultBinary}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Guess implements g2p.Guesser.
func (g *Guesser) Guess(ctx context.Context, words []string, numGuesses int) ([]g2p.Guess, error) {
	if len(words) == 0 {
		return nil, nil
	}

	wordList, err := os.CreateTemp("", "g2p-words-*.txt")
	if err != nil {
		return nil, fmt.Errorf("phonetisaurus: create word list: %w", err)
	}
	defer os.Remove(wordList.Name())

	for _, w := range words {
		if _, err := fmt.Fprintln(wordList, w); err != nil {
			wordList.Close()
			return nil, fmt.Errorf("phonetisaurus: write word list: %w", err)
		}
	}
	if err := wordList.Close(); err != nil {
		return nil, fmt.Errorf("phonetisaurus: write word list: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.binary,
		"--model", g.model,
		"--word_list", wordList.Name(),
		"--nbest", strconv.Itoa(numGuesses),
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("phonetisaurus: run %s: %w: %s", g.binary, err, strings.TrimSpace(stderr.String()))
	}
	return parseOutput(stdout.Bytes())
}

// parseOutput reads "word<TAB>phonemes" lines. Some builds print a score
// column between word and phonemes; it is skipped.
func parseOutput(data []byte) ([]g2p.Guess, error) {
	var out []g2p.Guess
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return nil, fmt.Errorf("phonetisaurus: malformed output line %q", line)
		}
		phonemes := strings.Fields(cols[len(cols)-1])
		out = append(out, g2p.Guess{Word: cols[0], Phonemes: phonemes})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phonetisaurus: read output: %w", err)
	}
	return out, nil
}
