package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
)

// DefaultNumGuesses is used when a request does not ask for a positive
// number of guesses.
const DefaultNumGuesses = 5

// Pronouncer answers g2p requests by grouping the guesser's flat output per
// requested word.
type Pronouncer struct {
	guesser    g2p.Guesser
	numGuesses int
	metrics    *observe.Metrics
}

// NewPronouncer returns a Pronouncer. defaultNumGuesses ≤ 0 selects
// [DefaultNumGuesses]. metrics may be nil.
func NewPronouncer(guesser g2p.Guesser, defaultNumGuesses int, metrics *observe.Metrics) *Pronouncer {
	if defaultNumGuesses <= 0 {
		defaultNumGuesses = DefaultNumGuesses
	}
	return &Pronouncer{guesser: guesser, numGuesses: defaultNumGuesses, metrics: metrics}
}

// Pronounce returns [hermes.G2pPhonemes] with one entry per requested word,
// or a single [hermes.G2pError] if the guesser fails.
func (p *Pronouncer) Pronounce(ctx context.Context, req hermes.G2pPronounce) hermes.Message {
	ctx, span := observe.StartSpan(ctx, "asr.pronounce", req.SiteID, req.ID)
	defer span.End()

	n := req.NumGuesses
	if n <= 0 {
		n = p.numGuesses
	}

	words, err := p.guess(ctx, req.Words, n)
	if err != nil {
		span.RecordError(err)
		p.record(ctx, "error")
		observe.Logger(ctx).Warn("pronunciation guess failed", "error", err)
		return hermes.G2pError{
			ID:        req.ID,
			Error:     err.Error(),
			Context:   strings.Join(req.Words, " "),
			SiteID:    req.SiteID,
			SessionID: req.SessionID,
		}
	}
	p.record(ctx, "ok")
	return hermes.G2pPhonemes{
		ID:           req.ID,
		WordPhonemes: words,
		SiteID:       req.SiteID,
		SessionID:    req.SessionID,
	}
}

func (p *Pronouncer) record(ctx context.Context, status string) {
	if p.metrics != nil {
		p.metrics.RecordPronounce(ctx, status)
	}
}

// guess calls the guesser and groups its output. Guessed words are matched
// to requested words case-insensitively; guesses for words that were not
// requested are dropped.
func (p *Pronouncer) guess(ctx context.Context, words []string, n int) (out map[string][]hermes.G2pPronunciation, err error) {
	if p.guesser == nil {
		return nil, errors.New("asr: no g2p guesser configured")
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("asr: g2p guesser panicked: %v", r)
		}
	}()

	out = make(map[string][]hermes.G2pPronunciation, len(words))
	// Guessers may fold case, so every spelling of a word shares its guesses.
	requested := make(map[string][]string, len(words))
	for _, w := range words {
		if _, dup := out[w]; dup {
			continue
		}
		out[w] = []hermes.G2pPronunciation{}
		lw := strings.ToLower(w)
		requested[lw] = append(requested[lw], w)
	}
	if len(words) == 0 {
		return out, nil
	}

	guesses, err := p.guesser.Guess(ctx, words, n)
	if err != nil {
		return nil, err
	}
	for _, g := range guesses {
		for _, w := range requested[strings.ToLower(g.Word)] {
			if len(out[w]) < n {
				out[w] = append(out[w], hermes.G2pPronunciation{Phonemes: g.Phonemes, Guessed: true})
			}
		}
	}
	return out, nil
}
