// Package mock provides an in-memory journal.Journal for tests.
package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/hermes-asr/internal/journal"
)

var _ journal.Journal = (*Journal)(nil)

// Journal keeps entries in memory in append order.
type Journal struct {
	mu      sync.Mutex
	entries []journal.Entry

	// Err, if non-nil, is returned by every method.
	Err error
}

// Append implements journal.Journal.
func (j *Journal) Append(_ context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return j.Err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	j.entries = append(j.entries, e)
	return nil
}

// Recent implements journal.Journal.
func (j *Journal) Recent(_ context.Context, siteID string, limit int) ([]journal.Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return nil, j.Err
	}
	out := []journal.Entry{}
	for _, e := range slices.Backward(j.entries) {
		if siteID != "" && e.SiteID != siteID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of everything appended so far, oldest first.
func (j *Journal) Entries() []journal.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.entries)
}
