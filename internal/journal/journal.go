// Package journal defines the transcript journal: an append-only record of
// every text the bridge captured, keyed by site and session.
package journal

import (
	"context"
	"time"
)

// Entry is one captured utterance.
type Entry struct {
	SiteID     string    `json:"siteId"`
	SessionID  string    `json:"sessionId"`
	Text       string    `json:"text"`
	Likelihood float64   `json:"likelihood"`
	Seconds    float64   `json:"seconds"` // transcription time, as in textCaptured
	Timestamp  time.Time `json:"timestamp"`
}

// Journal stores captured transcripts.
//
// Implementations must be safe for concurrent use.
type Journal interface {
	// Append stores e. A zero Timestamp is replaced with the current time.
	Append(ctx context.Context, e Entry) error

	// Recent returns up to limit entries for siteID, newest first. An empty
	// siteID matches every site; limit <= 0 means no limit.
	Recent(ctx context.Context, siteID string, limit int) ([]Entry, error)
}
