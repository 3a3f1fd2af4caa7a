package bridge

import (
	"context"
	"log/slog"

	"github.com/MrWong99/hermes-asr/internal/journal"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

// Sink observes every message the bridge publishes. Observe must not block
// for long; it runs on the publishing site's worker.
type Sink interface {
	Observe(ctx context.Context, msg hermes.Message)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, msg hermes.Message)

// Observe implements [Sink].
func (f SinkFunc) Observe(ctx context.Context, msg hermes.Message) { f(ctx, msg) }

// JournalSink appends every captured text to a transcript journal.
type JournalSink struct {
	journal journal.Journal
}

var _ Sink = (*JournalSink)(nil)

// NewJournalSink returns a sink writing to j.
func NewJournalSink(j journal.Journal) *JournalSink {
	return &JournalSink{journal: j}
}

// Observe implements [Sink]. Journal failures are logged and dropped.
func (s *JournalSink) Observe(ctx context.Context, msg hermes.Message) {
	tc, ok := msg.(hermes.AsrTextCaptured)
	if !ok {
		return
	}
	err := s.journal.Append(ctx, journal.Entry{
		SiteID:     tc.SiteID,
		SessionID:  tc.SessionID,
		Text:       tc.Text,
		Likelihood: tc.Likelihood,
		Seconds:    tc.Seconds,
	})
	if err != nil {
		slog.Warn("failed to journal transcript", "site_id", tc.SiteID, "session_id", tc.SessionID, "error", err)
	}
}
