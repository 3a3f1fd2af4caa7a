package bridge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/hermes-asr/internal/bridge"
	journalmock "github.com/MrWong99/hermes-asr/internal/journal/mock"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

func TestJournalSink(t *testing.T) {
	t.Parallel()

	j := &journalmock.Journal{}
	sink := bridge.NewJournalSink(j)
	ctx := context.Background()

	sink.Observe(ctx, hermes.AsrTextCaptured{Text: "open the door", Likelihood: 0.7, Seconds: 1.5, SiteID: "hall", SessionID: "s"})
	sink.Observe(ctx, hermes.AsrError{Error: "ignored", SiteID: "hall"})
	sink.Observe(ctx, hermes.AsrAudioCaptured{WAV: []byte("RIFF"), SiteID: "hall", SessionID: "s"})

	entries := j.Entries()
	if len(entries) != 1 {
		t.Fatalf("journal has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Text != "open the door" || e.SiteID != "hall" || e.SessionID != "s" || e.Likelihood != 0.7 || e.Seconds != 1.5 {
		t.Errorf("entry = %+v", e)
	}
	if e.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestJournalSink_ErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	j := &journalmock.Journal{Err: errors.New("db down")}
	bridge.NewJournalSink(j).Observe(context.Background(), hermes.AsrTextCaptured{Text: "x", SiteID: "s"})
	if len(j.Entries()) != 0 {
		t.Error("failed append should not store the entry")
	}
}
