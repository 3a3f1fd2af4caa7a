package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes naming the Hermes site and session (or request id) a span
// works on.
const (
	SiteIDKey    = attribute.Key("hermes.site_id")
	SessionIDKey = attribute.Key("hermes.session_id")
)

const tracerName = "github.com/MrWong99/hermes-asr/internal/observe"

type scopeKey struct{}

type scope struct {
	siteID    string
	sessionID string
}

// StartSpan starts a span for work on siteID and, when sessionID is not
// empty, one session or request of it. The ids are recorded on the span and
// carried in the returned context for [Logger]. The caller must end the span.
func StartSpan(ctx context.Context, name, siteID, sessionID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{SiteIDKey.String(siteID)}
	if sessionID != "" {
		attrs = append(attrs, SessionIDKey.String(sessionID))
	}
	ctx = context.WithValue(ctx, scopeKey{}, scope{siteID: siteID, sessionID: sessionID})
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// Logger returns the default logger tagged with the site and session of the
// enclosing [StartSpan] and the trace id of the active span, when present.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc, ok := ctx.Value(scopeKey{}).(scope); ok {
		l = l.With("site_id", sc.siteID)
		if sc.sessionID != "" {
			l = l.With("session_id", sc.sessionID)
		}
	}
	if cid := CorrelationID(ctx); cid != "" {
		l = l.With("trace_id", cid)
	}
	return l
}

// CorrelationID returns the trace id of the active span in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if tc := trace.SpanContextFromContext(ctx); tc.HasTraceID() {
		return tc.TraceID().String()
	}
	return ""
}
