package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useTestTracer installs an in-memory tracer provider as the global one for
// the duration of the test.
func useTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

// captureLogs routes the default logger into a buffer for the duration of
// the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestStartSpan_RecordsSiteAndSession(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartSpan(context.Background(), "asr.finalize", "kitchen", "s1")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "asr.finalize" {
		t.Fatalf("spans = %+v, want one asr.finalize span", spans)
	}
	got := map[string]string{}
	for _, kv := range spans[0].Attributes {
		got[string(kv.Key)] = kv.Value.AsString()
	}
	if got[string(SiteIDKey)] != "kitchen" || got[string(SessionIDKey)] != "s1" {
		t.Errorf("attributes = %v", got)
	}
}

func TestStartSpan_OmitsEmptySession(t *testing.T) {
	exp := useTestTracer(t)

	_, span := StartSpan(context.Background(), "asr.finalize", "kitchen", "")
	span.End()

	for _, kv := range exp.GetSpans()[0].Attributes {
		if kv.Key == SessionIDKey {
			t.Errorf("ambient span carries %s=%q", kv.Key, kv.Value.AsString())
		}
	}
}

func TestLogger_CarriesScope(t *testing.T) {
	useTestTracer(t)
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "asr.train", "office", "t1")
	defer span.End()
	Logger(ctx).Info("training finished")

	out := buf.String()
	for _, want := range []string{"site_id=office", "session_id=t1", "trace_id=" + CorrelationID(ctx)} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestLogger_WithoutScope(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("plain")

	out := buf.String()
	for _, unwanted := range []string{"site_id", "trace_id"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("log output should not contain %s: %s", unwanted, out)
		}
	}
}

func TestCorrelationID(t *testing.T) {
	useTestTracer(t)

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}

	ids := make(map[string]struct{}, 50)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "asr.pronounce", "kitchen", "p")
		cid := CorrelationID(ctx)
		span.End()
		if len(cid) != 32 {
			t.Fatalf("correlation id %q, want 32 hex characters", cid)
		}
		if _, dup := ids[cid]; dup {
			t.Fatalf("duplicate correlation id %s", cid)
		}
		ids[cid] = struct{}{}
	}
}
