package asr

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/audio"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
)

// Dispatcher is the single boundary between sessions and the speech-to-text
// engine. It never fails: engine errors and panics become the zero
// [stt.Transcription], so every finished session still produces a
// text-captured message.
type Dispatcher struct {
	engine  stt.Transcriber
	name    string
	metrics *observe.Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithEngineName sets the provider name used in metrics and logs.
func WithEngineName(name string) DispatcherOption {
	return func(d *Dispatcher) { d.name = name }
}

// WithDispatcherMetrics records latency and error metrics to m.
func WithDispatcherMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher wraps engine.
func NewDispatcher(engine stt.Transcriber, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{engine: engine, name: "stt"}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Transcribe runs the engine over chunks. An empty buffer is not sent to the
// engine and yields the zero result.
func (d *Dispatcher) Transcribe(ctx context.Context, chunks iter.Seq[[]byte], size int, format audio.Format) stt.Transcription {
	if size == 0 {
		return stt.Transcription{}
	}

	start := time.Now()
	res, err := d.call(ctx, chunks, format)
	elapsed := time.Since(start)

	if d.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
			d.metrics.RecordProviderError(ctx, d.name, "stt")
		}
		d.metrics.RecordProviderRequest(ctx, d.name, "stt", status)
		d.metrics.TranscriptionDuration.Record(ctx, elapsed.Seconds())
		d.metrics.UtteranceSeconds.Record(ctx, format.Seconds(size))
	}
	if err != nil {
		observe.Logger(ctx).Warn("transcription failed, publishing empty text",
			"provider", d.name,
			"audio_seconds", format.Seconds(size),
			"error", err,
		)
		return stt.Transcription{}
	}
	return res
}

// call invokes the engine, converting panics into errors.
func (d *Dispatcher) call(ctx context.Context, chunks iter.Seq[[]byte], format audio.Format) (res stt.Transcription, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("asr: transcriber panicked: %v", p)
			slog.Error("recovered panic in transcriber", "provider", d.name, "panic", p)
		}
	}()

	out, err := d.engine.Transcribe(ctx, chunks, format)
	if err != nil {
		return stt.Transcription{}, err
	}
	if out == nil {
		return stt.Transcription{}, fmt.Errorf("asr: transcriber %s returned no result", d.name)
	}
	return *out, nil
}
