// Package bridge connects the ASR router to the Hermes message bus.
//
// Inbound messages are decoded and handed to the router through one serial
// queue per site, so audio for a site is always processed in arrival order
// while different sites proceed in parallel. Training and pronunciation
// requests do not touch session state and run on their own goroutines.
//
// Dispatch never waits on a busy site for audio: when a site's queue is full
// its frames are dropped and counted, so a slow transcription cannot stall
// the transport's delivery goroutine. Control messages wait for room.
// Every outbound message is published on the transport and then offered to
// the configured [Sink]s.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"sync"

	"github.com/MrWong99/hermes-asr/internal/asr"
	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

// DefaultQueueLen is the per-site inbound queue capacity.
const DefaultQueueLen = 256

// Bridge moves messages between a [Transport] and an [asr.Router].
type Bridge struct {
	router    *asr.Router
	transport Transport
	metrics   *observe.Metrics
	sinks     []Sink
	queueLen  int

	mu     sync.Mutex
	queues map[string]*siteQueue
	closed bool
	wg     sync.WaitGroup
}

// siteQueue is one site's serial queue. senders counts Dispatch calls that
// hold a reference to ch outside the bridge lock; ch is closed only after
// they are done.
type siteQueue struct {
	ch      chan inbound
	senders sync.WaitGroup
}

type inbound struct {
	ctx context.Context
	msg hermes.Message
}

// Option configures a [Bridge].
type Option func(*Bridge)

// WithMetrics records message counters on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithSinks adds observers for outbound messages.
func WithSinks(s ...Sink) Option {
	return func(b *Bridge) { b.sinks = append(b.sinks, s...) }
}

// WithQueueLen sets the per-site queue capacity. Audio frames for a site
// whose queue is full are dropped; other messages wait for room.
func WithQueueLen(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.queueLen = n
		}
	}
}

// New creates a Bridge. Call [Bridge.Run] to start consuming.
func New(router *asr.Router, transport Transport, opts ...Option) *Bridge {
	b := &Bridge{
		router:    router,
		transport: transport,
		queueLen:  DefaultQueueLen,
		queues:    make(map[string]*siteQueue),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run subscribes to the inbound topics and blocks until ctx is done. Queued
// messages are drained before Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	err := b.transport.Subscribe(ctx, hermes.InboundFilters(), func(topic string, payload []byte) {
		b.Dispatch(ctx, topic, payload)
	})
	if err != nil {
		return err
	}
	slog.Info("asr bridge listening", "topics", len(hermes.InboundFilters()))

	<-ctx.Done()
	b.Close()
	return nil
}

// Dispatch decodes one inbound message and schedules it. Unknown topics and
// malformed payloads are dropped.
func (b *Bridge) Dispatch(ctx context.Context, topic string, payload []byte) {
	msg, err := hermes.Decode(topic, payload)
	if err != nil {
		if errors.Is(err, hermes.ErrUnknownTopic) {
			slog.Debug("ignoring message on unknown topic", "topic", topic)
		} else {
			slog.Warn("dropping malformed message", "topic", topic, "error", err)
		}
		return
	}
	if b.metrics != nil {
		b.metrics.RecordMessage(ctx, "in", kind(topic))
	}

	// Work started here must finish even if the subscription context is
	// cancelled while it waits.
	ctx = context.WithoutCancel(ctx)

	switch msg.(type) {
	case hermes.AsrTrain, hermes.G2pPronounce:
		b.spawn(ctx, msg)
	default:
		b.enqueue(ctx, hermes.SiteOf(msg), msg)
	}
}

// Close stops accepting messages and waits for queued work to finish. It is
// safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	var queues []*siteQueue
	if !b.closed {
		b.closed = true
		for _, q := range b.queues {
			queues = append(queues, q)
		}
	}
	b.mu.Unlock()

	for _, q := range queues {
		q.senders.Wait()
		close(q.ch)
	}
	b.wg.Wait()
}

func (b *Bridge) spawn(ctx context.Context, msg hermes.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		slog.Debug("bridge closed, dropping message", "topic", msg.Topic())
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handle(ctx, msg)
	}()
}

// enqueue hands msg to the site's worker, starting one on first use. The
// send happens outside the bridge lock so a full queue only holds up its own
// site.
func (b *Bridge) enqueue(ctx context.Context, site string, msg hermes.Message) {
	q := b.acquire(site)
	if q == nil {
		slog.Debug("bridge closed, dropping message", "topic", msg.Topic())
		return
	}
	defer q.senders.Done()

	in := inbound{ctx: ctx, msg: msg}
	if !isAudio(msg) {
		q.ch <- in
		return
	}
	select {
	case q.ch <- in:
	default:
		slog.Warn("site queue full, dropping audio frame", "site_id", site)
		if b.metrics != nil {
			b.metrics.RecordMessage(ctx, "dropped", kind(msg.Topic()))
		}
	}
}

// acquire returns site's queue with a sender registered, or nil once the
// bridge is closed.
func (b *Bridge) acquire(site string) *siteQueue {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	q, ok := b.queues[site]
	if !ok {
		q = &siteQueue{ch: make(chan inbound, b.queueLen)}
		b.queues[site] = q
		b.wg.Add(1)
		go b.worker(q.ch)
	}
	q.senders.Add(1)
	return q
}

func isAudio(msg hermes.Message) bool {
	switch msg.(type) {
	case hermes.AudioFrame, hermes.AudioSessionFrame:
		return true
	}
	return false
}

func (b *Bridge) worker(q <-chan inbound) {
	defer b.wg.Done()
	for in := range q {
		b.handle(in.ctx, in.msg)
	}
}

func (b *Bridge) handle(ctx context.Context, msg hermes.Message) {
	for _, out := range b.router.Handle(ctx, msg) {
		b.publish(ctx, out)
	}
}

func (b *Bridge) publish(ctx context.Context, msg hermes.Message) {
	topic := msg.Topic()
	payload, err := hermes.Encode(msg)
	if err != nil {
		slog.Error("failed to encode message", "topic", topic, "error", err)
		return
	}
	if err := b.transport.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish message", "topic", topic, "error", err)
	} else if b.metrics != nil {
		b.metrics.RecordMessage(ctx, "out", kind(topic))
	}
	for _, s := range b.sinks {
		s.Observe(ctx, msg)
	}
}

// kind reduces a topic to its last segment so metric labels stay bounded
// when topics embed site and session ids.
func kind(topic string) string {
	return path.Base(topic)
}
