// Package app wires the ASR bridge subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the Hermes bus and the HTTP endpoints until the
// context ends, and Shutdown tears everything down in reverse-init order.
//
// For testing, inject doubles via functional options (WithTransport,
// WithJournal, ...). When an option is not provided, New creates the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/hermes-asr/internal/asr"
	"github.com/MrWong99/hermes-asr/internal/bridge"
	"github.com/MrWong99/hermes-asr/internal/config"
	"github.com/MrWong99/hermes-asr/internal/health"
	"github.com/MrWong99/hermes-asr/internal/journal"
	"github.com/MrWong99/hermes-asr/internal/journal/postgres"
	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
)

const (
	readHeaderTimeout = 10 * time.Second
	httpStopTimeout   = 5 * time.Second
)

// Providers holds one engine per pluggable stage. G2P and Trainer may be nil.
// Populated by main.go via the config registry.
type Providers struct {
	// STT is the transcription engine, usually a failover chain.
	STT stt.Transcriber

	// STTName labels STT in logs and metrics.
	STTName string

	G2P     g2p.Guesser
	Trainer trainer.Trainer

	// Closers release engine resources (native models) on shutdown.
	Closers []io.Closer
}

// App owns all subsystem lifetimes of the ASR bridge.
type App struct {
	cfg       *config.Config
	providers *Providers
	metrics   *observe.Metrics
	level     *slog.LevelVar

	transport bridge.Transport
	journal   journal.Journal
	pinger    health.Pinger
	router    *asr.Router
	bridge    *bridge.Bridge
	hub       *bridge.Hub
	handler   http.Handler

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithTransport injects a bus transport instead of dialling MQTT.
func WithTransport(t bridge.Transport) Option {
	return func(a *App) { a.transport = t }
}

// WithJournal injects a journal instead of opening the configured database.
func WithJournal(j journal.Journal) Option {
	return func(a *App) { a.journal = j }
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLevelVar lets [App.ApplyConfig] change the log level of the handler
// built on lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together: journal, transport,
// protocol router, bridge, event hub and the HTTP handler. Providers come
// from main.go.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.STT == nil {
		return nil, errors.New("app: no transcription engine configured")
	}
	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
	}
	for _, c := range providers.Closers {
		a.closers = append(a.closers, c.Close)
	}

	if err := a.initJournal(ctx); err != nil {
		a.runClosers()
		return nil, err
	}
	if err := a.initTransport(ctx); err != nil {
		a.runClosers()
		return nil, err
	}

	a.router = a.newRouter()
	a.hub = bridge.NewHub()
	a.closers = append(a.closers, func() error { a.hub.Close(); return nil })

	sinks := []bridge.Sink{a.hub}
	if a.journal != nil {
		sinks = append(sinks, bridge.NewJournalSink(a.journal))
	}
	a.bridge = bridge.New(a.router, a.transport,
		bridge.WithMetrics(a.metrics),
		bridge.WithSinks(sinks...),
	)
	a.handler = a.newHandler()

	slog.Info("application initialised",
		"stt", providers.STTName,
		"g2p", providers.G2P != nil,
		"trainer", providers.Trainer != nil,
		"journal", a.journal != nil,
		"site_ids", cfg.MQTT.SiteIDs,
	)
	return a, nil
}

func (a *App) initJournal(ctx context.Context) error {
	if a.journal == nil && a.cfg.Journal.PostgresDSN != "" {
		store, err := postgres.NewStore(ctx, a.cfg.Journal.PostgresDSN)
		if err != nil {
			return fmt.Errorf("app: open journal: %w", err)
		}
		a.journal = store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
	}
	if p, ok := a.journal.(health.Pinger); ok {
		a.pinger = p
	}
	return nil
}

func (a *App) initTransport(ctx context.Context) error {
	if a.transport != nil {
		return nil
	}
	t, err := bridge.DialMQTT(ctx, bridge.MQTTConfig{
		Broker:   a.cfg.MQTT.Broker,
		ClientID: a.cfg.MQTT.ClientID,
		Username: a.cfg.MQTT.Username,
		Password: a.cfg.MQTT.Password,
		QoS:      byte(a.cfg.MQTT.QoS),
	})
	if err != nil {
		return fmt.Errorf("app: connect mqtt: %w", err)
	}
	a.transport = t
	a.closers = append(a.closers, func() error { t.Close(); return nil })
	return nil
}

func (a *App) newRouter() *asr.Router {
	dispatcher := asr.NewDispatcher(a.providers.STT,
		asr.WithEngineName(a.providers.STTName),
		asr.WithDispatcherMetrics(a.metrics),
	)
	opts := []asr.Option{
		asr.WithSiteIDs(a.cfg.MQTT.SiteIDs...),
		asr.WithSilenceSettings(a.cfg.Silence),
		asr.WithTraining(asr.NewTrainingCoordinator(a.cfg.Training.Settings(), a.providers.Trainer, a.metrics)),
		asr.WithMetrics(a.metrics),
	}
	if a.providers.G2P != nil {
		opts = append(opts, asr.WithPronouncer(asr.NewPronouncer(a.providers.G2P, a.cfg.G2P.DefaultNumGuesses, a.metrics)))
	}
	return asr.NewRouter(dispatcher, opts...)
}

func (a *App) newHandler() http.Handler {
	checkers := []health.Checker{health.ConnectedChecker("mqtt", a.transport.Connected)}
	if a.pinger != nil {
		checkers = append(checkers, health.PingChecker("journal", a.pinger))
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	if a.cfg.Server.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.Handle("GET "+bridge.EventsPath, a.hub)
	if a.journal != nil {
		mux.Handle("GET "+journal.RecentPath, journal.NewHandler(a.journal))
	}
	return observe.Middleware(a.metrics)(mux)
}

// Handler returns the HTTP handler serving health, metrics, the event stream
// and, with a journal, recent transcripts.
func (a *App) Handler() http.Handler { return a.handler }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the Hermes bus and, when a listen address is configured, the
// HTTP endpoints. It blocks until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.bridge.Run(gctx); err != nil {
			return fmt.Errorf("app: bridge: %w", err)
		}
		return nil
	})

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.handler,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.hub.Close()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), httpStopTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	return g.Wait()
}

// ApplyConfig applies the live-reloadable parts of next and logs the
// sections that only take effect after a restart.
func (a *App) ApplyConfig(prev, next *config.Config) {
	d := config.Diff(prev, next)
	if d.LogLevelChanged {
		a.level.Set(SlogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.SiteIDsChanged {
		a.router.SetSiteIDs(d.NewSiteIDs)
		slog.Info("site ids changed", "site_ids", d.NewSiteIDs)
	}
	if d.SilenceChanged {
		a.router.SetSilenceSettings(next.Silence)
		slog.Info("silence settings changed; applies to new sessions")
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", d.RestartRequired)
	}
}

// SlogLevel maps a config log level to its slog equivalent.
func SlogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown drains the bridge and then releases subsystems in reverse-init
// order. It respects the context deadline: if ctx expires first, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		drained := make(chan struct{})
		go func() {
			a.bridge.Close()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			slog.Warn("shutdown deadline exceeded while draining sessions")
			shutdownErr = ctx.Err()
			return
		}

		for i, closer := range slices.Backward(a.closers) {
			if err := ctx.Err(); err != nil {
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = err
				return
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

func (a *App) runClosers() {
	for _, closer := range slices.Backward(a.closers) {
		if err := closer(); err != nil {
			slog.Warn("closer error", "err", err)
		}
	}
}
