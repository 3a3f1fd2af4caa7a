// Command hermes-asr bridges the Hermes MQTT protocol to pluggable speech
// recognition, pronunciation and training engines.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MrWong99/hermes-asr/internal/app"
	"github.com/MrWong99/hermes-asr/internal/config"
	"github.com/MrWong99/hermes-asr/internal/observe"
	"github.com/MrWong99/hermes-asr/internal/resilience"
	"github.com/MrWong99/hermes-asr/pkg/provider/g2p"
	"github.com/MrWong99/hermes-asr/pkg/provider/g2p/metaphone"
	"github.com/MrWong99/hermes-asr/pkg/provider/g2p/phonetisaurus"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt"
	oaistt "github.com/MrWong99/hermes-asr/pkg/provider/stt/openai"
	"github.com/MrWong99/hermes-asr/pkg/provider/stt/whisper"
	"github.com/MrWong99/hermes-asr/pkg/provider/trainer"
	"github.com/MrWong99/hermes-asr/pkg/provider/trainer/command"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchInterval := flag.Duration("watch-interval", 5*time.Second, "how often the config file is checked for changes (0 disables)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hermes-asr: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hermes-asr: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	level := new(slog.LevelVar)
	level.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("hermes-asr starting",
		"version", version,
		"config", *configPath,
		"broker", cfg.MQTT.Broker,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		InstanceID:     cfg.MQTT.ClientID,
		Broker:         cfg.MQTT.Broker,
		SiteIDs:        cfg.MQTT.SiteIDs,
		Prometheus:     cfg.Server.Metrics,
		SampleRatio:    cfg.Server.TraceSampleRatio,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLevelVar(level))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Hot reload ────────────────────────────────────────────────────────────
	if *watchInterval > 0 {
		w, err := config.NewWatcher(*configPath, application.ApplyConfig, config.WithInterval(*watchInterval))
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("bridge ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// The names must match config.ValidProviderNames.
func registerBuiltinProviders(reg *config.Registry) {
	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, oaistt.WithLanguage(lang))
		}
		if secs := entry.IntOption("timeout_seconds", 0); secs > 0 {
			opts = append(opts, oaistt.WithTimeout(time.Duration(secs)*time.Second))
		}
		if n := entry.IntOption("max_retries", -1); n >= 0 {
			opts = append(opts, oaistt.WithMaxRetries(n))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	})

	// ── G2P ───────────────────────────────────────────────────────────────────

	reg.RegisterG2P("phonetisaurus", func(entry config.ProviderEntry) (g2p.Guesser, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []phonetisaurus.Option
		if bin := entry.StringOption("binary", ""); bin != "" {
			opts = append(opts, phonetisaurus.WithBinary(bin))
		}
		return phonetisaurus.New(modelPath, opts...)
	})

	reg.RegisterG2P("metaphone", func(config.ProviderEntry) (g2p.Guesser, error) {
		return metaphone.New(), nil
	})

	// ── Trainer ───────────────────────────────────────────────────────────────

	reg.RegisterTrainer("command", func(entry config.ProviderEntry) (trainer.Trainer, error) {
		var opts []command.Option
		if env := entry.StringsOption("env"); len(env) > 0 {
			opts = append(opts, command.WithEnv(env...))
		}
		return command.New(entry.StringsOption("command"), opts...)
	})

	for kind, names := range config.ValidProviderNames {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry.
// The primary and fallback transcription engines are chained behind circuit
// breakers.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}
	track := func(v any) {
		if c, ok := v.(io.Closer); ok {
			ps.Closers = append(ps.Closers, c)
		}
	}
	fail := func(err error) (*app.Providers, error) {
		for _, c := range ps.Closers {
			_ = c.Close()
		}
		return nil, err
	}

	primary, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return fail(fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err))
	}
	track(primary)
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	chain := resilience.NewTranscriberFallback(primary, cfg.Providers.STT.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, _, to resilience.State) {
				if to == resilience.StateOpen {
					slog.Warn("transcription engine failing, routing around it", "engine", name)
				}
			},
		},
	})
	for _, entry := range cfg.Providers.FallbackSTT {
		t, err := reg.CreateSTT(entry)
		if err != nil {
			return fail(fmt.Errorf("create fallback stt provider %q: %w", entry.Name, err))
		}
		track(t)
		chain.AddFallback(entry.Name, t)
		slog.Info("provider created", "kind", "fallback_stt", "name", entry.Name)
	}
	ps.STT = chain
	ps.STTName = strings.Join(chain.Names(), ">")

	if name := cfg.Providers.G2P.Name; name != "" {
		g, err := reg.CreateG2P(cfg.Providers.G2P)
		if err != nil {
			return fail(fmt.Errorf("create g2p provider %q: %w", name, err))
		}
		ps.G2P = g
		slog.Info("provider created", "kind", "g2p", "name", name)
	}

	if name := cfg.Providers.Trainer.Name; name != "" {
		t, err := reg.CreateTrainer(cfg.Providers.Trainer)
		if err != nil {
			return fail(fmt.Errorf("create trainer provider %q: %w", name, err))
		}
		ps.Trainer = t
		slog.Info("provider created", "kind", "trainer", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      hermes-asr: startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Broker", cfg.MQTT.Broker)
	sites := strings.Join(cfg.MQTT.SiteIDs, ",")
	if sites == "" {
		sites = "(all)"
	}
	printRow("Sites", sites)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	for _, fb := range cfg.Providers.FallbackSTT {
		printProvider("STT fallback", fb.Name, fb.Model)
	}
	printProvider("G2P", cfg.Providers.G2P.Name, cfg.Providers.G2P.Model)
	printProvider("Trainer", cfg.Providers.Trainer.Name, "")
	if cfg.Journal.PostgresDSN != "" {
		printRow("Journal", "postgres")
	} else {
		printRow("Journal", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printRow(kind, value)
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}
