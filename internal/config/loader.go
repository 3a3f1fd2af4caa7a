package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/hermes-asr/internal/asr"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":     {"whisper", "whisper-native", "openai"},
	"g2p":     {"phonetisaurus", "metaphone"},
	"trainer": {"command"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if r := cfg.Server.TraceSampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("server.trace_sample_ratio %v must be between 0 and 1", r))
	}

	// MQTT
	if cfg.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required"))
	}
	if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d is out of range [0, 2]", cfg.MQTT.QoS))
	}
	for i, id := range cfg.MQTT.SiteIDs {
		if id == "" {
			errs = append(errs, fmt.Errorf("mqtt.site_ids[%d] is empty", i))
		}
	}

	// Providers
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	for i, fb := range cfg.Providers.FallbackSTT {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.fallback_stt[%d].name is required", i))
		}
		validateProviderName("stt", fb.Name)
	}
	validateProviderName("g2p", cfg.Providers.G2P.Name)
	validateProviderName("trainer", cfg.Providers.Trainer.Name)

	// Silence
	if err := cfg.Silence.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("silence: %w", err))
	}

	// Training
	t := cfg.Training
	switch t.OnConflict {
	case "", asr.ConflictReuse, asr.ConflictFail:
	default:
		errs = append(errs, fmt.Errorf("training.on_conflict %q is invalid; valid values: reuse, fail", t.OnConflict))
	}
	if cfg.Providers.Trainer.Name != "" && (t.ModelDir == "" || t.GraphDir == "") {
		errs = append(errs, errors.New("training.model_dir and training.graph_dir are required when providers.trainer is configured"))
	}
	if t.NoOverwrite && t.Artifact == "" {
		slog.Warn("training.no_overwrite has no effect without training.artifact")
	}

	// G2P
	if cfg.G2P.DefaultNumGuesses < 0 {
		errs = append(errs, fmt.Errorf("g2p.default_num_guesses %d must not be negative", cfg.G2P.DefaultNumGuesses))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
