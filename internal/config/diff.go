package config

import (
	"fmt"
	"slices"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	SiteIDsChanged bool
	NewSiteIDs     []string

	// SilenceChanged applies to sessions started after the reload.
	SilenceChanged bool

	// RestartRequired lists changed sections that only take effect after a
	// restart (broker, providers, training, journal, listener, telemetry).
	RestartRequired []string
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.MQTT.SiteIDs, new.MQTT.SiteIDs) {
		d.SiteIDsChanged = true
		d.NewSiteIDs = slices.Clone(new.MQTT.SiteIDs)
	}

	if old.Silence != new.Silence {
		d.SilenceChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Server.Metrics != new.Server.Metrics || old.Server.TraceSampleRatio != new.Server.TraceSampleRatio {
		d.RestartRequired = append(d.RestartRequired, "server.telemetry")
	}
	if !mqttEqual(old.MQTT, new.MQTT) {
		d.RestartRequired = append(d.RestartRequired, "mqtt")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Training != new.Training {
		d.RestartRequired = append(d.RestartRequired, "training")
	}
	if old.G2P != new.G2P {
		d.RestartRequired = append(d.RestartRequired, "g2p")
	}
	if old.Journal != new.Journal {
		d.RestartRequired = append(d.RestartRequired, "journal")
	}

	return d
}

// mqttEqual compares the connection settings; site ids reload live.
func mqttEqual(a, b MQTTConfig) bool {
	return a.Broker == b.Broker &&
		a.ClientID == b.ClientID &&
		a.Username == b.Username &&
		a.Password == b.Password &&
		a.QoS == b.QoS
}

func providersEqual(a, b ProvidersConfig) bool {
	return entryEqual(a.STT, b.STT) &&
		slices.EqualFunc(a.FallbackSTT, b.FallbackSTT, entryEqual) &&
		entryEqual(a.G2P, b.G2P) &&
		entryEqual(a.Trainer, b.Trainer)
}

// entryEqual compares the scalar fields and the option key sets. Option
// values are compared by their printed form.
func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, av := range a.Options {
		bv, ok := b.Options[k]
		if !ok || fmt.Sprint(av) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}
