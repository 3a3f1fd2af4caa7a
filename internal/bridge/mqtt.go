package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Compile-time interface assertion.
var _ Transport = (*MQTT)(nil)

// disconnectQuiesce is how long Close waits for in-flight work, in
// milliseconds.
const disconnectQuiesce = 250

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker string

	// ClientID identifies the bridge to the broker. Empty means a random
	// "hermes-asr-<uuid>" id.
	ClientID string

	Username string
	Password string

	// QoS is used for both subscriptions and publishes.
	QoS byte

	// ConnectTimeout bounds each connection attempt. Zero means 10s.
	ConnectTimeout time.Duration
}

// MQTT is a [Transport] backed by an Eclipse Paho client.
type MQTT struct {
	client mqtt.Client
	qos    byte

	mu      sync.Mutex
	filters []string
	handler Handler
}

// DialMQTT connects to the broker in cfg and blocks until the connection is
// up or ctx is done. The client reconnects automatically afterwards.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, errors.New("bridge: mqtt broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hermes-asr-" + uuid.NewString()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	t := &MQTT{qos: cfg.QoS}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			slog.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
		})
	t.client = mqtt.NewClient(opts)

	if err := waitToken(ctx, t.client.Connect()); err != nil {
		return nil, fmt.Errorf("bridge: connect to %s: %w", cfg.Broker, err)
	}
	slog.Info("connected to mqtt broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return t, nil
}

// Subscribe implements [Transport].
func (t *MQTT) Subscribe(ctx context.Context, filters []string, h Handler) error {
	t.mu.Lock()
	t.filters = append([]string(nil), filters...)
	t.handler = h
	t.mu.Unlock()
	return t.subscribe(ctx)
}

func (t *MQTT) subscribe(ctx context.Context) error {
	t.mu.Lock()
	filters, h := t.filters, t.handler
	t.mu.Unlock()
	if h == nil || len(filters) == 0 {
		return nil
	}

	subs := make(map[string]byte, len(filters))
	for _, f := range filters {
		subs[f] = t.qos
	}
	tok := t.client.SubscribeMultiple(subs, func(_ mqtt.Client, m mqtt.Message) {
		h(m.Topic(), m.Payload())
	})
	if err := waitToken(ctx, tok); err != nil {
		return fmt.Errorf("bridge: subscribe: %w", err)
	}
	slog.Debug("mqtt subscribed", "filters", filters)
	return nil
}

// onConnect restores subscriptions after a reconnect. Clean sessions drop
// them broker-side.
func (t *MQTT) onConnect(mqtt.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.subscribe(ctx); err != nil {
		slog.Error("mqtt resubscribe failed", "error", err)
	}
}

// Publish implements [Transport].
func (t *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := waitToken(ctx, t.client.Publish(topic, t.qos, false, payload)); err != nil {
		return fmt.Errorf("bridge: publish %s: %w", topic, err)
	}
	return nil
}

// Connected implements [Transport].
func (t *MQTT) Connected() bool {
	return t.client.IsConnectionOpen()
}

// Close implements [Transport].
func (t *MQTT) Close() {
	t.client.Disconnect(disconnectQuiesce)
}

// waitToken blocks until tok completes or ctx is done.
func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
