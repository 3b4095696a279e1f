// Package broadcast publishes rendered warning lines to an MQTT topic
// so operators can watch them live without querying the database.
package broadcast

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	DefaultTopic  = "relay/warnings"
	defaultWindow = 5 * time.Second
)

type Config struct {
	// Broker is the MQTT broker URL, e.g. tcp://localhost:1883.
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	// ConnectTimeout bounds the initial connect, defaultWindow when zero.
	ConnectTimeout time.Duration
}

// Publisher is a fire-and-forget MQTT publisher. Publish never waits
// for broker acknowledgment.
type Publisher struct {
	cfg    Config
	client pahomqtt.Client
	logger zerolog.Logger

	mu      sync.RWMutex
	running bool

	published atomic.Int64
	failed    atomic.Int64
}

func NewPublisher(cfg Config, logger zerolog.Logger) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultWindow
	}
	return &Publisher{
		cfg:    cfg,
		logger: logger.With().Str("component", "broadcast").Logger(),
	}
}

// Start connects to the broker.
func (p *Publisher) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher already running")
	}
	p.mu.Unlock()

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.cfg.Broker)
	opts.SetClientID(p.cfg.ClientID)
	opts.SetConnectTimeout(p.cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.logger.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		p.logger.Info().Str("broker", p.cfg.Broker).Msg("Connected to MQTT broker")
	})

	p.client = pahomqtt.NewClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		return fmt.Errorf("connection timeout after %s", p.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	return nil
}

// Publish sends the payload to the configured topic without waiting
// for the broker. Delivery is best effort.
func (p *Publisher) Publish(payload []byte) error {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()
	if !running {
		p.failed.Add(1)
		return fmt.Errorf("publisher not running")
	}

	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
	// Paho buffers while reconnecting; surface only immediate errors.
	if token.Error() != nil {
		p.failed.Add(1)
		return token.Error()
	}
	p.published.Add(1)
	return nil
}

// Close disconnects from the broker. Safe to call when never started.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(1000)
	}
	p.logger.Info().Msg("Disconnected from MQTT broker")
	return nil
}

func (p *Publisher) Stats() map[string]interface{} {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	return map[string]interface{}{
		"running":   running,
		"published": p.published.Load(),
		"failed":    p.failed.Load(),
	}
}
