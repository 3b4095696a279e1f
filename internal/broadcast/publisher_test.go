package broadcast

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPublisherDefaults(t *testing.T) {
	p := NewPublisher(Config{Broker: "tcp://localhost:1883"}, zerolog.Nop())

	assert.Equal(t, DefaultTopic, p.cfg.Topic)
	assert.Equal(t, defaultWindow, p.cfg.ConnectTimeout)
}

func TestPublishBeforeStartFails(t *testing.T) {
	p := NewPublisher(Config{Broker: "tcp://localhost:1883"}, zerolog.Nop())

	err := p.Publish([]byte("hello"))
	assert.Error(t, err)
	assert.Equal(t, int64(1), p.failed.Load())
}

func TestCloseWithoutStart(t *testing.T) {
	p := NewPublisher(Config{Broker: "tcp://localhost:1883"}, zerolog.Nop())
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

func TestStartUnreachableBroker(t *testing.T) {
	p := NewPublisher(Config{
		Broker:         "tcp://127.0.0.1:1",
		ClientID:       "relay-test",
		ConnectTimeout: 250 * time.Millisecond,
	}, zerolog.Nop())

	err := p.Start()
	assert.Error(t, err)

	stats := p.Stats()
	assert.Equal(t, false, stats["running"])
}
