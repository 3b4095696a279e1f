package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsforge/relay/pkg/models"
)

type captureSender struct {
	mu   sync.Mutex
	sent []*models.Measurement
}

func (c *captureSender) Send(m *models.Measurement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *captureSender) all() []*models.Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.Measurement, len(c.sent))
	copy(out, c.sent)
	return out
}

func TestCollectorSamplesRuntime(t *testing.T) {
	sender := &captureSender{}
	c := New(Config{Interval: 20 * time.Millisecond}, sender, zerolog.Nop())
	c.Start()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(sender.all()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, c.Close())

	sent := sender.all()
	require.NotEmpty(t, sent)

	m := sent[0]
	assert.Equal(t, DefaultMeasurement, m.Key)

	instance, ok := m.GetTag("instance")
	require.True(t, ok)
	assert.Equal(t, c.InstanceID(), instance)

	goroutines, ok := m.GetField("goroutines")
	require.True(t, ok)
	assert.Greater(t, goroutines.Int(), int64(0))

	_, ok = m.GetField("heap_alloc")
	assert.True(t, ok)
}

func TestCollectorFinalSampleOnClose(t *testing.T) {
	sender := &captureSender{}
	c := New(Config{Interval: time.Hour}, sender, zerolog.Nop())
	c.Start()
	require.NoError(t, c.Close())

	assert.Len(t, sender.all(), 1, "one final sample is sent on close")
}

func TestCollectorMergesSources(t *testing.T) {
	sender := &captureSender{}
	c := New(Config{Interval: time.Hour, Measurement: "custom"}, sender, zerolog.Nop())
	c.AddSource("writer", func() map[string]interface{} {
		return map[string]interface{}{
			"flushes": int64(3),
			"rate":    1.5,
			"label":   "ignored",
		}
	})
	c.Start()
	require.NoError(t, c.Close())

	sent := sender.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "custom", sent[0].Key)

	flushes, ok := sent[0].GetField("writer_flushes")
	require.True(t, ok)
	assert.Equal(t, int64(3), flushes.Int())

	rate, ok := sent[0].GetField("writer_rate")
	require.True(t, ok)
	assert.Equal(t, 1.5, rate.Flt())

	_, ok = sent[0].GetField("writer_label")
	assert.False(t, ok, "non-numeric source values are dropped")
}
