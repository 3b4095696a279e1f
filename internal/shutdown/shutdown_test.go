package shutdown

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedCloser struct {
	name  string
	order *[]string
	mu    *sync.Mutex
	err   error
	delay time.Duration
}

func (o *orderedCloser) Close() error {
	if o.delay > 0 {
		time.Sleep(o.delay)
	}
	o.mu.Lock()
	*o.order = append(*o.order, o.name)
	o.mu.Unlock()
	return o.err
}

func TestShutdownOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	c := New(time.Second, zerolog.Nop())

	c.Register("broadcast", &orderedCloser{name: "broadcast", order: &order, mu: &mu}, PriorityBroadcast)
	c.Register("stats", &orderedCloser{name: "stats", order: &order, mu: &mu}, PriorityStats)
	c.Register("writer", &orderedCloser{name: "writer", order: &order, mu: &mu}, PriorityWriter)
	c.Register("warnings", &orderedCloser{name: "warnings", order: &order, mu: &mu}, PriorityWarnings)

	require.NoError(t, c.Shutdown())
	assert.Equal(t, []string{"stats", "warnings", "writer", "broadcast"}, order)
}

func TestShutdownContinuesPastErrors(t *testing.T) {
	var order []string
	var mu sync.Mutex
	c := New(time.Second, zerolog.Nop())

	failure := errors.New("flush failed")
	c.Register("first", &orderedCloser{name: "first", order: &order, mu: &mu, err: failure}, 1)
	c.Register("second", &orderedCloser{name: "second", order: &order, mu: &mu}, 2)

	err := c.Shutdown()
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, []string{"first", "second"}, order, "later components still close")
}

func TestShutdownTimeout(t *testing.T) {
	var order []string
	var mu sync.Mutex
	c := New(50*time.Millisecond, zerolog.Nop())

	c.Register("slow", &orderedCloser{name: "slow", order: &order, mu: &mu, delay: 100 * time.Millisecond}, 1)
	c.Register("skipped", &orderedCloser{name: "skipped", order: &order, mu: &mu}, 2)

	err := c.Shutdown()
	assert.Error(t, err)
	assert.Equal(t, []string{"slow"}, order, "components after the deadline are skipped")
}

func TestShutdownIdempotent(t *testing.T) {
	var order []string
	var mu sync.Mutex
	c := New(time.Second, zerolog.Nop())
	c.Register("once", &orderedCloser{name: "once", order: &order, mu: &mu}, 1)

	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Shutdown())
	assert.Len(t, order, 1)
}

func TestTriggerUnblocksWait(t *testing.T) {
	c := New(time.Second, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		c.WaitForSignal()
		close(done)
	}()

	c.Trigger()
	c.Trigger()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForSignal did not return after Trigger")
	}
}
