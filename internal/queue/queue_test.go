package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		require.NoError(t, q.Push(i))
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueuePushAfterClose(t *testing.T) {
	q := New[int]()
	require.NoError(t, q.Push(1))
	q.Close()
	q.Close() // idempotent

	assert.ErrorIs(t, q.Push(2), ErrClosed)

	// Items pushed before Close still drain.
	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := New[string]()
	done := make(chan string)

	go func() {
		v, _ := q.Pop()
		done <- v
	}()

	require.NoError(t, q.Push("hello"))
	assert.Equal(t, "hello", <-done)
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 1000

	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				assert.NoError(t, q.Push(p*perProducer+i))
			}
		}(p)
	}

	seen := make(map[int]bool, producers*perProducer)
	lastPerProducer := make(map[int]int)
	for i := 0; i < producers*perProducer; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		require.False(t, seen[v], "duplicate delivery of %d", v)
		seen[v] = true

		// Per-producer order must be preserved even when producers
		// interleave.
		p := v / perProducer
		if last, ok := lastPerProducer[p]; ok {
			require.Greater(t, v, last)
		}
		lastPerProducer[p] = v
	}
	wg.Wait()

	assert.Equal(t, 0, q.Len())
}

func TestQueueUnboundedGrowth(t *testing.T) {
	// No consumer: pushes must keep succeeding. Unbounded memory under a
	// stalled consumer is an accepted trade, not a failure mode.
	q := New[int]()
	const n = 200_000
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(i))
	}
	assert.Equal(t, n, q.Len())
}

func TestQueueCompactionKeepsOrder(t *testing.T) {
	q := New[int]()
	next := 0
	popped := 0
	// Interleave pushes and pops so the head index crosses the
	// compaction threshold repeatedly.
	for round := 0; round < 50; round++ {
		for i := 0; i < 40; i++ {
			require.NoError(t, q.Push(next))
			next++
		}
		for i := 0; i < 30; i++ {
			v, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, popped, v)
			popped++
		}
	}
	for q.Len() > 0 {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, popped, v)
		popped++
	}
	assert.Equal(t, next, popped)
}
