// Package shutdown coordinates orderly teardown of the relay's
// components on SIGINT/SIGTERM.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Closer is a component that can be shut down.
type Closer interface {
	Close() error
}

// Shutdown order: producers stop before the writer so the final flush
// sees everything, the broadcast link goes last.
const (
	PriorityStats     = 10 // Stop the runtime stats emitter first
	PriorityWarnings  = 20 // Drain pending warnings
	PriorityWriter    = 30 // Final flush to the database
	PriorityBroadcast = 40 // Drop the MQTT link last
)

type entry struct {
	name     string
	closer   Closer
	priority int
}

// Coordinator closes registered components in priority order, lowest
// first, under a global timeout.
type Coordinator struct {
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	entries []entry

	once      sync.Once
	triggered sync.Once
	quit      chan struct{}
}

func New(timeout time.Duration, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		timeout: timeout,
		logger:  logger.With().Str("component", "shutdown").Logger(),
		quit:    make(chan struct{}),
	}
}

func (c *Coordinator) Register(name string, closer Closer, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry{name: name, closer: closer, priority: priority})
}

// WaitForSignal blocks until SIGINT, SIGTERM, or a programmatic
// trigger.
func (c *Coordinator) WaitForSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		return sig
	case <-c.quit:
		return syscall.SIGTERM
	}
}

// Trigger initiates shutdown programmatically. Safe to call from any
// goroutine, any number of times.
func (c *Coordinator) Trigger() {
	c.triggered.Do(func() { close(c.quit) })
}

// Shutdown closes all registered components. The first error is
// returned; later components are still closed unless the timeout
// expires.
func (c *Coordinator) Shutdown() error {
	var firstErr error

	c.once.Do(func() {
		c.triggered.Do(func() { close(c.quit) })

		c.mu.Lock()
		entries := make([]entry, len(c.entries))
		copy(entries, c.entries)
		c.mu.Unlock()

		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].priority < entries[j].priority
		})

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		start := time.Now()
		c.logger.Info().
			Int("components", len(entries)).
			Dur("timeout", c.timeout).
			Msg("Starting graceful shutdown")

		for _, e := range entries {
			select {
			case <-ctx.Done():
				c.logger.Warn().
					Str("component", e.name).
					Msg("Shutdown timeout reached, skipping remaining components")
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				return
			default:
			}

			if err := e.closer.Close(); err != nil {
				c.logger.Error().Err(err).
					Str("component", e.name).
					Msg("Component shutdown failed")
				if firstErr == nil {
					firstErr = err
				}
			} else {
				c.logger.Debug().
					Str("component", e.name).
					Msg("Component shutdown complete")
			}
		}

		c.logger.Info().
			Dur("duration", time.Since(start)).
			Msg("Graceful shutdown complete")
	})

	return firstErr
}
