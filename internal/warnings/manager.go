package warnings

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsforge/relay/internal/logadapter"
	"github.com/tsforge/relay/internal/queue"
	"github.com/tsforge/relay/pkg/models"
)

// DefaultMeasurement is the measurement key warnings are recorded under.
const DefaultMeasurement = "alerts"

// Sender receives warning measurements. *influx.Writer satisfies it.
type Sender interface {
	Send(m *models.Measurement) error
}

// Publisher receives rendered warning lines. A nil publisher disables
// broadcasting.
type Publisher interface {
	Publish(payload []byte) error
}

type Config struct {
	// Measurement is the measurement key, DefaultMeasurement when empty.
	Measurement string
	// HistorySize bounds the retained history, DefaultHistorySize when
	// zero.
	HistorySize int
}

type event struct {
	rec       Record
	terminate bool
}

// Manager runs a background goroutine that drains submitted warnings,
// records them in the history, forwards them to the sender, and
// publishes rendered lines. Submission never blocks on the consumer.
type Manager struct {
	cfg     Config
	queue   *queue.Queue[event]
	history *History
	sender  Sender
	pub     Publisher
	logger  zerolog.Logger
	done    chan struct{}

	terminated atomic.Bool
	received   atomic.Int64
	forwarded  atomic.Int64
	published  atomic.Int64
	errors     atomic.Int64
}

// NewManager starts the drain goroutine. pub may be nil.
func NewManager(cfg Config, sender Sender, pub Publisher, logger zerolog.Logger) *Manager {
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultMeasurement
	}
	m := &Manager{
		cfg:     cfg,
		queue:   queue.New[event](),
		history: NewHistory(cfg.HistorySize),
		sender:  sender,
		pub:     pub,
		logger:  logger.With().Str("component", "warnings").Logger(),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Submit enqueues a warning. It returns queue.ErrClosed after Close.
func (m *Manager) Submit(cat Category, msg string) error {
	return m.push(Record{Time: time.Now(), Category: cat, Message: msg})
}

func (m *Manager) Notice(format string, args ...interface{}) error {
	return m.Submit(Notice, fmt.Sprintf(format, args...))
}

func (m *Manager) Error(format string, args ...interface{}) error {
	return m.Submit(Error, fmt.Sprintf(format, args...))
}

func (m *Manager) Degraded(format string, args ...interface{}) error {
	return m.Submit(DegradedService, fmt.Sprintf(format, args...))
}

func (m *Manager) Critical(format string, args ...interface{}) error {
	return m.Submit(Critical, fmt.Sprintf(format, args...))
}

func (m *Manager) Confirmed(format string, args ...interface{}) error {
	return m.Submit(Confirmed, fmt.Sprintf(format, args...))
}

func (m *Manager) Awesome(format string, args ...interface{}) error {
	return m.Submit(Awesome, fmt.Sprintf(format, args...))
}

// Log forwards a structured log record to the database without adding
// it to the history. level is a short level code such as "WRN".
func (m *Manager) Log(level, msg string, kv *logadapter.Record) error {
	return m.push(Record{
		Time:     time.Now(),
		Category: Log,
		Level:    level,
		Message:  msg,
		KV:       kv,
	})
}

func (m *Manager) push(rec Record) error {
	if err := m.queue.Push(event{rec: rec}); err != nil {
		return err
	}
	m.received.Add(1)
	return nil
}

// Recent returns up to limit retained warnings, newest first.
func (m *Manager) Recent(limit int) []Record {
	return m.history.Recent(limit, nil, 0)
}

// Close drains pending warnings and stops the goroutine. Safe to call
// more than once.
func (m *Manager) Close() error {
	if !m.terminated.CompareAndSwap(false, true) {
		return nil
	}
	if err := m.queue.Push(event{terminate: true}); err != nil {
		return err
	}
	m.queue.Close()
	<-m.done
	return nil
}

func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"received":  m.received.Load(),
		"forwarded": m.forwarded.Load(),
		"published": m.published.Load(),
		"errors":    m.errors.Load(),
		"retained":  m.history.Count(),
	}
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		ev, ok := m.queue.Pop()
		if !ok {
			return
		}
		if ev.terminate {
			m.logger.Debug().Msg("Warnings manager terminating")
			return
		}
		m.handle(ev.rec)
	}
}

func (m *Manager) handle(rec Record) {
	if rec.Category != Log {
		m.history.Add(rec)
	}

	if err := m.sender.Send(rec.Measurement(m.cfg.Measurement)); err != nil {
		m.errors.Add(1)
		m.logger.Error().Err(err).
			Str("category", rec.Category.Short()).
			Msg("Failed to forward warning")
	} else {
		m.forwarded.Add(1)
	}

	if m.pub != nil && rec.Category != Log {
		if err := m.pub.Publish([]byte(rec.String())); err != nil {
			m.errors.Add(1)
			m.logger.Warn().Err(err).Msg("Failed to publish warning")
		} else {
			m.published.Add(1)
		}
	}
}
