// Package influx provides the asynchronous batching writer that forwards
// measurements to an InfluxDB-compatible endpoint.
//
// A Writer owns one background goroutine fed by an unbounded queue.
// Producers call Send, which never blocks; the goroutine drains the
// queue, encodes each measurement into a reusable line-protocol buffer,
// and flushes over HTTP when the batch reaches its size bound or its age
// bound. Failed batches are logged and dropped — durability, if needed,
// is the caller's layer.
//
// Because the queue is unbounded, a stalled remote grows queued
// measurements in process memory without limit. That trade is deliberate:
// producers must never stall on telemetry.
package influx

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsforge/relay/internal/lineprotocol"
	"github.com/tsforge/relay/internal/queue"
	"github.com/tsforge/relay/pkg/models"
)

// TerminationMarker is the key of the synthetic measurement appended to a
// non-empty buffer during shutdown to force the final flush.
const TerminationMarker = "wtrterm"

const (
	// DefaultMaxBufferSize is the flush threshold in measurements. A full
	// batch carries one extra line: the measurement that crosses the
	// threshold is appended before the flush fires.
	DefaultMaxBufferSize = 4096

	// DefaultMaxPending bounds how long a non-empty buffer may age before
	// the next arrival forces a flush.
	DefaultMaxPending = time.Second
)

// ErrClosed is returned by Send after the writer has shut down.
var ErrClosed = errors.New("influx: writer closed")

// Config holds the writer settings.
type Config struct {
	Host     string // database host, no scheme or port
	Port     int    // default 8086
	Database string

	MaxBufferSize int           // measurements per batch before flush (default 4096)
	MaxPending    time.Duration // max buffer age before flush (default 1s)
	Timeout       time.Duration // HTTP request timeout (default 10s)
	Gzip          bool          // gzip-compress request bodies
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = 8086
	}
	if c.MaxBufferSize <= 0 {
		c.MaxBufferSize = DefaultMaxBufferSize
	}
	if c.MaxPending <= 0 {
		c.MaxPending = DefaultMaxPending
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// message is what travels on the queue: a measurement, or the terminate
// signal. The terminate message is pushed at most once per writer.
type message struct {
	meas      *models.Measurement
	terminate bool
}

// Writer is a shareable handle on the batching writer. Clone returns a
// new handle on the same goroutine; the goroutine shuts down when the
// last handle is closed. Every handle must be closed.
type Writer struct {
	core   *core
	closed atomic.Bool
}

// core is the state shared by all handles of one writer.
type core struct {
	cfg       Config
	transport Transport
	queue     *queue.Queue[message]
	done      chan struct{}
	logger    zerolog.Logger

	refs       atomic.Int64
	terminated atomic.Bool

	// Statistics, lock-free.
	enqueued       atomic.Int64
	processed      atomic.Int64
	flushes        atomic.Int64
	linesWritten   atomic.Int64
	droppedBatches atomic.Int64
	errors         atomic.Int64
}

// NewWriter starts the background goroutine and returns the first handle.
func NewWriter(cfg Config, logger zerolog.Logger) *Writer {
	cfg = cfg.withDefaults()
	return newWriter(cfg, NewHTTPTransport(cfg), logger)
}

func newWriter(cfg Config, transport Transport, logger zerolog.Logger) *Writer {
	c := &core{
		cfg:       cfg,
		transport: transport,
		queue:     queue.New[message](),
		done:      make(chan struct{}),
		logger: logger.With().
			Str("component", "influx-writer").
			Str("db", cfg.Database).
			Logger(),
	}
	c.refs.Store(1)

	go c.run()

	c.logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("max_buffer_size", cfg.MaxBufferSize).
		Dur("max_pending", cfg.MaxPending).
		Bool("gzip", cfg.Gzip).
		Msg("Influx writer started")

	return &Writer{core: c}
}

// Send enqueues m for asynchronous delivery. It never blocks. The writer
// takes ownership of m; the caller must not mutate it afterwards. The
// only failure is ErrClosed once the writer has shut down — delivery
// itself is fire-and-forget and failed batches are invisible to senders.
func (w *Writer) Send(m *models.Measurement) error {
	if err := w.core.queue.Push(message{meas: m}); err != nil {
		return ErrClosed
	}
	w.core.enqueued.Add(1)
	return nil
}

// Clone returns a new handle sharing this writer's goroutine and queue.
func (w *Writer) Clone() *Writer {
	w.core.refs.Add(1)
	return &Writer{core: w.core}
}

// Close releases this handle. Closing the last handle sends the shutdown
// signal and blocks until the goroutine has flushed pending lines and
// exited. Closing a non-last handle returns immediately. Close is
// idempotent per handle.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}

	if w.core.refs.Add(-1) > 0 {
		return nil
	}

	// Last handle: exactly one terminate may ever be delivered.
	if !w.core.terminated.CompareAndSwap(false, true) {
		w.core.logger.Error().Msg("writer terminated twice; refcount accounting is broken")
		return nil
	}

	_ = w.core.queue.Push(message{terminate: true})
	w.core.queue.Close()
	<-w.core.done
	return nil
}

// Stats returns a snapshot of writer counters.
func (w *Writer) Stats() map[string]interface{} {
	c := w.core
	return map[string]interface{}{
		"enqueued":        c.enqueued.Load(),
		"processed":       c.processed.Load(),
		"flushes":         c.flushes.Load(),
		"lines_written":   c.linesWritten.Load(),
		"dropped_batches": c.droppedBatches.Load(),
		"errors":          c.errors.Load(),
		"queue_depth":     c.queue.Len(),
	}
}

// run is the consumer loop. It is the only goroutine that touches the
// encode buffer, so the buffer needs no locking and is reused (cleared,
// not reallocated) across flush cycles for the writer's lifetime.
func (c *core) run() {
	defer close(c.done)

	buf := make([]byte, 0, 32*1024)
	pending := 0
	lastFlush := time.Now()

	// next applies the flush transition for one prepared measurement.
	// The measurement is always appended first, so the item that crosses
	// a threshold rides in the batch it triggers — a full batch holds
	// MaxBufferSize+1 lines. force skips the accumulate branches; the
	// shutdown path uses it to push the termination marker through the
	// ordinary rule with the threshold treated as crossed.
	next := func(m *models.Measurement, loopTime time.Time, force bool) {
		switch {
		case pending == 0 && !force:
			// First item of a batch never flushes, even when MaxPending
			// has already elapsed.
			buf = lineprotocol.AppendMeasurement(buf, m)
			pending = 1

		case !force && pending < c.cfg.MaxBufferSize && loopTime.Sub(lastFlush) < c.cfg.MaxPending:
			buf = append(buf, '\n')
			buf = lineprotocol.AppendMeasurement(buf, m)
			pending++

		default:
			if len(buf) > 0 {
				buf = append(buf, '\n')
			}
			buf = lineprotocol.AppendMeasurement(buf, m)
			c.flush(buf, pending+1)
			lastFlush = loopTime
			buf = buf[:0]
			pending = 0
		}
	}

	for {
		msg, ok := c.queue.Pop()
		loopTime := time.Now()

		if !ok {
			// Queue closed without a terminate message. Should not happen
			// — Close pushes terminate before closing — but don't strand
			// buffered lines over it.
			c.logger.Warn().Int("pending", pending).Msg("queue closed without terminate signal")
			if len(buf) > 0 {
				c.flush(buf, pending)
			}
			return
		}

		if msg.terminate {
			c.logger.Warn().Int("pending", pending).Msg("Terminate signal received")
			if len(buf) > 0 {
				marker := models.New(TerminationMarker).
					AddField("n", models.Integer(1))
				c.prepare(marker, loopTime)
				next(marker, loopTime, true)
				if len(buf) > 0 {
					c.logger.Warn().
						Int("pending", pending).
						Int("buf_len", len(buf)).
						Msg("buffer still non-empty after termination marker; flushing directly")
					c.flush(buf, pending)
				}
			}
			c.logger.Info().Msg("Influx writer loop exiting")
			return
		}

		c.prepare(msg.meas, loopTime)
		next(msg.meas, loopTime, false)
		c.processed.Add(1)
	}
}

// prepare applies the writer-side invariants before encoding: a missing
// timestamp is stamped with the dequeue-time clock, and an empty field
// set gains the default n=1i field the wire format requires.
func (c *core) prepare(m *models.Measurement, loopTime time.Time) {
	if _, ok := m.Timestamp(); !ok {
		m.SetTimestamp(loopTime.UnixNano())
	}
	if len(m.Fields) == 0 {
		m.AddField("n", models.Integer(1))
	}
}

// flush posts the buffer. On any failure the batch is dropped: logged
// here, invisible to producers, never retried.
func (c *core) flush(body []byte, lines int) {
	c.flushes.Add(1)
	c.logger.Debug().Int("lines", lines).Int("bytes", len(body)).Msg("Sending buffer to influx")

	if err := c.transport.Post(body); err != nil {
		c.errors.Add(1)
		c.droppedBatches.Add(1)

		var se *ServerError
		if errors.As(err, &se) {
			c.logger.Error().
				Int("status", se.StatusCode).
				Str("body", se.Body).
				Int("lines_dropped", lines).
				Msg("Influx server rejected batch; batch dropped")
		} else {
			c.logger.Error().
				Err(err).
				Int("lines_dropped", lines).
				Msg("Influx request failed; batch dropped")
		}
		return
	}

	c.linesWritten.Add(int64(lines))
}
