// Package telemetry periodically samples Go runtime statistics and
// forwards them to the influx writer, tagged with a per-process
// instance id.
package telemetry

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tsforge/relay/pkg/models"
)

const (
	DefaultMeasurement = "relay_stats"
	DefaultInterval    = 10 * time.Second
)

// Sender receives stats measurements. *influx.Writer satisfies it.
type Sender interface {
	Send(m *models.Measurement) error
}

// StatsSource contributes extra fields to each sample. The writer's
// Stats map is the usual source.
type StatsSource func() map[string]interface{}

type Config struct {
	Measurement string
	Interval    time.Duration
}

// Collector samples the runtime on a ticker and sends one measurement
// per sample.
type Collector struct {
	cfg        Config
	sender     Sender
	sources    map[string]StatsSource
	instanceID string
	startTime  time.Time
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastNumGC      uint32
	lastPauseTotal uint64
}

func New(cfg Config, sender Sender, logger zerolog.Logger) *Collector {
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultMeasurement
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		cfg:        cfg,
		sender:     sender,
		sources:    make(map[string]StatsSource),
		instanceID: uuid.NewString(),
		startTime:  time.Now(),
		logger:     logger.With().Str("component", "telemetry").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddSource registers a named stats source. Its numeric values are
// added as fields prefixed with the source name. Must be called before
// Start.
func (c *Collector) AddSource(name string, src StatsSource) {
	c.sources[name] = src
}

// InstanceID returns the per-process id tagged on every sample.
func (c *Collector) InstanceID() string {
	return c.instanceID
}

// Start begins periodic sampling.
func (c *Collector) Start() {
	c.logger.Info().
		Str("instance_id", c.instanceID).
		Dur("interval", c.cfg.Interval).
		Msg("Runtime stats collector started")

	c.wg.Add(1)
	go c.run()
}

// Close stops sampling after sending one final sample.
func (c *Collector) Close() error {
	c.cancel()
	c.wg.Wait()
	c.logger.Info().Msg("Runtime stats collector stopped")
	return nil
}

func (c *Collector) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sample()
		case <-c.ctx.Done():
			c.sample()
			return
		}
	}
}

func (c *Collector) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := models.New(c.cfg.Measurement).
		AddTag("instance", c.instanceID).
		AddField("goroutines", models.Integer(int64(runtime.NumGoroutine()))).
		AddField("heap_alloc", models.Integer(int64(ms.HeapAlloc))).
		AddField("heap_objects", models.Integer(int64(ms.HeapObjects))).
		AddField("stack_inuse", models.Integer(int64(ms.StackInuse))).
		AddField("num_gc", models.Integer(int64(ms.NumGC - c.lastNumGC))).
		AddField("gc_pause_ns", models.Integer(int64(ms.PauseTotalNs - c.lastPauseTotal))).
		AddField("uptime_s", models.Float(time.Since(c.startTime).Seconds()))

	c.lastNumGC = ms.NumGC
	c.lastPauseTotal = ms.PauseTotalNs

	for name, src := range c.sources {
		for key, val := range src() {
			field := name + "_" + key
			switch v := val.(type) {
			case int64:
				m.AddField(field, models.Integer(v))
			case int:
				m.AddField(field, models.Integer(int64(v)))
			case float64:
				m.AddField(field, models.Float(v))
			case bool:
				m.AddField(field, models.Boolean(v))
			}
		}
	}

	if err := c.sender.Send(m); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send runtime stats")
	}
}
