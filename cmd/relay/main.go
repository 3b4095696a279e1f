package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tsforge/relay/internal/broadcast"
	"github.com/tsforge/relay/internal/config"
	"github.com/tsforge/relay/internal/influx"
	"github.com/tsforge/relay/internal/logger"
	"github.com/tsforge/relay/internal/shutdown"
	"github.com/tsforge/relay/internal/telemetry"
	"github.com/tsforge/relay/internal/warnings"
)

// Version is set at build time
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("version", Version).Msg("Starting relay...")

	coordinator := shutdown.New(30*time.Second, logger.Get("shutdown"))

	// Influx writer
	writer := influx.NewWriter(influx.Config{
		Host:          cfg.Influx.Host,
		Port:          cfg.Influx.Port,
		Database:      cfg.Influx.Database,
		MaxBufferSize: cfg.Influx.MaxBufferSize,
		MaxPending:    cfg.Influx.MaxPending(),
		Timeout:       cfg.Influx.Timeout(),
		Gzip:          cfg.Influx.Gzip,
	}, logger.Get("influx"))
	coordinator.Register("influx-writer", writer, shutdown.PriorityWriter)
	log.Info().
		Str("host", cfg.Influx.Host).
		Int("port", cfg.Influx.Port).
		Str("database", cfg.Influx.Database).
		Msg("Influx writer started")

	// Optional MQTT broadcast
	var pub warnings.Publisher
	if cfg.Broadcast.Enabled {
		p := broadcast.NewPublisher(broadcast.Config{
			Broker:   cfg.Broadcast.Broker,
			Topic:    cfg.Broadcast.Topic,
			ClientID: cfg.Broadcast.ClientID,
			Username: cfg.Broadcast.Username,
			Password: cfg.Broadcast.Password,
			QoS:      byte(cfg.Broadcast.QoS),
		}, logger.Get("broadcast"))
		if err := p.Start(); err != nil {
			log.Error().Err(err).Msg("Broadcast publisher unavailable, continuing without it")
		} else {
			pub = p
			coordinator.Register("broadcast", p, shutdown.PriorityBroadcast)
		}
	}

	// Warnings manager
	mgr := warnings.NewManager(warnings.Config{
		Measurement: cfg.Warnings.Measurement,
		HistorySize: cfg.Warnings.HistorySize,
	}, writer, pub, logger.Get("warnings"))
	coordinator.Register("warnings", mgr, shutdown.PriorityWarnings)

	// Mirror warn-and-above process logs into the warnings measurement.
	if cfg.Log.ForwardLevel != "" {
		hook := warnings.NewHook(mgr, logger.ParseLevel(cfg.Log.ForwardLevel))
		log.Logger = log.Logger.Hook(hook)
	}

	// Runtime stats
	if cfg.Stats.Enabled {
		collector := telemetry.New(telemetry.Config{
			Measurement: cfg.Stats.Measurement,
			Interval:    cfg.Stats.Interval(),
		}, writer, logger.Get("telemetry"))
		collector.AddSource("writer", writer.Stats)
		collector.AddSource("warnings", mgr.Stats)
		collector.Start()
		coordinator.Register("telemetry", collector, shutdown.PriorityStats)
	}

	if err := mgr.Confirmed("relay %s started", Version); err != nil {
		log.Warn().Err(err).Msg("Failed to record startup warning")
	}
	log.Info().Msg("Relay is ready")

	sig := coordinator.WaitForSignal()
	log.Info().Str("signal", sig.String()).Msg("Initiating graceful shutdown...")

	if err := coordinator.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Shutdown completed with errors")
		os.Exit(1)
	}
	log.Info().Msg("Relay shutdown complete")
}
