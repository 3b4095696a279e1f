// Package config loads relay configuration from defaults, an optional
// relay.toml, and RELAY_* environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the relay agent.
type Config struct {
	Influx    InfluxConfig
	Log       LogConfig
	Warnings  WarningsConfig
	Broadcast BroadcastConfig
	Stats     StatsConfig
}

type InfluxConfig struct {
	Host          string
	Port          int
	Database      string
	MaxBufferSize int  // Lines accumulated before a flush
	MaxPendingMS  int  // Max milliseconds a line waits before a flush
	TimeoutMS     int  // HTTP request timeout in milliseconds
	Gzip          bool // Compress request bodies
}

type LogConfig struct {
	Level  string
	Format string // json or console
	// ForwardLevel is the minimum level mirrored into the warnings
	// measurement, empty to disable forwarding.
	ForwardLevel string
}

type WarningsConfig struct {
	Measurement string
	HistorySize int
}

type BroadcastConfig struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      int
}

type StatsConfig struct {
	Enabled     bool
	Measurement string
	IntervalMS  int
}

func (c InfluxConfig) MaxPending() time.Duration {
	return time.Duration(c.MaxPendingMS) * time.Millisecond
}

func (c InfluxConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c StatsConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Load reads configuration from relay.toml (searched in ., /etc/relay/,
// $HOME/.relay/) and the environment. A missing config file is not an
// error.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("relay")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/relay/")
	v.AddConfigPath("$HOME/.relay/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Influx: InfluxConfig{
			Host:          v.GetString("influx.host"),
			Port:          v.GetInt("influx.port"),
			Database:      v.GetString("influx.database"),
			MaxBufferSize: v.GetInt("influx.max_buffer_size"),
			MaxPendingMS:  v.GetInt("influx.max_pending_ms"),
			TimeoutMS:     v.GetInt("influx.timeout_ms"),
			Gzip:          v.GetBool("influx.gzip"),
		},
		Log: LogConfig{
			Level:        v.GetString("log.level"),
			Format:       v.GetString("log.format"),
			ForwardLevel: v.GetString("log.forward_level"),
		},
		Warnings: WarningsConfig{
			Measurement: v.GetString("warnings.measurement"),
			HistorySize: v.GetInt("warnings.history_size"),
		},
		Broadcast: BroadcastConfig{
			Enabled:  v.GetBool("broadcast.enabled"),
			Broker:   v.GetString("broadcast.broker"),
			Topic:    v.GetString("broadcast.topic"),
			ClientID: v.GetString("broadcast.client_id"),
			Username: v.GetString("broadcast.username"),
			Password: v.GetString("broadcast.password"),
			QoS:      v.GetInt("broadcast.qos"),
		},
		Stats: StatsConfig{
			Enabled:     v.GetBool("stats.enabled"),
			Measurement: v.GetString("stats.measurement"),
			IntervalMS:  v.GetInt("stats.interval_ms"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Influx.Port <= 0 || c.Influx.Port > 65535 {
		return fmt.Errorf("invalid influx.port: %d", c.Influx.Port)
	}
	if c.Influx.Database == "" {
		return fmt.Errorf("influx.database must not be empty")
	}
	if c.Influx.MaxBufferSize <= 0 {
		return fmt.Errorf("invalid influx.max_buffer_size: %d", c.Influx.MaxBufferSize)
	}
	if c.Broadcast.Enabled && c.Broadcast.Broker == "" {
		return fmt.Errorf("broadcast.broker must be set when broadcast is enabled")
	}
	if qos := c.Broadcast.QoS; qos < 0 || qos > 2 {
		return fmt.Errorf("invalid broadcast.qos: %d", qos)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Influx
	v.SetDefault("influx.host", "localhost")
	v.SetDefault("influx.port", 8086)
	v.SetDefault("influx.database", "telemetry")
	v.SetDefault("influx.max_buffer_size", 4096)
	v.SetDefault("influx.max_pending_ms", 1000)
	v.SetDefault("influx.timeout_ms", 5000)
	v.SetDefault("influx.gzip", false)

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.forward_level", "warn")

	// Warnings
	v.SetDefault("warnings.measurement", "alerts")
	v.SetDefault("warnings.history_size", 500)

	// Broadcast
	v.SetDefault("broadcast.enabled", false)
	v.SetDefault("broadcast.broker", "")
	v.SetDefault("broadcast.topic", "relay/warnings")
	v.SetDefault("broadcast.client_id", "relay")
	v.SetDefault("broadcast.qos", 0)

	// Runtime stats
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.measurement", "relay_stats")
	v.SetDefault("stats.interval_ms", 10000)
}
