// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a simulation run
type Config struct {
	Executor ExecutorConfig `mapstructure:"executor"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Player   PlayerConfig   `mapstructure:"player"`
	Run      RunConfig      `mapstructure:"run"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExecutorConfig sizes the refill executor
type ExecutorConfig struct {
	Capacity int `mapstructure:"capacity"`
	Workers  int `mapstructure:"workers"`
}

// QueueConfig sizes the buffer queue and the buffers enqueued into it
type QueueConfig struct {
	Capacity  int `mapstructure:"capacity"`
	ChunkSize int `mapstructure:"chunk_size"`
}

// PlayerConfig describes the simulated playback device
type PlayerConfig struct {
	PullSize int     `mapstructure:"pull_size"`
	Rate     float64 `mapstructure:"rate"` // pulls per second, 0 for unpaced
	Burst    int     `mapstructure:"burst"`
	RingSize int     `mapstructure:"ring_size"` // device ring in bytes
	Async    bool    `mapstructure:"async"`     // pull on executor workers
}

// RunConfig bounds a run
type RunConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	Chunks   int           `mapstructure:"chunks"` // 0 for unlimited
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // empty disables the endpoint
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("executor.capacity", 15)
	v.SetDefault("executor.workers", 2)
	v.SetDefault("queue.capacity", 4)
	v.SetDefault("queue.chunk_size", 4096)
	v.SetDefault("player.pull_size", 960)
	v.SetDefault("player.rate", 0)
	v.SetDefault("player.burst", 1)
	v.SetDefault("player.ring_size", 16384)
	v.SetDefault("player.async", false)
	v.SetDefault("run.duration", "10s")
	v.SetDefault("run.chunks", 0)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("streamsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.streamsim")
	}

	// Allow environment variables
	v.SetEnvPrefix("STREAMSIM")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		slog.Debug("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Using config file", slog.String("file", v.ConfigFileUsed()))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch {
	case c.Executor.Capacity <= 0:
		return &ConfigError{Field: "executor.capacity", Message: "must be positive"}
	case c.Executor.Workers <= 0:
		return &ConfigError{Field: "executor.workers", Message: "must be positive"}
	case c.Queue.Capacity <= 0:
		return &ConfigError{Field: "queue.capacity", Message: "must be positive"}
	case c.Queue.ChunkSize <= 0:
		return &ConfigError{Field: "queue.chunk_size", Message: "must be positive"}
	case c.Player.PullSize <= 0:
		return &ConfigError{Field: "player.pull_size", Message: "must be positive"}
	case c.Player.RingSize < c.Player.PullSize:
		return &ConfigError{Field: "player.ring_size", Message: "must hold at least one pull"}
	case c.Player.Rate < 0:
		return &ConfigError{Field: "player.rate", Message: "must not be negative"}
	case c.Player.Rate > 0 && c.Player.Burst <= 0:
		return &ConfigError{Field: "player.burst", Message: "must be positive when rate is set"}
	case c.Run.Duration <= 0 && c.Run.Chunks <= 0:
		return &ConfigError{Field: "run", Message: "duration or chunks must bound the run"}
	case c.Run.Chunks < 0:
		return &ConfigError{Field: "run.chunks", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
