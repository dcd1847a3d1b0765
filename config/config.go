// Package config loads jobfire's runtime settings from file and
// environment via viper, the way a deployed jobfire Manager is typically
// wired in a host application rather than hand-constructed in code.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sobczal2/jobfire/worker"
)

// Config is the full set of externally tunable jobfire settings: the
// worker loop plus connection strings for the optional Postgres/Redis
// backends. Either backend section may be left empty when the in-memory
// reference storage is used instead.
type Config struct {
	Worker   WorkerConfig   `mapstructure:"worker"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// WorkerConfig mirrors worker.Settings in viper's duration/int vocabulary.
type WorkerConfig struct {
	PollRate           time.Duration `mapstructure:"poll_rate"`
	CommandChannelSize int           `mapstructure:"command_channel_size"`
}

// ToSettings converts WorkerConfig to worker.Settings.
func (c WorkerConfig) ToSettings() worker.Settings {
	return worker.Settings{
		PollRate:           c.PollRate,
		CommandChannelSize: c.CommandChannelSize,
	}
}

// PostgresConfig holds the connection string for the durable SQL backend.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds the connection string and queue key prefix for the
// Redis-backed pending/running queue.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Load reads jobfire configuration from (in ascending priority) built-in
// defaults, a config file named name under any of dirs, and environment
// variables prefixed JOBFIRE_ (JOBFIRE_WORKER_POLL_RATE, etc, with "."
// and "-" mapped to "_").
func Load(name string, dirs ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetDefault("worker.poll_rate", 100*time.Millisecond)
	v.SetDefault("worker.command_channel_size", 32)
	v.SetDefault("redis.key_prefix", "jobfire")
	v.SetDefault("redis.db", 0)

	v.SetEnvPrefix("jobfire")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
