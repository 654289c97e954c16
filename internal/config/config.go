// Package config loads the process-wide configuration envelope named
// in spec.md §6: per-resource retry policies, per-resource circuit
// breaker parameters, and the state synchronizer's thresholds. Values
// are read with spf13/viper so they can come from environment variables
// (GAME_SERVER_* prefix, matching the teacher's own GAME_SERVER_PORT
// convention), a config file, or defaults, in that precedence order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"poker-platform/internal/recovery"
)

// RetryConfig mirrors spec.md §6's retry.<resource> envelope entry.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Strategy     string        `mapstructure:"strategy"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Jitter       bool          `mapstructure:"jitter"`
}

// BreakerConfig mirrors spec.md §6's breaker.<resource> envelope entry.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	HalfOpenLimit    int           `mapstructure:"half_open_limit"`
	MonitoringPeriod time.Duration `mapstructure:"monitoring_period"`
}

// SyncConfig mirrors spec.md §6's sync.* envelope entries.
type SyncConfig struct {
	VersionDiffThreshold int `mapstructure:"version_diff_threshold"`
	MaxDeltaBytes        int `mapstructure:"max_delta_bytes"`
	HistoryCap           int `mapstructure:"history_cap"`
}

// ClickHouseConfig mirrors storage.ClickHouseConfig's shape so it can
// be populated directly from the envelope.
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Secure   bool   `mapstructure:"secure"`
}

// Config is the full process-wide envelope.
type Config struct {
	Retry   map[string]RetryConfig   `mapstructure:"retry"`
	Breaker map[string]BreakerConfig `mapstructure:"breaker"`
	Sync    SyncConfig               `mapstructure:"sync"`

	ServerPort   string           `mapstructure:"server_port"`
	KafkaBrokers []string         `mapstructure:"kafka_brokers"`
	KafkaTopic   string           `mapstructure:"kafka_topic"`
	PostgresDSN  string           `mapstructure:"postgres_dsn"`
	ClickHouse   ClickHouseConfig `mapstructure:"clickhouse"`
}

// Load reads the envelope from the spec.md-documented defaults, an
// optional config file, and environment variables (GAME_SERVER_
// prefixed, underscores in place of dots: e.g.
// GAME_SERVER_SYNC_HISTORY_CAP), in ascending precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GAME_SERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server_port", "8080")
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_topic", "poker.table-events")

	v.SetDefault("sync.version_diff_threshold", 10)
	v.SetDefault("sync.max_delta_bytes", 10*1024)
	v.SetDefault("sync.history_cap", 50)

	v.SetDefault("clickhouse.port", 9440)
	v.SetDefault("clickhouse.database", "poker_analytics")
	v.SetDefault("clickhouse.secure", true)

	// deck-oracle is the core's one outbound collaborator wrapped by
	// the error recovery fabric by default; the EXTERNAL_SERVICE class
	// defaults from spec.md §4.5 seed it.
	v.SetDefault("retry.deck-oracle.max_attempts", 5)
	v.SetDefault("retry.deck-oracle.strategy", "exponential")
	v.SetDefault("retry.deck-oracle.initial_delay", "2s")
	v.SetDefault("retry.deck-oracle.max_delay", "30s")
	v.SetDefault("retry.deck-oracle.jitter", true)

	v.SetDefault("breaker.deck-oracle.failure_threshold", 3)
	v.SetDefault("breaker.deck-oracle.reset_timeout", "120s")
	v.SetDefault("breaker.deck-oracle.half_open_limit", 1)
	v.SetDefault("breaker.deck-oracle.monitoring_period", "120s")
}

// RetryPolicy converts a resource's RetryConfig into a recovery.RetryPolicy,
// falling back to the EXTERNAL_SERVICE class defaults (spec.md §4.5) when
// the resource has no explicit envelope entry.
func (c *Config) RetryPolicy(resource string) recovery.RetryPolicy {
	rc, ok := c.Retry[resource]
	if !ok {
		policy, _, _ := recovery.StrategyFor(recovery.ClassExternalService)
		return policy
	}
	return recovery.RetryPolicy{
		MaxAttempts:  rc.MaxAttempts,
		Strategy:     strategyFromString(rc.Strategy),
		InitialDelay: rc.InitialDelay,
		MaxDelay:     rc.MaxDelay,
		Jitter:       rc.Jitter,
	}
}

// BreakerParams converts a resource's BreakerConfig into recovery.BreakerParams,
// with the same EXTERNAL_SERVICE fallback as RetryPolicy.
func (c *Config) BreakerParams(resource string) recovery.BreakerParams {
	bc, ok := c.Breaker[resource]
	if !ok {
		_, params, _ := recovery.StrategyFor(recovery.ClassExternalService)
		return params
	}
	return recovery.BreakerParams{
		FailureThreshold: bc.FailureThreshold,
		ResetTimeout:     bc.ResetTimeout,
		HalfOpenLimit:    bc.HalfOpenLimit,
		MonitoringPeriod: bc.MonitoringPeriod,
	}
}

func strategyFromString(s string) recovery.BackoffStrategy {
	switch s {
	case "linear":
		return recovery.Linear
	case "fixed":
		return recovery.Fixed
	default:
		return recovery.Exponential
	}
}
