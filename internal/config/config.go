package config

import (
	"fmt"
	"time"
)

// Config holds every tunable the echoserver demo exposes. Fields carry
// koanf struct tags so they can be loaded from a YAML file or overridden
// by environment variables via LoadWithKoanf.
type Config struct {
	// Listen is the address the demo's WebSocket endpoint binds to.
	Listen string `koanf:"listen"`

	// Keepalive holds the ping/pong timing for wsconn's keepalive
	// service (spec.md §4.6).
	Keepalive KeepaliveConfig `koanf:"keepalive"`

	// Reconnect holds the client reconnect-with-backoff bounds
	// (spec.md §4.6, connect_with_retry).
	Reconnect ReconnectConfig `koanf:"reconnect"`

	// Supervisor holds the robust-service replacement interval
	// (spec.md §4.5).
	Supervisor SupervisorConfig `koanf:"supervisor"`

	// Channels holds the bounded-channel capacities wsconn wires
	// internally for pings and pongs (spec.md §5: capacity 1,
	// deliberately, for backpressure).
	Channels ChannelConfig `koanf:"channels"`

	// Logging selects the ambient logger's level and format.
	Logging LoggingConfig `koanf:"logging"`
}

// KeepaliveConfig configures wsconn's keepalive service.
type KeepaliveConfig struct {
	// PingInterval is how often a ping payload is emitted.
	PingInterval time.Duration `koanf:"ping_interval"`
	// PongTimeout is how long the keepalive waits for a matching pong
	// before terminating Spurious.
	PongTimeout time.Duration `koanf:"pong_timeout"`
}

// ReconnectConfig configures the client factory's backoff bounds.
type ReconnectConfig struct {
	// MinBackoff is the lower bound of the jittered reconnect delay.
	MinBackoff time.Duration `koanf:"min_backoff"`
	// MaxBackoff is the upper bound of the jittered reconnect delay.
	MaxBackoff time.Duration `koanf:"max_backoff"`
}

// SupervisorConfig configures the robust-service supervisor.
type SupervisorConfig struct {
	// ReplacementInterval enables periodic preemptive replacement when
	// non-zero (spec.md §4.5).
	ReplacementInterval time.Duration `koanf:"replacement_interval"`
}

// ChannelConfig configures wsconn's internal ping/pong channel
// capacities.
type ChannelConfig struct {
	PingCapacity int `koanf:"ping_capacity"`
	PongCapacity int `koanf:"pong_capacity"`
}

// LoggingConfig selects the ambient logger's behavior.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns sensible defaults for every field, applied
// before the config file and environment layers.
func defaultConfig() *Config {
	return &Config{
		Listen: ":8080",
		Keepalive: KeepaliveConfig{
			PingInterval: 15 * time.Second,
			PongTimeout:  45 * time.Second,
		},
		Reconnect: ReconnectConfig{
			MinBackoff: 5 * time.Second,
			MaxBackoff: 30 * time.Second,
		},
		Supervisor: SupervisorConfig{
			ReplacementInterval: 0,
		},
		Channels: ChannelConfig{
			PingCapacity: 1,
			PongCapacity: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the rest of the demo cannot act on.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.Keepalive.PingInterval <= 0 {
		return fmt.Errorf("config: keepalive.ping_interval must be positive")
	}
	if c.Keepalive.PongTimeout <= c.Keepalive.PingInterval {
		return fmt.Errorf("config: keepalive.pong_timeout must exceed ping_interval")
	}
	if c.Reconnect.MinBackoff <= 0 || c.Reconnect.MaxBackoff < c.Reconnect.MinBackoff {
		return fmt.Errorf("config: reconnect.min_backoff/max_backoff must satisfy 0 < min <= max")
	}
	if c.Channels.PingCapacity < 1 || c.Channels.PongCapacity < 1 {
		return fmt.Errorf("config: channel capacities must be at least 1")
	}
	return nil
}
