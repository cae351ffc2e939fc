package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deepstreamio/deepstream-go/pkg/connection"
	"github.com/deepstreamio/deepstream-go/pkg/transport"
)

// DefaultURL is the endpoint of a deepstream server with default settings.
const DefaultURL = "ws://localhost:6020/deepstream"

// Config is the client configuration. Durations are Go duration strings
// in YAML ("1s", "500ms").
type Config struct {
	URL       string          `yaml:"url"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Log       LogConfig       `yaml:"log"`
}

// ReconnectConfig configures redialing after the transport is lost.
type ReconnectConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts is the number of redials before giving up (0 = unlimited).
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`

	// Jitter is the maximum added delay as a fraction of the delay.
	Jitter float64 `yaml:"jitter"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// WebSocketConfig configures the websocket transport.
type WebSocketConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PongTimeout      time.Duration `yaml:"pong_timeout"`
	MaxMessageSize   int64         `yaml:"max_message_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the slog level name (debug, info, warn, error).
	Level string `yaml:"level"`

	// ProtocolLog is the path of a protocol capture file ("" = none).
	ProtocolLog string `yaml:"protocol_log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL: DefaultURL,
		Reconnect: ReconnectConfig{
			Enabled:      true,
			MaxAttempts:  5,
			InitialDelay: connection.InitialBackoff,
			MaxDelay:     connection.MaxBackoff,
			Multiplier:   connection.BackoffMultiplier,
			Jitter:       connection.JitterFactor,
			DialTimeout:  connection.DefaultDialTimeout,
		},
		WebSocket: WebSocketConfig{
			HandshakeTimeout: transport.DefaultHandshakeTimeout,
			WriteTimeout:     transport.DefaultWriteTimeout,
			PingInterval:     transport.DefaultPingInterval,
			PongTimeout:      transport.DefaultPongTimeout,
			MaxMessageSize:   transport.DefaultMaxMessageSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ParseConfig overlays YAML data onto the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file and overlays it onto the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks if the config is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: url %q must use ws or wss", ErrInvalidConfig, c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url %q has no host", ErrInvalidConfig, c.URL)
	}

	r := c.Reconnect
	if r.MaxAttempts < 0 || r.InitialDelay < 0 || r.MaxDelay < 0 || r.DialTimeout < 0 {
		return fmt.Errorf("%w: reconnect values must not be negative", ErrInvalidConfig)
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("%w: reconnect jitter %v outside [0, 1]", ErrInvalidConfig, r.Jitter)
	}

	w := c.WebSocket
	if w.HandshakeTimeout < 0 || w.WriteTimeout < 0 || w.PingInterval < 0 || w.PongTimeout < 0 || w.MaxMessageSize < 0 {
		return fmt.Errorf("%w: websocket values must not be negative", ErrInvalidConfig)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel parses Level. An empty level is info.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return level, nil
}

func (c WebSocketConfig) transportConfig() transport.WebSocketConfig {
	return transport.WebSocketConfig{
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
		PingInterval:     c.PingInterval,
		PongTimeout:      c.PongTimeout,
		MaxMessageSize:   c.MaxMessageSize,
	}
}

func (c ReconnectConfig) connectionConfig() connection.ReconnectConfig {
	return connection.ReconnectConfig{
		MaxAttempts: c.MaxAttempts,
		DialTimeout: c.DialTimeout,
		Backoff: connection.BackoffConfig{
			Initial:    c.InitialDelay,
			Max:        c.MaxDelay,
			Multiplier: c.Multiplier,
			Jitter:     c.Jitter,
		},
	}
}
