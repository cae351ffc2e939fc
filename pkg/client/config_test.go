package client

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultURL, cfg.URL)
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, 5, cfg.Reconnect.MaxAttempts)
}

func TestParseConfigOverlaysDefaults(t *testing.T) {
	data := []byte(`
url: wss://ds.example.com:6020/deepstream
reconnect:
  max_attempts: 0
  initial_delay: 250ms
  jitter: 0.5
websocket:
  ping_interval: 5s
log:
  level: debug
  protocol_log: /tmp/ds.dlog
`)

	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "wss://ds.example.com:6020/deepstream", cfg.URL)
	assert.Equal(t, 0, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconnect.InitialDelay)
	assert.Equal(t, 0.5, cfg.Reconnect.Jitter)
	assert.Equal(t, 5*time.Second, cfg.WebSocket.PingInterval)
	assert.Equal(t, "/tmp/ds.dlog", cfg.Log.ProtocolLog)

	// Untouched fields keep their defaults.
	defaults := DefaultConfig()
	assert.True(t, cfg.Reconnect.Enabled)
	assert.Equal(t, defaults.Reconnect.MaxDelay, cfg.Reconnect.MaxDelay)
	assert.Equal(t, defaults.WebSocket.HandshakeTimeout, cfg.WebSocket.HandshakeTimeout)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseConfigInvalidYAML(t *testing.T) {
	_, err := ParseConfig([]byte("url: [unterminated"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: ws://127.0.0.1:6020\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:6020", cfg.URL)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty url", func(c *Config) { c.URL = "" }},
		{"http scheme", func(c *Config) { c.URL = "http://localhost:6020" }},
		{"no host", func(c *Config) { c.URL = "ws:///deepstream" }},
		{"negative attempts", func(c *Config) { c.Reconnect.MaxAttempts = -1 }},
		{"negative delay", func(c *Config) { c.Reconnect.InitialDelay = -time.Second }},
		{"jitter above one", func(c *Config) { c.Reconnect.Jitter = 1.5 }},
		{"negative ping", func(c *Config) { c.WebSocket.PingInterval = -time.Second }},
		{"unknown level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
