// Command ds-client connects to a deepstream server and keeps the
// connection alive.
//
// It performs the connection handshake, optionally logs in with the
// given parameters and reconnects after connection loss. In interactive
// mode, login attempts and state queries are issued from a prompt.
//
// Usage:
//
//	ds-client [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-url string           Server URL (default "ws://localhost:6020/deepstream")
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write a protocol capture file (view with ds-log)
//	-auth string          Log in with these parameters once the handshake completes
//	-interactive          Enable interactive mode
//	-metrics-addr string  Serve Prometheus metrics on this address
//
// Examples:
//
//	# Connect and log in as Yasser
//	ds-client -url ws://localhost:6020/deepstream -auth "username=Yasser"
//
//	# Interactive session with a protocol capture
//	ds-client -interactive -protocol-log client.dlog -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deepstreamio/deepstream-go/cmd/ds-client/interactive"
	"github.com/deepstreamio/deepstream-go/pkg/client"
	"github.com/deepstreamio/deepstream-go/pkg/connection"
	dslog "github.com/deepstreamio/deepstream-go/pkg/log"
	"github.com/deepstreamio/deepstream-go/pkg/metrics"
	"github.com/deepstreamio/deepstream-go/pkg/wire"
)

// Flags holds the command-line settings. Empty values leave the
// configuration file (or the defaults) in effect.
type Flags struct {
	ConfigFile  string
	URL         string
	LogLevel    string
	ProtocolLog string
	Auth        string
	Interactive bool
	MetricsAddr string
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.URL, "url", "", "Server URL (default "+client.DefaultURL+")")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write a protocol capture file (view with ds-log)")
	flag.StringVar(&flags.Auth, "auth", "", "Log in with these parameters (key=value ... or a JSON object)")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive mode")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	out := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	var authParams map[string]any
	if flags.Auth != "" {
		authParams, err = interactive.ParseParams(strings.Fields(flags.Auth))
		if err != nil {
			logger.Error("invalid -auth parameters", "error", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	collector := metrics.New(metrics.WithRegistry(registry))

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMetrics(collector),
	}
	if level <= slog.LevelDebug {
		// Trace every protocol event at debug level.
		opts = append(opts, client.WithProtocolLogger(dslog.NewSlogAdapter(logger)))
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}

	logger.Info("deepstream client",
		"url", cfg.URL,
		"conn_id", c.ConnectionID(),
		"reconnect", cfg.Reconnect.Enabled)

	if authParams != nil {
		c.AddConnectionChangeListener(autoLogin(c, authParams, logger))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var metricsServer *http.Server
	if flags.MetricsAddr != "" {
		metricsServer = serveMetrics(flags.MetricsAddr, registry, logger)
	}

	if err := c.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		_ = c.Close()
		os.Exit(1)
	}

	if flags.Interactive {
		shell, err := interactive.New(c)
		if err != nil {
			logger.Error("failed to start interactive mode", "error", err)
			_ = c.Close()
			os.Exit(1)
		}
		out.set(shell.Stdout())
		go shell.Run(ctx, cancel)
	}

	<-ctx.Done()
	out.set(os.Stderr)
	logger.Info("shutting down")

	if err := c.Close(); err != nil {
		logger.Warn("error closing client", "error", err)
	}
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
}

// loadConfig reads the configuration file, if any, and applies flag
// overrides on top.
func loadConfig(f Flags) (client.Config, error) {
	cfg := client.DefaultConfig()
	if f.ConfigFile != "" {
		loaded, err := client.LoadConfig(f.ConfigFile)
		if err != nil {
			return client.Config{}, err
		}
		cfg = loaded
	}

	if f.URL != "" {
		cfg.URL = f.URL
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.ProtocolLog != "" {
		cfg.Log.ProtocolLog = f.ProtocolLog
	}
	return cfg, cfg.Validate()
}

// autoLogin logs in each time a handshake completes, including after a
// reconnect. A rejected login is not retried.
func autoLogin(c *client.Client, params map[string]any, logger *slog.Logger) connection.StateObserver {
	prev := connection.StateClosed
	return connection.StateObserverFunc(func(state connection.State) {
		fromHandshake := prev == connection.StateChallenging
		prev = state
		if state != connection.StateAwaitingAuthentication || !fromHandshake {
			return
		}
		err := c.Login(params, connection.LoginFuncs{
			Success: func(data map[string]any) {
				logger.Info("logged in", "data", data)
			},
			Failed: func(event wire.Event, message string) {
				logger.Warn("login failed", "event", event.String(), "message", message)
			},
		})
		if err != nil {
			logger.Warn("login not sent", "error", err)
		}
	})
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// switchWriter lets log output move to the readline prompt once
// interactive mode starts.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
