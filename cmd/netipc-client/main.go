// Command netipc-client is a reference NETIPC client implementation.
//
// It connects to a NETIPC peer over a Unix socket, performs the memory
// sharing handshake, and maintains the session until interrupted. The
// guest memory region is backed either by an existing file or by an
// anonymous memfd, which makes the command usable against a real peer
// or as a standalone exerciser.
//
// Usage:
//
//	netipc-client [flags]
//
// Flags:
//
//	-socket string        Peer Unix socket path (required)
//	-config string        Configuration file path (YAML)
//	-node-id int          Device node identifier (default 0)
//	-memory-file string   Backing file for the shared memory region
//	-memory-size int      Size of the anonymous memfd region in MiB (default 64)
//	-retry-interval dur   Delay between reconnection attempts (default 1s)
//	-protocol-log string  Write protocol events to this file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-interactive          Enable the interactive console
//
// Examples:
//
//	# Connect to a peer with a 128 MiB anonymous region
//	netipc-client -socket /run/netipc.sock -memory-size 128
//
//	# Use a config file and capture protocol events
//	netipc-client -config client.yaml -protocol-log session.nlog
//
//	# Interactive console
//	netipc-client -socket /run/netipc.sock -interactive
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netipc-protocol/netipc-go/cmd/netipc-client/interactive"
	"github.com/netipc-protocol/netipc-go/pkg/guestmem"
	"github.com/netipc-protocol/netipc-go/pkg/log"
	"github.com/netipc-protocol/netipc-go/pkg/session"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	var protocolLogger log.Logger
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			logger.Error("failed to open protocol log", "path", cfg.ProtocolLog, "error", err)
			os.Exit(1)
		}
		defer fl.Close()
		protocolLogger = fl
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog)
	}

	provider := memoryProvider(cfg)
	port := newConsolePort(logger)

	sup, err := session.New(session.Config{
		SocketPath:     cfg.Socket,
		NodeID:         cfg.NodeID,
		RetryInterval:  cfg.RetryInterval,
		ConnectTimeout: cfg.ConnectTimeout,
		LowMemoryLimit: cfg.LowMemLimit,
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	}, port, provider)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	sup.OnConnected(func() {
		logger.Info("session established",
			"socket", cfg.Socket,
			"session_id", sup.SessionID(),
			"memory_size", sup.MemorySize())
	})
	sup.OnDisconnected(func(err error) {
		logger.Warn("session lost", "error", err)
	})
	sup.OnRetry(func(attempt int, delay time.Duration) {
		logger.Debug("reconnect scheduled", "attempt", attempt, "delay", delay)
	})

	if err := sup.Start(); err != nil {
		logger.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	logger.Info("session supervisor started", "socket", cfg.Socket, "node_id", cfg.NodeID)

	if cfg.Interactive {
		console, err := interactive.New(sup, port.kickCounter())
		if err != nil {
			logger.Error("failed to start console", "error", err)
			sup.Close()
			os.Exit(1)
		}
		console.Run()
	} else {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
	}

	if err := sup.Close(); err != nil {
		logger.Error("error closing session", "error", err)
		os.Exit(1)
	}
}

// memoryProvider selects the guest memory source from the configuration.
func memoryProvider(cfg *Config) guestmem.Provider {
	if cfg.MemoryFile != "" {
		return guestmem.FileProvider{
			Path:        cfg.MemoryFile,
			LowMemLimit: cfg.LowMemLimit,
		}
	}
	return guestmem.MemfdProvider{
		Name:        "netipc-guest",
		Size:        uint64(cfg.MemorySizeMiB) << 20,
		LowMemLimit: cfg.LowMemLimit,
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfigFile merges settings from a YAML file into cfg. Flag values
// set explicitly on the command line win over file values.
func loadConfigFile(path string, cfg *Config, explicit map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if !explicit["socket"] && file.Socket != "" {
		cfg.Socket = file.Socket
	}
	if !explicit["node-id"] && file.NodeID != 0 {
		cfg.NodeID = file.NodeID
	}
	if !explicit["memory-file"] && file.MemoryFile != "" {
		cfg.MemoryFile = file.MemoryFile
	}
	if !explicit["memory-size"] && file.MemorySizeMiB != 0 {
		cfg.MemorySizeMiB = file.MemorySizeMiB
	}
	if !explicit["retry-interval"] && file.RetryInterval != 0 {
		cfg.RetryInterval = file.RetryInterval
	}
	if !explicit["connect-timeout"] && file.ConnectTimeout != 0 {
		cfg.ConnectTimeout = file.ConnectTimeout
	}
	if !explicit["low-mem-limit"] && file.LowMemLimit != 0 {
		cfg.LowMemLimit = file.LowMemLimit
	}
	if !explicit["protocol-log"] && file.ProtocolLog != "" {
		cfg.ProtocolLog = file.ProtocolLog
	}
	if !explicit["log-level"] && file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	return nil
}
