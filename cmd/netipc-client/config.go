package main

import (
	"errors"
	"flag"
	"time"
)

// Config holds the client configuration. Fields map 1:1 to command-line
// flags and to the YAML configuration file.
type Config struct {
	Socket         string        `yaml:"socket"`
	NodeID         uint32        `yaml:"node-id"`
	MemoryFile     string        `yaml:"memory-file"`
	MemorySizeMiB  uint          `yaml:"memory-size"`
	RetryInterval  time.Duration `yaml:"retry-interval"`
	ConnectTimeout time.Duration `yaml:"connect-timeout"`
	LowMemLimit    uint32        `yaml:"low-mem-limit"`
	ProtocolLog    string        `yaml:"protocol-log"`
	LogLevel       string        `yaml:"log-level"`
	Interactive    bool          `yaml:"-"`
}

// loadConfig parses flags and the optional config file.
func loadConfig(args []string) (*Config, error) {
	cfg := &Config{
		MemorySizeMiB:  64,
		RetryInterval:  time.Second,
		ConnectTimeout: 10 * time.Second,
		LogLevel:       "info",
	}

	fs := flag.NewFlagSet("netipc-client", flag.ExitOnError)
	configFile := fs.String("config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.Socket, "socket", "", "Peer Unix socket path")
	nodeID := fs.Uint("node-id", 0, "Device node identifier")
	fs.StringVar(&cfg.MemoryFile, "memory-file", "", "Backing file for the shared memory region")
	fs.UintVar(&cfg.MemorySizeMiB, "memory-size", cfg.MemorySizeMiB, "Size of the anonymous memfd region in MiB")
	fs.DurationVar(&cfg.RetryInterval, "retry-interval", cfg.RetryInterval, "Delay between reconnection attempts")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Dial and handshake timeout")
	lowMem := fs.Uint("low-mem-limit", 0, "Below-4G boundary address override")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", "", "Write protocol events to this file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Interactive, "interactive", false, "Enable the interactive console")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.NodeID = uint32(*nodeID)
	cfg.LowMemLimit = uint32(*lowMem)

	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if *configFile != "" {
		if err := loadConfigFile(*configFile, cfg, explicit); err != nil {
			return nil, err
		}
	}

	if cfg.Socket == "" {
		return nil, errors.New("peer socket path required (-socket or config file)")
	}
	if cfg.MemoryFile == "" && cfg.MemorySizeMiB == 0 {
		return nil, errors.New("memory region required (-memory-file or -memory-size)")
	}
	return cfg, nil
}
