package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	Role            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}
	fs := flag.CommandLine

	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("MOODLINK_CONFIG", ""),
		"Path to a YAML configuration file; defaults apply when empty (env: MOODLINK_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("MOODLINK_CONFIG", ""),
		"Path to a YAML configuration file (env: MOODLINK_CONFIG)")

	// MOODLINK_ROLE is applied by the config loader, so the flag has no env fallback.
	fs.StringVar(&cfg.Role, "role", "", "Role: receiver or sender; overrides the configuration")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("MOODLINK_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: MOODLINK_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("MOODLINK_LOG_FORMAT", "json"),
		"Log format: json, text (env: MOODLINK_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("MOODLINK_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: MOODLINK_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration, print it and exit")

	fs.Usage = printDetailedHelp
	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - wristband mood link

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Receive on the default address and log recommendations
  %s --role=receiver --log-format=text

  # Stream simulated samples to a receiver
  MOODLINK_LINK_PEER=127.0.0.1:7070 %s --role=sender

  # Validate configuration only
  %s --config=moodlink.yaml --validate

Send SIGUSR1 to retry a link that has given up.

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
