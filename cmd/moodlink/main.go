// Package main implements the moodlink command. It runs either end of the link:
// the receiver classifies incoming wristband samples and posts recommendations,
// the sender streams samples from the sensor source.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/moodlink/app"
	"github.com/c360/moodlink/config"
	"github.com/c360/moodlink/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "moodlink"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		fmt.Print(cfg.String())
		return nil
	}

	slog.Info("Starting moodlink",
		"version", Version,
		"build_time", BuildTime,
		"role", cfg.Role,
		"config_path", cliCfg.ConfigPath)

	return runWithSignalHandling(cfg, logger, cliCfg.ShutdownTimeout)
}

// loadConfig applies defaults, the optional file, environment overrides and the
// role flag, in that order.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(false)
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if cliCfg.Role != "" {
		cfg.Role = cliCfg.Role
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runWithSignalHandling runs until SIGINT or SIGTERM. SIGUSR1 resets a failed link.
func runWithSignalHandling(cfg *config.Config, logger *slog.Logger, shutdownTimeout time.Duration) error {
	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle, err := app.Init(signalCtx, cfg, app.Deps{
		Logger:   logger,
		Registry: metric.NewMetricsRegistry(),
	})
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	resets := make(chan os.Signal, 1)
	signal.Notify(resets, syscall.SIGUSR1)
	defer signal.Stop(resets)

	for {
		select {
		case <-resets:
			slog.Info("Received reset signal")
			if err := handle.Reset(); err != nil {
				slog.Warn("Link reset failed", "error", err)
			}
		case <-signalCtx.Done():
			slog.Info("Received shutdown signal")
			if err := handle.Shutdown(shutdownTimeout); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			slog.Info("moodlink shutdown complete")
			return nil
		}
	}
}
