// Package cli provides common initialization shared by the finance
// commands: the API server, the recurring worker and financectl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finance/internal/backend"
	"finance/internal/config"
	applog "finance/internal/log"
)

// SetupLogger builds the application logger and installs it as the slog
// default.
func SetupLogger(level, format string) *applog.Logger {
	return SetupLoggerTo(os.Stdout, level, format)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(w io.Writer, level, format string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(level)
	cfg.Format = format
	cfg.Output = w
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and the
// optional config file, then validates it.
func LoadAndValidateConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitBackend assembles the store, cache, bus and services for cfg.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*backend.Backend, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	b, err := backend.NewFactory(logger.Logger).Create(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Bootstrap runs the steps every long-running command starts with. On
// failure it logs and exits the process.
func Bootstrap(ctx context.Context, configFile string) (*applog.Logger, *config.Config, *backend.Backend) {
	LoadEnvFile()

	cfg, err := LoadAndValidateConfig(configFile)
	if err != nil {
		// logging config is not known yet
		SetupLogger("info", "text").Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)

	b, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return logger, cfg, b
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
