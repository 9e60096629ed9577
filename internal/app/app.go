package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/suite"
)

// SuiteLoader reads a suite definition from one or more paths.
type SuiteLoader interface {
	Load(ctx context.Context, paths ...string) (*suite.Suite, error)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader SuiteLoader
}

// NewApp is the constructor for the main application. Plans go to outW
// unless the config names an output file; logs go to logW through the app's
// own isolated logger.
func NewApp(outW, logW io.Writer, cfg *Config, loader SuiteLoader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
	}
}

// loadSuite reads the configured suite.
func (a *App) loadSuite(ctx context.Context) (*suite.Suite, error) {
	a.logger.Debug("Loading suite.", "path", a.config.SuitePath)
	s, err := a.loader.Load(ctx, a.config.SuitePath)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Suite loaded.", "suite", s.Name, "nodes", s.Len(), "clock", s.Clock.String())
	return s, nil
}
