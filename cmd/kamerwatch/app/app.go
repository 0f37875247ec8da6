// Package app provides the application context and dependency management for
// the kamerwatch CLI: configuration, logging, and the lazily created engine
// instance.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/kamerwatch/kamerwatch"
)

// App represents the kamerwatch application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Engine instance (lazy-initialized, singleton)
	mu    sync.Mutex
	watch kamerwatch.Kamerwatch
}

// New creates a new App instance with the given version information.
func New(version, commit, date string) (*App, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(config)

	return &App{
		version: version,
		commit:  commit,
		date:    date,
		config:  config,
		logger:  &logger,
	}, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Kamerwatch returns the engine instance, creating it lazily from the
// application configuration.
func (a *App) Kamerwatch() (kamerwatch.Kamerwatch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watch != nil {
		return a.watch, nil
	}

	opts := []kamerwatch.Option{
		kamerwatch.WithConfigFile(a.config.DossierFile),
		kamerwatch.WithSnapshotDir(a.config.SnapshotDir),
		kamerwatch.WithResultsDir(a.config.ResultsDir),
	}
	if a.config.WebhookURL != "" {
		opts = append(opts, kamerwatch.WithWebhook(a.config.WebhookURL))
	}

	kw, err := kamerwatch.New(opts...)
	if err != nil {
		return nil, err
	}
	a.watch = kw
	return kw, nil
}

// ContextWithSignals returns a context cancelled on SIGINT or SIGTERM.
func ContextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// ExitOnError prints the error to stderr and exits with status 1.
func ExitOnError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
