package app

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kamerwatch/kamerwatch/pkg/logging"
)

// NewLogger creates a configured logger for the application. Log level
// precedence (highest to lowest): --verbose/--quiet flags, LOG_LEVEL
// environment variable, default (info). The logger becomes the package-level
// default so library code logs through the same sink.
func NewLogger(config *Config) zerolog.Logger {
	var out io.Writer = os.Stderr
	var logger zerolog.Logger

	switch config.LogFormat {
	case "json":
		logger = logging.New(out)
	case "console":
		logger = logging.NewConsole()
	default:
		logger = createAutoLogger(out)
	}

	logger = logger.Level(determineLogLevel(config))
	logging.SetDefault(logger)
	return logger
}

func createAutoLogger(out io.Writer) zerolog.Logger {
	if fileInfo, err := os.Stderr.Stat(); err == nil && fileInfo.Mode()&os.ModeCharDevice != 0 {
		return logging.NewConsole()
	}
	return logging.New(out)
}

// determineLogLevel determines the log level using clear precedence rules.
func determineLogLevel(config *Config) zerolog.Level {
	if config.Verbose && config.Quiet {
		return zerolog.WarnLevel
	}
	if config.Verbose {
		return zerolog.DebugLevel
	}
	if config.Quiet {
		return zerolog.WarnLevel
	}

	if config.LogLevel != "" {
		if level, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			return level
		}
	}
	return zerolog.InfoLevel
}
