// Package observability provides structured logging and metrics for the
// Fermenator supervisor and its managed entities.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BuildLogger constructs a zap.Logger for the given level and format.
// format "console" yields human-readable development output; anything
// else (including the empty string) yields production JSON.
func BuildLogger(level, format string) (*zap.Logger, error) {
	return BuildLoggerToFile(level, format, "")
}

// BuildLoggerToFile is BuildLogger with an optional output file path; an
// empty outputPath logs to stderr, matching BuildLogger's default.
func BuildLoggerToFile(level, format, outputPath string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if level == "" {
		level = "info"
	}
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("observability.BuildLogger: invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if outputPath != "" {
		cfg.OutputPaths = []string{outputPath}
		cfg.ErrorOutputPaths = []string{outputPath}
	}

	return cfg.Build()
}
