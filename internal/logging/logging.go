// Package logging builds the zap logger used across the loader.
package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RedactedText replaces credentials in logged values.
const RedactedText = "[REDACTED]"

// Matches user:pass@host in connection URLs.
var credentialsPattern = regexp.MustCompile(`://([^:/@]+):[^@]+@`)

// New creates a logger at the given level. Development loggers write
// human-readable console output; production loggers write JSON.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = !development

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// RedactURL hides the password of a connection URL so it can be logged.
func RedactURL(connStr string) string {
	return credentialsPattern.ReplaceAllString(connStr, "://${1}:"+RedactedText+"@")
}
