// Package observability sets up structured logging and the per-run counters
// reported at the end of a pipeline run.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	Level  string
	Format string
	// Output defaults to stderr so stdout stays clean for reports.
	Output zapcore.WriteSyncer
}

// NewLogger builds a zap logger.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q", cfg.Level)
		}
		level = l
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(ec)
	case FormatJSON:
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(ec)
	default:
		return nil, fmt.Errorf("invalid log format %q (want console or json)", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	return zap.New(zapcore.NewCore(encoder, out, level), zap.ErrorOutput(out)), nil
}

// NewRunID returns an identifier correlating every log line of one run.
func NewRunID() string {
	return uuid.NewString()
}

// WithRun tags a logger with the run id and warehouse dialect.
func WithRun(logger *zap.Logger, runID, dialect string) *zap.Logger {
	return logger.With(zap.String("run_id", runID), zap.String("dialect", dialect))
}
