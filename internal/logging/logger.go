package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type requestIDKey struct{}

// RequestIDKey is the context key the HTTP middleware stores request IDs under.
var RequestIDKey = requestIDKey{}

type Logger struct {
	*zap.Logger
}

func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

// NewDevelopment builds a human-readable console logger for the CLI.
// Verbose enables the debug-level resolution trace.
func NewDevelopment(verbose bool) (*Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.DisableStacktrace = true
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

func Nop() *Logger {
	return &Logger{zap.NewNop()}
}

func (l *Logger) WithRequestID(ctx context.Context) *zap.Logger {
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		return l.With(zap.String("request_id", reqID))
	}
	return l.Logger
}
