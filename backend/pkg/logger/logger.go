package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a global logger instance
var Logger *zap.Logger

var (
	level    = zap.NewAtomicLevelAt(zap.InfoLevel)
	fallback *zap.Logger
	once     sync.Once
)

// Init initializes the global logger. Production logs JSON at info, anything
// else logs colored console output at debug. Output always goes to stderr so
// command output on stdout stays machine-readable.
func Init(env string) error {
	cfg := newConfig(env)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Logger = l
	return nil
}

func newConfig(env string) zap.Config {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		level.SetLevel(zap.InfoLevel)
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		level.SetLevel(zap.DebugLevel)
	}
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

// SetLevel changes the level of the global logger at runtime. An empty
// string leaves the level untouched.
func SetLevel(name string) error {
	if name == "" {
		return nil
	}
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Get returns the global logger instance
func Get() *zap.Logger {
	if Logger != nil {
		return Logger
	}
	// Not initialized (tests, library use): build a development logger once
	once.Do(func() {
		l, err := newConfig("development").Build()
		if err != nil {
			l = zap.NewNop()
		}
		fallback = l
	})
	return fallback
}

// ForRun returns a child logger tagged with an extraction run ID
func ForRun(runID string) *zap.Logger {
	return Get().With(zap.String("run_id", runID))
}
