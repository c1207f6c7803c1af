package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter backs the Logger interface with a zap sugared logger while
// hiding zap types from callers.
type ZapAdapter struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapLogger creates a console zap logger at the given level ("debug",
// "info", "warn", "error"; anything else means info).
func NewZapLogger(level string) (*ZapAdapter, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.DisableStacktrace = true

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &ZapAdapter{
		logger: zapLogger,
		sugar:  zapLogger.Sugar(),
	}, nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *ZapAdapter) Debugf(format string, args ...interface{}) {
	z.sugar.Debugf(format, args...)
}

func (z *ZapAdapter) Infof(format string, args ...interface{}) {
	z.sugar.Infof(format, args...)
}

func (z *ZapAdapter) Warnf(format string, args ...interface{}) {
	z.sugar.Warnf(format, args...)
}

func (z *ZapAdapter) Errorf(format string, args ...interface{}) {
	z.sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries.
func (z *ZapAdapter) Sync() error {
	return z.logger.Sync()
}
