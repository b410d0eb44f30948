package logger

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig controls the rotated JSON log file.
type FileConfig struct {
	LogFile    string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
	Compress   bool
}

// DefaultFileConfig returns the rotation settings used when none are configured.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		LogFile:    "logs/xaut-perp.log",
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

// NewFileCore returns a JSON core writing to a lumberjack-rotated file, or
// nil when cfg.LogFile is empty.
func NewFileCore(cfg FileConfig, level zapcore.LevelEnabler) zapcore.Core {
	if cfg.LogFile == "" {
		return nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level)
}

// WithOperation tags a logger with an operation name and a fresh correlation id.
func WithOperation(logger *zap.Logger, operation string) *zap.Logger {
	return logger.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
	)
}

// TrackPerformance logs the duration of an operation when the returned func runs.
func TrackPerformance(logger *zap.Logger, operation string) (end func()) {
	start := time.Now()
	opLogger := WithOperation(logger, operation)
	opLogger.Debug("Starting operation")

	return func() {
		opLogger.Debug("Operation completed", zap.Duration("duration", time.Since(start)))
	}
}

// Sync flushes the logger, ignoring the errors terminals return for stdout.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && (err.Error() == "sync /dev/stdout: invalid argument" ||
		err.Error() == "sync /dev/stdout: inappropriate ioctl for device" ||
		err.Error() == "sync /dev/stderr: inappropriate ioctl for device") {
		return nil
	}
	return err
}
