// internal/logger/pretty.go
package logger

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

func prettyEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(ColorCyan + "[DEBUG]" + ColorReset)
	case zapcore.InfoLevel:
		enc.AppendString(ColorGreen + "[INFO]" + ColorReset)
	case zapcore.WarnLevel:
		enc.AppendString(ColorYellow + "[WARN]" + ColorReset)
	case zapcore.ErrorLevel:
		enc.AppendString(ColorRed + "[ERROR]" + ColorReset)
	case zapcore.FatalLevel:
		enc.AppendString(ColorRed + ColorBold + "[FATAL]" + ColorReset)
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// CreatePrettyLogger creates a console logger with user-friendly messages.
// With debug set, structured fields are kept and the level drops to debug.
func CreatePrettyLogger(debug bool, file FileConfig) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	console := zapcore.NewCore(
		zapcore.NewConsoleEncoder(prettyEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)

	var core zapcore.Core = console
	if !debug {
		core = &FieldFilterCore{core: console}
	}
	if fileCore := NewFileCore(file, level); fileCore != nil {
		core = zapcore.NewTee(core, fileCore)
	}
	return zap.New(core)
}

// CreateTUILogger writes JSON into buffer for the log pane, plus the rotated
// file when configured. Nothing goes to the terminal.
func CreateTUILogger(debug bool, buffer *LogBuffer, file FileConfig) (*zap.Logger, error) {
	if buffer == nil {
		return nil, fmt.Errorf("buffer is required for TUI logger")
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buffer, level),
	}
	if fileCore := NewFileCore(file, level); fileCore != nil {
		cores = append(cores, fileCore)
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// FormatMessage turns well-known log messages into short readable lines.
func FormatMessage(msg string, fields ...zap.Field) string {
	switch {
	case strings.Contains(msg, "Wallet loaded"):
		return fmt.Sprintf("%s✓ Wallet %s connected%s", ColorGreen, extractField(fields, "address"), ColorReset)

	case strings.Contains(msg, "running read-only"):
		return fmt.Sprintf("%s👀 Read-only mode, trading disabled%s", ColorYellow, ColorReset)

	case strings.Contains(msg, "Market snapshot updated"):
		return fmt.Sprintf("%s📈 XAUT %s%s", ColorBlue, extractField(fields, "price"), ColorReset)

	case strings.Contains(msg, "Order submitted"):
		action := extractField(fields, "action")
		tx := extractField(fields, "tx_hash")
		return fmt.Sprintf("%s📤 %s submitted: %s%s", ColorYellow, action, shortenHash(tx), ColorReset)

	case strings.Contains(msg, "Order failed"):
		action := extractField(fields, "action")
		return fmt.Sprintf("%s✗ %s failed: %s%s", ColorRed, action, extractField(fields, "reason"), ColorReset)

	case strings.Contains(msg, "Position reloaded"):
		return fmt.Sprintf("%s💰 Position: %s%s", ColorPurple, extractField(fields, "side"), ColorReset)

	default:
		return msg
	}
}

func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch {
		case field.Type == zapcore.StringType:
			return field.String
		case field.Type == zapcore.Float64Type:
			return fmt.Sprintf("%.2f", math.Float64frombits(uint64(field.Integer)))
		case field.Interface != nil:
			return fmt.Sprintf("%v", field.Interface)
		default:
			return fmt.Sprintf("%d", field.Integer)
		}
	}
	return ""
}

func shortenHash(hash string) string {
	if len(hash) > 16 {
		return hash[:10] + "..." + hash[len(hash)-6:]
	}
	return hash
}

// FieldFilterCore drops structured fields and rewrites the message through
// FormatMessage.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	entry.Message = FormatMessage(entry.Message, all...)
	return c.core.Write(entry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
