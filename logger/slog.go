package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sqlbulk/sqlbulk/utils"
)

// SlogLogger implements Interface using the stdlib structured logger
type SlogLogger struct {
	Logger                    *slog.Logger
	LogLevel                  LogLevel
	SlowThreshold             time.Duration
	Parameterized             bool
	IgnoreRecordNotFoundError bool
}

// NewSlogLogger creates a new logger over an existing slog.Logger
func NewSlogLogger(logger *slog.Logger, config Config) Interface {
	return &SlogLogger{
		Logger:                    logger,
		LogLevel:                  config.LogLevel,
		SlowThreshold:             config.SlowThreshold,
		Parameterized:             config.ParameterizedQueries,
		IgnoreRecordNotFoundError: config.IgnoreRecordNotFoundError,
	}
}

// NewSlogLoggerWithConfig creates a new slog logger writing JSON to stdout
func NewSlogLoggerWithConfig(config Config) Interface {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: SlogLevel(config.LogLevel),
	})
	return NewSlogLogger(slog.New(handler), config)
}

// LogMode sets the log level
func (l *SlogLogger) LogMode(level LogLevel) Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

// Info logs info messages
func (l *SlogLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Info {
		l.emit(ctx, slog.LevelInfo, msg, slog.Any("data", data))
	}
}

// Warn logs warning messages
func (l *SlogLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Warn {
		l.emit(ctx, slog.LevelWarn, msg, slog.Any("data", data))
	}
}

// Error logs error messages
func (l *SlogLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= Error {
		l.emit(ctx, slog.LevelError, msg, slog.Any("data", data))
	}
}

// Trace logs SQL execution details
func (l *SlogLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= Silent {
		return
	}

	elapsed := time.Since(begin)

	var level slog.Level
	switch {
	case err != nil && (!l.IgnoreRecordNotFoundError || !errors.Is(err, ErrRecordNotFound)):
		level = slog.LevelError
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold:
		level = slog.LevelWarn
	case l.LogLevel >= Info:
		level = slog.LevelInfo
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("duration", fmt.Sprintf("%.3fms", float64(elapsed.Nanoseconds())/1e6)),
		slog.String("sql", sql),
	}
	if rows != -1 {
		attrs = append(attrs, slog.Int64("rows", rows))
	}
	if level == slog.LevelError {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if level == slog.LevelWarn && l.SlowThreshold != 0 {
		attrs = append(attrs, slog.String("slow_threshold", l.SlowThreshold.String()))
	}

	l.emit(ctx, level, "SQL executed", attrs...)
}

// emit hands a record to the handler directly so the caller location is the
// bulk call site, not this adapter
func (l *SlogLogger) emit(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Logger.Enabled(ctx, level) {
		return
	}

	r := slog.NewRecord(time.Now(), level, msg, utils.CallerFrame().PC)
	r.AddAttrs(attrs...)
	_ = l.Logger.Handler().Handle(ctx, r)
}

// ParamsFilter filters SQL parameters
func (l *SlogLogger) ParamsFilter(ctx context.Context, sql string, params ...interface{}) (string, []interface{}) {
	if l.Parameterized {
		return sql, nil
	}
	return sql, params
}

// SlogLevel converts LogLevel to slog.Level
func SlogLevel(level LogLevel) slog.Level {
	switch level {
	case Error:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
