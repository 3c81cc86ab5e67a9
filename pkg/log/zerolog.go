package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/YuminosukeSato/numtable/pkg/errors"
	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger creates a logger writing JSON lines to w at the given
// minimum level.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl}
}

// NewConsoleLogger creates a human-readable logger for terminals.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error. A leading error value is attached with
// Err, and its structured form is embedded when it provides one.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	e := z.logger.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = withError(e, err)
			fields = fields[1:]
		}
	}
	z.emit(e, msg, fields)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{logger: z.logger.With().Fields(normalizeFields(fields)).Logger()}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(ctx context.Context, level Level) bool {
	zlevel := toZerologLevel(level)
	return zlevel >= z.logger.GetLevel() && zlevel >= zerolog.GlobalLevel()
}

// Zerolog returns the underlying zerolog logger.
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.logger
}

func (z *ZerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(normalizeFields(fields))
	}
	e.Msg(msg)
}

func withError(e *zerolog.Event, err error) *zerolog.Event {
	e = e.Err(err)
	var tableErr *errors.TableError
	if errors.As(err, &tableErr) {
		e = e.Object("error_detail", tableErr)
	}
	return e
}

// normalizeFields turns error values into strings so they serialize the same
// way in every backend.
func normalizeFields(fields []any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		if err, ok := f.(error); ok && i%2 == 1 {
			out[i] = err.Error()
			continue
		}
		out[i] = f
	}
	return out
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ZerologProvider implements LoggerProvider with zerolog loggers sharing one
// writer.
type ZerologProvider struct {
	mu     sync.RWMutex
	w      io.Writer
	level  Level
	logger *ZerologLogger
}

// NewZerologProvider creates a provider writing to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{w: w, level: level, logger: NewZerologLogger(w, level)}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.logger = NewZerologLogger(p.w, level)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(os.Stderr, LevelWarn)
)

// GetLogger returns the package-wide logger used by numtable components.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the package-wide logger. A nil logger discards output.
func SetLogger(l Logger) {
	if l == nil {
		l = NewZerologLogger(io.Discard, LevelError)
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Component returns the package-wide logger tagged with a component name.
func Component(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

func init() {
	errors.SetZerologWarnFunc(logWarning)
}

// logWarning routes errors.Warn through the package-wide logger.
func logWarning(w error) {
	l := GetLogger()
	if zl, ok := l.(*ZerologLogger); ok {
		e := zl.logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.EmbedObject(m)
		}
		e.Msg(w.Error())
		return
	}
	l.Warn(w.Error(), ErrorTypeKey, "warning")
}
