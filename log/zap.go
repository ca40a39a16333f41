package log

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"moul.io/zapfilter"
)

type (
	Level  = zapcore.Level
	Field  = zap.Field
	Option = zap.Option
	Logger struct {
		l     *zap.Logger
		level Level
	}
	ctxKey struct{}
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
	FatalLevel = zapcore.FatalLevel
)

var (
	WithCaller    = zap.WithCaller
	AddCallerSkip = zap.AddCallerSkip

	String     = zap.String
	Strings    = zap.Strings
	Int        = zap.Int
	Uint       = zap.Uint
	Float      = zap.Float64
	Bool       = zap.Bool
	Any        = zap.Any
	Time       = zap.Time
	Duration   = zap.Duration
	ErrorField = zap.Error
)

var std = New(os.Stderr, InfoLevel)

func Default() *Logger {
	return std
}

// ResetDefault replaces the logger used by the package level functions.
// Not thread safe, call it once during startup.
func ResetDefault(l *Logger) {
	std = l
}

// New creates a logger writing json encoded entries to writer.
func New(writer io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg.EncoderConfig),
		zapcore.AddSync(writer),
		zap.NewAtomicLevelAt(level),
	)
	return &Logger{l: zap.New(core, opts...), level: level}
}

// DevLogger creates a logger writing human readable console output to writer.
func DevLogger(writer io.Writer, level Level, opts ...Option) *Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(writer),
		zap.NewAtomicLevelAt(level),
	)
	return &Logger{l: zap.New(core, opts...), level: level}
}

// WithFilter returns an option that applies zapfilter rules
// (for example "debug+:pipeline.* info+:*") on top of the logger core.
// The logger level should be DebugLevel to let the rules decide.
func WithFilter(rules string) (Option, error) {
	filter, err := zapfilter.ParseRules(rules)
	if err != nil {
		return nil, err
	}
	return zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapfilter.NewFilteringCore(c, filter)
	}), nil
}

func ParseLevel(text string) (Level, error) {
	return zapcore.ParseLevel(text)
}

func (l *Logger) Named(name string) *Logger {
	return &Logger{l: l.l.Named(name), level: l.level}
}

func (l *Logger) WithOptions(opts ...Option) *Logger {
	return &Logger{l: l.l.WithOptions(opts...), level: l.level}
}

func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{l: l.l.With(fields...), level: l.level}
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.l.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.l.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.l.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.l.Error(msg, fields...)
}

func (l *Logger) Fatal(msg string, fields ...Field) {
	l.l.Fatal(msg, fields...)
}

func (l *Logger) Log(lvl Level, msg string, fields ...Field) {
	l.l.Log(lvl, msg, fields...)
}

func (l *Logger) Sync() error {
	return l.l.Sync()
}

func AddToContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// GetFromContext returns the logger stored in ctx or the default logger.
func GetFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return std
}

func Debug(msg string, fields ...Field) { std.Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { std.Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { std.Warn(msg, fields...) }
func Error(msg string, fields ...Field) { std.Error(msg, fields...) }
func Fatal(msg string, fields ...Field) { std.Fatal(msg, fields...) }
func Sync() error                       { return std.Sync() }
