// Package log is the application's logging facade. It keeps a small leveled
// API (Info, Warn, Error, Debug and their formatted variants) with optional
// structured fields, backed by logrus.
package log

import (
	"io"
	"os"
	"sync/atomic"

	"vaultnorm/internal/errors"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool
	current atomic.Pointer[Logger]
)

func init() {
	current.Store(NewLogger())
}

// std returns the package logger. Configure may swap it at any time.
func std() *Logger {
	return current.Load()
}

// Field is a single structured key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Option configures a Logger.
type Option func(*logrus.Logger)

// WithOutput sends log output to w.
func WithOutput(w io.Writer) Option {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

// WithJSON switches the logger to JSON lines.
func WithJSON() Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	}
}

// Logger writes leveled entries, optionally carrying fields.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger writing text to stderr unless options say otherwise.
func NewLogger(opts ...Option) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	// Debug output is gated by SetDebug, so the backend always accepts it.
	l.SetLevel(logrus.DebugLevel)
	for _, opt := range opts {
		opt(l)
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data)}
}

// WithError returns a logger carrying err and, for application errors,
// its kind and subject (path, parameter or rule name).
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	fields := []Field{F("error", err.Error())}
	if kind := errors.KindOf(err); kind != errors.Unknown {
		fields = append(fields, F("error_kind", kind.String()))
	}
	var fileErr *errors.FileError
	if errors.As(err, &fileErr) && fileErr.Path() != "" {
		fields = append(fields, F("path", fileErr.Path()))
	}
	var configErr *errors.ConfigError
	if errors.As(err, &configErr) && configErr.Param() != "" {
		fields = append(fields, F("param", configErr.Param()))
	}
	var ruleErr *errors.RuleError
	if errors.As(err, &ruleErr) && ruleErr.RuleName() != "" {
		fields = append(fields, F("rule_name", ruleErr.RuleName()))
	}
	return l.With(fields...)
}

func (l *Logger) Info(args ...interface{}) { l.entry.Info(args...) }

func (l *Logger) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *Logger) Warn(args ...interface{}) { l.entry.Warn(args...) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *Logger) Error(args ...interface{}) { l.entry.Error(args...) }

func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// Debug logs only when debug output is enabled.
func (l *Logger) Debug(args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debug(args...)
	}
}

// Debugf logs a formatted message only when debug output is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if isDebug.Load() {
		l.entry.Debugf(format, args...)
	}
}

// SetDebug toggles debug output for every logger.
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// Configure replaces the package logger. Loggers already returned by
// LogWithFields keep writing where they did.
func Configure(opts ...Option) {
	current.Store(NewLogger(opts...))
}

// LogWithFields returns the package logger carrying fields.
func LogWithFields(fields ...Field) *Logger {
	return std().With(fields...)
}

// LogWithError returns the package logger carrying err.
func LogWithError(err error) *Logger {
	return std().WithError(err)
}

// LogError logs err at error level with msg.
func LogError(err error, msg string) {
	std().WithError(err).Error(msg)
}

func Info(args ...interface{}) { std().Info(args...) }

func Infof(format string, args ...interface{}) { std().Infof(format, args...) }

func Debug(args ...interface{}) { std().Debug(args...) }

func Debugf(format string, args ...interface{}) { std().Debugf(format, args...) }

func Warn(args ...interface{}) { std().Warn(args...) }

func Warnf(format string, args ...interface{}) { std().Warnf(format, args...) }

func Error(args ...interface{}) { std().Error(args...) }

func Errorf(format string, args ...interface{}) { std().Errorf(format, args...) }
