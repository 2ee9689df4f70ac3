package logging

import (
	"context"
	"io"
	"maps"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the library's logrus-backed logger.
// Debug/Info -> stdout
// Warn/Error/Fatal -> stderr
// Colors are only used when stdout is a terminal.
type DefaultLogger struct {
	stdoutLogger *logrus.Logger
	stderrLogger *logrus.Logger
	level        Level
	fields       Fields
}

// NewDefaultLogger creates a new default logger with colored output on a terminal
func NewDefaultLogger() *DefaultLogger {
	return newDefaultLogger(os.Stdout, os.Stderr, isTerminal())
}

// NewDefaultLoggerNoColor creates a new default logger without colored output
func NewDefaultLoggerNoColor() *DefaultLogger {
	return newDefaultLogger(os.Stdout, os.Stderr, false)
}

// NewDefaultLoggerWithWriter sends every level to w, without colors.
func NewDefaultLoggerWithWriter(w io.Writer) *DefaultLogger {
	return newDefaultLogger(w, w, false)
}

func newDefaultLogger(stdout, stderr io.Writer, useColors bool) *DefaultLogger {
	return &DefaultLogger{
		stdoutLogger: newLogrus(stdout, useColors),
		stderrLogger: newLogrus(stderr, useColors),
		level:        InfoLevel,
		fields:       make(Fields),
	}
}

func newLogrus(w io.Writer, useColors bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	// filtering happens in DefaultLogger.log so derived loggers keep their own level
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: !useColors,
		ForceColors:   useColors,
		FullTimestamp: true,
	})
	return l
}

// isTerminal checks if stdout is a character device
func isTerminal() bool {
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func (d *DefaultLogger) setColors(enabled bool) {
	for _, l := range []*logrus.Logger{d.stdoutLogger, d.stderrLogger} {
		if f, ok := l.Formatter.(*logrus.TextFormatter); ok {
			f.DisableColors = !enabled
			f.ForceColors = enabled
		}
	}
}

func (d *DefaultLogger) entry(target *logrus.Logger, err error, fields []Fields) *logrus.Entry {
	all := make(logrus.Fields, len(d.fields))
	maps.Copy(all, d.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}
	e := target.WithFields(all)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < d.level {
		return
	}

	switch level {
	case DebugLevel:
		d.entry(d.stdoutLogger, err, fields).Debug(msg)
	case InfoLevel:
		d.entry(d.stdoutLogger, err, fields).Info(msg)
	case WarnLevel:
		d.entry(d.stderrLogger, err, fields).Warn(msg)
	case ErrorLevel:
		d.entry(d.stderrLogger, err, fields).Error(msg)
	case FatalLevel:
		d.entry(d.stderrLogger, err, fields).Fatal(msg)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	newFields := make(Fields, len(d.fields)+len(fields))
	maps.Copy(newFields, d.fields)
	maps.Copy(newFields, fields)

	return &DefaultLogger{
		stdoutLogger: d.stdoutLogger,
		stderrLogger: d.stderrLogger,
		level:        d.level,
		fields:       newFields,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything. Tests and callers that want a silent library use it.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
