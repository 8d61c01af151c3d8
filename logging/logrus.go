package logging

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to the library Logger interface
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a logrus logger. A nil logger uses logrus.StandardLogger().
func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

func (l *LogrusLogger) with(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}

func (l *LogrusLogger) Debug(msg string, fields ...Fields) {
	l.with(fields).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Fields) {
	l.with(fields).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Fields) {
	l.with(fields).Warn(msg)
}

func (l *LogrusLogger) Error(err error, msg string, fields ...Fields) {
	l.with(fields).WithError(err).Error(msg)
}

func (l *LogrusLogger) Fatal(err error, msg string, fields ...Fields) {
	l.with(fields).WithError(err).Fatal(msg)
}

func (l *LogrusLogger) WithFields(fields Fields) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return l.WithFields(fields)
	}
	return l
}

// SetLevel changes the level of the underlying logrus logger, which is
// shared by every LogrusLogger derived from it.
func (l *LogrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
