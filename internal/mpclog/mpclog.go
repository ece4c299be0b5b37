// Package mpclog is a thin github.com/sirupsen/logrus wrapper giving every
// subsystem that can fail mid-flight (executor, preprocessing generator,
// node service) a consistent field vocabulary: computation_id,
// protocol_address, step. JSON formatting in production, text in
// development, mirroring the level-per-subsystem setup
// orbas1-Synnergy/cmd/config/config.go wires up for its own core packages.
package mpclog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Entry, narrowing the API to the fields this
// system actually attaches rather than exposing every logrus method.
type Logger struct {
	entry *logrus.Entry
}

// Config controls the base logger's format and destination.
type Config struct {
	JSON   bool
	Level  logrus.Level
	Output io.Writer // defaults to os.Stderr when nil
}

// New builds a root Logger from cfg. Every subsystem that needs its own
// fields should call With* on the returned Logger rather than constructing
// a second root.
func New(cfg Config) *Logger {
	l := logrus.New()
	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	l.SetLevel(cfg.Level)
	return &Logger{entry: logrus.NewEntry(l)}
}

// WithComputation narrows this logger to one computation's scope.
func (l *Logger) WithComputation(id string) *Logger {
	return &Logger{entry: l.entry.WithField("computation_id", id)}
}

// WithProtocol narrows this logger to one protocol node within a
// computation.
func (l *Logger) WithProtocol(address string) *Logger {
	return &Logger{entry: l.entry.WithField("protocol_address", address)}
}

// WithStep narrows this logger to one plan step index.
func (l *Logger) WithStep(step int) *Logger {
	return &Logger{entry: l.entry.WithField("step", step)}
}

// WithField attaches an arbitrary field, for subsystem-specific context
// (preprocessing kind, party id) that doesn't warrant its own named
// helper.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// WithError attaches err under logrus's conventional "error" field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}
