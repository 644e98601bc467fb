// Package log provides logging services. All logging goes through this layer so that the
// rest of the code doesn't care which logging implementation sits underneath (logrus at the moment).
package log

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type LogLevel int

const (
	TraceLevel LogLevel = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (level LogLevel) String() string {
	if level < TraceLevel || level > FatalLevel {
		return "unknown"
	}
	return [...]string{"trace", "debug", "info", "warn", "error", "fatal"}[level]
}

// Logger writes trace, debug and info to one writer and warn, error and fatal to another.
type Logger struct {
	level  *atomic.Int32 // shared with loggers derived through WithPrefix
	prefix string
	info   *logrus.Logger
	errors *logrus.Logger
}

func newBackend(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.TraceLevel) // gating happens in Logger
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:    true,
		DisableColors:    true,
		DisableQuote:     true,
		QuoteEmptyFields: true,
	})
	return l
}

func NewLogger(infoOutput, errorOutput io.Writer) *Logger {
	return NewWithPrefix(infoOutput, errorOutput, "")
}

func NewWithPrefix(infoOutput, errorOutput io.Writer, prefix string) *Logger {
	level := new(atomic.Int32)
	level.Store(int32(InfoLevel))
	return &Logger{
		level:  level,
		prefix: prefix,
		info:   newBackend(infoOutput),
		errors: newBackend(errorOutput),
	}
}

// WithPrefix returns a logger sharing outputs and level with l but tagged with another prefix.
// Changing the level of either changes both.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		level:  l.level,
		prefix: prefix,
		info:   l.info,
		errors: l.errors,
	}
}

func (l *Logger) entry(backend *logrus.Logger) *logrus.Entry {
	if l.prefix == "" {
		return logrus.NewEntry(backend)
	}
	return backend.WithField("module", l.prefix)
}

var defaultLogger *Logger

func init() {
	defaultLogger = NewLogger(os.Stdout, os.Stderr)
}

// Default returns the package level logger.
func Default() *Logger {
	return defaultLogger
}

func Trace(v ...interface{}) {
	defaultLogger.Trace(v...)
}

func Debug(v ...interface{}) {
	defaultLogger.Debug(v...)
}

func Info(v ...interface{}) {
	defaultLogger.Info(v...)
}

func Warn(v ...interface{}) {
	defaultLogger.Warn(v...)
}

func Error(v ...interface{}) {
	defaultLogger.Error(v...)
}

func Fatal(v ...interface{}) {
	defaultLogger.Fatal(v...)
}

func Tracef(format string, v ...interface{}) {
	defaultLogger.Tracef(format, v...)
}

func Debugf(format string, v ...interface{}) {
	defaultLogger.Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	defaultLogger.Infof(format, v...)
}

func Warnf(format string, v ...interface{}) {
	defaultLogger.Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	defaultLogger.Errorf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	defaultLogger.Fatalf(format, v...)
}

// Printf logs at info level. It makes the logger usable where a Printf-style logger is expected (kafka-go).
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(TraceLevel) {
		l.entry(l.info).Tracef(format, v...)
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(DebugLevel) {
		l.entry(l.info).Debugf(format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.enabled(InfoLevel) {
		l.entry(l.info).Infof(format, v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(WarnLevel) {
		l.entry(l.errors).Warnf(format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(ErrorLevel) {
		l.entry(l.errors).Errorf(format, v...)
	}
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.entry(l.errors).Fatalf(format, v...)
}

func (l *Logger) Trace(v ...interface{}) {
	if l.enabled(TraceLevel) {
		l.entry(l.info).Traceln(v...)
	}
}

func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(DebugLevel) {
		l.entry(l.info).Debugln(v...)
	}
}

func (l *Logger) Info(v ...interface{}) {
	if l.enabled(InfoLevel) {
		l.entry(l.info).Infoln(v...)
	}
}

func (l *Logger) Warn(v ...interface{}) {
	if l.enabled(WarnLevel) {
		l.entry(l.errors).Warnln(v...)
	}
}

func (l *Logger) Error(v ...interface{}) {
	if l.enabled(ErrorLevel) {
		l.entry(l.errors).Errorln(v...)
	}
}

func (l *Logger) Fatal(v ...interface{}) {
	l.entry(l.errors).Fatalln(v...)
}

func ParseLevel(level string) (LogLevel, error) {
	switch level {
	case "": // Default choice.
		return InfoLevel, nil
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown loglevel: %s", level)
	}
}

func (l *Logger) SetLevelFromString(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(lvl)
	return nil
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

func (l *Logger) Level() LogLevel {
	return LogLevel(l.level.Load())
}

func (l *Logger) enabled(level LogLevel) bool {
	return l.Level() <= level
}

func SetLevelFromString(level string) error {
	return defaultLogger.SetLevelFromString(level)
}

func SetLevel(level LogLevel) {
	defaultLogger.SetLevel(level)
}
