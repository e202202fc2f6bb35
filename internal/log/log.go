// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2026-present Datadog, Inc.

// Package log is the logging facade of the mock trace agent. It exposes the
// same package-level functions as the agent logger, backed by zap.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	traceLevel    = zapcore.DebugLevel - 1
	criticalLevel = zapcore.DPanicLevel
	offLevel      = zapcore.FatalLevel + 1

	maxBufferedLogs = 1000
)

var (
	logger = atomic.NewPointer[mockLogger](nil)

	// This buffer holds log lines sent to the logger before its
	// initialization. It is replayed by SetupLogger.
	logsBuffer           = []func(){}
	bufferLogsBeforeInit = true
	bufferMutex          sync.Mutex
)

type mockLogger struct {
	inner *zap.Logger
	level zap.AtomicLevel
}

// SetupLogger configures the logger singleton to write to output at the given
// level. A nil output means stderr. Lines logged before the first call are
// flushed once the logger is ready.
func SetupLogger(level string, output io.Writer) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	if output == nil {
		output = os.Stderr
	}

	atomicLevel := zap.NewAtomicLevelAt(lvl)
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      encodeLevel,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05 MST"),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " | ",
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(zapcore.AddSync(output)),
		atomicLevel,
	)
	// the exported functions and emit add two frames
	inner := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2)).Named("MOCKTRACEAGENT")

	bufferMutex.Lock()
	defer bufferMutex.Unlock()
	logger.Store(&mockLogger{inner: inner, level: atomicLevel})
	bufferLogsBeforeInit = false
	for _, logLine := range logsBuffer {
		logLine()
	}
	logsBuffer = []func(){}
	return nil
}

// ChangeLogLevel changes the level of the current logger
func ChangeLogLevel(level string) error {
	l := logger.Load()
	if l == nil {
		return errors.New("cannot change the log level: logger not initialized")
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// GetLogLevel returns the name of the current log level
func GetLogLevel() (string, error) {
	l := logger.Load()
	if l == nil {
		return "", errors.New("cannot get the log level: logger not initialized")
	}
	return levelName(l.level.Level()), nil
}

// Flush flushes the underlying writer
func Flush() {
	if l := logger.Load(); l != nil {
		_ = l.inner.Sync()
	}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return traceLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "critical":
		return criticalLevel, nil
	case "off":
		return offLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q", level)
}

func levelName(l zapcore.Level) string {
	switch l {
	case traceLevel:
		return "trace"
	case criticalLevel:
		return "critical"
	case offLevel:
		return "off"
	}
	return l.String()
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(strings.ToUpper(levelName(l)))
}

func addLogToBuffer(logHandle func()) {
	bufferMutex.Lock()
	defer bufferMutex.Unlock()

	if logger.Load() != nil {
		logHandle()
		return
	}
	if !bufferLogsBeforeInit || len(logsBuffer) >= maxBufferedLogs {
		return
	}
	logsBuffer = append(logsBuffer, logHandle)
}

func emit(lvl zapcore.Level, bufferFunc func(), msg func() string) {
	l := logger.Load()
	if l == nil {
		addLogToBuffer(bufferFunc)
		return
	}
	if ce := l.inner.Check(lvl, ""); ce != nil {
		ce.Message = msg()
		ce.Write()
	}
}

func buildLogEntry(v ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}

// Trace logs at the trace level
func Trace(v ...interface{}) {
	emit(traceLevel, func() { Trace(v...) }, func() string { return buildLogEntry(v...) })
}

// Tracef logs with format at the trace level
func Tracef(format string, params ...interface{}) {
	emit(traceLevel, func() { Tracef(format, params...) }, func() string { return fmt.Sprintf(format, params...) })
}

// Debug logs at the debug level
func Debug(v ...interface{}) {
	emit(zapcore.DebugLevel, func() { Debug(v...) }, func() string { return buildLogEntry(v...) })
}

// Debugf logs with format at the debug level
func Debugf(format string, params ...interface{}) {
	emit(zapcore.DebugLevel, func() { Debugf(format, params...) }, func() string { return fmt.Sprintf(format, params...) })
}

// Info logs at the info level
func Info(v ...interface{}) {
	emit(zapcore.InfoLevel, func() { Info(v...) }, func() string { return buildLogEntry(v...) })
}

// Infof logs with format at the info level
func Infof(format string, params ...interface{}) {
	emit(zapcore.InfoLevel, func() { Infof(format, params...) }, func() string { return fmt.Sprintf(format, params...) })
}

// Warn logs at the warn level and returns an error containing the message
func Warn(v ...interface{}) error {
	msg := buildLogEntry(v...)
	emit(zapcore.WarnLevel, func() { _ = Warn(v...) }, func() string { return msg })
	return errors.New(msg)
}

// Warnf logs with format at the warn level and returns an error containing the
// formatted message
func Warnf(format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	emit(zapcore.WarnLevel, func() { _ = Warnf(format, params...) }, func() string { return msg })
	return errors.New(msg)
}

// Error logs at the error level and returns an error containing the message
func Error(v ...interface{}) error {
	msg := buildLogEntry(v...)
	emit(zapcore.ErrorLevel, func() { _ = Error(v...) }, func() string { return msg })
	return errors.New(msg)
}

// Errorf logs with format at the error level and returns an error containing
// the formatted message
func Errorf(format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	emit(zapcore.ErrorLevel, func() { _ = Errorf(format, params...) }, func() string { return msg })
	return errors.New(msg)
}

// Criticalf logs with format at the critical level and returns an error
// containing the formatted message
func Criticalf(format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	emit(criticalLevel, func() { _ = Criticalf(format, params...) }, func() string { return msg })
	return errors.New(msg)
}
