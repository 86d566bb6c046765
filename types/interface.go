// Package types holds the small set of cross-cutting interfaces shared by
// every package in the module: the logging contract and the phase/component
// tags attached to log lines. Domain types (values, models, queries, cache)
// live in their own packages so each can be imported without pulling in the
// rest of the module.
package types

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Phase names the stage within a component a log line was emitted from,
// e.g. "dispatch.create", "pool.acquire", "cache.invalidate".
type Phase string

// StandardLogger provides the traditional Debug/Info/Warn/Error/Fatal
// logging methods, both plain and printf-style.
type StandardLogger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// StructuredLogger provides key-value structured logging. The 'w' suffix
// stands for "with" (structured data), matching the zap sugared logger
// convention this module's implementation is built on.
type StructuredLogger interface {
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
	Fatalw(msg string, keysAndValues ...any)
}

// ZapLogger provides structured logging with typed zap fields, for call
// sites that already have zap.Field values on hand (e.g. wrapping a
// driver error).
type ZapLogger interface {
	Debugz(msg string, fields ...zap.Field)
	Infoz(msg string, fields ...zap.Field)
	Warnz(msg string, fields ...zap.Field)
	Errorz(msg string, fields ...zap.Field)
	Fatalz(msg string, fields ...zap.Field)
}

// Logger combines all logging styles used across the module, plus a handful
// of context-attaching helpers used at package boundaries (alias, table,
// phase).
type Logger interface {
	StandardLogger
	StructuredLogger
	ZapLogger

	// With returns a logger with the given key/value string pairs attached
	// to every subsequent line. An odd number of args pads with "".
	With(fields ...string) Logger
	WithObject(name string, obj zapcore.ObjectMarshaler) Logger
	WithArray(name string, arr zapcore.ArrayMarshaler) Logger

	// WithOp tags the logger with the alias, table, and phase of the
	// operation it is reporting on.
	WithOp(alias, table string, phase Phase) Logger
}
