package logger

import (
	"github.com/forbearing/quickdb/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// noop is the zero-value types.Logger used before logger/zap.Init wires the
// real loggers. It discards everything.
type noop struct{}

var _ types.Logger = noop{}

func (noop) Debug(args ...any) {}
func (noop) Info(args ...any)  {}
func (noop) Warn(args ...any)  {}
func (noop) Error(args ...any) {}
func (noop) Fatal(args ...any) {}

func (noop) Debugf(format string, args ...any) {}
func (noop) Infof(format string, args ...any)  {}
func (noop) Warnf(format string, args ...any)  {}
func (noop) Errorf(format string, args ...any) {}
func (noop) Fatalf(format string, args ...any) {}

func (noop) Debugw(msg string, keysAndValues ...any) {}
func (noop) Infow(msg string, keysAndValues ...any)  {}
func (noop) Warnw(msg string, keysAndValues ...any)  {}
func (noop) Errorw(msg string, keysAndValues ...any) {}
func (noop) Fatalw(msg string, keysAndValues ...any) {}

func (noop) Debugz(msg string, fields ...zap.Field) {}
func (noop) Infoz(msg string, fields ...zap.Field)  {}
func (noop) Warnz(msg string, fields ...zap.Field)  {}
func (noop) Errorz(msg string, fields ...zap.Field) {}
func (noop) Fatalz(msg string, fields ...zap.Field) {}

func (n noop) With(fields ...string) types.Logger                           { return n }
func (n noop) WithObject(name string, obj zapcore.ObjectMarshaler) types.Logger { return n }
func (n noop) WithArray(name string, arr zapcore.ArrayMarshaler) types.Logger   { return n }
func (n noop) WithOp(alias, table string, phase types.Phase) types.Logger    { return n }
