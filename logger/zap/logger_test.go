package zap_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/forbearing/quickdb/config"
	"github.com/forbearing/quickdb/logger/zap"
	"github.com/forbearing/quickdb/types"
	"github.com/stretchr/testify/require"
)

var (
	msg10    = "0000000000"
	msg100   = strings.Repeat(msg10, 10)
	msg1000  = strings.Repeat(msg10, 100)
	msg10000 = strings.Repeat(msg10, 1000)

	keyValues10  = []string{}
	keyValues100 = []string{}
)

func init() {
	for i := range 10 {
		keyValues10 = append(keyValues10, "key"+strconv.Itoa(i), "value"+strconv.Itoa(i))
	}
	for i := range 100 {
		keyValues100 = append(keyValues100, "key"+strconv.Itoa(i), "value"+strconv.Itoa(i))
	}
}

func createLogger(b *testing.B, filename string) types.Logger {
	require.NoError(b, config.Init())
	config.App.AppInfo.Dir = b.TempDir()
	return zap.New(filename)
}

func TestLogger(t *testing.T) {
	require.NoError(t, config.Init())
	l := zap.New("")
	l.With("key1", "value1", "key2", "value2").Info("hello world")
	l.WithOp("default", "users", types.Phase("create")).Infow("create record", "id", 1)
}

func BenchmarkLogger_File10(b *testing.B) {
	l := createLogger(b, "test.log")

	for b.Loop() {
		l.Infoz(msg10)
	}
}

func BenchmarkLogger_File100(b *testing.B) {
	l := createLogger(b, "test.log")

	for b.Loop() {
		l.Infoz(msg100)
	}
}

func BenchmarkLogger_File1000(b *testing.B) {
	l := createLogger(b, "test.log")

	for b.Loop() {
		l.Infoz(msg1000)
	}
}

func BenchmarkLogger_File10000(b *testing.B) {
	l := createLogger(b, "test.log")

	for b.Loop() {
		l.Infoz(msg10000)
	}
}

func BenchmarkLogger_Discard10(b *testing.B) {
	l := createLogger(b, "/dev/null")

	for b.Loop() {
		l.Infoz(msg10)
	}
}

func BenchmarkLogger_Discard100(b *testing.B) {
	l := createLogger(b, "/dev/null")

	for b.Loop() {
		l.Infoz(msg100)
	}
}

func BenchmarkLogger_Discard1000(b *testing.B) {
	l := createLogger(b, "/dev/null")
	for b.Loop() {
		l.Infoz(msg1000)
	}
}

func BenchmarkLogger_Discard10000(b *testing.B) {
	l := createLogger(b, "/dev/null")

	for b.Loop() {
		l.Infoz(msg10000)
	}
}

func BenchmarkLogger_With10(b *testing.B) {
	l := createLogger(b, "test.log")

	b.ReportAllocs()
	for b.Loop() {
		l.With(keyValues10...).Info(msg10)
	}
}

func BenchmarkLogger_With100(b *testing.B) {
	l := createLogger(b, "test.log")

	b.ReportAllocs()
	for b.Loop() {
		l.With(keyValues100...).Info(msg10)
	}
}
