package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core)}, logs
}

func TestLogOrder(t *testing.T) {
	l, logs := observedLogger()

	l.LogOrder("submitted", "c1", map[string]interface{}{"instrument": "AAPL"})

	entries := logs.FilterMessage("order_event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "submitted", fields["event"])
	assert.Equal(t, "c1", fields["client_order_id"])
	assert.Equal(t, "AAPL", fields["instrument"])
	assert.NotEmpty(t, fields["ts"])
}

func TestLogReconcile(t *testing.T) {
	l, logs := observedLogger()

	l.LogReconcile("conflicts_resolved", map[string]interface{}{"conflicts": int64(2)})

	entries := logs.FilterMessage("reconcile_event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "conflicts_resolved", entries[0].ContextMap()["event"])
}

func TestLogError(t *testing.T) {
	l, logs := observedLogger()

	l.LogError(errors.New("venue unreachable"), map[string]interface{}{"op": "reconcile"})

	entries := logs.FilterMessage("error_event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "venue unreachable", entries[0].ContextMap()["error"])
}

func TestWithFields(t *testing.T) {
	l, logs := observedLogger()

	l.WithFields(map[string]interface{}{"component": "stream"}).Info("connected")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "stream", entries[0].ContextMap()["component"])
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.LogOrder("submitted", "c1", nil)
	require.NoError(t, l.Close())
}
