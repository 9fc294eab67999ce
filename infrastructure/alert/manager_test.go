package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerFansOut(t *testing.T) {
	a := NewMockChannel("a")
	b := NewMockChannel("b")
	m := NewManager([]Channel{a, b}, time.Minute)

	require.NoError(t, m.SendError("reconciliation is stale", map[string]interface{}{"runs": 3}))

	require.Len(t, a.Alerts, 1)
	require.Len(t, b.Alerts, 1)
	assert.Equal(t, LevelError, a.Alerts[0].Level)
	assert.False(t, a.Alerts[0].Timestamp.IsZero())
}

func TestManagerThrottlesRepeats(t *testing.T) {
	ch := NewMockChannel("a")
	m := NewManager([]Channel{ch}, time.Minute)

	require.NoError(t, m.SendWarning("venue unreachable", nil))
	require.NoError(t, m.SendWarning("venue unreachable", nil))
	assert.Len(t, ch.Alerts, 1, "repeat within interval is dropped")

	// a different message is its own throttle key
	require.NoError(t, m.SendWarning("stream disconnected", nil))
	assert.Len(t, ch.Alerts, 2)
}

func TestManagerErrorOnlyWhenNothingDelivered(t *testing.T) {
	bad := NewMockChannel("bad")
	bad.ShouldErr = true
	good := NewMockChannel("good")

	m := NewManager([]Channel{bad, good}, time.Minute)
	assert.NoError(t, m.SendCritical("boom", nil))
	assert.Len(t, good.Alerts, 1)

	m2 := NewManager([]Channel{bad}, time.Minute)
	assert.Error(t, m2.SendCritical("boom", nil))
}

func TestThrottlerReset(t *testing.T) {
	th := NewThrottler(time.Hour)
	assert.True(t, th.Allow("k"))
	assert.False(t, th.Allow("k"))
	th.Reset("k")
	assert.True(t, th.Allow("k"))
}

func TestManagerAddChannel(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ch := NewMockChannel("late")
	m.AddChannel(ch)

	require.NoError(t, m.SendAlert(Alert{Level: LevelInfo, Message: "hello"}))
	assert.Len(t, ch.Alerts, 1)
}
