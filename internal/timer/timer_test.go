package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArm_FiresOnce(t *testing.T) {
	done := make(chan struct{}, 2)
	h := Arm(10*time.Millisecond, func() { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timer never fired")
	}
	require.True(t, h.Fired())
	require.False(t, h.Cancel(), "cancel after expiry must be a no-op")

	select {
	case <-done:
		t.Fatalf("timer fired twice")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCancel_PreventsExpiry(t *testing.T) {
	var calls atomic.Int32
	h := Arm(20*time.Millisecond, func() { calls.Add(1) })

	require.True(t, h.Cancel())
	require.False(t, h.Cancel(), "second cancel is a no-op")

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, calls.Load())
	require.False(t, h.Fired())
}

func TestCancel_NilHandle(t *testing.T) {
	var h *Handle
	require.False(t, h.Cancel())
	require.False(t, h.Fired())
}
