// Package timer provides the cancellable delayed actions rooms use for the
// fill countdown and the disconnect grace window.
package timer

import (
	"sync/atomic"
	"time"
)

// Handle is one armed timer. Cancel and expiry race safely: exactly one of
// them wins, and onExpire runs at most once.
type Handle struct {
	t     *time.Timer
	state atomic.Int32
}

const (
	armed int32 = iota
	fired
	cancelled
)

// Arm schedules onExpire to run on its own goroutine after d.
func Arm(d time.Duration, onExpire func()) *Handle {
	h := &Handle{}
	h.t = time.AfterFunc(d, func() {
		if h.state.CompareAndSwap(armed, fired) {
			onExpire()
		}
	})
	return h
}

// Cancel stops the timer. It reports whether onExpire was prevented from
// running; cancelling a nil, fired or already cancelled handle is a no-op.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	if !h.state.CompareAndSwap(armed, cancelled) {
		return false
	}
	h.t.Stop()
	return true
}

// Fired reports whether onExpire has been started.
func (h *Handle) Fired() bool {
	return h != nil && h.state.Load() == fired
}
