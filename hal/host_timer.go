//go:build !tinygo

package hal

import (
	"sync"
	"time"
)

// hostTimerHz is the simulated counter rate. 1 kHz keeps one tick equal to
// one millisecond, which is the resolution the RPC surface exposes anyway.
const hostTimerHz = 1000

// hostTimer simulates the hardware timer on the host: a counter derived
// from the wall clock plus a single comparator backed by time.Timer.
type hostTimer struct {
	mu    sync.Mutex
	start time.Time
	ready bool

	alarm   *time.Timer
	armed   bool
	pending bool

	irq chan struct{}
}

func newHostTimer() *hostTimer {
	return &hostTimer{irq: make(chan struct{}, 1)}
}

func (t *hostTimer) Setup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		t.stopAlarmLocked()
		t.pending = false
		return
	}
	t.ready = true
	t.start = time.Now()
}

func (t *hostTimer) Now() Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nowLocked()
}

func (t *hostTimer) nowLocked() Ticks {
	if !t.ready {
		panic("hal: hostTimer used before Setup")
	}
	return Ticks(time.Since(t.start) * hostTimerHz / time.Second)
}

func (t *hostTimer) TicksIn(d time.Duration) Ticks {
	return Ticks(d * hostTimerHz / time.Second)
}

func (t *hostTimer) Deadline(d time.Duration) Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nowLocked() + t.TicksIn(d)
}

func (t *hostTimer) SetAlarm(deadline Ticks) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopAlarmLocked()
	t.armed = true

	now := t.nowLocked()
	if deadline <= now {
		t.fireLocked()
		return
	}
	wait := time.Duration(deadline-now) * time.Second / hostTimerHz
	t.alarm = time.AfterFunc(wait, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.fireLocked()
	})
}

func (t *hostTimer) ClearAlarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopAlarmLocked()
}

func (t *hostTimer) AckInterrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopAlarmLocked()
	t.pending = false
}

func (t *hostTimer) IRQ() <-chan struct{} { return t.irq }

func (t *hostTimer) fireLocked() {
	if !t.armed {
		return
	}
	t.armed = false
	t.pending = true
	select {
	case t.irq <- struct{}{}:
	default:
	}
}

func (t *hostTimer) stopAlarmLocked() {
	t.armed = false
	if t.alarm != nil {
		t.alarm.Stop()
		t.alarm = nil
	}
}
