//go:build !tinygo

package hal

import (
	"testing"
	"time"
)

func TestHostTimerTicksIn(t *testing.T) {
	tm := newHostTimer()
	if got := tm.TicksIn(250 * time.Millisecond); got != 250 {
		t.Fatalf("TicksIn(250ms) = %d", got)
	}
	if got := tm.TicksIn(0); got != 0 {
		t.Fatalf("TicksIn(0) = %d", got)
	}
}

func TestHostTimerAlarmFires(t *testing.T) {
	tm := newHostTimer()
	tm.Setup()

	tm.SetAlarm(tm.Deadline(5 * time.Millisecond))
	select {
	case <-tm.IRQ():
	case <-time.After(time.Second):
		t.Fatal("alarm never fired")
	}
	tm.AckInterrupt()
}

func TestHostTimerPastDeadlineFiresImmediately(t *testing.T) {
	tm := newHostTimer()
	tm.Setup()

	tm.SetAlarm(0)
	select {
	case <-tm.IRQ():
	case <-time.After(time.Second):
		t.Fatal("past-deadline alarm never fired")
	}
}

func TestHostTimerClearAlarmCancels(t *testing.T) {
	tm := newHostTimer()
	tm.Setup()

	tm.SetAlarm(tm.Deadline(20 * time.Millisecond))
	tm.ClearAlarm()

	select {
	case <-tm.IRQ():
		t.Fatal("cleared alarm fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHostTimerSetupIdempotent(t *testing.T) {
	tm := newHostTimer()
	tm.Setup()
	time.Sleep(2 * time.Millisecond)
	before := tm.Now()

	// A second Setup clears alarm state but does not restart the
	// counter.
	tm.Setup()
	if after := tm.Now(); after < before {
		t.Fatalf("counter went backwards: %d -> %d", before, after)
	}
}
