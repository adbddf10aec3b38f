package app

import (
	"time"

	"ember/emberos/client"
	"ember/emberos/kernel"
	"ember/emberos/proto"
)

// Kernel ticks are milliseconds. The heartbeat advances them in
// beatMS-sized steps off a periodic virtual timer, which keeps the
// whole timer path exercised whenever the system is up.
const beatMS = 10

// heartbeat is a timer-service client that drives the kernel tick.
type heartbeat struct {
	timerCap kernel.Capability
	tickTo   func(uint64)
}

func newHeartbeat(timerCap kernel.Capability, tickTo func(uint64)) *heartbeat {
	return &heartbeat{timerCap: timerCap, tickTo: tickTo}
}

func (t *heartbeat) Run(ctx *kernel.Context) {
	tc := client.NewTimer(ctx, t.timerCap)
	if tc == nil {
		return
	}
	if tc.Periodic(ctx, 0, beatMS*time.Millisecond) != proto.TimerOK {
		return
	}

	var beats uint64
	for {
		if _, status := tc.Wait(ctx); status != proto.TimerOK {
			return
		}
		// Coalesced fires count once; the tick may lag the counter
		// under load, never run ahead of it.
		beats++
		t.tickTo(beats * beatMS)
	}
}
