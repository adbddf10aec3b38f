package timer

import (
	"bytes"
	"testing"
	"time"

	"ember/emberos/client"
	"ember/emberos/kernel"
	"ember/emberos/proto"
)

type taskFunc func(*kernel.Context)

func (f taskFunc) Run(ctx *kernel.Context) { f(ctx) }

// runServiceTest boots a kernel with the timer service and a driver task
// running body, and waits for the driver to finish.
func runServiceTest(t *testing.T, f *fakeTimer, body func(ctx *kernel.Context, svc kernel.Capability)) {
	t.Helper()

	k := kernel.New()
	ep := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	k.AddTask(New(f, ep.Restrict(kernel.RightRecv)))

	done := make(chan struct{})
	k.AddTask(taskFunc(func(ctx *kernel.Context) {
		defer close(done)
		body(ctx, ep.Restrict(kernel.RightSend))
	}))
	k.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("service test timed out")
	}
}

func recvReply(t *testing.T, ch <-chan kernel.Message) (kernel.Message, bool) {
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(time.Second):
		return kernel.Message{}, false
	}
}

func TestServiceOneshotWait(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc.Mint(1))

		if got := tc.Oneshot(ctx, 0, 10*time.Millisecond); got != proto.TimerOK {
			t.Errorf("Oneshot: %s", got)
			return
		}

		// Park a wait, then fire the hardware interrupt.
		if !tc.StartWait(ctx) {
			t.Error("StartWait failed")
			return
		}
		f.now = 10
		f.irq <- struct{}{}

		msg, ok := recvReply(t, tc.ReplyChan())
		if !ok {
			t.Error("no wait reply")
			return
		}
		status, mask, ok := proto.DecodeTimerMaskPayload(msg.Data[:msg.Len])
		if !ok || status != proto.TimerOK || mask != 1 {
			t.Errorf("wait reply: status=%s mask=%#x ok=%v", status, mask, ok)
		}
	})
}

func TestServiceWaitWithPendingCompletions(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc.Mint(1))

		tc.Oneshot(ctx, 5, 0)
		f.irq <- struct{}{}

		// The completion is already latched; wait returns without
		// blocking once the interrupt is drained.
		mask, status := tc.Wait(ctx)
		if status != proto.TimerOK || mask != 1<<5 {
			t.Errorf("wait: status=%s mask=%#x", status, mask)
		}
	})
}

func TestServiceDoubleWait(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc.Mint(1))

		tc.Oneshot(ctx, 0, 10*time.Millisecond)
		tc.StartWait(ctx)
		tc.StartWait(ctx)

		// The second wait is refused immediately.
		msg, ok := recvReply(t, tc.ReplyChan())
		if !ok {
			t.Error("no reply to second wait")
			return
		}
		status, _, _ := proto.DecodeTimerMaskPayload(msg.Data[:msg.Len])
		if status != proto.TimerErrWaitPending {
			t.Errorf("second wait: %s", status)
			return
		}

		// The first wait stays armed and still fulfils.
		f.now = 10
		f.irq <- struct{}{}
		msg, ok = recvReply(t, tc.ReplyChan())
		if !ok {
			t.Error("no reply to first wait")
			return
		}
		status, mask, _ := proto.DecodeTimerMaskPayload(msg.Data[:msg.Len])
		if status != proto.TimerOK || mask != 1 {
			t.Errorf("first wait: status=%s mask=%#x", status, mask)
		}
	})
}

func TestServicePoll(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc.Mint(1))

		tc.Oneshot(ctx, 3, 5*time.Millisecond)
		f.now = 5
		f.irq <- struct{}{}

		// The interrupt drains on another goroutine; poll until the
		// bit shows up.
		deadline := time.Now().Add(time.Second)
		for {
			mask, status := tc.Poll(ctx)
			if status != proto.TimerOK {
				t.Errorf("poll: %s", status)
				return
			}
			if mask == 1<<3 {
				return
			}
			if mask != 0 {
				t.Errorf("poll mask: %#x", mask)
				return
			}
			if time.Now().After(deadline) {
				t.Error("completion never surfaced")
				return
			}
		}
	})
}

func TestServiceBadgeSlots(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		// NumClients distinct badges are admitted, one slot each.
		for b := kernel.Badge(1); b <= NumClients; b++ {
			tc := client.NewTimer(ctx, svc.Mint(b))
			if got := tc.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerOK {
				t.Errorf("badge %d: %s", b, got)
				return
			}
		}

		tc := client.NewTimer(ctx, svc.Mint(NumClients+1))
		if got := tc.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerErrNoSpace {
			t.Errorf("expected NoSpace for extra badge, got %s", got)
		}
	})
}

func TestServiceDisconnectRecyclesSlot(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		for b := kernel.Badge(1); b <= NumClients; b++ {
			tc := client.NewTimer(ctx, svc.Mint(b))
			if got := tc.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerOK {
				t.Errorf("badge %d: %s", b, got)
				return
			}
		}

		extra := client.NewTimer(ctx, svc.Mint(NumClients+1))
		if got := extra.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerErrNoSpace {
			t.Errorf("expected NoSpace before disconnect, got %s", got)
			return
		}

		// Badge 1 fires a completion and then leaves.
		tc := client.NewTimer(ctx, svc.Mint(1))
		f.now = 1
		f.irq <- struct{}{}
		if got := tc.Disconnect(ctx); got != proto.TimerOK {
			t.Errorf("disconnect: %s", got)
			return
		}

		// The freed slot now admits the extra badge.
		if got := extra.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerOK {
			t.Errorf("expected admission after disconnect, got %s", got)
			return
		}
		if got := extra.Disconnect(ctx); got != proto.TimerOK {
			t.Errorf("extra disconnect: %s", got)
			return
		}

		// Badge 1's old completion is gone; re-registering starts clean.
		mask, status := tc.Poll(ctx)
		if status != proto.TimerOK || mask != 0 {
			t.Errorf("poll after disconnect: status=%s mask=%#x", status, mask)
		}
	})
}

func TestServiceUnbadgedRefused(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc)
		if got := tc.Oneshot(ctx, 0, time.Millisecond); got != proto.TimerErrBadRequest {
			t.Errorf("expected BadRequest for unbadged client, got %s", got)
		}
	})
}

func TestServiceCapscan(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		tc := client.NewTimer(ctx, svc.Mint(1))
		tc.Periodic(ctx, 9, 10*time.Millisecond)

		var buf bytes.Buffer
		if got := tc.Capscan(ctx, &buf); got != proto.TimerOK {
			t.Errorf("capscan: %s", got)
			return
		}
		if !bytes.Contains(buf.Bytes(), []byte("timer=9")) {
			t.Errorf("capscan output missing timer:\n%s", buf.String())
		}
	})
}

func TestServiceBadFrame(t *testing.T) {
	f := newFakeTimer()
	runServiceTest(t, f, func(ctx *kernel.Context, svc kernel.Capability) {
		reply := ctx.NewEndpoint(kernel.RightSend | kernel.RightRecv)
		ch, _ := ctx.RecvChan(reply)

		// Truncated add payload.
		ctx.SendCap(svc.Mint(1), uint16(proto.MsgTimerOneshot), []byte{1, 2}, reply.Restrict(kernel.RightSend))

		msg, ok := recvReply(t, ch)
		if !ok {
			t.Error("no reply to bad frame")
			return
		}
		status, _ := proto.DecodeTimerAckPayload(msg.Data[:msg.Len])
		if status != proto.TimerErrBadRequest {
			t.Errorf("expected BadRequest, got %s", status)
		}
	})
}
