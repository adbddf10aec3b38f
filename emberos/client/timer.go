// Package client provides typed wrappers around the service IPC
// protocols, for tasks that want request/reply calls instead of raw
// message plumbing.
package client

import (
	"io"
	"time"

	"ember/emberos/kernel"
	"ember/emberos/proto"
)

// Timer is a client handle to the timer service.
//
// It owns a private reply endpoint; every request transfers the send
// half of it so the service can answer. One Timer serves one task:
// calls are request/reply in lockstep and must not be interleaved from
// multiple goroutines.
type Timer struct {
	svc   kernel.Capability
	reply kernel.Capability
	ch    <-chan kernel.Message
}

// NewTimer creates a timer client from a badged send capability to the
// timer service endpoint.
func NewTimer(ctx *kernel.Context, svc kernel.Capability) *Timer {
	reply := ctx.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	ch, ok := ctx.RecvChan(reply)
	if !ok {
		return nil
	}
	return &Timer{svc: svc, reply: reply, ch: ch}
}

// ReplyChan exposes the raw reply channel, for callers that multiplex
// the reply in a select loop instead of blocking in Wait.
func (t *Timer) ReplyChan() <-chan kernel.Message { return t.ch }

// Oneshot arms timer id to fire once after d.
func (t *Timer) Oneshot(ctx *kernel.Context, id uint32, d time.Duration) proto.TimerStatus {
	return t.add(ctx, proto.MsgTimerOneshot, id, d)
}

// Periodic arms timer id to fire every d.
func (t *Timer) Periodic(ctx *kernel.Context, id uint32, d time.Duration) proto.TimerStatus {
	return t.add(ctx, proto.MsgTimerPeriodic, id, d)
}

func (t *Timer) add(ctx *kernel.Context, kind proto.Kind, id uint32, d time.Duration) proto.TimerStatus {
	ms := uint32(d / time.Millisecond)
	if !t.request(ctx, kind, proto.TimerAddPayload(id, ms)) {
		return proto.TimerErrUnknown
	}
	return t.recvAck()
}

// Cancel removes timer id.
func (t *Timer) Cancel(ctx *kernel.Context, id uint32) proto.TimerStatus {
	if !t.request(ctx, proto.MsgTimerCancel, proto.TimerCancelPayload(id)) {
		return proto.TimerErrUnknown
	}
	return t.recvAck()
}

// Poll returns and clears the completion bitmask without blocking on
// the service side.
func (t *Timer) Poll(ctx *kernel.Context) (uint32, proto.TimerStatus) {
	if !t.request(ctx, proto.MsgTimerPoll, nil) {
		return 0, proto.TimerErrUnknown
	}
	return t.recvMask()
}

// Wait blocks until at least one timer has completed, then returns and
// clears the completion bitmask.
func (t *Timer) Wait(ctx *kernel.Context) (uint32, proto.TimerStatus) {
	if !t.request(ctx, proto.MsgTimerWait, nil) {
		return 0, proto.TimerErrUnknown
	}
	return t.recvMask()
}

// StartWait issues a wait request without blocking for the reply; the
// MsgTimerMask answer arrives on ReplyChan.
func (t *Timer) StartWait(ctx *kernel.Context) bool {
	return t.request(ctx, proto.MsgTimerWait, nil)
}

// Disconnect releases the caller's client slot at the service. Armed
// timers are cancelled and unread completions are discarded; the next
// request re-registers from a clean slate.
func (t *Timer) Disconnect(ctx *kernel.Context) proto.TimerStatus {
	if !t.request(ctx, proto.MsgTimerDisconnect, nil) {
		return proto.TimerErrUnknown
	}
	return t.recvAck()
}

// Capscan streams the service debug dump to w, one line at a time.
func (t *Timer) Capscan(ctx *kernel.Context, w io.Writer) proto.TimerStatus {
	if !t.request(ctx, proto.MsgTimerCapscan, nil) {
		return proto.TimerErrUnknown
	}
	for msg := range t.ch {
		switch proto.Kind(msg.Kind) {
		case proto.MsgTimerCapscanLine:
			w.Write(msg.Data[:msg.Len])
			io.WriteString(w, "\n")
		case proto.MsgTimerAck:
			status, ok := proto.DecodeTimerAckPayload(msg.Data[:msg.Len])
			if !ok {
				return proto.TimerErrUnknown
			}
			return status
		}
	}
	return proto.TimerErrUnknown
}

func (t *Timer) request(ctx *kernel.Context, kind proto.Kind, payload []byte) bool {
	return ctx.SendCap(t.svc, uint16(kind), payload, t.reply.Restrict(kernel.RightSend))
}

func (t *Timer) recvAck() proto.TimerStatus {
	msg, ok := <-t.ch
	if !ok || proto.Kind(msg.Kind) != proto.MsgTimerAck {
		return proto.TimerErrUnknown
	}
	status, ok := proto.DecodeTimerAckPayload(msg.Data[:msg.Len])
	if !ok {
		return proto.TimerErrUnknown
	}
	return status
}

func (t *Timer) recvMask() (uint32, proto.TimerStatus) {
	msg, ok := <-t.ch
	if !ok || proto.Kind(msg.Kind) != proto.MsgTimerMask {
		return 0, proto.TimerErrUnknown
	}
	status, mask, ok := proto.DecodeTimerMaskPayload(msg.Data[:msg.Len])
	if !ok {
		return 0, proto.TimerErrUnknown
	}
	return mask, status
}
