package client

import (
	"time"

	"ember/emberos/kernel"
	"ember/emberos/proto"
)

// MlCoord is a client handle to the ML coordinator service. Same
// discipline as Timer: one owning task, request/reply in lockstep.
type MlCoord struct {
	svc   kernel.Capability
	reply kernel.Capability
	ch    <-chan kernel.Message
}

// NewMlCoord creates a coordinator client from a send capability to the
// coordinator endpoint.
func NewMlCoord(ctx *kernel.Context, svc kernel.Capability) *MlCoord {
	reply := ctx.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	ch, ok := ctx.RecvChan(reply)
	if !ok {
		return nil
	}
	return &MlCoord{svc: svc, reply: reply, ch: ch}
}

// Oneshot queues one run of the named model.
func (m *MlCoord) Oneshot(ctx *kernel.Context, name string) proto.MlStatus {
	if !m.request(ctx, proto.MsgMlOneshot, proto.MlRunPayload(name, 0)) {
		return proto.MlErrUnknown
	}
	return m.recvAck()
}

// Periodic runs the named model every rate.
func (m *MlCoord) Periodic(ctx *kernel.Context, name string, rate time.Duration) proto.MlStatus {
	ms := uint32(rate / time.Millisecond)
	if !m.request(ctx, proto.MsgMlPeriodic, proto.MlRunPayload(name, ms)) {
		return proto.MlErrUnknown
	}
	return m.recvAck()
}

// Cancel stops periodic runs of the named model and unloads it.
func (m *MlCoord) Cancel(ctx *kernel.Context, name string) proto.MlStatus {
	if !m.request(ctx, proto.MsgMlCancel, proto.MlRunPayload(name, 0)) {
		return proto.MlErrUnknown
	}
	return m.recvAck()
}

// CompletedJobs returns and clears the completed-run bitmask.
func (m *MlCoord) CompletedJobs(ctx *kernel.Context) (uint32, bool) {
	if !m.request(ctx, proto.MsgMlJobs, nil) {
		return 0, false
	}
	msg, ok := <-m.ch
	if !ok || proto.Kind(msg.Kind) != proto.MsgMlJobMask {
		return 0, false
	}
	return proto.DecodeMlJobMaskPayload(msg.Data[:msg.Len])
}

func (m *MlCoord) request(ctx *kernel.Context, kind proto.Kind, payload []byte) bool {
	return ctx.SendCap(m.svc, uint16(kind), payload, m.reply.Restrict(kernel.RightSend))
}

func (m *MlCoord) recvAck() proto.MlStatus {
	msg, ok := <-m.ch
	if !ok || proto.Kind(msg.Kind) != proto.MsgMlAck {
		return proto.MlErrUnknown
	}
	status, ok := proto.DecodeMlAckPayload(msg.Data[:msg.Len])
	if !ok {
		return proto.MlErrUnknown
	}
	return status
}
