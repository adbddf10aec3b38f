package mlcoord

import (
	"fmt"
	"time"

	"ember/emberos/client"
	"ember/emberos/kernel"
	"ember/emberos/proto"
	"ember/hal"
)

// Service runs the coordinator as a task. It multiplexes three event
// sources in one goroutine: client requests on the service endpoint,
// timer completions from the timer service, and finish interrupts from
// the vector core. The coordinator itself is single-threaded.
//
// Two timer client handles share the service's badge: a synchronous one
// for register/cancel calls and a dedicated one that always has a wait
// outstanding, so completion masks never interleave with call acks.
type Service struct {
	core  VectorCore
	flash hal.Flash

	ep       kernel.Capability
	timerCap kernel.Capability
	logCap   kernel.Capability

	coord *Coordinator
}

func NewService(core VectorCore, flash hal.Flash, ep, timerCap, logCap kernel.Capability) *Service {
	return &Service{core: core, flash: flash, ep: ep, timerCap: timerCap, logCap: logCap}
}

// timerCalls adapts a synchronous timer client to the coordinator port.
type timerCalls struct {
	ctx *kernel.Context
	t   *client.Timer
}

func (p timerCalls) Periodic(id uint32, rate time.Duration) proto.TimerStatus {
	return p.t.Periodic(p.ctx, id, rate)
}

func (p timerCalls) Cancel(id uint32) proto.TimerStatus {
	return p.t.Cancel(p.ctx, id)
}

func (s *Service) Run(ctx *kernel.Context) {
	ch, ok := ctx.RecvChan(s.ep)
	if !ok {
		return
	}

	calls := client.NewTimer(ctx, s.timerCap)
	waits := client.NewTimer(ctx, s.timerCap)
	if calls == nil || waits == nil {
		return
	}

	s.coord = NewCoordinator(s.core, NewModelStore(s.flash), timerCalls{ctx: ctx, t: calls})

	waits.StartWait(ctx)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, msg)

		case msg := <-waits.ReplyChan():
			if proto.Kind(msg.Kind) != proto.MsgTimerMask {
				continue
			}
			status, mask, ok := proto.DecodeTimerMaskPayload(msg.Data[:msg.Len])
			if ok && status == proto.TimerOK {
				for idx := 0; idx < MaxModels; idx++ {
					if mask&(1<<idx) != 0 {
						s.coord.TimerCompleted(idx)
					}
				}
			}
			waits.StartWait(ctx)

		case res := <-s.core.Finish():
			if res.ReturnCode != 0 {
				s.logf(ctx, "mlcoord: run failed code=%d pc=%#x", res.ReturnCode, res.FaultPC)
			}
			s.coord.HandleReturnInterrupt()
		}
	}
}

func (s *Service) handle(ctx *kernel.Context, msg kernel.Message) {
	if !msg.Cap.Valid() {
		return
	}

	switch proto.Kind(msg.Kind) {
	case proto.MsgMlOneshot, proto.MsgMlPeriodic, proto.MsgMlCancel:
		name, rateMS, ok := proto.DecodeMlRunPayload(msg.Data[:msg.Len])
		if !ok {
			s.ack(ctx, msg.Cap, proto.MlErrBadRequest)
			return
		}
		var status proto.MlStatus
		switch proto.Kind(msg.Kind) {
		case proto.MsgMlOneshot:
			status = s.coord.Oneshot(name)
		case proto.MsgMlPeriodic:
			status = s.coord.Periodic(name, time.Duration(rateMS)*time.Millisecond)
		case proto.MsgMlCancel:
			status = s.coord.Cancel(name)
		}
		if status != proto.MlOK {
			s.logf(ctx, "mlcoord: %s %q: %s", proto.Kind(msg.Kind), name, status)
		}
		s.ack(ctx, msg.Cap, status)

	case proto.MsgMlJobs:
		mask := s.coord.CompletedJobs()
		_ = ctx.Send(msg.Cap, uint16(proto.MsgMlJobMask), proto.MlJobMaskPayload(mask))

	default:
		s.ack(ctx, msg.Cap, proto.MlErrBadRequest)
	}
}

func (s *Service) ack(ctx *kernel.Context, reply kernel.Capability, status proto.MlStatus) {
	_ = ctx.Send(reply, uint16(proto.MsgMlAck), proto.MlAckPayload(status))
}

func (s *Service) logf(ctx *kernel.Context, format string, args ...any) {
	if !s.logCap.Valid() {
		return
	}
	line := fmt.Sprintf(format, args...)
	if len(line) > kernel.MaxMessageBytes {
		line = line[:kernel.MaxMessageBytes]
	}
	_ = ctx.Send(s.logCap, uint16(proto.MsgLogLine), []byte(line))
}
