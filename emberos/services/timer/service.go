package timer

import (
	"bytes"
	"sync"
	"time"

	"ember/emberos/kernel"
	"ember/emberos/proto"
	"ember/hal"
)

type waiter struct {
	pending bool
	reply   kernel.Capability
}

// Service exposes the timer manager over IPC.
//
// Requests arrive on the service endpoint with a kernel-stamped badge
// identifying the client and a transferred reply capability. The badge
// is mapped to a ClientID slot on first contact and the slot stays
// bound to that badge until the client disconnects, so one client
// cannot read another's completions. Disconnect drops the client's
// timers and pending state and returns the slot to the free pool.
//
// The request path and the interrupt path run on different goroutines
// and both take s.mu, so manager state is only ever touched by one of
// them at a time.
type Service struct {
	hw hal.HardwareTimer
	ep kernel.Capability

	mu      sync.Mutex
	mgr     *Manager
	ctx     *kernel.Context
	badges  [NumClients]kernel.Badge
	waiters [NumClients]waiter
}

// New creates the timer service. ep must carry the receive right for the
// service endpoint; hw is the hardware timer the service will own.
func New(hw hal.HardwareTimer, ep kernel.Capability) *Service {
	return &Service{hw: hw, ep: ep}
}

// Run is the service task body.
func (s *Service) Run(ctx *kernel.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mgr = NewManager(s.hw, s.completeWait)
	s.mu.Unlock()

	go s.serviceIRQs()

	ch, ok := ctx.RecvChan(s.ep)
	if !ok {
		panic("timer: service endpoint without receive right")
	}
	for msg := range ch {
		s.handle(ctx, msg)
	}
}

func (s *Service) serviceIRQs() {
	for range s.hw.IRQ() {
		s.mu.Lock()
		s.mgr.ServiceInterrupt()
		s.mu.Unlock()
	}
}

func (s *Service) handle(ctx *kernel.Context, msg kernel.Message) {
	if !msg.Cap.Valid() {
		// No reply path; nothing useful to do.
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Badge == 0 {
		s.ack(ctx, msg.Cap, proto.TimerErrBadRequest)
		return
	}
	client, ok := s.clientFor(msg.Badge)
	if !ok {
		s.ack(ctx, msg.Cap, proto.TimerErrNoSpace)
		return
	}

	switch proto.Kind(msg.Kind) {
	case proto.MsgTimerOneshot, proto.MsgTimerPeriodic:
		id, ms, ok := proto.DecodeTimerAddPayload(msg.Data[:msg.Len])
		if !ok {
			s.ack(ctx, msg.Cap, proto.TimerErrBadRequest)
			return
		}
		d := time.Duration(ms) * time.Millisecond
		var status proto.TimerStatus
		if proto.Kind(msg.Kind) == proto.MsgTimerPeriodic {
			status = s.mgr.AddPeriodic(client, TimerID(id), d)
		} else {
			status = s.mgr.AddOneshot(client, TimerID(id), d)
		}
		s.ack(ctx, msg.Cap, status)

	case proto.MsgTimerCancel:
		id, ok := proto.DecodeTimerCancelPayload(msg.Data[:msg.Len])
		if !ok {
			s.ack(ctx, msg.Cap, proto.TimerErrBadRequest)
			return
		}
		s.ack(ctx, msg.Cap, s.mgr.Cancel(client, TimerID(id)))

	case proto.MsgTimerPoll:
		mask := s.mgr.CompletedTimers(client)
		s.replyMask(ctx, msg.Cap, client, mask)

	case proto.MsgTimerWait:
		s.handleWait(ctx, client, msg.Cap)

	case proto.MsgTimerCapscan:
		s.handleCapscan(ctx, msg.Cap)

	case proto.MsgTimerDisconnect:
		s.mgr.DropClient(client)
		s.waiters[client] = waiter{}
		s.badges[client] = 0
		s.ack(ctx, msg.Cap, proto.TimerOK)

	default:
		s.ack(ctx, msg.Cap, proto.TimerErrBadRequest)
	}
}

// handleWait parks the reply capability until a timer completes. If
// completions are already pending the reply is immediate. A second wait
// while one is parked is refused; the first wait stays armed.
func (s *Service) handleWait(ctx *kernel.Context, client ClientID, reply kernel.Capability) {
	if mask := s.mgr.CompletedTimers(client); mask != 0 {
		s.replyMask(ctx, reply, client, mask)
		return
	}
	w := &s.waiters[client]
	if w.pending {
		_ = ctx.Send(reply, uint16(proto.MsgTimerMask),
			proto.TimerMaskPayload(proto.TimerErrWaitPending, 0))
		return
	}
	*w = waiter{pending: true, reply: reply}
}

// completeWait is the manager's notify continuation. It runs with s.mu
// held, on whichever goroutine drove ServiceInterrupt.
func (s *Service) completeWait(client ClientID) {
	w := &s.waiters[client]
	if !w.pending {
		return
	}
	reply := w.reply
	*w = waiter{}
	mask := s.mgr.CompletedTimers(client)
	s.replyMask(s.ctx, reply, client, mask)
}

// replyMask delivers a completion mask, putting the bits back if the
// reply endpoint is full so the completions are not lost.
func (s *Service) replyMask(ctx *kernel.Context, reply kernel.Capability, client ClientID, mask TimerMask) {
	payload := proto.TimerMaskPayload(proto.TimerOK, uint32(mask))
	if ctx.SendResult(reply, uint16(proto.MsgTimerMask), payload, kernel.Capability{}) != kernel.SendOK {
		s.mgr.restoreMask(client, mask)
	}
}

func (s *Service) handleCapscan(ctx *kernel.Context, reply kernel.Capability) {
	var buf bytes.Buffer
	s.mgr.Capscan(&buf)
	for _, line := range bytes.Split(buf.Bytes(), []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		if len(line) > kernel.MaxMessageBytes {
			line = line[:kernel.MaxMessageBytes]
		}
		_ = ctx.Send(reply, uint16(proto.MsgTimerCapscanLine), line)
	}
	s.ack(ctx, reply, proto.TimerOK)
}

func (s *Service) ack(ctx *kernel.Context, reply kernel.Capability, status proto.TimerStatus) {
	_ = ctx.Send(reply, uint16(proto.MsgTimerAck), proto.TimerAckPayload(status))
}

// clientFor maps a badge to a client slot, assigning a free slot on
// first contact. Unbadged messages never get a slot.
func (s *Service) clientFor(badge kernel.Badge) (ClientID, bool) {
	if badge == 0 {
		return 0, false
	}
	free := ClientID(NumClients)
	for c := ClientID(0); c < NumClients; c++ {
		if s.badges[c] == badge {
			return c, true
		}
		if s.badges[c] == 0 && free == NumClients {
			free = c
		}
	}
	if free == NumClients {
		return 0, false
	}
	s.badges[free] = badge
	return free, true
}
