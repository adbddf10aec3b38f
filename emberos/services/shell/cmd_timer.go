package shell

import (
	"fmt"
	"strconv"
	"time"

	"ember/emberos/kernel"
	"ember/emberos/proto"
)

// termWriter adapts the terminal send path to io.Writer for streamed
// command output (timer-capscan).
type termWriter struct {
	s   *Service
	ctx *kernel.Context
}

func (w termWriter) Write(p []byte) (int, error) {
	if err := w.s.writeString(w.ctx, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Service) timerCommand(ctx *kernel.Context, cmd string, args []string) {
	if s.timer == nil {
		_ = s.writeString(ctx, "timer service not available\n")
		return
	}

	switch cmd {
	case "timer-oneshot", "timer-periodic":
		if len(args) != 2 {
			_ = s.writeString(ctx, "usage: "+cmd+" <id> <ms>\n")
			return
		}
		id, err1 := strconv.ParseUint(args[0], 10, 32)
		ms, err2 := strconv.ParseUint(args[1], 10, 32)
		if err1 != nil || err2 != nil {
			_ = s.writeString(ctx, "usage: "+cmd+" <id> <ms>\n")
			return
		}
		d := time.Duration(ms) * time.Millisecond
		var status proto.TimerStatus
		if cmd == "timer-periodic" {
			status = s.timer.Periodic(ctx, uint32(id), d)
		} else {
			status = s.timer.Oneshot(ctx, uint32(id), d)
		}
		_ = s.writeString(ctx, status.String()+"\n")

	case "timer-cancel":
		if len(args) != 1 {
			_ = s.writeString(ctx, "usage: timer-cancel <id>\n")
			return
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			_ = s.writeString(ctx, "usage: timer-cancel <id>\n")
			return
		}
		_ = s.writeString(ctx, s.timer.Cancel(ctx, uint32(id)).String()+"\n")

	case "timer-poll":
		mask, status := s.timer.Poll(ctx)
		s.printMask(ctx, mask, status)

	case "timer-wait":
		// Blocks the shell until something fires.
		mask, status := s.timer.Wait(ctx)
		s.printMask(ctx, mask, status)

	case "timer-capscan":
		status := s.timer.Capscan(ctx, termWriter{s: s, ctx: ctx})
		if status != proto.TimerOK {
			_ = s.writeString(ctx, status.String()+"\n")
		}

	case "timer-disconnect":
		_ = s.writeString(ctx, s.timer.Disconnect(ctx).String()+"\n")
	}
}

func (s *Service) printMask(ctx *kernel.Context, mask uint32, status proto.TimerStatus) {
	if status != proto.TimerOK {
		_ = s.writeString(ctx, status.String()+"\n")
		return
	}
	_ = s.writeString(ctx, fmt.Sprintf("completed=%#08x\n", mask))
}
