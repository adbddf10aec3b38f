// Package shell is the interactive debug console. It reads VT100 input
// frames, line-edits, and dispatches commands, including the timer and
// ML coordinator exercise commands.
package shell

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ember/emberos/client"
	"ember/emberos/kernel"
	"ember/emberos/proto"
)

const maxLineRunes = 256

type Service struct {
	inCap    kernel.Capability
	termCap  kernel.Capability
	timerCap kernel.Capability
	mlCap    kernel.Capability

	timer *client.Timer
	ml    *client.MlCoord

	line    []rune
	utf8buf []byte
}

// New wires the shell to its input endpoint, the terminal, and the
// (badged) service capabilities it exercises.
func New(inCap, termCap, timerCap, mlCap kernel.Capability) *Service {
	return &Service{inCap: inCap, termCap: termCap, timerCap: timerCap, mlCap: mlCap}
}

func (s *Service) Run(ctx *kernel.Context) {
	ch, ok := ctx.RecvChan(s.inCap)
	if !ok {
		return
	}

	if s.timerCap.Valid() {
		s.timer = client.NewTimer(ctx, s.timerCap)
	}
	if s.mlCap.Valid() {
		s.ml = client.NewMlCoord(ctx, s.mlCap)
	}

	_ = s.writeString(ctx, "\x1b[0m")
	_ = s.writeString(ctx, "\x1b[38;5;208mEmber shell\x1b[0m\n")
	_ = s.writeString(ctx, "Type `help`.\n\n")
	_ = s.prompt(ctx)

	for msg := range ch {
		if proto.Kind(msg.Kind) != proto.MsgTermInput {
			continue
		}
		s.handleInput(ctx, msg.Data[:msg.Len])
	}
}

func (s *Service) handleInput(ctx *kernel.Context, b []byte) {
	s.utf8buf = append(s.utf8buf, b...)
	b = s.utf8buf

	for len(b) > 0 {
		if b[0] == 0x1b {
			// Skip VT100 sequences (arrows etc); no history yet.
			consumed := consumeEscape(b)
			if consumed == 0 {
				b = b[1:]
			} else {
				b = b[consumed:]
			}
			continue
		}

		switch b[0] {
		case '\r':
			b = b[1:]
		case '\n':
			b = b[1:]
			s.submit(ctx)
		case 0x7f, 0x08:
			b = b[1:]
			s.backspace(ctx)
		default:
			if !utf8.FullRune(b) {
				s.utf8buf = b
				return
			}
			r, sz := utf8.DecodeRune(b)
			if r == utf8.RuneError && sz == 1 {
				b = b[1:]
				continue
			}
			b = b[sz:]

			if r < 0x20 || len(s.line) >= maxLineRunes {
				continue
			}
			s.line = append(s.line, r)
			_ = s.writeString(ctx, string(r))
		}
	}
	s.utf8buf = s.utf8buf[:0]
}

func (s *Service) backspace(ctx *kernel.Context) {
	if len(s.line) == 0 {
		return
	}
	s.line = s.line[:len(s.line)-1]
	_ = s.writeString(ctx, "\x1b[D \x1b[D")
}

func (s *Service) submit(ctx *kernel.Context) {
	_ = s.writeString(ctx, "\n")

	line := strings.TrimSpace(string(s.line))
	s.line = s.line[:0]
	if line == "" {
		_ = s.prompt(ctx)
		return
	}

	args := strings.Fields(line)
	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "help":
		_ = s.writeString(ctx, helpText)
	case "clear":
		_ = s.sendToTerm(ctx, proto.MsgTermClear, nil)
	case "echo":
		_ = s.writeString(ctx, strings.Join(args, " ")+"\n")
	case "uptime":
		_ = s.writeString(ctx, fmt.Sprintf("%d ms\n", ctx.NowTick()))
	case "timer-oneshot", "timer-periodic", "timer-cancel",
		"timer-poll", "timer-wait", "timer-capscan", "timer-disconnect":
		s.timerCommand(ctx, cmd, args)
	case "ml-oneshot", "ml-periodic", "ml-cancel", "ml-jobs":
		s.mlCommand(ctx, cmd, args)
	default:
		_ = s.writeString(ctx, "unknown command: "+cmd+"\n")
	}

	_ = s.prompt(ctx)
}

const helpText = "commands:\n" +
	"  help clear echo uptime\n" +
	"  timer-oneshot <id> <ms>   timer-periodic <id> <ms>\n" +
	"  timer-cancel <id>         timer-poll\n" +
	"  timer-wait                timer-capscan\n" +
	"  timer-disconnect\n" +
	"  ml-oneshot <model>        ml-periodic <model> <ms>\n" +
	"  ml-cancel <model>         ml-jobs\n"

func (s *Service) prompt(ctx *kernel.Context) error {
	return s.writeString(ctx, "\x1b[38;5;46m>\x1b[0m ")
}

func (s *Service) writeString(ctx *kernel.Context, str string) error {
	b := []byte(str)
	for len(b) > 0 {
		chunk := b
		if len(chunk) > kernel.MaxMessageBytes {
			chunk = chunk[:kernel.MaxMessageBytes]
		}
		if err := s.sendToTerm(ctx, proto.MsgTermWrite, chunk); err != nil {
			return err
		}
		b = b[len(chunk):]
	}
	return nil
}

func (s *Service) sendToTerm(ctx *kernel.Context, kind proto.Kind, payload []byte) error {
	for {
		res := ctx.SendResult(s.termCap, uint16(kind), payload, kernel.Capability{})
		switch res {
		case kernel.SendOK:
			return nil
		case kernel.SendErrQueueFull:
			ctx.BlockOnTick()
		default:
			return fmt.Errorf("shell term send: %s", res)
		}
	}
}

func consumeEscape(b []byte) int {
	if len(b) < 2 || b[0] != 0x1b {
		return 0
	}
	// CSI: ESC [ ... final
	if b[1] == '[' {
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				return i + 1
			}
		}
		return len(b)
	}
	return 2
}
