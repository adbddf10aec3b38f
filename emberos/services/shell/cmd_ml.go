package shell

import (
	"fmt"
	"strconv"
	"time"

	"ember/emberos/kernel"
)

func (s *Service) mlCommand(ctx *kernel.Context, cmd string, args []string) {
	if s.ml == nil {
		_ = s.writeString(ctx, "ml coordinator not available\n")
		return
	}

	switch cmd {
	case "ml-oneshot":
		if len(args) != 1 {
			_ = s.writeString(ctx, "usage: ml-oneshot <model>\n")
			return
		}
		_ = s.writeString(ctx, s.ml.Oneshot(ctx, args[0]).String()+"\n")

	case "ml-periodic":
		if len(args) != 2 {
			_ = s.writeString(ctx, "usage: ml-periodic <model> <ms>\n")
			return
		}
		ms, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			_ = s.writeString(ctx, "usage: ml-periodic <model> <ms>\n")
			return
		}
		status := s.ml.Periodic(ctx, args[0], time.Duration(ms)*time.Millisecond)
		_ = s.writeString(ctx, status.String()+"\n")

	case "ml-cancel":
		if len(args) != 1 {
			_ = s.writeString(ctx, "usage: ml-cancel <model>\n")
			return
		}
		_ = s.writeString(ctx, s.ml.Cancel(ctx, args[0]).String()+"\n")

	case "ml-jobs":
		mask, ok := s.ml.CompletedJobs(ctx)
		if !ok {
			_ = s.writeString(ctx, "ml coordinator not responding\n")
			return
		}
		_ = s.writeString(ctx, fmt.Sprintf("jobs=%#08x\n", mask))
	}
}
