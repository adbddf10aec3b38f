package app

import (
	"strings"
	"testing"
	"time"

	"ember/emberos/kernel"
	"ember/hal"
)

type recordLogger struct {
	lines chan string
}

func (l *recordLogger) WriteLineString(s string) {
	select {
	case l.lines <- s:
	default:
	}
}

func (l *recordLogger) WriteLineBytes(b []byte) {
	l.WriteLineString(string(b))
}

// headlessHAL has a logger and nothing else, like a board before the
// display comes up.
type headlessHAL struct {
	log *recordLogger
}

func (h *headlessHAL) Logger() hal.Logger       { return h.log }
func (h *headlessHAL) LED() hal.LED             { return nil }
func (h *headlessHAL) Display() hal.Display     { return nil }
func (h *headlessHAL) Input() hal.Input         { return nil }
func (h *headlessHAL) Flash() hal.Flash         { return nil }
func (h *headlessHAL) Timer() hal.HardwareTimer { return nil }

type taskFunc func(*kernel.Context)

func (f taskFunc) Run(ctx *kernel.Context) { f(ctx) }

func TestTaskPanicReachesLogger(t *testing.T) {
	log := &recordLogger{lines: make(chan string, 32)}
	installPanicHandler(&headlessHAL{log: log})

	k := kernel.New()
	k.AddTask(taskFunc(func(*kernel.Context) {
		panic("timer table corrupt")
	}))
	k.Start()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-log.lines:
			if strings.Contains(line, "timer table corrupt") {
				if !kernel.InPanicMode() {
					t.Fatal("panic mode not entered")
				}
				return
			}
		case <-deadline:
			t.Fatal("panic never reached the logger")
		}
	}
}
