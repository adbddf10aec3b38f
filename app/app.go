// Package app assembles the system: kernel, endpoints, badge minting,
// and the service tasks.
package app

import (
	"time"

	"ember/emberos/kernel"
	"ember/emberos/services/logger"
	"ember/emberos/services/mlcoord"
	"ember/emberos/services/shell"
	"ember/emberos/services/term"
	"ember/emberos/services/termkbd"
	timersvc "ember/emberos/services/timer"
	"ember/hal"
)

// Timer client badges. Each client of the timer service gets its own
// badged capability to the timer endpoint; the badge is the client's
// identity at the service.
const (
	badgeShell     kernel.Badge = 1
	badgeMlCoord   kernel.Badge = 2
	badgeHeartbeat kernel.Badge = 3
)

const simCoreMemoryBytes = 4 << 20

type system struct {
	k *kernel.Kernel
}

// New initializes and starts the OS, returning the per-frame step hook
// for the host runners.
func New(h hal.HAL) func() error {
	_ = newSystem(h)
	return func() error { return nil }
}

// Run starts the OS and blocks forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	_ = New(h)
	select {}
}

func newSystem(h hal.HAL) *system {
	installPanicHandler(h)

	k := kernel.New()

	logEP := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	timerEP := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	termEP := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	inputEP := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)
	mlEP := k.NewEndpoint(kernel.RightSend | kernel.RightRecv)

	timerSend := timerEP.Restrict(kernel.RightSend)

	k.AddTask(logger.New(h.Logger(), logEP.Restrict(kernel.RightRecv)))
	k.AddTask(timersvc.New(h.Timer(), timerEP.Restrict(kernel.RightRecv)))
	k.AddTask(term.New(h.Display(), termEP.Restrict(kernel.RightRecv)))
	k.AddTask(termkbd.New(h.Input(), inputEP.Restrict(kernel.RightSend)))
	k.AddTask(shell.New(
		inputEP.Restrict(kernel.RightRecv),
		termEP.Restrict(kernel.RightSend),
		timerSend.Mint(badgeShell),
		mlEP.Restrict(kernel.RightSend),
	))

	core := mlcoord.NewSimCore(simCoreMemoryBytes, 2*time.Millisecond)
	k.AddTask(mlcoord.NewService(
		core,
		h.Flash(),
		mlEP.Restrict(kernel.RightRecv),
		timerSend.Mint(badgeMlCoord),
		logEP.Restrict(kernel.RightSend),
	))

	k.AddTask(newHeartbeat(timerSend.Mint(badgeHeartbeat), k.TickTo))

	k.Start()
	return &system{k: k}
}
