package hal

import (
	"errors"
	"time"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var (
	ErrNotImplemented          = errors.New("not implemented")
	ErrFlashWriteRequiresErase = errors.New("flash write requires erase")
)

// Ticks is a value of the monotonic hardware counter.
//
// Wraparound, if the counter is narrower than 64 bits, is the backend's
// problem; consumers may assume Ticks only moves forward.
type Ticks = uint64

// HardwareTimer is the capability to the one hardware timer of the system.
//
// It exposes a free-running monotonic counter and a single comparator that
// raises an interrupt when the counter passes the programmed deadline.
// Exactly one owner (the timer service) holds it; everyone else gets
// virtual timers multiplexed on top of it over IPC.
//
// None of the operations can fail: register access is assumed to succeed,
// and calling anything before Setup is a programming error.
type HardwareTimer interface {
	// Setup performs idempotent hardware init: program the prescaler,
	// clear and disable the interrupt.
	Setup()

	// Now returns the current counter value.
	Now() Ticks

	// TicksIn converts a duration to a tick count at the timer's rate.
	TicksIn(d time.Duration) Ticks

	// Deadline returns Now() + TicksIn(d).
	Deadline(d time.Duration) Ticks

	// SetAlarm programs the comparator for the deadline and enables the
	// interrupt. Reprogramming while armed replaces the previous deadline.
	SetAlarm(deadline Ticks)

	// ClearAlarm disables the comparator without firing.
	ClearAlarm()

	// AckInterrupt clears the pending interrupt and disables the
	// comparator; the owner re-arms explicitly via SetAlarm.
	AckInterrupt()

	// IRQ delivers comparator interrupts. The channel has a depth of one;
	// interrupts coalesce while one is pending.
	IRQ() <-chan struct{}
}

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// KeyCode is a minimal key identifier.
type KeyCode uint16

const (
	KeyUnknown KeyCode = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyTab
	KeyDelete
)

// KeyEvent is a keyboard event.
type KeyEvent struct {
	Code  KeyCode
	Press bool
	Rune  rune
}

// Keyboard provides key events (best-effort on each platform).
type Keyboard interface {
	Events() <-chan KeyEvent
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Input provides access to input devices (if available).
type Input interface {
	Keyboard() Keyboard
}

// Flash provides raw access to non-volatile memory.
//
// It is intentionally low-level: addresses and erase blocks only. The
// vector-core model store lives on top of it.
type Flash interface {
	SizeBytes() uint32
	EraseBlockBytes() uint32
	ReadAt(p []byte, off uint32) (int, error)
	WriteAt(p []byte, off uint32) (int, error)
	Erase(off, size uint32) error
}

// HAL provides the only contact point between the OS and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Display() Display
	Input() Input
	Flash() Flash
	Timer() HardwareTimer
}
