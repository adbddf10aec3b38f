//go:build tinygo && baremetal

package hal

import (
	"machine"
	"sync"
	"time"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	fb     Framebuffer
	kbd    Keyboard
	timer  *tinyGoTimer
	flash  Flash
}

// New returns a board HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		fb:     &stubFramebuffer{w: 480, h: 320},
		kbd:    &stubKeyboard{},
		timer:  newTinyGoTimer(),
		flash:  newMemFlash(256 * 1024),
	}
}

func (h *tinyGoHAL) Logger() Logger       { return h.logger }
func (h *tinyGoHAL) LED() LED             { return h.led }
func (h *tinyGoHAL) Display() Display     { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Input() Input         { return tinyGoInput{kbd: h.kbd} }
func (h *tinyGoHAL) Flash() Flash         { return h.flash }
func (h *tinyGoHAL) Timer() HardwareTimer { return h.timer }

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoInput struct {
	kbd Keyboard
}

func (in tinyGoInput) Keyboard() Keyboard { return in.kbd }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// tinyGoTimer drives the comparator from the scheduler clock. A board
// port with a real timer block replaces this with register access.
const tinyGoTimerHz = 1000

type tinyGoTimer struct {
	mu    sync.Mutex
	start time.Time
	ready bool

	alarm   *time.Timer
	armed   bool
	pending bool

	irq chan struct{}
}

func newTinyGoTimer() *tinyGoTimer {
	return &tinyGoTimer{irq: make(chan struct{}, 1)}
}

func (t *tinyGoTimer) Setup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		t.disarmLocked()
		t.pending = false
		return
	}
	t.ready = true
	t.start = time.Now()
}

func (t *tinyGoTimer) Now() Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nowLocked()
}

func (t *tinyGoTimer) nowLocked() Ticks {
	return Ticks(time.Since(t.start) * tinyGoTimerHz / time.Second)
}

func (t *tinyGoTimer) TicksIn(d time.Duration) Ticks {
	return Ticks(d * tinyGoTimerHz / time.Second)
}

func (t *tinyGoTimer) Deadline(d time.Duration) Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nowLocked() + t.TicksIn(d)
}

func (t *tinyGoTimer) SetAlarm(deadline Ticks) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.disarmLocked()
	t.armed = true

	now := t.nowLocked()
	if deadline <= now {
		t.fireLocked()
		return
	}
	wait := time.Duration(deadline-now) * time.Second / tinyGoTimerHz
	t.alarm = time.AfterFunc(wait, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.fireLocked()
	})
}

func (t *tinyGoTimer) ClearAlarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()
}

func (t *tinyGoTimer) AckInterrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disarmLocked()
	t.pending = false
}

func (t *tinyGoTimer) IRQ() <-chan struct{} { return t.irq }

func (t *tinyGoTimer) fireLocked() {
	if !t.armed {
		return
	}
	t.armed = false
	t.pending = true
	select {
	case t.irq <- struct{}{}:
	default:
	}
}

func (t *tinyGoTimer) disarmLocked() {
	t.armed = false
	if t.alarm != nil {
		t.alarm.Stop()
		t.alarm = nil
	}
}
