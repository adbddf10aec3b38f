package app

import (
	"fmt"
	"image/color"
	"strings"

	"ember/emberos/kernel"
	"ember/hal"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// installPanicHandler converts a task panic into a log dump and a panic
// screen. The handler never returns: after reporting, the system halts
// so the failure stays on screen instead of limping on without the dead
// task.
func installPanicHandler(h hal.HAL) {
	kernel.SetPanicHandler(func(info kernel.PanicInfo) {
		logPanic(h.Logger(), info)
		showPanicScreen(h, info)
	})
}

func logPanic(l hal.Logger, info kernel.PanicInfo) {
	if l == nil {
		return
	}
	l.WriteLineString(fmt.Sprintf("Ember panic: task=%d panic=%v", info.TaskID, info.Value))
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line == "" {
			continue
		}
		l.WriteLineString(line)
	}
}

func showPanicScreen(h hal.HAL, info kernel.PanicInfo) {
	disp := h.Display()
	if disp == nil {
		select {}
	}
	fb := disp.Framebuffer()
	if fb == nil {
		select {}
	}

	fb.ClearRGB(255, 255, 255)

	font := &proggy.TinySZ8pt7b
	fontHeight, fontOffset := int16(10), int16(6)
	_, outboxWidth := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 {
		_ = fb.Present()
		select {}
	}

	lines := []string{
		"Ember panic:",
		fmt.Sprintf("task: %d", info.TaskID),
		fmt.Sprintf("panic: %v", info.Value),
	}
	if len(info.Stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	d := panicDisplay{fb: fb}
	fg := color.RGBA{A: 255}
	cols := int16(fb.Width()) / fontWidth
	if cols <= 0 {
		cols = 1
	}
	maxH := int16(fb.Height())

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+fontHeight > maxH {
				_ = fb.Present()
				select {}
			}
			chunk := line
			if int16(len(chunk)) > cols {
				chunk = line[:cols]
			}
			x := int16(0)
			for _, r := range chunk {
				tinyfont.DrawChar(d, font, x, y+fontOffset, r, fg)
				x += fontWidth
			}
			y += fontHeight
			line = strings.TrimLeft(line[len(chunk):], " ")
		}
	}

	_ = fb.Present()
	select {}
}

// panicDisplay is a minimal tinyfont target over the raw framebuffer.
// The terminal stack is not trusted once a task has panicked.
type panicDisplay struct {
	fb hal.Framebuffer
}

func (d panicDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d panicDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	if x < 0 || int(x) >= d.fb.Width() || y < 0 || int(y) >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	if buf == nil {
		return
	}
	pixel := hal.RGB565(c.R, c.G, c.B)
	off := int(y)*d.fb.StrideBytes() + int(x)*2
	if off+1 >= len(buf) {
		return
	}
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d panicDisplay) Display() error { return nil }
