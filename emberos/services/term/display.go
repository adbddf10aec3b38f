package term

import (
	"image/color"

	"ember/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts a hal.Framebuffer to the tinyterm Displayer contract.
// The framebuffer has no hardware scroll window, so the terminal runs
// with software scrolling and drives ScrollUp instead of SetScroll.
type fbDisplay struct {
	fb hal.Framebuffer
}

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	return &fbDisplay{fb: fb}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return
	}
	if x < 0 || int(x) >= d.fb.Width() || y < 0 || int(y) >= d.fb.Height() {
		return
	}
	buf := d.fb.Buffer()
	pixel := hal.RGB565(c.R, c.G, c.B)
	off := int(y)*d.fb.StrideBytes() + int(x)*2
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	if d.fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	w := d.fb.Width()
	h := d.fb.Height()
	x0 := clamp(int(x), 0, w)
	y0 := clamp(int(y), 0, h)
	x1 := clamp(int(x)+int(width), 0, w)
	y1 := clamp(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	pixel := hal.RGB565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			buf[row+px*2] = lo
			buf[row+px*2+1] = hi
		}
	}
	return nil
}

// ScrollUp shifts the framebuffer content up by the given number of
// pixel rows and clears the exposed bottom strip. tinyterm calls this
// when software scrolling is enabled.
func (d *fbDisplay) ScrollUp(pixels int16, bg color.RGBA) error {
	if d.fb.Format() != hal.PixelFormatRGB565 || pixels <= 0 {
		return nil
	}
	h := d.fb.Height()
	n := int(pixels)
	if n >= h {
		return d.FillRectangle(0, 0, int16(d.fb.Width()), int16(h), bg)
	}

	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	copy(buf[:(h-n)*stride], buf[n*stride:h*stride])
	return d.FillRectangle(0, int16(h-n), int16(d.fb.Width()), int16(n), bg)
}

// SetScroll is the hardware scroll window hook; unused in software
// scroll mode.
func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
