package term

import (
	"image/color"
	"testing"

	"ember/hal"

	"tinygo.org/x/tinyterm"
)

// fbDisplay must satisfy both the terminal displayer contract and the
// software scroll hook the terminal probes for.
var (
	_ tinyterm.Displayer = (*fbDisplay)(nil)
	_ interface {
		ScrollUp(pixels int16, bg color.RGBA) error
	} = (*fbDisplay)(nil)
)

type testFB struct {
	w, h     int
	buf      []byte
	presents int
}

func newTestFB(w, h int) *testFB {
	return &testFB{w: w, h: h, buf: make([]byte, w*h*2)}
}

func (f *testFB) Width() int              { return f.w }
func (f *testFB) Height() int             { return f.h }
func (f *testFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *testFB) StrideBytes() int        { return f.w * 2 }
func (f *testFB) Buffer() []byte          { return f.buf }

func (f *testFB) ClearRGB(r, g, b uint8) {
	pixel := hal.RGB565(r, g, b)
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = byte(pixel)
		f.buf[i+1] = byte(pixel >> 8)
	}
}

func (f *testFB) Present() error {
	f.presents++
	return nil
}

func (f *testFB) pixelAt(x, y int) uint16 {
	off := y*f.StrideBytes() + x*2
	return uint16(f.buf[off]) | uint16(f.buf[off+1])<<8
}

func TestScrollUpMovesRowsAndClearsBottom(t *testing.T) {
	fb := newTestFB(8, 16)
	d := newFBDisplay(fb)

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	d.SetPixel(3, 10, white)

	if err := d.ScrollUp(10, color.RGBA{A: 255}); err != nil {
		t.Fatalf("ScrollUp: %v", err)
	}

	if got := fb.pixelAt(3, 0); got != hal.RGB565(255, 255, 255) {
		t.Fatalf("pixel did not move to top row: %#04x", got)
	}
	for y := 6; y < 16; y++ {
		for x := 0; x < 8; x++ {
			if got := fb.pixelAt(x, y); got != 0 {
				t.Fatalf("bottom strip not cleared at (%d,%d): %#04x", x, y, got)
			}
		}
	}
}

func TestScrollUpWholeHeightClears(t *testing.T) {
	fb := newTestFB(4, 4)
	d := newFBDisplay(fb)
	d.SetPixel(1, 1, color.RGBA{R: 255, A: 255})

	if err := d.ScrollUp(4, color.RGBA{A: 255}); err != nil {
		t.Fatalf("ScrollUp: %v", err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got := fb.pixelAt(x, y); got != 0 {
				t.Fatalf("pixel survived full-height scroll at (%d,%d)", x, y)
			}
		}
	}
}
