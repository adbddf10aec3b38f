//go:build tinygo && baremetal

package hal

type stubFramebuffer struct {
	w int
	h int
}

func (f *stubFramebuffer) Width() int          { return f.w }
func (f *stubFramebuffer) Height() int         { return f.h }
func (f *stubFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *stubFramebuffer) StrideBytes() int    { return f.w * 2 }
func (f *stubFramebuffer) Buffer() []byte      { return nil }
func (f *stubFramebuffer) Present() error      { return ErrNotImplemented }

func (f *stubFramebuffer) ClearRGB(_, _, _ uint8) {}

type stubKeyboard struct{}

func (k *stubKeyboard) Events() <-chan KeyEvent { return nil }

// memFlash is a RAM-backed stand-in until a board port wires the real
// flash controller.
type memFlash struct {
	buf []byte
}

func newMemFlash(size uint32) *memFlash {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0xFF
	}
	return &memFlash{buf: buf}
}

func (f *memFlash) SizeBytes() uint32       { return uint32(len(f.buf)) }
func (f *memFlash) EraseBlockBytes() uint32 { return 4096 }

func (f *memFlash) ReadAt(p []byte, off uint32) (int, error) {
	if off >= uint32(len(f.buf)) {
		return 0, ErrNotImplemented
	}
	n := copy(p, f.buf[off:])
	return n, nil
}

func (f *memFlash) WriteAt(p []byte, off uint32) (int, error) {
	if off >= uint32(len(f.buf)) {
		return 0, ErrNotImplemented
	}
	for i := range p {
		if int(off)+i >= len(f.buf) {
			return i, nil
		}
		if f.buf[off+uint32(i)]&p[i] != p[i] {
			return i, ErrFlashWriteRequiresErase
		}
		f.buf[off+uint32(i)] = p[i]
	}
	return len(p), nil
}

func (f *memFlash) Erase(off, size uint32) error {
	if off+size > uint32(len(f.buf)) {
		return ErrNotImplemented
	}
	for i := off; i < off+size; i++ {
		f.buf[i] = 0xFF
	}
	return nil
}
