package tinyterm

import "image/color"

// SGR parameter codes handled by the terminal.
const (
	SGRReset = 0
	SGRBold  = 1

	SGRFgBlack   = 30
	SGRFgRed     = 31
	SGRFgGreen   = 32
	SGRFgYellow  = 33
	SGRFgBlue    = 34
	SGRFgMagenta = 35
	SGRFgCyan    = 36
	SGRFgWhite   = 37

	SGRSetFgColor     = 38
	SGRDefaultFgColor = 39

	SGRBgBlack   = 40
	SGRBgRed     = 41
	SGRBgGreen   = 42
	SGRBgYellow  = 43
	SGRBgBlue    = 44
	SGRBgMagenta = 45
	SGRBgCyan    = 46
	SGRBgWhite   = 47

	SGRSetBgColor     = 48
	SGRDefaultBgColor = 49
)

// Color is an index into the xterm 256-color palette.
type Color uint8

const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

type sgrAttrs struct {
	attrs byte
	fgcol color.RGBA
	bgcol color.RGBA
}

func (a *sgrAttrs) reset() {
	a.attrs = 0
	a.fgcol = ansiColor(ColorWhite)
	a.bgcol = ansiColor(ColorBlack)
}

func (a *sgrAttrs) setFG(c Color) {
	a.fgcol = ansiColor(c)
}

func (a *sgrAttrs) setBG(c Color) {
	a.bgcol = ansiColor(c)
}

// ansiColor maps a palette index to RGB: 16 named colors, a 6x6x6
// color cube (16-231), then a 24-step grayscale ramp (232-255).
func ansiColor(c Color) color.RGBA {
	if int(c) < len(baseColors) {
		return baseColors[c]
	}
	if c >= 232 {
		v := uint8(8 + 10*(int(c)-232))
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	n := int(c) - 16
	return color.RGBA{
		R: cubeLevel(n / 36),
		G: cubeLevel(n / 6 % 6),
		B: cubeLevel(n % 6),
		A: 255,
	}
}

func cubeLevel(n int) uint8 {
	if n == 0 {
		return 0
	}
	return uint8(55 + 40*n)
}

var baseColors = [16]color.RGBA{
	{R: 0, G: 0, B: 0, A: 255},
	{R: 205, G: 0, B: 0, A: 255},
	{R: 0, G: 205, B: 0, A: 255},
	{R: 205, G: 205, B: 0, A: 255},
	{R: 0, G: 0, B: 238, A: 255},
	{R: 205, G: 0, B: 205, A: 255},
	{R: 0, G: 205, B: 205, A: 255},
	{R: 229, G: 229, B: 229, A: 255},
	{R: 127, G: 127, B: 127, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 92, G: 92, B: 255, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 255, A: 255},
}
