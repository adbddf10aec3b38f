//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

var hostKeyMap = map[ebiten.Key]KeyCode{
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeyBackspace:  KeyBackspace,
	ebiten.KeyTab:        KeyTab,
	ebiten.KeyDelete:     KeyDelete,
}

func (k *hostKeyboard) poll() {
	emit := func(ev KeyEvent) {
		select {
		case k.ch <- ev:
		default:
		}
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		emit(KeyEvent{Press: true, Rune: r})
	}

	for key, code := range hostKeyMap {
		if inpututil.IsKeyJustPressed(key) {
			emit(KeyEvent{Code: code, Press: true})
		}
		if inpututil.IsKeyJustReleased(key) {
			emit(KeyEvent{Code: code, Press: false})
		}
	}
}
