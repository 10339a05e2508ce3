// Package ebitenwin adapts the ebiten window to window.Window.
package ebitenwin

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/specialistvlad/avgboot/internal/window"
)

// Window drives the process-wide ebiten window.
type Window struct {
	title string
}

// New returns the adapter and sets the window title.
func New(title string) *Window {
	if title != "" {
		ebiten.SetWindowTitle(title)
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return &Window{title: title}
}

func (w *Window) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

func (w *Window) ScreenSize() (int, int) {
	return ebiten.ScreenSizeInFullscreen()
}

func (w *Window) SetBounds(b window.Bounds) {
	ebiten.SetWindowSize(b.Width, b.Height)
	if !b.FullScreen {
		ebiten.SetWindowPosition(b.X, b.Y)
	}
}

func (w *Window) SetFullscreen(fullscreen bool) {
	ebiten.SetFullscreen(fullscreen)
}

var (
	_ window.Window = (*Window)(nil)
	_ window.Titler = (*Window)(nil)
)
