// Package window computes and applies the desktop window geometry derived
// from the game settings.
package window

import (
	"context"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/settings"
)

// Bounds is a window rectangle in screen coordinates.
type Bounds struct {
	X, Y          int
	Width, Height int
	FullScreen    bool
}

// Window is the platform window. Only desktop builds provide one.
type Window interface {
	// ScreenSize returns the size of the primary display.
	ScreenSize() (width, height int)
	SetBounds(b Bounds)
	SetFullscreen(fullscreen bool)
}

// Titler is implemented by windows that can change their title.
type Titler interface {
	SetTitle(title string)
}

// SetTitle sets the window title when win supports it.
func SetTitle(win Window, title string) bool {
	t, ok := win.(Titler)
	if !ok || title == "" {
		return false
	}
	t.SetTitle(title)
	return true
}

// Geometry returns the desired bounds for the given screen: the whole
// screen in full-screen mode, otherwise a window of the configured size
// centered on the screen.
func Geometry(fullscreen bool, width, height, screenW, screenH int) Bounds {
	if fullscreen {
		return Bounds{Width: screenW, Height: screenH, FullScreen: true}
	}
	x := screenW/2 - width/2
	y := screenH/2 - height/2
	// keep the title bar reachable on screens smaller than the window
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return Bounds{X: x, Y: y, Width: width, Height: height}
}

// Apply sizes win from game settings. It is a no-op when win is nil, which
// is the case off desktop.
func Apply(ctx context.Context, win Window, game *settings.Game) (Bounds, error) {
	logger := ctxlog.FromContext(ctx)
	if win == nil {
		logger.Debug("No desktop window, skipping geometry.")
		return Bounds{}, nil
	}

	width, height := settings.DefaultWindowWidth, settings.DefaultWindowHeight
	fullscreen := false
	if game != nil {
		width, height, fullscreen = game.WindowWidth, game.WindowHeight, game.FullScreen
	}

	sw, sh := win.ScreenSize()
	b := Geometry(fullscreen, width, height, sw, sh)
	win.SetBounds(b)
	if b.FullScreen {
		win.SetFullscreen(true)
	}
	logger.Debug("Window geometry applied.", "x", b.X, "y", b.Y, "width", b.Width, "height", b.Height, "fullscreen", b.FullScreen)
	return b, nil
}
