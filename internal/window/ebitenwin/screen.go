package ebitenwin

import (
	"context"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/specialistvlad/avgboot/internal/errreport"
	"github.com/specialistvlad/avgboot/internal/loading"
)

var (
	loadingBackdrop    = color.RGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xff}
	diagnosticBackdrop = color.RGBA{R: 0x3a, G: 0x0c, B: 0x0c, A: 0xff}
)

// Screen is the ebiten game drawing the shell. It renders whatever state the
// loading service last pushed. Once a diagnostic is displayed it replaces
// everything else for the rest of the process. Stop ends the game loop.
type Screen struct {
	mu         sync.Mutex
	state      loading.State
	diagnostic string
	stopped    bool
}

// NewScreen returns a screen with the loading layer hidden.
func NewScreen() *Screen {
	return &Screen{}
}

// Render implements loading.Renderer.
func (s *Screen) Render(_ context.Context, st loading.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return nil
}

// Display implements errreport.Surface.
func (s *Screen) Display(_ context.Context, v errreport.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostic = v.Text
	if s.diagnostic == "" {
		s.diagnostic = v.Record.Type + ": " + v.Record.Description
	}
	return nil
}

// Stop makes the next Update end the game loop.
func (s *Screen) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *Screen) Update() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ebiten.Termination
	}
	return nil
}

func (s *Screen) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	st, diagnostic := s.state, s.diagnostic
	s.mu.Unlock()

	if diagnostic != "" {
		screen.Fill(diagnosticBackdrop)
		ebitenutil.DebugPrintAt(screen, diagnostic, 16, 16)
		return
	}
	if !st.Visible {
		return
	}
	screen.Fill(loadingBackdrop)
	if st.Tip != "" {
		w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
		ebitenutil.DebugPrintAt(screen, st.Tip, w/2-len(st.Tip)*3, h-32)
	}
}

func (s *Screen) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

var (
	_ ebiten.Game       = (*Screen)(nil)
	_ loading.Renderer  = (*Screen)(nil)
	_ errreport.Surface = (*Screen)(nil)
)
