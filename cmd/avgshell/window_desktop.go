//go:build !headless

package main

import (
	"context"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/specialistvlad/avgboot/internal/app"
	"github.com/specialistvlad/avgboot/internal/window/ebitenwin"
)

type desktop struct {
	win    *ebitenwin.Window
	screen *ebitenwin.Screen
}

func newFrontend(cfg *app.Config) frontend {
	if cfg.Headless {
		return headless{}
	}
	return &desktop{win: ebitenwin.New("AVG"), screen: ebitenwin.NewScreen()}
}

func (d *desktop) options() []app.Option {
	return []app.Option{
		app.WithWindow(d.win),
		app.WithRenderer(d.screen),
		app.WithSurface(d.screen),
	}
}

// loop runs body beside the ebiten game loop, which must own the main
// thread. Closing the window cancels body.
func (d *desktop) loop(ctx context.Context, body func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		err := body(ctx)
		d.screen.Stop()
		done <- err
	}()

	if err := ebiten.RunGame(d.screen); err != nil && !errors.Is(err, ebiten.Termination) {
		cancel()
		<-done
		return err
	}
	cancel()
	return <-done
}
