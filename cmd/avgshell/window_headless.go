//go:build headless

package main

import "github.com/specialistvlad/avgboot/internal/app"

func newFrontend(*app.Config) frontend {
	return headless{}
}
