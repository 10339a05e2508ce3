package config

import (
	"context"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration at path, translates it into the
	// format-agnostic model, and returns a matching Converter. A missing
	// file yields the built-in defaults.
	Load(ctx context.Context, path string) (*Model, Converter, error)
}

// Converter evaluates the parts of the model that can only be resolved once
// the bootstrap knows its roots.
type Converter interface {
	// Files evaluates the file list of a preload batch against vars.
	Files(ctx context.Context, batch *PreloadBatch, vars Variables) ([]string, error)
}
