package config

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/avgboot/internal/preload"
)

// Model is the unified representation of the shell configuration.
type Model struct {
	// Source is the file the model was read from, empty for built-in
	// defaults.
	Source  string
	Preload []*PreloadBatch
	Options PreloadOptions
	Hotkeys map[string]string
	Window  WindowDefaults
}

// PreloadBatch is the format-agnostic representation of a `preload` block.
// Files stays unevaluated until the roots are resolved.
type PreloadBatch struct {
	Name      string
	Label     string
	Mandatory bool
	Files     hcl.Expression
}

// PreloadOptions tunes the batcher.
type PreloadOptions struct {
	Workers     int
	FileTimeout time.Duration
}

// WindowDefaults applies when game settings leave a value out.
type WindowDefaults struct {
	Title string
}

// Variables are the values file expressions may reference.
type Variables struct {
	EngineDir         string
	DataRoot          string
	AssetsRoot        string
	DefaultFont       string
	LoadingBackground string
}

// Plan evaluates every preload batch in declaration order.
func (m *Model) Plan(ctx context.Context, conv Converter, vars Variables) (preload.Plan, error) {
	plan := make(preload.Plan, 0, len(m.Preload))
	for _, b := range m.Preload {
		files, err := conv.Files(ctx, b, vars)
		if err != nil {
			return nil, fmt.Errorf("preload %q: %w", b.Name, err)
		}
		plan = append(plan, preload.Batch{Label: b.Label, Files: files, Mandatory: b.Mandatory})
	}
	return plan, nil
}

// BatcherOptions converts the preload options for the batcher.
func (o PreloadOptions) BatcherOptions() preload.Options {
	return preload.Options{Workers: o.Workers, FileTimeout: o.FileTimeout}
}
