package hcl

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/avgboot/internal/config"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsutil"
)

// FileName is the shell configuration file looked up in the base directory.
const FileName = "shell.hcl"

//go:embed defaults.hcl
var defaultsHCL []byte

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is the top-level structure of a shell configuration file.
type fileRoot struct {
	Preload []*preloadBlock `hcl:"preload,block"`
	Options *optionsBlock   `hcl:"preload_options,block"`
	Hotkeys []*hotkeyBlock  `hcl:"hotkey,block"`
	Window  *windowBlock    `hcl:"window,block"`
}

type preloadBlock struct {
	Name      string         `hcl:"name,label"`
	Label     string         `hcl:"label"`
	Mandatory bool           `hcl:"mandatory,optional"`
	Files     hcl.Expression `hcl:"files"`
}

type optionsBlock struct {
	Workers     *int    `hcl:"workers,optional"`
	FileTimeout *string `hcl:"file_timeout,optional"`
}

type hotkeyBlock struct {
	Action      string `hcl:"action,label"`
	Accelerator string `hcl:"accelerator"`
}

type windowBlock struct {
	Title *string `hcl:"title,optional"`
}

// Load reads path on top of the built-in defaults. A missing file, or an
// empty path, yields the defaults alone. A directory is read as drop-in
// files: every .hcl file below it, in lexical order, as if concatenated.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	parser := hclparse.NewParser()

	defaults, err := l.parse(parser, defaultsHCL, "defaults.hcl")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse built-in configuration: %w", err)
	}
	model := &config.Model{Hotkeys: map[string]string{}}
	if err := l.merge(model, defaults); err != nil {
		return nil, nil, fmt.Errorf("failed to apply built-in configuration: %w", err)
	}

	if path == "" {
		logger.Debug("No shell configuration path given, using built-in defaults.")
		return model, NewConverter(), nil
	}
	files, err := fsutil.FindFiles(path, ".hcl")
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("No shell configuration found, using built-in defaults.", "path", path)
		return model, NewConverter(), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read shell configuration %s: %w", path, err)
	}

	user := &fileRoot{}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read shell configuration %s: %w", file, err)
		}
		root, err := l.parse(parser, content, file)
		if err != nil {
			return nil, nil, err
		}
		user.append(root)
	}
	if err := l.merge(model, user); err != nil {
		return nil, nil, fmt.Errorf("invalid shell configuration %s: %w", path, err)
	}
	model.Source = path
	logger.Debug("Shell configuration loaded.", "path", path, "files", len(files), "batches", len(model.Preload), "hotkeys", len(model.Hotkeys))
	return model, NewConverter(), nil
}

// append folds a later file into r: blocks accumulate, singletons are
// replaced.
func (r *fileRoot) append(other *fileRoot) {
	r.Preload = append(r.Preload, other.Preload...)
	r.Hotkeys = append(r.Hotkeys, other.Hotkeys...)
	if other.Options != nil {
		r.Options = other.Options
	}
	if other.Window != nil {
		r.Window = other.Window
	}
}

func (l *Loader) parse(parser *hclparse.Parser, content []byte, filename string) (*fileRoot, error) {
	file, diags := parser.ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	return &root, nil
}

// merge applies root onto model. Preload blocks replace the inherited list
// as a whole; everything else overrides field by field.
func (l *Loader) merge(model *config.Model, root *fileRoot) error {
	if len(root.Preload) > 0 {
		batches, err := l.translatePreload(root.Preload)
		if err != nil {
			return err
		}
		model.Preload = batches
	}
	if root.Options != nil {
		if err := l.translateOptions(&model.Options, root.Options); err != nil {
			return err
		}
	}
	for _, h := range root.Hotkeys {
		model.Hotkeys[h.Action] = h.Accelerator
	}
	if root.Window != nil && root.Window.Title != nil {
		model.Window.Title = *root.Window.Title
	}
	return nil
}

func (l *Loader) translatePreload(blocks []*preloadBlock) ([]*config.PreloadBatch, error) {
	seen := make(map[string]bool, len(blocks))
	batches := make([]*config.PreloadBatch, 0, len(blocks))
	for _, b := range blocks {
		if seen[b.Name] {
			return nil, fmt.Errorf("duplicate preload block %q", b.Name)
		}
		seen[b.Name] = true
		batches = append(batches, &config.PreloadBatch{
			Name:      b.Name,
			Label:     b.Label,
			Mandatory: b.Mandatory,
			Files:     b.Files,
		})
	}
	return batches, nil
}

func (l *Loader) translateOptions(dst *config.PreloadOptions, b *optionsBlock) error {
	if b.Workers != nil {
		if *b.Workers < 1 {
			return fmt.Errorf("preload_options.workers must be at least 1, got %d", *b.Workers)
		}
		dst.Workers = *b.Workers
	}
	if b.FileTimeout != nil {
		d, err := time.ParseDuration(*b.FileTimeout)
		if err != nil {
			return fmt.Errorf("preload_options.file_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("preload_options.file_timeout must be positive, got %s", d)
		}
		dst.FileTimeout = d
	}
	return nil
}
