package settings

import (
	"context"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsys"
)

// EngineFile is the engine settings location relative to the base directory.
const EngineFile = "data/engine.json"

// Well-known engine keys.
const (
	KeyEngineVersion     = "engine.version"
	KeyLoadingBackground = "engine.loading_screen.background"
	KeyDefaultFonts      = "engine.default_fonts"
)

// Engine is the engine-wide setting store.
type Engine struct {
	path string
	doc  map[string]any
}

// LoadEngine reads EngineFile under baseDir.
func LoadEngine(ctx context.Context, fs fsys.FileSystem, baseDir string) (*Engine, error) {
	return LoadEngineFile(ctx, fs, fs.Join(baseDir, EngineFile))
}

// LoadEngineFile reads engine settings from an explicit path. Read failures
// are reported as SettingsParse as well, since the stage cannot continue
// either way.
func LoadEngineFile(ctx context.Context, fs fsys.FileSystem, path string) (*Engine, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading engine settings.", "path", path)

	content, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, booterr.New(booterr.SettingsParse, "settings.engine", path, err)
	}
	e, err := ParseEngine(path, content)
	if err != nil {
		return nil, err
	}
	logger.Debug("Engine settings loaded.", "keys", len(e.doc), "version", e.Version())
	return e, nil
}

// ParseEngine parses raw engine settings content.
func ParseEngine(path string, content []byte) (*Engine, error) {
	doc, _, err := decodeDocument("settings.engine", path, content)
	if err != nil {
		return nil, err
	}
	return &Engine{path: path, doc: doc}, nil
}

// Path is where the settings were read from.
func (e *Engine) Path() string { return e.path }

// Get returns the value at a dotted key such as
// "engine.loading_screen.background".
func (e *Engine) Get(key string) (any, bool) {
	return lookup(e.doc, key)
}

// String returns the value at key as a string, or "" when it is missing or
// not a scalar.
func (e *Engine) String(key string) string {
	v, ok := e.Get(key)
	if !ok {
		return ""
	}
	s, _ := asString(v)
	return s
}

// Int returns the value at key as an int.
func (e *Engine) Int(key string) (int, bool) {
	v, ok := e.Get(key)
	if !ok {
		return 0, false
	}
	return asInt(v)
}

// Version is the declared engine version, "" when absent.
func (e *Engine) Version() string {
	return e.String(KeyEngineVersion)
}
