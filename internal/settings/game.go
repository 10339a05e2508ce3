package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsys"
)

// GameFile is the game settings file name under the asset root.
const GameFile = "game.json"

const (
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 720
)

const gameSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "title":          {"type": "string"},
    "fullscreen":     {"type": "boolean"},
    "window_width":   {"type": "integer", "minimum": 1},
    "window_height":  {"type": "integer", "minimum": 1},
    "engine_version": {"type": "string", "minLength": 1}
  }
}`

var gameSchemaCompiled = jsonschema.MustCompileString("game.schema.json", gameSchema)

// Game holds the typed game-level settings plus the raw document.
type Game struct {
	Title         string `json:"title"`
	FullScreen    bool   `json:"fullscreen"`
	WindowWidth   int    `json:"window_width"`
	WindowHeight  int    `json:"window_height"`
	EngineVersion string `json:"engine_version"`

	path string
	doc  map[string]any
}

// LoadGame reads GameFile under the resolved asset root.
func LoadGame(ctx context.Context, fs fsys.FileSystem, assetsRoot string) (*Game, error) {
	return LoadGameFile(ctx, fs, fs.Join(assetsRoot, GameFile))
}

// LoadGameFile reads game settings from an explicit path.
func LoadGameFile(ctx context.Context, fs fsys.FileSystem, path string) (*Game, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading game settings.", "path", path)

	content, err := fs.ReadFile(ctx, path)
	if err != nil {
		return nil, booterr.New(booterr.SettingsParse, "settings.game", path, err)
	}
	g, err := ParseGame(path, content)
	if err != nil {
		return nil, err
	}
	logger.Debug("Game settings loaded.", "title", g.Title, "fullscreen", g.FullScreen,
		"width", g.WindowWidth, "height", g.WindowHeight)
	return g, nil
}

// ParseGame parses raw game settings content and applies window defaults.
func ParseGame(path string, content []byte) (*Game, error) {
	doc, normalized, err := decodeDocument("settings.game", path, content)
	if err != nil {
		return nil, err
	}

	if err := gameSchemaCompiled.Validate(map[string]any(doc)); err != nil {
		return nil, booterr.New(booterr.SettingsParse, "settings.game", path, fmt.Errorf("invalid game settings: %w", err))
	}

	g := &Game{path: path, doc: doc}
	if err := json.Unmarshal(normalized, g); err != nil {
		return nil, booterr.FromJSON(booterr.SettingsParse, "settings.game", path, normalized, err)
	}
	if g.WindowWidth == 0 {
		g.WindowWidth = DefaultWindowWidth
	}
	if g.WindowHeight == 0 {
		g.WindowHeight = DefaultWindowHeight
	}
	return g, nil
}

// Path is where the settings were read from.
func (g *Game) Path() string { return g.path }

// Get returns a raw value by dotted key.
func (g *Game) Get(key string) (any, bool) {
	return lookup(g.doc, key)
}
