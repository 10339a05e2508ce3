// Package stylesheet renders the transition mask stylesheet from its
// template by substituting mask sprite locations.
package stylesheet

import (
	"context"
	"strings"
	"sync"

	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/fsys"
)

// TemplateFile is the mask stylesheet template relative to the data root.
const TemplateFile = "stylesheets/mask.css.tpl"

// MaskFiles maps every template placeholder to its sprite under the data
// root. Longer placeholders sharing a prefix must be substituted first.
var MaskFiles = []struct {
	Placeholder string
	File        string
}{
	{"$MASK_IMAGE_SPRITE_IRIS_IN", "masks/iris-in.png"},
	{"$MASK_IMAGE_SPRITE_IRIS_OUT", "masks/iris-out.png"},
	{"$MASK_IMAGE_SPRITE_WIPE", "masks/wipe.png"},
	{"$MASK_IMAGE_SPRITE_WINDOW_SHADES", "masks/window-shades.png"},
	{"$MASK_IMAGE_SPRITE_BRUSH_DOWN", "masks/brush-down.png"},
	{"$MASK_IMAGE_SPRITE_BRUSH", "masks/brush.png"},
}

// Render substitutes every placeholder in tpl with the sprite path under
// dataRoot.
func Render(tpl, dataRoot string) string {
	pairs := make([]string, 0, 2*len(MaskFiles))
	for _, m := range MaskFiles {
		pairs = append(pairs, m.Placeholder, fsys.Join(dataRoot, m.File))
	}
	// strings.Replacer tries patterns in argument order at each position
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Sheet holds the rendered stylesheet for the HTTP server and frontends.
type Sheet struct {
	mu  sync.RWMutex
	css string
}

// Load reads the template under dataRoot and renders it.
func (s *Sheet) Load(ctx context.Context, fs fsys.FileSystem, dataRoot string) error {
	path := fs.Join(dataRoot, TemplateFile)
	content, err := fs.ReadFile(ctx, path)
	if err != nil {
		return err
	}
	css := Render(string(content), dataRoot)

	s.mu.Lock()
	s.css = css
	s.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Mask stylesheet rendered.", "template", path, "bytes", len(css))
	return nil
}

// CSS returns the rendered stylesheet, "" before Load.
func (s *Sheet) CSS() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.css
}
