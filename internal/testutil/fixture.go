package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Masks and shaders the built-in preload plan expects under data/.
var (
	FixtureMasks   = []string{"brush-down", "brush", "iris-in", "iris-out", "window-shades", "wipe"}
	FixtureShaders = []string{
		"bg_fsh", "fx_brightbuf_fsh", "fx_common_fsh", "fx_common_vsh", "fx_dirblur_r4_fsh",
		"pp_final_fsh", "pp_final_vsh", "sakura_point_fsh", "sakura_point_vsh",
	}
)

// Fixture is a complete shell base directory on disk.
type Fixture struct {
	t   *testing.T
	Dir string
}

// NewFixture writes a base directory that boots cleanly with the built-in
// configuration: env.avd, engine settings, game settings, the mask
// stylesheet template, every mask and shader, and a loading background.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	f := &Fixture{t: t, Dir: t.TempDir()}

	f.Write("env.avd", `{"game_assets_root": "assets/", "engine_bundle_root": "engine/"}`)
	f.Write("data/engine.json", `{
  "engine": {
    "version": "1.4.0",
    "loading_screen": {"background": "graphics/loading.png"}
  }
}`)
	f.Write("assets/game.json", `{
  "title": "Fixture Story",
  "fullscreen": false,
  "window_width": 1024,
  "window_height": 576,
  "engine_version": "^1.2"
}`)
	f.Write("data/stylesheets/mask.css.tpl", ".wipe { mask-image: url('$MASK_IMAGE_SPRITE_WIPE'); }\n")
	f.WriteBytes("assets/graphics/loading.png", PNG())
	for _, m := range FixtureMasks {
		f.WriteBytes(filepath.Join("data", "masks", m+".png"), PNG())
	}
	for _, s := range FixtureShaders {
		f.Write(filepath.Join("data", "effects", "shader", s+".shader"), "void main() {}\n")
	}
	require.NoError(t, os.MkdirAll(filepath.Join(f.Dir, "engine"), 0o755))
	return f
}

// Path returns the absolute path of rel inside the fixture.
func (f *Fixture) Path(rel string) string {
	return filepath.Join(f.Dir, rel)
}

// Write creates or replaces a text file.
func (f *Fixture) Write(rel, content string) {
	f.WriteBytes(rel, []byte(content))
}

// WriteBytes creates or replaces a file.
func (f *Fixture) WriteBytes(rel string, content []byte) {
	f.t.Helper()
	path := f.Path(rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(f.t, os.WriteFile(path, content, 0o644))
}

// Remove deletes a file.
func (f *Fixture) Remove(rel string) {
	f.t.Helper()
	require.NoError(f.t, os.Remove(f.Path(rel)))
}

// PNG returns a valid 1x1 PNG image.
func PNG() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
