package stylesheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tpl := `.brush { mask-image: url($MASK_IMAGE_SPRITE_BRUSH); }
.brush-down { mask-image: url($MASK_IMAGE_SPRITE_BRUSH_DOWN); }
.iris-in { mask-image: url($MASK_IMAGE_SPRITE_IRIS_IN); }
.iris-out { mask-image: url($MASK_IMAGE_SPRITE_IRIS_OUT); }
.wipe { mask-image: url($MASK_IMAGE_SPRITE_WIPE); }
.shades { mask-image: url($MASK_IMAGE_SPRITE_WINDOW_SHADES); }
.again { mask-image: url($MASK_IMAGE_SPRITE_WIPE); }
`
	want := `.brush { mask-image: url(/app/data/masks/brush.png); }
.brush-down { mask-image: url(/app/data/masks/brush-down.png); }
.iris-in { mask-image: url(/app/data/masks/iris-in.png); }
.iris-out { mask-image: url(/app/data/masks/iris-out.png); }
.wipe { mask-image: url(/app/data/masks/wipe.png); }
.shades { mask-image: url(/app/data/masks/window-shades.png); }
.again { mask-image: url(/app/data/masks/wipe.png); }
`
	got := Render(tpl, "/app/data")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_RemoteRoot(t *testing.T) {
	got := Render("url($MASK_IMAGE_SPRITE_BRUSH_DOWN)", "https://cdn.x/engine/data")
	assert.Equal(t, "url(https://cdn.x/engine/data/masks/brush-down.png)", got)
}

func TestSheetLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "stylesheets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplateFile), []byte("url($MASK_IMAGE_SPRITE_WIPE)"), 0o644))

	var s Sheet
	assert.Empty(t, s.CSS())
	require.NoError(t, s.Load(context.Background(), fsys.NewNative(dir), dir))
	assert.Equal(t, "url("+filepath.Join(dir, "masks", "wipe.png")+")", s.CSS())

	assert.Error(t, s.Load(context.Background(), fsys.NewNative(dir), filepath.Join(dir, "missing")))
}
