package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/avgboot/internal/config"
	"github.com/specialistvlad/avgboot/internal/preload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultVars() config.Variables {
	return config.Variables{
		EngineDir:         "/app",
		DataRoot:          "/app/engine",
		AssetsRoot:        "https://cdn.x/assets",
		DefaultFont:       "fonts/default.ttf",
		LoadingBackground: "",
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Arrange
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), FileName)

	// Act
	model, conv, err := NewLoader().Load(ctx, missing)
	require.NoError(t, err)
	plan, err := model.Plan(ctx, conv, defaultVars())
	require.NoError(t, err)

	// Assert
	assert.Empty(t, model.Source)
	assert.Equal(t, 8, model.Options.Workers)
	assert.Equal(t, 30*time.Second, model.Options.FileTimeout)
	assert.Equal(t, "AVG", model.Window.Title)
	assert.Empty(t, model.Hotkeys)

	require.Len(t, plan, 5)
	assert.Equal(t, "加载中...", plan[0].Label)
	assert.True(t, plan[0].Mandatory)
	assert.Empty(t, plan[0].Files, "an empty loading background leaves the first frame empty")
	assert.Equal(t, preload.Batch{
		Label: "正在加载字体...",
		Files: []string{"https://cdn.x/assets/fonts/default.ttf"},
	}, plan[1], "fonts are best effort")

	assert.Equal(t, "正在加载过渡效果...", plan[2].Label)
	assert.False(t, plan[2].Mandatory)
	require.Len(t, plan[2].Files, 6)
	assert.Equal(t, filepath.Join("/app", "data", "masks", "brush-down.png"), plan[2].Files[0])

	assert.Equal(t, "正在加载特效...", plan[3].Label)
	assert.False(t, plan[3].Mandatory)
	require.Len(t, plan[3].Files, 9)
	assert.Equal(t, filepath.Join("/app", "data", "effects", "shader", "sakura_point_vsh.shader"), plan[3].Files[8])

	assert.Equal(t, "加载游戏资源...", plan[4].Label)
	assert.Empty(t, plan[4].Files)
	assert.Equal(t, 16, plan.FileCount())
}

func TestLoad_DefaultsFirstFrameHoldsOnlyTheBackground(t *testing.T) {
	ctx := context.Background()
	model, conv, err := NewLoader().Load(ctx, "")
	require.NoError(t, err)

	vars := defaultVars()
	vars.LoadingBackground = "graphics/loading.png"
	plan, err := model.Plan(ctx, conv, vars)
	require.NoError(t, err)

	for _, batch := range plan[1:] {
		assert.False(t, batch.Mandatory, "batch %q", batch.Label)
	}
	assert.Equal(t, []string{"https://cdn.x/assets/graphics/loading.png"}, plan[0].Files)
	assert.Equal(t, []string{"https://cdn.x/assets/fonts/default.ttf"}, plan[1].Files)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	model, _, err := NewLoader().Load(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, model.Preload, 5)
}

func TestLoad_UserFileOverrides(t *testing.T) {
	// Arrange
	ctx := context.Background()
	path := writeConfig(t, `
preload_options {
  file_timeout = "5s"
}

window {
  title = "Demo"
}

hotkey "skip" {
  accelerator = "ctrl+shift+k"
}

hotkey "devtools" {
  accelerator = ""
}

preload "opening" {
  label     = "opening"
  mandatory = true
  files     = [path_join(assets_root, "bgm/opening.ogg"), path_join(data_root, "ui/title.png")]
}

preload "voices" {
  label = format("voices of %s", "chapter 1")
  files = distinct(concat(["a.ogg"], ["a.ogg", "b.ogg"]))
}
`)

	// Act
	model, conv, err := NewLoader().Load(ctx, path)
	require.NoError(t, err)
	plan, err := model.Plan(ctx, conv, defaultVars())
	require.NoError(t, err)

	// Assert
	assert.Equal(t, path, model.Source)
	assert.Equal(t, 8, model.Options.Workers, "unset fields keep defaults")
	assert.Equal(t, 5*time.Second, model.Options.FileTimeout)
	assert.Equal(t, "Demo", model.Window.Title)
	assert.Equal(t, map[string]string{"skip": "ctrl+shift+k", "devtools": ""}, model.Hotkeys)

	require.Len(t, plan, 2, "declared batches replace the defaults")
	assert.Equal(t, []string{"https://cdn.x/assets/bgm/opening.ogg", filepath.Join("/app/engine", "ui", "title.png")}, plan[0].Files)
	assert.True(t, plan[0].Mandatory)
	assert.Equal(t, "voices of chapter 1", plan[1].Label)
	assert.Equal(t, []string{"a.ogg", "b.ogg"}, plan[1].Files)

	opts := model.Options.BatcherOptions()
	assert.Equal(t, 5*time.Second, opts.FileTimeout)
}

func TestLoad_DropInDirectory(t *testing.T) {
	// Arrange
	dir := filepath.Join(t.TempDir(), "shell.d")
	files := map[string]string{
		"10-window.hcl":  "window {\n  title = \"First\"\n}\nhotkey \"skip\" {\n  accelerator = \"ctrl+k\"\n}\n",
		"20-window.hcl":  "window {\n  title = \"Second\"\n}\n",
		"30-preload.hcl": "preload \"a\" {\n  label = \"a\"\n  files = [\"a.png\"]\n}\n",
		"40-preload.hcl": "preload \"b\" {\n  label = \"b\"\n  files = [\"b.png\"]\n}\n",
		"README.md":      "ignored",
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	// Act
	model, _, err := NewLoader().Load(context.Background(), dir)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, dir, model.Source)
	assert.Equal(t, "Second", model.Window.Title, "later files win")
	assert.Equal(t, "ctrl+k", model.Hotkeys["skip"])
	require.Len(t, model.Preload, 2, "blocks accumulate across files")
	assert.Equal(t, "a", model.Preload[0].Name)
	assert.Equal(t, "b", model.Preload[1].Name)
}

func TestLoad_DropInDuplicatePreload(t *testing.T) {
	dir := t.TempDir()
	block := "preload \"same\" {\n  label = \"x\"\n  files = []\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.hcl"), []byte(block), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.hcl"), []byte(block), 0o644))

	_, _, err := NewLoader().Load(context.Background(), dir)
	assert.ErrorContains(t, err, `duplicate preload block "same"`)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax error",
			content: `preload "a" {`,
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			content: `stage "x" {}`,
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "duplicate preload",
			content: "preload \"a\" {\n label = \"a\"\n files = []\n}\npreload \"a\" {\n label = \"b\"\n files = []\n}\n",
			wantErr: `duplicate preload block "a"`,
		},
		{
			name:    "bad timeout",
			content: "preload_options {\n file_timeout = \"soon\"\n}\n",
			wantErr: "preload_options.file_timeout",
		},
		{
			name:    "zero workers",
			content: "preload_options {\n workers = 0\n}\n",
			wantErr: "workers must be at least 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := NewLoader().Load(context.Background(), writeConfig(t, tc.content))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConverter_Files(t *testing.T) {
	ctx := context.Background()
	load := func(t *testing.T, files string) *config.PreloadBatch {
		t.Helper()
		model, _, err := NewLoader().Load(ctx, writeConfig(t, "preload \"b\" {\n label = \"b\"\n files = "+files+"\n}\n"))
		require.NoError(t, err)
		return model.Preload[0]
	}

	t.Run("empty entry is rejected", func(t *testing.T) {
		_, err := NewConverter().Files(ctx, load(t, `["a", ""]`), defaultVars())
		assert.ErrorContains(t, err, "empty file path")
	})

	t.Run("compact drops empty entries", func(t *testing.T) {
		files, err := NewConverter().Files(ctx, load(t, `compact(["a", loading_background])`), defaultVars())
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, files)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := NewConverter().Files(ctx, load(t, `[nope]`), defaultVars())
		assert.Error(t, err)
	})

	t.Run("non-list value", func(t *testing.T) {
		_, err := NewConverter().Files(ctx, load(t, `{a = 1}`), defaultVars())
		assert.ErrorContains(t, err, "cannot convert")
	})
}
