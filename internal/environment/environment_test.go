package environment

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/fsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoot(t *testing.T) {
	tests := []struct {
		name string
		base string
		root string
		want string
	}{
		{name: "relative dir keeps trailing slash", base: "/app", root: "assets/", want: "/app/assets/"},
		{name: "relative nested", base: "/app", root: "games/demo", want: "/app/games/demo"},
		{name: "https url untouched", base: "/app", root: "https://cdn.x/assets", want: "https://cdn.x/assets"},
		{name: "http url untouched", base: "/app", root: "http://127.0.0.1:9000/engine/", want: "http://127.0.0.1:9000/engine/"},
		{name: "scheme-less host is local", base: "/app", root: "cdn.x/assets", want: "/app/cdn.x/assets"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveRoot(tc.base, tc.root))
		})
	}
}

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DescriptorFile), []byte(content), 0o644))
	return dir
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("mixed local and remote roots", func(t *testing.T) {
		dir := writeDescriptor(t, `{"game_assets_root": "https://cdn.x/assets", "engine_bundle_root": "engine/"}`)
		r := NewResolver(fsys.NewNative(dir))

		d, err := r.Resolve(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.x/assets", d.GameAssetsRoot)
		assert.Equal(t, filepath.Join(dir, "engine")+"/", d.EngineBundleRoot)
		assert.NotEmpty(t, d.GameAssetsRoot)
		assert.NotEmpty(t, d.EngineBundleRoot)
	})

	t.Run("missing file is a read error", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewResolver(fsys.NewNative(dir)).Resolve(ctx, dir)
		assert.ErrorIs(t, err, booterr.EnvironmentRead)
	})

	t.Run("invalid json is a parse error with line", func(t *testing.T) {
		dir := writeDescriptor(t, "{\n\"game_assets_root\": \"a\",\n\"engine_bundle_root\": }")
		_, err := NewResolver(fsys.NewNative(dir)).Resolve(ctx, dir)
		require.ErrorIs(t, err, booterr.EnvironmentParse)
		rec := booterr.Normalize(err)
		assert.Equal(t, 3, rec.LineNumber)
	})

	t.Run("empty root violates the descriptor schema", func(t *testing.T) {
		dir := writeDescriptor(t, `{"game_assets_root": "", "engine_bundle_root": "engine"}`)
		_, err := NewResolver(fsys.NewNative(dir)).Resolve(ctx, dir)
		assert.ErrorIs(t, err, booterr.EnvironmentParse)
	})

	t.Run("missing field violates the descriptor schema", func(t *testing.T) {
		dir := writeDescriptor(t, `{"game_assets_root": "assets"}`)
		_, err := NewResolver(fsys.NewNative(dir)).Resolve(ctx, dir)
		assert.ErrorIs(t, err, booterr.EnvironmentParse)
	})
}

func TestWithOverrides(t *testing.T) {
	d := Descriptor{GameAssetsRoot: "/app/assets", EngineBundleRoot: "/app/engine"}

	params := url.Values{}
	params.Set(ParamAssetsRoot, "https://cdn.x/other")
	got := d.WithOverrides("/app", params)
	assert.Equal(t, "https://cdn.x/other", got.GameAssetsRoot)
	assert.Equal(t, "/app/engine", got.EngineBundleRoot)

	params = url.Values{}
	params.Set(ParamEngineRoot, "bundle")
	got = d.WithOverrides("/app", params)
	assert.Equal(t, "/app/bundle", got.EngineBundleRoot)

	assert.Equal(t, d, d.WithOverrides("/app", nil))
}
