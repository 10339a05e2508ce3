package resource

import (
	"testing"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Initialized())
	_, err := r.AssetPath("game.json")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.DataPath("masks")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, r.Init("https://cdn.x/assets", "/app/engine"))
	assert.True(t, r.Initialized())
	assert.Equal(t, "https://cdn.x/assets", r.AssetsRoot())
	assert.Equal(t, "/app/engine", r.DataRoot())

	p, err := r.AssetPath("graphics", "bg.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.x/assets/graphics/bg.png", p)

	p, err = r.DataPath("masks", "wipe.png")
	require.NoError(t, err)
	assert.Equal(t, "/app/engine/masks/wipe.png", p)
}

func TestRegistry_EmptyRoots(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Init("", "/app/engine"), booterr.ResourceResolution)
	assert.ErrorIs(t, r.Init("/app/assets", "  "), booterr.ResourceResolution)
	assert.False(t, r.Initialized())
}
