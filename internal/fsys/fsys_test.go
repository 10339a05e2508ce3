package fsys

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHTTPURL(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.x/assets": true,
		"http://localhost:8080": true,
		"HTTPS://CDN.X/a":       true,
		"assets/":               false,
		"/app/assets":           false,
		"file:///app/assets":    false,
		"ftp://host/a":          false,
		"http://":               false,
		"":                      false,
		`C:\games\assets`:       false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsHTTPURL(in), "input %q", in)
	}
}

func TestJoin(t *testing.T) {
	t.Run("local keeps trailing separator", func(t *testing.T) {
		assert.Equal(t, "/app/assets/", Join("/app", "assets/"))
		assert.Equal(t, "/app/assets", Join("/app", "assets"))
		assert.Equal(t, "/app/data/engine.json", Join("/app", "data", "engine.json"))
	})

	t.Run("url roots", func(t *testing.T) {
		assert.Equal(t, "https://cdn.x/assets/game.json", Join("https://cdn.x/assets", "game.json"))
		assert.Equal(t, "https://cdn.x/assets/game.json", Join("https://cdn.x/assets/", "/game.json"))
		assert.Equal(t, "https://cdn.x/assets/audio/", Join("https://cdn.x/assets", "audio/"))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "", Join())
	})
}

func TestNativeReadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("local"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	n := NewNative(dir)
	ctx := context.Background()

	data, err := n.ReadFile(ctx, n.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "local", string(data))

	data, err = n.ReadFile(ctx, srv.URL+"/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "remote:/b.txt", string(data))

	_, err = n.ReadFile(ctx, srv.URL+"/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	_, err = n.ReadFile(ctx, filepath.Join(dir, "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, dir, n.BaseDir())
	assert.True(t, n.IsRemote(srv.URL))
}
