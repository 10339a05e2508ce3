package readiness

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagIsMonotonic(t *testing.T) {
	var f Flag
	assert.False(t, f.Ready())

	f.Set()
	assert.True(t, f.Ready())

	f.Set()
	assert.True(t, f.Ready(), "a second Set must not flip the flag back")
}

func TestFlagConcurrentReaders(t *testing.T) {
	var f Flag
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// once a reader observes true it must never observe false again
			was := false
			for j := 0; j < 100; j++ {
				now := f.Ready()
				if was && !now {
					t.Errorf("reader %d saw readiness go back to false", i)
					return
				}
				was = now
			}
		}(i)
	}
	f.Set()
	wg.Wait()
	assert.True(t, f.Ready())
}

func TestOnReady(t *testing.T) {
	var f Flag
	calls := 0
	f.OnReady(func() { calls++ })
	assert.Equal(t, 0, calls)

	f.Set()
	f.Set()
	assert.Equal(t, 1, calls)

	f.OnReady(func() { calls++ })
	assert.Equal(t, 2, calls)
}

func TestGate(t *testing.T) {
	var f Flag
	g := NewGate(&f)

	assert.False(t, g.CanActivate("/main"))
	assert.False(t, g.CanActivate("main/"))
	assert.False(t, g.CanActivate("/main?from=boot"))
	assert.True(t, g.CanActivate("/diagnostic"))

	f.Set()
	assert.True(t, g.CanActivate("/main"))
}

func TestGateServeHTTP(t *testing.T) {
	var f Flag
	g := NewGate(&f, "/main", "/editor")

	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, g.CanActivate("/editor"))

	f.Set()
	rec = httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "READY", rec.Body.String())
}
