// Package resource is the registry of the two resolved roots every later
// stage builds paths from.
package resource

import (
	"errors"
	"strings"
	"sync"

	"github.com/specialistvlad/avgboot/internal/booterr"
	"github.com/specialistvlad/avgboot/internal/fsys"
)

// ErrNotInitialized is returned by lookups before Init.
var ErrNotInitialized = errors.New("resource roots not initialized")

// Registry holds the asset root and the engine data root.
type Registry struct {
	mu          sync.RWMutex
	assetsRoot  string
	dataRoot    string
	initialized bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Init records both roots. Empty roots are a ResourceResolution error.
func (r *Registry) Init(assetsRoot, dataRoot string) error {
	if strings.TrimSpace(assetsRoot) == "" {
		return booterr.New(booterr.ResourceResolution, "resource.init", "", errors.New("game assets root is empty"))
	}
	if strings.TrimSpace(dataRoot) == "" {
		return booterr.New(booterr.ResourceResolution, "resource.init", "", errors.New("engine bundle root is empty"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.assetsRoot = assetsRoot
	r.dataRoot = dataRoot
	r.initialized = true
	return nil
}

// Initialized reports whether Init succeeded.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Registry) AssetsRoot() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assetsRoot
}

func (r *Registry) DataRoot() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dataRoot
}

// AssetPath joins rel onto the asset root.
func (r *Registry) AssetPath(rel ...string) (string, error) {
	root := r.AssetsRoot()
	if root == "" {
		return "", ErrNotInitialized
	}
	return fsys.Join(append([]string{root}, rel...)...), nil
}

// DataPath joins rel onto the engine data root.
func (r *Registry) DataPath(rel ...string) (string, error) {
	root := r.DataRoot()
	if root == "" {
		return "", ErrNotInitialized
	}
	return fsys.Join(append([]string{root}, rel...)...), nil
}
