// Package scripting exposes the shell API to game scripts through an
// embedded JavaScript VM.
package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/specialistvlad/avgboot/internal/ctxlog"
	"github.com/specialistvlad/avgboot/internal/resource"
	"github.com/specialistvlad/avgboot/internal/settings"
)

// GlobalName is the name of the API object inside the VM.
const GlobalName = "avg"

// Bindings are the shell services the API reads from.
type Bindings struct {
	Engine    *settings.Engine
	Game      *settings.Game
	Resources *resource.Registry
	// Ready reports the readiness flag.
	Ready func() bool
}

// Runtime is a single VM with the API installed. goja runtimes are not
// safe for concurrent use, so every call is serialized.
type Runtime struct {
	mu sync.Mutex
	vm *goja.Runtime
}

// New creates a VM and installs the API object.
func New(ctx context.Context, b Bindings) (*Runtime, error) {
	logger := ctxlog.FromContext(ctx).With("component", "scripting")
	vm := goja.New()

	api := vm.NewObject()

	settingsObj := vm.NewObject()
	if err := settingsObj.Set("get", func(key string) any {
		if b.Engine == nil {
			return nil
		}
		v, ok := b.Engine.Get(key)
		if !ok {
			return nil
		}
		return toJS(v)
	}); err != nil {
		return nil, err
	}

	gameObj := vm.NewObject()
	if b.Game != nil {
		for k, v := range map[string]any{
			"title":        b.Game.Title,
			"fullscreen":   b.Game.FullScreen,
			"windowWidth":  b.Game.WindowWidth,
			"windowHeight": b.Game.WindowHeight,
		} {
			if err := gameObj.Set(k, v); err != nil {
				return nil, err
			}
		}
	}

	resObj := vm.NewObject()
	for name, fn := range map[string]any{
		"assetsRoot": func() string { return rootOf(b.Resources, true) },
		"dataRoot":   func() string { return rootOf(b.Resources, false) },
		"assetPath": func(rel string) (string, error) {
			if b.Resources == nil {
				return "", resource.ErrNotInitialized
			}
			return b.Resources.AssetPath(rel)
		},
	} {
		if err := resObj.Set(name, fn); err != nil {
			return nil, err
		}
	}

	members := map[string]any{
		"settings": settingsObj,
		"game":     gameObj,
		"resource": resObj,
		"log": func(args ...any) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = fmt.Sprint(a)
			}
			logger.Info(strings.Join(parts, " "))
		},
		"ready": func() bool {
			return b.Ready != nil && b.Ready()
		},
	}
	if b.Engine != nil {
		members["version"] = b.Engine.Version()
	}
	for name, v := range members {
		if err := api.Set(name, v); err != nil {
			return nil, fmt.Errorf("failed to install %s.%s: %w", GlobalName, name, err)
		}
	}
	if err := vm.Set(GlobalName, api); err != nil {
		return nil, err
	}
	return &Runtime{vm: vm}, nil
}

// Run evaluates src and exports its completion value. The VM is interrupted
// when ctx is done.
func (r *Runtime) Run(ctx context.Context, name, src string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vm.ClearInterrupt()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := r.vm.RunScript(name, src)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.vm.ClearInterrupt()
			return nil, fmt.Errorf("script %s interrupted: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("failed to run script %s: %w", name, err)
	}
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	return val.Export(), nil
}

func rootOf(r *resource.Registry, assets bool) string {
	if r == nil {
		return ""
	}
	if assets {
		return r.AssetsRoot()
	}
	return r.DataRoot()
}

// toJS converts decoded settings into values goja maps naturally.
func toJS(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = toJS(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toJS(e)
		}
		return out
	}
	return v
}
