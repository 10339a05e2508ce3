// Package input holds the hotkey bindings of the shell.
package input

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModMeta
)

var modifierNames = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"option":  ModAlt,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"super":   ModMeta,
}

// Accelerator is a key with its modifiers, e.g. ctrl+shift+s.
type Accelerator struct {
	Mods Modifier
	Key  string
}

// ParseAccelerator parses strings like "Ctrl+Shift+S" or "f11".
func ParseAccelerator(s string) (Accelerator, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var acc Accelerator
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: empty segment", s)
		}
		if i == len(parts)-1 {
			if _, isMod := modifierNames[p]; isMod {
				return Accelerator{}, fmt.Errorf("invalid accelerator %q: missing key", s)
			}
			acc.Key = p
			break
		}
		mod, ok := modifierNames[p]
		if !ok {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: unknown modifier %q", s, p)
		}
		acc.Mods |= mod
	}
	return acc, nil
}

// String renders the canonical form, modifiers in ctrl, shift, alt, meta order.
func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "ctrl"}, {ModShift, "shift"}, {ModAlt, "alt"}, {ModMeta, "meta"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

// Default actions of the shell.
const (
	ActionToggleFullscreen = "toggle_fullscreen"
	ActionQuickSave        = "quick_save"
	ActionQuickLoad        = "quick_load"
	ActionSkip             = "skip"
	ActionAuto             = "auto"
	ActionHideUI           = "hide_ui"
	ActionBacklog          = "backlog"
	ActionScreenshot       = "screenshot"
	ActionDevTools         = "devtools"
)

// DefaultKeymap maps every default action to its accelerator.
var DefaultKeymap = map[string]string{
	ActionToggleFullscreen: "f11",
	ActionQuickSave:        "ctrl+s",
	ActionQuickLoad:        "ctrl+l",
	ActionSkip:             "ctrl+k",
	ActionAuto:             "a",
	ActionHideUI:           "h",
	ActionBacklog:          "b",
	ActionScreenshot:       "f12",
	ActionDevTools:         "ctrl+shift+i",
}

// Bindings maps accelerators to actions.
type Bindings struct {
	mu       sync.RWMutex
	byAction map[string]Accelerator
	byAccel  map[Accelerator]string
}

// NewBindings returns empty bindings; call Init to populate them.
func NewBindings() *Bindings {
	return &Bindings{byAction: map[string]Accelerator{}, byAccel: map[Accelerator]string{}}
}

// Init loads DefaultKeymap with overrides applied on top. An override with
// an empty accelerator unbinds the action. Two actions on one accelerator
// is an error.
func (b *Bindings) Init(overrides map[string]string) error {
	keymap := make(map[string]string, len(DefaultKeymap)+len(overrides))
	for k, v := range DefaultKeymap {
		keymap[k] = v
	}
	for k, v := range overrides {
		keymap[k] = v
	}

	actions := make([]string, 0, len(keymap))
	for a := range keymap {
		actions = append(actions, a)
	}
	sort.Strings(actions)

	byAction := make(map[string]Accelerator, len(keymap))
	byAccel := make(map[Accelerator]string, len(keymap))
	for _, action := range actions {
		raw := keymap[action]
		if strings.TrimSpace(raw) == "" {
			continue
		}
		acc, err := ParseAccelerator(raw)
		if err != nil {
			return fmt.Errorf("hotkey %q: %w", action, err)
		}
		if other, dup := byAccel[acc]; dup {
			return fmt.Errorf("hotkey %q: %s is already bound to %q", action, acc, other)
		}
		byAction[action] = acc
		byAccel[acc] = action
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.byAction = byAction
	b.byAccel = byAccel
	return nil
}

// Lookup returns the action bound to acc.
func (b *Bindings) Lookup(acc Accelerator) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	action, ok := b.byAccel[acc]
	return action, ok
}

// AcceleratorFor returns the accelerator bound to action.
func (b *Bindings) AcceleratorFor(action string) (Accelerator, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	acc, ok := b.byAction[action]
	return acc, ok
}

// Keymap returns the canonical accelerator string of every bound action.
func (b *Bindings) Keymap() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(b.byAction))
	for action, acc := range b.byAction {
		out[action] = acc.String()
	}
	return out
}
