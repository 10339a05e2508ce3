package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in      string
		want    Accelerator
		wantErr string
	}{
		{in: "f11", want: Accelerator{Key: "f11"}},
		{in: "Ctrl+Shift+S", want: Accelerator{Mods: ModCtrl | ModShift, Key: "s"}},
		{in: "cmd + option + i", want: Accelerator{Mods: ModMeta | ModAlt, Key: "i"}},
		{in: "ctrl+", wantErr: "empty segment"},
		{in: "ctrl+shift", wantErr: "missing key"},
		{in: "hyper+a", wantErr: `unknown modifier "hyper"`},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAccelerator(tc.in)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAcceleratorString(t *testing.T) {
	acc, err := ParseAccelerator("shift+meta+ctrl+alt+x")
	require.NoError(t, err)
	assert.Equal(t, "ctrl+shift+alt+meta+x", acc.String())
}

func TestBindings(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.Init(map[string]string{
		ActionQuickSave: "f5",
		ActionDevTools:  "",
		"toggle_voice":  "v",
	}))

	action, ok := b.Lookup(Accelerator{Key: "f5"})
	require.True(t, ok)
	assert.Equal(t, ActionQuickSave, action)

	_, ok = b.Lookup(Accelerator{Mods: ModCtrl, Key: "s"})
	assert.False(t, ok, "overridden default must be released")

	_, ok = b.AcceleratorFor(ActionDevTools)
	assert.False(t, ok)

	acc, ok := b.AcceleratorFor("toggle_voice")
	require.True(t, ok)
	assert.Equal(t, "v", acc.String())

	km := b.Keymap()
	assert.Equal(t, "f11", km[ActionToggleFullscreen])
	assert.NotContains(t, km, ActionDevTools)
}

func TestBindings_Errors(t *testing.T) {
	b := NewBindings()
	assert.ErrorContains(t, b.Init(map[string]string{"toggle_voice": "a"}), "already bound")
	assert.ErrorContains(t, b.Init(map[string]string{ActionAuto: "ctrl+"}), `hotkey "auto"`)
}
