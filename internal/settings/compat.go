package settings

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/specialistvlad/avgboot/internal/booterr"
)

// CheckCompatibility verifies that the engine version satisfies the
// constraint the game declares. Either side being empty skips the check.
func CheckCompatibility(engine *Engine, game *Game) error {
	if engine == nil || game == nil {
		return nil
	}
	have, want := engine.Version(), game.EngineVersion
	if have == "" || want == "" {
		return nil
	}

	v, err := semver.NewVersion(have)
	if err != nil {
		return booterr.New(booterr.SettingsParse, "settings.compat", engine.Path(), fmt.Errorf("invalid engine version %q: %w", have, err))
	}
	c, err := semver.NewConstraint(want)
	if err != nil {
		return booterr.New(booterr.SettingsParse, "settings.compat", game.Path(), fmt.Errorf("invalid engine_version constraint %q: %w", want, err))
	}
	if !c.Check(v) {
		return booterr.New(booterr.SettingsParse, "settings.compat", game.Path(),
			fmt.Errorf("game requires engine %s, running %s", want, v))
	}
	return nil
}
