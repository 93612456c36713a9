package inventory

import (
	"errors"
	"fmt"
)

// CoverDef is a piece of scenery a combatant can shelter behind.
// HP of zero marks the cover as indestructible.
type CoverDef struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	DefenseBonus int    `yaml:"defense_bonus" json:"defenseBonus"`
	HP           int    `yaml:"hp" json:"hp"`
}

// Destructible reports whether attacks can wear the cover down.
func (c *CoverDef) Destructible() bool { return c.HP > 0 }

func (c *CoverDef) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if c.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if c.DefenseBonus < 0 {
		errs = append(errs, errors.New("defense_bonus must be >= 0"))
	}
	if c.HP < 0 {
		errs = append(errs, errors.New("hp must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: cover %q: %v", ErrMisconfigured, c.ID, errs)
	}
	return nil
}

// LoadCovers reads all .yaml files in dir as CoverDefs.
func LoadCovers(dir string) ([]*CoverDef, error) {
	return loadDir[CoverDef](dir, "LoadCovers")
}
