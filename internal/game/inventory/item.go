package inventory

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// ItemDef defines a consumable usable in combat with USE_ITEM.
type ItemDef struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	// HealDice is rolled and restored to the target's HP.
	HealDice string `yaml:"heal_dice" json:"healDice"`
	// Reach is the maximum distance to the target; 0 means self or adjacent.
	Reach int `yaml:"reach" json:"reach"`
}

// Heal parses the healing expression.
func (d *ItemDef) Heal() (dice.Expression, error) {
	expr, err := dice.Parse(d.HealDice)
	if err != nil {
		return dice.Expression{}, fmt.Errorf("%w: item %q heal_dice: %v", ErrMisconfigured, d.ID, err)
	}
	return expr, nil
}

// MaxDistance returns the farthest a target may be from the user.
func (d *ItemDef) MaxDistance() int {
	if d.Reach > 0 {
		return d.Reach
	}
	return 1
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if _, err := dice.Parse(d.HealDice); err != nil {
		errs = append(errs, fmt.Errorf("heal_dice: %v", err))
	}
	if d.Reach < 0 {
		errs = append(errs, errors.New("reach must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: item %q: %v", ErrMisconfigured, d.ID, errs)
	}
	return nil
}

// LoadItems reads all *.yaml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice.
func LoadItems(dir string) ([]*ItemDef, error) {
	return loadDir[ItemDef](dir, "LoadItems")
}
