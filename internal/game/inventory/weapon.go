// Package inventory provides the weapon, armor, cover, and consumable catalog
// consumed by the combat formulas. Definitions are loaded from YAML and fully
// validated at load time so that misconfigured content never reaches resolution.
package inventory

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// Attribute names one of the five combatant attributes.
type Attribute string

const (
	AttrPWR Attribute = "PWR"
	AttrAGI Attribute = "AGI"
	AttrEND Attribute = "END"
	AttrVEL Attribute = "VEL"
	AttrPRC Attribute = "PRC"
)

// Valid reports whether a is one of the five known attributes.
func (a Attribute) Valid() bool {
	switch a {
	case AttrPWR, AttrAGI, AttrEND, AttrVEL, AttrPRC:
		return true
	}
	return false
}

// WeaponType selects the attack resolution path.
type WeaponType string

const (
	WeaponMelee  WeaponType = "melee"
	WeaponRanged WeaponType = "ranged"
)

// ErrMisconfigured is wrapped by every definition validation failure.
var ErrMisconfigured = errors.New("inventory: misconfigured definition")

// RangeBands are the short/medium/long distance thresholds of a weapon.
type RangeBands struct {
	Short  int `yaml:"short" json:"short"`
	Medium int `yaml:"medium" json:"medium"`
	Long   int `yaml:"long" json:"long"`
}

// WeaponDef defines the static properties of a weapon loaded from YAML.
type WeaponDef struct {
	ID               string     `yaml:"id" json:"id"`
	Name             string     `yaml:"name" json:"name"`
	Type             WeaponType `yaml:"type" json:"type"`
	DamageDice       string     `yaml:"damage_dice" json:"damageDice"`
	ScalingAttribute Attribute  `yaml:"scaling_attribute" json:"scalingAttribute"`
	ScalingDivisor   int        `yaml:"scaling_divisor" json:"scalingDivisor"`
	AttackMod        int        `yaml:"attack_mod" json:"attackMod"`
	Ranges           RangeBands `yaml:"ranges" json:"ranges"`
}

// unarmed is the profile used by a combatant with no equipped weapon.
var unarmed = WeaponDef{
	ID:               "unarmed",
	Name:             "Unarmed",
	Type:             WeaponMelee,
	DamageDice:       "1d3",
	ScalingAttribute: AttrPWR,
	ScalingDivisor:   2,
	Ranges:           RangeBands{Short: 1},
}

// Unarmed returns a copy of the default unarmed melee profile.
func Unarmed() *WeaponDef {
	w := unarmed
	return &w
}

// IsMelee reports whether the weapon resolves as a melee attack.
func (w *WeaponDef) IsMelee() bool {
	return w.Type == WeaponMelee
}

// Reach returns the maximum distance at which a melee weapon can strike.
//
// Postcondition: Returns >= 1.
func (w *WeaponDef) Reach() int {
	if w.Ranges.Short > 0 {
		return w.Ranges.Short
	}
	return 1
}

// Damage parses the damage expression.
//
// Postcondition: Returns the parsed expression or an error wrapping ErrMisconfigured.
func (w *WeaponDef) Damage() (dice.Expression, error) {
	expr, err := dice.Parse(w.DamageDice)
	if err != nil {
		return dice.Expression{}, fmt.Errorf("%w: weapon %q damage_dice: %v", ErrMisconfigured, w.ID, err)
	}
	return expr, nil
}

// Validate checks that the WeaponDef satisfies its invariants.
//
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid; otherwise an error wrapping ErrMisconfigured.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if w.Type != WeaponMelee && w.Type != WeaponRanged {
		errs = append(errs, fmt.Errorf("type must be melee or ranged, got %q", w.Type))
	}
	if _, err := dice.Parse(w.DamageDice); err != nil {
		errs = append(errs, fmt.Errorf("damage_dice: %v", err))
	}
	if !w.ScalingAttribute.Valid() {
		errs = append(errs, fmt.Errorf("scaling_attribute %q is not an attribute", w.ScalingAttribute))
	}
	if w.ScalingDivisor < 1 {
		errs = append(errs, fmt.Errorf("scaling_divisor must be >= 1, got %d", w.ScalingDivisor))
	}
	if w.Type == WeaponRanged {
		r := w.Ranges
		if r.Short < 1 || r.Medium < r.Short || r.Long < r.Medium {
			errs = append(errs, fmt.Errorf("ranges must satisfy 1 <= short <= medium <= long, got %d/%d/%d", r.Short, r.Medium, r.Long))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: weapon %q: %v", ErrMisconfigured, w.ID, errs)
	}
	return nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	return loadDir[WeaponDef](dir, "LoadWeapons")
}
