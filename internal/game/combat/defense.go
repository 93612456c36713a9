package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// DefenseModifiers are the situational contributions to a defender's Defense.
type DefenseModifiers struct {
	Cover   int
	Evasion int
}

// Defense computes the target number an attack must meet.
//
// Formula: 10 + mod(AGI - armor.AgiPenalty) + armor.Value + cover + evasion
// + augment defense - wound penalty. The armor AGI penalty lowers raw AGI
// before the modifier lookup.
//
// Precondition: c must be non-nil.
func Defense(c *Combatant, mods DefenseModifiers) int {
	agi := c.Attributes.AGI
	armor := 0
	if c.Armor != nil {
		agi -= c.Armor.AgiPenalty
		armor = c.Armor.Value
	}
	return 10 + dice.AttributeModifier(agi) + armor + mods.Cover + mods.Evasion +
		c.Augments.Defense - WoundPenalty(c.HP, c.MaxHP)
}

// RangePenalty returns the signed range modifier for distance against bands.
// Negative values are a bonus.
//
// Postcondition: Returns -2 at point blank (<= 2), 0 within short, +2 within
// medium, +4 within long, +6 beyond.
func RangePenalty(distance int, bands inventory.RangeBands) int {
	switch {
	case distance <= 2:
		return -2
	case distance <= bands.Short:
		return 0
	case distance <= bands.Medium:
		return 2
	case distance <= bands.Long:
		return 4
	default:
		return 6
	}
}
