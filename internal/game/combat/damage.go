package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// DamageResult records how a hit's damage was computed.
//
// Invariant: Final == FinalDamage(Raw, ArmorReduction).
type DamageResult struct {
	WeaponRoll       dice.RollResult `json:"weaponRoll"`
	MarginBonus      int             `json:"marginBonus"`
	AttributeScaling int             `json:"attributeScaling"`
	AugmentBonus     int             `json:"augmentBonus"`
	Raw              int             `json:"raw"`
	ArmorReduction   int             `json:"armorReduction"`
	Final            int             `json:"final"`
}

// MarginBonus maps an attack margin to bonus damage.
//
// Postcondition: <= 0 → 0; 1-2 → 1; 3-4 → 2; 5-6 → 3; >= 7 → 4.
func MarginBonus(margin int) int {
	switch {
	case margin <= 0:
		return 0
	case margin <= 2:
		return 1
	case margin <= 4:
		return 2
	case margin <= 6:
		return 3
	default:
		return 4
	}
}

// AttributeScaling returns floor(mod(value) / divisor).
//
// Precondition: divisor >= 1.
// Postcondition: returns an error wrapping inventory.ErrMisconfigured when divisor < 1.
func AttributeScaling(value, divisor int) (int, error) {
	if divisor < 1 {
		return 0, fmt.Errorf("%w: scaling divisor %d", inventory.ErrMisconfigured, divisor)
	}
	return floorDiv(dice.AttributeModifier(value), divisor), nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FinalDamage applies armor to raw damage.
//
// Postcondition: Returns >= 0; returns >= 1 whenever raw > 0.
func FinalDamage(raw, armor int) int {
	if raw <= 0 {
		return 0
	}
	return max(raw-armor, 1)
}

// CalculateDamage rolls weapon damage for a hit with the given attack margin.
//
// Raw = weapon dice + MarginBonus(margin) + attribute scaling + augment damage;
// Final = FinalDamage(Raw, defender armor value).
//
// Precondition: src, weapon, attacker, and defender must be non-nil.
// Postcondition: a misconfigured weapon returns an error wrapping
// inventory.ErrMisconfigured and rolls nothing.
func CalculateDamage(src dice.Source, weapon *inventory.WeaponDef, attacker, defender *Combatant, margin int) (DamageResult, error) {
	expr, err := weapon.Damage()
	if err != nil {
		return DamageResult{}, err
	}
	scaling, err := AttributeScaling(attacker.Attributes.Get(weapon.ScalingAttribute), weapon.ScalingDivisor)
	if err != nil {
		return DamageResult{}, fmt.Errorf("weapon %q: %w", weapon.ID, err)
	}

	roll := dice.Roll(expr, src)
	res := DamageResult{
		WeaponRoll:       roll,
		MarginBonus:      MarginBonus(margin),
		AttributeScaling: scaling,
		AugmentBonus:     attacker.Augments.Damage,
	}
	res.Raw = roll.Total() + res.MarginBonus + res.AttributeScaling + res.AugmentBonus
	if defender.Armor != nil {
		res.ArmorReduction = defender.Armor.Value
	}
	res.Final = FinalDamage(res.Raw, res.ArmorReduction)
	return res, nil
}
