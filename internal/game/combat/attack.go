package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// AttackKind is the resolution path of an attack.
type AttackKind string

const (
	AttackMelee  AttackKind = "MELEE"
	AttackRanged AttackKind = "RANGED"
)

// AttackContext carries the positional inputs of one attack.
type AttackContext struct {
	Distance int
	// CoverBonus is the defense bonus of the cover the defender is behind.
	CoverBonus int
	// Evasion is the defender's pending dodge bonus.
	Evasion int
}

// AttackResult is the audit record of one resolved attack.
type AttackResult struct {
	AttackerID   string                `json:"attackerId"`
	DefenderID   string                `json:"defenderId"`
	WeaponID     string                `json:"weaponId"`
	Kind         AttackKind            `json:"kind"`
	Distance     int                   `json:"distance"`
	RangePenalty int                   `json:"rangePenalty"`
	Defense      int                   `json:"defense"`
	Check        dice.SkillCheckResult `json:"check"`
	Hit          bool                  `json:"hit"`
	Damage       *DamageResult         `json:"damage,omitempty"`
}

// ResolveAttack resolves attacker striking defender with the equipped weapon.
//
// Melee attacks check PWR + melee skill; ranged attacks check PRC + firearms
// skill with the range penalty subtracted. The weapon attack modifier,
// augment attack bonus, and attacker wound penalty are situational modifiers.
// The defender's Defense is the target number. Damage is rolled only on a hit
// and is not applied.
//
// Precondition: src, attacker, and defender must be non-nil.
// Postcondition: a misconfigured weapon fails closed with an error wrapping
// inventory.ErrMisconfigured.
func ResolveAttack(src dice.Source, attacker, defender *Combatant, ctx AttackContext) (AttackResult, error) {
	weapon := attacker.EquippedWeapon()
	if err := weapon.Validate(); err != nil {
		return AttackResult{}, err
	}

	res := AttackResult{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
		WeaponID:   weapon.ID,
		Distance:   ctx.Distance,
		Defense:    Defense(defender, DefenseModifiers{Cover: ctx.CoverBonus, Evasion: ctx.Evasion}),
	}

	var attr, skill int
	var mods []dice.Modifier
	if weapon.IsMelee() {
		res.Kind = AttackMelee
		attr, skill = attacker.Attributes.PWR, attacker.Skills.Melee
	} else {
		res.Kind = AttackRanged
		attr, skill = attacker.Attributes.PRC, attacker.Skills.Firearms
		res.RangePenalty = RangePenalty(ctx.Distance, weapon.Ranges)
		mods = append(mods, dice.Modifier{Name: "Range", Value: -res.RangePenalty})
	}
	if weapon.AttackMod != 0 {
		mods = append(mods, dice.Modifier{Name: "Weapon", Value: weapon.AttackMod})
	}
	if attacker.Augments.Attack != 0 {
		mods = append(mods, dice.Modifier{Name: "Augment", Value: attacker.Augments.Attack})
	}
	if p := WoundPenalty(attacker.HP, attacker.MaxHP); p != 0 {
		mods = append(mods, dice.Modifier{Name: "Wounds", Value: -p})
	}

	res.Check = dice.PerformSkillCheck(src, attr, skill, mods, res.Defense)
	res.Hit = res.Check.Success
	if !res.Hit {
		return res, nil
	}

	dmg, err := CalculateDamage(src, weapon, attacker, defender, res.Check.Margin)
	if err != nil {
		return AttackResult{}, err
	}
	res.Damage = &dmg
	return res, nil
}
