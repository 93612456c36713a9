package combat

import (
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// InitiativeResult records one combatant's initiative roll.
type InitiativeResult struct {
	CombatantID string        `json:"combatantId"`
	Roll        dice.DiceRoll `json:"roll"`
	VelMod      int           `json:"velMod"`
	PrcMod      int           `json:"prcMod"`
	Bonus       int           `json:"bonus"`
	Total       int           `json:"total"`
	VEL         int           `json:"vel"`
	PRC         int           `json:"prc"`
}

// RollInitiative rolls 2d6 initiative for c.
// Formula: 2d6 + mod(VEL) + mod(PRC) + augment initiative bonus.
//
// Precondition: src and c must be non-nil.
func RollInitiative(src dice.Source, c *Combatant) InitiativeResult {
	return EvaluateInitiative(dice.Roll2d6(src), c)
}

// EvaluateInitiative computes initiative from an already-rolled 2d6.
func EvaluateInitiative(roll dice.DiceRoll, c *Combatant) InitiativeResult {
	vel := dice.AttributeModifier(c.Attributes.VEL)
	prc := dice.AttributeModifier(c.Attributes.PRC)
	return InitiativeResult{
		CombatantID: c.ID,
		Roll:        roll,
		VelMod:      vel,
		PrcMod:      prc,
		Bonus:       c.Augments.Initiative,
		Total:       roll.Total + vel + prc + c.Augments.Initiative,
		VEL:         c.Attributes.VEL,
		PRC:         c.Attributes.PRC,
	}
}

// SortInitiative orders results in place: descending Total, then higher VEL,
// then higher PRC. Remaining ties keep input order.
//
// Postcondition: the ordering is deterministic and draws no randomness.
func SortInitiative(results []InitiativeResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.VEL != b.VEL {
			return a.VEL > b.VEL
		}
		return a.PRC > b.PRC
	})
}
