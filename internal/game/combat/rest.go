package combat

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// RestKind selects the rest healing formula.
type RestKind int

const (
	RestShort RestKind = iota
	RestLong
)

// RestResult records a rest healing roll.
type RestResult struct {
	Roll   dice.RollResult `json:"roll"`
	Amount int             `json:"amount"`
}

// RestHeal rolls rest healing: short rest 1d6 + mod(END), long rest 2d6 + mod(END).
//
// Precondition: src must be non-nil.
// Postcondition: Amount >= 0.
func RestHeal(src dice.Source, end int, kind RestKind) RestResult {
	count := 1
	if kind == RestLong {
		count = 2
	}
	expr := dice.Expression{Count: count, Sides: 6, Modifier: dice.AttributeModifier(end)}
	roll := dice.Roll(expr, src)
	return RestResult{Roll: roll, Amount: max(roll.Total(), 0)}
}
