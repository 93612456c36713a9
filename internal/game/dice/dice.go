// Package dice provides the randomness source, dice rolls, skill checks, and
// the expression roller underneath the skirmish combat formulas.
package dice

import "fmt"

// RollResult holds the full audit trail for a single dice expression evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string `json:"expression"` // original expression string, e.g. "2d6+3"
	Dice       []int  `json:"dice"`       // individual die results before modifier
	Modifier   int    `json:"modifier"`   // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
//
// Postcondition: return value == sum(r.Dice) + r.Modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string in the format:
//
//	"2d6+3 → [4 5] +3 = 12"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	diceStr := fmt.Sprintf("%v", r.Dice)
	modStr := fmt.Sprintf("%+d", r.Modifier)
	return fmt.Sprintf("%s → %s %s = %d", r.Expression, diceStr, modStr, r.Total())
}

// DiceRoll is the immutable record of rolling count dice of the same size.
//
// Invariant: Total == sum(Dice). IsSnakeEyes and IsBoxcars are only ever set
// for a 2d6 roll.
type DiceRoll struct {
	Dice        []int `json:"dice"`
	Total       int   `json:"total"`
	IsSnakeEyes bool  `json:"isSnakeEyes"`
	IsBoxcars   bool  `json:"isBoxcars"`
}

// NewDiceRoll builds a DiceRoll from already-rolled values of sides-sided dice.
//
// Postcondition: Total == sum(values); the 2d6 flags are derived from values.
func NewDiceRoll(sides int, values ...int) DiceRoll {
	dice := make([]int, len(values))
	copy(dice, values)
	r := DiceRoll{Dice: dice}
	for _, v := range dice {
		r.Total += v
	}
	if len(dice) == 2 && sides == 6 {
		r.IsSnakeEyes = dice[0] == 1 && dice[1] == 1
		r.IsBoxcars = dice[0] == 6 && dice[1] == 6
	}
	return r
}

// RollDie returns a single value in [1, sides].
//
// Precondition: sides >= 1; src must be non-nil.
func RollDie(src Source, sides int) int {
	return IntRange(src, 1, sides)
}

// RollDice rolls count independent dice of the given number of sides.
//
// Precondition: count >= 1; sides >= 1; src must be non-nil.
// Postcondition: len(result.Dice) == count; each die is in [1, sides].
func RollDice(src Source, count, sides int) DiceRoll {
	values := make([]int, count)
	for i := range values {
		values[i] = RollDie(src, sides)
	}
	return NewDiceRoll(sides, values...)
}

// Roll2d6 rolls the core 2d6 used by every check in the system.
//
// Postcondition: 2 <= result.Total <= 12.
func Roll2d6(src Source) DiceRoll {
	return RollDice(src, 2, 6)
}
