package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/dice/dicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestRollResult_Total verifies the postcondition: Total() == sum(Dice) + Modifier.
func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	assert.Equal(t, 12, r.Total(), "Total() must equal sum(Dice)+Modifier")
}

// TestRollResult_String verifies the audit string contains expression, dice, and total.
func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{
		Expression: "2d6+3",
		Dice:       []int{4, 5},
		Modifier:   3,
	}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String(), "String() must match exact format")
}

// TestRollResult_String_Property verifies String() always contains the expression
// and the total for arbitrary RollResult values.
func TestRollResult_String_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.StringMatching(`[0-9]+d[0-9]+[+-][0-9]+`).Draw(rt, "expression")
		dice_ := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "dice")
		modifier := rapid.IntRange(-100, 100).Draw(rt, "modifier")

		r := dice.RollResult{Expression: expr, Dice: dice_, Modifier: modifier}

		s := r.String()
		assert.True(rt, strings.Contains(s, expr), "String() must contain the expression %q", expr)
		assert.Contains(rt, s, fmt.Sprintf("%d", r.Total()), "String() must contain the computed total")
	})
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}, Modifier: 0}
	assert.Panics(t, func() { _ = r.String() })
}

// TestCryptoSource_Intn_InRange verifies every value returned by Intn(6) is in [0, 6).
func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}

func TestIntRange_Property(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-1000, 1000).Draw(rt, "min")
		span := rapid.IntRange(0, 1<<20).Draw(rt, "span")
		v := dice.IntRange(src, lo, lo+span)
		assert.GreaterOrEqual(rt, v, lo)
		assert.LessOrEqual(rt, v, lo+span)
	})
}

func TestIntRange_PanicsOnInvertedRange(t *testing.T) {
	assert.Panics(t, func() { dice.IntRange(dice.NewCryptoSource(), 5, 4) })
}

// TestRoll2d6_TotalInRange verifies 2 <= Total <= 12 for real entropy.
func TestRoll2d6_TotalInRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 2000; i++ {
		r := dice.Roll2d6(src)
		require.Len(t, r.Dice, 2)
		assert.GreaterOrEqual(t, r.Total, 2)
		assert.LessOrEqual(t, r.Total, 12)
	}
}

func TestRoll2d6_Extremes(t *testing.T) {
	snake := dice.Roll2d6(dicetest.Faces(1, 1))
	assert.True(t, snake.IsSnakeEyes)
	assert.False(t, snake.IsBoxcars)
	assert.Equal(t, 2, snake.Total)

	box := dice.Roll2d6(dicetest.Faces(6, 6))
	assert.True(t, box.IsBoxcars)
	assert.False(t, box.IsSnakeEyes)
	assert.Equal(t, 12, box.Total)

	mixed := dice.Roll2d6(dicetest.Faces(1, 6))
	assert.False(t, mixed.IsSnakeEyes)
	assert.False(t, mixed.IsBoxcars)
}

// TestRollDice_FlagsOnlyFor2d6 verifies the special cases are limited to two six-sided dice.
func TestRollDice_FlagsOnlyFor2d6(t *testing.T) {
	assert.False(t, dice.RollDice(dicetest.Faces(1), 3, 6).IsSnakeEyes)
	assert.False(t, dice.RollDice(dicetest.Faces(1), 2, 8).IsSnakeEyes)
	assert.False(t, dice.RollDice(dicetest.Faces(6), 2, 8).IsBoxcars)
}

func TestParse(t *testing.T) {
	cases := []struct {
		expr string
		want dice.Expression
	}{
		{"2d6", dice.Expression{Raw: "2d6", Count: 2, Sides: 6}},
		{"2d6+3", dice.Expression{Raw: "2d6+3", Count: 2, Sides: 6, Modifier: 3}},
		{"1d8-2", dice.Expression{Raw: "1d8-2", Count: 1, Sides: 8, Modifier: -2}},
		{"10d10+0", dice.Expression{Raw: "10d10+0", Count: 10, Sides: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := dice.Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, expr := range []string{"", "d6", "2d", "2x6", "2d6+", "2d6 + 3", "0d6", "2d0", "2d6+3+1", "abc", "101d6"} {
		t.Run(expr, func(t *testing.T) {
			_, err := dice.Parse(expr)
			assert.ErrorIs(t, err, dice.ErrInvalidExpression)
		})
	}
}

func TestRollExpr_AddsBonus(t *testing.T) {
	r, err := dice.RollExpr("2d6+3", dicetest.Faces(4, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, r.Dice)
	assert.Equal(t, 12, r.Total())

	_, err = dice.RollExpr("two dice", dicetest.Faces(1))
	assert.ErrorIs(t, err, dice.ErrInvalidExpression)
}

func TestRollExpr_Property(t *testing.T) {
	src := dice.NewCryptoSource()
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(1, 20).Draw(rt, "sides")
		bonus := rapid.IntRange(-10, 10).Draw(rt, "bonus")
		r, err := dice.RollExpr(fmt.Sprintf("%dd%d%+d", count, sides, bonus), src)
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, r.Total(), count+bonus)
		assert.LessOrEqual(rt, r.Total(), count*sides+bonus)
	})
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("nope") })
	assert.NotPanics(t, func() { dice.MustParse("1d4") })
}
