package dice_test

import (
	"encoding/json"
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/dice/dicetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func check(d1, d2, attr int) dice.SkillCheckResult {
	return dice.EvaluateSkillCheck(dice.NewDiceRoll(6, d1, d2), attr, 0, nil, 0)
}

func TestResolveOpposed_HigherTotalWins(t *testing.T) {
	res := dice.ResolveOpposed(check(5, 4, 10), check(3, 3, 10))
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 3, res.Margin)

	res = dice.ResolveOpposed(check(2, 3, 10), check(4, 4, 10))
	assert.Equal(t, dice.WinnerDefender, res.Winner)
	assert.Equal(t, 3, res.Margin)
}

func TestResolveOpposed_TieFavorsDefender(t *testing.T) {
	res := dice.ResolveOpposed(check(3, 4, 10), check(5, 2, 10))
	assert.Equal(t, dice.WinnerDefender, res.Winner)
	assert.Equal(t, 0, res.Margin)
	assert.True(t, res.Tie)
}

// TestResolveOpposed_TieOnTheWire verifies a tie is visible to clients
// while the defender keeps the win.
func TestResolveOpposed_TieOnTheWire(t *testing.T) {
	b, err := json.Marshal(dice.ResolveOpposed(check(3, 4, 10), check(5, 2, 10)))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"winner":"DEFENDER"`)
	assert.Contains(t, string(b), `"tie":true`)

	// Boxcars at attr 1 and 3+4 at attr 10 both total 7; the critical decides.
	res := dice.ResolveOpposed(check(6, 6, 1), check(3, 4, 10))
	assert.False(t, res.Tie)
	assert.Equal(t, 1, res.Margin)
}

func TestResolveOpposed_AutoSuccessBeatsHigherTotal(t *testing.T) {
	// Boxcars at attr 1 totals 7; defender totals 11 at attr 20.
	res := dice.ResolveOpposed(check(6, 6, 1), check(3, 3, 20))
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 4, res.Margin)
}

func TestResolveOpposed_CriticalMarginAtLeastOne(t *testing.T) {
	// Boxcars 12 vs a defender also totalling 12.
	res := dice.ResolveOpposed(check(6, 6, 10), check(5, 5, 14))
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 1, res.Margin)
}

func TestResolveOpposed_DefenderAutoFailLoses(t *testing.T) {
	res := dice.ResolveOpposed(check(2, 1, 10), check(1, 1, 20))
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 4, res.Margin)
}

func TestResolveOpposed_AttackerAutoFailLoses(t *testing.T) {
	res := dice.ResolveOpposed(check(1, 1, 20), check(1, 2, 1))
	assert.Equal(t, dice.WinnerDefender, res.Winner)
	assert.GreaterOrEqual(t, res.Margin, 1)
}

func TestResolveOpposed_BothAutoSuccessFallsToTotals(t *testing.T) {
	res := dice.ResolveOpposed(check(6, 6, 12), check(6, 6, 10))
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 1, res.Margin)

	res = dice.ResolveOpposed(check(6, 6, 10), check(6, 6, 10))
	assert.Equal(t, dice.WinnerDefender, res.Winner)
	assert.Equal(t, 0, res.Margin)
}

func TestPerformOpposedCheck_UsesTNZero(t *testing.T) {
	res := dice.PerformOpposedCheck(dicetest.Faces(4, 4, 2, 2),
		dice.OpposedSide{AttrValue: 10, SkillLevel: 1},
		dice.OpposedSide{AttrValue: 10, SkillLevel: 1},
	)
	assert.Equal(t, 0, res.Attacker.TargetNumber)
	assert.Equal(t, 0, res.Defender.TargetNumber)
	assert.Equal(t, dice.WinnerAttacker, res.Winner)
	assert.Equal(t, 4, res.Margin)
}
