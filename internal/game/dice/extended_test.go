package dice_test

import (
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func attempt(success bool) dice.SkillCheckResult {
	return dice.SkillCheckResult{Success: success}
}

func TestExtendedCheck_Completes(t *testing.T) {
	ec := dice.NewExtendedCheck(3, 2)
	ec.AddAttempt(attempt(true))
	ec.AddAttempt(attempt(false))
	ec.AddAttempt(attempt(true))
	assert.Equal(t, dice.ExtendedInProgress, ec.Status)
	ec.AddAttempt(attempt(true))
	assert.Equal(t, dice.ExtendedCompleted, ec.Status)
	assert.True(t, ec.Done())
	assert.Len(t, ec.Attempts, 4)
}

func TestExtendedCheck_Fails(t *testing.T) {
	ec := dice.NewExtendedCheck(3, 2)
	ec.AddAttempt(attempt(false))
	ec.AddAttempt(attempt(false))
	assert.Equal(t, dice.ExtendedFailed, ec.Status)
	assert.Equal(t, 2, ec.Failures)
}

// TestExtendedCheck_Invariant verifies successes+failures always equals the history length.
func TestExtendedCheck_Invariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		required := rapid.IntRange(1, 5).Draw(rt, "required")
		maxFail := rapid.IntRange(1, 5).Draw(rt, "maxFailures")
		outcomes := rapid.SliceOfN(rapid.Bool(), 1, 12).Draw(rt, "outcomes")

		ec := dice.NewExtendedCheck(required, maxFail)
		for _, ok := range outcomes {
			if ec.Done() {
				break
			}
			ec.AddAttempt(attempt(ok))
		}
		assert.Equal(rt, len(ec.Attempts), ec.Successes+ec.Failures)
		if ec.Status == dice.ExtendedCompleted {
			assert.GreaterOrEqual(rt, ec.Successes, required)
		}
		if ec.Status == dice.ExtendedFailed {
			assert.GreaterOrEqual(rt, ec.Failures, maxFail)
			assert.Less(rt, ec.Successes, required)
		}
	})
}
