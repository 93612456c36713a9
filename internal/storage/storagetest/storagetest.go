// Package storagetest holds a conformance suite for storage.OutcomeStore
// implementations.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

// Outcome returns a finished two-combatant outcome with a verifiable log.
func Outcome(t testing.TB, id string, endedAt time.Time) combat.Outcome {
	t.Helper()
	red := &combat.Combatant{ID: "red-1", Name: "Red", Side: "red", HP: 20, MaxHP: 20,
		Attributes: combat.Attributes{PWR: 10, AGI: 10, END: 10, VEL: 10, PRC: 10}}
	blue := &combat.Combatant{ID: "blue-1", Name: "Blue", Side: "blue", HP: 20, MaxHP: 20,
		Attributes: combat.Attributes{PWR: 10, AGI: 10, END: 10, VEL: 10, PRC: 10}}
	s, err := combat.NewCombatState(id, []*combat.Combatant{red, blue}, nil)
	require.NoError(t, err)

	at := endedAt.Add(-time.Minute)
	_, err = s.Append(combat.EntryStarted, "", map[string]int{"combatants": 2}, at)
	require.NoError(t, err)
	_, err = s.Append(combat.ActionAttack.String(), "red-1",
		combat.AttackResult{AttackerID: "red-1", DefenderID: "blue-1", Hit: true}, at.Add(time.Second))
	require.NoError(t, err)
	_, err = s.Append(combat.EntryEnded, "", map[string]string{"reason": "VICTORY", "winner": "red"}, at.Add(2*time.Second))
	require.NoError(t, err)

	return combat.Outcome{
		EncounterID: id,
		Reason:      combat.EndVictory,
		Winner:      "red",
		Rounds:      1,
		Combatants: []combat.CombatantOutcome{
			{ID: "red-1", Name: "Red", Side: "red", HP: 20, MaxHP: 20, Status: combat.WoundHealthy},
			{ID: "blue-1", Name: "Blue", Side: "blue", HP: 0, MaxHP: 20, Status: combat.WoundDown},
		},
		Log:     s.Log,
		EndedAt: endedAt.UTC(),
	}
}

// Run exercises store against the OutcomeStore contract. store must be empty.
func Run(t *testing.T, store storage.OutcomeStore) {
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	t.Run("SaveAndLoad", func(t *testing.T) {
		want := Outcome(t, "enc-load", base)
		require.NoError(t, store.SaveOutcome(ctx, want))

		got, err := store.LoadOutcome(ctx, "enc-load")
		require.NoError(t, err)
		assert.Equal(t, want.Reason, got.Reason)
		assert.Equal(t, want.Winner, got.Winner)
		assert.Equal(t, want.Rounds, got.Rounds)
		assert.Equal(t, want.Combatants, got.Combatants)
		assert.True(t, want.EndedAt.Equal(got.EndedAt))
		require.Len(t, got.Log, len(want.Log))
		assert.NoError(t, combat.VerifyLog(got.Log), "log survives storage")

		wantLog, err := json.Marshal(want.Log)
		require.NoError(t, err)
		gotLog, err := json.Marshal(got.Log)
		require.NoError(t, err)
		assert.JSONEq(t, string(wantLog), string(gotLog))
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.LoadOutcome(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Duplicate", func(t *testing.T) {
		o := Outcome(t, "enc-dup", base)
		require.NoError(t, store.SaveOutcome(ctx, o))
		assert.ErrorIs(t, store.SaveOutcome(ctx, o), storage.ErrDuplicate)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			o := Outcome(t, fmt.Sprintf("enc-list-%d", i), base.Add(time.Duration(i+1)*time.Hour))
			require.NoError(t, store.SaveOutcome(ctx, o))
		}
		list, err := store.ListOutcomes(ctx, 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "enc-list-2", list[0].EncounterID)
		assert.Equal(t, "enc-list-1", list[1].EncounterID)
		assert.Equal(t, combat.EndVictory, list[0].Reason)
	})
}
