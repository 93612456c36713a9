package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func turnView() scripting.TurnView {
	return scripting.TurnView{
		Self: scripting.CombatantView{ID: "npc", Side: "raiders", Status: "HEALTHY", HP: 20, MaxHP: 20, Reach: 1},
		Others: []scripting.CombatantView{
			{ID: "far", Side: "crew", Status: "HEALTHY", Distance: 5},
			{ID: "near", Side: "crew", Status: "WOUNDED", Distance: 1},
		},
		Round: 2,
	}
}

func TestDefaultAction_TableResult(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadProfile("brute", writeTempLua(t, "ai.lua", `
		function default_action(self, others, round)
			for _, o in ipairs(others) do
				if o.distance <= self.reach then
					return { action = "attack", target = o.id }
				end
			end
			return "wait"
		end
	`), 0))

	d, ok := mgr.DefaultAction("brute", turnView())
	require.True(t, ok)
	assert.Equal(t, scripting.Decision{Action: "ATTACK", TargetID: "near"}, d)

	view := turnView()
	view.Others = view.Others[:1]
	d, ok = mgr.DefaultAction("brute", view)
	require.True(t, ok)
	assert.Equal(t, "WAIT", d.Action)
	assert.Empty(t, d.TargetID)
}

func TestDefaultAction_NoHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, ok := mgr.DefaultAction("nobody", turnView())
	assert.False(t, ok)
}

func TestDefaultAction_BadReturn(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadProfile("odd", writeTempLua(t, "ai.lua", `
		function default_action(self, others, round) return 42 end
	`), 0))
	_, ok := mgr.DefaultAction("odd", turnView())
	assert.False(t, ok)
}

func TestDefaultAction_SeesRound(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadProfile("r", writeTempLua(t, "ai.lua", `
		function default_action(self, others, round)
			if round >= 2 and self.status == "HEALTHY" then return "defend" end
			return "wait"
		end
	`), 0))
	d, ok := mgr.DefaultAction("r", turnView())
	require.True(t, ok)
	assert.Equal(t, "DEFEND", d.Action)
}
