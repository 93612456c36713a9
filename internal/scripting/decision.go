package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// DefaultActionHook is the Lua global consulted when an NPC's turn times out.
//
//	function default_action(self, others, round)
//	  return { action = "ATTACK", target = others[1].id }
//	end
//
// Returning a bare string such as "WAIT" is also accepted.
const DefaultActionHook = "default_action"

// CombatantView is the read-only snapshot of a combatant handed to Lua.
type CombatantView struct {
	ID       string
	Side     string
	Status   string
	HP       int
	MaxHP    int
	X, Y     int
	Distance int
	Reach    int
	Ranged   bool
}

// TurnView is everything a default_action hook sees.
type TurnView struct {
	Self   CombatantView
	Others []CombatantView
	Round  int
}

// Decision is the action chosen by a hook.
type Decision struct {
	Action   string
	TargetID string
}

func (v CombatantView) table(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(v.ID))
	L.SetField(t, "side", lua.LString(v.Side))
	L.SetField(t, "status", lua.LString(v.Status))
	L.SetField(t, "hp", lua.LNumber(v.HP))
	L.SetField(t, "max_hp", lua.LNumber(v.MaxHP))
	L.SetField(t, "x", lua.LNumber(v.X))
	L.SetField(t, "y", lua.LNumber(v.Y))
	L.SetField(t, "distance", lua.LNumber(v.Distance))
	L.SetField(t, "reach", lua.LNumber(v.Reach))
	L.SetField(t, "ranged", lua.LBool(v.Ranged))
	return t
}

// DefaultAction asks profile's default_action hook what the combatant should do.
//
// Postcondition: ok is false when no hook exists, the hook fails, or it returns
// something other than a string or a table with a string "action" field.
func (m *Manager) DefaultAction(profile string, view TurnView) (Decision, bool) {
	ret, err := m.callHook(profile, DefaultActionHook, func(L *lua.LState) []lua.LValue {
		others := L.NewTable()
		for _, o := range view.Others {
			others.Append(o.table(L))
		}
		return []lua.LValue{view.Self.table(L), others, lua.LNumber(view.Round)}
	})
	if err != nil {
		return Decision{}, false
	}
	switch v := ret.(type) {
	case lua.LString:
		return Decision{Action: strings.ToUpper(string(v))}, true
	case *lua.LTable:
		action, ok := v.RawGetString("action").(lua.LString)
		if !ok {
			return Decision{}, false
		}
		d := Decision{Action: strings.ToUpper(string(action))}
		if target, ok := v.RawGetString("target").(lua.LString); ok {
			d.TargetID = string(target)
		}
		return d, true
	default:
		return Decision{}, false
	}
}
