package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug/info/warn(msg)
//	engine.dice.roll(expr) -> total | nil, err
//	engine.dice.modifier(value) -> attribute modifier
//	engine.dice.check(attr, skill, tn) -> success, margin
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logT := L.NewTable()
	logFn := func(level func(string, ...zap.Field)) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			level(L.CheckString(1), zap.String("source", "lua"))
			return 0
		})
	}
	L.SetField(logT, "debug", logFn(m.logger.Debug))
	L.SetField(logT, "info", logFn(m.logger.Info))
	L.SetField(logT, "warn", logFn(m.logger.Warn))
	L.SetField(engine, "log", logT)

	diceT := L.NewTable()
	L.SetField(diceT, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := m.roller.RollExpr(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LNumber(res.Total()))
		return 1
	}))
	L.SetField(diceT, "modifier", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(dice.AttributeModifier(L.CheckInt(1))))
		return 1
	}))
	L.SetField(diceT, "check", L.NewFunction(func(L *lua.LState) int {
		res := m.roller.SkillCheck(L.CheckInt(1), L.CheckInt(2), nil, L.CheckInt(3))
		L.Push(lua.LBool(res.Success))
		L.Push(lua.LNumber(res.Margin))
		return 2
	}))
	L.SetField(engine, "dice", diceT)

	L.SetGlobal("engine", engine)
}
