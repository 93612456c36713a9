package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/dice/dicetest"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dicetest.Faces(4, 5), logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestManager_LoadProfile_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadProfile("brute", dir, 0))
	ret, err := mgr.CallHook("brute", "test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
	assert.True(t, mgr.Has("brute"))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadProfile("brute", writeTempLua(t, "empty.lua", `-- no functions`), 0))
	ret, err := mgr.CallHook("brute", "nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownProfile_LogsInfoReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("nobody", "some_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.InfoLevel).Len())
	assert.False(t, mgr.Has("nobody"))
}

func TestManager_GlobalFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "g.lua", `function who() return "global" end`), 0))
	ret, err := mgr.CallHook("anyone", "who")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("global"), ret)
}

func TestManager_LoadTree(t *testing.T) {
	mgr, _ := newTestManager(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "shared.lua"), []byte(`function who() return "global" end`), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sniper"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sniper", "ai.lua"), []byte(`function who() return "sniper" end`), 0644))

	n, err := mgr.LoadTree(root, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ret, _ := mgr.CallHook("sniper", "who")
	assert.Equal(t, lua.LString("sniper"), ret)
	ret, _ = mgr.CallHook("brute", "who")
	assert.Equal(t, lua.LString("global"), ret)
}

func TestManager_LoadSyntaxError(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.LoadProfile("bad", writeTempLua(t, "bad.lua", `function (`), 0)
	assert.Error(t, err)
}

// TestManager_InstructionLimit verifies runaway scripts are cut off per call
// and the VM stays usable afterwards.
func TestManager_InstructionLimit(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function spin() while true do end end
		function ok() return 1 end
	`)
	require.NoError(t, mgr.LoadProfile("loop", dir, 1000))
	ret, err := mgr.CallHook("loop", "spin")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())

	ret, err = mgr.CallHook("loop", "ok")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
}

func TestSandbox_DangerousGlobalsRemoved(t *testing.T) {
	L := scripting.NewSandboxedState()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require", "os", "io"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), name)
	}
}

func TestEngineModules(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "mods.lua", `
		function roll() return engine.dice.roll("2d6") end
		function bad_roll() local v, err = engine.dice.roll("zz") return err end
		function mod(v) return engine.dice.modifier(v) end
		function say() engine.log.info("hello from lua") end
		function check() local ok, margin = engine.dice.check(10, 2, 8) return margin end
	`)
	require.NoError(t, mgr.LoadProfile("m", dir, 0))

	ret, _ := mgr.CallHook("m", "roll")
	assert.Equal(t, lua.LNumber(9), ret)

	ret, _ = mgr.CallHook("m", "bad_roll")
	assert.IsType(t, lua.LString(""), ret)

	ret, _ = mgr.CallHook("m", "mod", lua.LNumber(14))
	assert.Equal(t, lua.LNumber(2), ret)

	_, _ = mgr.CallHook("m", "say")
	assert.Equal(t, 1, logs.FilterMessage("hello from lua").Len())

	// 4+5 +0 attribute +2 skill against 8.
	ret, _ = mgr.CallHook("m", "check")
	assert.Equal(t, lua.LNumber(3), ret)
	assert.Equal(t, 1, logs.FilterMessage("skill check").Len())
	assert.Equal(t, 1, logs.FilterMessage("dice roll").Len())
}

func TestManager_ConcurrentCalls(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadProfile("c", writeTempLua(t, "c.lua", `
		counter = 0
		function bump() counter = counter + 1 return counter end
	`), 0))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mgr.CallHook("c", "bump")
		}()
	}
	wg.Wait()
	ret, _ := mgr.CallHook("c", "bump")
	assert.Equal(t, lua.LNumber(21), ret)
}
