package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// globalProfile is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no profile VM is found.
const globalProfile = "__global__"

// vm is one sandboxed interpreter. LStates are single-threaded, so every use
// holds mu.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per NPC behaviour profile and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook after all Load calls complete.
// Calls against the same profile are serialized; different profiles run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadProfile creates a sandboxed VM for profile, registers all engine.*
// modules, then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: profile must be non-empty; scriptDir must be a readable directory.
// Postcondition: Profile VM is registered, replacing any previous one; returns error on Lua load failure.
func (m *Manager) LoadProfile(profile, scriptDir string, instLimit int) error {
	if profile == "" {
		return fmt.Errorf("scripting: LoadProfile: profile must not be empty")
	}
	return m.loadInto(profile, scriptDir, instLimit)
}

// LoadGlobal creates the fallback VM shared by every profile without its own scripts.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalProfile, scriptDir, instLimit)
}

// LoadTree loads root's *.lua files as the global VM and each immediate
// subdirectory as a profile named after the directory.
//
// Postcondition: returns the number of VMs loaded.
func (m *Manager) LoadTree(root string, instLimit int) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script root %q: %w", root, err)
	}
	if err := m.LoadGlobal(root, instLimit); err != nil {
		return 0, err
	}
	n := 1
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := m.LoadProfile(e.Name(), filepath.Join(root, e.Name()), instLimit); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L := NewSandboxedState()
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := limited(L, limit, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: limit}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	return nil
}

// Has reports whether a VM exists for profile or as the global fallback.
func (m *Manager) Has(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[profile]
	_, global := m.vms[globalProfile]
	return ok || global
}

// CallHook calls the named Lua global function in profile's VM. If the profile
// has no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances built with NewTable on this Manager
// or plain scalar values.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(profile, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.callHook(profile, hook, func(*lua.LState) []lua.LValue { return args })
}

func (m *Manager) callHook(profile, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[profile]
	if !ok {
		v = m.vms[globalProfile]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Info("scripting: no VM for profile",
			zap.String("profile", profile),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	L := v.L

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	args := build(L)
	err := limited(L, v.limit, func() error {
		return L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("profile", profile),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, k)
	}
}
