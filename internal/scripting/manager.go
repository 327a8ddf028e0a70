package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlecombat/internal/game/dice"
)

// GlobalScope is the reserved scope for shared scripts loaded via LoadGlobal.
// CallHook falls back to it when a scope has no VM of its own.
const GlobalScope = "__global__"

// Hook names called by the combat engine.
const (
	HookOnDamage      = "on_damage"
	HookOnPhaseChange = "on_phase_change"
)

type vm struct {
	mu sync.Mutex // an LState is single-threaded
	L  *lua.LState
}

// Manager owns one sandboxed LState per scope (usually a hostile template ID)
// and dispatches hooks to it.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
	limit  int
}

// NewManager creates a Manager whose loads and hook calls each get limit opcodes.
//
// Precondition: roller and logger must be non-nil; limit <= 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager with no scopes loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger, limit int) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
		limit:  limit,
	}
}

// LoadScope creates a sandboxed VM for scope and executes every *.lua file in
// scriptDir in lexicographic order. A previous VM for scope is replaced.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: on nil error the scope's VM is registered.
func (m *Manager) LoadScope(scope, scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, scope, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState()
	m.RegisterModules(L)
	for _, path := range files {
		if err := WithBudget(L, m.limit, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, scope, err)
		}
	}
	m.install(scope, L)
	return nil
}

// LoadGlobal loads scriptDir into the global fallback scope.
func (m *Manager) LoadGlobal(scriptDir string) error {
	return m.LoadScope(GlobalScope, scriptDir)
}

// LoadString executes code as a single chunk in a fresh VM for scope.
//
// Postcondition: on nil error the scope's VM is registered.
func (m *Manager) LoadString(scope, code string) error {
	L := NewSandboxedState()
	m.RegisterModules(L)
	if err := WithBudget(L, m.limit, func() error { return L.DoString(code) }); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading chunk for %q: %w", scope, err)
	}
	m.install(scope, L)
	return nil
}

func (m *Manager) install(scope string, L *lua.LState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.vms[scope]; ok {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.vms[scope] = &vm{L: L}
}

// Scopes returns the loaded scope names in sorted order.
func (m *Manager) Scopes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vms))
	for s := range m.vms {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CallHook calls the named Lua global function in scope's VM, falling back to
// the global VM. Returns (LNil, nil) if the hook is not defined or no VM
// exists. Lua runtime errors, including an exhausted instruction budget, are
// logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[scope]
	if !ok {
		v = m.vms[GlobalScope]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Debug("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	err := WithBudget(v.L, m.limit, func() error {
		return v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: Scopes() is empty; later CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, v := range m.vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
		delete(m.vms, scope)
	}
}

// Hooks binds the engine hooks to one scope.
type Hooks struct {
	m     *Manager
	scope string
}

// Hooks returns the engine hook adapter for scope.
func (m *Manager) Hooks(scope string) *Hooks {
	return &Hooks{m: m, scope: scope}
}

// OnDamage calls on_damage(attacker_id, target_id, amount). A numeric result
// replaces amount (floored, never negative); any other result keeps it.
func (h *Hooks) OnDamage(attackerID, targetID string, amount int) int {
	ret, _ := h.m.CallHook(h.scope, HookOnDamage,
		lua.LString(attackerID), lua.LString(targetID), lua.LNumber(amount))
	n, ok := ret.(lua.LNumber)
	if !ok {
		return amount
	}
	return max(0, int(n))
}

// OnPhaseChange calls on_phase_change(boss_id, phase).
func (h *Hooks) OnPhaseChange(bossID, phase string) {
	h.m.CallHook(h.scope, HookOnPhaseChange, lua.LString(bossID), lua.LString(phase)) //nolint:errcheck
}
