package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

var (
	// ErrUndefined is returned by Call when the rule set or the function does
	// not exist.
	ErrUndefined = errors.New("scripting: undefined rule")
	// ErrBudgetExhausted is returned when a script runs past its instruction
	// limit.
	ErrBudgetExhausted = errors.New("scripting: instruction budget exhausted")
)

// Arg builds one Lua argument inside the VM that runs the call.
type Arg func(L *lua.LState) lua.LValue

// Number passes n.
func Number(n int) Arg {
	return func(*lua.LState) lua.LValue { return lua.LNumber(n) }
}

// String passes s.
func String(s string) Arg {
	return func(*lua.LState) lua.LValue { return lua.LString(s) }
}

// vm is one rule set's state. An LState is single-threaded, so every use
// holds mu.
type vm struct {
	mu sync.Mutex
	L  *lua.LState
}

// Manager owns one sandboxed LState per named rule set.
//
// Manager is safe for concurrent use. Calls into the same set are serialized.
type Manager struct {
	mu        sync.RWMutex
	sets      map[string]*vm
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager whose calls run at most instLimit opcodes each.
//
// Precondition: logger must be non-nil; instLimit <= 0 uses
// DefaultInstructionLimit.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		sets:      make(map[string]*vm),
		instLimit: instLimit,
		logger:    logger,
	}
}

// Load creates a VM for set and executes every *.lua file in dir in
// lexicographic order. A previously loaded VM for set is replaced.
//
// Postcondition: returns an error and keeps the old VM on any load failure.
func (m *Manager) Load(set, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, set, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := m.newState(set)
	for _, path := range files {
		release := Budget(L, m.instLimit)
		err := budgetErr(L.DoFile(path), release())
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, set, err)
		}
	}
	m.install(set, L)
	return nil
}

// LoadSource creates a VM for set from a single chunk of Lua source.
func (m *Manager) LoadSource(set, src string) error {
	L := m.newState(set)
	release := Budget(L, m.instLimit)
	err := budgetErr(L.DoString(src), release())
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading source for %q: %w", set, err)
	}
	m.install(set, L)
	return nil
}

func (m *Manager) newState(set string) *lua.LState {
	L := NewSandboxedState()
	m.RegisterModules(L, set)
	return L
}

func (m *Manager) install(set string, L *lua.LState) {
	m.mu.Lock()
	old := m.sets[set]
	m.sets[set] = &vm{L: L}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripting: rule set loaded", zap.String("set", set))
}

// Has reports whether set defines a global function fn.
func (m *Manager) Has(set, fn string) bool {
	v := m.get(set)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.L.GetGlobal(fn).Type() == lua.LTFunction
}

func (m *Manager) get(set string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets[set]
}

// Call calls the global function fn of set and returns its first result.
//
// Postcondition: returns ErrUndefined when set or fn is missing. Lua runtime
// errors are logged at Warn level and returned; one caused by the instruction
// limit wraps ErrBudgetExhausted.
func (m *Manager) Call(set, fn string, args ...Arg) (lua.LValue, error) {
	v := m.get(set)
	if v == nil {
		m.logger.Info("scripting: no rule set", zap.String("set", set), zap.String("fn", fn))
		return lua.LNil, fmt.Errorf("%w: set %q", ErrUndefined, set)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	L := v.L
	f := L.GetGlobal(fn)
	if f.Type() != lua.LTFunction {
		m.logger.Info("scripting: no rule function", zap.String("set", set), zap.String("fn", fn))
		return lua.LNil, fmt.Errorf("%w: %s.%s", ErrUndefined, set, fn)
	}
	values := make([]lua.LValue, len(args))
	for i, a := range args {
		values[i] = a(L)
	}

	release := Budget(L, m.instLimit)
	err := budgetErr(L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, values...), release())
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("set", set),
			zap.String("fn", fn),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s.%s: %w", set, fn, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// budgetErr marks err as ErrBudgetExhausted when the budget ran out.
func budgetErr(err error, exhausted bool) error {
	if err != nil && exhausted {
		return fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
	}
	return err
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	sets := m.sets
	m.sets = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range sets {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
