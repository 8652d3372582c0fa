// Package scripting runs inventory rules written in Lua inside a sandboxed
// GopherLua VM. Rules plug into slot and inventory hook points as properties;
// a script that errors or runs out of instructions denies the action.
package scripting

import (
	"context"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/atomic"
)

// DefaultInstructionLimit is the number of Lua opcodes one script call may
// execute when no limit is configured.
const DefaultInstructionLimit = 100_000

// opBudget cancels itself once Done has been called more than limit times.
// GopherLua calls Done once per opcode while a context is set.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Dec() < 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func (b *opBudget) exhausted() bool {
	return b.left.Load() < 0
}

// NewSandboxedState creates an LState with only the base, table, string and
// math libraries, and with dofile, loadfile, load, collectgarbage and require
// removed. The caller owns the LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Budget caps the opcodes L may execute at instLimit until release is called.
// release lifts the cap and reports whether it was hit.
//
// Precondition: instLimit <= 0 uses DefaultInstructionLimit.
func Budget(L *lua.LState, instLimit int) (release func() (exhausted bool)) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(instLimit))
	L.SetContext(b)
	return func() bool {
		L.RemoveContext()
		cancel()
		return b.exhausted()
	}
}
