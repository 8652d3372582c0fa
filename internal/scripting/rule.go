package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// verdict maps a rule's return value onto a query result. nil and true allow,
// false denies, a number caps the trial quantity (<= 0 denies). Errors and
// any other value deny.
func (m *Manager) verdict(set, fn string, ret lua.LValue, err error, trial *inventory.ItemStack) hook.QueryResult {
	if err != nil {
		return hook.Deny
	}
	switch v := ret.(type) {
	case *lua.LNilType:
		return hook.Allow
	case lua.LBool:
		if v {
			return hook.Allow
		}
		return hook.Deny
	case lua.LNumber:
		n := int(v)
		if n <= 0 {
			return hook.Deny
		}
		if n < trial.Quantity() {
			_ = trial.SetQuantity(n)
		}
		return hook.Allow
	default:
		m.logger.Warn("scripting: rule returned unsupported value",
			zap.String("set", set),
			zap.String("fn", fn),
			zap.String("type", ret.Type().String()),
		)
		return hook.Deny
	}
}

// SlotRule is a slot property that asks the Lua function Func of rule set Set
// whether the slot accepts a stack. The function is called as
// fn(slot, trial, cause) with cause passed as a string when it is one.
type SlotRule struct {
	Set  string
	Func string

	m       *Manager
	binding inventory.Binding[*inventory.Slot]
	regs    hook.Registrations
}

// NewSlotRule returns a SlotRule evaluated by m.
func NewSlotRule(m *Manager, set, fn string) *SlotRule {
	return &SlotRule{Set: set, Func: fn, m: m}
}

// Install registers the rule on s's CanSlotAccept point.
func (r *SlotRule) Install(s *inventory.Slot) error {
	if _, err := r.binding.Bind(s); err != nil {
		return err
	}
	if r.regs.Len() > 0 {
		return nil
	}
	r.regs.Add(s.Hooks.CanSlotAccept.Insert(func(slot *inventory.Slot, trial *inventory.ItemStack, cause any) hook.QueryResult {
		ret, err := r.m.Call(r.Set, r.Func, Slot(slot), Stack(trial), causeArg(cause))
		return r.m.verdict(r.Set, r.Func, ret, err, trial)
	}, 0))
	return nil
}

// Uninstall removes the rule's hook and releases the slot.
func (r *SlotRule) Uninstall(*inventory.Slot) {
	r.regs.RemoveAll()
	r.binding.Unbind()
}

// InventoryRule is an inventory property that asks Func whether the inventory
// accepts a stack at all. The function is called as fn(inventory, trial,
// cause). A numeric result only affects CanAddItem's trial, which the add
// algorithm ignores, so inventory rules effectively allow or deny.
type InventoryRule struct {
	Set  string
	Func string

	m       *Manager
	binding inventory.Binding[*inventory.Inventory]
	regs    hook.Registrations
}

// NewInventoryRule returns an InventoryRule evaluated by m.
func NewInventoryRule(m *Manager, set, fn string) *InventoryRule {
	return &InventoryRule{Set: set, Func: fn, m: m}
}

// Install registers the rule on inv's CanAddItem point.
func (r *InventoryRule) Install(inv *inventory.Inventory) error {
	if _, err := r.binding.Bind(inv); err != nil {
		return err
	}
	if r.regs.Len() > 0 {
		return nil
	}
	r.regs.Add(inv.Hooks.CanAddItem.Insert(func(inv *inventory.Inventory, trial *inventory.ItemStack, cause any) hook.QueryResult {
		ret, err := r.m.Call(r.Set, r.Func, Inventory(inv), Stack(trial), causeArg(cause))
		return r.m.verdict(r.Set, r.Func, ret, err, trial)
	}, 0))
	return nil
}

// Uninstall removes the rule's hook and releases the inventory.
func (r *InventoryRule) Uninstall(*inventory.Inventory) {
	r.regs.RemoveAll()
	r.binding.Unbind()
}

func causeArg(cause any) Arg {
	return func(*lua.LState) lua.LValue {
		if s, ok := cause.(string); ok {
			return lua.LString(s)
		}
		return lua.LNil
	}
}
