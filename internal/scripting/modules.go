package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/inventory"
)

// RegisterModules defines the satchel global table in L:
//
//	satchel.log(msg)          logs msg at Info level
//	satchel.has_tag(item, t)  reports whether an item table carries tag t
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState, set string) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info("scripting: script log",
			zap.String("set", set),
			zap.String("msg", L.CheckString(1)),
		)
		return 0
	}))
	L.SetField(mod, "has_tag", L.NewFunction(func(L *lua.LState) int {
		item := L.CheckTable(1)
		tag := L.CheckString(2)
		found := false
		if tags, ok := L.GetField(item, "tags").(*lua.LTable); ok {
			tags.ForEach(func(_, v lua.LValue) {
				if v.String() == tag {
					found = true
				}
			})
		}
		L.Push(lua.LBool(found))
		return 1
	}))
	L.SetGlobal("satchel", mod)
}

// Stack passes st as a table {id, name, quantity, tags}. An empty stack is
// passed as nil.
func Stack(st *inventory.ItemStack) Arg {
	return func(L *lua.LState) lua.LValue {
		if st.IsEmpty() {
			return lua.LNil
		}
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(st.Type.ID))
		L.SetField(t, "name", lua.LString(st.Type.Name))
		L.SetField(t, "quantity", lua.LNumber(st.Quantity()))
		tags := L.NewTable()
		for _, tag := range st.Type.Tags {
			tags.Append(lua.LString(tag))
		}
		L.SetField(t, "tags", tags)
		return t
	}
}

// Slot passes s as a table {id, inventory, item}. item is the slot's stack
// table, or nil when the slot is empty.
func Slot(s *inventory.Slot) Arg {
	return func(L *lua.LState) lua.LValue {
		t := L.NewTable()
		L.SetField(t, "id", lua.LNumber(s.ID()))
		if inv := s.Inventory(); inv != nil {
			L.SetField(t, "inventory", lua.LString(inv.ID()))
		}
		L.SetField(t, "item", Stack(s.Stack())(L))
		return t
	}
}

// Inventory passes inv as a table {id, slots, empty}.
func Inventory(inv *inventory.Inventory) Arg {
	return func(L *lua.LState) lua.LValue {
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(inv.ID()))
		L.SetField(t, "slots", lua.LNumber(inv.SlotCount()))
		L.SetField(t, "empty", lua.LNumber(inv.EmptySlots()))
		return t
	}
}
