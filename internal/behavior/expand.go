package behavior

import (
	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// AutoExpand grows its inventory while an add overflows and drops empty,
// property-free slots after every removal.
type AutoExpand struct {
	binding inventory.Binding[*inventory.Inventory]
	regs    hook.Registrations
}

// NewAutoExpand returns an AutoExpand property.
func NewAutoExpand() *AutoExpand {
	return &AutoExpand{}
}

// Install hooks PostAddItem and PostRemove of inv.
func (a *AutoExpand) Install(inv *inventory.Inventory) error {
	if _, err := a.binding.Bind(inv); err != nil {
		return err
	}
	if a.regs.Len() > 0 {
		return nil
	}
	a.regs.Add(
		inv.Hooks.PostAddItem.Insert(a.expand, PriorityExpand),
		inv.Hooks.PostRemove.Insert(func(inv *inventory.Inventory, _ []*inventory.ItemStack, _ any) {
			a.condense(inv)
		}, PriorityExpand),
	)
	return nil
}

// Uninstall removes the hooks and releases the inventory.
func (a *AutoExpand) Uninstall(*inventory.Inventory) {
	a.regs.RemoveAll()
	a.binding.Unbind()
}

// expandChunk caps the slots appended per retry.
const expandChunk = 1024

// expand appends enough slots for what remains, one per stack limit's worth,
// and asks for a retry. A plain empty slot that is still empty after the fill
// pass would not take the items either, so in that case nothing is appended.
func (a *AutoExpand) expand(inv *inventory.Inventory, remaining *inventory.ItemStack, _ any) hook.PostResult {
	if remaining.IsEmpty() {
		return hook.Continue
	}
	for _, s := range inv.Slots() {
		if s.IsEmpty() && plain(s) {
			return hook.Continue
		}
	}
	for range slotsFor(remaining) {
		inv.AppendSlot()
	}
	return hook.Retry
}

// slotsFor returns how many fresh slots st fills, at least 1 and at most
// expandChunk.
func slotsFor(st *inventory.ItemStack) int {
	limit := StackLimit(st.Type)
	if limit <= 0 {
		return 1
	}
	n := st.Quantity() / limit
	if st.Quantity()%limit != 0 {
		n++
	}
	return min(max(n, 1), expandChunk)
}

// condense removes every empty slot that carries no slot properties.
func (a *AutoExpand) condense(inv *inventory.Inventory) {
	for id := inv.SlotCount() - 1; id >= 0; id-- {
		s := inv.GetSlot(id)
		if s.IsEmpty() && plain(s) {
			_, _ = inv.RemoveSlot(s)
		}
	}
}

func plain(s *inventory.Slot) bool {
	for range s.Properties() {
		return false
	}
	return true
}
