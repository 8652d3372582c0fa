package behavior

import (
	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// FilterSlotContents restricts a slot to stacks matching Filter. A filtered
// slot is never moved by Sort and never receives a non-matching stack through
// a swap.
type FilterSlotContents struct {
	Filter inventory.ItemFilter

	binding inventory.Binding[*inventory.Slot]
	regs    hook.Registrations
}

// NewFilterSlotContents returns a slot filter.
func NewFilterSlotContents(f inventory.ItemFilter) *FilterSlotContents {
	return &FilterSlotContents{Filter: f}
}

// Install registers the filter's hooks on s.
func (f *FilterSlotContents) Install(s *inventory.Slot) error {
	if _, err := f.binding.Bind(s); err != nil {
		return err
	}
	if f.regs.Len() > 0 {
		return nil
	}
	f.regs.Add(
		s.Hooks.CanSlotAccept.Insert(func(_ *inventory.Slot, trial *inventory.ItemStack, _ any) hook.QueryResult {
			if !f.Filter(trial) {
				return hook.Deny
			}
			return hook.Allow
		}, PriorityFilter),
		s.Hooks.TrySortSlot.Insert(func(*inventory.Slot, any) hook.QueryResult {
			return hook.Deny
		}, PriorityFilter),
		s.Hooks.CanSwap.Insert(func(a, b *inventory.Slot, _ any) hook.QueryResult {
			incoming := a
			if a == s {
				incoming = b
			}
			if st := incoming.Stack(); st != nil && !f.Filter(st) {
				return hook.Deny
			}
			return hook.Allow
		}, PriorityFilter),
	)
	return nil
}

// Uninstall removes the filter's hooks and releases the slot.
func (f *FilterSlotContents) Uninstall(*inventory.Slot) {
	f.regs.RemoveAll()
	f.binding.Unbind()
}
