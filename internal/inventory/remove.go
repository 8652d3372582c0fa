package inventory

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/hook"
)

type withdrawn struct {
	slot  *Slot
	stack *ItemStack
}

// Withdrawal records stacks taken from an inventory by TryRemove so they can be
// handed on or put back.
type Withdrawal struct {
	inv     *Inventory
	entries []withdrawn
}

// Stacks returns clones of the removed stacks in removal order.
func (w *Withdrawal) Stacks() []*ItemStack {
	if w == nil {
		return nil
	}
	out := make([]*ItemStack, 0, len(w.entries))
	for _, e := range w.entries {
		out = append(out, e.stack.Clone())
	}
	return out
}

// Total returns the number of items removed.
func (w *Withdrawal) Total() int {
	if w == nil {
		return 0
	}
	n := 0
	for _, e := range w.entries {
		n += e.stack.quantity
	}
	return n
}

// Refund puts every removed stack back. Stacks go back into their original
// slot without running add hooks when that slot still belongs to the
// inventory and can merge them; otherwise they are re-added with AddItem.
// Whatever could not be put back is returned.
func (w *Withdrawal) Refund(cause any) []*ItemStack {
	if w == nil {
		return nil
	}
	var lost []*ItemStack
	for i := len(w.entries) - 1; i >= 0; i-- {
		e := w.entries[i]
		if e.slot.inv == w.inv && w.inv.GetSlot(e.slot.id) == e.slot && CanMerge(e.stack, e.slot.stack) {
			e.slot.restore(e.stack)
			continue
		}
		left := e.stack.Clone()
		if _, err := w.inv.AddItem(left, cause); err != nil || !left.IsEmpty() {
			w.inv.logger.Warn("refund could not restore stack",
				zap.String("inventory", w.inv.id),
				zap.Stringer("stack", left),
				zap.Error(err),
			)
			lost = append(lost, left)
		}
	}
	w.entries = nil
	return lost
}

// restoreAll puts every entry back into its slot in reverse order.
func (w *Withdrawal) restoreAll() {
	for i := len(w.entries) - 1; i >= 0; i-- {
		w.entries[i].slot.restore(w.entries[i].stack)
	}
	w.entries = nil
}

// take removes n items from the slot and returns them as a new stack. A slot
// left empty drops its item hooks.
func (s *Slot) take(n int) *ItemStack {
	out := s.stack.WithQuantity(n)
	s.stack.quantity -= n
	if s.stack.quantity == 0 {
		s.replace(nil)
	}
	return out
}

// restore merges st back into the slot without consulting hooks.
func (s *Slot) restore(st *ItemStack) {
	if s.IsEmpty() {
		s.replace(st.Clone())
		return
	}
	MergeUnchecked(st.Clone(), s.stack)
}

func (inv *Inventory) removeHooks(s *Slot) *hook.Aggregate[RemoveItemFunc] {
	return hook.Merge(&inv.Hooks.RemoveItem, &s.Hooks.RemoveItem)
}

// propose runs RemoveItem for up to limit items from s and returns the amount
// the hooks allow.
func (inv *Inventory) propose(s *Slot, limit int, cause any) int {
	r := &Removal{Slot: s, Quantity: limit}
	if hook.Query(inv.removeHooks(s), func(h RemoveItemFunc) hook.QueryResult {
		return h(r, cause)
	}) == hook.Deny {
		return 0
	}
	return min(max(r.Quantity, 0), limit)
}

// TryRemove removes exactly total items matching f, or nothing.
//
// Matching slots are visited in order; each RemoveItem proposal may be lowered
// or denied by hooks. If the slots run out before total is reached every
// removal is reverted without running add hooks and ok is false.
//
// Postcondition: ok is true iff w.Total() == total; PostRemove runs only on
// success. A negative total removes nothing and reports false. A RemoveItem
// hook that panics leaves the slots as they were before the panic propagates.
func (inv *Inventory) TryRemove(f ItemFilter, total int, cause any) (w *Withdrawal, ok bool) {
	if !inv.setUp || total < 0 {
		return nil, false
	}
	w = &Withdrawal{inv: inv}
	if total == 0 {
		return w, true
	}
	settled := false
	defer func() {
		if settled {
			return
		}
		if r := recover(); r != nil {
			w.restoreAll()
			panic(r)
		}
	}()
	remaining := total
	slots := inv.slots
	for _, s := range slots {
		if remaining == 0 {
			break
		}
		if s.IsEmpty() || !f(s.stack) {
			continue
		}
		n := inv.propose(s, min(remaining, s.Quantity()), cause)
		if n == 0 {
			continue
		}
		w.entries = append(w.entries, withdrawn{slot: s, stack: s.take(n)})
		remaining -= n
	}
	if remaining > 0 {
		w.restoreAll()
		settled = true
		return nil, false
	}
	removed := w.Stacks()
	hook.Each(&inv.Hooks.PostRemove, func(h PostRemoveFunc) {
		h(inv, removed, cause)
	})
	settled = true
	return w, true
}

// Remove is TryRemove for total items of t.
func (inv *Inventory) Remove(t *ItemType, total int, cause any) bool {
	_, ok := inv.TryRemove(ByType(t), total, cause)
	return ok
}

// RemoveAll removes every matching item the RemoveItem hooks allow and returns
// how many were removed. Partial results are kept.
func (inv *Inventory) RemoveAll(f ItemFilter, cause any) int {
	if !inv.setUp {
		return 0
	}
	var removed []*ItemStack
	total := 0
	slots := inv.slots
	for _, s := range slots {
		if s.IsEmpty() || !f(s.stack) {
			continue
		}
		n := inv.propose(s, s.Quantity(), cause)
		if n == 0 {
			continue
		}
		removed = append(removed, s.take(n))
		total += n
	}
	if total > 0 {
		hook.Each(&inv.Hooks.PostRemove, func(h PostRemoveFunc) {
			h(inv, removed, cause)
		})
	}
	return total
}
