package inventory

import (
	"fmt"
	"iter"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/property"
)

// CanSlotAcceptFunc decides whether a slot takes the trial stack. It may lower
// trial's quantity to the amount it allows, or Deny outright.
type CanSlotAcceptFunc func(s *Slot, trial *ItemStack, cause any) hook.QueryResult

// Removal is the proposal passed to RemoveItem hooks. Hooks may lower Quantity.
type Removal struct {
	Slot     *Slot
	Quantity int
}

// RemoveItemFunc decides whether r may be taken from r.Slot.
type RemoveItemFunc func(r *Removal, cause any) hook.QueryResult

// TrySortSlotFunc decides whether a slot takes part in Sort. Deny pins it.
type TrySortSlotFunc func(s *Slot, cause any) hook.QueryResult

// CanSwapFunc decides whether the contents of a and b may be exchanged.
type CanSwapFunc func(a, b *Slot, cause any) hook.QueryResult

// PostSwapFunc observes a completed swap.
type PostSwapFunc func(a, b *Slot, cause any)

// SlotHooks are the hook points scoped to one slot. Dispatch merges each with
// the inventory-level point of the same name.
type SlotHooks struct {
	CanSlotAccept hook.Point[CanSlotAcceptFunc]
	RemoveItem    hook.Point[RemoveItemFunc]
	TrySortSlot   hook.Point[TrySortSlotFunc]
	CanSwap       hook.Point[CanSwapFunc]
	PostSwap      hook.Point[PostSwapFunc]
}

// Slot is one storage location of an Inventory.
//
// A slot's ID is its position and is valid only until the inventory's slot list
// changes; inv.GetSlot(s.ID()) == s holds while it is valid.
type Slot struct {
	Hooks SlotHooks

	inv        *Inventory
	id         int
	stack      *ItemStack
	properties property.Bag[SlotProperty]
	itemRegs   hook.Registrations
	installed  bool
}

// ID returns the slot's position in its inventory.
func (s *Slot) ID() int {
	return s.id
}

// Inventory returns the owning inventory, or nil for a slot that was removed.
func (s *Slot) Inventory() *Inventory {
	return s.inv
}

// Stack returns the slot's stack, nil when empty. The stack is owned by the
// slot; callers must not modify it.
func (s *Slot) Stack() *ItemStack {
	if s.stack.IsEmpty() {
		return nil
	}
	return s.stack
}

// ItemType returns the type held, or nil when empty.
func (s *Slot) ItemType() *ItemType {
	if s.stack == nil {
		return nil
	}
	return s.stack.Type
}

// Quantity returns the number of items held.
func (s *Slot) Quantity() int {
	return s.stack.Quantity()
}

// IsEmpty reports whether the slot holds nothing.
func (s *Slot) IsEmpty() bool {
	return s.stack.IsEmpty()
}

// String formats the slot as "#<id>:<stack>".
func (s *Slot) String() string {
	return fmt.Sprintf("#%d:%s", s.id, s.stack)
}

// SetStack replaces the slot's contents, taking ownership of st. The old
// type's item hooks are removed and the new type's installed before SetStack
// returns. No admission hooks run; use TryAccept for checked transfers.
func (s *Slot) SetStack(st *ItemStack) {
	if st.IsEmpty() {
		st = nil
	}
	s.replace(st)
}

// Clear empties the slot and returns what it held.
func (s *Slot) Clear() *ItemStack {
	old := s.Stack()
	s.replace(nil)
	return old
}

func (s *Slot) replace(st *ItemStack) {
	s.itemRegs.RemoveAll()
	s.stack = st
	s.attachItemHooks()
}

func (s *Slot) attachItemHooks() {
	if !s.live() || s.stack == nil || s.stack.Type == nil || s.itemRegs.Len() > 0 {
		return
	}
	for p := range s.stack.Type.properties.All() {
		p.AttachSlot(s, &s.itemRegs)
	}
}

// live reports whether the slot belongs to a set-up inventory.
func (s *Slot) live() bool {
	return s.inv != nil && s.inv.setUp
}

// ItemHookCount returns how many item-level hooks are currently installed for
// the slot's contents.
func (s *Slot) ItemHookCount() int {
	return s.itemRegs.Len()
}

// AddProperty attaches p to the slot, installing it if the slot is live.
//
// Postcondition: on error the slot's properties are unchanged.
func (s *Slot) AddProperty(p SlotProperty) error {
	if err := s.properties.Add(p); err != nil {
		return fmt.Errorf("inventory: slot %d: %w", s.id, err)
	}
	if s.live() {
		if err := p.Install(s); err != nil {
			s.properties.Pop()
			return fmt.Errorf("inventory: slot %d: installing %T: %w", s.id, p, err)
		}
	}
	return nil
}

// Properties yields the slot's properties in insertion order.
func (s *Slot) Properties() iter.Seq[SlotProperty] {
	return s.properties.All()
}

// SlotPropertyOf returns s's property assignable to P.
func SlotPropertyOf[P any](s *Slot) (P, bool) {
	return property.TryGet[P](&s.properties)
}

// RemoveSlotProperty detaches and uninstalls s's property assignable to P.
func RemoveSlotProperty[P any](s *Slot) bool {
	p, ok := property.Remove[P](&s.properties)
	if !ok {
		return false
	}
	p.Uninstall(s)
	return true
}

func (s *Slot) install() error {
	if s.installed {
		return nil
	}
	var done []SlotProperty
	for p := range s.properties.All() {
		if err := p.Install(s); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				done[i].Uninstall(s)
			}
			return fmt.Errorf("inventory: slot %d: installing %T: %w", s.id, p, err)
		}
		done = append(done, p)
	}
	s.installed = true
	s.attachItemHooks()
	return nil
}

func (s *Slot) uninstall() {
	for p := range s.properties.All() {
		p.Uninstall(s)
	}
	s.itemRegs.RemoveAll()
	s.installed = false
}

func (s *Slot) acceptHooks() *hook.Aggregate[CanSlotAcceptFunc] {
	return hook.Merge(&s.inv.Hooks.CanSlotAccept, &s.Hooks.CanSlotAccept)
}

// CanAccept reports whether the slot would take at least one item of incoming.
// Nothing is modified.
func (s *Slot) CanAccept(incoming *ItemStack, cause any) bool {
	return s.evaluate(incoming, cause, false) > 0
}

// TryAccept moves as much of incoming into the slot as its hooks allow and
// returns the amount moved. incoming's quantity is lowered by that amount.
//
// Postcondition: if nothing is accepted the slot is exactly as before.
func (s *Slot) TryAccept(incoming *ItemStack, cause any) int {
	return s.evaluate(incoming, cause, true)
}

// evaluate runs CanSlotAccept on a trial clone of incoming. An empty slot
// temporarily holds a zero-quantity placeholder of incoming's type so the
// type's item hooks take part in the decision; it is reverted unless items
// are committed.
func (s *Slot) evaluate(incoming *ItemStack, cause any, commit bool) int {
	if s.inv == nil || incoming.IsEmpty() || !CanMerge(incoming, s.stack) {
		return 0
	}
	trial := incoming.Clone()
	wasEmpty := s.IsEmpty()
	if wasEmpty {
		s.replace(incoming.WithQuantity(0))
	}
	res := hook.Query(s.acceptHooks(), func(h CanSlotAcceptFunc) hook.QueryResult {
		return h(s, trial, cause)
	})
	accepted := min(trial.Quantity(), incoming.Quantity())
	if res == hook.Deny || accepted <= 0 || !commit {
		if wasEmpty {
			s.replace(nil)
		}
		if res == hook.Deny {
			return 0
		}
		return max(accepted, 0)
	}
	part := incoming.WithQuantity(accepted)
	moved := MergeUnchecked(part, s.stack)
	incoming.quantity -= moved
	return moved
}
