package inventory

import "fmt"

// SlotProperty is behavior attached to one slot. The slot installs it when the
// slot becomes part of a set-up inventory (or when added to such a slot) and
// uninstalls it when it is removed from the slot or the slot is dropped.
//
// Install must be idempotent: a property already installed on s does nothing.
type SlotProperty interface {
	Install(s *Slot) error
	Uninstall(s *Slot)
}

// InventoryProperty is behavior attached to an inventory. It is installed when
// added to a set-up inventory, or by Setup.
type InventoryProperty interface {
	Install(inv *Inventory) error
	Uninstall(inv *Inventory)
}

// Binding records the single owner a property is attached to. Behavior
// implementations embed or hold one to get the bind-once semantics.
type Binding[O comparable] struct {
	owner O
	bound bool
}

// Bind attaches the binding to owner.
//
// Postcondition: first is true only on the call that bound it. Binding again
// to the same owner returns (false, nil); binding to another owner returns
// ErrAlreadyBound.
func (b *Binding[O]) Bind(owner O) (first bool, err error) {
	if !b.bound {
		b.owner, b.bound = owner, true
		return true, nil
	}
	if b.owner != owner {
		return false, fmt.Errorf("%w: %v", ErrAlreadyBound, b.owner)
	}
	return false, nil
}

// Owner returns the bound owner.
func (b *Binding[O]) Owner() (O, bool) {
	return b.owner, b.bound
}

// Unbind releases the owner.
func (b *Binding[O]) Unbind() {
	var zero O
	b.owner, b.bound = zero, false
}
