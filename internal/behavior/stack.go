package behavior

import (
	"fmt"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// MaxStackSize caps how many items of its type one slot may hold.
type MaxStackSize struct {
	Limit int

	binding inventory.Binding[*inventory.ItemType]
}

// NewMaxStackSize returns a MaxStackSize with the given limit.
//
// Precondition: limit >= 1.
func NewMaxStackSize(limit int) (*MaxStackSize, error) {
	if limit < 1 {
		return nil, fmt.Errorf("behavior: max stack size must be >= 1, got %d", limit)
	}
	return &MaxStackSize{Limit: limit}, nil
}

// MustMaxStackSize is NewMaxStackSize that panics on error.
func MustMaxStackSize(limit int) *MaxStackSize {
	m, err := NewMaxStackSize(limit)
	if err != nil {
		panic(err)
	}
	return m
}

// Install binds m to t.
func (m *MaxStackSize) Install(t *inventory.ItemType) error {
	_, err := m.binding.Bind(t)
	return err
}

// AttachSlot clamps every proposal into s to Limit minus what s already holds.
func (m *MaxStackSize) AttachSlot(s *inventory.Slot, regs *hook.Registrations) {
	regs.Add(s.Hooks.CanSlotAccept.Insert(func(slot *inventory.Slot, trial *inventory.ItemStack, _ any) hook.QueryResult {
		if slot != s {
			return hook.Allow
		}
		room := m.Limit - slot.Quantity()
		if room <= 0 {
			return hook.Deny
		}
		if trial.Quantity() > room {
			_ = trial.SetQuantity(room)
		}
		return hook.Allow
	}, PriorityLimit))
}

// StackLimit returns the MaxStackSize limit of t, or 0 when t has none.
func StackLimit(t *inventory.ItemType) int {
	m, ok := inventory.ItemPropertyOf[*MaxStackSize](t)
	if !ok {
		return 0
	}
	return m.Limit
}
