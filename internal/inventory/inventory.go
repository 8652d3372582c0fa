package inventory

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/property"
)

// DefaultMaxRetries bounds the PostAddItem and PostSort retry loops when no
// WithMaxRetries option is given.
const DefaultMaxRetries = 4096

// CanAddItemFunc decides whether the inventory accepts trial at all. trial is
// a clone; changing it has no effect.
type CanAddItemFunc func(inv *Inventory, trial *ItemStack, cause any) hook.QueryResult

// PostAddItemFunc runs after the merge and fill passes with whatever could not
// be placed. Returning Retry reruns both passes.
type PostAddItemFunc func(inv *Inventory, remaining *ItemStack, cause any) hook.PostResult

// PostRemoveFunc observes a committed removal.
type PostRemoveFunc func(inv *Inventory, removed []*ItemStack, cause any)

// PostSortFunc runs after a sort pass. Returning Retry sorts again.
type PostSortFunc func(inv *Inventory, cause any) hook.PostResult

// Hooks are the inventory-scoped hook points. CanSlotAccept, RemoveItem,
// TrySortSlot, CanSwap and PostSwap apply to every slot and are merged with
// the slot's own points at dispatch.
type Hooks struct {
	CanAddItem    hook.Point[CanAddItemFunc]
	PostAddItem   hook.Point[PostAddItemFunc]
	CanSlotAccept hook.Point[CanSlotAcceptFunc]
	RemoveItem    hook.Point[RemoveItemFunc]
	PostRemove    hook.Point[PostRemoveFunc]
	TrySortSlot   hook.Point[TrySortSlotFunc]
	PostSort      hook.Point[PostSortFunc]
	CanSwap       hook.Point[CanSwapFunc]
	PostSwap      hook.Point[PostSwapFunc]
}

// Inventory is an ordered collection of slots with hook-mediated operations.
//
// An Inventory is not safe for concurrent use.
type Inventory struct {
	Hooks Hooks

	id         string
	slots      []*Slot
	properties property.Bag[InventoryProperty]
	logger     *zap.Logger
	maxRetries int
	setUp      bool
}

// Option configures an Inventory.
type Option func(*Inventory)

// WithID sets the inventory's identifier. The default is a random UUID.
func WithID(id string) Option {
	return func(inv *Inventory) {
		inv.id = id
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(inv *Inventory) {
		if l != nil {
			inv.logger = l
		}
	}
}

// WithMaxRetries bounds the PostAddItem and PostSort retry loops.
func WithMaxRetries(n int) Option {
	return func(inv *Inventory) {
		if n > 0 {
			inv.maxRetries = n
		}
	}
}

// WithProperties attaches inventory properties. They are installed by Setup.
func WithProperties(props ...InventoryProperty) Option {
	return func(inv *Inventory) {
		for _, p := range props {
			if err := inv.properties.Add(p); err != nil {
				inv.logger.Warn("inventory: dropping duplicate property",
					zap.String("inventory", inv.id),
					zap.Error(err),
				)
			}
		}
	}
}

// Build returns an inventory with no slots that has not been set up. Slots and
// stacks may be attached freely; no hooks are installed until Setup runs.
// This is the entry point for rehydrating saved state.
func Build(opts ...Option) *Inventory {
	inv := &Inventory{
		id:         uuid.NewString(),
		logger:     zap.NewNop(),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// New returns a set-up inventory with slotCount empty slots.
//
// Precondition: slotCount >= 0.
// Postcondition: returns a live inventory or the first property install error.
func New(slotCount int, opts ...Option) (*Inventory, error) {
	inv := Build(opts...)
	for range max(slotCount, 0) {
		inv.AppendSlot()
	}
	if err := inv.Setup(); err != nil {
		return nil, err
	}
	return inv, nil
}

// ID returns the inventory's identifier.
func (inv *Inventory) ID() string {
	return inv.id
}

// Logger returns the inventory's logger.
func (inv *Inventory) Logger() *zap.Logger {
	return inv.logger
}

// IsSetUp reports whether Setup has run.
func (inv *Inventory) IsSetUp() bool {
	return inv.setUp
}

// Setup installs every inventory, slot and item hook and repairs slot IDs.
// A persistence layer calls it once after rehydrating; calling it again is a
// no-op.
//
// Postcondition: on error nothing stays installed and Setup may be retried.
func (inv *Inventory) Setup() error {
	if inv.setUp {
		return nil
	}
	inv.setUp = true
	inv.Validate()
	var installed []InventoryProperty
	for p := range inv.properties.All() {
		if err := p.Install(inv); err != nil {
			inv.teardown(installed, 0)
			return fmt.Errorf("inventory %s: installing %T: %w", inv.id, p, err)
		}
		installed = append(installed, p)
	}
	for i, s := range inv.slots {
		if err := s.install(); err != nil {
			inv.teardown(installed, i)
			return fmt.Errorf("inventory %s: %w", inv.id, err)
		}
	}
	inv.logger.Debug("inventory set up",
		zap.String("inventory", inv.id),
		zap.Int("slots", len(inv.slots)),
	)
	return nil
}

// teardown undoes a failed Setup, uninstalling the first n slots and then
// props in reverse order.
func (inv *Inventory) teardown(props []InventoryProperty, n int) {
	for i := n - 1; i >= 0; i-- {
		inv.slots[i].uninstall()
	}
	for i := len(props) - 1; i >= 0; i-- {
		props[i].Uninstall(inv)
	}
	inv.setUp = false
}

// Validate reassigns contiguous slot IDs, re-owns every slot and normalizes
// empty stacks to nil.
func (inv *Inventory) Validate() {
	for i, s := range inv.slots {
		s.id = i
		s.inv = inv
		if s.stack != nil && s.stack.IsEmpty() {
			s.replace(nil)
		}
	}
}

// SlotCount returns the number of slots.
func (inv *Inventory) SlotCount() int {
	return len(inv.slots)
}

// GetSlot returns the slot at id, or nil if id is out of range.
func (inv *Inventory) GetSlot(id int) *Slot {
	if id < 0 || id >= len(inv.slots) {
		return nil
	}
	return inv.slots[id]
}

// Slots yields the slots in order. The sequence reflects the slot list at the
// time iteration starts.
func (inv *Inventory) Slots() iter.Seq2[int, *Slot] {
	slots := inv.slots
	return func(yield func(int, *Slot) bool) {
		for i, s := range slots {
			if !yield(i, s) {
				return
			}
		}
	}
}

// AppendSlot adds an empty slot at the end and returns it.
func (inv *Inventory) AppendSlot() *Slot {
	s := &Slot{inv: inv, id: len(inv.slots)}
	inv.slots = append(inv.slots, s)
	if inv.setUp {
		// A fresh slot has no properties, so install cannot fail.
		_ = s.install()
		inv.logger.Debug("slot appended",
			zap.String("inventory", inv.id),
			zap.Int("slots", len(inv.slots)),
		)
	}
	return s
}

// RemoveSlot detaches s from the inventory, uninstalls its hooks and returns
// whatever it held. Remaining slots are renumbered.
func (inv *Inventory) RemoveSlot(s *Slot) (*ItemStack, error) {
	if s == nil || s.inv != inv || inv.GetSlot(s.id) != s {
		return nil, ErrForeignSlot
	}
	s.uninstall()
	held := s.Stack()
	s.stack = nil
	inv.slots = append(inv.slots[:s.id:s.id], inv.slots[s.id+1:]...)
	s.inv = nil
	inv.Validate()
	return held, nil
}

// AddProperty attaches p, installing it if the inventory is set up.
//
// Postcondition: on error the inventory's properties are unchanged.
func (inv *Inventory) AddProperty(p InventoryProperty) error {
	if err := inv.properties.Add(p); err != nil {
		return fmt.Errorf("inventory %s: %w", inv.id, err)
	}
	if inv.setUp {
		if err := p.Install(inv); err != nil {
			inv.properties.Pop()
			return fmt.Errorf("inventory %s: installing %T: %w", inv.id, p, err)
		}
	}
	return nil
}

// Properties yields the inventory's properties in insertion order.
func (inv *Inventory) Properties() iter.Seq[InventoryProperty] {
	return inv.properties.All()
}

// InventoryPropertyOf returns inv's property assignable to P.
func InventoryPropertyOf[P any](inv *Inventory) (P, bool) {
	return property.TryGet[P](&inv.properties)
}

// RemoveInventoryProperty detaches and uninstalls inv's property assignable to P.
func RemoveInventoryProperty[P any](inv *Inventory) bool {
	p, ok := property.Remove[P](&inv.properties)
	if !ok {
		return false
	}
	p.Uninstall(inv)
	return true
}

// Count returns the total quantity of stacks matching f.
func (inv *Inventory) Count(f ItemFilter) int {
	n := 0
	for _, s := range inv.slots {
		if !s.IsEmpty() && f(s.stack) {
			n += s.stack.quantity
		}
	}
	return n
}

// CountType returns the total quantity of t.
func (inv *Inventory) CountType(t *ItemType) int {
	return inv.Count(ByType(t))
}

// Find returns the non-empty slots whose stacks match f, in order.
func (inv *Inventory) Find(f ItemFilter) []*Slot {
	var out []*Slot
	for _, s := range inv.slots {
		if !s.IsEmpty() && f(s.stack) {
			out = append(out, s)
		}
	}
	return out
}

// EmptySlots returns the number of empty slots.
func (inv *Inventory) EmptySlots() int {
	n := 0
	for _, s := range inv.slots {
		if s.IsEmpty() {
			n++
		}
	}
	return n
}

// Contents returns clones of the non-empty stacks in slot order.
func (inv *Inventory) Contents() []*ItemStack {
	var out []*ItemStack
	for _, s := range inv.slots {
		if !s.IsEmpty() {
			out = append(out, s.stack.Clone())
		}
	}
	return out
}
