// Package inventory implements slot-based item storage whose add, remove, sort
// and swap algorithms consult hook points at fixed checkpoints. Optional
// behaviors (stack limits, filters, auto-expansion, pricing) are properties
// that register hooks; the algorithms never know about them.
package inventory

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/property"
)

// ItemProperty is behavior attached to an ItemType.
//
// Install binds the property to its type once; installing again on the same
// type is a no-op and installing on a different type returns ErrAlreadyBound.
// AttachSlot registers the property's hooks for a slot that now holds an item
// of the owning type, recording them in regs. The slot removes them when its
// contents change.
type ItemProperty interface {
	Install(t *ItemType) error
	AttachSlot(s *Slot, regs *hook.Registrations)
}

// InstanceProperty is per-stack state such as temperature or durability.
// Stacks merge only when their instance properties are pairwise Equal.
type InstanceProperty interface {
	Clone() InstanceProperty
	Equal(other InstanceProperty) bool
}

// ItemType is the immutable definition of a kind of item.
type ItemType struct {
	ID          string
	Name        string
	Description string
	Tags        []string

	properties property.Bag[ItemProperty]
}

// NewItemType creates an ItemType and installs props on it.
//
// Precondition: id is non-empty.
// Postcondition: returns an error if id is empty, two props share a concrete
// type, or a prop is already bound to another type.
func NewItemType(id, name string, props ...ItemProperty) (*ItemType, error) {
	if id == "" {
		return nil, fmt.Errorf("inventory: NewItemType: id must not be empty")
	}
	t := &ItemType{ID: id, Name: name}
	for _, p := range props {
		if err := t.properties.Add(p); err != nil {
			return nil, fmt.Errorf("inventory: NewItemType %q: %w", id, err)
		}
		if err := p.Install(t); err != nil {
			return nil, fmt.Errorf("inventory: NewItemType %q: %w", id, err)
		}
	}
	return t, nil
}

// MustItemType is NewItemType that panics on error. It is meant for tests and
// static tables.
func MustItemType(id, name string, props ...ItemProperty) *ItemType {
	t, err := NewItemType(id, name, props...)
	if err != nil {
		panic(err)
	}
	return t
}

// WithTags sets the type's tags and returns t.
func (t *ItemType) WithTags(tags ...string) *ItemType {
	t.Tags = tags
	return t
}

// HasTag reports whether tag is one of the type's tags.
func (t *ItemType) HasTag(tag string) bool {
	return t != nil && slices.Contains(t.Tags, tag)
}

// Properties returns the type's item properties in insertion order.
func (t *ItemType) Properties() []ItemProperty {
	return t.properties.Values()
}

// String returns the type's ID.
func (t *ItemType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.ID
}

// ItemPropertyOf returns t's property assignable to P.
func ItemPropertyOf[P any](t *ItemType) (P, bool) {
	if t == nil {
		var zero P
		return zero, false
	}
	return property.TryGet[P](&t.properties)
}

// ItemStack is an owned quantity of one ItemType plus per-instance state.
// A stack with a nil Type or zero quantity is empty.
type ItemStack struct {
	Type     *ItemType
	quantity int
	instance property.Bag[InstanceProperty]
}

// NewStack creates a stack of qty items of t carrying the given instance
// properties.
//
// Postcondition: returns ErrNegativeQuantity if qty < 0, or an error if two
// instance properties share a concrete type.
func NewStack(t *ItemType, qty int, instance ...InstanceProperty) (*ItemStack, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeQuantity, qty)
	}
	s := &ItemStack{Type: t, quantity: qty}
	for _, p := range instance {
		if err := s.instance.Add(p); err != nil {
			return nil, fmt.Errorf("inventory: NewStack: %w", err)
		}
	}
	return s, nil
}

// MustStack is NewStack that panics on error.
func MustStack(t *ItemType, qty int, instance ...InstanceProperty) *ItemStack {
	s, err := NewStack(t, qty, instance...)
	if err != nil {
		panic(err)
	}
	return s
}

// Quantity returns the number of items in the stack; zero for a nil stack.
func (s *ItemStack) Quantity() int {
	if s == nil {
		return 0
	}
	return s.quantity
}

// SetQuantity sets the stack's quantity.
//
// Postcondition: returns ErrNegativeQuantity and leaves s unchanged if n < 0.
func (s *ItemStack) SetQuantity(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeQuantity, n)
	}
	s.quantity = n
	return nil
}

// IsEmpty reports whether the stack is nil, typeless or has zero quantity.
func (s *ItemStack) IsEmpty() bool {
	return s == nil || s.Type == nil || s.quantity == 0
}

// Instance returns the stack's instance properties in insertion order.
func (s *ItemStack) Instance() []InstanceProperty {
	if s == nil {
		return nil
	}
	return s.instance.Values()
}

// AddInstance attaches an instance property.
func (s *ItemStack) AddInstance(p InstanceProperty) error {
	return s.instance.Add(p)
}

// InstancePropertyOf returns s's instance property assignable to P.
func InstancePropertyOf[P any](s *ItemStack) (P, bool) {
	if s == nil {
		var zero P
		return zero, false
	}
	return property.TryGet[P](&s.instance)
}

// Clone returns a deep copy of s with cloned instance properties.
func (s *ItemStack) Clone() *ItemStack {
	if s == nil {
		return nil
	}
	c := &ItemStack{Type: s.Type, quantity: s.quantity}
	for v := range s.instance.All() {
		_ = c.instance.Add(v.Clone())
	}
	return c
}

// WithQuantity returns a clone of s holding n items.
func (s *ItemStack) WithQuantity(n int) *ItemStack {
	c := s.Clone()
	c.quantity = max(n, 0)
	return c
}

// String formats the stack as "<qty>x<type>".
func (s *ItemStack) String() string {
	if s.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("%dx%s", s.quantity, s.Type.ID)
}

// SameInstance reports whether a and b carry set-equal instance properties.
func SameInstance(a, b *ItemStack) bool {
	ai, bi := a.Instance(), b.Instance()
	if len(ai) != len(bi) {
		return false
	}
	for _, pa := range ai {
		found := false
		for _, pb := range bi {
			if reflect.TypeOf(pa) == reflect.TypeOf(pb) && pa.Equal(pb) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CanMerge reports whether src may be merged into dst: dst is empty, or both
// share a type and set-equal instance properties.
func CanMerge(src, dst *ItemStack) bool {
	if dst.IsEmpty() {
		return true
	}
	if src == nil || src.Type != dst.Type {
		return false
	}
	return SameInstance(src, dst)
}

// MergeUnchecked moves as much of src's quantity into dst as integer range
// allows and returns the amount moved. Compatibility is not checked. An empty
// dst adopts src's type and instance properties.
//
// Precondition: dst is non-nil.
// Postcondition: src.Quantity() + dst.Quantity() is unchanged.
func MergeUnchecked(src, dst *ItemStack) int {
	if src.IsEmpty() {
		return 0
	}
	if dst.Type == nil || dst.quantity == 0 {
		dst.Type = src.Type
		dst.instance = property.Bag[InstanceProperty]{}
		for v := range src.instance.All() {
			_ = dst.instance.Add(v.Clone())
		}
	}
	n := min(src.quantity, math.MaxInt-dst.quantity)
	dst.quantity += n
	src.quantity -= n
	return n
}
