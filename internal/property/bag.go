// Package property provides Bag, a heterogeneous container holding at most one
// value per concrete type. Bags are how optional behaviors are attached to item
// types, stacks, slots and inventories.
package property

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
)

// ErrDuplicate is returned by Add when the bag already holds a value of the
// same concrete type.
var ErrDuplicate = errors.New("property: duplicate type")

// Bag is an insertion-ordered set of values of interface type P, keyed by each
// value's concrete type. The zero value is an empty bag.
type Bag[P any] struct {
	items []P
}

// NewBag returns a bag holding values, in order.
//
// Postcondition: returns ErrDuplicate if two values share a concrete type.
func NewBag[P any](values ...P) (*Bag[P], error) {
	b := &Bag[P]{}
	for _, v := range values {
		if err := b.Add(v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add inserts v.
//
// Precondition: v is non-nil.
// Postcondition: returns ErrDuplicate and leaves the bag unchanged if a value
// of v's concrete type is already present.
func (b *Bag[P]) Add(v P) error {
	t := reflect.TypeOf(v)
	if t == nil {
		return errors.New("property: nil value")
	}
	for _, cur := range b.items {
		if reflect.TypeOf(cur) == t {
			return fmt.Errorf("%w: %s", ErrDuplicate, t)
		}
	}
	b.items = append(b.items, v)
	return nil
}

// Pop removes and returns the most recently added value.
func (b *Bag[P]) Pop() (P, bool) {
	var zero P
	if b == nil || len(b.items) == 0 {
		return zero, false
	}
	last := b.items[len(b.items)-1]
	b.items = b.items[:len(b.items)-1:len(b.items)-1]
	return last, true
}

// Len returns the number of held values.
func (b *Bag[P]) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// All yields the held values in insertion order.
func (b *Bag[P]) All() iter.Seq[P] {
	return func(yield func(P) bool) {
		if b == nil {
			return
		}
		for _, v := range b.items {
			if !yield(v) {
				return
			}
		}
	}
}

// Values returns a copy of the held values in insertion order.
func (b *Bag[P]) Values() []P {
	if b == nil {
		return nil
	}
	out := make([]P, len(b.items))
	copy(out, b.items)
	return out
}

// Clone returns a shallow copy of b.
func (b *Bag[P]) Clone() *Bag[P] {
	return &Bag[P]{items: b.Values()}
}

// TryGet returns the first value in b assignable to T. T may be a concrete
// type or an interface.
func TryGet[T any, P any](b *Bag[P]) (T, bool) {
	var zero T
	if b == nil {
		return zero, false
	}
	for _, v := range b.items {
		if t, ok := any(v).(T); ok {
			return t, true
		}
	}
	return zero, false
}

// Get is TryGet for callers that require the value to be present.
//
// Postcondition: returns an error naming T when no value is assignable to it.
func Get[T any, P any](b *Bag[P]) (T, error) {
	v, ok := TryGet[T](b)
	if !ok {
		return v, fmt.Errorf("property: no %s in bag", reflect.TypeFor[T]())
	}
	return v, nil
}

// Has reports whether b holds a value assignable to T.
func Has[T any, P any](b *Bag[P]) bool {
	_, ok := TryGet[T](b)
	return ok
}

// Remove deletes the first value assignable to T and returns it.
//
// Postcondition: ok is false and b is unchanged when nothing matched.
func Remove[T any, P any](b *Bag[P]) (removed P, ok bool) {
	if b == nil {
		return removed, false
	}
	for i, v := range b.items {
		if _, match := any(v).(T); match {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return v, true
		}
	}
	return removed, false
}
