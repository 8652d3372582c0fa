package behavior

import "github.com/cory-johannsen/satchel/internal/inventory"

// Temperature is per-stack state: a hot ingot does not stack with a cold one.
type Temperature struct {
	Celsius int
}

// Clone returns a copy of t.
func (t *Temperature) Clone() inventory.InstanceProperty {
	return &Temperature{Celsius: t.Celsius}
}

// Equal reports whether other is a Temperature of the same value.
func (t *Temperature) Equal(other inventory.InstanceProperty) bool {
	o, ok := other.(*Temperature)
	return ok && o.Celsius == t.Celsius
}
