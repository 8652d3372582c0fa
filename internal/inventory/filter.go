package inventory

import (
	"cmp"
	"strings"
)

// ItemFilter selects stacks. Filters are only called with non-empty stacks.
type ItemFilter func(*ItemStack) bool

// Any matches every stack.
func Any() ItemFilter {
	return func(*ItemStack) bool { return true }
}

// ByType matches stacks of exactly t.
func ByType(t *ItemType) ItemFilter {
	return func(s *ItemStack) bool { return s.Type == t }
}

// ByTag matches stacks whose type carries tag.
func ByTag(tag string) ItemFilter {
	return func(s *ItemStack) bool { return s.Type.HasTag(tag) }
}

// Like matches stacks that could merge with proto: same type and set-equal
// instance properties.
func Like(proto *ItemStack) ItemFilter {
	return func(s *ItemStack) bool {
		return s.Type == proto.Type && SameInstance(s, proto)
	}
}

// AnyOf matches stacks accepted by at least one of fs.
func AnyOf(fs ...ItemFilter) ItemFilter {
	return func(s *ItemStack) bool {
		for _, f := range fs {
			if f(s) {
				return true
			}
		}
		return false
	}
}

// AllOf matches stacks accepted by every one of fs.
func AllOf(fs ...ItemFilter) ItemFilter {
	return func(s *ItemStack) bool {
		for _, f := range fs {
			if !f(s) {
				return false
			}
		}
		return true
	}
}

// Not inverts f.
func Not(f ItemFilter) ItemFilter {
	return func(s *ItemStack) bool { return !f(s) }
}

// Comparator orders two non-empty stacks for Sort.
type Comparator func(a, b *ItemStack) int

// ByName orders stacks by type name, then type ID.
func ByName(a, b *ItemStack) int {
	if c := strings.Compare(a.Type.Name, b.Type.Name); c != 0 {
		return c
	}
	return strings.Compare(a.Type.ID, b.Type.ID)
}

// ByID orders stacks by type ID.
func ByID(a, b *ItemStack) int {
	return strings.Compare(a.Type.ID, b.Type.ID)
}

// ByQuantityDesc puts larger stacks first.
func ByQuantityDesc(a, b *ItemStack) int {
	return cmp.Compare(b.Quantity(), a.Quantity())
}

// ThenBy chains comparators; later ones break ties of earlier ones.
func ThenBy(cmps ...Comparator) Comparator {
	return func(a, b *ItemStack) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}
