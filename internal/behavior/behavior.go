// Package behavior provides the built-in item, slot and inventory properties:
// stack limits, slot filters, auto-expansion, pricing and instance state.
package behavior

// Hook priorities used by the built-in behaviors. Filters run before limits so
// a denied item is never clamped; expansion runs late so other PostAddItem
// hooks see the overflow first.
const (
	PriorityFilter = -100
	PriorityLimit  = 0
	PriorityExpand = 100
)
