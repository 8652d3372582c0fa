package inventory

import "github.com/cory-johannsen/satchel/internal/hook"

// SwapContents exchanges the stacks of a and b, which may belong to different
// inventories. CanSwap is consulted on both inventories and both slots; a Deny
// leaves everything untouched and PostSwap does not run.
//
// Postcondition: returns true iff the swap happened.
func SwapContents(a, b *Slot, cause any) bool {
	if a == nil || b == nil || a == b || a.inv == nil || b.inv == nil {
		return false
	}
	if !a.inv.setUp || !b.inv.setUp {
		return false
	}
	pre := hook.Merge(&a.inv.Hooks.CanSwap, &b.inv.Hooks.CanSwap, &a.Hooks.CanSwap, &b.Hooks.CanSwap)
	if hook.Query(pre, func(h CanSwapFunc) hook.QueryResult { return h(a, b, cause) }) == hook.Deny {
		return false
	}
	sa, sb := a.stack, b.stack
	a.replace(sb)
	b.replace(sa)
	post := hook.Merge(&a.inv.Hooks.PostSwap, &b.inv.Hooks.PostSwap, &a.Hooks.PostSwap, &b.Hooks.PostSwap)
	hook.Each(post, func(h PostSwapFunc) { h(a, b, cause) })
	return true
}
