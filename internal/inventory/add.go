package inventory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/hook"
)

// AddItem places as much of stack as the inventory accepts and returns the
// amount placed. stack is modified in place and holds the leftover afterwards.
//
// CanAddItem runs once on a clone; Deny leaves stack untouched. Then the
// remaining items are offered to occupied slots first and empty slots second,
// and PostAddItem sees what is left. A Retry from PostAddItem reruns both
// passes.
//
// Only retries after an attempt that placed nothing count toward the retry
// limit, so a hook that grows the inventory may retry as long as items keep
// landing.
//
// Postcondition: returns ErrEmptyStack for an empty stack, ErrNotSetUp before
// Setup, and ErrRetryLimit when PostAddItem keeps retrying without progress.
func (inv *Inventory) AddItem(stack *ItemStack, cause any) (int, error) {
	if !inv.setUp {
		return 0, ErrNotSetUp
	}
	if stack.IsEmpty() {
		return 0, ErrEmptyStack
	}
	trial := stack.Clone()
	if hook.Query(&inv.Hooks.CanAddItem, func(h CanAddItemFunc) hook.QueryResult {
		return h(inv, trial, cause)
	}) == hook.Deny {
		return 0, nil
	}

	added, stalled := 0, 0
	for attempt := 1; ; attempt++ {
		placed := inv.offer(stack, cause, false)
		if !stack.IsEmpty() {
			placed += inv.offer(stack, cause, true)
		}
		added += placed
		res := hook.Post(&inv.Hooks.PostAddItem, func(h PostAddItemFunc) hook.PostResult {
			return h(inv, stack, cause)
		})
		if res == hook.Continue {
			return added, nil
		}
		if placed > 0 {
			stalled = 0
			continue
		}
		if stalled++; stalled > inv.maxRetries {
			inv.logger.Warn("add retry limit reached",
				zap.String("inventory", inv.id),
				zap.Stringer("remaining", stack),
				zap.Int("limit", inv.maxRetries),
			)
			return added, fmt.Errorf("%w: AddItem after %d attempts", ErrRetryLimit, attempt)
		}
	}
}

// offer runs one pass over the slots, offering stack to the occupied slots or
// to the empty ones.
func (inv *Inventory) offer(stack *ItemStack, cause any, empty bool) int {
	added := 0
	for i := 0; i < len(inv.slots) && !stack.IsEmpty(); i++ {
		s := inv.slots[i]
		if s.IsEmpty() != empty {
			continue
		}
		added += s.TryAccept(stack, cause)
	}
	return added
}

// Add is AddItem for a fresh stack of qty items of t. It returns what could not
// be placed.
func (inv *Inventory) Add(t *ItemType, qty int, cause any) (*ItemStack, error) {
	st, err := NewStack(t, qty)
	if err != nil {
		return nil, err
	}
	if _, err := inv.AddItem(st, cause); err != nil {
		return st, err
	}
	return st, nil
}

// CanAdd reports whether the whole of stack would fit without running post
// hooks: CanAddItem allows it and the slots as they are now accept every item.
// Nothing is modified.
func (inv *Inventory) CanAdd(stack *ItemStack, cause any) bool {
	if !inv.setUp || stack.IsEmpty() {
		return false
	}
	trial := stack.Clone()
	if hook.Query(&inv.Hooks.CanAddItem, func(h CanAddItemFunc) hook.QueryResult {
		return h(inv, trial, cause)
	}) == hook.Deny {
		return false
	}
	need := stack.Quantity()
	for _, s := range inv.slots {
		if need <= 0 {
			break
		}
		if s.IsEmpty() {
			continue
		}
		need -= s.evaluate(stack.WithQuantity(need), cause, false)
	}
	for _, s := range inv.slots {
		if need <= 0 {
			break
		}
		if !s.IsEmpty() {
			continue
		}
		need -= s.evaluate(stack.WithQuantity(need), cause, false)
	}
	return need <= 0
}
