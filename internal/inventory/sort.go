package inventory

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/hook"
)

// Sort reorders the contents of the sortable slots by cmp, empty slots last.
// Slots for which TrySortSlot denies are pinned and keep their contents.
// PostSort runs after each pass; Retry sorts again.
func (inv *Inventory) Sort(cmp Comparator, cause any) error {
	if !inv.setUp {
		return ErrNotSetUp
	}
	for attempt := 0; ; attempt++ {
		if attempt > inv.maxRetries {
			inv.logger.Warn("sort retry limit reached",
				zap.String("inventory", inv.id),
				zap.Int("limit", inv.maxRetries),
			)
			return fmt.Errorf("%w: Sort after %d attempts", ErrRetryLimit, attempt)
		}
		inv.sortOnce(cmp, cause)
		res := hook.Post(&inv.Hooks.PostSort, func(h PostSortFunc) hook.PostResult {
			return h(inv, cause)
		})
		if res == hook.Continue {
			return nil
		}
		inv.logger.Debug("sort retry", zap.String("inventory", inv.id), zap.Int("attempt", attempt))
	}
}

func (inv *Inventory) sortOnce(cmp Comparator, cause any) {
	var sortable []*Slot
	for _, s := range inv.slots {
		allowed := hook.Query(hook.Merge(&inv.Hooks.TrySortSlot, &s.Hooks.TrySortSlot),
			func(h TrySortSlotFunc) hook.QueryResult { return h(s, cause) })
		if allowed == hook.Allow {
			sortable = append(sortable, s)
		}
	}
	stacks := make([]*ItemStack, len(sortable))
	for i, s := range sortable {
		stacks[i] = s.Stack()
	}
	slices.SortStableFunc(stacks, func(a, b *ItemStack) int {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return 1
		case b == nil:
			return -1
		}
		return cmp(a, b)
	})
	for i, s := range sortable {
		if s.stack != stacks[i] {
			s.replace(stacks[i])
		}
	}
	inv.Validate()
}
