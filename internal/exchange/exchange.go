// Package exchange implements atomic multi-step exchanges built on inventory
// add and remove: two-sided transactions, crafting recipes and market
// purchases. Every exchange removes first and deposits second; if removal
// fails part-way everything already removed is refunded.
package exchange

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/inventory"
)

var (
	// ErrInsufficient is returned when a side does not hold what an exchange
	// requires. Nothing is modified.
	ErrInsufficient = errors.New("exchange: insufficient items")
	// ErrInvalid is returned for malformed exchanges such as a non-positive
	// multiplier or an empty stack in a list.
	ErrInvalid = errors.New("exchange: invalid exchange")
)

// FaultError wraps a panic raised by a hook while items were being removed.
// By the time it is returned every removed stack has been refunded.
type FaultError struct {
	Op    string
	Value any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("exchange: %s: hook fault: %v", e.Op, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// OverflowError reports stacks that were removed but could be placed neither
// in the destination nor back in their origin.
type OverflowError struct {
	Op     string
	Stacks []*inventory.ItemStack
}

func (e *OverflowError) Error() string {
	parts := make([]string, len(e.Stacks))
	for i, st := range e.Stacks {
		parts[i] = st.String()
	}
	return fmt.Sprintf("exchange: %s: no room for %s", e.Op, strings.Join(parts, ", "))
}

// withdraw removes each wanted stack from inv. On a shortfall or a hook panic
// everything removed so far is refunded before returning.
func withdraw(op string, inv *inventory.Inventory, wants []want, cause any) (ws []*inventory.Withdrawal, err error) {
	defer func() {
		if r := recover(); r != nil {
			refund(inv, ws, cause)
			ws = nil
			err = &FaultError{Op: op, Value: r}
		}
	}()
	for _, w := range wants {
		got, ok := inv.TryRemove(w.filter, w.count, cause)
		if !ok {
			refund(inv, ws, cause)
			return nil, fmt.Errorf("%w: %s needs %d of %s from %s", ErrInsufficient, op, w.count, w.label, inv.ID())
		}
		ws = append(ws, got)
	}
	return ws, nil
}

func refund(inv *inventory.Inventory, ws []*inventory.Withdrawal, cause any) {
	for i := len(ws) - 1; i >= 0; i-- {
		if lost := ws[i].Refund(cause); len(lost) > 0 {
			inv.Logger().Error("exchange refund lost items",
				zap.String("inventory", inv.ID()),
				zap.Int("stacks", len(lost)),
			)
		}
	}
	if len(ws) > 0 {
		inv.Logger().Warn("exchange refunded withdrawals",
			zap.String("inventory", inv.ID()),
			zap.Int("withdrawals", len(ws)),
		)
	}
}

// want is one removal request.
type want struct {
	filter inventory.ItemFilter
	count  int
	label  string
}

// deposit adds stacks to dst. Leftovers are offered back to origin; whatever
// neither takes is returned.
func deposit(dst, origin *inventory.Inventory, stacks []*inventory.ItemStack, cause any) []*inventory.ItemStack {
	var lost []*inventory.ItemStack
	for _, st := range stacks {
		if st.IsEmpty() {
			continue
		}
		if _, err := dst.AddItem(st, cause); err != nil {
			dst.Logger().Warn("exchange deposit failed", zap.String("inventory", dst.ID()), zap.Error(err))
		}
		if st.IsEmpty() {
			continue
		}
		if origin != nil && origin != dst {
			if _, err := origin.AddItem(st, cause); err != nil {
				origin.Logger().Warn("exchange return failed", zap.String("inventory", origin.ID()), zap.Error(err))
			}
		}
		if !st.IsEmpty() {
			lost = append(lost, st)
		}
	}
	return lost
}

func stacksOf(ws []*inventory.Withdrawal) []*inventory.ItemStack {
	var out []*inventory.ItemStack
	for _, w := range ws {
		out = append(out, w.Stacks()...)
	}
	return out
}
