package inventory

import "errors"

var (
	// ErrEmptyStack is returned when an operation requires a non-empty stack.
	ErrEmptyStack = errors.New("inventory: empty stack")
	// ErrNegativeQuantity is returned when a quantity would drop below zero.
	ErrNegativeQuantity = errors.New("inventory: negative quantity")
	// ErrNotSetUp is returned by operations on an inventory whose Setup has not run.
	ErrNotSetUp = errors.New("inventory: not set up")
	// ErrRetryLimit is returned when post hooks keep asking for a retry past
	// the inventory's retry limit.
	ErrRetryLimit = errors.New("inventory: retry limit exceeded")
	// ErrAlreadyBound is returned when a property bound to one owner is
	// installed on another.
	ErrAlreadyBound = errors.New("inventory: property already bound to another owner")
	// ErrForeignSlot is returned when a slot does not belong to the inventory.
	ErrForeignSlot = errors.New("inventory: slot belongs to another inventory")
)
