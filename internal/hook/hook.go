// Package hook provides priority-ordered callback registries ("hook points")
// and the dispatchers that run them.
//
// A Point holds callbacks of one signature. Dispatch visits them in ascending
// priority; ties keep registration order. Query dispatch stops at the first
// Deny, Post dispatch stops at the first Retry.
package hook

import (
	"iter"
	"math"

	"go.uber.org/atomic"
)

// QueryResult is the outcome of an admission hook.
type QueryResult int

const (
	// Allow lets the checked operation proceed.
	Allow QueryResult = iota
	// Deny aborts the checked operation before any mutation.
	Deny
)

// String returns "allow" or "deny".
func (r QueryResult) String() string {
	if r == Deny {
		return "deny"
	}
	return "allow"
}

// PostResult is the outcome of a post-mutation hook.
type PostResult int

const (
	// Continue accepts the outcome of the operation.
	Continue PostResult = iota
	// Retry asks the triggering operation to run again.
	Retry
)

// String returns "continue" or "retry".
func (r PostResult) String() string {
	if r == Retry {
		return "retry"
	}
	return "continue"
}

// FinalizerPriority is the priority used by InsertFinalizer. Hooks registered
// at this priority run after every ordinary hook.
const FinalizerPriority = math.MaxInt

// ID identifies one registration. IDs are unique for the life of the process.
type ID uint64

var nextID = atomic.NewUint64(0)

func newID() ID {
	return ID(nextID.Inc())
}

// Source is anything that can enumerate hooks in ascending priority order.
// Both Point and Aggregate are sources.
type Source[H any] interface {
	All() iter.Seq2[int, H]
}

// Each invokes visit for every hook in src.
func Each[H any](src Source[H], visit func(H)) {
	for _, h := range src.All() {
		visit(h)
	}
}

// Query invokes visit for each hook in src until one returns Deny.
//
// Postcondition: returns Deny iff some hook denied; hooks after it are not run.
func Query[H any](src Source[H], visit func(H) QueryResult) QueryResult {
	for _, h := range src.All() {
		if visit(h) == Deny {
			return Deny
		}
	}
	return Allow
}

// Post invokes visit for each hook in src until one returns Retry.
//
// Postcondition: returns Retry iff some hook asked for it; hooks after it are not run.
func Post[H any](src Source[H], visit func(H) PostResult) PostResult {
	for _, h := range src.All() {
		if visit(h) == Retry {
			return Retry
		}
	}
	return Continue
}
