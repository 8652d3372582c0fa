package exchange

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/inventory"
)

// Transaction swaps FromA, taken out of A, for FromB, taken out of B.
type Transaction struct {
	ID    string
	A, B  *inventory.Inventory
	FromA []*inventory.ItemStack
	FromB []*inventory.ItemStack
}

// NewTransaction returns a transaction between a and b. Stacks that could
// merge with each other are combined so each side lists every kind of item
// once.
//
// Postcondition: returns ErrInvalid if either inventory is nil, a and b are the
// same inventory, or a list holds an empty stack.
func NewTransaction(a, b *inventory.Inventory, fromA, fromB []*inventory.ItemStack) (*Transaction, error) {
	if a == nil || b == nil || a == b {
		return nil, fmt.Errorf("%w: transaction needs two distinct inventories", ErrInvalid)
	}
	na, err := normalize(fromA)
	if err != nil {
		return nil, err
	}
	nb, err := normalize(fromB)
	if err != nil {
		return nil, err
	}
	return &Transaction{ID: uuid.NewString(), A: a, B: b, FromA: na, FromB: nb}, nil
}

// normalize clones stacks and merges those that could stack together.
func normalize(stacks []*inventory.ItemStack) ([]*inventory.ItemStack, error) {
	var out []*inventory.ItemStack
	for _, st := range stacks {
		if st.IsEmpty() {
			return nil, fmt.Errorf("%w: empty stack", ErrInvalid)
		}
		merged := false
		for _, cur := range out {
			if cur.Type == st.Type && inventory.SameInstance(cur, st) {
				inventory.MergeUnchecked(st.Clone(), cur)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, st.Clone())
		}
	}
	return out, nil
}

func holds(inv *inventory.Inventory, stacks []*inventory.ItemStack) bool {
	for _, st := range stacks {
		if inv.Count(inventory.Like(st)) < st.Quantity() {
			return false
		}
	}
	return true
}

func wantsOf(stacks []*inventory.ItemStack) []want {
	out := make([]want, len(stacks))
	for i, st := range stacks {
		out[i] = want{filter: inventory.Like(st), count: st.Quantity(), label: st.Type.ID}
	}
	return out
}

// Valid reports whether both sides currently hold what they give.
func (t *Transaction) Valid() bool {
	return holds(t.A, t.FromA) && holds(t.B, t.FromB)
}

// Execute performs the transaction. Both sides are withdrawn before anything
// is deposited; a failed withdrawal refunds everything and returns
// ErrInsufficient or a *FaultError. Items that fit nowhere after the
// withdrawals are reported in an *OverflowError.
func (t *Transaction) Execute(cause any) error {
	if !t.Valid() {
		return fmt.Errorf("%w: transaction %s", ErrInsufficient, t.ID)
	}
	takenA, err := withdraw("transaction "+t.ID, t.A, wantsOf(t.FromA), cause)
	if err != nil {
		return err
	}
	takenB, err := withdraw("transaction "+t.ID, t.B, wantsOf(t.FromB), cause)
	if err != nil {
		refund(t.A, takenA, cause)
		return err
	}
	lost := deposit(t.B, t.A, stacksOf(takenA), cause)
	lost = append(lost, deposit(t.A, t.B, stacksOf(takenB), cause)...)
	t.A.Logger().Debug("transaction executed",
		zap.String("transaction", t.ID),
		zap.String("a", t.A.ID()),
		zap.String("b", t.B.ID()),
	)
	if len(lost) > 0 {
		return &OverflowError{Op: "transaction " + t.ID, Stacks: lost}
	}
	return nil
}
