package behavior

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// Price is the base value of one item of its type.
type Price struct {
	Value decimal.Decimal

	binding inventory.Binding[*inventory.ItemType]
}

// NewPrice returns a Price of value per item.
//
// Precondition: value >= 0.
func NewPrice(value decimal.Decimal) (*Price, error) {
	if value.IsNegative() {
		return nil, errors.New("behavior: price must not be negative")
	}
	return &Price{Value: value}, nil
}

// Install binds p to t.
func (p *Price) Install(t *inventory.ItemType) error {
	_, err := p.binding.Bind(t)
	return err
}

// AttachSlot installs nothing; prices are read, not enforced.
func (p *Price) AttachSlot(*inventory.Slot, *hook.Registrations) {}

// PriceOf returns the base value of one item of t.
func PriceOf(t *inventory.ItemType) (decimal.Decimal, bool) {
	p, ok := inventory.ItemPropertyOf[*Price](t)
	if !ok {
		return decimal.Zero, false
	}
	return p.Value, true
}

// Market turns an inventory into a shop. It quotes prices in units of
// Currency and refuses goods that have no Price.
type Market struct {
	Currency *inventory.ItemType
	// Markup multiplies the base price when the market sells.
	Markup decimal.Decimal
	// Markdown multiplies the base price when the market buys.
	Markdown decimal.Decimal

	binding inventory.Binding[*inventory.Inventory]
	regs    hook.Registrations
}

// NewMarket returns a Market dealing in currency.
func NewMarket(currency *inventory.ItemType, markup, markdown decimal.Decimal) (*Market, error) {
	if currency == nil {
		return nil, errors.New("behavior: market currency must not be nil")
	}
	if markup.IsNegative() || markdown.IsNegative() {
		return nil, errors.New("behavior: market multipliers must not be negative")
	}
	return &Market{Currency: currency, Markup: markup, Markdown: markdown}, nil
}

// Install hooks CanAddItem of inv to refuse unpriced goods.
func (m *Market) Install(inv *inventory.Inventory) error {
	if _, err := m.binding.Bind(inv); err != nil {
		return err
	}
	if m.regs.Len() > 0 {
		return nil
	}
	m.regs.Add(inv.Hooks.CanAddItem.Insert(func(_ *inventory.Inventory, trial *inventory.ItemStack, _ any) hook.QueryResult {
		if trial.Type == m.Currency {
			return hook.Allow
		}
		if _, ok := PriceOf(trial.Type); !ok {
			return hook.Deny
		}
		return hook.Allow
	}, PriorityFilter))
	return nil
}

// Uninstall removes the hook and releases the inventory.
func (m *Market) Uninstall(*inventory.Inventory) {
	m.regs.RemoveAll()
	m.binding.Unbind()
}

// Ask returns what the market charges for st, rounded up to whole currency
// units.
func (m *Market) Ask(st *inventory.ItemStack) (int, bool) {
	base, ok := PriceOf(st.Type)
	if !ok {
		return 0, false
	}
	total := base.Mul(decimal.NewFromInt(int64(st.Quantity()))).Mul(m.Markup)
	return int(total.Ceil().IntPart()), true
}

// Bid returns what the market pays for st, rounded down to whole currency
// units.
func (m *Market) Bid(st *inventory.ItemStack) (int, bool) {
	base, ok := PriceOf(st.Type)
	if !ok {
		return 0, false
	}
	total := base.Mul(decimal.NewFromInt(int64(st.Quantity()))).Mul(m.Markdown)
	return int(total.Floor().IntPart()), true
}

// Appraise returns the base value of every priced stack in inv.
func Appraise(inv *inventory.Inventory) decimal.Decimal {
	sum := decimal.Zero
	for _, st := range inv.Contents() {
		if p, ok := PriceOf(st.Type); ok {
			sum = sum.Add(p.Mul(decimal.NewFromInt(int64(st.Quantity()))))
		}
	}
	return sum
}
