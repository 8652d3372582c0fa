package exchange

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/satchel/internal/behavior"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

var (
	// ErrNotMarket is returned when the shop inventory has no Market property.
	ErrNotMarket = errors.New("exchange: inventory is not a market")
	// ErrUnpriced is returned for goods without a Price.
	ErrUnpriced = errors.New("exchange: item has no price")
)

func marketOf(shop *inventory.Inventory) (*behavior.Market, error) {
	m, ok := inventory.InventoryPropertyOf[*behavior.Market](shop)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotMarket, shop.ID())
	}
	return m, nil
}

// Buy moves goods from shop to buyer in exchange for the market's asking price
// in currency.
func Buy(buyer, shop *inventory.Inventory, goods *inventory.ItemStack, cause any) error {
	m, err := marketOf(shop)
	if err != nil {
		return err
	}
	cost, ok := m.Ask(goods)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnpriced, goods.Type)
	}
	var pay []*inventory.ItemStack
	if cost > 0 {
		pay = append(pay, inventory.MustStack(m.Currency, cost))
	}
	tx, err := NewTransaction(buyer, shop, pay, []*inventory.ItemStack{goods})
	if err != nil {
		return err
	}
	return tx.Execute(cause)
}

// Sell moves goods from seller to shop in exchange for the market's bid in
// currency.
func Sell(seller, shop *inventory.Inventory, goods *inventory.ItemStack, cause any) error {
	m, err := marketOf(shop)
	if err != nil {
		return err
	}
	paid, ok := m.Bid(goods)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnpriced, goods.Type)
	}
	var pay []*inventory.ItemStack
	if paid > 0 {
		pay = append(pay, inventory.MustStack(m.Currency, paid))
	}
	tx, err := NewTransaction(seller, shop, []*inventory.ItemStack{goods}, pay)
	if err != nil {
		return err
	}
	return tx.Execute(cause)
}
