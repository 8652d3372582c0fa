package exchange_test

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/satchel/internal/behavior"
	"github.com/cory-johannsen/satchel/internal/exchange"
	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

type fixture struct {
	coin, sword, gem, ore, coal, ingot *inventory.ItemType
}

func newFixture() fixture {
	return fixture{
		coin:  inventory.MustItemType("coin", "Coin", behavior.MustMaxStackSize(100)),
		sword: inventory.MustItemType("sword", "Sword", behavior.MustMaxStackSize(1)),
		gem:   inventory.MustItemType("gem", "Gem"),
		ore:   inventory.MustItemType("ore", "Ore", behavior.MustMaxStackSize(10)),
		coal:  inventory.MustItemType("coal", "Coal").WithTags("fuel"),
		ingot: inventory.MustItemType("ingot", "Ingot"),
	}
}

func stocked(t *testing.T, slots int, stacks ...*inventory.ItemStack) *inventory.Inventory {
	t.Helper()
	inv, err := inventory.New(slots)
	require.NoError(t, err)
	for _, st := range stacks {
		_, err := inv.AddItem(st, nil)
		require.NoError(t, err)
		require.True(t, st.IsEmpty(), "fixture stack did not fit")
	}
	return inv
}

func TestTransaction_ExchangesBothSides(t *testing.T) {
	f := newFixture()
	a := stocked(t, 2, inventory.MustStack(f.coin, 30))
	b := stocked(t, 2, inventory.MustStack(f.sword, 1))

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 20)},
		[]*inventory.ItemStack{inventory.MustStack(f.sword, 1)})
	require.NoError(t, err)
	require.NotEmpty(t, tx.ID)
	require.True(t, tx.Valid())
	require.NoError(t, tx.Execute(nil))

	assert.Equal(t, 10, a.CountType(f.coin))
	assert.Equal(t, 1, a.CountType(f.sword))
	assert.Equal(t, 20, b.CountType(f.coin))
	assert.Zero(t, b.CountType(f.sword))
}

func TestTransaction_InsufficientChangesNothing(t *testing.T) {
	f := newFixture()
	a := stocked(t, 2, inventory.MustStack(f.coin, 5))
	b := stocked(t, 2, inventory.MustStack(f.sword, 1))

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 20)},
		[]*inventory.ItemStack{inventory.MustStack(f.sword, 1)})
	require.NoError(t, err)
	assert.False(t, tx.Valid())
	assert.ErrorIs(t, tx.Execute(nil), exchange.ErrInsufficient)
	assert.Equal(t, 5, a.CountType(f.coin))
	assert.Equal(t, 1, b.CountType(f.sword))
}

func TestTransaction_DeniedRemovalRefundsOtherSide(t *testing.T) {
	f := newFixture()
	a := stocked(t, 2, inventory.MustStack(f.coin, 30))
	b := stocked(t, 2, inventory.MustStack(f.sword, 1))
	b.Hooks.RemoveItem.Insert(func(*inventory.Removal, any) hook.QueryResult {
		return hook.Deny
	}, 0)

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 20)},
		[]*inventory.ItemStack{inventory.MustStack(f.sword, 1)})
	require.NoError(t, err)
	require.ErrorIs(t, tx.Execute(nil), exchange.ErrInsufficient)
	assert.Equal(t, 30, a.CountType(f.coin))
	assert.Equal(t, 1, b.CountType(f.sword))
}

func TestTransaction_PanickingHookIsReportedAndRefunded(t *testing.T) {
	f := newFixture()
	a := stocked(t, 2, inventory.MustStack(f.coin, 30))
	b := stocked(t, 2, inventory.MustStack(f.sword, 1), inventory.MustStack(f.gem, 2))
	b.Hooks.RemoveItem.Insert(func(r *inventory.Removal, _ any) hook.QueryResult {
		if r.Slot.ItemType() == f.gem {
			panic(errors.New("gem hook"))
		}
		return hook.Allow
	}, 0)

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 20)},
		[]*inventory.ItemStack{inventory.MustStack(f.sword, 1), inventory.MustStack(f.gem, 2)})
	require.NoError(t, err)
	err = tx.Execute(nil)

	var fault *exchange.FaultError
	require.ErrorAs(t, err, &fault)
	assert.EqualError(t, errors.Unwrap(err), "gem hook")
	assert.Equal(t, 30, a.CountType(f.coin))
	assert.Equal(t, 1, b.CountType(f.sword))
	assert.Equal(t, 2, b.CountType(f.gem))
}

func TestTransaction_ReportsOverflow(t *testing.T) {
	f := newFixture()
	a := stocked(t, 2, inventory.MustStack(f.coin, 5), inventory.MustStack(f.gem, 1))
	b := stocked(t, 1)
	// a refuses gems from now on, b has room for only one stack.
	a.Hooks.CanAddItem.Insert(func(_ *inventory.Inventory, trial *inventory.ItemStack, _ any) hook.QueryResult {
		if trial.Type == f.gem {
			return hook.Deny
		}
		return hook.Allow
	}, 0)

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 5), inventory.MustStack(f.gem, 1)}, nil)
	require.NoError(t, err)
	err = tx.Execute(nil)

	var overflow *exchange.OverflowError
	require.ErrorAs(t, err, &overflow)
	require.Len(t, overflow.Stacks, 1)
	assert.Equal(t, "1xgem", overflow.Stacks[0].String())
	assert.Equal(t, 5, b.CountType(f.coin))
}

func TestNewTransaction_MergesDuplicatesAndValidates(t *testing.T) {
	f := newFixture()
	a := stocked(t, 1, inventory.MustStack(f.coin, 5))
	b := stocked(t, 1)

	tx, err := exchange.NewTransaction(a, b,
		[]*inventory.ItemStack{inventory.MustStack(f.coin, 3), inventory.MustStack(f.coin, 3)}, nil)
	require.NoError(t, err)
	require.Len(t, tx.FromA, 1)
	assert.Equal(t, 6, tx.FromA[0].Quantity())
	assert.False(t, tx.Valid())

	_, err = exchange.NewTransaction(a, a, nil, nil)
	assert.ErrorIs(t, err, exchange.ErrInvalid)
	_, err = exchange.NewTransaction(a, b, []*inventory.ItemStack{inventory.MustStack(f.coin, 0)}, nil)
	assert.ErrorIs(t, err, exchange.ErrInvalid)
}

func smelting(t *testing.T, f fixture, propagate bool) *exchange.Recipe {
	t.Helper()
	r, err := exchange.NewRecipe("smelt",
		[]exchange.Ingredient{
			exchange.TypeIngredient{Type: f.ore, Quantity: 1},
			exchange.FilterIngredient{Name: "fuel", Match: inventory.ByTag("fuel"), Quantity: 1},
			exchange.TypeIngredient{Type: f.ore, Quantity: 1},
		},
		[]*inventory.ItemStack{inventory.MustStack(f.ingot, 1)},
		propagate)
	require.NoError(t, err)
	return r
}

func TestRecipe_MergesDuplicateIngredients(t *testing.T) {
	r := smelting(t, newFixture(), false)
	require.Len(t, r.Ingredients, 2)
	assert.Equal(t, 2, r.Ingredients[0].Count())
	assert.Equal(t, "1x<fuel>", r.Ingredients[1].String())
}

func TestRecipe_CraftConsumesAndProduces(t *testing.T) {
	f := newFixture()
	r := smelting(t, f, false)
	inv := stocked(t, 4, inventory.MustStack(f.ore, 5), inventory.MustStack(f.coal, 3))

	assert.True(t, r.CanCraft(inv, 2))
	assert.False(t, r.CanCraft(inv, 3))
	require.NoError(t, r.Craft(inv, 2, nil))
	assert.Equal(t, 1, inv.CountType(f.ore))
	assert.Equal(t, 1, inv.CountType(f.coal))
	assert.Equal(t, 2, inv.CountType(f.ingot))

	assert.ErrorIs(t, r.Craft(inv, 1, nil), exchange.ErrInsufficient)
	assert.ErrorIs(t, r.Craft(inv, 0, nil), exchange.ErrInvalid)
}

func TestRecipe_RejectsOverflowingMultiplier(t *testing.T) {
	f := newFixture()
	r, err := exchange.NewRecipe("smelt",
		[]exchange.Ingredient{exchange.TypeIngredient{Type: f.ore, Quantity: 3}},
		[]*inventory.ItemStack{inventory.MustStack(f.ingot, 1)},
		false)
	require.NoError(t, err)
	inv := stocked(t, 4, inventory.MustStack(f.ore, 2))

	// 3 * n wraps to 2.
	n := 2 * (math.MaxInt/3 + 1)
	assert.False(t, r.CanCraft(inv, n))
	assert.ErrorIs(t, r.Craft(inv, n, nil), exchange.ErrInvalid)
	assert.False(t, r.CanCraft(inv, math.MaxInt))
	assert.ErrorIs(t, r.Craft(inv, math.MaxInt, nil), exchange.ErrInvalid)
	assert.Equal(t, 2, inv.CountType(f.ore))
	assert.Zero(t, inv.CountType(f.ingot))
}

func TestRecipe_RejectsOverflowingOutput(t *testing.T) {
	f := newFixture()
	r, err := exchange.NewRecipe("transmute",
		[]exchange.Ingredient{exchange.TypeIngredient{Type: f.gem, Quantity: 1}},
		[]*inventory.ItemStack{inventory.MustStack(f.ingot, 4)},
		false)
	require.NoError(t, err)
	n := math.MaxInt/4 + 1
	inv := stocked(t, 1, inventory.MustStack(f.gem, n))

	assert.False(t, r.CanCraft(inv, n))
	assert.ErrorIs(t, r.Craft(inv, n, nil), exchange.ErrInvalid)
	assert.Equal(t, n, inv.CountType(f.gem))
	assert.Zero(t, inv.CountType(f.ingot))
}

func TestRecipe_FailedRemovalRollsBack(t *testing.T) {
	f := newFixture()
	r := smelting(t, f, false)
	inv := stocked(t, 4, inventory.MustStack(f.ore, 2), inventory.MustStack(f.coal, 1))
	inv.Hooks.RemoveItem.Insert(func(rm *inventory.Removal, _ any) hook.QueryResult {
		if rm.Slot.ItemType() == f.coal {
			return hook.Deny
		}
		return hook.Allow
	}, 0)

	require.True(t, r.CanCraft(inv, 1))
	require.ErrorIs(t, r.Craft(inv, 1, nil), exchange.ErrInsufficient)
	assert.Equal(t, 2, inv.CountType(f.ore))
	assert.Equal(t, 1, inv.CountType(f.coal))
	assert.Zero(t, inv.CountType(f.ingot))
}

func TestRecipe_PropagatesInstanceProperties(t *testing.T) {
	f := newFixture()
	r := smelting(t, f, true)
	inv := stocked(t, 4,
		inventory.MustStack(f.ore, 2, &behavior.Temperature{Celsius: 900}),
		inventory.MustStack(f.coal, 1))

	require.NoError(t, r.Craft(inv, 1, nil))
	slots := inv.Find(inventory.ByType(f.ingot))
	require.Len(t, slots, 1)
	temp, ok := inventory.InstancePropertyOf[*behavior.Temperature](slots[0].Stack())
	require.True(t, ok)
	assert.Equal(t, 900, temp.Celsius)
}

func TestNewRecipe_Validation(t *testing.T) {
	f := newFixture()
	_, err := exchange.NewRecipe("none", nil, []*inventory.ItemStack{inventory.MustStack(f.ingot, 1)}, false)
	assert.ErrorIs(t, err, exchange.ErrInvalid)
	_, err = exchange.NewRecipe("zero",
		[]exchange.Ingredient{exchange.TypeIngredient{Type: f.ore, Quantity: 0}},
		[]*inventory.ItemStack{inventory.MustStack(f.ingot, 1)}, false)
	assert.ErrorIs(t, err, exchange.ErrInvalid)
}

func shop(t *testing.T, f fixture) *inventory.Inventory {
	t.Helper()
	m, err := behavior.NewMarket(f.coin, decimal.RequireFromString("1.5"), decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	s, err := inventory.New(4, inventory.WithProperties(m))
	require.NoError(t, err)
	return s
}

func TestBuyAndSell(t *testing.T) {
	f := newFixture()
	price, err := behavior.NewPrice(decimal.NewFromInt(10))
	require.NoError(t, err)
	axe := inventory.MustItemType("axe", "Axe", price)

	market := shop(t, f)
	_, err = market.Add(axe, 2, nil)
	require.NoError(t, err)
	buyer := stocked(t, 3, inventory.MustStack(f.coin, 40))

	require.NoError(t, exchange.Buy(buyer, market, inventory.MustStack(axe, 1), nil))
	assert.Equal(t, 25, buyer.CountType(f.coin))
	assert.Equal(t, 1, buyer.CountType(axe))
	assert.Equal(t, 15, market.CountType(f.coin))

	require.NoError(t, exchange.Sell(buyer, market, inventory.MustStack(axe, 1), nil))
	assert.Equal(t, 30, buyer.CountType(f.coin))
	assert.Equal(t, 2, market.CountType(axe))

	assert.ErrorIs(t, exchange.Buy(buyer, market, inventory.MustStack(f.gem, 1), nil), exchange.ErrUnpriced)
	assert.ErrorIs(t, exchange.Buy(buyer, buyer, inventory.MustStack(axe, 1), nil), exchange.ErrNotMarket)
}
