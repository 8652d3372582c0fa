package inventory_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/satchel/internal/behavior"
	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

func newInv(t *testing.T, slots int, opts ...inventory.Option) *inventory.Inventory {
	t.Helper()
	inv, err := inventory.New(slots, opts...)
	require.NoError(t, err)
	return inv
}

func plainType(id string) *inventory.ItemType {
	return inventory.MustItemType(id, id)
}

func limitedType(id string, limit int) *inventory.ItemType {
	return inventory.MustItemType(id, id, behavior.MustMaxStackSize(limit))
}

func quantities(inv *inventory.Inventory) []int {
	out := make([]int, 0, inv.SlotCount())
	for _, s := range inv.Slots() {
		out = append(out, s.Quantity())
	}
	return out
}

func TestNew_StartsSetUpWithEmptySlots(t *testing.T) {
	inv := newInv(t, 3)
	assert.True(t, inv.IsSetUp())
	assert.Equal(t, 3, inv.SlotCount())
	assert.Equal(t, 3, inv.EmptySlots())
	assert.NotEmpty(t, inv.ID())
	for id, s := range inv.Slots() {
		assert.Equal(t, id, s.ID())
		assert.Same(t, inv, s.Inventory())
	}
}

func TestNewStack_RejectsNegativeQuantity(t *testing.T) {
	_, err := inventory.NewStack(plainType("ore"), -1)
	require.ErrorIs(t, err, inventory.ErrNegativeQuantity)

	st := inventory.MustStack(plainType("ore"), 2)
	require.ErrorIs(t, st.SetQuantity(-3), inventory.ErrNegativeQuantity)
	assert.Equal(t, 2, st.Quantity())
}

func TestAddItem_FillsOccupiedSlotsBeforeEmptyOnes(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 3)
	inv.GetSlot(2).SetStack(inventory.MustStack(ore, 1))

	st := inventory.MustStack(ore, 4)
	added, err := inv.AddItem(st, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, added)
	assert.True(t, st.IsEmpty())
	assert.Equal(t, []int{0, 0, 5}, quantities(inv))
}

func TestAddItem_Errors(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 1)
	_, err := inv.AddItem(inventory.MustStack(ore, 0), nil)
	assert.ErrorIs(t, err, inventory.ErrEmptyStack)

	built := inventory.Build()
	_, err = built.AddItem(inventory.MustStack(ore, 1), nil)
	assert.ErrorIs(t, err, inventory.ErrNotSetUp)
}

func TestAddItem_CanAddItemDenyLeavesStackUntouched(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 2)
	inv.Hooks.CanAddItem.Insert(func(_ *inventory.Inventory, trial *inventory.ItemStack, _ any) hook.QueryResult {
		_ = trial.SetQuantity(0)
		return hook.Deny
	}, 0)

	st := inventory.MustStack(ore, 3)
	added, err := inv.AddItem(st, nil)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 3, st.Quantity())
	assert.Equal(t, 2, inv.EmptySlots())
}

func TestAddItem_RetryLimitIsReportedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inv := newInv(t, 1, inventory.WithLogger(zap.New(core)), inventory.WithMaxRetries(3))
	calls := 0
	inv.Hooks.PostAddItem.Insert(func(*inventory.Inventory, *inventory.ItemStack, any) hook.PostResult {
		calls++
		return hook.Retry
	}, 0)

	added, err := inv.AddItem(inventory.MustStack(plainType("ore"), 2), nil)
	require.ErrorIs(t, err, inventory.ErrRetryLimit)
	assert.Equal(t, 2, added)
	// The first attempt placed both items; the limit counts the four after it.
	assert.Equal(t, 5, calls)
	assert.Equal(t, 1, logs.FilterMessage("add retry limit reached").Len())
}

func TestAddItem_RetriesThatPlaceItemsAreNotLimited(t *testing.T) {
	inv := newInv(t, 0, inventory.WithMaxRetries(2))
	inv.Hooks.PostAddItem.Insert(func(inv *inventory.Inventory, remaining *inventory.ItemStack, _ any) hook.PostResult {
		if remaining.IsEmpty() {
			return hook.Continue
		}
		inv.AppendSlot()
		return hook.Retry
	}, 0)

	added, err := inv.AddItem(inventory.MustStack(limitedType("arrow", 1), 50), nil)
	require.NoError(t, err)
	assert.Equal(t, 50, added)
	assert.Equal(t, 50, inv.SlotCount())
}

func TestAddItem_ConservesItems(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 20).Draw(rt, "limit")
		slots := rapid.IntRange(0, 6).Draw(rt, "slots")
		ore := inventory.MustItemType("ore", "Ore", behavior.MustMaxStackSize(limit))
		inv, err := inventory.New(slots)
		require.NoError(rt, err)

		total := 0
		for i, q := range rapid.SliceOfN(rapid.IntRange(1, 40), 1, 8).Draw(rt, "adds") {
			st := inventory.MustStack(ore, q)
			added, err := inv.AddItem(st, i)
			require.NoError(rt, err)
			assert.Equal(rt, q, added+st.Quantity(), "added plus leftover")
			total += added
		}
		assert.Equal(rt, total, inv.CountType(ore))
		assert.LessOrEqual(rt, total, limit*slots)
		for _, s := range inv.Slots() {
			assert.LessOrEqual(rt, s.Quantity(), limit)
		}
	})
}

func TestCanAdd_DoesNotModifyInventory(t *testing.T) {
	ore := limitedType("ore", 5)
	inv := newInv(t, 2)
	assert.True(t, inv.CanAdd(inventory.MustStack(ore, 10), nil))
	assert.False(t, inv.CanAdd(inventory.MustStack(ore, 11), nil))
	assert.Equal(t, 2, inv.EmptySlots())
	for _, s := range inv.Slots() {
		assert.Zero(t, s.ItemHookCount())
	}
}

func TestTryRemove_IsAllOrNothing(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 3)
	inv.GetSlot(0).SetStack(inventory.MustStack(ore, 2))
	inv.GetSlot(2).SetStack(inventory.MustStack(ore, 3))

	postRemoves := 0
	inv.Hooks.PostRemove.Insert(func(*inventory.Inventory, []*inventory.ItemStack, any) {
		postRemoves++
	}, 0)

	w, ok := inv.TryRemove(inventory.ByType(ore), 6, nil)
	assert.False(t, ok)
	assert.Nil(t, w)
	assert.Equal(t, []int{2, 0, 3}, quantities(inv))
	assert.Zero(t, postRemoves)

	w, ok = inv.TryRemove(inventory.ByType(ore), 4, nil)
	require.True(t, ok)
	assert.Equal(t, 4, w.Total())
	assert.Equal(t, []int{0, 0, 1}, quantities(inv))
	assert.Equal(t, 1, postRemoves)
}

func TestTryRemove_NegativeAndZero(t *testing.T) {
	inv := newInv(t, 1)
	_, ok := inv.TryRemove(inventory.Any(), -1, nil)
	assert.False(t, ok)
	w, ok := inv.TryRemove(inventory.Any(), 0, nil)
	assert.True(t, ok)
	assert.Zero(t, w.Total())
}

func TestTryRemove_HooksLowerProposals(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 2)
	inv.GetSlot(0).SetStack(inventory.MustStack(ore, 5))
	inv.GetSlot(1).SetStack(inventory.MustStack(ore, 5))
	inv.GetSlot(0).Hooks.RemoveItem.Insert(func(r *inventory.Removal, _ any) hook.QueryResult {
		r.Quantity = min(r.Quantity, 1)
		return hook.Allow
	}, 0)

	assert.True(t, inv.Remove(ore, 4, nil))
	assert.Equal(t, []int{4, 2}, quantities(inv))
}

func TestTryRemove_PanickingHookRestoresSlots(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 2)
	inv.GetSlot(0).SetStack(inventory.MustStack(ore, 2))
	inv.GetSlot(1).SetStack(inventory.MustStack(ore, 2))
	inv.GetSlot(1).Hooks.RemoveItem.Insert(func(*inventory.Removal, any) hook.QueryResult {
		panic("boom")
	}, 0)

	assert.PanicsWithValue(t, "boom", func() {
		inv.TryRemove(inventory.ByType(ore), 3, nil)
	})
	assert.Equal(t, []int{2, 2}, quantities(inv))
}

func TestWithdrawal_RefundRestoresOriginalSlots(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 3)
	inv.GetSlot(1).SetStack(inventory.MustStack(ore, 4))

	w, ok := inv.TryRemove(inventory.ByType(ore), 4, nil)
	require.True(t, ok)
	require.Equal(t, 3, inv.EmptySlots())

	assert.Empty(t, w.Refund(nil))
	assert.Equal(t, []int{0, 4, 0}, quantities(inv))
}

func TestRemoveAll_KeepsPartialResults(t *testing.T) {
	ore, gem := plainType("ore"), plainType("gem")
	inv := newInv(t, 3)
	inv.GetSlot(0).SetStack(inventory.MustStack(ore, 2))
	inv.GetSlot(1).SetStack(inventory.MustStack(gem, 1))
	inv.GetSlot(2).SetStack(inventory.MustStack(ore, 3))
	inv.GetSlot(2).Hooks.RemoveItem.Insert(func(*inventory.Removal, any) hook.QueryResult {
		return hook.Deny
	}, 0)

	assert.Equal(t, 2, inv.RemoveAll(inventory.ByType(ore), nil))
	assert.Equal(t, []int{0, 1, 3}, quantities(inv))
}

func TestSort_OrdersContentsAndPutsEmptySlotsLast(t *testing.T) {
	apple, bread, cheese := plainType("apple"), plainType("bread"), plainType("cheese")
	inv := newInv(t, 4)
	inv.GetSlot(0).SetStack(inventory.MustStack(cheese, 1))
	inv.GetSlot(2).SetStack(inventory.MustStack(apple, 2))
	inv.GetSlot(3).SetStack(inventory.MustStack(bread, 3))

	require.NoError(t, inv.Sort(inventory.ByName, nil))
	var got []*inventory.ItemType
	for _, s := range inv.Slots() {
		got = append(got, s.ItemType())
	}
	assert.Equal(t, []*inventory.ItemType{apple, bread, cheese, nil}, got)
}

func TestSort_PinnedSlotsKeepTheirContents(t *testing.T) {
	apple, bread, cheese := plainType("apple"), plainType("bread"), plainType("cheese")
	inv := newInv(t, 3)
	inv.GetSlot(0).SetStack(inventory.MustStack(cheese, 1))
	inv.GetSlot(1).SetStack(inventory.MustStack(bread, 1))
	inv.GetSlot(2).SetStack(inventory.MustStack(apple, 1))
	require.NoError(t, inv.GetSlot(1).AddProperty(behavior.NewFilterSlotContents(inventory.ByType(bread))))

	require.NoError(t, inv.Sort(inventory.ByName, nil))
	assert.Same(t, apple, inv.GetSlot(0).ItemType())
	assert.Same(t, bread, inv.GetSlot(1).ItemType())
	assert.Same(t, cheese, inv.GetSlot(2).ItemType())
}

func TestSort_RetryLimit(t *testing.T) {
	inv := newInv(t, 1, inventory.WithMaxRetries(2))
	inv.Hooks.PostSort.Insert(func(*inventory.Inventory, any) hook.PostResult { return hook.Retry }, 0)
	assert.ErrorIs(t, inv.Sort(inventory.ByID, nil), inventory.ErrRetryLimit)
}

func TestSwapContents_ExchangesStacksAndMovesItemHooks(t *testing.T) {
	ore := limitedType("ore", 5)
	gem := plainType("gem")
	a, b := newInv(t, 1), newInv(t, 1)
	a.GetSlot(0).SetStack(inventory.MustStack(ore, 2))
	b.GetSlot(0).SetStack(inventory.MustStack(gem, 1))
	require.Equal(t, 1, a.GetSlot(0).ItemHookCount())

	var seen int
	b.Hooks.PostSwap.Insert(func(*inventory.Slot, *inventory.Slot, any) { seen++ }, 0)
	require.True(t, inventory.SwapContents(a.GetSlot(0), b.GetSlot(0), nil))

	assert.Same(t, gem, a.GetSlot(0).ItemType())
	assert.Same(t, ore, b.GetSlot(0).ItemType())
	assert.Zero(t, a.GetSlot(0).ItemHookCount())
	assert.Equal(t, 1, b.GetSlot(0).ItemHookCount())
	assert.Equal(t, 1, seen)

	// The stack limit follows the ore into b.
	st := inventory.MustStack(ore, 10)
	added, err := b.AddItem(st, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
}

func TestSwapContents_DenyLeavesBothSlots(t *testing.T) {
	ore, gem := plainType("ore"), plainType("gem")
	inv := newInv(t, 2)
	inv.GetSlot(0).SetStack(inventory.MustStack(ore, 1))
	inv.GetSlot(1).SetStack(inventory.MustStack(gem, 1))
	inv.GetSlot(1).Hooks.CanSwap.Insert(func(*inventory.Slot, *inventory.Slot, any) hook.QueryResult {
		return hook.Deny
	}, 0)
	posted := false
	inv.Hooks.PostSwap.Insert(func(*inventory.Slot, *inventory.Slot, any) { posted = true }, 0)

	assert.False(t, inventory.SwapContents(inv.GetSlot(0), inv.GetSlot(1), nil))
	assert.Same(t, ore, inv.GetSlot(0).ItemType())
	assert.Same(t, gem, inv.GetSlot(1).ItemType())
	assert.False(t, posted)
	assert.False(t, inventory.SwapContents(inv.GetSlot(0), inv.GetSlot(0), nil))
}

func TestMerge_InstancePropertiesMustMatch(t *testing.T) {
	ingot := plainType("ingot")
	hot := inventory.MustStack(ingot, 1, &behavior.Temperature{Celsius: 900})
	cold := inventory.MustStack(ingot, 1, &behavior.Temperature{Celsius: 20})
	alsoHot := inventory.MustStack(ingot, 2, &behavior.Temperature{Celsius: 900})

	assert.False(t, inventory.CanMerge(hot, cold))
	assert.True(t, inventory.CanMerge(hot, alsoHot))
	assert.True(t, inventory.CanMerge(hot, nil))

	moved := inventory.MergeUnchecked(hot, alsoHot)
	assert.Equal(t, 1, moved)
	assert.True(t, hot.IsEmpty())
	assert.Equal(t, 3, alsoHot.Quantity())
	// Merging an empty stack changes nothing.
	assert.Zero(t, inventory.MergeUnchecked(hot, alsoHot))
	assert.Equal(t, 3, alsoHot.Quantity())
}

func TestAddItem_KeepsDifferentInstancesApart(t *testing.T) {
	ingot := plainType("ingot")
	inv := newInv(t, 2)
	_, err := inv.AddItem(inventory.MustStack(ingot, 1, &behavior.Temperature{Celsius: 900}), nil)
	require.NoError(t, err)
	_, err = inv.AddItem(inventory.MustStack(ingot, 1, &behavior.Temperature{Celsius: 20}), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, quantities(inv))

	temp, ok := inventory.InstancePropertyOf[*behavior.Temperature](inv.GetSlot(1).Stack())
	require.True(t, ok)
	assert.Equal(t, 20, temp.Celsius)
}

func TestRemoveSlot(t *testing.T) {
	ore := plainType("ore")
	inv := newInv(t, 3)
	inv.GetSlot(1).SetStack(inventory.MustStack(ore, 2))
	s := inv.GetSlot(1)

	held, err := inv.RemoveSlot(s)
	require.NoError(t, err)
	assert.Equal(t, 2, held.Quantity())
	assert.Nil(t, s.Inventory())
	assert.Equal(t, 2, inv.SlotCount())
	for id, slot := range inv.Slots() {
		assert.Equal(t, id, slot.ID())
	}

	_, err = inv.RemoveSlot(s)
	assert.ErrorIs(t, err, inventory.ErrForeignSlot)
}

func TestBuild_SetupInstallsItemHooks(t *testing.T) {
	ore := limitedType("ore", 3)
	inv := inventory.Build(inventory.WithID("chest"))
	s := inv.AppendSlot()
	s.SetStack(inventory.MustStack(ore, 3))
	assert.Zero(t, s.ItemHookCount())

	require.NoError(t, inv.Setup())
	require.NoError(t, inv.Setup())
	assert.Equal(t, "chest", inv.ID())
	assert.Equal(t, 1, s.ItemHookCount())

	st := inventory.MustStack(ore, 1)
	added, err := inv.AddItem(st, nil)
	require.NoError(t, err)
	assert.Zero(t, added)
}

// refuseOnce fails its first Install.
type refuseOnce struct {
	installs, uninstalls int
}

func (r *refuseOnce) Install(*inventory.Inventory) error {
	r.installs++
	if r.installs == 1 {
		return errors.New("not yet")
	}
	return nil
}

func (r *refuseOnce) Uninstall(*inventory.Inventory) { r.uninstalls++ }

func TestSetup_FailedInstallLeavesNothingHooked(t *testing.T) {
	flaky := &refuseOnce{}
	inv := inventory.Build(inventory.WithProperties(behavior.NewAutoExpand(), flaky))
	s := inv.AppendSlot()
	s.SetStack(inventory.MustStack(limitedType("ore", 3), 1))

	require.Error(t, inv.Setup())
	assert.False(t, inv.IsSetUp())
	assert.Zero(t, inv.Hooks.PostAddItem.Len())
	assert.Zero(t, inv.Hooks.PostRemove.Len())
	assert.Zero(t, s.ItemHookCount())
	assert.Zero(t, flaky.uninstalls)

	require.NoError(t, inv.Setup())
	assert.True(t, inv.IsSetUp())
	assert.Equal(t, 1, inv.Hooks.PostAddItem.Len())
	assert.Equal(t, 1, s.ItemHookCount())
	assert.Equal(t, 2, flaky.installs)
}

func TestSetup_FailedSlotInstallRollsBack(t *testing.T) {
	other := newInv(t, 1)
	f := behavior.NewFilterSlotContents(inventory.Any())
	require.NoError(t, other.GetSlot(0).AddProperty(f))

	inv := inventory.Build(inventory.WithProperties(behavior.NewAutoExpand()))
	first := inv.AppendSlot()
	require.NoError(t, first.AddProperty(behavior.NewFilterSlotContents(inventory.Any())))
	require.NoError(t, inv.AppendSlot().AddProperty(f))

	require.ErrorIs(t, inv.Setup(), inventory.ErrAlreadyBound)
	assert.False(t, inv.IsSetUp())
	assert.Zero(t, inv.Hooks.PostAddItem.Len())
	assert.Zero(t, first.Hooks.CanSlotAccept.Len())

	require.True(t, inventory.RemoveSlotProperty[*behavior.FilterSlotContents](other.GetSlot(0)))
	require.NoError(t, inv.Setup())
	assert.Equal(t, 1, first.Hooks.CanSlotAccept.Len())
}

func TestFilters(t *testing.T) {
	sword := plainType("sword").WithTags("weapon")
	apple := plainType("apple").WithTags("food")
	s, a := inventory.MustStack(sword, 1), inventory.MustStack(apple, 1)

	assert.True(t, inventory.ByTag("weapon")(s))
	assert.False(t, inventory.ByTag("weapon")(a))
	assert.True(t, inventory.AnyOf(inventory.ByType(sword), inventory.ByType(apple))(a))
	assert.False(t, inventory.AllOf(inventory.ByTag("food"), inventory.Not(inventory.ByType(apple)))(a))
	assert.True(t, inventory.Like(s)(inventory.MustStack(sword, 7)))

	cmp := inventory.ThenBy(inventory.ByQuantityDesc, inventory.ByID)
	assert.Negative(t, cmp(inventory.MustStack(apple, 2), inventory.MustStack(sword, 1)))
	assert.Negative(t, cmp(inventory.MustStack(apple, 1), inventory.MustStack(sword, 1)))
}
