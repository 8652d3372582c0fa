package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/satchel/internal/inventory"
	"github.com/cory-johannsen/satchel/internal/scripting"
)

const rules = `
function weapons_only(slot, item, cause)
	return satchel.has_tag(item, "weapon")
end

function at_most_three(slot, item, cause)
	local held = 0
	if slot.item then held = slot.item.quantity end
	return 3 - held
end

function no_gifts(inv, item, cause)
	return cause ~= "gift"
end

function broken(slot, item, cause)
	error("nope")
end

function odd(slot, item, cause)
	return "yes"
end
`

func setup(t *testing.T) *scripting.Manager {
	t.Helper()
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadSource("rules", rules))
	return mgr
}

func TestSlotRule_FiltersByTag(t *testing.T) {
	mgr := setup(t)
	sword := inventory.MustItemType("sword", "Sword").WithTags("weapon")
	apple := inventory.MustItemType("apple", "Apple").WithTags("food")
	inv, err := inventory.New(2)
	require.NoError(t, err)
	require.NoError(t, inv.GetSlot(0).AddProperty(scripting.NewSlotRule(mgr, "rules", "weapons_only")))

	_, err = inv.Add(apple, 1, nil)
	require.NoError(t, err)
	_, err = inv.Add(sword, 1, nil)
	require.NoError(t, err)
	assert.Same(t, sword, inv.GetSlot(0).ItemType())
	assert.Same(t, apple, inv.GetSlot(1).ItemType())
}

func TestSlotRule_NumericResultCapsQuantity(t *testing.T) {
	mgr := setup(t)
	ore := inventory.MustItemType("ore", "Ore")
	inv, err := inventory.New(1)
	require.NoError(t, err)
	require.NoError(t, inv.GetSlot(0).AddProperty(scripting.NewSlotRule(mgr, "rules", "at_most_three")))

	left, err := inv.Add(ore, 2, nil)
	require.NoError(t, err)
	assert.True(t, left.IsEmpty())
	left, err = inv.Add(ore, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, left.Quantity())
	assert.Equal(t, 3, inv.GetSlot(0).Quantity())
}

func TestSlotRule_FailsClosed(t *testing.T) {
	mgr := setup(t)
	ore := inventory.MustItemType("ore", "Ore")
	for _, fn := range []string{"broken", "odd", "undefined"} {
		t.Run(fn, func(t *testing.T) {
			inv, err := inventory.New(1)
			require.NoError(t, err)
			require.NoError(t, inv.GetSlot(0).AddProperty(scripting.NewSlotRule(mgr, "rules", fn)))
			left, err := inv.Add(ore, 1, nil)
			require.NoError(t, err)
			assert.Equal(t, 1, left.Quantity())
		})
	}
}

func TestInventoryRule_SeesCause(t *testing.T) {
	mgr := setup(t)
	ore := inventory.MustItemType("ore", "Ore")
	inv, err := inventory.New(2, inventory.WithProperties(scripting.NewInventoryRule(mgr, "rules", "no_gifts")))
	require.NoError(t, err)

	left, err := inv.Add(ore, 1, "gift")
	require.NoError(t, err)
	assert.Equal(t, 1, left.Quantity())
	left, err = inv.Add(ore, 1, "loot")
	require.NoError(t, err)
	assert.True(t, left.IsEmpty())

	require.True(t, inventory.RemoveInventoryProperty[*scripting.InventoryRule](inv))
	left, err = inv.Add(ore, 1, "gift")
	require.NoError(t, err)
	assert.True(t, left.IsEmpty())
}
