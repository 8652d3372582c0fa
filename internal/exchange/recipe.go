package exchange

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/inventory"
)

// Ingredient is one input of a Recipe.
type Ingredient interface {
	Filter() inventory.ItemFilter
	Count() int
	String() string
}

// TypeIngredient requires Quantity items of exactly Type.
type TypeIngredient struct {
	Type     *inventory.ItemType
	Quantity int
}

// Filter matches stacks of Type.
func (i TypeIngredient) Filter() inventory.ItemFilter { return inventory.ByType(i.Type) }

// Count returns the required quantity.
func (i TypeIngredient) Count() int { return i.Quantity }

func (i TypeIngredient) String() string { return fmt.Sprintf("%dx%s", i.Quantity, i.Type) }

// FilterIngredient requires Quantity items of any stack matching Match.
type FilterIngredient struct {
	Name     string
	Match    inventory.ItemFilter
	Quantity int
}

// Filter returns Match.
func (i FilterIngredient) Filter() inventory.ItemFilter { return i.Match }

// Count returns the required quantity.
func (i FilterIngredient) Count() int { return i.Quantity }

func (i FilterIngredient) String() string { return fmt.Sprintf("%dx<%s>", i.Quantity, i.Name) }

// Recipe turns Ingredients into Outputs.
type Recipe struct {
	Name        string
	Ingredients []Ingredient
	Outputs     []*inventory.ItemStack
	// PropagateInstance copies the instance properties of the consumed items
	// onto the outputs.
	PropagateInstance bool
}

// NewRecipe validates and returns a recipe. TypeIngredients naming the same
// type are merged.
//
// Postcondition: returns ErrInvalid for a recipe without ingredients or
// outputs, a non-positive ingredient count, or an empty output.
func NewRecipe(name string, ingredients []Ingredient, outputs []*inventory.ItemStack, propagate bool) (*Recipe, error) {
	if len(ingredients) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("%w: recipe %q needs ingredients and outputs", ErrInvalid, name)
	}
	var merged []Ingredient
	byType := map[*inventory.ItemType]int{}
	for _, ing := range ingredients {
		if ing == nil || ing.Count() <= 0 {
			return nil, fmt.Errorf("%w: recipe %q has a non-positive ingredient", ErrInvalid, name)
		}
		ti, ok := ing.(TypeIngredient)
		if !ok {
			merged = append(merged, ing)
			continue
		}
		if ti.Type == nil {
			return nil, fmt.Errorf("%w: recipe %q has an untyped ingredient", ErrInvalid, name)
		}
		if at, seen := byType[ti.Type]; seen {
			prev := merged[at].(TypeIngredient)
			prev.Quantity += ti.Quantity
			merged[at] = prev
			continue
		}
		byType[ti.Type] = len(merged)
		merged = append(merged, ti)
	}
	outs := make([]*inventory.ItemStack, len(outputs))
	for i, o := range outputs {
		if o.IsEmpty() {
			return nil, fmt.Errorf("%w: recipe %q has an empty output", ErrInvalid, name)
		}
		outs[i] = o.Clone()
	}
	return &Recipe{Name: name, Ingredients: merged, Outputs: outs, PropagateInstance: propagate}, nil
}

// CanCraft reports whether crafter holds every ingredient times multiplier.
func (r *Recipe) CanCraft(crafter *inventory.Inventory, multiplier int) bool {
	if !r.scales(multiplier) {
		return false
	}
	for _, ing := range r.Ingredients {
		if crafter.Count(ing.Filter()) < ing.Count()*multiplier {
			return false
		}
	}
	return true
}

// Craft consumes the ingredients times multiplier and deposits the outputs
// times multiplier. A failed removal refunds everything already consumed and
// returns ErrInsufficient or a *FaultError. Outputs that do not fit are
// reported in an *OverflowError.
func (r *Recipe) Craft(crafter *inventory.Inventory, multiplier int, cause any) error {
	if !r.scales(multiplier) {
		return fmt.Errorf("%w: recipe %q multiplier %d", ErrInvalid, r.Name, multiplier)
	}
	if !r.CanCraft(crafter, multiplier) {
		return fmt.Errorf("%w: recipe %q x%d", ErrInsufficient, r.Name, multiplier)
	}
	wants := make([]want, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		wants[i] = want{filter: ing.Filter(), count: ing.Count() * multiplier, label: ing.String()}
	}
	taken, err := withdraw("recipe "+r.Name, crafter, wants, cause)
	if err != nil {
		return err
	}

	var instance []inventory.InstanceProperty
	if r.PropagateInstance {
		instance = propagated(stacksOf(taken))
	}
	outs := make([]*inventory.ItemStack, 0, len(r.Outputs))
	for _, o := range r.Outputs {
		out := o.WithQuantity(o.Quantity() * multiplier)
		for _, p := range instance {
			if err := out.AddInstance(p.Clone()); err != nil {
				crafter.Logger().Debug("instance property not propagated",
					zap.String("recipe", r.Name),
					zap.Error(err),
				)
			}
		}
		outs = append(outs, out)
	}
	if lost := deposit(crafter, nil, outs, cause); len(lost) > 0 {
		return &OverflowError{Op: "recipe " + r.Name, Stacks: lost}
	}
	crafter.Logger().Debug("recipe crafted",
		zap.String("recipe", r.Name),
		zap.String("inventory", crafter.ID()),
		zap.Int("multiplier", multiplier),
	)
	return nil
}

// scales reports whether multiplier is positive and every ingredient and
// output quantity times multiplier fits in an int.
func (r *Recipe) scales(multiplier int) bool {
	if multiplier < 1 {
		return false
	}
	limit := math.MaxInt / multiplier
	for _, ing := range r.Ingredients {
		if ing.Count() > limit {
			return false
		}
	}
	for _, o := range r.Outputs {
		if o.Quantity() > limit {
			return false
		}
	}
	return true
}

// propagated returns the instance properties of the consumed stacks, taking
// the first value seen for each property type.
func propagated(stacks []*inventory.ItemStack) []inventory.InstanceProperty {
	var out []inventory.InstanceProperty
	seen := map[string]bool{}
	for _, st := range stacks {
		for _, p := range st.Instance() {
			key := fmt.Sprintf("%T", p)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
		}
	}
	return out
}
