package content

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/satchel/internal/exchange"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// IngredientDef names either an item ID or a tag.
type IngredientDef struct {
	Item     string `yaml:"item" validate:"required_without=Tag,excluded_with=Tag"`
	Tag      string `yaml:"tag"`
	Quantity int    `yaml:"quantity" validate:"gte=1"`
}

// StackDef is a quantity of one item.
type StackDef struct {
	Item     string `yaml:"item" validate:"required"`
	Quantity int    `yaml:"quantity" validate:"gte=1"`
}

// RecipeDef defines a crafting recipe loaded from YAML.
type RecipeDef struct {
	ID                string          `yaml:"id" validate:"required,contentid"`
	Ingredients       []IngredientDef `yaml:"ingredients" validate:"required,min=1,dive"`
	Outputs           []StackDef      `yaml:"outputs" validate:"required,min=1,dive"`
	PropagateInstance bool            `yaml:"propagate_instance"`
}

// Validate checks that the RecipeDef satisfies its invariants.
func (d *RecipeDef) Validate() error {
	if err := Check(d); err != nil {
		return fmt.Errorf("recipe %q: %w", d.ID, err)
	}
	return nil
}

// Build resolves item references against reg and returns the recipe.
func (d *RecipeDef) Build(reg *Registry) (*exchange.Recipe, error) {
	ings := make([]exchange.Ingredient, 0, len(d.Ingredients))
	for _, in := range d.Ingredients {
		if in.Tag != "" {
			ings = append(ings, exchange.FilterIngredient{Name: in.Tag, Match: inventory.ByTag(in.Tag), Quantity: in.Quantity})
			continue
		}
		t, ok := reg.Item(in.Item)
		if !ok {
			return nil, fmt.Errorf("recipe %q: unknown ingredient item %q", d.ID, in.Item)
		}
		ings = append(ings, exchange.TypeIngredient{Type: t, Quantity: in.Quantity})
	}
	outs := make([]*inventory.ItemStack, 0, len(d.Outputs))
	for _, o := range d.Outputs {
		st, err := reg.Stack(o.Item, o.Quantity)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: output: %w", d.ID, err)
		}
		outs = append(outs, st)
	}
	return exchange.NewRecipe(d.ID, ings, outs, d.PropagateInstance)
}

// ParseRecipe decodes and validates one RecipeDef.
func ParseRecipe(data []byte) (*RecipeDef, error) {
	var d RecipeDef
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadRecipes reads every YAML file in dir as a RecipeDef.
func LoadRecipes(dir string) ([]*RecipeDef, error) {
	var out []*RecipeDef
	err := eachYAML(dir, func(path string, data []byte) error {
		d, err := ParseRecipe(data)
		if err != nil {
			return fmt.Errorf("LoadRecipes: %q: %w", path, err)
		}
		out = append(out, d)
		return nil
	})
	return out, err
}
