package content

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/satchel/internal/exchange"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// Registry holds loaded item types and recipes indexed by ID.
type Registry struct {
	items   map[string]*inventory.ItemType
	recipes map[string]*exchange.Recipe
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		items:   make(map[string]*inventory.ItemType),
		recipes: make(map[string]*exchange.Recipe),
	}
}

// RegisterItem adds t to the registry.
//
// Postcondition: Item(t.ID) returns (t, true); returns error if t.ID already registered.
func (r *Registry) RegisterItem(t *inventory.ItemType) error {
	if _, exists := r.items[t.ID]; exists {
		return fmt.Errorf("content: Registry.RegisterItem: item ID %q already registered", t.ID)
	}
	r.items[t.ID] = t
	return nil
}

// Item returns the item type for id and whether it was found.
func (r *Registry) Item(id string) (*inventory.ItemType, bool) {
	t, ok := r.items[id]
	return t, ok
}

// Items returns all item types ordered by ID.
func (r *Registry) Items() []*inventory.ItemType {
	out := make([]*inventory.ItemType, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *inventory.ItemType) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Stack returns a new stack of qty items of the type registered as id.
func (r *Registry) Stack(id string, qty int) (*inventory.ItemStack, error) {
	t, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("content: unknown item %q", id)
	}
	return inventory.NewStack(t, qty)
}

// RegisterRecipe adds rec to the registry.
//
// Postcondition: returns error if rec.Name already registered.
func (r *Registry) RegisterRecipe(rec *exchange.Recipe) error {
	if _, exists := r.recipes[rec.Name]; exists {
		return fmt.Errorf("content: Registry.RegisterRecipe: recipe %q already registered", rec.Name)
	}
	r.recipes[rec.Name] = rec
	return nil
}

// Recipe returns the recipe named id and whether it was found.
func (r *Registry) Recipe(id string) (*exchange.Recipe, bool) {
	rec, ok := r.recipes[id]
	return rec, ok
}

// Recipes returns all recipes ordered by name.
func (r *Registry) Recipes() []*exchange.Recipe {
	out := make([]*exchange.Recipe, 0, len(r.recipes))
	for _, rec := range r.recipes {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *exchange.Recipe) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Load builds a registry from the item definitions in itemDir and, when
// recipeDir is non-empty, the recipes in recipeDir.
func Load(itemDir, recipeDir string) (*Registry, error) {
	defs, err := LoadItems(itemDir)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	for _, d := range defs {
		t, err := d.Build()
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterItem(t); err != nil {
			return nil, err
		}
	}
	if recipeDir == "" {
		return reg, nil
	}
	recs, err := LoadRecipes(recipeDir)
	if err != nil {
		return nil, err
	}
	for _, d := range recs {
		rec, err := d.Build(reg)
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterRecipe(rec); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
