// Package content loads item and recipe definitions from YAML and turns them
// into live item types and recipes.
package content

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/satchel/internal/behavior"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// ItemDef defines an item type loaded from YAML.
type ItemDef struct {
	ID          string   `yaml:"id" validate:"required,contentid"`
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags" validate:"dive,required"`
	// MaxStack limits items per slot; 0 means unlimited.
	MaxStack int `yaml:"max_stack" validate:"gte=0"`
	// Price is the decimal base value of one item; empty means unpriced.
	Price string `yaml:"price" validate:"price"`
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	if err := Check(d); err != nil {
		return fmt.Errorf("item %q: %w", d.ID, err)
	}
	return nil
}

// Build returns the item type described by d with a MaxStackSize and a Price
// property when those are set.
//
// Precondition: d.Validate() returned nil.
func (d *ItemDef) Build() (*inventory.ItemType, error) {
	var props []inventory.ItemProperty
	if d.MaxStack > 0 {
		m, err := behavior.NewMaxStackSize(d.MaxStack)
		if err != nil {
			return nil, err
		}
		props = append(props, m)
	}
	if d.Price != "" {
		v, err := decimal.NewFromString(d.Price)
		if err != nil {
			return nil, fmt.Errorf("item %q: price: %w", d.ID, err)
		}
		p, err := behavior.NewPrice(v)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	t, err := inventory.NewItemType(d.ID, d.Name, props...)
	if err != nil {
		return nil, err
	}
	t.Description = d.Description
	return t.WithTags(d.Tags...), nil
}

// ParseItem decodes and validates one ItemDef.
func ParseItem(data []byte) (*ItemDef, error) {
	var d ItemDef
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir string) ([]*ItemDef, error) {
	var items []*ItemDef
	err := eachYAML(dir, func(path string, data []byte) error {
		d, err := ParseItem(data)
		if err != nil {
			return fmt.Errorf("LoadItems: %q: %w", path, err)
		}
		items = append(items, d)
		return nil
	})
	return items, err
}

// eachYAML calls fn for every YAML file directly inside dir, in name order.
func eachYAML(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read file %q: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}
