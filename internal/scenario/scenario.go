// Package scenario replays scripted sequences of inventory operations. A
// scenario declares named inventories and a list of steps (add, remove, sort,
// swap, craft, buy, sell, trade, save, check) that run against them in order.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/satchel/internal/content"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Name        string         `yaml:"name"`
	Inventories []InventoryDef `yaml:"inventories" validate:"dive"`
	Steps       []Step         `yaml:"steps" validate:"dive"`
}

// InventoryDef declares one inventory.
type InventoryDef struct {
	ID    string `yaml:"id" validate:"required,contentid"`
	Slots int    `yaml:"slots" validate:"gte=0"`
	// Restore loads the inventory's saved slots from the store instead of
	// creating Slots empty slots.
	Restore    bool               `yaml:"restore"`
	AutoExpand bool               `yaml:"auto_expand"`
	Market     *MarketDef         `yaml:"market"`
	Rules      []RuleDef          `yaml:"rules" validate:"dive"`
	SlotRules  []SlotRuleDef      `yaml:"slot_rules" validate:"dive"`
	Filters    []FilterDef        `yaml:"filters" validate:"dive"`
	Contents   []content.StackDef `yaml:"contents" validate:"dive"`
}

// MarketDef makes an inventory a shop trading in Currency.
type MarketDef struct {
	Currency string `yaml:"currency" validate:"required"`
	Markup   string `yaml:"markup" validate:"price"`
	Markdown string `yaml:"markdown" validate:"price"`
}

// RuleDef names a Lua function deciding CanAddItem for an inventory.
type RuleDef struct {
	Set  string `yaml:"set" validate:"required"`
	Func string `yaml:"func" validate:"required"`
}

// SlotRuleDef names a Lua function deciding CanSlotAccept for one slot.
type SlotRuleDef struct {
	Slot int    `yaml:"slot" validate:"gte=0"`
	Set  string `yaml:"set" validate:"required"`
	Func string `yaml:"func" validate:"required"`
}

// FilterDef restricts one slot to an item or a tag.
type FilterDef struct {
	Slot int    `yaml:"slot" validate:"gte=0"`
	Item string `yaml:"item" validate:"required_without=Tag,excluded_with=Tag"`
	Tag  string `yaml:"tag"`
}

// Step is one operation. Exactly one of the operation fields is set.
type Step struct {
	Name string `yaml:"name"`
	// Cause is passed to every hook the step runs.
	Cause string `yaml:"cause"`
	// Fail expects the operation to be rejected.
	Fail bool `yaml:"fail"`

	Add    *AddStep    `yaml:"add"`
	Remove *RemoveStep `yaml:"remove"`
	Sort   *SortStep   `yaml:"sort"`
	Swap   *SwapStep   `yaml:"swap"`
	Craft  *CraftStep  `yaml:"craft"`
	Buy    *MarketStep `yaml:"buy"`
	Sell   *MarketStep `yaml:"sell"`
	Trade  *TradeStep  `yaml:"trade"`
	Save   *SaveStep   `yaml:"save"`
	Check  *CheckStep  `yaml:"check"`
}

// AddStep adds Quantity items of Item. Leftover, when set, is the quantity
// expected not to fit.
type AddStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	Item      string `yaml:"item" validate:"required"`
	Quantity  int    `yaml:"quantity" validate:"gte=1"`
	Leftover  *int   `yaml:"leftover"`
}

// RemoveStep removes Quantity items matching Item or Tag, all or nothing.
type RemoveStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	Item      string `yaml:"item" validate:"required_without=Tag,excluded_with=Tag"`
	Tag       string `yaml:"tag"`
	Quantity  int    `yaml:"quantity" validate:"gte=1"`
}

// SortStep sorts an inventory. By is "name" (default), "id" or "quantity".
type SortStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	By        string `yaml:"by" validate:"omitempty,oneof=name id quantity"`
}

// SwapStep swaps slot A of Inventory with slot B of Other, or of Inventory
// when Other is empty.
type SwapStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	A         int    `yaml:"a" validate:"gte=0"`
	Other     string `yaml:"other"`
	B         int    `yaml:"b" validate:"gte=0"`
}

// CraftStep crafts Recipe Times times, at most a million.
type CraftStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	Recipe    string `yaml:"recipe" validate:"required"`
	Times     int    `yaml:"times" validate:"gte=0,lte=1000000"`
}

// MarketStep buys goods from or sells goods to Shop.
type MarketStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
	Shop      string `yaml:"shop" validate:"required"`
	Item      string `yaml:"item" validate:"required"`
	Quantity  int    `yaml:"quantity" validate:"gte=1"`
}

// TradeStep exchanges Give from A for Take from B.
type TradeStep struct {
	A    string             `yaml:"a" validate:"required"`
	B    string             `yaml:"b" validate:"required"`
	Give []content.StackDef `yaml:"give" validate:"dive"`
	Take []content.StackDef `yaml:"take" validate:"dive"`
}

// SaveStep stores an inventory.
type SaveStep struct {
	Inventory string `yaml:"inventory" validate:"required"`
}

// CheckStep asserts an inventory's state. Counts maps item IDs to totals;
// Slots lists every slot's contents as "NxID" or "empty".
type CheckStep struct {
	Inventory string         `yaml:"inventory" validate:"required"`
	Counts    map[string]int `yaml:"counts"`
	Slots     []string       `yaml:"slots"`
	SlotCount *int           `yaml:"slot_count"`
}

// Op returns the name of the step's first operation, or "" when none is set.
func (s *Step) Op() string {
	if ops := s.ops(); len(ops) > 0 {
		return ops[0]
	}
	return ""
}

func (s *Step) ops() []string {
	var ops []string
	for _, op := range []struct {
		name string
		set  bool
	}{
		{"add", s.Add != nil},
		{"remove", s.Remove != nil},
		{"sort", s.Sort != nil},
		{"swap", s.Swap != nil},
		{"craft", s.Craft != nil},
		{"buy", s.Buy != nil},
		{"sell", s.Sell != nil},
		{"trade", s.Trade != nil},
		{"save", s.Save != nil},
		{"check", s.Check != nil},
	} {
		if op.set {
			ops = append(ops, op.name)
		}
	}
	return ops
}

// Validate checks field constraints and that every step names one operation.
func (sc *Scenario) Validate() error {
	var errs []error
	if err := content.Check(sc); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[string]bool)
	for _, d := range sc.Inventories {
		if seen[d.ID] {
			errs = append(errs, fmt.Errorf("inventory %q declared twice", d.ID))
		}
		seen[d.ID] = true
	}
	for i := range sc.Steps {
		if n := len(sc.Steps[i].ops()); n != 1 {
			errs = append(errs, fmt.Errorf("step %d: want exactly one operation, got %d", i, n))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scenario %q: %w", sc.Name, errors.Join(errs...))
	}
	return nil
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadFile reads and parses the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %q: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
