package scenario

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/behavior"
	"github.com/cory-johannsen/satchel/internal/content"
	"github.com/cory-johannsen/satchel/internal/exchange"
	"github.com/cory-johannsen/satchel/internal/inventory"
	"github.com/cory-johannsen/satchel/internal/metrics"
	"github.com/cory-johannsen/satchel/internal/scripting"
)

var (
	// ErrRejected reports an operation refused by the inventory's hooks.
	ErrRejected = errors.New("scenario: operation rejected")
	// ErrExpectation reports a step whose outcome differs from what the
	// scenario expects.
	ErrExpectation = errors.New("scenario: expectation failed")
	// ErrUnknown reports a reference to an undeclared inventory, item or
	// recipe.
	ErrUnknown = errors.New("scenario: unknown reference")
	// ErrNoStore reports a save or restore without a configured Store.
	ErrNoStore = errors.New("scenario: no store configured")
)

// DefaultCause is passed to hooks by steps that name no cause.
const DefaultCause = "scenario"

// Store persists inventories between runs.
type Store interface {
	Save(ctx context.Context, inv *inventory.Inventory) error
	Restore(ctx context.Context, id string, opts ...inventory.Option) (*inventory.Inventory, error)
}

// StepResult records the outcome of one step.
type StepResult struct {
	Index  int
	Name   string
	Op     string
	Detail string
	// Err is the operation's own error; a step with Fail set passes when Err
	// is non-nil.
	Err error
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used by the runner and its inventories.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRules enables rule and slot_rule declarations evaluated by m.
func WithRules(m *scripting.Manager) Option {
	return func(r *Runner) { r.rules = m }
}

// WithRecorder observes every declared inventory with rec.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithStore enables save steps and restore declarations.
func WithStore(s Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithMaxRetries bounds the add and sort retry loops of every inventory.
func WithMaxRetries(n int) Option {
	return func(r *Runner) { r.maxRetries = n }
}

// Runner executes scenarios against a content registry.
type Runner struct {
	reg        *content.Registry
	logger     *zap.Logger
	rules      *scripting.Manager
	recorder   *metrics.Recorder
	store      Store
	maxRetries int

	invs  map[string]*inventory.Inventory
	order []string
	stops []func()
}

// NewRunner returns a Runner resolving items and recipes through reg.
//
// Precondition: reg must be non-nil.
func NewRunner(reg *content.Registry, opts ...Option) *Runner {
	r := &Runner{
		reg:    reg,
		logger: zap.NewNop(),
		invs:   make(map[string]*inventory.Inventory),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Inventory returns the declared inventory id.
func (r *Runner) Inventory(id string) (*inventory.Inventory, bool) {
	inv, ok := r.invs[id]
	return inv, ok
}

// Inventories returns the declared inventories in declaration order.
func (r *Runner) Inventories() []*inventory.Inventory {
	out := make([]*inventory.Inventory, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.invs[id])
	}
	return out
}

// Close detaches the metrics observers.
func (r *Runner) Close() {
	for _, stop := range r.stops {
		stop()
	}
	r.stops = nil
}

// Run declares sc's inventories and executes its steps in order. It stops at
// the first step whose outcome contradicts the step's Fail flag and returns
// the results so far with an error wrapping ErrExpectation.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	for _, d := range sc.Inventories {
		if err := r.declare(ctx, d); err != nil {
			return nil, fmt.Errorf("scenario %q: inventory %q: %w", sc.Name, d.ID, err)
		}
	}

	results := make([]StepResult, 0, len(sc.Steps))
	for i := range sc.Steps {
		step := &sc.Steps[i]
		res := StepResult{Index: i, Name: step.Name, Op: step.Op()}
		res.Detail, res.Err = r.exec(ctx, step)
		results = append(results, res)

		log := r.logger.With(
			zap.Int("step", i),
			zap.String("op", res.Op),
			zap.String("detail", res.Detail),
		)
		switch {
		case step.Fail && res.Err == nil:
			log.Warn("step succeeded but was expected to fail")
			return results, fmt.Errorf("%w: step %d (%s) succeeded", ErrExpectation, i, res.Op)
		case !step.Fail && res.Err != nil:
			log.Warn("step failed", zap.Error(res.Err))
			return results, fmt.Errorf("%w: step %d (%s): %w", ErrExpectation, i, res.Op, res.Err)
		default:
			log.Debug("step done", zap.NamedError("outcome", res.Err))
		}
	}
	return results, nil
}

func (r *Runner) declare(ctx context.Context, d InventoryDef) error {
	if _, dup := r.invs[d.ID]; dup {
		return errors.New("already declared")
	}
	opts := []inventory.Option{inventory.WithLogger(r.logger)}
	if r.maxRetries > 0 {
		opts = append(opts, inventory.WithMaxRetries(r.maxRetries))
	}

	var inv *inventory.Inventory
	if d.Restore {
		if r.store == nil {
			return ErrNoStore
		}
		restored, err := r.store.Restore(ctx, d.ID, opts...)
		if err != nil {
			return err
		}
		inv = restored
	} else {
		inv = inventory.Build(append(opts, inventory.WithID(d.ID))...)
		for range d.Slots {
			inv.AppendSlot()
		}
	}

	if err := r.attachSlotProperties(inv, d); err != nil {
		return err
	}
	if err := r.attachInventoryProperties(inv, d); err != nil {
		return err
	}
	if err := inv.Setup(); err != nil {
		return err
	}
	if r.recorder != nil {
		r.stops = append(r.stops, r.recorder.Observe(inv))
	}
	for _, c := range d.Contents {
		t, err := r.item(c.Item)
		if err != nil {
			return err
		}
		left, err := inv.Add(t, c.Quantity, DefaultCause)
		if err != nil {
			return err
		}
		if !left.IsEmpty() {
			return fmt.Errorf("contents: %s did not fit", left)
		}
	}

	r.invs[d.ID] = inv
	r.order = append(r.order, d.ID)
	return nil
}

func (r *Runner) attachSlotProperties(inv *inventory.Inventory, d InventoryDef) error {
	for _, f := range d.Filters {
		s := inv.GetSlot(f.Slot)
		if s == nil {
			return fmt.Errorf("%w: filter slot %d", ErrUnknown, f.Slot)
		}
		match := inventory.ByTag(f.Tag)
		if f.Item != "" {
			t, err := r.item(f.Item)
			if err != nil {
				return err
			}
			match = inventory.ByType(t)
		}
		if err := s.AddProperty(behavior.NewFilterSlotContents(match)); err != nil {
			return err
		}
	}
	for _, sr := range d.SlotRules {
		if r.rules == nil {
			return fmt.Errorf("slot rule %s.%s: no rule manager", sr.Set, sr.Func)
		}
		s := inv.GetSlot(sr.Slot)
		if s == nil {
			return fmt.Errorf("%w: slot rule slot %d", ErrUnknown, sr.Slot)
		}
		if err := s.AddProperty(scripting.NewSlotRule(r.rules, sr.Set, sr.Func)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) attachInventoryProperties(inv *inventory.Inventory, d InventoryDef) error {
	if d.AutoExpand {
		if err := inv.AddProperty(behavior.NewAutoExpand()); err != nil {
			return err
		}
	}
	if d.Market != nil {
		m, err := r.market(d.Market)
		if err != nil {
			return err
		}
		if err := inv.AddProperty(m); err != nil {
			return err
		}
	}
	for _, rule := range d.Rules {
		if r.rules == nil {
			return fmt.Errorf("rule %s.%s: no rule manager", rule.Set, rule.Func)
		}
		if err := inv.AddProperty(scripting.NewInventoryRule(r.rules, rule.Set, rule.Func)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) market(d *MarketDef) (*behavior.Market, error) {
	currency, err := r.item(d.Currency)
	if err != nil {
		return nil, err
	}
	markup, markdown := decimal.NewFromInt(1), decimal.NewFromInt(1)
	if d.Markup != "" {
		if markup, err = decimal.NewFromString(d.Markup); err != nil {
			return nil, fmt.Errorf("market markup: %w", err)
		}
	}
	if d.Markdown != "" {
		if markdown, err = decimal.NewFromString(d.Markdown); err != nil {
			return nil, fmt.Errorf("market markdown: %w", err)
		}
	}
	return behavior.NewMarket(currency, markup, markdown)
}

func (r *Runner) item(id string) (*inventory.ItemType, error) {
	t, ok := r.reg.Item(id)
	if !ok {
		return nil, fmt.Errorf("%w: item %q", ErrUnknown, id)
	}
	return t, nil
}

func (r *Runner) inventory(id string) (*inventory.Inventory, error) {
	inv, ok := r.invs[id]
	if !ok {
		return nil, fmt.Errorf("%w: inventory %q", ErrUnknown, id)
	}
	return inv, nil
}

func (r *Runner) stacks(defs []content.StackDef) ([]*inventory.ItemStack, error) {
	out := make([]*inventory.ItemStack, 0, len(defs))
	for _, d := range defs {
		st, err := r.reg.Stack(d.Item, d.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnknown, err)
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *Runner) exec(ctx context.Context, s *Step) (string, error) {
	cause := s.Cause
	if cause == "" {
		cause = DefaultCause
	}
	switch {
	case s.Add != nil:
		return r.add(s.Add, cause)
	case s.Remove != nil:
		return r.remove(s.Remove, cause)
	case s.Sort != nil:
		return r.sort(s.Sort, cause)
	case s.Swap != nil:
		return r.swap(s.Swap, cause)
	case s.Craft != nil:
		return r.craft(s.Craft, cause)
	case s.Buy != nil:
		return r.trade(s.Buy, cause, exchange.Buy)
	case s.Sell != nil:
		return r.trade(s.Sell, cause, exchange.Sell)
	case s.Trade != nil:
		return r.exchange(s.Trade, cause)
	case s.Save != nil:
		return r.save(ctx, s.Save)
	case s.Check != nil:
		return r.check(s.Check)
	}
	return "", errors.New("no operation")
}

func (r *Runner) add(s *AddStep, cause string) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	t, err := r.item(s.Item)
	if err != nil {
		return "", err
	}
	left, err := inv.Add(t, s.Quantity, cause)
	if err != nil {
		return "", err
	}
	detail := fmt.Sprintf("added %d/%d %s", s.Quantity-left.Quantity(), s.Quantity, t.ID)
	if s.Leftover != nil && left.Quantity() != *s.Leftover {
		return detail, fmt.Errorf("leftover %d, want %d", left.Quantity(), *s.Leftover)
	}
	if s.Leftover == nil && left.Quantity() == s.Quantity {
		return detail, fmt.Errorf("%w: nothing added", ErrRejected)
	}
	return detail, nil
}

func (r *Runner) remove(s *RemoveStep, cause string) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	filter, label := inventory.ByTag(s.Tag), "<"+s.Tag+">"
	if s.Item != "" {
		t, err := r.item(s.Item)
		if err != nil {
			return "", err
		}
		filter, label = inventory.ByType(t), t.ID
	}
	if _, ok := inv.TryRemove(filter, s.Quantity, cause); !ok {
		return "", fmt.Errorf("%w: remove %dx%s", ErrRejected, s.Quantity, label)
	}
	return fmt.Sprintf("removed %dx%s", s.Quantity, label), nil
}

func (r *Runner) sort(s *SortStep, cause string) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	var order inventory.Comparator = inventory.ByName
	switch s.By {
	case "id":
		order = inventory.ByID
	case "quantity":
		order = inventory.ThenBy(inventory.ByQuantityDesc, inventory.ByName)
	}
	if err := inv.Sort(order, cause); err != nil {
		return "", err
	}
	return "sorted by " + cmp.Or(s.By, "name"), nil
}

func (r *Runner) swap(s *SwapStep, cause string) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	other := inv
	if s.Other != "" {
		if other, err = r.inventory(s.Other); err != nil {
			return "", err
		}
	}
	a, b := inv.GetSlot(s.A), other.GetSlot(s.B)
	if a == nil || b == nil {
		return "", fmt.Errorf("%w: swap slots %d and %d", ErrUnknown, s.A, s.B)
	}
	if !inventory.SwapContents(a, b, cause) {
		return "", fmt.Errorf("%w: swap %s and %s", ErrRejected, a, b)
	}
	return fmt.Sprintf("swapped %s and %s", a, b), nil
}

func (r *Runner) craft(s *CraftStep, cause string) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	rec, ok := r.reg.Recipe(s.Recipe)
	if !ok {
		return "", fmt.Errorf("%w: recipe %q", ErrUnknown, s.Recipe)
	}
	times := max(s.Times, 1)
	if err := rec.Craft(inv, times, cause); err != nil {
		return "", err
	}
	return fmt.Sprintf("crafted %s x%d", rec.Name, times), nil
}

func (r *Runner) trade(s *MarketStep, cause string, fn func(a, shop *inventory.Inventory, goods *inventory.ItemStack, cause any) error) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	shop, err := r.inventory(s.Shop)
	if err != nil {
		return "", err
	}
	goods, err := r.reg.Stack(s.Item, s.Quantity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnknown, err)
	}
	if err := fn(inv, shop, goods, cause); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s with %s", goods, shop.ID()), nil
}

func (r *Runner) exchange(s *TradeStep, cause string) (string, error) {
	a, err := r.inventory(s.A)
	if err != nil {
		return "", err
	}
	b, err := r.inventory(s.B)
	if err != nil {
		return "", err
	}
	give, err := r.stacks(s.Give)
	if err != nil {
		return "", err
	}
	take, err := r.stacks(s.Take)
	if err != nil {
		return "", err
	}
	tx, err := exchange.NewTransaction(a, b, give, take)
	if err != nil {
		return "", err
	}
	if err := tx.Execute(cause); err != nil {
		return "", err
	}
	return "transaction " + tx.ID, nil
}

func (r *Runner) save(ctx context.Context, s *SaveStep) (string, error) {
	if r.store == nil {
		return "", ErrNoStore
	}
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	if err := r.store.Save(ctx, inv); err != nil {
		return "", err
	}
	return "saved " + inv.ID(), nil
}

func (r *Runner) check(s *CheckStep) (string, error) {
	inv, err := r.inventory(s.Inventory)
	if err != nil {
		return "", err
	}
	var problems []string
	for _, id := range slices.Sorted(maps.Keys(s.Counts)) {
		t, err := r.item(id)
		if err != nil {
			return "", err
		}
		if got, want := inv.CountType(t), s.Counts[id]; got != want {
			problems = append(problems, fmt.Sprintf("count of %s is %d, want %d", id, got, want))
		}
	}
	if s.SlotCount != nil && inv.SlotCount() != *s.SlotCount {
		problems = append(problems, fmt.Sprintf("slot count is %d, want %d", inv.SlotCount(), *s.SlotCount))
	}
	if s.Slots != nil {
		if got := Layout(inv); !slices.Equal(got, s.Slots) {
			problems = append(problems, fmt.Sprintf("slots are %v, want %v", got, s.Slots))
		}
	}
	if len(problems) > 0 {
		return "", fmt.Errorf("%s: %s", inv.ID(), strings.Join(problems, "; "))
	}
	return "checked " + inv.ID(), nil
}

// Layout lists each slot's contents of inv as "NxID" or "empty".
func Layout(inv *inventory.Inventory) []string {
	out := make([]string, 0, inv.SlotCount())
	for _, s := range inv.Slots() {
		out = append(out, s.Stack().String())
	}
	return out
}
