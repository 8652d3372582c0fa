// Package metrics exports inventory activity as Prometheus metrics. It only
// registers finalizer hooks, so it observes outcomes without influencing them.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cory-johannsen/satchel/internal/hook"
	"github.com/cory-johannsen/satchel/internal/inventory"
)

// Metric names.
const (
	MetricNameItemsOffered  = "satchel_items_offered_total"
	MetricNameItemsLeftover = "satchel_items_leftover_total"
	MetricNameItemsRemoved  = "satchel_items_removed_total"
	MetricNameSorts         = "satchel_sorts_total"
	MetricNameSwaps         = "satchel_swaps_total"
	MetricNameSlots         = "satchel_inventory_slots"
)

// Label names.
const (
	LabelItem      = "item"
	LabelInventory = "inventory"
)

// Recorder owns a set of inventory metrics registered with one Registerer.
type Recorder struct {
	ItemsOffered  *prometheus.CounterVec
	ItemsLeftover *prometheus.CounterVec
	ItemsRemoved  *prometheus.CounterVec
	Sorts         prometheus.Counter
	Swaps         prometheus.Counter
	Slots         *prometheus.GaugeVec

	mu       sync.Mutex
	observed map[*inventory.Inventory]bool
}

// NewRecorder creates the metrics and registers them with reg. A nil reg
// creates unregistered metrics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ItemsOffered: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNameItemsOffered,
			Help: "Items offered to inventories and admitted by CanAddItem",
		}, []string{LabelItem}),
		ItemsLeftover: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNameItemsLeftover,
			Help: "Items that did not fit when an add finished",
		}, []string{LabelItem}),
		ItemsRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNameItemsRemoved,
			Help: "Items removed from inventories",
		}, []string{LabelItem}),
		Sorts: f.NewCounter(prometheus.CounterOpts{
			Name: MetricNameSorts,
			Help: "Completed inventory sorts",
		}),
		Swaps: f.NewCounter(prometheus.CounterOpts{
			Name: MetricNameSwaps,
			Help: "Completed slot swaps",
		}),
		Slots: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: MetricNameSlots,
			Help: "Current slot count per inventory",
		}, []string{LabelInventory}),
		observed: make(map[*inventory.Inventory]bool),
	}
}

func (r *Recorder) observing(inv *inventory.Inventory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed[inv]
}

// Observe hooks inv with finalizers that feed r and returns a function that
// removes them again.
func (r *Recorder) Observe(inv *inventory.Inventory) (stop func()) {
	r.mu.Lock()
	r.observed[inv] = true
	r.mu.Unlock()
	slots := r.Slots.WithLabelValues(inv.ID())
	slots.Set(float64(inv.SlotCount()))

	var regs hook.Registrations
	regs.Add(
		inv.Hooks.CanAddItem.InsertFinalizer(func(_ *inventory.Inventory, trial *inventory.ItemStack, _ any) hook.QueryResult {
			r.ItemsOffered.WithLabelValues(trial.Type.ID).Add(float64(trial.Quantity()))
			return hook.Allow
		}),
		inv.Hooks.PostAddItem.InsertFinalizer(func(inv *inventory.Inventory, remaining *inventory.ItemStack, _ any) hook.PostResult {
			if !remaining.IsEmpty() {
				r.ItemsLeftover.WithLabelValues(remaining.Type.ID).Add(float64(remaining.Quantity()))
			}
			slots.Set(float64(inv.SlotCount()))
			return hook.Continue
		}),
		inv.Hooks.PostRemove.InsertFinalizer(func(inv *inventory.Inventory, removed []*inventory.ItemStack, _ any) {
			for _, st := range removed {
				r.ItemsRemoved.WithLabelValues(st.Type.ID).Add(float64(st.Quantity()))
			}
			slots.Set(float64(inv.SlotCount()))
		}),
		inv.Hooks.PostSort.InsertFinalizer(func(*inventory.Inventory, any) hook.PostResult {
			r.Sorts.Inc()
			return hook.Continue
		}),
		inv.Hooks.PostSwap.InsertFinalizer(func(a, b *inventory.Slot, _ any) {
			// A swap between two observed inventories is counted by a's side.
			if a.Inventory() == inv || !r.observing(a.Inventory()) {
				r.Swaps.Inc()
			}
		}),
	)
	return func() {
		regs.RemoveAll()
		r.mu.Lock()
		delete(r.observed, inv)
		r.mu.Unlock()
	}
}
