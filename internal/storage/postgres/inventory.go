package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cory-johannsen/satchel/internal/inventory"
)

// ErrInventoryNotFound is returned when no snapshot exists for an inventory ID.
var ErrInventoryNotFound = errors.New("inventory not found")

// ItemResolver maps stored item IDs back to item types.
type ItemResolver interface {
	Item(id string) (*inventory.ItemType, bool)
}

// InventoryRepository stores the slot contents of inventories. Only the slot
// count and each slot's item ID and quantity are kept; slot properties,
// inventory properties and instance properties are re-attached by the caller.
type InventoryRepository struct {
	pool  *Pool
	items ItemResolver
}

// NewInventoryRepository creates an InventoryRepository backed by pool that
// resolves item IDs through items.
//
// Precondition: pool and items must be non-nil.
func NewInventoryRepository(pool *Pool, items ItemResolver) *InventoryRepository {
	return &InventoryRepository{pool: pool, items: items}
}

// Save replaces the stored snapshot of inv.
//
// Postcondition: on success Load(inv.ID()) reproduces inv's slot contents.
func (r *InventoryRepository) Save(ctx context.Context, inv *inventory.Inventory) error {
	rows := make([][]any, 0, inv.SlotCount())
	for id, s := range inv.Slots() {
		if s.IsEmpty() {
			continue
		}
		rows = append(rows, []any{inv.ID(), id, s.ItemType().ID, s.Quantity()})
	}

	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO inventories (id, slot_count)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE
			SET slot_count = EXCLUDED.slot_count, saved_at = NOW()`,
			inv.ID(), inv.SlotCount(),
		); err != nil {
			return fmt.Errorf("upserting inventory: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM inventory_slots WHERE inventory_id = $1`, inv.ID()); err != nil {
			return fmt.Errorf("clearing slots: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"inventory_slots"},
			[]string{"inventory_id", "slot_id", "item_id", "quantity"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("copying slots: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving inventory %q: %w", inv.ID(), err)
	}
	r.pool.logger.Debug("inventory saved",
		zap.String("inventory", inv.ID()),
		zap.Int("slots", inv.SlotCount()),
		zap.Int("occupied", len(rows)),
	)
	return nil
}

// Restore rebuilds the inventory stored as id without setting it up, so the
// caller can attach properties first. Call Setup exactly once afterwards.
//
// Postcondition: returns ErrInventoryNotFound when no snapshot exists.
func (r *InventoryRepository) Restore(ctx context.Context, id string, opts ...inventory.Option) (*inventory.Inventory, error) {
	var slotCount int
	err := r.pool.DB().QueryRow(ctx,
		`SELECT slot_count FROM inventories WHERE id = $1`, id,
	).Scan(&slotCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("querying inventory %q: %w", id, err)
	}

	inv := inventory.Build(append(opts, inventory.WithID(id))...)
	for range slotCount {
		inv.AppendSlot()
	}

	rows, err := r.pool.DB().Query(ctx, `
		SELECT slot_id, item_id, quantity
		FROM inventory_slots
		WHERE inventory_id = $1
		ORDER BY slot_id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying slots of %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			slotID   int
			itemID   string
			quantity int
		)
		if err := rows.Scan(&slotID, &itemID, &quantity); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		s := inv.GetSlot(slotID)
		if s == nil {
			return nil, fmt.Errorf("inventory %q: slot %d out of range [0,%d)", id, slotID, slotCount)
		}
		t, ok := r.items.Item(itemID)
		if !ok {
			return nil, fmt.Errorf("inventory %q slot %d: unknown item %q", id, slotID, itemID)
		}
		st, err := inventory.NewStack(t, quantity)
		if err != nil {
			return nil, fmt.Errorf("inventory %q slot %d: %w", id, slotID, err)
		}
		s.SetStack(st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slots of %q: %w", id, err)
	}
	return inv, nil
}

// Load is Restore followed by Setup.
func (r *InventoryRepository) Load(ctx context.Context, id string, opts ...inventory.Option) (*inventory.Inventory, error) {
	inv, err := r.Restore(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	if err := inv.Setup(); err != nil {
		return nil, fmt.Errorf("setting up inventory %q: %w", id, err)
	}
	return inv, nil
}

// Delete removes the snapshot stored as id.
//
// Postcondition: returns ErrInventoryNotFound when nothing was deleted.
func (r *InventoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.DB().Exec(ctx, `DELETE FROM inventories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting inventory %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

// List returns the IDs of all stored inventories in ascending order.
func (r *InventoryRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.DB().Query(ctx, `SELECT id FROM inventories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing inventories: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing inventories: %w", err)
	}
	return ids, nil
}
