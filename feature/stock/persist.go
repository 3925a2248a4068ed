package stock

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// upsertChunkSize bounds the number of rows per bulk statement, mirroring
// the parameter limits of the wire protocol.
const upsertChunkSize = 500

// validationChunkSize bounds the id list per referential lookup.
const validationChunkSize = 1000

// loadStockRows returns the current stock rows for the given items.
func loadStockRows(ctx context.Context, tx *gorm.DB, items []string) (map[string]Stock, error) {
	if len(items) == 0 {
		return map[string]Stock{}, nil
	}
	var rows []Stock
	if err := tx.WithContext(ctx).Where("inventory_id IN ?", items).Find(&rows).Error; err != nil {
		return nil, classifyStoreErr(err)
	}
	out := make(map[string]Stock, len(rows))
	for _, r := range rows {
		out[r.InventoryID] = r
	}
	return out, nil
}

// loadLedgerWindow returns the previously persisted ledger rows for the
// items inside [start, end]. Their totals are merged with the run's own
// aggregates before replay so recomputes stay idempotent.
func loadLedgerWindow(ctx context.Context, tx *gorm.DB, items []string, start, end Date) ([]LedgerEntry, error) {
	if len(items) == 0 {
		return nil, nil
	}
	var rows []LedgerEntry
	err := tx.WithContext(ctx).
		Where("inventory_id IN ? AND order_created_date >= ? AND order_created_date <= ?",
			items, start.Time, end.Time).
		Find(&rows).Error
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return rows, nil
}

// loadOpeningBalances returns, per item, the latest closing balance strictly
// before start.
func loadOpeningBalances(ctx context.Context, tx *gorm.DB, items []string, start Date) (map[string]int, error) {
	if len(items) == 0 {
		return map[string]int{}, nil
	}
	var rows []struct {
		InventoryID string
		OnHandEnd   int
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT DISTINCT ON (inventory_id) inventory_id, on_hand_end
		 FROM ledger
		 WHERE inventory_id IN ? AND order_created_date < ?
		 ORDER BY inventory_id, order_created_date DESC`,
		items, start.Time,
	).Scan(&rows).Error
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.InventoryID] = r.OnHandEnd
	}
	return out, nil
}

// lookupKnownItems returns which of the given ids exist in the external
// inventory catalog. Lookups are chunked to stay under parameter limits.
func lookupKnownItems(ctx context.Context, tx *gorm.DB, ids []string) (map[string]struct{}, error) {
	known := make(map[string]struct{}, len(ids))
	for i := 0; i < len(ids); i += validationChunkSize {
		chunk := ids[i:min(i+validationChunkSize, len(ids))]
		var found []string
		err := tx.WithContext(ctx).
			Model(&InventoryItem{}).
			Where("id IN ?", chunk).
			Pluck("id", &found).Error
		if err != nil {
			return nil, classifyStoreErr(err)
		}
		for _, id := range found {
			known[id] = struct{}{}
		}
	}
	return known, nil
}

// upsertStockRows bulk-upserts one observable stock mutation for the given
// items: inserts start at version 1, updates bump the stored version by
// exactly one regardless of how many records contributed.
func upsertStockRows(ctx context.Context, tx *gorm.DB, items []string, balance map[string]int) error {
	for start := 0; start < len(items); start += upsertChunkSize {
		chunk := items[start:min(start+upsertChunkSize, len(items))]

		var sb strings.Builder
		args := make([]any, 0, len(chunk)*2)
		for i, item := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, now(), 1)")
			args = append(args, item, balance[item])
		}

		err := tx.WithContext(ctx).Exec(
			`INSERT INTO stock (inventory_id, on_hand, updated_at, version)
			 VALUES `+sb.String()+`
			 ON CONFLICT (inventory_id) DO UPDATE
			 SET on_hand = EXCLUDED.on_hand,
			     updated_at = now(),
			     version = stock.version + 1`,
			args...,
		).Error
		if err != nil {
			return classifyStoreErr(err)
		}
	}
	return nil
}

// upsertLedgerRows bulk-upserts the computed ledger cells. Already
// finalized days are replaced wholesale; only computed_at differs on an
// identical recompute.
func upsertLedgerRows(ctx context.Context, tx *gorm.DB, rows []ledgerRow) error {
	for start := 0; start < len(rows); start += upsertChunkSize {
		chunk := rows[start:min(start+upsertChunkSize, len(rows))]

		var sb strings.Builder
		args := make([]any, 0, len(chunk)*6)
		for i, r := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?, ?, now())")
			args = append(args, r.Day.Time, r.Item, r.Purchased, r.Sold, r.OnHandEnd, r.Anchor)
		}

		err := tx.WithContext(ctx).Exec(
			`INSERT INTO ledger (order_created_date, inventory_id, purchased_qty, sold_qty, on_hand_end, count_anchor, computed_at)
			 VALUES `+sb.String()+`
			 ON CONFLICT (order_created_date, inventory_id) DO UPDATE
			 SET purchased_qty = EXCLUDED.purchased_qty,
			     sold_qty = EXCLUDED.sold_qty,
			     on_hand_end = EXCLUDED.on_hand_end,
			     count_anchor = EXCLUDED.count_anchor,
			     computed_at = now()`,
			args...,
		).Error
		if err != nil {
			return classifyStoreErr(err)
		}
	}
	return nil
}
