package stock

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Run status values carried in the meta row.
const (
	StatusInitialized = "INITIALIZED"
	StatusRunning     = "RUNNING"
	StatusSuccess     = "SUCCESS"
	StatusError       = "ERROR"
)

// Meta is the single current-state record for the sync job. Exactly one row
// exists (id = TRUE); it is overwritten at the start and end of every run
// and is the source of truth for "is a run in flight" and "did the last run
// fail".
type Meta struct {
	ID               bool       `gorm:"primaryKey;default:true" json:"-"`
	LastSalesDayDone *time.Time `gorm:"type:date" json:"last_sales_day_done"`
	RunStatus        string     `gorm:"type:text;not null;default:INITIALIZED" json:"run_status"`
	Notes            string     `gorm:"type:text" json:"notes"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName implements the gorm naming override.
func (Meta) TableName() string { return "meta" }

// Stock is the authoritative current on-hand quantity per inventory item.
// Version increments exactly once per observable mutation of the row:
// delta application and override application in the same run bump it twice.
type Stock struct {
	InventoryID string    `gorm:"primaryKey;type:text" json:"inventory_id"`
	OnHand      int       `gorm:"not null;default:0" json:"on_hand"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `gorm:"not null;default:0" json:"version"`
}

func (Stock) TableName() string { return "stock" }

// LedgerEntry is the append-only daily audit row: one per (calendar day,
// inventory item), holding the day's movement totals and the closing
// balance. Rows for finalized days are only ever replaced wholesale by an
// idempotent recompute, never patched in place.
type LedgerEntry struct {
	OrderCreatedDate time.Time `gorm:"primaryKey;type:date;index" json:"order_created_date"`
	InventoryID      string    `gorm:"primaryKey;type:text" json:"inventory_id"`
	PurchasedQty     int       `gorm:"not null;default:0" json:"purchased_qty"`
	SoldQty          int       `gorm:"not null;default:0" json:"sold_qty"`
	OnHandEnd        int       `gorm:"not null" json:"on_hand_end"`
	// CountAnchor records an applied physical count: the balance was pinned
	// to this value at the end of the day and re-anchors on every recompute.
	CountAnchor *int      `gorm:"type:int" json:"count_anchor,omitempty"`
	ComputedAt  time.Time `json:"computed_at"`
}

func (LedgerEntry) TableName() string { return "ledger" }

// Watermark holds, per data source, the highest cursor value already
// incorporated into stock. A record at or below the watermark is never
// reapplied.
type Watermark struct {
	Source string    `gorm:"primaryKey;type:text" json:"source"`
	Cursor time.Time `gorm:"not null" json:"cursor"`
}

func (Watermark) TableName() string { return "watermarks" }

// InventoryItem mirrors the external catalog table. It is owned by the
// catalog service and strictly read-only here: referenced only for the
// referential precondition check, never migrated or written.
type InventoryItem struct {
	ID string `gorm:"primaryKey;type:text" json:"id"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

// RequiredTables lists the tables a run depends on, including the external
// catalog.
var RequiredTables = []string{"meta", "stock", "ledger", "watermarks", "inventory_items"}

// Migrate creates the sync-owned tables and seeds the singleton meta row
// with status INITIALIZED. The inventory catalog is external and untouched.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Meta{}, &Stock{}, &LedgerEntry{}, &Watermark{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	seed := db.Exec(
		`INSERT INTO meta (id, run_status, updated_at) VALUES (TRUE, ?, now())
		 ON CONFLICT (id) DO NOTHING`, StatusInitialized,
	)
	if seed.Error != nil {
		return fmt.Errorf("failed to seed meta row: %w", seed.Error)
	}
	return nil
}
