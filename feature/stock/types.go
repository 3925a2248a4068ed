package stock

import (
	"fmt"
	"strings"
	"time"
)

// Data source identifiers used for watermark bookkeeping.
const (
	SourcePurchases = "purchases"
	SourceSales     = "sales"
	SourcePOSCounts = "pos_counts"
)

// Sources lists all known data sources.
var Sources = []string{SourcePurchases, SourceSales, SourcePOSCounts}

// IsValidSource reports whether name is a known data source.
func IsValidSource(name string) bool {
	switch name {
	case SourcePurchases, SourceSales, SourcePOSCounts:
		return true
	default:
		return false
	}
}

// Date is a calendar day, normalized to midnight UTC so it can be used as a
// map key. It marshals as "2006-01-02".
type Date struct {
	time.Time
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO "2006-01-02" day.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date{d.AddDate(0, 0, 1)}
}

// Prev returns the preceding calendar day.
func (d Date) Prev() Date {
	return Date{d.AddDate(0, 0, -1)}
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PurchaseRecord is one day's received quantity for an item from a vendor
// purchase. Qty zero is accepted and is a no-op.
type PurchaseRecord struct {
	InventoryID string `json:"inventory_id" validate:"required"`
	Qty         int    `json:"qty" validate:"gte=0"`
	Day         Date   `json:"day"`
}

// SaleRecord is one day's sold quantity for an item. Qty zero is accepted
// and is a no-op.
type SaleRecord struct {
	InventoryID string `json:"inventory_id" validate:"required"`
	Qty         int    `json:"qty" validate:"gte=0"`
	Day         Date   `json:"day"`
}

// CountRecord is a physical/POS count. It supersedes computed stock for the
// item: the latest count by (CountedAt, Seq) wins. Seq is a stable sequence
// number breaking ties between counts captured in the same instant.
type CountRecord struct {
	InventoryID  string    `json:"inventory_id" validate:"required"`
	TargetOnHand int       `json:"target_on_hand" validate:"gte=0"`
	CountedAt    time.Time `json:"counted_at"`
	Seq          int       `json:"seq"`
}

// Batch is one bounded input set for a reconciliation run.
type Batch struct {
	Purchases []PurchaseRecord `json:"purchases" validate:"dive"`
	Sales     []SaleRecord     `json:"sales" validate:"dive"`
	POSCounts []CountRecord    `json:"pos_counts" validate:"dive"`
	Note      string           `json:"note"`
}

// Empty reports whether the batch carries no records at all.
func (b Batch) Empty() bool {
	return len(b.Purchases) == 0 && len(b.Sales) == 0 && len(b.POSCounts) == 0
}

// RunResult summarizes one reconciliation run. It is observability output,
// never control flow.
type RunResult struct {
	RunID             string               `json:"run_id"`
	ItemsCreated      int                  `json:"items_created"`
	ItemsUpdated      int                  `json:"items_updated"`
	ItemsOverridden   int                  `json:"items_overridden"`
	LedgerRowsWritten int                  `json:"ledger_rows_written"`
	Watermarks        map[string]time.Time `json:"watermarks"`
	NegativeItems     []string             `json:"negative_items,omitempty"`
	Note              string               `json:"note,omitempty"`
}
