package stock

import (
	"sort"
	"time"
)

// dayKey identifies one (calendar day, inventory item) ledger cell.
type dayKey struct {
	Day  Date
	Item string
}

// dayTotals holds a day's aggregated movement for one item.
type dayTotals struct {
	Purchased int
	Sold      int
}

// filterPurchases drops records whose day is at or below the purchases
// watermark. It returns the surviving records and the max cursor among them.
func filterPurchases(recs []PurchaseRecord, watermark *time.Time) ([]PurchaseRecord, time.Time) {
	var applied []PurchaseRecord
	var max time.Time
	for _, r := range recs {
		if watermark != nil && !r.Day.After(*watermark) {
			continue
		}
		applied = append(applied, r)
		if r.Day.Time.After(max) {
			max = r.Day.Time
		}
	}
	return applied, max
}

// filterSales drops records whose day is at or below the sales watermark.
func filterSales(recs []SaleRecord, watermark *time.Time) ([]SaleRecord, time.Time) {
	var applied []SaleRecord
	var max time.Time
	for _, r := range recs {
		if watermark != nil && !r.Day.After(*watermark) {
			continue
		}
		applied = append(applied, r)
		if r.Day.Time.After(max) {
			max = r.Day.Time
		}
	}
	return applied, max
}

// filterCounts drops counts whose capture timestamp is at or below the POS
// watermark.
func filterCounts(recs []CountRecord, watermark *time.Time) ([]CountRecord, time.Time) {
	var applied []CountRecord
	var max time.Time
	for _, r := range recs {
		if watermark != nil && !r.CountedAt.After(*watermark) {
			continue
		}
		applied = append(applied, r)
		if r.CountedAt.After(max) {
			max = r.CountedAt
		}
	}
	return applied, max
}

// aggregate groups surviving purchases and sales into per-(day, item)
// totals. Zero-quantity records still claim their ledger cell so the day is
// recorded as touched.
func aggregate(purchases []PurchaseRecord, sales []SaleRecord) map[dayKey]dayTotals {
	totals := make(map[dayKey]dayTotals)
	for _, p := range purchases {
		key := dayKey{Day: p.Day, Item: p.InventoryID}
		t := totals[key]
		t.Purchased += p.Qty
		totals[key] = t
	}
	for _, s := range sales {
		key := dayKey{Day: s.Day, Item: s.InventoryID}
		t := totals[key]
		t.Sold += s.Qty
		totals[key] = t
	}
	return totals
}

// netDeltas sums each item's purchases minus sales across all days of the
// run. Items whose movements cancel out exactly are dropped: only a
// non-zero net delta is an observable stock mutation.
func netDeltas(totals map[dayKey]dayTotals) map[string]int {
	net := make(map[string]int)
	for key, t := range totals {
		net[key.Item] += t.Purchased - t.Sold
	}
	for item, delta := range net {
		if delta == 0 {
			delete(net, item)
		}
	}
	return net
}

// resolveOverrides picks the winning count per item: latest by the strict
// ordering key (CountedAt, Seq). Between two counts with an identical key
// the later one in input order wins.
func resolveOverrides(counts []CountRecord) map[string]CountRecord {
	winners := make(map[string]CountRecord)
	for _, c := range counts {
		cur, ok := winners[c.InventoryID]
		if !ok || !countLess(c, cur) {
			winners[c.InventoryID] = c
		}
	}
	return winners
}

// countLess orders counts by (CountedAt, Seq).
func countLess(a, b CountRecord) bool {
	if !a.CountedAt.Equal(b.CountedAt) {
		return a.CountedAt.Before(b.CountedAt)
	}
	return a.Seq < b.Seq
}

// touchedItems returns the sorted union of items with movement totals and
// items with a winning override.
func touchedItems(totals map[dayKey]dayTotals, overrides map[string]CountRecord) []string {
	set := make(map[string]struct{})
	for key := range totals {
		set[key.Item] = struct{}{}
	}
	for item := range overrides {
		set[item] = struct{}{}
	}
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// window computes the replay bounds: the earliest day touched by any
// applied record and the latest day that must be recomputed. A previously
// finalized day later than the batch (lastDone) extends the window so
// back-dated corrections replay closing balances through the present.
func window(totals map[dayKey]dayTotals, overrides map[string]CountRecord, lastDone *time.Time) (Date, Date, bool) {
	var start, end Date
	seen := false

	touch := func(d Date) {
		if !seen {
			start, end = d, d
			seen = true
			return
		}
		if d.Before(start.Time) {
			start = d
		}
		if d.After(end.Time) {
			end = d
		}
	}

	for key := range totals {
		touch(key.Day)
	}
	for _, c := range overrides {
		touch(DateOf(c.CountedAt))
	}

	if seen && lastDone != nil {
		if done := DateOf(*lastDone); done.After(end.Time) {
			end = done
		}
	}
	return start, end, seen
}
