package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestFilterPurchasesWatermark(t *testing.T) {
	recs := []PurchaseRecord{
		{InventoryID: "a", Qty: 5, Day: day(t, "2026-03-01")},
		{InventoryID: "a", Qty: 7, Day: day(t, "2026-03-03")},
		{InventoryID: "b", Qty: 2, Day: day(t, "2026-03-05")},
	}

	// No watermark: everything applies
	applied, max := filterPurchases(recs, nil)
	assert.Len(t, applied, 3)
	assert.Equal(t, day(t, "2026-03-05").Time, max)

	// Watermark at 03-03 drops records at or below it
	wm := day(t, "2026-03-03").Time
	applied, max = filterPurchases(recs, &wm)
	require.Len(t, applied, 1)
	assert.Equal(t, "b", applied[0].InventoryID)
	assert.Equal(t, day(t, "2026-03-05").Time, max)

	// Watermark beyond everything: replay is a no-op
	wm = day(t, "2026-03-10").Time
	applied, max = filterPurchases(recs, &wm)
	assert.Empty(t, applied)
	assert.True(t, max.IsZero())
}

func TestFilterCountsWatermark(t *testing.T) {
	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	recs := []CountRecord{
		{InventoryID: "a", TargetOnHand: 9, CountedAt: at},
		{InventoryID: "b", TargetOnHand: 4, CountedAt: at.Add(time.Hour)},
	}

	wm := at
	applied, max := filterCounts(recs, &wm)
	require.Len(t, applied, 1)
	assert.Equal(t, "b", applied[0].InventoryID)
	assert.Equal(t, at.Add(time.Hour), max)
}

func TestAggregate(t *testing.T) {
	d1 := day(t, "2026-03-01")
	purchases := []PurchaseRecord{
		{InventoryID: "a", Qty: 5, Day: d1},
		{InventoryID: "a", Qty: 3, Day: d1},
		{InventoryID: "a", Qty: 0, Day: day(t, "2026-03-02")},
	}
	sales := []SaleRecord{
		{InventoryID: "a", Qty: 4, Day: d1},
	}

	totals := aggregate(purchases, sales)
	assert.Equal(t, dayTotals{Purchased: 8, Sold: 4}, totals[dayKey{Day: d1, Item: "a"}])

	// Zero-qty record still claims its ledger cell
	_, ok := totals[dayKey{Day: day(t, "2026-03-02"), Item: "a"}]
	assert.True(t, ok)
}

func TestNetDeltasDropsCancellations(t *testing.T) {
	d1, d2 := day(t, "2026-03-01"), day(t, "2026-03-02")
	totals := map[dayKey]dayTotals{
		{Day: d1, Item: "a"}: {Purchased: 5, Sold: 1},
		{Day: d2, Item: "a"}: {Purchased: 0, Sold: 2},
		{Day: d1, Item: "b"}: {Purchased: 3, Sold: 0},
		{Day: d2, Item: "b"}: {Purchased: 0, Sold: 3},
	}

	net := netDeltas(totals)
	assert.Equal(t, map[string]int{"a": 2}, net)
}

func TestResolveOverridesLatestWins(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	counts := []CountRecord{
		{InventoryID: "a", TargetOnHand: 10, CountedAt: t2, Seq: 1},
		{InventoryID: "a", TargetOnHand: 99, CountedAt: t1, Seq: 9},
		{InventoryID: "b", TargetOnHand: 5, CountedAt: t1, Seq: 1},
	}

	winners := resolveOverrides(counts)
	require.Len(t, winners, 2)
	assert.Equal(t, 10, winners["a"].TargetOnHand)
	assert.Equal(t, 5, winners["b"].TargetOnHand)
}

func TestResolveOverridesTieBreak(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Same instant: higher Seq wins
	winners := resolveOverrides([]CountRecord{
		{InventoryID: "a", TargetOnHand: 7, CountedAt: at, Seq: 2},
		{InventoryID: "a", TargetOnHand: 3, CountedAt: at, Seq: 1},
	})
	assert.Equal(t, 7, winners["a"].TargetOnHand)

	// Fully identical ordering key: later input wins
	winners = resolveOverrides([]CountRecord{
		{InventoryID: "a", TargetOnHand: 7, CountedAt: at, Seq: 1},
		{InventoryID: "a", TargetOnHand: 3, CountedAt: at, Seq: 1},
	})
	assert.Equal(t, 3, winners["a"].TargetOnHand)
}

func TestTouchedItems(t *testing.T) {
	totals := map[dayKey]dayTotals{
		{Day: day(t, "2026-03-01"), Item: "b"}: {Purchased: 1},
		{Day: day(t, "2026-03-01"), Item: "c"}: {Sold: 1},
	}
	overrides := map[string]CountRecord{
		"a": {InventoryID: "a"},
		"c": {InventoryID: "c"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, touchedItems(totals, overrides))
}

func TestWindow(t *testing.T) {
	totals := map[dayKey]dayTotals{
		{Day: day(t, "2026-03-03"), Item: "a"}: {Purchased: 1},
		{Day: day(t, "2026-03-05"), Item: "a"}: {Sold: 1},
	}
	overrides := map[string]CountRecord{
		"b": {InventoryID: "b", CountedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}

	start, end, seen := window(totals, overrides, nil)
	require.True(t, seen)
	assert.Equal(t, "2026-03-01", start.String())
	assert.Equal(t, "2026-03-05", end.String())

	// A later finalized day pulls the window forward so back-dated
	// corrections rewrite everything downstream.
	lastDone := day(t, "2026-03-10").Time
	start, end, seen = window(totals, overrides, &lastDone)
	require.True(t, seen)
	assert.Equal(t, "2026-03-01", start.String())
	assert.Equal(t, "2026-03-10", end.String())

	// An earlier finalized day changes nothing
	lastDone = day(t, "2026-03-02").Time
	_, end, _ = window(totals, overrides, &lastDone)
	assert.Equal(t, "2026-03-05", end.String())

	_, _, seen = window(nil, nil, &lastDone)
	assert.False(t, seen)
}
