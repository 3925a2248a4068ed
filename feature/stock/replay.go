package stock

import "sort"

// ledgerRow is one computed ledger cell before persistence.
type ledgerRow struct {
	Day       Date
	Item      string
	Purchased int
	Sold      int
	OnHandEnd int
	Anchor    *int
}

// replayInput carries everything the roll-forward needs, fully resolved:
// merged movement totals (this run's aggregates plus previously persisted
// rows inside the window), per-item opening balances as of the day before
// start, and the count anchors in effect per (day, item) cell — both the
// anchors recorded by earlier runs and this run's winning overrides.
type replayInput struct {
	Start   Date
	End     Date
	Items   []string
	Totals  map[dayKey]dayTotals
	Opening map[string]int
	Anchors map[dayKey]int
}

// replay rolls closing balances forward day by day across the window.
//
// For each item the balance starts at its opening value and accumulates the
// day's purchases minus sales. An anchor pins the balance to its target at
// the end of its day; movements on later days replay on top of the pinned
// value, so anchored days survive any number of recomputes. Every
// (day, item) cell in the window is emitted, so back-dated corrections
// rewrite all downstream closing balances.
//
// It returns the ledger rows in (day, item) order and each item's final
// balance at the end of the window.
func replay(in replayInput) ([]ledgerRow, map[string]int) {
	rows := make([]ledgerRow, 0, len(in.Items))
	final := make(map[string]int, len(in.Items))

	onHand := make(map[string]int, len(in.Items))
	for _, item := range in.Items {
		onHand[item] = in.Opening[item]
	}

	for day := in.Start; !day.After(in.End.Time); day = day.Next() {
		for _, item := range in.Items {
			key := dayKey{Day: day, Item: item}
			t := in.Totals[key]
			onHand[item] += t.Purchased - t.Sold

			// A count is final truth for its day, after the day's deltas.
			var anchor *int
			if target, ok := in.Anchors[key]; ok {
				onHand[item] = target
				anchor = &target
			}

			rows = append(rows, ledgerRow{
				Day:       day,
				Item:      item,
				Purchased: t.Purchased,
				Sold:      t.Sold,
				OnHandEnd: onHand[item],
				Anchor:    anchor,
			})
		}
	}

	for _, item := range in.Items {
		final[item] = onHand[item]
	}
	return rows, final
}

// negativeItems returns the sorted items whose balance dips below zero at
// any point of the replay.
func negativeItems(rows []ledgerRow) []string {
	seen := make(map[string]struct{})
	var items []string
	for _, r := range rows {
		if r.OnHandEnd >= 0 {
			continue
		}
		if _, ok := seen[r.Item]; ok {
			continue
		}
		seen[r.Item] = struct{}{}
		items = append(items, r.Item)
	}
	// rows arrive in (day, item) order; normalize to item order
	sort.Strings(items)
	return items
}
