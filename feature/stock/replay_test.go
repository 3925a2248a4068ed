package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayRollsDeltasForward(t *testing.T) {
	d1, d2 := day(t, "2026-03-01"), day(t, "2026-03-02")

	rows, final := replay(replayInput{
		Start: d1,
		End:   d2,
		Items: []string{"a"},
		Totals: map[dayKey]dayTotals{
			{Day: d1, Item: "a"}: {Purchased: 5, Sold: 4},
			{Day: d2, Item: "a"}: {Purchased: 3},
		},
		Opening: map[string]int{"a": 10},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 11, rows[0].OnHandEnd) // 10 + 5 - 4
	assert.Equal(t, 14, rows[1].OnHandEnd) // 11 + 3
	assert.Equal(t, 14, final["a"])
}

func TestReplayAnchorPinsBalance(t *testing.T) {
	d1, d2 := day(t, "2026-03-01"), day(t, "2026-03-02")

	rows, final := replay(replayInput{
		Start: d1,
		End:   d2,
		Items: []string{"b"},
		Totals: map[dayKey]dayTotals{
			{Day: d1, Item: "b"}: {Sold: 2},
			{Day: d2, Item: "b"}: {Sold: 3},
		},
		Opening: map[string]int{"b": 10},
		Anchors: map[dayKey]int{
			{Day: d1, Item: "b"}: 20,
		},
	})

	require.Len(t, rows, 2)
	// A count is final truth for its day regardless of that day's deltas
	assert.Equal(t, 20, rows[0].OnHandEnd)
	require.NotNil(t, rows[0].Anchor)
	assert.Equal(t, 20, *rows[0].Anchor)
	// Later days replay on top of the pinned value
	assert.Equal(t, 17, rows[1].OnHandEnd)
	assert.Nil(t, rows[1].Anchor)
	assert.Equal(t, 17, final["b"])
}

func TestReplayEmitsEveryCellInWindow(t *testing.T) {
	d1, d3 := day(t, "2026-03-01"), day(t, "2026-03-03")

	rows, final := replay(replayInput{
		Start: d1,
		End:   d3,
		Items: []string{"a"},
		Totals: map[dayKey]dayTotals{
			{Day: d1, Item: "a"}: {Sold: 2},
		},
		Opening: map[string]int{"a": 5},
	})

	// A back-dated correction rewrites downstream days even without movement
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].OnHandEnd)
	assert.Equal(t, 3, rows[1].OnHandEnd)
	assert.Equal(t, 3, rows[2].OnHandEnd)
	assert.Equal(t, 3, final["a"])
}

func TestReplayMultipleItemsOrdered(t *testing.T) {
	d1 := day(t, "2026-03-01")

	rows, _ := replay(replayInput{
		Start: d1,
		End:   d1,
		Items: []string{"a", "b"},
		Totals: map[dayKey]dayTotals{
			{Day: d1, Item: "a"}: {Purchased: 1},
			{Day: d1, Item: "b"}: {Purchased: 2},
		},
		Opening: map[string]int{},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Item)
	assert.Equal(t, "b", rows[1].Item)
}

func TestNegativeItems(t *testing.T) {
	d1 := day(t, "2026-03-01")
	rows := []ledgerRow{
		{Day: d1, Item: "c", OnHandEnd: -1},
		{Day: d1, Item: "a", OnHandEnd: 3},
		{Day: d1.Next(), Item: "b", OnHandEnd: -4},
		{Day: d1.Next(), Item: "c", OnHandEnd: -2},
	}
	assert.Equal(t, []string{"b", "c"}, negativeItems(rows))
	assert.Empty(t, negativeItems(nil))
}
