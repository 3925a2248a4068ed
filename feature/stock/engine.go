package stock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine merges purchase deltas, sales deltas and POS count overrides into
// the stock table, the daily ledger and the watermarks, all inside one
// transaction per run. It is the sole writer of those tables.
type Engine struct {
	db       *gorm.DB
	cfg      Config
	validate *validator.Validate
	logger   *zap.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(db *gorm.DB, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		db:       db,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// RunSync executes one reconciliation run over the batch.
//
// The run is serialized via a Postgres advisory lock and the meta RUNNING
// flag, then performed inside a single transaction: watermark filtering,
// aggregation, balance replay, stock and ledger writes, watermark advance
// and meta finalization. Any failure rolls the transaction back wholesale;
// the outcome is always recorded in meta, even for failed runs.
func (e *Engine) RunSync(ctx context.Context, batch Batch) (*RunResult, error) {
	runID := uuid.NewString()
	l := e.logger.With(zap.String("run_id", runID))

	result := &RunResult{
		RunID:      runID,
		Watermarks: make(map[string]time.Time),
		Note:       batch.Note,
	}

	// Pin one connection: the session advisory lock must be released on
	// the same session that acquired it.
	err := e.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		meta := NewMetaStore(conn)

		got, err := meta.TryLock(ctx)
		if err != nil {
			return err
		}
		if !got {
			return &ConflictError{Reason: "another run holds the sync lock"}
		}
		defer func() {
			if err := meta.Unlock(ctx); err != nil {
				l.Warn("Failed to release run lock", zap.Error(err))
			}
		}()

		if err := meta.BeginRun(ctx, batch.Note); err != nil {
			return err
		}

		runErr := conn.Transaction(func(tx *gorm.DB) error {
			return e.runLocked(ctx, tx, batch, result, l)
		})
		if runErr != nil {
			// Compensating write: the transaction rolled back, but the
			// outcome must stay readable for operators.
			if cErr := meta.CompleteRun(ctx, false, runErr.Error()); cErr != nil {
				l.Error("Failed to record run failure in meta", zap.Error(cErr))
			}
			return runErr
		}
		return nil
	})
	if err != nil {
		l.Error("Run failed", zap.Error(err))
		return nil, err
	}

	l.Info("Run committed",
		zap.Int("items_created", result.ItemsCreated),
		zap.Int("items_updated", result.ItemsUpdated),
		zap.Int("items_overridden", result.ItemsOverridden),
		zap.Int("ledger_rows", result.LedgerRowsWritten),
	)
	return result, nil
}

// runLocked performs steps 2-11 inside the run transaction.
func (e *Engine) runLocked(ctx context.Context, tx *gorm.DB, batch Batch, result *RunResult, l *zap.Logger) error {
	if err := e.validateShape(batch); err != nil {
		return err
	}
	if err := e.validateReferences(ctx, tx, batch); err != nil {
		return err
	}

	metaStore := NewMetaStore(tx)
	wms := NewWatermarkStore(tx)

	pWM, err := wms.Get(ctx, SourcePurchases)
	if err != nil {
		return err
	}
	sWM, err := wms.Get(ctx, SourceSales)
	if err != nil {
		return err
	}
	cWM, err := wms.Get(ctx, SourcePOSCounts)
	if err != nil {
		return err
	}
	reportWatermark(result, SourcePurchases, pWM)
	reportWatermark(result, SourceSales, sWM)
	reportWatermark(result, SourcePOSCounts, cWM)

	// Records at or below their source watermark were already incorporated
	// in an earlier run and are dropped here.
	purchases, maxPurchase := filterPurchases(batch.Purchases, pWM)
	sales, maxSale := filterSales(batch.Sales, sWM)
	counts, maxCount := filterCounts(batch.POSCounts, cWM)

	totals := aggregate(purchases, sales)
	overrides := resolveOverrides(counts)
	deltas := netDeltas(totals)

	meta, err := metaStore.GetStatus(ctx)
	if err != nil {
		return err
	}

	start, end, touched := window(totals, overrides, meta.LastSalesDayDone)
	if !touched {
		l.Info("No unprocessed records; run is a no-op")
		return metaStore.CompleteRun(ctx, true, noteOrDefault(batch.Note, "no unprocessed records"))
	}

	items := touchedItems(totals, overrides)
	l.Info("Reconciling",
		zap.Int("items", len(items)),
		zap.String("window_start", start.String()),
		zap.String("window_end", end.String()),
	)

	stocks, err := loadStockRows(ctx, tx, items)
	if err != nil {
		return err
	}
	existing, err := loadLedgerWindow(ctx, tx, items, start, end)
	if err != nil {
		return err
	}
	opening, err := loadOpeningBalances(ctx, tx, items, start)
	if err != nil {
		return err
	}

	// Merge previously persisted in-window totals. A cell covered by this
	// run's input replaces the stored column for that source: reprocessing
	// already-applied history (after a watermark reset) must recompute to
	// the same totals, not stack on top of them.
	runPurchased := make(map[dayKey]bool, len(purchases))
	for _, p := range purchases {
		runPurchased[dayKey{Day: p.Day, Item: p.InventoryID}] = true
	}
	runSold := make(map[dayKey]bool, len(sales))
	for _, s := range sales {
		runSold[dayKey{Day: s.Day, Item: s.InventoryID}] = true
	}

	hasHistory := make(map[string]bool, len(opening))
	for item := range opening {
		hasHistory[item] = true
	}
	anchors := make(map[dayKey]int)
	for _, row := range existing {
		key := dayKey{Day: DateOf(row.OrderCreatedDate), Item: row.InventoryID}
		t := totals[key]
		if !runPurchased[key] {
			t.Purchased += row.PurchasedQty
		}
		if !runSold[key] {
			t.Sold += row.SoldQty
		}
		totals[key] = t
		hasHistory[row.InventoryID] = true
		if row.CountAnchor != nil {
			anchors[key] = *row.CountAnchor
		}
	}

	// Counts applied by earlier runs stay authoritative for their day; a
	// newer count for the same cell replaces the stored anchor.
	for item, c := range overrides {
		anchors[dayKey{Day: DateOf(c.CountedAt), Item: item}] = c.TargetOnHand
	}

	// Opening balance: prior ledger close when the item has history,
	// otherwise the current stock figure (pre-ledger state), otherwise 0.
	openBal := make(map[string]int, len(items))
	for _, item := range items {
		if bal, ok := opening[item]; ok {
			openBal[item] = bal
			continue
		}
		if s, ok := stocks[item]; ok && !hasHistory[item] {
			openBal[item] = s.OnHand
		}
	}

	rows, final := replay(replayInput{
		Start:   start,
		End:     end,
		Items:   items,
		Totals:  totals,
		Opening: openBal,
		Anchors: anchors,
	})

	if neg := negativeItems(rows); len(neg) > 0 {
		if !e.cfg.AllowNegative {
			return &InvariantError{Items: neg}
		}
		result.NegativeItems = neg
		l.Warn("Negative on-hand balances accepted by policy", zap.Strings("items", neg))
	}

	deltaItems := sortedKeys(deltas)
	overrideItems := make([]string, 0, len(overrides))
	for item := range overrides {
		overrideItems = append(overrideItems, item)
	}
	sort.Strings(overrideItems)

	for _, item := range deltaItems {
		if _, ok := stocks[item]; !ok {
			result.ItemsCreated++
		} else {
			result.ItemsUpdated++
		}
	}
	for _, item := range overrideItems {
		if _, ok := stocks[item]; !ok {
			if _, alsoDelta := deltas[item]; !alsoDelta {
				result.ItemsCreated++
			}
		}
	}

	// Delta application and override application are distinct observable
	// mutations: an item hit by both gets its version bumped twice.
	if err := upsertStockRows(ctx, tx, deltaItems, final); err != nil {
		return err
	}
	if err := upsertStockRows(ctx, tx, overrideItems, final); err != nil {
		return err
	}

	if err := upsertLedgerRows(ctx, tx, rows); err != nil {
		return err
	}
	result.LedgerRowsWritten = len(rows)
	result.ItemsOverridden = len(overrideItems)

	if err := e.advanceWatermarks(ctx, wms, result, len(purchases), maxPurchase, len(sales), maxSale, len(counts), maxCount); err != nil {
		return err
	}

	note := noteOrDefault(batch.Note, fmt.Sprintf("reconciled %d item(s) over %s..%s", len(items), start, end))
	if len(result.NegativeItems) > 0 {
		note += fmt.Sprintf("; negative balances flagged: %v", result.NegativeItems)
	}
	return metaStore.FinalizeSuccess(ctx, end, note)
}

// advanceWatermarks moves each source's cursor to the max value among the
// records actually applied in this run. Sources without applied records are
// left untouched.
func (e *Engine) advanceWatermarks(ctx context.Context, wms *WatermarkStore, result *RunResult,
	nPurchases int, maxPurchase time.Time, nSales int, maxSale time.Time, nCounts int, maxCount time.Time) error {

	advance := func(source string, n int, cursor time.Time) error {
		if n == 0 {
			return nil
		}
		if err := wms.Advance(ctx, source, cursor); err != nil {
			return err
		}
		if old, ok := result.Watermarks[source]; !ok || cursor.After(old) {
			result.Watermarks[source] = cursor
		}
		return nil
	}

	if err := advance(SourcePurchases, nPurchases, maxPurchase); err != nil {
		return err
	}
	if err := advance(SourceSales, nSales, maxSale); err != nil {
		return err
	}
	return advance(SourcePOSCounts, nCounts, maxCount)
}

// validateShape enforces the basic shape constraints: non-negative
// quantities, non-empty ids and well-formed days.
func (e *Engine) validateShape(batch Batch) error {
	if err := e.validate.Struct(batch); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	for i, p := range batch.Purchases {
		if p.Day.IsZero() {
			return &ValidationError{Reason: fmt.Sprintf("purchases[%d]: missing day", i)}
		}
	}
	for i, s := range batch.Sales {
		if s.Day.IsZero() {
			return &ValidationError{Reason: fmt.Sprintf("sales[%d]: missing day", i)}
		}
	}
	for i, c := range batch.POSCounts {
		if c.CountedAt.IsZero() {
			return &ValidationError{Reason: fmt.Sprintf("pos_counts[%d]: missing counted_at", i)}
		}
	}
	return nil
}

// validateReferences rejects the whole run when any record cites an
// inventory item unknown to the catalog.
func (e *Engine) validateReferences(ctx context.Context, tx *gorm.DB, batch Batch) error {
	set := make(map[string]struct{})
	for _, p := range batch.Purchases {
		set[p.InventoryID] = struct{}{}
	}
	for _, s := range batch.Sales {
		set[s.InventoryID] = struct{}{}
	}
	for _, c := range batch.POSCounts {
		set[c.InventoryID] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	known, err := lookupKnownItems(ctx, tx, ids)
	if err != nil {
		return err
	}

	var unknown []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		shown := unknown
		if len(shown) > 10 {
			shown = shown[:10]
		}
		return &ValidationError{Reason: fmt.Sprintf(
			"%d unknown inventory item(s): %s", len(unknown), strings.Join(shown, ", "))}
	}
	return nil
}

func reportWatermark(result *RunResult, source string, cursor *time.Time) {
	if cursor != nil {
		result.Watermarks[source] = *cursor
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func noteOrDefault(note, fallback string) string {
	if note != "" {
		return note
	}
	return fallback
}
