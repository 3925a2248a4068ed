// Package stock implements the inventory reconciliation engine.
//
// The engine merges three independent data sources into a single
// point-in-time stock figure per inventory item:
//
//   - purchase deltas (additive)
//   - sales deltas (subtractive)
//   - POS physical counts (authoritative overrides)
//
// and maintains an append-only daily ledger of movements and closing
// balances alongside.
//
// # Run model
//
// One run is one atomic unit of work over a bounded input batch. A
// Postgres advisory lock plus the meta RUNNING flag serialize runs; all
// mutations (stock, ledger, watermarks, meta finalization) happen inside a
// single transaction. On failure the transaction rolls back wholesale and a
// compensating write records the ERROR outcome in meta.
//
// # Idempotency
//
// Per-source watermarks mark the data already incorporated into stock.
// Records at or below their watermark are dropped on entry, so replaying
// the same batch is a no-op. Watermarks only ever move forward; the
// administrative reset (full reprocess of a source) is the documented
// recovery path for corruption.
//
// # Ordering
//
// Deltas are aggregated per (day, item) and rolled forward day by day from
// each item's opening balance. A POS override anchors the balance to its
// target at the end of its effective day; movements on later days replay on
// top. Back-dated corrections rewrite every downstream closing balance in
// the same run.
package stock
