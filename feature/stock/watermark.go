package stock

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// WatermarkStore persists the per-source idempotency cursors.
type WatermarkStore struct {
	db *gorm.DB
}

// NewWatermarkStore creates a watermark store on the given connection handle.
func NewWatermarkStore(db *gorm.DB) *WatermarkStore {
	return &WatermarkStore{db: db}
}

// Get returns the stored cursor for a source, or nil when the source has
// never been processed.
func (s *WatermarkStore) Get(ctx context.Context, source string) (*time.Time, error) {
	var wm Watermark
	err := s.db.WithContext(ctx).First(&wm, "source = ?", source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	cursor := wm.Cursor
	return &cursor, nil
}

// All returns every stored watermark keyed by source.
func (s *WatermarkStore) All(ctx context.Context) (map[string]time.Time, error) {
	var rows []Watermark
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, classifyStoreErr(err)
	}
	out := make(map[string]time.Time, len(rows))
	for _, wm := range rows {
		out[wm.Source] = wm.Cursor
	}
	return out, nil
}

// Advance moves the source's cursor forward. A cursor at or below the
// stored value is a no-op: monotonicity is enforced store-side with
// GREATEST, so out-of-order calls cannot move a watermark backwards.
func (s *WatermarkStore) Advance(ctx context.Context, source string, cursor time.Time) error {
	if !IsValidSource(source) {
		return &ValidationError{Reason: "unknown watermark source " + source}
	}
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO watermarks (source, cursor) VALUES (?, ?)
		 ON CONFLICT (source) DO UPDATE
		 SET cursor = GREATEST(watermarks.cursor, EXCLUDED.cursor)`,
		source, cursor,
	).Error
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

// Reset deletes the source's watermark, forcing a full reprocess of its
// history on the next run. This is the documented recovery path for
// watermark corruption and is refused while a run is in flight. The guard
// lives in the delete statement itself, so a run beginning concurrently
// cannot interleave with the check.
func (s *WatermarkStore) Reset(ctx context.Context, source string) error {
	if !IsValidSource(source) {
		return &ValidationError{Reason: "unknown watermark source " + source}
	}

	res := s.db.WithContext(ctx).Exec(
		`DELETE FROM watermarks
		 WHERE source = ?
		   AND NOT EXISTS (SELECT 1 FROM meta WHERE id = TRUE AND run_status = ?)`,
		source, StatusRunning,
	)
	if res.Error != nil {
		return classifyStoreErr(res.Error)
	}
	if res.RowsAffected == 0 {
		// Either no watermark row exists (already at full-reprocess state)
		// or the guard blocked the delete; disambiguate for the caller.
		meta, err := NewMetaStore(s.db).GetStatus(ctx)
		if err != nil {
			return err
		}
		if meta.RunStatus == StatusRunning {
			return &ConflictError{Reason: "cannot reset watermark while a run is in flight"}
		}
	}
	return nil
}
