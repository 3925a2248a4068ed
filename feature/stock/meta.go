package stock

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// runLockKey seeds the Postgres advisory lock guarding concurrent runs.
const runLockKey = "stocksync-runlock"

// MetaStore reads and writes the singleton run-state record.
type MetaStore struct {
	db *gorm.DB
}

// NewMetaStore creates a meta store on the given connection handle.
func NewMetaStore(db *gorm.DB) *MetaStore {
	return &MetaStore{db: db}
}

// GetStatus returns the current run metadata.
func (s *MetaStore) GetStatus(ctx context.Context) (*Meta, error) {
	var meta Meta
	err := s.db.WithContext(ctx).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("meta row missing: run migrations first")
	}
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	return &meta, nil
}

// TryLock attempts to take the session-level advisory run lock. The lock
// must be acquired and released on the same pinned connection.
func (s *MetaStore) TryLock(ctx context.Context) (bool, error) {
	var got bool
	err := s.db.WithContext(ctx).
		Raw(`SELECT pg_try_advisory_lock(hashtext(?)) AS got`, runLockKey).
		Scan(&got).Error
	if err != nil {
		return false, classifyStoreErr(err)
	}
	return got, nil
}

// Unlock releases the advisory run lock.
func (s *MetaStore) Unlock(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Exec(`SELECT pg_advisory_unlock(hashtext(?))`, runLockKey).Error
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

// BeginRun marks the run as in flight. It fails fast with a ConflictError
// when another run is already RUNNING, so a crashed run (status stuck at
// RUNNING) has to be inspected and completed by an operator first. Notes
// are overwritten wholesale: a stale failure message must never sit next
// to run_status = RUNNING.
func (s *MetaStore) BeginRun(ctx context.Context, note string) error {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE meta
		 SET run_status = ?, notes = ?, updated_at = now()
		 WHERE id = TRUE AND run_status <> ?`,
		StatusRunning, note, StatusRunning,
	)
	if res.Error != nil {
		return classifyStoreErr(res.Error)
	}
	if res.RowsAffected == 0 {
		meta, err := s.GetStatus(ctx)
		if err != nil {
			return err
		}
		if meta.RunStatus == StatusRunning {
			return &ConflictError{Reason: "another run is in flight (run_status=RUNNING)"}
		}
		return fmt.Errorf("failed to begin run: meta row not updated")
	}
	return nil
}

// CompleteRun records the run outcome. It is also the compensating write
// used after a rollback so operators can always read what happened last.
func (s *MetaStore) CompleteRun(ctx context.Context, success bool, note string) error {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	err := s.db.WithContext(ctx).Exec(
		`UPDATE meta SET run_status = ?, notes = ?, updated_at = now() WHERE id = TRUE`,
		status, note,
	).Error
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}

// FinalizeSuccess closes a successful run: status SUCCESS, the last fully
// processed day advanced, and the run note stored.
func (s *MetaStore) FinalizeSuccess(ctx context.Context, lastDay Date, note string) error {
	err := s.db.WithContext(ctx).Exec(
		`UPDATE meta
		 SET run_status = ?, last_sales_day_done = ?, notes = ?, updated_at = now()
		 WHERE id = TRUE`,
		StatusSuccess, lastDay.Time, note,
	).Error
	if err != nil {
		return classifyStoreErr(err)
	}
	return nil
}
