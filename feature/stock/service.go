package stock

import (
	"context"
	"fmt"
	"time"

	"stocksync/core/archive"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service wires the reconciliation engine to its collaborators: the run
// archive and the inspection endpoints. Handlers and CLI commands talk to
// the service, never to the engine directly.
type Service struct {
	db       *gorm.DB
	engine   *Engine
	archiver *archive.Archiver
	logger   *zap.Logger
}

// NewService creates the sync service. archiver may be nil when run
// archiving is disabled.
func NewService(db *gorm.DB, cfg Config, archiver *archive.Archiver, logger *zap.Logger) *Service {
	return &Service{
		db:       db,
		engine:   NewEngine(db, cfg, logger),
		archiver: archiver,
		logger:   logger,
	}
}

// Run executes one reconciliation run and, after commit, archives the run
// summary. Archive failures are logged only: the run has already committed
// and must be reported as successful.
func (s *Service) Run(ctx context.Context, batch Batch) (*RunResult, error) {
	result, err := s.engine.RunSync(ctx, batch)
	if err != nil {
		return nil, err
	}

	if s.archiver != nil {
		object := fmt.Sprintf("runs/%s/%s.json", time.Now().UTC().Format("2006-01-02"), result.RunID)
		if err := s.archiver.Store(ctx, object, result); err != nil {
			s.logger.Warn("Failed to archive run summary",
				zap.String("run_id", result.RunID), zap.Error(err))
		}
	}
	return result, nil
}

// StatusReport combines the run metadata with the current watermarks.
type StatusReport struct {
	Meta       Meta                 `json:"meta"`
	Watermarks map[string]time.Time `json:"watermarks"`
}

// Status returns the current run metadata and watermark positions.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	meta, err := NewMetaStore(s.db).GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	watermarks, err := NewWatermarkStore(s.db).All(ctx)
	if err != nil {
		return nil, err
	}
	return &StatusReport{Meta: *meta, Watermarks: watermarks}, nil
}

// ResetWatermark clears a source's cursor, forcing its full history to be
// reprocessed on the next run. Refused while a run is in flight.
func (s *Service) ResetWatermark(ctx context.Context, source string) error {
	return NewWatermarkStore(s.db).Reset(ctx, source)
}
