package storage

import (
	"context"

	"emergence/internal/model"
)

// Store archives run summaries for later inspection. Population state is
// never restored from it.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
	SaveTopEntities(ctx context.Context, runID string, top []model.TopEntityRecord) error
	GetTopEntities(ctx context.Context, runID string) ([]model.TopEntityRecord, bool, error)
}
