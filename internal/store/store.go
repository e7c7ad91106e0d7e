// Package store persists design runs, their tiles and their sample points
// so a sample can be audited and re-exported after the fact.
package store

import (
	"context"

	"github.com/sells-group/vhr-sample/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  model.RunStage  `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Ledger defines the persistence interface for design runs.
type Ledger interface {
	// Runs
	CreateRun(ctx context.Context, stage model.RunStage, seed uint64, params map[string]any) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Design records
	SaveTiles(ctx context.Context, runID string, tiles []*model.Tile) error
	ListTiles(ctx context.Context, runID string) ([]*model.Tile, error)
	SavePoints(ctx context.Context, runID string, points []*model.SamplePoint) error
	ListPoints(ctx context.Context, runID string) ([]*model.SamplePoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var _ Ledger = (*SQLiteStore)(nil)
