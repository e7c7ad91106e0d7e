package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/vhr-sample/internal/model"
	"github.com/sells-group/vhr-sample/internal/store"
)

// initLedger opens the design ledger, or returns nil when ledger.path is
// unset.
func initLedger(ctx context.Context) (store.Ledger, error) {
	if cfg.Ledger.Path == "" {
		return nil, nil
	}
	st, err := store.NewSQLite(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// ledgerRun records one command invocation. A nil ledger turns every
// method into a no-op so commands run the same with the ledger disabled.
type ledgerRun struct {
	ledger store.Ledger
	run    *model.Run
}

func startRun(ctx context.Context, stage model.RunStage, seed uint64, params map[string]any) (*ledgerRun, error) {
	l, err := initLedger(ctx)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &ledgerRun{}, nil
	}
	run, err := l.CreateRun(ctx, stage, seed, params)
	if err != nil {
		l.Close() //nolint:errcheck
		return nil, err
	}
	zap.L().Info("ledger run started", zap.String("run_id", run.ID), zap.String("stage", string(stage)))
	return &ledgerRun{ledger: l, run: run}, nil
}

// ID returns the run id, or "" without a ledger.
func (r *ledgerRun) ID() string {
	if r.run == nil {
		return ""
	}
	return r.run.ID
}

func (r *ledgerRun) saveTiles(ctx context.Context, tiles []*model.Tile) error {
	if r.ledger == nil {
		return nil
	}
	return r.ledger.SaveTiles(ctx, r.run.ID, tiles)
}

func (r *ledgerRun) savePoints(ctx context.Context, points []*model.SamplePoint) error {
	if r.ledger == nil {
		return nil
	}
	return r.ledger.SavePoints(ctx, r.run.ID, points)
}

// finish marks the run complete or failed and closes the ledger. It
// returns cause unchanged.
func (r *ledgerRun) finish(ctx context.Context, cause error) error {
	if r.ledger == nil {
		return cause
	}
	defer r.ledger.Close() //nolint:errcheck

	var err error
	if cause != nil {
		err = r.ledger.FailRun(ctx, r.run.ID, cause)
	} else {
		err = r.ledger.CompleteRun(ctx, r.run.ID)
	}
	if err != nil {
		zap.L().Warn("ledger: could not close run", zap.String("run_id", r.run.ID), zap.Error(err))
	}
	return cause
}
