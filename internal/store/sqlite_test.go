package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/vhr-sample/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

// --- Runs ---

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunStageStratify, math.MaxUint64, map[string]any{
		"method": "neyman",
		"size":   10,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStageStratify, got.Stage)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, uint64(math.MaxUint64), got.Seed)
	assert.Equal(t, "neyman", got.Params["method"])
	assert.Equal(t, 10.0, got.Params["size"])
	assert.Empty(t, got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_CompleteAndFailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ok, err := st.CreateRun(ctx, model.RunStagePrep, 1, nil)
	require.NoError(t, err)
	bad, err := st.CreateRun(ctx, model.RunStageSample, 2, nil)
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, ok.ID))
	require.NoError(t, st.FailRun(ctx, bad.ID, errors.New("stratum 1 too small")))

	got, err := st.GetRun(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Nil(t, got.Params)

	got, err = st.GetRun(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "stratum 1 too small", got.Error)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.CompleteRun(ctx, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found: nope")

	assert.Error(t, st.FailRun(ctx, "nope", nil))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, stage := range []model.RunStage{model.RunStagePrep, model.RunStageStratify, model.RunStageStratify} {
		_, err := st.CreateRun(ctx, stage, 5, nil)
		require.NoError(t, err)
	}
	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	runs, err = st.ListRuns(ctx, RunFilter{Stage: model.RunStageStratify})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	require.NoError(t, st.CompleteRun(ctx, runs[0].ID))
	runs, err = st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

// --- Tiles ---

func TestSQLite_SaveListTiles(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunStageStratify, 42, nil)
	require.NoError(t, err)

	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{
		{{0, 0}, {0, 90}, {90, 90}, {90, 0}, {0, 0}},
		{{30, 30}, {60, 30}, {60, 60}, {30, 60}, {30, 30}},
	})
	tiles := []*model.Tile{
		{
			ID:                7,
			Geometry:          poly,
			Attrs:             map[string]string{"NAME": "north"},
			Measured:          true,
			ChangePixels:      3,
			FootprintPixels:   8,
			ChangeArea:        2700,
			ChangeProportion:  0.375,
			ChangeShare:       0.6,
			Stratum:           model.StratumHigh,
			Selected:          true,
			StratumPopulation: 2,
			InclusionProb1:    0.5,
		},
		{ID: 3},
	}
	require.NoError(t, st.SaveTiles(ctx, run.ID, tiles))

	got, err := st.ListTiles(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 3, got[0].ID)
	assert.Nil(t, got[0].Geometry)
	assert.Nil(t, got[0].Attrs)
	assert.False(t, got[0].Selected)

	a := got[1]
	assert.Equal(t, 7, a.ID)
	assert.Equal(t, map[string]string{"NAME": "north"}, a.Attrs)
	assert.True(t, a.Measured)
	assert.True(t, a.Selected)
	assert.Equal(t, 2700.0, a.ChangeArea)
	assert.Equal(t, model.StratumHigh, a.Stratum)
	assert.Equal(t, 0.5, a.InclusionProb1)

	p, ok := a.Geometry.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, poly.FlatCoords(), p.FlatCoords())
	assert.Equal(t, 2, p.NumLinearRings())
}

func TestSQLite_SaveTiles_DuplicateRollsBack(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunStagePrep, 1, nil)
	require.NoError(t, err)

	err = st.SaveTiles(ctx, run.ID, []*model.Tile{{ID: 1}, {ID: 1}})
	require.Error(t, err)

	got, err := st.ListTiles(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Points ---

func TestSQLite_SaveListPoints(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, model.RunStageSample, 9, nil)
	require.NoError(t, err)

	tile := 4
	points := []*model.SamplePoint{
		{
			ID:                 1,
			TileID:             &tile,
			Row:                10,
			Col:                20,
			ClassValue:         5,
			InclusionProb2:     0.01,
			PopulationSize:     100,
			Stage1:             &model.Stage1Info{TileID: 4, Stratum: 2, InclusionProb1: 0.25, StratumPopulation: 8},
			FinalInclusionProb: 0.0025,
		},
		{ID: 2, Row: 1, Col: 2, ClassValue: 7, InclusionProb2: 0.5, PopulationSize: 4, FinalInclusionProb: 0.5},
	}
	require.NoError(t, st.SavePoints(ctx, run.ID, points))

	got, err := st.ListPoints(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestSQLite_SaveEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	assert.NoError(t, st.SaveTiles(ctx, "any", nil))
	assert.NoError(t, st.SavePoints(ctx, "any", nil))
}
