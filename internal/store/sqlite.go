package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vhr-sample/internal/model"
)

// SQLiteStore implements Ledger using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	stage      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	seed       TEXT NOT NULL,
	params     TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_tiles (
	run_id             TEXT NOT NULL REFERENCES runs(id),
	tile_id            INTEGER NOT NULL,
	geometry           BLOB,
	attrs              TEXT,
	measured           INTEGER NOT NULL DEFAULT 0,
	change_pixels      INTEGER NOT NULL DEFAULT 0,
	footprint_pixels   INTEGER NOT NULL DEFAULT 0,
	change_area        REAL NOT NULL DEFAULT 0,
	change_proportion  REAL NOT NULL DEFAULT 0,
	change_share       REAL NOT NULL DEFAULT 0,
	stratum            INTEGER NOT NULL DEFAULT 0,
	selected           INTEGER NOT NULL DEFAULT 0,
	stratum_population INTEGER NOT NULL DEFAULT 0,
	inclusion_prob_1   REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, tile_id)
);

CREATE TABLE IF NOT EXISTS run_points (
	run_id             TEXT NOT NULL REFERENCES runs(id),
	point_id           INTEGER NOT NULL,
	tile_id            INTEGER,
	row                INTEGER NOT NULL,
	col                INTEGER NOT NULL,
	class_value        INTEGER NOT NULL,
	inclusion_prob_2   REAL NOT NULL,
	population_size    INTEGER NOT NULL,
	stratum            INTEGER,
	inclusion_prob_1   REAL,
	stratum_population INTEGER,
	final_inclusion    REAL NOT NULL,
	PRIMARY KEY (run_id, point_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, stage model.RunStage, seed uint64, params map[string]any) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var paramsJSON sql.NullString
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal params")
		}
		paramsJSON = sql.NullString{String: string(b), Valid: true}
	}

	// Seeds use the full uint64 range, which INTEGER cannot hold.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, status, seed, params, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, string(stage), string(model.RunStatusRunning), strconv.FormatUint(seed, 10), paramsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Stage:     stage,
		Status:    model.RunStatusRunning,
		Seed:      seed,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, stage, status, seed, params, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, stage, status, seed, params, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveTiles records the tiles of a run in one transaction. Geometry is
// stored as little-endian WKB.
func (s *SQLiteStore) SaveTiles(ctx context.Context, runID string, tiles []*model.Tile) error {
	if len(tiles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_tiles
			(run_id, tile_id, geometry, attrs, measured, change_pixels, footprint_pixels,
			 change_area, change_proportion, change_share, stratum, selected,
			 stratum_population, inclusion_prob_1)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare tile insert")
	}
	defer stmt.Close()

	for _, t := range tiles {
		var geometry []byte
		if t.Geometry != nil {
			geometry, err = wkb.Marshal(t.Geometry, wkb.NDR)
			if err != nil {
				return eris.Wrapf(err, "sqlite: encode geometry for tile %d", t.ID)
			}
		}
		var attrs sql.NullString
		if len(t.Attrs) > 0 {
			b, err := json.Marshal(t.Attrs)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal attrs for tile %d", t.ID)
			}
			attrs = sql.NullString{String: string(b), Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			runID, t.ID, geometry, attrs, t.Measured, t.ChangePixels, t.FootprintPixels,
			t.ChangeArea, t.ChangeProportion, t.ChangeShare, t.Stratum, t.Selected,
			t.StratumPopulation, t.InclusionProb1,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert tile %d for run %s", t.ID, runID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit tiles")
	}
	zap.L().Debug("sqlite: saved tiles", zap.String("run_id", runID), zap.Int("count", len(tiles)))
	return nil
}

func (s *SQLiteStore) ListTiles(ctx context.Context, runID string) ([]*model.Tile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tile_id, geometry, attrs, measured, change_pixels, footprint_pixels,
		       change_area, change_proportion, change_share, stratum, selected,
		       stratum_population, inclusion_prob_1
		FROM run_tiles WHERE run_id = ? ORDER BY tile_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tiles for run %s", runID)
	}
	defer rows.Close()

	var tiles []*model.Tile
	for rows.Next() {
		var t model.Tile
		var geometry []byte
		var attrs sql.NullString
		if err := rows.Scan(&t.ID, &geometry, &attrs, &t.Measured, &t.ChangePixels, &t.FootprintPixels,
			&t.ChangeArea, &t.ChangeProportion, &t.ChangeShare, &t.Stratum, &t.Selected,
			&t.StratumPopulation, &t.InclusionProb1); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tile")
		}
		t.HasID = true
		if len(geometry) > 0 {
			t.Geometry, err = wkb.Unmarshal(geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode geometry for tile %d", t.ID)
			}
		}
		if attrs.Valid {
			if err := json.Unmarshal([]byte(attrs.String), &t.Attrs); err != nil {
				return nil, eris.Wrapf(err, "sqlite: unmarshal attrs for tile %d", t.ID)
			}
		}
		tiles = append(tiles, &t)
	}
	return tiles, eris.Wrap(rows.Err(), "sqlite: list tiles iterate")
}

// SavePoints records the sample points of a run in one transaction. The
// stage-1 columns are NULL for points without stage-1 information.
func (s *SQLiteStore) SavePoints(ctx context.Context, runID string, points []*model.SamplePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_points
			(run_id, point_id, tile_id, row, col, class_value, inclusion_prob_2,
			 population_size, stratum, inclusion_prob_1, stratum_population, final_inclusion)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare point insert")
	}
	defer stmt.Close()

	for _, p := range points {
		var tileID, stratum, pop sql.NullInt64
		var pi1 sql.NullFloat64
		if p.TileID != nil {
			tileID = sql.NullInt64{Int64: int64(*p.TileID), Valid: true}
		}
		if p.Stage1 != nil {
			stratum = sql.NullInt64{Int64: int64(p.Stage1.Stratum), Valid: true}
			pop = sql.NullInt64{Int64: int64(p.Stage1.StratumPopulation), Valid: true}
			pi1 = sql.NullFloat64{Float64: p.Stage1.InclusionProb1, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			runID, p.ID, tileID, p.Row, p.Col, p.ClassValue, p.InclusionProb2,
			p.PopulationSize, stratum, pi1, pop, p.FinalInclusionProb,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert point %d for run %s", p.ID, runID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit points")
	}
	zap.L().Debug("sqlite: saved points", zap.String("run_id", runID), zap.Int("count", len(points)))
	return nil
}

func (s *SQLiteStore) ListPoints(ctx context.Context, runID string) ([]*model.SamplePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT point_id, tile_id, row, col, class_value, inclusion_prob_2, population_size,
		       stratum, inclusion_prob_1, stratum_population, final_inclusion
		FROM run_points WHERE run_id = ? ORDER BY point_id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list points for run %s", runID)
	}
	defer rows.Close()

	var points []*model.SamplePoint
	for rows.Next() {
		var p model.SamplePoint
		var tileID, stratum, pop sql.NullInt64
		var pi1 sql.NullFloat64
		if err := rows.Scan(&p.ID, &tileID, &p.Row, &p.Col, &p.ClassValue, &p.InclusionProb2,
			&p.PopulationSize, &stratum, &pi1, &pop, &p.FinalInclusionProb); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan point")
		}
		if tileID.Valid {
			id := int(tileID.Int64)
			p.TileID = &id
		}
		if stratum.Valid && tileID.Valid {
			p.Stage1 = &model.Stage1Info{
				TileID:            int(tileID.Int64),
				Stratum:           int(stratum.Int64),
				InclusionProb1:    pi1.Float64,
				StratumPopulation: int(pop.Int64),
			}
		}
		points = append(points, &p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: list points iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var seed string
	var paramsJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Stage, &r.Status, &seed, &paramsJSON, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse seed for run %s", r.ID)
	}
	if paramsJSON.Valid {
		if err := json.Unmarshal([]byte(paramsJSON.String), &r.Params); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal params")
		}
	}
	r.Error = errMsg.String
	return &r, nil
}
