package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// TransformationCount is one row of a transformation frequency report.
type TransformationCount struct {
	Transformation string `json:"transformation"`
	Pairs          int64  `json:"pairs"`
}

// PairRepository persists the pairs table of a run.
type PairRepository interface {
	SavePairs(ctx context.Context, runID string, pairs *table.Table) (int64, error)
	CountByRun(ctx context.Context, runID string) (int64, error)
	TopTransformations(ctx context.Context, runID string, limit int) ([]TransformationCount, error)
}

type postgresPairRepo struct {
	db  postgres.DB
	log logging.Logger
}

func NewPostgresPairRepo(conn *postgres.Connection, log logging.Logger) PairRepository {
	return NewPairRepoWithDB(conn.DB(), log)
}

func NewPairRepoWithDB(db postgres.DB, log logging.Logger) PairRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresPairRepo{db: db, log: log}
}

var pairCopyColumns = []string{
	"run_id", "row_key", "molecule_l", "molecule_r", "id_pair", "id_l", "id_r",
	"transformation", "context", "fragment_l", "fragment_r",
	"mcs_distance", "trans_atom_count", "properties",
}

// fixed pairs table columns in copy order, after run_id and row_key.
var pairTextColumns = []string{
	mmp.ColMoleculeL, mmp.ColMoleculeR, mmp.ColIDPair, mmp.ColIDL, mmp.ColIDR,
	mmp.ColTransformation, mmp.ColContext, mmp.ColFragmentL, mmp.ColFragmentR,
}

// ─────────────────────────────────────────────────────────────────────────────
// SavePairs — replace a run's pairs via pgx.CopyFrom
// ─────────────────────────────────────────────────────────────────────────────

// SavePairs replaces the stored pairs of runID with pairs in one transaction.
// Property columns are folded into the properties jsonb document.
func (r *postgresPairRepo) SavePairs(ctx context.Context, runID string, pairs *table.Table) (int64, error) {
	uid, err := parseRunID(runID)
	if err != nil {
		return 0, err
	}
	rows, err := pairRows(uid, pairs)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM mmp_pairs WHERE run_id = $1`, uid); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear previous pairs")
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"mmp_pairs"}, pairCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.log.Error("PairRepository.SavePairs", logging.String("run_id", runID), logging.Err(err))
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy pairs")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit pairs")
	}

	r.log.Debug("PairRepository.SavePairs: done", logging.String("run_id", runID), logging.Int64("copied", n))
	return n, nil
}

// pairRows converts the pairs table into copy rows.
func pairRows(runID any, pairs *table.Table) ([][]any, error) {
	textIdx := make([]int, len(pairTextColumns))
	for i, name := range pairTextColumns {
		if textIdx[i] = pairs.ColumnIndex(name); textIdx[i] < 0 {
			return nil, errors.Newf(errors.ErrCodeColumnNotFound, "pairs table has no %q column", name)
		}
	}
	mcsIdx := pairs.ColumnIndex(mmp.ColMCSDistance)
	atomIdx := pairs.ColumnIndex(mmp.ColTransAtomCount)

	var propIdx []int
	for j, c := range pairs.Columns {
		if c.Type == table.TypeDouble && j != mcsIdx {
			propIdx = append(propIdx, j)
		}
	}

	rows := make([][]any, 0, pairs.Len())
	for i, row := range pairs.Rows {
		rec := make([]any, 0, len(pairCopyColumns))
		rec = append(rec, runID, row.Key)
		for _, j := range textIdx {
			rec = append(rec, row.Cells[j].String())
		}
		rec = append(rec, optionalFloat(row, mcsIdx), optionalInt(row, atomIdx))

		props := make(map[string]*float64, len(propIdx))
		for _, j := range propIdx {
			if f, ok := row.Cells[j].Float(); ok {
				props[pairs.Columns[j].Name] = &f
			} else {
				props[pairs.Columns[j].Name] = nil
			}
		}
		doc, err := json.Marshal(props)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeSerialization, "row %d properties", i)
		}
		rows = append(rows, append(rec, doc))
	}
	return rows, nil
}

func optionalFloat(row table.Row, j int) *float64 {
	if j < 0 {
		return nil
	}
	if f, ok := row.Cells[j].Float(); ok {
		return &f
	}
	return nil
}

func optionalInt(row table.Row, j int) *int64 {
	if j < 0 {
		return nil
	}
	if n, ok := row.Cells[j].IntValue(); ok {
		return &n
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresPairRepo) CountByRun(ctx context.Context, runID string) (int64, error) {
	uid, err := parseRunID(runID)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM mmp_pairs WHERE run_id = $1`, uid).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count pairs")
	}
	return n, nil
}

// TopTransformations ranks transformations by pair count, ties broken by
// transformation text.
func (r *postgresPairRepo) TopTransformations(ctx context.Context, runID string, limit int) ([]TransformationCount, error) {
	uid, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
		SELECT transformation, count(*) AS pairs
		FROM mmp_pairs WHERE run_id = $1
		GROUP BY transformation
		ORDER BY pairs DESC, transformation
		LIMIT $2`, uid, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to rank transformations")
	}
	defer rows.Close()

	var out []TransformationCount
	for rows.Next() {
		var tc TransformationCount
		if err := rows.Scan(&tc.Transformation, &tc.Pairs); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan transformation")
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to rank transformations")
	}
	return out, nil
}

//Personal.AI order the ending
