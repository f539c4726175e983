package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
)

// RunRecord is one row of mmp_runs.
type RunRecord struct {
	ID         string           `json:"id"`
	Status     common.RunStatus `json:"status"`
	Input      string           `json:"input"`
	Settings   mmp.Settings     `json:"settings"`
	Stats      mmp.Stats        `json:"stats"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// RunRepository stores run bookkeeping.
type RunRepository interface {
	Create(ctx context.Context, run *RunRecord) error
	Finish(ctx context.Context, id string, status common.RunStatus, stats mmp.Stats, errMsg string) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	List(ctx context.Context, limit int) ([]*RunRecord, error)
}

type postgresRunRepo struct {
	db  postgres.Querier
	log logging.Logger
}

func NewPostgresRunRepo(conn *postgres.Connection, log logging.Logger) RunRepository {
	return NewRunRepoWithQuerier(conn.DB(), log)
}

// NewRunRepoWithQuerier builds the repository over any pgx Querier.
func NewRunRepoWithQuerier(db postgres.Querier, log logging.Logger) RunRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresRunRepo{db: db, log: log}
}

// Create inserts run.  A redelivered run id restarts the existing row.
func (r *postgresRunRepo) Create(ctx context.Context, run *RunRecord) error {
	id, err := parseRunID(run.ID)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(run.Settings)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode settings")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO mmp_runs (id, status, input, settings, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, input = EXCLUDED.input, settings = EXCLUDED.settings,
		    started_at = EXCLUDED.started_at, error = '', finished_at = NULL`,
		id, string(run.Status), run.Input, settings, run.StartedAt)
	if err != nil {
		r.log.Error("RunRepository.Create", logging.String("run_id", run.ID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert run")
	}
	return nil
}

func (r *postgresRunRepo) Finish(ctx context.Context, id string, status common.RunStatus, stats mmp.Stats, errMsg string) error {
	uid, err := parseRunID(id)
	if err != nil {
		return err
	}
	if !status.Terminal() {
		return errors.Newf(errors.ErrCodeValidation, "run status %q is not terminal", status)
	}
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode stats")
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE mmp_runs SET status = $2, stats = $3, error = $4, finished_at = $5
		WHERE id = $1`,
		uid, string(status), statsJSON, errMsg, time.Now().UTC())
	if err != nil {
		r.log.Error("RunRepository.Finish", logging.String("run_id", id), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update run")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
	}
	return nil
}

const selectRun = `
	SELECT id::text, status, input, settings, stats, error, started_at, finished_at
	FROM mmp_runs`

func (r *postgresRunRepo) Get(ctx context.Context, id string) (*RunRecord, error) {
	uid, err := parseRunID(id)
	if err != nil {
		return nil, err
	}
	run, err := scanRun(r.db.QueryRow(ctx, selectRun+` WHERE id = $1`, uid))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load run")
	}
	return run, nil
}

// List returns the most recent runs first.
func (r *postgresRunRepo) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, selectRun+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list runs")
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan run")
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list runs")
	}
	return out, nil
}

func scanRun(row pgx.Row) (*RunRecord, error) {
	var (
		run      RunRecord
		status   string
		settings []byte
		stats    []byte
	)
	if err := row.Scan(&run.ID, &status, &run.Input, &settings, &stats, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	run.Status = common.RunStatus(status)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &run.Settings); err != nil {
			return nil, err
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

func parseRunID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, errors.ErrCodeValidation, "invalid run id %q", id)
	}
	return uid, nil
}

//Personal.AI order the ending
