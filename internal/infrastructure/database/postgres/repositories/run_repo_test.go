package repositories

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
)

func TestRunRepo_Create(t *testing.T) {
	db := &fakeDB{execTag: "INSERT 0 1"}
	repo := NewRunRepoWithQuerier(db, nil)

	run := &RunRecord{
		ID:       testRunID,
		Status:   common.RunStatusRunning,
		Input:    "minio://mmp-tables/inputs/set1.csv",
		Settings: mmp.Settings{MoleculeColumn: "Molecule"},
	}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.False(t, run.StartedAt.IsZero())

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].sql, "ON CONFLICT (id) DO UPDATE")
	assert.Equal(t, "running", db.execs[0].args[1])
	assert.Contains(t, string(db.execs[0].args[3].([]byte)), `"molecule_column":"Molecule"`)

	db.execErr = stderrors.New("connection reset")
	assert.True(t, errors.IsCode(repo.Create(context.Background(), run), errors.ErrCodeDatabaseError))
}

func TestRunRepo_Finish(t *testing.T) {
	db := &fakeDB{execTag: "UPDATE 1"}
	repo := NewRunRepoWithQuerier(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Finish(ctx, testRunID, common.RunStatusCompleted, mmp.Stats{PairsEmitted: 4}, ""))
	assert.Contains(t, string(db.execs[0].args[2].([]byte)), `"pairs_emitted":4`)

	err := repo.Finish(ctx, testRunID, common.RunStatusRunning, mmp.Stats{}, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	db.execTag = "UPDATE 0"
	err = repo.Finish(ctx, testRunID, common.RunStatusFailed, mmp.Stats{}, "boom")
	assert.True(t, errors.IsNotFound(err))
}

func TestRunRepo_Get(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	db := &fakeDB{row: []any{
		testRunID, "completed", "in.csv",
		[]byte(`{"molecule_column":"Molecule","use_row_key":true}`),
		[]byte(`{"pairs_emitted":2}`),
		"", started, &finished,
	}}
	repo := NewRunRepoWithQuerier(db, nil)

	run, err := repo.Get(context.Background(), testRunID)
	require.NoError(t, err)
	assert.Equal(t, common.RunStatusCompleted, run.Status)
	assert.True(t, run.Settings.UseRowKey)
	assert.Equal(t, 2, run.Stats.PairsEmitted)
	assert.Equal(t, finished, *run.FinishedAt)

	db.rowErr = pgx.ErrNoRows
	_, err = repo.Get(context.Background(), testRunID)
	assert.True(t, errors.IsNotFound(err))

	_, err = repo.Get(context.Background(), "bad")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRunRepo_List(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: [][]any{
		{testRunID, "running", "a.csv", []byte(`{}`), []byte(`{}`), "", started, nil},
	}}
	repo := NewRunRepoWithQuerier(db, nil)

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, "a.csv", runs[0].Input)
}

//Personal.AI order the ending
