package repositories

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	infraNeo4j "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// MockInfraDriver implements infraNeo4j.DriverInterface over one shared
// transaction.
type MockInfraDriver struct {
	mock.Mock
	tx *MockInfraTransaction
}

func (m *MockInfraDriver) ExecuteRead(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	return work(m.tx)
}

func (m *MockInfraDriver) ExecuteWrite(ctx context.Context, work infraNeo4j.TransactionWork) (any, error) {
	return work(m.tx)
}

func (m *MockInfraDriver) HealthCheck(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockInfraDriver) Close() error                          { return nil }

type runCall struct {
	cypher string
	params map[string]any
}

type MockInfraTransaction struct {
	calls   []runCall
	records []*neo4j.Record
	err     error
}

func (m *MockInfraTransaction) Run(ctx context.Context, cypher string, params map[string]any) (infraNeo4j.Result, error) {
	m.calls = append(m.calls, runCall{cypher: cypher, params: params})
	if m.err != nil {
		return nil, m.err
	}
	return &MockResult{Records: m.records}, nil
}

type MockResult struct {
	Records []*neo4j.Record
	Current int
}

func (m *MockResult) Next(ctx context.Context) bool {
	if m.Current < len(m.Records) {
		m.Current++
		return true
	}
	return false
}
func (m *MockResult) Record() *neo4j.Record { return m.Records[m.Current-1] }
func (m *MockResult) Err() error             { return nil }
func (m *MockResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

func nodeRecord(key, id, smiles string, component, degree int64) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"key", "id", "smiles", "component", "degree"},
		Values: []any{key, id, smiles, component, degree},
	}
}

func newTestRepo(batch int) (NetworkRepository, *MockInfraTransaction) {
	tx := &MockInfraTransaction{}
	return NewNeo4jNetworkRepo(&MockInfraDriver{tx: tx}, batch, nil), tx
}

func TestSaveNetwork_Batches(t *testing.T) {
	repo, tx := newTestRepo(2)
	g := &NetworkGraph{
		RunID: "run-1",
		Nodes: []MoleculeNode{
			{Key: "Row0", ID: "a", Smiles: "c1ccccc1Cl", Component: 0, Degree: 1},
			{Key: "Row1", ID: "b", Smiles: "c1ccccc1Br", Component: 0, Degree: 1},
			{Key: "Row2", ID: "c", Smiles: "CCO", Component: 1},
		},
		Edges: []PairEdge{{Left: "Row0", Right: "Row1", Transformation: "[*]Cl>>[*]Br", Context: "[*]c1ccccc1"}},
	}

	require.NoError(t, repo.SaveNetwork(context.Background(), g))
	require.Len(t, tx.calls, 3)
	assert.Contains(t, tx.calls[0].cypher, "MERGE (m:Molecule")
	assert.Len(t, tx.calls[0].params["nodes"], 2)
	assert.Len(t, tx.calls[1].params["nodes"], 1)
	assert.Contains(t, tx.calls[2].cypher, "MATCHED_PAIR")
	assert.Equal(t, "run-1", tx.calls[2].params["runId"])

	edges := tx.calls[2].params["edges"].([]map[string]any)
	assert.Equal(t, "[*]Cl>>[*]Br", edges[0]["transformation"])
	nodes := tx.calls[0].params["nodes"].([]map[string]any)
	assert.Equal(t, int64(1), nodes[0]["degree"])
}

func TestSaveNetwork_Errors(t *testing.T) {
	repo, tx := newTestRepo(0)
	err := repo.SaveNetwork(context.Background(), &NetworkGraph{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	tx.err = stderrors.New("deadlock")
	err = repo.SaveNetwork(context.Background(), &NetworkGraph{RunID: "r", Nodes: []MoleculeNode{{Key: "Row0"}}})
	assert.Error(t, err)
}

func TestSaveNetwork_Empty(t *testing.T) {
	repo, tx := newTestRepo(0)
	require.NoError(t, repo.SaveNetwork(context.Background(), &NetworkGraph{RunID: "r"}))
	assert.Empty(t, tx.calls)
}

func TestNeighbors(t *testing.T) {
	repo, tx := newTestRepo(0)
	tx.records = []*neo4j.Record{nodeRecord("Row1", "b", "c1ccccc1Br", 0, 2)}

	got, err := repo.Neighbors(context.Background(), "run-1", "Row0")
	require.NoError(t, err)
	assert.Equal(t, []MoleculeNode{{Key: "Row1", ID: "b", Smiles: "c1ccccc1Br", Component: 0, Degree: 2}}, got)
	assert.Equal(t, "Row0", tx.calls[0].params["key"])
}

func TestComponentMembers(t *testing.T) {
	repo, tx := newTestRepo(0)
	tx.records = []*neo4j.Record{
		nodeRecord("Row0", "a", "c1ccccc1Cl", 3, 1),
		nodeRecord("Row1", "b", "c1ccccc1Br", 3, 1),
	}

	got, err := repo.ComponentMembers(context.Background(), "run-1", 3)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(3), tx.calls[0].params["component"])
}

func TestDeleteRunAndIndexes(t *testing.T) {
	repo, tx := newTestRepo(0)
	require.NoError(t, repo.EnsureIndexes(context.Background()))
	require.NoError(t, repo.DeleteRun(context.Background(), "run-1"))
	require.Len(t, tx.calls, 2)
	assert.Contains(t, tx.calls[0].cypher, "CREATE INDEX")
	assert.Contains(t, tx.calls[1].cypher, "DETACH DELETE")
}

//Personal.AI order the ending
