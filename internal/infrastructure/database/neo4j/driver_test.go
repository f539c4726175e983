package neo4j

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) VerifyConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
func (m *MockDriver) NewSession(ctx context.Context, config neo4j.SessionConfig) internalSession {
	return m.Called(ctx, config).Get(0).(internalSession)
}
func (m *MockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockSession runs work against tx directly.
type MockSession struct {
	mock.Mock
	tx Transaction
}

func (m *MockSession) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return work(m.tx)
}
func (m *MockSession) ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return work(m.tx)
}
func (m *MockSession) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	args := m.Called(ctx, cypher, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Result), args.Error(1)
}

// sliceResult serves fixed records.
type sliceResult struct {
	records []*neo4j.Record
	i       int
	err     error
}

func (r *sliceResult) Next(ctx context.Context) bool {
	if r.i < len(r.records) {
		r.i++
		return true
	}
	return false
}
func (r *sliceResult) Record() *neo4j.Record { return r.records[r.i-1] }
func (r *sliceResult) Err() error             { return r.err }
func (r *sliceResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, nil
}

func record(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func newTestDriver(tx Transaction) (*Driver, *MockDriver, *MockSession) {
	md := new(MockDriver)
	ms := &MockSession{tx: tx}
	md.On("NewSession", mock.Anything, mock.Anything).Return(ms)
	ms.On("Close", mock.Anything).Return(nil)
	return newDriver(md, Neo4jConfig{}, nil), md, ms
}

func TestDriver_HealthCheck(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, "RETURN 1 AS health", map[string]any(nil)).
		Return(&sliceResult{records: []*neo4j.Record{record([]string{"health"}, int64(1))}}, nil)
	d, md, _ := newTestDriver(tx)
	md.On("VerifyConnectivity", mock.Anything).Return(nil)

	require.NoError(t, d.HealthCheck(context.Background()))
	md.AssertCalled(t, "NewSession", mock.Anything, neo4j.SessionConfig{DatabaseName: "neo4j", AccessMode: neo4j.AccessModeRead})
}

func TestDriver_HealthCheck_Unreachable(t *testing.T) {
	d, md, _ := newTestDriver(new(MockTransaction))
	md.On("VerifyConnectivity", mock.Anything).Return(stderrors.New("routing table empty"))

	err := d.HealthCheck(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestDriver_ExecuteWrite_WrapsErrors(t *testing.T) {
	tx := new(MockTransaction)
	tx.On("Run", mock.Anything, "CREATE (n)", map[string]any(nil)).Return(nil, stderrors.New("constraint"))
	d, _, ms := newTestDriver(tx)

	_, err := d.ExecuteWrite(context.Background(), func(tx Transaction) (any, error) {
		return tx.Run(context.Background(), "CREATE (n)", nil)
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
	ms.AssertCalled(t, "Close", mock.Anything)
}

func TestDriver_Close_Once(t *testing.T) {
	d, md, _ := newTestDriver(nil)
	md.On("Close", mock.Anything).Return(nil).Once()

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	md.AssertNumberOfCalls(t, "Close", 1)
}

func TestCollectRecords(t *testing.T) {
	res := &sliceResult{records: []*neo4j.Record{
		record([]string{"k"}, "Row0"),
		record([]string{"k"}, "Row2"),
	}}
	got, err := CollectRecords(context.Background(), res, func(r *neo4j.Record) (string, error) {
		return r.Values[0].(string), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Row0", "Row2"}, got)

	_, err = CollectRecords(context.Background(), &sliceResult{err: stderrors.New("reset")}, func(r *neo4j.Record) (string, error) {
		return "", nil
	})
	assert.Error(t, err)
}

func TestNewDriver_AppliesPoolDefaults(t *testing.T) {
	d := newDriver(new(MockDriver), Neo4jConfig{Database: "mmp"}, nil)
	assert.Equal(t, "mmp", d.cfg.Database)
	assert.Equal(t, 50, d.cfg.MaxConnectionPoolSize)
	assert.Equal(t, time.Hour, d.cfg.MaxConnectionLifetime)
}

//Personal.AI order the ending
