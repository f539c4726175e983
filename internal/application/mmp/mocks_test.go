package mmp

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	neo4jrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j/repositories"
	pgrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-MMP/pkg/types/common"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// MockRunRepository is a mock implementation of pgrepo.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *pgrepo.RunRecord) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRunRepository) Finish(ctx context.Context, id string, status common.RunStatus, stats domainMMP.Stats, errMsg string) error {
	return m.Called(ctx, id, status, stats, errMsg).Error(0)
}

func (m *MockRunRepository) Get(ctx context.Context, id string) (*pgrepo.RunRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pgrepo.RunRecord), args.Error(1)
}

func (m *MockRunRepository) List(ctx context.Context, limit int) ([]*pgrepo.RunRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pgrepo.RunRecord), args.Error(1)
}

// MockPairRepository is a mock implementation of pgrepo.PairRepository.
type MockPairRepository struct {
	mock.Mock
}

func (m *MockPairRepository) SavePairs(ctx context.Context, runID string, pairs *table.Table) (int64, error) {
	args := m.Called(ctx, runID, pairs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPairRepository) CountByRun(ctx context.Context, runID string) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPairRepository) TopTransformations(ctx context.Context, runID string, limit int) ([]pgrepo.TransformationCount, error) {
	args := m.Called(ctx, runID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pgrepo.TransformationCount), args.Error(1)
}

// MockNetworkRepository is a mock implementation of neo4jrepo.NetworkRepository.
type MockNetworkRepository struct {
	mock.Mock
}

func (m *MockNetworkRepository) EnsureIndexes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockNetworkRepository) SaveNetwork(ctx context.Context, g *neo4jrepo.NetworkGraph) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockNetworkRepository) DeleteRun(ctx context.Context, runID string) error {
	return m.Called(ctx, runID).Error(0)
}

func (m *MockNetworkRepository) Neighbors(ctx context.Context, runID, key string) ([]neo4jrepo.MoleculeNode, error) {
	args := m.Called(ctx, runID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]neo4jrepo.MoleculeNode), args.Error(1)
}

func (m *MockNetworkRepository) ComponentMembers(ctx context.Context, runID string, component int) ([]neo4jrepo.MoleculeNode, error) {
	args := m.Called(ctx, runID, component)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]neo4jrepo.MoleculeNode), args.Error(1)
}

// fakeTables keeps tables in memory.  runPrefix non-empty enables default
// run locations.
type fakeTables struct {
	mu        sync.Mutex
	tables    map[string]*table.Table
	saved     []string
	saveErr   error
	runPrefix string
}

func newFakeTables() *fakeTables {
	return &fakeTables{tables: map[string]*table.Table{}}
}

func (f *fakeTables) Load(ctx context.Context, location string) (*table.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[location]
	if !ok {
		return nil, &notFoundError{location}
	}
	return t, nil
}

func (f *fakeTables) Save(ctx context.Context, location string, t *table.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.tables[location] = t
	f.saved = append(f.saved, location)
	return nil
}

func (f *fakeTables) RunLocation(runID, name string) string {
	if f.runPrefix == "" {
		return ""
	}
	return f.runPrefix + runID + "/" + name + ".csv"
}

type notFoundError struct{ location string }

func (e *notFoundError) Error() string { return "no table at " + e.location }

// fakePublisher records published messages.
type fakePublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, msg *common.ProducerMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Topic
	}
	return out
}

// stubRunner returns a fixed outcome.
type stubRunner struct {
	res *domainMMP.Result
	err error
}

func (s stubRunner) Run(ctx context.Context, input *table.Table, _ domainMMP.Settings) (*domainMMP.Result, error) {
	return s.res, s.err
}

//Personal.AI order the ending
