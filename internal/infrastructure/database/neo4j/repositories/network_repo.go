package repositories

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	driver "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

const defaultBatchSize = 500

// MoleculeNode is one input row of a run.
type MoleculeNode struct {
	Key       string `json:"key"`
	ID        string `json:"id"`
	Smiles    string `json:"smiles"`
	Component int    `json:"component"`
	Degree    int    `json:"degree"`
}

// PairEdge is one emitted pair, directed Left to Right.
type PairEdge struct {
	Left           string `json:"left"`
	Right          string `json:"right"`
	Transformation string `json:"transformation"`
	Context        string `json:"context"`
}

// NetworkGraph is the match network of one run.
type NetworkGraph struct {
	RunID string
	Nodes []MoleculeNode
	Edges []PairEdge
}

// NetworkRepository stores match networks as (:Molecule)-[:MATCHED_PAIR]->
// subgraphs keyed by run id.
type NetworkRepository interface {
	EnsureIndexes(ctx context.Context) error
	SaveNetwork(ctx context.Context, g *NetworkGraph) error
	DeleteRun(ctx context.Context, runID string) error
	Neighbors(ctx context.Context, runID, key string) ([]MoleculeNode, error)
	ComponentMembers(ctx context.Context, runID string, component int) ([]MoleculeNode, error)
}

type neo4jNetworkRepo struct {
	driver    driver.DriverInterface
	log       logging.Logger
	batchSize int
}

func NewNeo4jNetworkRepo(d driver.DriverInterface, batchSize int, log logging.Logger) NetworkRepository {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &neo4jNetworkRepo{driver: d, log: log, batchSize: batchSize}
}

const (
	cypherIndex = `CREATE INDEX molecule_run_key IF NOT EXISTS FOR (m:Molecule) ON (m.run_id, m.key)`

	cypherMergeNodes = `
		UNWIND $nodes AS n
		MERGE (m:Molecule {run_id: $runId, key: n.key})
		SET m.id = n.id, m.smiles = n.smiles, m.component = n.component, m.degree = n.degree`

	cypherMergeEdges = `
		UNWIND $edges AS e
		MATCH (a:Molecule {run_id: $runId, key: e.left})
		MATCH (b:Molecule {run_id: $runId, key: e.right})
		MERGE (a)-[r:MATCHED_PAIR {run_id: $runId, transformation: e.transformation}]->(b)
		SET r.context = e.context`

	cypherDeleteRun = `
		MATCH (m:Molecule {run_id: $runId})
		DETACH DELETE m`

	cypherNeighbors = `
		MATCH (:Molecule {run_id: $runId, key: $key})-[:MATCHED_PAIR]-(b:Molecule)
		RETURN DISTINCT b.key AS key, b.id AS id, b.smiles AS smiles, b.component AS component, b.degree AS degree
		ORDER BY key`

	cypherComponent = `
		MATCH (m:Molecule {run_id: $runId, component: $component})
		RETURN m.key AS key, m.id AS id, m.smiles AS smiles, m.component AS component, m.degree AS degree
		ORDER BY key`
)

func (r *neo4jNetworkRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx, cypherIndex, nil)
		return nil, err
	})
	return err
}

// SaveNetwork merges nodes before edges, each in batches of batchSize.
// Re-saving a run is idempotent.
func (r *neo4jNetworkRepo) SaveNetwork(ctx context.Context, g *NetworkGraph) error {
	if g.RunID == "" {
		return errors.New(errors.ErrCodeValidation, "network graph needs a run id")
	}
	for start := 0; start < len(g.Nodes); start += r.batchSize {
		end := min(start+r.batchSize, len(g.Nodes))
		batch := make([]map[string]any, 0, end-start)
		for _, n := range g.Nodes[start:end] {
			batch = append(batch, map[string]any{
				"key":       n.Key,
				"id":        n.ID,
				"smiles":    n.Smiles,
				"component": int64(n.Component),
				"degree":    int64(n.Degree),
			})
		}
		if err := r.write(ctx, cypherMergeNodes, map[string]any{"runId": g.RunID, "nodes": batch}); err != nil {
			return err
		}
	}
	for start := 0; start < len(g.Edges); start += r.batchSize {
		end := min(start+r.batchSize, len(g.Edges))
		batch := make([]map[string]any, 0, end-start)
		for _, e := range g.Edges[start:end] {
			batch = append(batch, map[string]any{
				"left":           e.Left,
				"right":          e.Right,
				"transformation": e.Transformation,
				"context":        e.Context,
			})
		}
		if err := r.write(ctx, cypherMergeEdges, map[string]any{"runId": g.RunID, "edges": batch}); err != nil {
			return err
		}
	}
	r.log.Debug("NetworkRepository.SaveNetwork: done",
		logging.String("run_id", g.RunID),
		logging.Int("nodes", len(g.Nodes)),
		logging.Int("edges", len(g.Edges)))
	return nil
}

func (r *neo4jNetworkRepo) write(ctx context.Context, cypher string, params map[string]any) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (r *neo4jNetworkRepo) DeleteRun(ctx context.Context, runID string) error {
	return r.write(ctx, cypherDeleteRun, map[string]any{"runId": runID})
}

func (r *neo4jNetworkRepo) Neighbors(ctx context.Context, runID, key string) ([]MoleculeNode, error) {
	return r.readNodes(ctx, cypherNeighbors, map[string]any{"runId": runID, "key": key})
}

func (r *neo4jNetworkRepo) ComponentMembers(ctx context.Context, runID string, component int) ([]MoleculeNode, error) {
	return r.readNodes(ctx, cypherComponent, map[string]any{"runId": runID, "component": int64(component)})
}

func (r *neo4jNetworkRepo) readNodes(ctx context.Context, cypher string, params map[string]any) ([]MoleculeNode, error) {
	out, err := r.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, res, nodeFromRecord)
	})
	if err != nil {
		return nil, err
	}
	nodes, _ := out.([]MoleculeNode)
	return nodes, nil
}

func nodeFromRecord(rec *neo4j.Record) (MoleculeNode, error) {
	var n MoleculeNode
	var err error
	if n.Key, _, err = neo4j.GetRecordValue[string](rec, "key"); err != nil {
		return n, err
	}
	if n.ID, _, err = neo4j.GetRecordValue[string](rec, "id"); err != nil {
		return n, err
	}
	if n.Smiles, _, err = neo4j.GetRecordValue[string](rec, "smiles"); err != nil {
		return n, err
	}
	component, _, err := neo4j.GetRecordValue[int64](rec, "component")
	if err != nil {
		return n, err
	}
	degree, _, err := neo4j.GetRecordValue[int64](rec, "degree")
	if err != nil {
		return n, err
	}
	n.Component, n.Degree = int(component), int(degree)
	return n, nil
}

//Personal.AI order the ending
