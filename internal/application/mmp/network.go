package mmp

import (
	domainMMP "github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	neo4jrepo "github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// buildNetworkGraph projects a finished run onto graph nodes and edges.
// Nodes are the input rows; isolated rows carry component -1.  Edges are
// resolved from the pair table's ID_L/ID_R through the row ids, so a
// duplicated id maps to its first row.
func buildNetworkGraph(runID string, input *table.Table, s domainMMP.Settings, res *domainMMP.Result) *neo4jrepo.NetworkGraph {
	molCol := input.ColumnIndex(s.MoleculeColumn)
	idCol := -1
	if s.IDColumn != "" && !s.UseRowKey {
		idCol = input.ColumnIndex(s.IDColumn)
	}

	component := make(map[int]int, input.Len())
	for c, members := range res.Components {
		for _, i := range members {
			component[i] = c
		}
	}

	g := &neo4jrepo.NetworkGraph{RunID: runID, Nodes: make([]neo4jrepo.MoleculeNode, 0, input.Len())}
	keyByID := make(map[string]string, input.Len())
	for i, row := range input.Rows {
		id := row.Key
		if idCol >= 0 && !row.Cells[idCol].IsMissing() {
			id = row.Cells[idCol].String()
		}
		if _, dup := keyByID[id]; !dup {
			keyByID[id] = row.Key
		}
		node := neo4jrepo.MoleculeNode{Key: row.Key, ID: id, Component: -1}
		if molCol >= 0 {
			node.Smiles = row.Cells[molCol].String()
		}
		if c, ok := component[i]; ok {
			node.Component = c
		}
		if res.Adjacency != nil && i < res.Adjacency.Len() {
			node.Degree = res.Adjacency.Degree(i)
		}
		g.Nodes = append(g.Nodes, node)
	}

	pairs := res.Pairs
	if pairs == nil {
		return g
	}
	left, right := pairs.ColumnIndex(domainMMP.ColIDL), pairs.ColumnIndex(domainMMP.ColIDR)
	trans, ctx := pairs.ColumnIndex(domainMMP.ColTransformation), pairs.ColumnIndex(domainMMP.ColContext)
	if left < 0 || right < 0 {
		return g
	}
	g.Edges = make([]neo4jrepo.PairEdge, 0, pairs.Len())
	for _, row := range pairs.Rows {
		l, okL := keyByID[row.Cells[left].String()]
		r, okR := keyByID[row.Cells[right].String()]
		if !okL || !okR {
			continue
		}
		e := neo4jrepo.PairEdge{Left: l, Right: r}
		if trans >= 0 {
			e.Transformation = row.Cells[trans].String()
		}
		if ctx >= 0 {
			e.Context = row.Cells[ctx].String()
		}
		g.Edges = append(g.Edges, e)
	}
	return g
}

//Personal.AI order the ending
