package mmp

import (
	"fmt"
	"sort"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// AdjacencyList is the undirected match network over input row indexes.
// Edges are inserted in both directions together, so it is symmetric.
type AdjacencyList struct {
	sets []map[int]struct{}
}

// NewAdjacencyList returns an empty network over n rows.
func NewAdjacencyList(n int) *AdjacencyList {
	if n < 0 {
		n = 0
	}
	return &AdjacencyList{sets: make([]map[int]struct{}, n)}
}

// Connect adds the edge {i, j}.  Self-loops and out-of-range rows are ignored.
func (a *AdjacencyList) Connect(i, j int) {
	if i == j || i < 0 || j < 0 || i >= len(a.sets) || j >= len(a.sets) {
		return
	}
	a.insert(i, j)
	a.insert(j, i)
}

func (a *AdjacencyList) insert(i, j int) {
	if a.sets[i] == nil {
		a.sets[i] = make(map[int]struct{}, 2)
	}
	a.sets[i][j] = struct{}{}
}

// Has reports whether the edge {i, j} exists.
func (a *AdjacencyList) Has(i, j int) bool {
	if i < 0 || i >= len(a.sets) {
		return false
	}
	_, ok := a.sets[i][j]
	return ok
}

// Neighbors returns the rows connected to i in ascending order.
func (a *AdjacencyList) Neighbors(i int) []int {
	if i < 0 || i >= len(a.sets) {
		return nil
	}
	out := make([]int, 0, len(a.sets[i]))
	for j := range a.sets[i] {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// Degree returns the number of rows connected to i.
func (a *AdjacencyList) Degree(i int) int {
	if i < 0 || i >= len(a.sets) {
		return 0
	}
	return len(a.sets[i])
}

// Len returns the number of rows.
func (a *AdjacencyList) Len() int { return len(a.sets) }

// NetworkBuilder renders an AdjacencyList as the network table.
type NetworkBuilder struct {
	column string
}

// NewNetworkBuilder returns a builder appending a vector column named
// column.  An empty name selects DefaultNetworkColumn.
func NewNetworkBuilder(column string) *NetworkBuilder {
	if column == "" {
		column = DefaultNetworkColumn
	}
	return &NetworkBuilder{column: column}
}

// Build returns input with one appended weight vector per row: length
// input.Len(), 1.0 at every connected row and 0 elsewhere.  A clashing
// column name is made unique with UniqueColumnName.
func (b *NetworkBuilder) Build(input *table.Table, adj *AdjacencyList) (*table.Table, error) {
	n := input.Len()
	if adj.Len() != n {
		return nil, errors.Newf(errors.CodeInternal, "mmp: adjacency covers %d rows, table has %d", adj.Len(), n)
	}
	column := UniqueColumnName(input, b.column)
	cols := append(append([]table.Column(nil), input.Columns...), table.Column{Name: column, Type: table.TypeDoubleVector})
	out := table.New(cols...)
	out.Rows = make([]table.Row, 0, n)
	for k, row := range input.Rows {
		weights := make([]float64, n)
		for _, j := range adj.Neighbors(k) {
			weights[j] = 1.0
		}
		cells := append(append(make([]table.Value, 0, len(row.Cells)+1), row.Cells...), table.DoubleVector(weights))
		if err := out.Append(row.Key, cells...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "mmp: network row")
		}
	}
	return out, nil
}

// UniqueColumnName returns name, or "name (#k)" with the smallest k >= 1
// not already used by t.
func UniqueColumnName(t *table.Table, name string) string {
	if t.ColumnIndex(name) < 0 {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s (#%d)", name, k)
		if t.ColumnIndex(candidate) < 0 {
			return candidate
		}
	}
}

// Components returns the connected components with at least one edge, each
// sorted ascending and ordered by their smallest row.
func (b *NetworkBuilder) Components(adj *AdjacencyList) [][]int {
	seen := make([]bool, adj.Len())
	var out [][]int
	for start := 0; start < adj.Len(); start++ {
		if seen[start] || adj.Degree(start) == 0 {
			continue
		}
		var group []int
		queue := []int{start}
		seen[start] = true
		for len(queue) > 0 {
			k := queue[0]
			queue = queue[1:]
			group = append(group, k)
			for _, j := range adj.Neighbors(k) {
				if !seen[j] {
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		sort.Ints(group)
		out = append(out, group)
	}
	return out
}

//Personal.AI order the ending
