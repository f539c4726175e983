package mmp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/testutil"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

func TestAdjacencyList(t *testing.T) {
	adj := mmp.NewAdjacencyList(4)
	adj.Connect(0, 2)
	adj.Connect(2, 0)
	adj.Connect(1, 1)
	adj.Connect(3, 9)

	assert.Equal(t, []int{2}, adj.Neighbors(0))
	assert.Equal(t, []int{0}, adj.Neighbors(2))
	assert.Empty(t, adj.Neighbors(1))
	assert.Empty(t, adj.Neighbors(3))
	assert.Nil(t, adj.Neighbors(7))
	assert.True(t, adj.Has(2, 0))
	assert.False(t, adj.Has(1, 1))
	assert.Equal(t, 4, adj.Len())
}

func TestNetworkBuilder_Build(t *testing.T) {
	in := table.New(table.Column{Name: "Smiles", Type: table.TypeSmiles})
	in.MustAppend("a", table.String("C"))
	in.MustAppend("b", table.String("CC"))
	in.MustAppend("c", table.String("CCC"))

	adj := mmp.NewAdjacencyList(3)
	adj.Connect(0, 2)

	out, err := mmp.NewNetworkBuilder("").Build(in, adj)
	require.NoError(t, err)
	assert.Equal(t, []string{"Smiles", mmp.DefaultNetworkColumn}, out.ColumnNames())
	assert.Equal(t, table.TypeDoubleVector, out.Columns[1].Type)
	assert.Equal(t, "a", out.Rows[0].Key)
	assert.Equal(t, []float64{0, 0, 1}, out.Cell(0, 1).Floats())
	assert.Equal(t, []float64{0, 0, 0}, out.Cell(1, 1).Floats())
	assert.Equal(t, []float64{1, 0, 0}, out.Cell(2, 1).Floats())

	// The input is left untouched.
	assert.Len(t, in.Columns, 1)
}

func TestNetworkBuilder_BuildErrors(t *testing.T) {
	in := table.New(table.Column{Name: "Net", Type: table.TypeString})
	in.MustAppend("", table.String("x"))

	_, err := mmp.NewNetworkBuilder("").Build(in, mmp.NewAdjacencyList(2))
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
}

func TestNetworkBuilder_BuildRenamesClashingColumn(t *testing.T) {
	in := table.New(
		table.Column{Name: "Net", Type: table.TypeString},
		table.Column{Name: "Net (#1)", Type: table.TypeString},
	)
	in.MustAppend("", table.String("x"), table.String("y"))

	out, err := mmp.NewNetworkBuilder("Net").Build(in, mmp.NewAdjacencyList(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"Net", "Net (#1)", "Net (#2)"}, out.ColumnNames())
}

func TestUniqueColumnName(t *testing.T) {
	in := table.New(table.Column{Name: "MMP Network", Type: table.TypeString})
	assert.Equal(t, "Other", mmp.UniqueColumnName(in, "Other"))
	assert.Equal(t, "MMP Network (#1)", mmp.UniqueColumnName(in, "MMP Network"))
}

func TestNetworkBuilder_Components(t *testing.T) {
	adj := mmp.NewAdjacencyList(6)
	adj.Connect(4, 1)
	adj.Connect(1, 0)
	adj.Connect(5, 3)

	assert.Equal(t, [][]int{{0, 1, 4}, {3, 5}}, mmp.NewNetworkBuilder("").Components(adj))
}

func TestCanonicalizer_Memoizes(t *testing.T) {
	tk := testutil.NewFakeToolkit()
	tk.Aliases["OCC"] = "CCO"
	canon, err := mmp.NewCanonicalizer(tk, 16)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s, err := canon.Canonical(ctx, "OCC")
		require.NoError(t, err)
		assert.Equal(t, "CCO", s)
	}
	again, err := canon.Canonical(ctx, "CCO")
	require.NoError(t, err)
	assert.Equal(t, "CCO", again)

	assert.Equal(t, 1, tk.Calls("parse"))
	assert.Equal(t, 1, tk.Calls("canonical"))
	hits, misses := canon.Stats()
	assert.Equal(t, uint64(3), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestCanonicalizer_Errors(t *testing.T) {
	tk := testutil.NewFakeToolkit()
	canon, err := mmp.NewCanonicalizer(tk, 0)
	require.NoError(t, err)

	_, err = canon.Canonical(context.Background(), "  ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSMILES))
	assert.Equal(t, 0, tk.Calls("parse"))

	tk.Err = errors.New(errors.ErrCodeToolkitUnavailable, "down")
	_, err = canon.Canonical(context.Background(), "CC")
	assert.Equal(t, errors.ErrCodeToolkitUnavailable, errors.GetCode(err))

	_, err = mmp.NewCanonicalizer(nil, 0)
	assert.Error(t, err)
}

func TestPairEnumerator_Orient(t *testing.T) {
	tk := testutil.NewFakeToolkit()
	canon, err := mmp.NewCanonicalizer(tk, 0)
	require.NoError(t, err)
	e := mmp.NewPairEnumerator(canon)

	cl := mmp.Observation{RowIndex: 0, Fragment: "[*]Cl", ID: "1"}
	br := mmp.Observation{RowIndex: 1, Fragment: "[*]Br", ID: "2"}

	got, err := e.Orient(context.Background(), mmp.PairCandidate{Left: cl, Right: br})
	require.NoError(t, err)
	assert.Equal(t, "2", got.Left.ID)

	got, err = e.Orient(context.Background(), mmp.PairCandidate{Left: br, Right: cl})
	require.NoError(t, err)
	assert.Equal(t, "2", got.Left.ID)
}

func TestPairEnumerator_EnumerateSkipsEqualFragments(t *testing.T) {
	canon, err := mmp.NewCanonicalizer(testutil.NewFakeToolkit(), 0)
	require.NoError(t, err)
	group := []mmp.Observation{
		{RowIndex: 0, Fragment: "[*]Cl", ID: "a"},
		{RowIndex: 1, Fragment: "[*]Cl", ID: "b"},
		{RowIndex: 2, Fragment: "[*]F", ID: "c"},
	}
	pairs, err := mmp.NewPairEnumerator(canon).Enumerate(context.Background(), "C[*]", group, nil)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	for _, p := range pairs {
		assert.NotEqual(t, p.Left.Fragment, p.Right.Fragment)
		assert.Equal(t, "C[*]", p.Context)
	}

	pairs, err = mmp.NewPairEnumerator(canon).Enumerate(context.Background(), "C[*]", group[:1], nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

//Personal.AI order the ending
