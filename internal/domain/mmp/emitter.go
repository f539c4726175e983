package mmp

import (
	"context"
	"math"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// Pairs table column names.
const (
	ColMoleculeL      = "Molecule_L"
	ColMoleculeR      = "Molecule_R"
	ColIDPair         = "ID_pair"
	ColIDL            = "ID_L"
	ColIDR            = "ID_R"
	ColTransformation = "Transformation"
	ColContext        = "Context"
	ColFragmentL      = "Fragment_L"
	ColFragmentR      = "Fragment_R"
	ColMCSDistance    = "MCS Distance"
	ColTransAtomCount = "Trans_Atom_Count"
)

// RatioColumn names the ratio column of property p.
func RatioColumn(p string) string { return "Ratio(" + p + ")" }

// DifferenceColumn names the difference column of property p.
func DifferenceColumn(p string) string { return "Difference(" + p + ")" }

// LeftColumn and RightColumn name the raw property columns of p.
func LeftColumn(p string) string  { return p + "_L" }
func RightColumn(p string) string { return p + "_R" }

// ─────────────────────────────────────────────────────────────────────────────
// Layout
// ─────────────────────────────────────────────────────────────────────────────

// Layout is the resolved shape of the pairs table.
type Layout struct {
	IDType          table.ColumnType
	ConnectionPoint string
	Precedence      Precedence
	Duplicates      bool
	Ratio           []string
	Diff            []string
	// diffRaw[i] is false when Diff[i] already has raw columns from Ratio.
	diffRaw []bool
}

// NewLayout builds a Layout.  ratio and diff must be free of duplicates.
func NewLayout(idType table.ColumnType, connectionPoint string, precedence Precedence, duplicates bool, ratio, diff []string) Layout {
	inRatio := make(map[string]bool, len(ratio))
	for _, p := range ratio {
		inRatio[p] = true
	}
	raw := make([]bool, len(diff))
	for i, p := range diff {
		raw[i] = !inRatio[p]
	}
	return Layout{
		IDType:          idType,
		ConnectionPoint: connectionPoint,
		Precedence:      precedence,
		Duplicates:      duplicates,
		Ratio:           ratio,
		Diff:            diff,
		diffRaw:         raw,
	}
}

// Columns returns the pairs table columns in order.
func (l Layout) Columns() []table.Column {
	cols := []table.Column{
		{Name: ColMoleculeL, Type: table.TypeSmiles},
		{Name: ColMoleculeR, Type: table.TypeSmiles},
		{Name: ColIDPair, Type: table.TypeString},
		{Name: ColIDL, Type: l.IDType},
		{Name: ColIDR, Type: l.IDType},
		{Name: ColTransformation, Type: table.TypeReaction},
		{Name: ColContext, Type: table.TypeSmiles},
		{Name: ColFragmentL, Type: table.TypeSmiles},
		{Name: ColFragmentR, Type: table.TypeSmiles},
	}
	for _, p := range l.Ratio {
		cols = append(cols,
			table.Column{Name: RatioColumn(p), Type: table.TypeDouble},
			table.Column{Name: LeftColumn(p), Type: table.TypeDouble},
			table.Column{Name: RightColumn(p), Type: table.TypeDouble},
		)
	}
	for i, p := range l.Diff {
		cols = append(cols, table.Column{Name: DifferenceColumn(p), Type: table.TypeDouble})
		if l.diffRaw[i] {
			cols = append(cols,
				table.Column{Name: LeftColumn(p), Type: table.TypeDouble},
				table.Column{Name: RightColumn(p), Type: table.TypeDouble},
			)
		}
	}
	return append(cols,
		table.Column{Name: ColMCSDistance, Type: table.TypeDouble},
		table.Column{Name: ColTransAtomCount, Type: table.TypeInt},
	)
}

// ratio returns the precedence-ordered ratio of left and right.
func (l Layout) ratio(left, right *float64) table.Value {
	if left == nil || right == nil {
		return table.Missing()
	}
	num, den := *right, *left
	if l.Precedence == PrecedenceLeftOverRight {
		num, den = *left, *right
	}
	if den == 0 {
		return table.Missing()
	}
	return table.Double(num / den)
}

func (l Layout) diff(left, right *float64) table.Value {
	if left == nil || right == nil {
		return table.Missing()
	}
	if l.Precedence == PrecedenceLeftOverRight {
		return table.Double(*left - *right)
	}
	return table.Double(*right - *left)
}

// MCSDistance is 1 - 2*(heavy(context)-1)/(heavy(left)+heavy(right)).  It is
// NaN when both molecules have no heavy atoms.
func MCSDistance(contextSmiles, left, right string) float64 {
	den := HeavyAtomCount(left) + HeavyAtomCount(right)
	if den == 0 {
		return math.NaN()
	}
	return 1 - 2*float64(HeavyAtomCount(contextSmiles)-1)/float64(den)
}

// ─────────────────────────────────────────────────────────────────────────────
// PairEmitter
// ─────────────────────────────────────────────────────────────────────────────

// PairEmitter turns oriented pairs into pairs table rows and records the
// match network.
type PairEmitter struct {
	canon     *Canonicalizer
	layout    Layout
	out       *table.Table
	adjacency *AdjacencyList
	emitted   int
}

// NewPairEmitter returns an emitter writing to a fresh table shaped by
// layout and connecting rows of an adjacency list sized for rows inputs.
func NewPairEmitter(canon *Canonicalizer, layout Layout, rows int) *PairEmitter {
	return &PairEmitter{
		canon:     canon,
		layout:    layout,
		out:       table.New(layout.Columns()...),
		adjacency: NewAdjacencyList(rows),
	}
}

// Emit appends the row of pc, then its swapped duplicate when enabled, and
// connects the two input rows once.  A transformation that cannot be built
// leaves the cell missing and is reported through onError; a returned
// error is fatal.
func (e *PairEmitter) Emit(ctx context.Context, pc PairCandidate, onError func(PairCandidate, error)) error {
	if err := e.emitRow(ctx, pc, onError); err != nil {
		return err
	}
	if e.layout.Duplicates {
		if err := e.emitRow(ctx, pc.Swapped(), onError); err != nil {
			return err
		}
	}
	e.adjacency.Connect(pc.Left.RowIndex, pc.Right.RowIndex)
	e.emitted++
	return nil
}

func (e *PairEmitter) emitRow(ctx context.Context, pc PairCandidate, onError func(PairCandidate, error)) error {
	l, r := pc.Left, pc.Right
	cp := e.layout.ConnectionPoint
	fragL := SubstituteConnectionPoints(l.Fragment, cp)
	fragR := SubstituteConnectionPoints(r.Fragment, cp)

	transformation, err := e.reaction(ctx, fragL, fragR)
	if err != nil {
		if isFatal(err) {
			return err
		}
		if onError != nil {
			onError(pc, err)
		}
	}

	cells := make([]table.Value, 0, len(e.out.Columns))
	cells = append(cells,
		table.String(l.WholeSmiles),
		table.String(r.WholeSmiles),
		table.String(l.ID+">>"+r.ID),
		l.IDCell,
		r.IDCell,
		transformation,
		table.String(SubstituteConnectionPoints(pc.Context, cp)),
		table.String(fragL),
		table.String(fragR),
	)
	for i := range e.layout.Ratio {
		lv, rv := l.RatioProps[i], r.RatioProps[i]
		cells = append(cells, e.layout.ratio(lv, rv), table.OptionalDouble(lv), table.OptionalDouble(rv))
	}
	for i := range e.layout.Diff {
		lv, rv := l.DiffProps[i], r.DiffProps[i]
		cells = append(cells, e.layout.diff(lv, rv))
		if e.layout.diffRaw[i] {
			cells = append(cells, table.OptionalDouble(lv), table.OptionalDouble(rv))
		}
	}
	cells = append(cells,
		table.Double(MCSDistance(pc.Context, l.WholeSmiles, r.WholeSmiles)),
		table.Int(int64(HeavyAtomCount(l.Fragment+r.Fragment))),
	)
	if err := e.out.Append("", cells...); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "mmp: pairs row")
	}
	return nil
}

// reaction round-trips both sides through the toolkit and returns the
// reaction record cell.
func (e *PairEmitter) reaction(ctx context.Context, left, right string) (table.Value, error) {
	if _, err := e.canon.Parse(ctx, left); err != nil {
		return table.Missing(), wrapToolkit(err, errors.ErrCodeReactionRecordFailed, "transformation left side")
	}
	if _, err := e.canon.Parse(ctx, right); err != nil {
		return table.Missing(), wrapToolkit(err, errors.ErrCodeReactionRecordFailed, "transformation right side")
	}
	return table.String(Reaction(left, right)), nil
}

// Table returns the pairs table built so far.
func (e *PairEmitter) Table() *table.Table { return e.out }

// Adjacency returns the match network built so far.
func (e *PairEmitter) Adjacency() *AdjacencyList { return e.adjacency }

// Emitted returns the number of distinct pairs emitted.
func (e *PairEmitter) Emitted() int { return e.emitted }

//Personal.AI order the ending
