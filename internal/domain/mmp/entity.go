package mmp

import (
	"fmt"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// Precedence selects the operand order of ratio and difference columns.
type Precedence string

const (
	// PrecedenceRightOverLeft computes R/L and R-L.
	PrecedenceRightOverLeft Precedence = "R/L and R-L"
	// PrecedenceLeftOverRight computes L/R and L-R.
	PrecedenceLeftOverRight Precedence = "L/R and L-R"
)

// Valid reports whether p is one of the two supported orders.
func (p Precedence) Valid() bool {
	return p == PrecedenceRightOverLeft || p == PrecedenceLeftOverRight
}

// ParsePrecedence accepts the full label or the short forms "R/L" and "L/R".
// An empty string selects PrecedenceRightOverLeft.
func ParsePrecedence(s string) (Precedence, error) {
	switch s {
	case "", "R/L", "r/l", string(PrecedenceRightOverLeft):
		return PrecedenceRightOverLeft, nil
	case "L/R", "l/r", string(PrecedenceLeftOverRight):
		return PrecedenceLeftOverRight, nil
	}
	return "", errors.Newf(errors.CodeInvalidParam, "unknown precedence %q", s)
}

const (
	// DefaultConnectionPoint leaves attachment atoms untouched.
	DefaultConnectionPoint = "*"
	// DefaultNetworkColumn names the appended weight-vector column.
	DefaultNetworkColumn = "MMP Network"
	// MaxVariableAtoms caps the heavy atoms of the variable fragment.
	MaxVariableAtoms = 15
	// MinSizeRatio is the minimum context/variable size ratio.
	MinSizeRatio = 1.0
	// HydrogenFragment marks a synthesized unsubstituted parent observation.
	HydrogenFragment = "[*H]"
)

// Settings is the configuration surface of one engine run.
type Settings struct {
	MoleculeColumn     string     `mapstructure:"molecule_column" json:"molecule_column" yaml:"molecule_column"`
	IDColumn           string     `mapstructure:"id_column" json:"id_column,omitempty" yaml:"id_column"`
	UseRowKey          bool       `mapstructure:"use_row_key" json:"use_row_key" yaml:"use_row_key"`
	ConnectionPoint    string     `mapstructure:"connection_point" json:"connection_point,omitempty" yaml:"connection_point"`
	RatioColumns       []string   `mapstructure:"ratio_columns" json:"ratio_columns,omitempty" yaml:"ratio_columns"`
	DiffColumns        []string   `mapstructure:"diff_columns" json:"diff_columns,omitempty" yaml:"diff_columns"`
	GenerateDuplicates bool       `mapstructure:"generate_duplicates" json:"generate_duplicates" yaml:"generate_duplicates"`
	Precedence         Precedence `mapstructure:"precedence" json:"precedence,omitempty" yaml:"precedence"`
	NetworkColumn      string     `mapstructure:"network_column" json:"network_column,omitempty" yaml:"network_column"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Records and observations
// ─────────────────────────────────────────────────────────────────────────────

// MoleculeRecord is one parsed input row.  Immutable once built.
type MoleculeRecord struct {
	RowIndex        int
	ID              string
	IDCell          table.Value
	CanonicalSmiles string
	RatioProps      []*float64
	DiffProps       []*float64
}

// ObservationKey is the set identity of an Observation.
type ObservationKey struct {
	ID       string
	Fragment string
	Context  string
}

// Observation records that a molecule carries Fragment at Context.
type Observation struct {
	RowIndex    int
	Fragment    string
	Context     string
	ID          string
	IDCell      table.Value
	RatioProps  []*float64
	DiffProps   []*float64
	WholeSmiles string
}

// Key returns the set identity of o.
func (o Observation) Key() ObservationKey {
	return ObservationKey{ID: o.ID, Fragment: o.Fragment, Context: o.Context}
}

// observe builds an Observation for rec with the given fragment and context.
func observe(rec MoleculeRecord, fragment, contextSmiles string) Observation {
	return Observation{
		RowIndex:    rec.RowIndex,
		Fragment:    fragment,
		Context:     contextSmiles,
		ID:          rec.ID,
		IDCell:      rec.IDCell,
		RatioProps:  rec.RatioProps,
		DiffProps:   rec.DiffProps,
		WholeSmiles: rec.CanonicalSmiles,
	}
}

// PairCandidate is an oriented pair of observations sharing Context.
type PairCandidate struct {
	Left    Observation
	Right   Observation
	Context string
}

// Swapped returns the pair with Left and Right exchanged.
func (p PairCandidate) Swapped() PairCandidate {
	return PairCandidate{Left: p.Right, Right: p.Left, Context: p.Context}
}

// ─────────────────────────────────────────────────────────────────────────────
// Warnings and results
// ─────────────────────────────────────────────────────────────────────────────

// WarningKind classifies a recoverable problem.
type WarningKind string

const (
	WarningRow    WarningKind = "row"
	WarningPair   WarningKind = "pair"
	WarningConfig WarningKind = "config"
)

// Warning is a recoverable problem recorded during a run.
type Warning struct {
	Kind    WarningKind      `json:"kind"`
	Row     int              `json:"row"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (w Warning) String() string {
	if w.Row >= 0 {
		return fmt.Sprintf("%s warning [%s] row %d: %s", w.Kind, w.Code, w.Row, w.Message)
	}
	return fmt.Sprintf("%s warning [%s]: %s", w.Kind, w.Code, w.Message)
}

// Stats summarises one run.
type Stats struct {
	InputRows             int    `json:"input_rows"`
	SkippedRows           int    `json:"skipped_rows"`
	Contexts              int    `json:"contexts"`
	Observations          int    `json:"observations"`
	AugmentedObservations int    `json:"augmented_observations"`
	PairsEmitted          int    `json:"pairs_emitted"`
	OutputRows            int    `json:"output_rows"`
	ConnectedRows         int    `json:"connected_rows"`
	Components            int    `json:"components"`
	CacheHits             uint64 `json:"cache_hits"`
	CacheMisses           uint64 `json:"cache_misses"`
}

// Result holds the two output tables of a completed run.
type Result struct {
	Pairs      *table.Table
	Network    *table.Table
	Adjacency  *AdjacencyList
	Components [][]int
	Warnings   []Warning
	Stats      Stats
}

//Personal.AI order the ending
