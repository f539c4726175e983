// Package mmp implements the matched molecular pair engine: single-cut
// fragmentation, context grouping with hydrogen augmentation, canonically
// oriented pair enumeration, pair table emission and the match network.
//
// Chemistry is delegated to a Toolkit.  One Run is single-threaded and keeps
// all intermediate state in memory; nothing is persisted here.
package mmp

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// Engine runs matched molecular pair analyses over input tables.
type Engine struct {
	toolkit   Toolkit
	logger    logging.Logger
	cacheSize int
	progress  ProgressFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCacheSize bounds the per-run canonicalization memo tables.
func WithCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// NewEngine returns an Engine backed by toolkit.
func NewEngine(toolkit Toolkit, opts ...Option) (*Engine, error) {
	if toolkit == nil {
		return nil, errors.InvalidParam("mmp: toolkit is required")
	}
	e := &Engine{
		toolkit:   toolkit,
		logger:    logging.NewNopLogger(),
		cacheSize: DefaultCanonicalCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// isFatal reports whether err must abort the run instead of being recorded
// as a warning.
func isFatal(err error) bool {
	return errors.IsCancelled(err) || errors.IsCode(err, errors.ErrCodeToolkitUnavailable)
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings resolution
// ─────────────────────────────────────────────────────────────────────────────

// plan is Settings bound to the columns of one input table.
type plan struct {
	molecule   int
	id         int // -1 selects the row key
	idType     table.ColumnType
	ratioIdx   []int
	diffIdx    []int
	layout     Layout
	networkCol string
}

func (r *run) resolve(input *table.Table, s Settings) (*plan, error) {
	p := &plan{id: -1, idType: table.TypeString}

	p.molecule = input.ColumnIndex(s.MoleculeColumn)
	if p.molecule < 0 {
		return nil, errors.Newf(errors.ErrCodeColumnNotFound, "mmp: molecule column %q not found", s.MoleculeColumn)
	}

	if !s.UseRowKey && s.IDColumn != "" {
		if idx := input.ColumnIndex(s.IDColumn); idx < 0 {
			r.configWarn(errors.ErrCodeColumnNotFound, fmt.Sprintf("id column %q not found, using row keys", s.IDColumn))
		} else {
			p.id = idx
			if input.Columns[idx].Type == table.TypeIntList {
				p.idType = table.TypeIntList
			}
		}
	}

	ratioNames, ratioIdx := r.propertyColumns(input, "ratio", s.RatioColumns)
	diffNames, diffIdx := r.propertyColumns(input, "diff", s.DiffColumns)
	if len(ratioNames) == 0 && len(diffNames) == 0 {
		r.configWarn(errors.CodeValidation, "no ratio or difference columns selected")
	}
	p.ratioIdx, p.diffIdx = ratioIdx, diffIdx

	precedence := s.Precedence
	switch {
	case precedence == "":
		precedence = PrecedenceRightOverLeft
	case !precedence.Valid():
		r.configWarn(errors.CodeValidation, fmt.Sprintf("unknown precedence %q, using %q", precedence, PrecedenceRightOverLeft))
		precedence = PrecedenceRightOverLeft
	}
	cp := s.ConnectionPoint
	if cp == "" {
		cp = DefaultConnectionPoint
	}
	p.layout = NewLayout(p.idType, cp, precedence, s.GenerateDuplicates, ratioNames, diffNames)

	p.networkCol = s.NetworkColumn
	if p.networkCol == "" {
		p.networkCol = DefaultNetworkColumn
	}
	if unique := UniqueColumnName(input, p.networkCol); unique != p.networkCol {
		r.configWarn(errors.ErrCodeTableFormat, fmt.Sprintf("column %q already exists, writing the network to %q", p.networkCol, unique))
		p.networkCol = unique
	}
	return p, nil
}

// propertyColumns keeps the known, distinct names of names.
func (r *run) propertyColumns(input *table.Table, kind string, names []string) ([]string, []int) {
	var (
		kept []string
		idx  []int
		seen = make(map[string]bool, len(names))
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		i := input.ColumnIndex(name)
		if i < 0 {
			r.configWarn(errors.ErrCodeColumnNotFound, fmt.Sprintf("%s column %q not found, ignored", kind, name))
			continue
		}
		kept = append(kept, name)
		idx = append(idx, i)
	}
	return kept, idx
}

// ─────────────────────────────────────────────────────────────────────────────
// Run
// ─────────────────────────────────────────────────────────────────────────────

// run is the mutable state of one Engine.Run call.
type run struct {
	engine   *Engine
	logger   logging.Logger
	canon    *Canonicalizer
	warnings []Warning
	stats    Stats
}

func (r *run) warn(kind WarningKind, row int, err error) {
	w := Warning{Kind: kind, Row: row, Code: errors.GetCode(err), Message: err.Error()}
	r.warnings = append(r.warnings, w)
	r.logger.Warn("mmp warning",
		logging.String("kind", string(kind)),
		logging.Int("row", row),
		logging.String("code", string(w.Code)),
		logging.Err(err))
}

func (r *run) configWarn(code errors.ErrorCode, msg string) {
	r.warn(WarningConfig, -1, errors.New(code, msg))
}

func (r *run) progress(phase Phase, done, total int) {
	if r.engine.progress != nil {
		r.engine.progress(phase, done, total)
	}
}

// Run executes one analysis of input under s.  Recoverable problems are
// returned as Result.Warnings.  Cancellation of ctx returns a CANCELLED
// error and no partial tables.
func (e *Engine) Run(ctx context.Context, input *table.Table, s Settings) (*Result, error) {
	if input == nil {
		return nil, errors.InvalidParam("mmp: input table is required")
	}
	if err := input.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "mmp: invalid input table")
	}
	canon, err := NewCanonicalizer(e.toolkit, e.cacheSize)
	if err != nil {
		return nil, err
	}
	r := &run{engine: e, logger: e.logger, canon: canon}
	start := time.Now()

	res, err := r.execute(ctx, input, s)
	if err != nil {
		if errors.IsCancelled(err) {
			e.logger.Info("mmp run cancelled", logging.Duration("elapsed", time.Since(start)))
			return nil, errors.Cancelled(err, "mmp: run cancelled")
		}
		e.logger.Error("mmp run failed", logging.Err(err))
		return nil, err
	}

	res.Stats.CacheHits, res.Stats.CacheMisses = canon.Stats()
	e.logger.Info("mmp run completed",
		logging.Int("input_rows", res.Stats.InputRows),
		logging.Int("skipped_rows", res.Stats.SkippedRows),
		logging.Int("contexts", res.Stats.Contexts),
		logging.Int("pairs", res.Stats.PairsEmitted),
		logging.Int("warnings", len(res.Warnings)),
		logging.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (r *run) execute(ctx context.Context, input *table.Table, s Settings) (*Result, error) {
	p, err := r.resolve(input, s)
	if err != nil {
		return nil, err
	}
	n := input.Len()
	r.stats.InputRows = n

	// Fragmentation.
	contexts := NewContextIndex()
	wholes := NewWholeMoleculeIndex()
	fragmenter := NewFragmenter(r.canon)
	for i := range input.Rows {
		if err := r.fragmentRow(ctx, input, p, i, fragmenter, contexts, wholes); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.progress(PhaseFragment, i+1, n)
	}

	// Hydrogen augmentation.
	augmented, err := NewAugmenter(r.canon).Augment(ctx, contexts, wholes, func(c string, err error) {
		r.warn(WarningPair, -1, errors.Wrapf(err, errors.ErrCodeCanonicalizationFailed, "augment context %s", c))
	})
	if err != nil {
		return nil, err
	}
	r.stats.AugmentedObservations = augmented
	r.progress(PhaseAugment, contexts.Len(), contexts.Len())
	contexts.Freeze()
	r.stats.Contexts = contexts.Len()
	r.stats.Observations = contexts.Size()

	// Enumeration and emission.
	enumerator := NewPairEnumerator(r.canon)
	emitter := NewPairEmitter(r.canon, p.layout, n)
	onPairError := func(pc PairCandidate, err error) {
		r.warn(WarningPair, pc.Left.RowIndex, err)
	}
	keys := contexts.Contexts()
	for k, c := range keys {
		pairs, err := enumerator.Enumerate(ctx, c, contexts.Observations(c), onPairError)
		if err != nil {
			return nil, err
		}
		for _, pc := range pairs {
			if err := emitter.Emit(ctx, pc, onPairError); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.progress(PhaseEnumerate, k+1, len(keys))
	}

	builder := NewNetworkBuilder(p.networkCol)
	network, err := builder.Build(input, emitter.Adjacency())
	if err != nil {
		return nil, err
	}
	components := builder.Components(emitter.Adjacency())

	r.stats.PairsEmitted = emitter.Emitted()
	r.stats.OutputRows = emitter.Table().Len()
	r.stats.Components = len(components)
	for i := 0; i < n; i++ {
		if emitter.Adjacency().Degree(i) > 0 {
			r.stats.ConnectedRows++
		}
	}
	return &Result{
		Pairs:      emitter.Table(),
		Network:    network,
		Adjacency:  emitter.Adjacency(),
		Components: components,
		Warnings:   r.warnings,
		Stats:      r.stats,
	}, nil
}

// fragmentRow builds the record of row i and fragments it.  Per-row
// failures become warnings; only fatal errors are returned.
func (r *run) fragmentRow(ctx context.Context, input *table.Table, p *plan, i int, f *Fragmenter, contexts *ContextIndex, wholes *WholeMoleculeIndex) error {
	skip := func(err error) error {
		if isFatal(err) {
			return err
		}
		r.stats.SkippedRows++
		r.warn(WarningRow, i, err)
		return nil
	}

	row := input.Rows[i]
	cell := row.Cells[p.molecule]
	if cell.IsMissing() || cell.Text() == "" {
		return skip(errors.New(errors.ErrCodeInvalidSMILES, "missing molecule"))
	}
	mol, err := r.canon.Parse(ctx, cell.Text())
	if err != nil {
		return skip(err)
	}
	whole, err := r.canon.CanonicalOf(ctx, mol)
	if err != nil {
		return skip(err)
	}

	rec := MoleculeRecord{
		RowIndex:        i,
		CanonicalSmiles: whole,
		RatioProps:      properties(row, p.ratioIdx),
		DiffProps:       properties(row, p.diffIdx),
	}
	rec.ID, rec.IDCell = r.identify(row, i, p)

	if _, err := f.Fragment(ctx, rec, mol, contexts, wholes); err != nil {
		return skip(err)
	}
	return nil
}

// identify returns the id text and output cell of row i.
func (r *run) identify(row table.Row, i int, p *plan) (string, table.Value) {
	if p.id < 0 {
		return row.Key, table.String(row.Key)
	}
	cell := row.Cells[p.id]
	if cell.IsMissing() {
		r.warn(WarningRow, i, errors.New(errors.CodeValidation, "missing id, using row key "+row.Key))
		if p.idType == table.TypeIntList {
			return row.Key, table.Missing()
		}
		return row.Key, table.String(row.Key)
	}
	if p.idType == table.TypeIntList {
		return cell.String(), cell
	}
	return cell.String(), table.String(cell.String())
}

func properties(row table.Row, idx []int) []*float64 {
	out := make([]*float64, len(idx))
	for k, c := range idx {
		if f, ok := row.Cells[c].Float(); ok {
			v := f
			out[k] = &v
		}
	}
	return out
}

//Personal.AI order the ending
