package mmp

import (
	"context"
	"math"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// Fragment is one accepted (context, variable) split of a molecule, both in
// canonical SMILES.
type Fragment struct {
	Context  string
	Variable string
}

// Fragmenter applies the single-cut reaction to molecules and keeps the
// splits whose variable side is small enough.
type Fragmenter struct {
	canon *Canonicalizer
}

// NewFragmenter returns a Fragmenter sharing canon's memo tables.
func NewFragmenter(canon *Canonicalizer) *Fragmenter {
	return &Fragmenter{canon: canon}
}

// Split returns the accepted fragment pairs of mol.
//
// For each cut (A, B) with sizeX = atomCount(X)-1, the pair is kept as
// (context=A, variable=B) when sizeB <= MaxVariableAtoms and
// sizeA/sizeB >= MinSizeRatio.
func (f *Fragmenter) Split(ctx context.Context, mol Molecule) ([]Fragment, error) {
	tk := f.canon.Toolkit()
	cuts, err := tk.ApplySingleCutReaction(ctx, mol)
	if err != nil {
		return nil, wrapToolkit(err, errors.ErrCodeFragmentationFailed, "single cut "+mol.Smiles())
	}

	out := make([]Fragment, 0, len(cuts))
	for _, cut := range cuts {
		atomsA, err := tk.AtomCount(ctx, cut.A)
		if err != nil {
			return nil, wrapToolkit(err, errors.ErrCodeFragmentationFailed, "atom count "+cut.A.Smiles())
		}
		atomsB, err := tk.AtomCount(ctx, cut.B)
		if err != nil {
			return nil, wrapToolkit(err, errors.ErrCodeFragmentationFailed, "atom count "+cut.B.Smiles())
		}
		if !acceptSplit(atomsA-1, atomsB-1) {
			continue
		}

		contextSmiles, err := f.canon.CanonicalOf(ctx, cut.A)
		if err != nil {
			return nil, err
		}
		variableSmiles, err := f.canon.CanonicalOf(ctx, cut.B)
		if err != nil {
			return nil, err
		}
		out = append(out, Fragment{Context: contextSmiles, Variable: variableSmiles})
	}
	return out, nil
}

// acceptSplit applies the size ratio heuristic.  A zero-sized variable side
// yields an infinite ratio and is accepted.
func acceptSplit(sizeA, sizeB int) bool {
	if sizeB > MaxVariableAtoms {
		return false
	}
	ratio := math.Inf(1)
	if sizeB != 0 {
		ratio = float64(sizeA) / float64(sizeB)
	}
	return ratio >= MinSizeRatio
}

// Fragment splits rec's molecule and records the results: one Observation
// per accepted split into contexts, and the whole molecule into wholes.
// On error nothing is recorded.  It returns the number of new context
// observations.
func (f *Fragmenter) Fragment(ctx context.Context, rec MoleculeRecord, mol Molecule, contexts *ContextIndex, wholes *WholeMoleculeIndex) (int, error) {
	splits, err := f.Split(ctx, mol)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, s := range splits {
		if contexts.Add(observe(rec, s.Variable, s.Context)) {
			added++
		}
	}
	wholes.Add(rec)
	return added, nil
}

//Personal.AI order the ending
