package mmp

import (
	"context"
)

// Molecule is an opaque structure owned by the cheminformatics toolkit.
type Molecule interface {
	// Smiles returns the text the molecule was parsed or produced from.
	Smiles() string
}

// CutPair is one outcome of a single-cut reaction.  Both fragments carry one
// open attachment point.
type CutPair struct {
	A Molecule
	B Molecule
}

// Toolkit is the external cheminformatics contract the engine depends on.
// Structure parsing, canonicalization and bond breaking are never done in
// this package.
type Toolkit interface {
	Parse(ctx context.Context, smiles string) (Molecule, error)
	CanonicalSmiles(ctx context.Context, mol Molecule) (string, error)
	ApplySingleCutReaction(ctx context.Context, mol Molecule) ([]CutPair, error)
	AtomCount(ctx context.Context, mol Molecule) (int, error)
}

// ProgressFunc receives (done, total) after each unit of work of a phase.
type ProgressFunc func(phase Phase, done, total int)

// Phase names a pass of the engine for progress reporting.
type Phase string

const (
	PhaseFragment  Phase = "fragment"
	PhaseAugment   Phase = "augment"
	PhaseEnumerate Phase = "enumerate"
)

//Personal.AI order the ending
