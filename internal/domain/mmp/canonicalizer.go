package mmp

import (
	"context"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// DefaultCanonicalCacheSize bounds each memo table of a Canonicalizer.
const DefaultCanonicalCacheSize = 1 << 16

// Canonicalizer memoizes toolkit parse and canonicalize calls for one run.
// A Canonicalizer is created per run and handed to the Fragmenter, the
// augmentation pass and the PairEnumerator.
type Canonicalizer struct {
	toolkit   Toolkit
	molecules *lru.Cache[string, Molecule]
	canonical *lru.Cache[string, string]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCanonicalizer wraps toolkit with memo tables of at most size entries.
// size <= 0 selects DefaultCanonicalCacheSize.
func NewCanonicalizer(toolkit Toolkit, size int) (*Canonicalizer, error) {
	if toolkit == nil {
		return nil, errors.InvalidParam("mmp: toolkit is required")
	}
	if size <= 0 {
		size = DefaultCanonicalCacheSize
	}
	molecules, err := lru.New[string, Molecule](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "mmp: molecule cache")
	}
	canonical, err := lru.New[string, string](size)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "mmp: canonical cache")
	}
	return &Canonicalizer{toolkit: toolkit, molecules: molecules, canonical: canonical}, nil
}

// Parse returns the toolkit molecule for smiles.
func (c *Canonicalizer) Parse(ctx context.Context, smiles string) (Molecule, error) {
	if m, ok := c.molecules.Get(smiles); ok {
		c.hits.Add(1)
		return m, nil
	}
	c.misses.Add(1)
	if strings.TrimSpace(smiles) == "" {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "empty SMILES")
	}
	m, err := c.toolkit.Parse(ctx, smiles)
	if err != nil {
		return nil, wrapToolkit(err, errors.ErrCodeInvalidSMILES, "parse "+smiles)
	}
	c.molecules.Add(smiles, m)
	return m, nil
}

// Canonical parses smiles and returns its canonical SMILES.
func (c *Canonicalizer) Canonical(ctx context.Context, smiles string) (string, error) {
	if s, ok := c.canonical.Get(smiles); ok {
		c.hits.Add(1)
		return s, nil
	}
	m, err := c.Parse(ctx, smiles)
	if err != nil {
		return "", err
	}
	return c.CanonicalOf(ctx, m)
}

// CanonicalOf returns the canonical SMILES of mol, keyed by mol.Smiles().
func (c *Canonicalizer) CanonicalOf(ctx context.Context, mol Molecule) (string, error) {
	key := mol.Smiles()
	if s, ok := c.canonical.Get(key); ok {
		c.hits.Add(1)
		return s, nil
	}
	c.misses.Add(1)
	s, err := c.toolkit.CanonicalSmiles(ctx, mol)
	if err != nil {
		return "", wrapToolkit(err, errors.ErrCodeCanonicalizationFailed, "canonicalize "+key)
	}
	c.canonical.Add(key, s)
	// A canonical string is its own canonical form.
	c.canonical.Add(s, s)
	return s, nil
}

// Toolkit returns the wrapped toolkit.
func (c *Canonicalizer) Toolkit() Toolkit { return c.toolkit }

// Stats returns the memo hit and miss counters.
func (c *Canonicalizer) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// wrapToolkit classifies a toolkit error.  Context errors and toolkit
// outages keep their identity so the engine can abort instead of skipping.
func wrapToolkit(err error, code errors.ErrorCode, msg string) error {
	switch {
	case errors.IsCancelled(err):
		return err
	case errors.IsCode(err, errors.ErrCodeToolkitUnavailable):
		return err
	}
	return errors.Wrap(err, code, msg)
}

//Personal.AI order the ending
