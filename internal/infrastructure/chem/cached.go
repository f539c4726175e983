package chem

import (
	"context"
	"time"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/database/redis"
)

// DefaultCacheTTL is the lifetime of shared toolkit cache entries.
const DefaultCacheTTL = 7 * 24 * time.Hour

// CachedToolkit shares canonical SMILES and atom counts across runs and
// processes through redis.  Parse and single-cut calls go straight to the
// wrapped toolkit, since their results are toolkit-owned molecules.
type CachedToolkit struct {
	next  mmp.Toolkit
	cache redis.Cache
	ttl   time.Duration
	onHit func(op string, hit bool)
}

// CachedOption configures a CachedToolkit.
type CachedOption func(*CachedToolkit)

// WithCacheTTL sets the entry lifetime.
func WithCacheTTL(ttl time.Duration) CachedOption {
	return func(t *CachedToolkit) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithCacheObserver receives one call per lookup.
func WithCacheObserver(fn func(op string, hit bool)) CachedOption {
	return func(t *CachedToolkit) { t.onHit = fn }
}

// NewCachedToolkit decorates next with cache.
func NewCachedToolkit(next mmp.Toolkit, cache redis.Cache, opts ...CachedOption) *CachedToolkit {
	t := &CachedToolkit{next: next, cache: cache, ttl: DefaultCacheTTL}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Parse implements mmp.Toolkit.
func (t *CachedToolkit) Parse(ctx context.Context, smiles string) (mmp.Molecule, error) {
	return t.next.Parse(ctx, smiles)
}

// ApplySingleCutReaction implements mmp.Toolkit.
func (t *CachedToolkit) ApplySingleCutReaction(ctx context.Context, mol mmp.Molecule) ([]mmp.CutPair, error) {
	return t.next.ApplySingleCutReaction(ctx, mol)
}

// CanonicalSmiles implements mmp.Toolkit.
func (t *CachedToolkit) CanonicalSmiles(ctx context.Context, mol mmp.Molecule) (string, error) {
	var out string
	loaded := false
	err := t.cache.GetOrSet(ctx, "canon:"+mol.Smiles(), &out, t.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return t.next.CanonicalSmiles(ctx, mol)
	})
	t.record(OpCanonical, !loaded)
	if err != nil {
		return "", err
	}
	return out, nil
}

// AtomCount implements mmp.Toolkit.
func (t *CachedToolkit) AtomCount(ctx context.Context, mol mmp.Molecule) (int, error) {
	var out int
	loaded := false
	err := t.cache.GetOrSet(ctx, "atoms:"+mol.Smiles(), &out, t.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return t.next.AtomCount(ctx, mol)
	})
	t.record(OpAtomCount, !loaded)
	if err != nil {
		return 0, err
	}
	return out, nil
}

func (t *CachedToolkit) record(op string, hit bool) {
	if t.onHit != nil {
		t.onHit(op, hit)
	}
}

var _ mmp.Toolkit = (*CachedToolkit)(nil)

//Personal.AI order the ending
