package mmp

import (
	"context"
)

// Augmenter adds the unsubstituted parent of every context series.
//
// For a context C, the parent is the whole molecule whose canonical SMILES
// equals canonical(C with '*' replaced by [H]).  Every such molecule joins
// C's group with fragment HydrogenFragment.
type Augmenter struct {
	canon *Canonicalizer
}

// NewAugmenter returns an Augmenter sharing canon's memo tables.
func NewAugmenter(canon *Canonicalizer) *Augmenter {
	return &Augmenter{canon: canon}
}

// ParentSmiles returns the canonical SMILES of context capped with hydrogen.
func (a *Augmenter) ParentSmiles(ctx context.Context, contextSmiles string) (string, error) {
	return a.canon.Canonical(ctx, Hydrogenate(contextSmiles))
}

// Augment inserts parent observations for every context of contexts.  The
// index must not be frozen yet.  Contexts whose capped form cannot be
// canonicalized are reported through onError and skipped; a returned error
// is fatal (cancellation or toolkit outage).
func (a *Augmenter) Augment(ctx context.Context, contexts *ContextIndex, wholes *WholeMoleculeIndex, onError func(contextSmiles string, err error)) (int, error) {
	added := 0
	for _, c := range contexts.Contexts() {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		parent, err := a.ParentSmiles(ctx, c)
		if err != nil {
			if isFatal(err) {
				return added, err
			}
			if onError != nil {
				onError(c, err)
			}
			continue
		}
		for _, whole := range wholes.Lookup(parent) {
			o := whole
			o.Fragment = HydrogenFragment
			o.Context = c
			if contexts.Add(o) {
				added++
			}
		}
	}
	return added, nil
}

//Personal.AI order the ending
