package mmp

import (
	"context"
	"strings"
)

// PairEnumerator lists the oriented pairs of a context group.
type PairEnumerator struct {
	canon *Canonicalizer
}

// NewPairEnumerator returns a PairEnumerator sharing canon's memo tables.
func NewPairEnumerator(canon *Canonicalizer) *PairEnumerator {
	return &PairEnumerator{canon: canon}
}

// Enumerate returns every unordered pair of group with distinct fragments,
// each canonically oriented.  Groups smaller than two yield nothing.
//
// A pair whose orientation cannot be computed is kept in discovery order and
// reported through onError; a returned error is fatal.
func (e *PairEnumerator) Enumerate(ctx context.Context, contextSmiles string, group []Observation, onError func(PairCandidate, error)) ([]PairCandidate, error) {
	if len(group) < 2 {
		return nil, nil
	}
	out := make([]PairCandidate, 0, len(group)*(len(group)-1)/2)
	for i := 0; i < len(group)-1; i++ {
		for j := i + 1; j < len(group); j++ {
			left, right := group[i], group[j]
			if left.Fragment == right.Fragment {
				continue
			}
			pc, err := e.Orient(ctx, PairCandidate{Left: left, Right: right, Context: contextSmiles})
			if err != nil {
				if isFatal(err) {
					return nil, err
				}
				if onError != nil {
					onError(pc, err)
				}
			}
			out = append(out, pc)
		}
	}
	return out, nil
}

// Orient returns pc in canonical orientation.
//
// The combined SMILES "left.right" is canonicalized and split on '.'; the
// first component is canonicalized again.  If it equals canonical(left) the
// pair is kept, otherwise it is swapped.  On error pc is returned unchanged
// together with the error.
func (e *PairEnumerator) Orient(ctx context.Context, pc PairCandidate) (PairCandidate, error) {
	combined, err := e.canon.Canonical(ctx, pc.Left.Fragment+"."+pc.Right.Fragment)
	if err != nil {
		return pc, err
	}
	first := combined
	if i := strings.IndexByte(combined, '.'); i >= 0 {
		first = combined[:i]
	}
	firstCanonical, err := e.canon.Canonical(ctx, first)
	if err != nil {
		return pc, err
	}
	leftCanonical, err := e.canon.Canonical(ctx, pc.Left.Fragment)
	if err != nil {
		return pc, err
	}
	if firstCanonical == leftCanonical {
		return pc, nil
	}
	return pc.Swapped(), nil
}

//Personal.AI order the ending
