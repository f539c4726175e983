package mmp

import (
	"sort"
)

// observationSet is an insertion-ordered set of observations keyed by
// ObservationKey.
type observationSet struct {
	seen  map[ObservationKey]struct{}
	items []Observation
}

func newObservationSet() *observationSet {
	return &observationSet{seen: make(map[ObservationKey]struct{}, 4)}
}

func (s *observationSet) add(o Observation) bool {
	k := o.Key()
	if _, dup := s.seen[k]; dup {
		return false
	}
	s.seen[k] = struct{}{}
	s.items = append(s.items, o)
	return true
}

// sortStable orders members by row index, then fragment, then id.  The
// result is independent of insertion order.
func (s *observationSet) sortStable() {
	sort.SliceStable(s.items, func(i, j int) bool {
		a, b := s.items[i], s.items[j]
		if a.RowIndex != b.RowIndex {
			return a.RowIndex < b.RowIndex
		}
		if a.Fragment != b.Fragment {
			return a.Fragment < b.Fragment
		}
		return a.ID < b.ID
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// ContextIndex
// ─────────────────────────────────────────────────────────────────────────────

// ContextIndex maps a context SMILES to the distinct observations sharing it.
// It only grows until Freeze; afterwards Add is rejected.
type ContextIndex struct {
	sets   map[string]*observationSet
	keys   []string
	frozen bool
	size   int
}

// NewContextIndex returns an empty index.
func NewContextIndex() *ContextIndex {
	return &ContextIndex{sets: make(map[string]*observationSet)}
}

// Add inserts o under o.Context.  It reports whether o was new.
func (x *ContextIndex) Add(o Observation) bool {
	if x.frozen {
		return false
	}
	set, ok := x.sets[o.Context]
	if !ok {
		set = newObservationSet()
		x.sets[o.Context] = set
	}
	if set.add(o) {
		x.size++
		return true
	}
	return false
}

// Contexts returns the context keys in lexicographic order.
func (x *ContextIndex) Contexts() []string {
	if x.frozen && x.keys != nil {
		return x.keys
	}
	keys := make([]string, 0, len(x.sets))
	for k := range x.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Observations returns the members of contextSmiles.  The slice must not be
// modified.
func (x *ContextIndex) Observations(contextSmiles string) []Observation {
	if set, ok := x.sets[contextSmiles]; ok {
		return set.items
	}
	return nil
}

// Freeze sorts every group and rejects further insertions.
func (x *ContextIndex) Freeze() {
	if x.frozen {
		return
	}
	for _, set := range x.sets {
		set.sortStable()
	}
	x.frozen = true
	x.keys = nil
	x.keys = x.Contexts()
}

// Frozen reports whether Freeze was called.
func (x *ContextIndex) Frozen() bool { return x.frozen }

// Len returns the number of contexts.
func (x *ContextIndex) Len() int { return len(x.sets) }

// Size returns the total number of observations.
func (x *ContextIndex) Size() int { return x.size }

// ─────────────────────────────────────────────────────────────────────────────
// WholeMoleculeIndex
// ─────────────────────────────────────────────────────────────────────────────

// WholeMoleculeIndex maps a whole-molecule canonical SMILES to the
// molecules having it.  Its observations carry an empty fragment.
type WholeMoleculeIndex struct {
	sets map[string]*observationSet
}

// NewWholeMoleculeIndex returns an empty index.
func NewWholeMoleculeIndex() *WholeMoleculeIndex {
	return &WholeMoleculeIndex{sets: make(map[string]*observationSet)}
}

// Add records rec under its canonical SMILES.
func (x *WholeMoleculeIndex) Add(rec MoleculeRecord) bool {
	o := observe(rec, "", "")
	set, ok := x.sets[rec.CanonicalSmiles]
	if !ok {
		set = newObservationSet()
		x.sets[rec.CanonicalSmiles] = set
	}
	return set.add(o)
}

// Lookup returns the molecules whose canonical SMILES is smiles.
func (x *WholeMoleculeIndex) Lookup(smiles string) []Observation {
	if set, ok := x.sets[smiles]; ok {
		return set.items
	}
	return nil
}

// Len returns the number of distinct whole molecules.
func (x *WholeMoleculeIndex) Len() int { return len(x.sets) }

//Personal.AI order the ending
