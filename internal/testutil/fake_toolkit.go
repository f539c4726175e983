package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/turtacn/KeyIP-MMP/internal/domain/mmp"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
)

// FakeMolecule is the molecule type of FakeToolkit.
type FakeMolecule struct {
	Text string
}

// Smiles implements mmp.Molecule.
func (m FakeMolecule) Smiles() string { return m.Text }

// FakeToolkit is a deterministic in-process mmp.Toolkit.
//
//   - Canonical form: each dot component is mapped through Aliases, then the
//     components are sorted and re-joined with '.'.
//   - Single cuts: looked up in Cuts by canonical SMILES; unknown molecules
//     have no cuts.
//   - Atom count: bracket atoms, bare '*' and organic-subset letters.
//
// Parse rejects empty strings, unbalanced brackets and anything listed in
// Invalid.  Molecules listed in FailCut fail the single-cut reaction.
type FakeToolkit struct {
	Aliases map[string]string
	Cuts    map[string][][2]string
	Invalid map[string]bool
	FailCut map[string]bool

	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls map[string]int
}

// NewFakeToolkit returns an empty FakeToolkit.
func NewFakeToolkit() *FakeToolkit {
	return &FakeToolkit{
		Aliases: map[string]string{},
		Cuts:    map[string][][2]string{},
		Invalid: map[string]bool{},
		FailCut: map[string]bool{},
		calls:   map[string]int{},
	}
}

// AddCut registers a single-cut outcome (a, b) for molecule smiles.
func (f *FakeToolkit) AddCut(smiles, a, b string) *FakeToolkit {
	key := f.canonical(smiles)
	f.Cuts[key] = append(f.Cuts[key], [2]string{a, b})
	return f
}

// AddBidirectionalCut registers (a, b) and (b, a), as a real toolkit would
// report both orientations of one broken bond.
func (f *FakeToolkit) AddBidirectionalCut(smiles, a, b string) *FakeToolkit {
	return f.AddCut(smiles, a, b).AddCut(smiles, b, a)
}

// Calls returns how often op was invoked.
func (f *FakeToolkit) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FakeToolkit) record(op string) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
	f.mu.Unlock()
}

func (f *FakeToolkit) canonical(smiles string) string {
	parts := strings.Split(smiles, ".")
	for i, p := range parts {
		if alias, ok := f.Aliases[p]; ok {
			p = alias
		}
		parts[i] = p
	}
	sort.Strings(parts)
	return strings.Join(parts, ".")
}

// Parse implements mmp.Toolkit.
func (f *FakeToolkit) Parse(ctx context.Context, smiles string) (mmp.Molecule, error) {
	f.record("parse")
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	if smiles == "" || f.Invalid[smiles] || strings.Count(smiles, "[") != strings.Count(smiles, "]") {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "unparseable SMILES").WithDetail(smiles)
	}
	return FakeMolecule{Text: smiles}, nil
}

// CanonicalSmiles implements mmp.Toolkit.
func (f *FakeToolkit) CanonicalSmiles(ctx context.Context, mol mmp.Molecule) (string, error) {
	f.record("canonical")
	if err := f.check(ctx); err != nil {
		return "", err
	}
	return f.canonical(mol.Smiles()), nil
}

// ApplySingleCutReaction implements mmp.Toolkit.
func (f *FakeToolkit) ApplySingleCutReaction(ctx context.Context, mol mmp.Molecule) ([]mmp.CutPair, error) {
	f.record("cut")
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	key := f.canonical(mol.Smiles())
	if f.FailCut[key] || f.FailCut[mol.Smiles()] {
		return nil, fmt.Errorf("fake toolkit: invalid valence in %s", mol.Smiles())
	}
	var out []mmp.CutPair
	for _, c := range f.Cuts[key] {
		out = append(out, mmp.CutPair{A: FakeMolecule{Text: c[0]}, B: FakeMolecule{Text: c[1]}})
	}
	return out, nil
}

// AtomCount implements mmp.Toolkit.
func (f *FakeToolkit) AtomCount(ctx context.Context, mol mmp.Molecule) (int, error) {
	f.record("atoms")
	if err := f.check(ctx); err != nil {
		return 0, err
	}
	s := mol.Smiles()
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			n++
			if end := strings.IndexByte(s[i:], ']'); end > 0 {
				i += end
			}
		case '*':
			n++
		case 'C':
			n++
			if i+1 < len(s) && s[i+1] == 'l' {
				i++
			}
		case 'B':
			n++
			if i+1 < len(s) && s[i+1] == 'r' {
				i++
			}
		case 'N', 'O', 'P', 'S', 'F', 'I', 'b', 'c', 'n', 'o', 'p', 's':
			n++
		}
	}
	return n, nil
}

func (f *FakeToolkit) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.Err
}

var _ mmp.Toolkit = (*FakeToolkit)(nil)

//Personal.AI order the ending
