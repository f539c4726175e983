package mmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeavyAtomCount(t *testing.T) {
	tests := []struct {
		smiles string
		want   int
	}{
		{"", 0},
		{"c1ccccc1", 6},
		{"c1ccccc1Cl", 7},
		{"c1ccccc1Br", 7},
		{"c1ccccc1[*]", 7},
		{"*c1ccccc1", 7},
		{"*Cl", 2},
		{"*Cl*Br", 4},
		{"[*]Cl", 2},
		{"[*]Cl[*]Br", 4},
		{"[*H][*]Cl", 3},
		{"CC(=O)O", 4},
		{"C[N+](C)(C)C", 5},
		{"c1ccc2[nH]ccc2c1", 9},
		{"OCCN.Cl", 4},
		{"FC(F)(F)I", 5},
		{"[13CH3]O", 2},
	}
	for _, tt := range tests {
		t.Run(tt.smiles, func(t *testing.T) {
			assert.Equal(t, tt.want, HeavyAtomCount(tt.smiles))
		})
	}
}

func TestHeavyAtomCount_UnterminatedBracket(t *testing.T) {
	assert.Equal(t, 2, HeavyAtomCount("C[N"))
}

func TestSubstituteConnectionPoints(t *testing.T) {
	tests := []struct {
		name, smiles, symbol, want string
	}{
		{"noop star", "[*]Cl", "*", "[*]Cl"},
		{"noop empty", "[*]Cl", "", "[*]Cl"},
		{"bracketed", "[*]Cl", "U", "[U]Cl"},
		{"bracketed symbol", "[*]Cl", "[U]", "[U]Cl"},
		{"bare", "*c1ccccc1", "Ra", "[Ra]c1ccccc1"},
		{"map number", "[*:1]CC", "U", "[U:1]CC"},
		{"hydrogen sentinel", "[*H]", "U", "[UH]"},
		{"reaction", "[*]Cl>>[*]Br", "U", "[U]Cl>>[U]Br"},
		{"no wildcard", "CCO", "U", "CCO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubstituteConnectionPoints(tt.smiles, tt.symbol))
		})
	}
}

func TestHydrogenate(t *testing.T) {
	assert.Equal(t, "c1ccccc1[H]", Hydrogenate("c1ccccc1[*]"))
	assert.Equal(t, "[H]c1ccccc1", Hydrogenate("*c1ccccc1"))
	assert.Equal(t, "[H]CC", Hydrogenate("[*:1]CC"))
	assert.Equal(t, "C[NH2+]", Hydrogenate("C[NH2+]"))
	assert.Equal(t, "CC[", Hydrogenate("CC["))
}

func TestReaction(t *testing.T) {
	assert.Equal(t, "[*]Cl>>[*]Br", Reaction("[*]Cl", "[*]Br"))
}

//Personal.AI order the ending
