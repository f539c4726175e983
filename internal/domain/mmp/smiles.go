package mmp

import (
	"strings"
)

// HeavyAtomCount is a syntactic heavy-atom estimate over a SMILES string.
// Bracket atoms count one each, as do organic-subset atoms (B C N O P S F Cl
// Br I) and aromatic atoms (b c n o p s).  A wildcard attachment atom counts
// one whether written bare ('*') or bracketed ("[*]").  Counting stops at the
// first '.'.
func HeavyAtomCount(smiles string) int {
	n := 0
	for i := 0; i < len(smiles); i++ {
		switch ch := smiles[i]; ch {
		case '.':
			return n
		case '[':
			n++
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				return n
			}
			i += end
		case 'C':
			n++
			if i+1 < len(smiles) && smiles[i+1] == 'l' {
				i++
			}
		case 'B':
			n++
			if i+1 < len(smiles) && smiles[i+1] == 'r' {
				i++
			}
		case '*', 'N', 'O', 'P', 'S', 'F', 'I',
			'b', 'c', 'n', 'o', 'p', 's':
			n++
		}
	}
	return n
}

// SubstituteConnectionPoints replaces wildcard attachment atoms with symbol.
// A bracketed wildcard keeps its bracket decorations ("[*:1]" becomes
// "[U:1]"), a bare '*' becomes "[U]".  An empty or "*" symbol is a no-op.
func SubstituteConnectionPoints(smiles, symbol string) string {
	symbol = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(symbol), "["), "]")
	if symbol == "" || symbol == "*" || !strings.Contains(smiles, "*") {
		return smiles
	}
	var sb strings.Builder
	sb.Grow(len(smiles) + 4)
	inBracket := false
	for i := 0; i < len(smiles); i++ {
		ch := smiles[i]
		switch {
		case ch == '[':
			inBracket = true
			sb.WriteByte(ch)
		case ch == ']':
			inBracket = false
			sb.WriteByte(ch)
		case ch == '*' && inBracket:
			sb.WriteString(symbol)
		case ch == '*':
			sb.WriteString("[" + symbol + "]")
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// Hydrogenate replaces every wildcard atom with an explicit hydrogen, so
// "c1ccccc1[*]" and "*c1ccccc1" both become "c1ccccc1[H]"-style SMILES.
// Any bracket decoration on the wildcard (map numbers, implicit H) is dropped.
func Hydrogenate(smiles string) string {
	if !strings.Contains(smiles, "*") {
		return smiles
	}
	var sb strings.Builder
	sb.Grow(len(smiles) + 4)
	for i := 0; i < len(smiles); i++ {
		ch := smiles[i]
		switch ch {
		case '[':
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				sb.WriteString(smiles[i:])
				return sb.String()
			}
			atom := smiles[i : i+end+1]
			if len(atom) > 1 && atom[1] == '*' {
				sb.WriteString("[H]")
			} else {
				sb.WriteString(atom)
			}
			i += end
		case '*':
			sb.WriteString("[H]")
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// Reaction joins two sides into "left>>right".
func Reaction(left, right string) string {
	return left + ">>" + right
}

//Personal.AI order the ending
