// Package table defines the typed, row-keyed data table exchanged between the
// MMP engine, the table codecs, the persistence sinks and the HTTP API.  No
// domain logic lives here, so it can be imported from any layer.
package table

import (
	"math"
	"strconv"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// ColumnType
// ─────────────────────────────────────────────────────────────────────────────

// ColumnType names the cell type a column holds.
type ColumnType string

const (
	TypeString       ColumnType = "string"
	TypeInt          ColumnType = "int"
	TypeDouble       ColumnType = "double"
	TypeIntList      ColumnType = "int_list"
	TypeDoubleVector ColumnType = "double_vector"
	TypeSmiles       ColumnType = "smiles"
	TypeReaction     ColumnType = "reaction"
)

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeDouble, TypeIntList, TypeDoubleVector, TypeSmiles, TypeReaction:
		return true
	}
	return false
}

// Numeric reports whether cells of t convert to a single float64.
func (t ColumnType) Numeric() bool {
	return t == TypeInt || t == TypeDouble
}

// ─────────────────────────────────────────────────────────────────────────────
// Value
// ─────────────────────────────────────────────────────────────────────────────

// Kind is the runtime kind of a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindDouble
	KindIntList
	KindDoubleVector
)

// Value is one immutable table cell.  The zero Value is missing.
//
// Text cells (string, smiles, reaction) share KindString; the column type
// carries the distinction.
type Value struct {
	kind   Kind
	text   string
	i      int64
	f      float64
	ints   []int64
	floats []float64
}

// Missing returns the missing cell.
func Missing() Value { return Value{} }

// String returns a text cell.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double returns a floating point cell.  NaN and ±Inf become missing.
func Double(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing()
	}
	return Value{kind: KindDouble, f: f}
}

// OptionalDouble returns Double(*f), or missing when f is nil.
func OptionalDouble(f *float64) Value {
	if f == nil {
		return Missing()
	}
	return Double(*f)
}

// IntList returns a list-of-int cell.  The slice is copied.
func IntList(ints ...int64) Value {
	cp := make([]int64, len(ints))
	copy(cp, ints)
	return Value{kind: KindIntList, ints: cp}
}

// DoubleVector returns a fixed-length numeric vector cell.  The slice is
// retained, not copied; callers must not mutate it afterwards.
func DoubleVector(floats []float64) Value {
	return Value{kind: KindDoubleVector, floats: floats}
}

// Kind returns the runtime kind.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the missing cell.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Text returns the text of a string cell, or "" for other kinds.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.text
	}
	return ""
}

// IntValue returns the integer of an int cell.
func (v Value) IntValue() (int64, bool) {
	return v.i, v.kind == KindInt
}

// Ints returns a copy of an int-list cell.
func (v Value) Ints() []int64 {
	if v.kind != KindIntList {
		return nil
	}
	cp := make([]int64, len(v.ints))
	copy(cp, v.ints)
	return cp
}

// Floats returns the elements of a vector cell.
func (v Value) Floats() []float64 {
	if v.kind != KindDoubleVector {
		return nil
	}
	return v.floats
}

// Float converts a numeric cell to float64.  String cells holding a number
// are parsed; everything else reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindString:
		return v.text == o.text
	case KindInt:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindIntList:
		if len(v.ints) != len(o.ints) {
			return false
		}
		for i := range v.ints {
			if v.ints[i] != o.ints[i] {
				return false
			}
		}
		return true
	case KindDoubleVector:
		if len(v.floats) != len(o.floats) {
			return false
		}
		for i := range v.floats {
			if v.floats[i] != o.floats[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v as text.  Missing renders as "", lists as "[1,2]".
// The rendering is deterministic and used by the CSV codec.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.text
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDouble:
		return FormatFloat(v.f)
	case KindIntList:
		parts := make([]string, len(v.ints))
		for i, n := range v.ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindDoubleVector:
		parts := make([]string, len(v.floats))
		for i, f := range v.floats {
			parts[i] = FormatFloat(f)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

// FormatFloat is the shortest round-tripping decimal form of f.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ParseIntList parses "[1,2,3]".  Blanks around elements are ignored.
func ParseIntList(s string) ([]int64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, false
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []int64{}, true
	}
	parts := strings.Split(body, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// ParseDoubleVector parses "[0,1.5,2]".
func ParseDoubleVector(s string) ([]float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, false
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []float64{}, true
	}
	parts := strings.Split(body, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

//Personal.AI order the ending
