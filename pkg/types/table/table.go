package table

import (
	"encoding/json"
	"fmt"
	"math"
)

// Column describes one table column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Row is one keyed table row.  len(Cells) always equals the column count of
// the owning table.
type Row struct {
	Key   string  `json:"key"`
	Cells []Value `json:"cells"`
}

// Table is an ordered, typed, row-keyed table.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New creates an empty table with the given columns.
func New(columns ...Column) *Table {
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// DefaultRowKey is the key assigned to row i when the source has none.
func DefaultRowKey(i int) string {
	return fmt.Sprintf("Row%d", i)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Append adds a row.  An empty key becomes DefaultRowKey.
func (t *Table) Append(key string, cells ...Value) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("table: row %q has %d cells, want %d", key, len(cells), len(t.Columns))
	}
	if key == "" {
		key = DefaultRowKey(len(t.Rows))
	}
	cp := make([]Value, len(cells))
	copy(cp, cells)
	t.Rows = append(t.Rows, Row{Key: key, Cells: cp})
	return nil
}

// MustAppend is Append that panics on arity mismatch.  Test and fixture use.
func (t *Table) MustAppend(key string, cells ...Value) {
	if err := t.Append(key, cells...); err != nil {
		panic(err)
	}
}

// Cell returns the cell at (row, col).
func (t *Table) Cell(row, col int) Value {
	return t.Rows[row].Cells[col]
}

// Validate checks column types and row arity.
func (t *Table) Validate() error {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Type.Valid() {
			return fmt.Errorf("table: column %q has unknown type %q", c.Name, c.Type)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("table: duplicate column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i, r := range t.Rows {
		if len(r.Cells) != len(t.Columns) {
			return fmt.Errorf("table: row %d (%q) has %d cells, want %d", i, r.Key, len(r.Cells), len(t.Columns))
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// JSON
// ─────────────────────────────────────────────────────────────────────────────

// MarshalJSON renders a cell as null, a string, a number or an array.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.text)
	case KindInt:
		return json.Marshal(v.i)
	case KindDouble:
		return json.Marshal(v.f)
	case KindIntList:
		return json.Marshal(v.ints)
	case KindDoubleVector:
		clean := make([]interface{}, len(v.floats))
		for i, f := range v.floats {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				clean[i] = nil
				continue
			}
			clean[i] = f
		}
		return json.Marshal(clean)
	}
	return []byte("null"), nil
}

// DecodeValue converts a raw JSON cell into a Value of column type t.
func DecodeValue(t ColumnType, raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Missing(), nil
	}
	switch t {
	case TypeString, TypeSmiles, TypeReaction:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case TypeInt:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, err
		}
		return Int(n), nil
	case TypeDouble:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, err
		}
		return Double(f), nil
	case TypeIntList:
		var ints []int64
		if err := json.Unmarshal(raw, &ints); err != nil {
			return Value{}, err
		}
		return IntList(ints...), nil
	case TypeDoubleVector:
		var fs []float64
		if err := json.Unmarshal(raw, &fs); err != nil {
			return Value{}, err
		}
		return DoubleVector(fs), nil
	}
	return Value{}, fmt.Errorf("table: unknown column type %q", t)
}

type rawRow struct {
	Key   string            `json:"key"`
	Cells []json.RawMessage `json:"cells"`
}

type rawTable struct {
	Columns []Column `json:"columns"`
	Rows    []rawRow `json:"rows"`
}

// UnmarshalJSON decodes cells according to the declared column types.
func (t *Table) UnmarshalJSON(data []byte) error {
	var raw rawTable
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Table{Columns: raw.Columns, Rows: make([]Row, 0, len(raw.Rows))}
	for _, c := range out.Columns {
		if !c.Type.Valid() {
			return fmt.Errorf("table: column %q has unknown type %q", c.Name, c.Type)
		}
	}
	for i, rr := range raw.Rows {
		if len(rr.Cells) != len(out.Columns) {
			return fmt.Errorf("table: row %d has %d cells, want %d", i, len(rr.Cells), len(out.Columns))
		}
		cells := make([]Value, len(rr.Cells))
		for j, rc := range rr.Cells {
			v, err := DecodeValue(out.Columns[j].Type, rc)
			if err != nil {
				return fmt.Errorf("table: row %d column %q: %w", i, out.Columns[j].Name, err)
			}
			cells[j] = v
		}
		key := rr.Key
		if key == "" {
			key = DefaultRowKey(i)
		}
		out.Rows = append(out.Rows, Row{Key: key, Cells: cells})
	}
	*t = out
	return nil
}

//Personal.AI order the ending
