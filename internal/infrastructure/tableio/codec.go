// Package tableio reads and writes table.Table values as CSV or JSON.
//
// CSV has no type information, so column types are inferred on read unless
// hints are given.  JSON carries explicit column types and round-trips
// exactly.
package tableio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// Format names a table encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// KeyColumn is the CSV header that carries row keys.
const KeyColumn = "RowID"

// ParseFormat validates a format name.  An empty name selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.Newf(errors.CodeInvalidParam, "tableio: unknown format %q", s)
}

// FormatFromPath derives the format from a file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// ─────────────────────────────────────────────────────────────────────────────
// Options
// ─────────────────────────────────────────────────────────────────────────────

type readOptions struct {
	hints map[string]table.ColumnType
	comma rune
}

// ReadOption configures Read.
type ReadOption func(*readOptions)

// WithColumnTypes fixes the types of the named CSV columns.
func WithColumnTypes(hints map[string]table.ColumnType) ReadOption {
	return func(o *readOptions) {
		for k, v := range hints {
			o.hints[k] = v
		}
	}
}

// WithComma sets the CSV field delimiter.
func WithComma(r rune) ReadOption {
	return func(o *readOptions) { o.comma = r }
}

// ─────────────────────────────────────────────────────────────────────────────
// Read / Write
// ─────────────────────────────────────────────────────────────────────────────

// Read decodes a table in format f.
func Read(r io.Reader, f Format, opts ...ReadOption) (*table.Table, error) {
	o := &readOptions{hints: map[string]table.ColumnType{}, comma: ','}
	for _, opt := range opts {
		opt(o)
	}
	switch f {
	case FormatJSON:
		var t table.Table
		if err := json.NewDecoder(r).Decode(&t); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "tableio: decode json table")
		}
		return &t, nil
	case FormatCSV, "":
		return readCSV(r, o)
	}
	return nil, errors.Newf(errors.CodeInvalidParam, "tableio: unknown format %q", f)
}

// Write encodes t in format f.  Output is deterministic.
func Write(w io.Writer, t *table.Table, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(t); err != nil {
			return errors.Wrap(err, errors.CodeSerialization, "tableio: encode json table")
		}
		return nil
	case FormatCSV, "":
		return writeCSV(w, t)
	}
	return errors.Newf(errors.CodeInvalidParam, "tableio: unknown format %q", f)
}

// ReadFile reads the table at path, choosing the format by extension.
func ReadFile(path string, opts ...ReadOption) (*table.Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "tableio: open "+path)
	}
	defer fh.Close()
	return Read(bufio.NewReader(fh), FormatFromPath(path), opts...)
}

// WriteFile writes t to path in format f, replacing any existing file.
func WriteFile(path string, t *table.Table, f Format) error {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "tableio: create "+path)
	}
	bw := bufio.NewWriter(fh)
	if err := Write(bw, t, f); err != nil {
		fh.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		fh.Close()
		return errors.Wrap(err, errors.CodeStorageError, "tableio: write "+path)
	}
	if err := fh.Close(); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "tableio: close "+path)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// CSV
// ─────────────────────────────────────────────────────────────────────────────

func readCSV(r io.Reader, o *readOptions) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = o.comma
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "tableio: read csv")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeTableFormat, "tableio: csv has no header")
	}

	header := records[0]
	keyed := len(header) > 0 && header[0] == KeyColumn
	names := header
	if keyed {
		names = header[1:]
	}
	body := records[1:]

	cols := make([]table.Column, len(names))
	for j, name := range names {
		src := j
		if keyed {
			src++
		}
		typ, ok := o.hints[name]
		if !ok {
			typ = inferType(body, src)
		}
		cols[j] = table.Column{Name: name, Type: typ}
	}

	t := table.New(cols...)
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "tableio: csv header")
	}
	for i, rec := range body {
		key := ""
		fields := rec
		if keyed {
			key, fields = rec[0], rec[1:]
		}
		cells := make([]table.Value, len(cols))
		for j, c := range cols {
			v, err := parseCell(c.Type, fields[j])
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrCodeTableFormat, "tableio: row %d column %q", i, c.Name)
			}
			cells[j] = v
		}
		if err := t.Append(key, cells...); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTableFormat, "tableio: csv row")
		}
	}
	return t, nil
}

// inferType picks the narrowest type that parses every non-empty cell of
// column j: int, double, int_list, double_vector, else string.
func inferType(rows [][]string, j int) table.ColumnType {
	candidates := []table.ColumnType{table.TypeInt, table.TypeDouble, table.TypeIntList, table.TypeDoubleVector}
	seen := false
	for _, row := range rows {
		s := strings.TrimSpace(row[j])
		if s == "" {
			continue
		}
		seen = true
		kept := candidates[:0]
		for _, c := range candidates {
			if _, err := parseCell(c, s); err == nil {
				kept = append(kept, c)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return table.TypeString
		}
	}
	if !seen {
		return table.TypeString
	}
	return candidates[0]
}

func parseCell(t table.ColumnType, s string) (table.Value, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return table.Missing(), nil
	}
	switch t {
	case table.TypeInt:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.Int(n), nil
	case table.TypeDouble:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.Double(f), nil
	case table.TypeIntList:
		ints, ok := table.ParseIntList(trimmed)
		if !ok {
			return table.Value{}, errors.Newf(errors.ErrCodeTableFormat, "not an int list: %q", s)
		}
		return table.IntList(ints...), nil
	case table.TypeDoubleVector:
		fs, ok := table.ParseDoubleVector(trimmed)
		if !ok {
			return table.Value{}, errors.Newf(errors.ErrCodeTableFormat, "not a vector: %q", s)
		}
		return table.DoubleVector(fs), nil
	}
	return table.String(s), nil
}

func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{KeyColumn}, t.ColumnNames()...)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "tableio: write csv header")
	}
	record := make([]string, len(header))
	for _, row := range t.Rows {
		record[0] = row.Key
		for j, v := range row.Cells {
			record[j+1] = v.String()
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.CodeSerialization, "tableio: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "tableio: flush csv")
	}
	return nil
}

//Personal.AI order the ending
