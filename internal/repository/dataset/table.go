// Package dataset reads and writes the Common Voice CSV file.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is a whole CSV file held in memory, addressed by row number and column name.
// Not safe for concurrent use.
type Table struct {
	header []string
	cols   map[string]int
	rows   [][]string
}

// Read loads a CSV file with a header row. Short rows are padded with empty cells.
func Read(path string) (*Table, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Parse reads CSV content with a header row.
func Parse(r io.Reader) (*Table, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{header: trimHeader(header)}
	t.reindex()

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.rows)+1, err)
		}
		t.rows = append(t.rows, t.fit(rec))
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	out := make([]string, len(t.header))
	copy(out, t.header)
	return out
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// EnsureColumn appends an empty column unless it already exists.
func (t *Table) EnsureColumn(name string) {
	if t.HasColumn(name) {
		return
	}
	t.header = append(t.header, name)
	t.reindex()
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
}

// Get returns a cell value; unknown columns read as empty.
func (t *Table) Get(row int, col string) string {
	c, ok := t.cols[col]
	if !ok {
		return ""
	}
	return t.rows[row][c]
}

// Set writes a cell value. The column must exist.
func (t *Table) Set(row int, col, value string) error {
	c, ok := t.cols[col]
	if !ok {
		return fmt.Errorf("unknown column %q", col)
	}
	t.rows[row][c] = value
	return nil
}

// Row returns a row as a column-name map.
func (t *Table) Row(row int) map[string]string {
	m := make(map[string]string, len(t.header))
	for i, name := range t.header {
		m[name] = t.rows[row][i]
	}
	return m
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteFile saves the table atomically: a temp file in the same directory is renamed over path.
func (t *Table) WriteFile(path string) error {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Each streams rows of a CSV file to fn with their zero-based row number.
// Stops at the first error from fn or when ctx is done.
func Each(ctx context.Context, path string, fn func(seq int, row map[string]string) error) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cr := newReader(f)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header %s: %w", path, err)
	}
	header = trimHeader(header)

	for seq := 0; ; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", seq+1, err)
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		if err := fn(seq, row); err != nil {
			return err
		}
	}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// trimHeader strips a UTF-8 BOM and surrounding whitespace from column names.
func trimHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}

func (t *Table) reindex() {
	t.cols = make(map[string]int, len(t.header))
	for i, name := range t.header {
		if _, dup := t.cols[name]; !dup {
			t.cols[name] = i
		}
	}
}

func (t *Table) fit(rec []string) []string {
	row := make([]string, len(t.header))
	copy(row, rec)
	return row
}
