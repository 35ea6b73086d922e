// Package table holds fully materialized query results.
package table

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrColumnNotFound = errors.New("column not found")

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row is positional: Row[i] belongs to Columns[i].
type Row []any

// Table is a result set read to completion. An empty table means the query
// matched nothing; it never stands for a failed call.
type Table struct {
	Columns []Column
	Rows    []Row
}

func New(columns []Column) *Table {
	if columns == nil {
		columns = []Column{}
	}
	return &Table{Columns: columns, Rows: []Row{}}
}

func Empty() *Table {
	return New(nil)
}

// Append adds one row. The number of values must match the column count.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	row := make(Row, len(values))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// ColumnIndex looks a column up by exact name first, then case-insensitively.
// It returns -1 if there is no such column.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func (t *Table) Value(row int, column string) (any, error) {
	if row < 0 || row >= t.Len() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, t.Len())
	}
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	return t.Rows[row][idx], nil
}

// Project returns the values of one column, in row order.
func (t *Table) Project(column string) ([]any, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, column)
	}
	values := make([]any, 0, t.Len())
	for _, r := range t.Rows {
		values = append(values, r[idx])
	}
	return values, nil
}

// Maps converts every row into a column name -> value map.
func (t *Table) Maps() []map[string]any {
	out := make([]map[string]any, 0, t.Len())
	for _, r := range t.Rows {
		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			m[c.Name] = r[i]
		}
		out = append(out, m)
	}
	return out
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []Column         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
		Count   int              `json:"count"`
	}{
		Columns: t.Columns,
		Rows:    t.Maps(),
		Count:   t.Len(),
	})
}
