package model

import "fmt"

// Row is one line of an editable attribute table.
type Row struct {
	Attribute string `json:"attribute"`
	Prompt    string `json:"prompt"`
}

// Table is the operator-editable two-column grid used before a commit.
// Rows keep the order the operator gave them.
type Table struct {
	Rows []Row `json:"rows"`
}

// NewTable builds a table from a mapping, one row per entry, sorted by
// attribute name.
func NewTable(a Attributes) *Table {
	t := &Table{Rows: make([]Row, 0, len(a))}
	for _, name := range a.Names() {
		t.Rows = append(t.Rows, Row{Attribute: name, Prompt: a[name]})
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// AddRow appends an empty row.
func (t *Table) AddRow() {
	t.Rows = append(t.Rows, Row{})
}

// DeleteRow removes the row at index i.
func (t *Table) DeleteRow(i int) error {
	if i < 0 || i >= len(t.Rows) {
		return fmt.Errorf("row %d out of range (%d rows)", i, len(t.Rows))
	}
	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
	return nil
}

// SetRows replaces the table contents with a copy of rows.
func (t *Table) SetRows(rows []Row) {
	t.Rows = append(make([]Row, 0, len(rows)), rows...)
}

// Reset empties the table.
func (t *Table) Reset() {
	t.Rows = nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{}
	c.SetRows(t.Rows)
	return c
}

// Attributes converts the table into a mapping. Rows with an empty
// attribute name are skipped; when a name repeats, the last row wins.
// Empty prompts are kept here and dropped later by Sanitize.
func (t *Table) Attributes() Attributes {
	out := Attributes{}
	for _, r := range t.Rows {
		if r.Attribute == "" {
			continue
		}
		out[r.Attribute] = r.Prompt
	}
	return out
}
