package domain

import "strings"

// Row is one spreadsheet record. Values are aligned with Dataset.Headers and
// missing cells are "".
type Row []string

// Dataset is an ordered table with a fixed header schema. Methods never
// mutate the receiver; derived datasets are deep copies.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// NewDataset builds a dataset whose rows are exactly len(headers) wide.
// Short rows are padded with "" and extra cells are dropped.
func NewDataset(headers []string, rows []Row) *Dataset {
	ds := &Dataset{
		Headers: append([]string(nil), headers...),
		Rows:    make([]Row, 0, len(rows)),
	}
	for _, r := range rows {
		ds.Rows = append(ds.Rows, fitRow(r, len(headers)))
	}
	return ds
}

func fitRow(r Row, width int) Row {
	out := make(Row, width)
	copy(out, r)
	return out
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Empty reports whether the dataset has no rows
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// ColumnIndex finds a header by exact name first, then by a trimmed
// case-insensitive comparison. It returns -1 when the column is absent.
func (d *Dataset) ColumnIndex(name string) int {
	if d == nil {
		return -1
	}
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	want := strings.TrimSpace(name)
	for i, h := range d.Headers {
		if strings.EqualFold(strings.TrimSpace(h), want) {
			return i
		}
	}
	return -1
}

// HasColumn reports whether ColumnIndex finds name
func (d *Dataset) HasColumn(name string) bool {
	return d.ColumnIndex(name) >= 0
}

// Value returns the cell at row i, column col, or "" when out of range
func (d *Dataset) Value(i, col int) string {
	if i < 0 || i >= d.Len() || col < 0 || col >= len(d.Rows[i]) {
		return ""
	}
	return d.Rows[i][col]
}

// Column returns a copy of the named column's values
func (d *Dataset) Column(name string) ([]string, bool) {
	col := d.ColumnIndex(name)
	if col < 0 {
		return nil, false
	}
	values := make([]string, d.Len())
	for i := range d.Rows {
		values[i] = d.Value(i, col)
	}
	return values, true
}

// Clone returns a deep copy
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	return NewDataset(d.Headers, d.Rows)
}

// WithColumn returns a copy with name set to values. An existing column of
// that name is overwritten in place; otherwise the column is appended.
// values shorter than the dataset leave the remaining cells empty.
func (d *Dataset) WithColumn(name string, values []string) *Dataset {
	out := d.Clone()
	col := out.ColumnIndex(name)
	if col < 0 {
		out.Headers = append(out.Headers, name)
		col = len(out.Headers) - 1
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], "")
		}
	}
	for i := range out.Rows {
		if i < len(values) {
			out.Rows[i][col] = values[i]
		} else {
			out.Rows[i][col] = ""
		}
	}
	return out
}

// Subset returns a copy holding the rows at the given indices, in order
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([]Row, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < d.Len() {
			rows = append(rows, d.Rows[i])
		}
	}
	return NewDataset(d.Headers, rows)
}

// Head returns a copy of the first n rows
func (d *Dataset) Head(n int) *Dataset {
	if n > d.Len() {
		n = d.Len()
	}
	if n < 0 {
		n = 0
	}
	return NewDataset(d.Headers, d.Rows[:n])
}

// Project returns a copy restricted to the named columns that exist, in the
// order given. Missing names are skipped.
func (d *Dataset) Project(names ...string) *Dataset {
	var headers []string
	var cols []int
	for _, n := range names {
		if c := d.ColumnIndex(n); c >= 0 {
			headers = append(headers, d.Headers[c])
			cols = append(cols, c)
		}
	}
	rows := make([]Row, d.Len())
	for i := range d.Rows {
		r := make(Row, len(cols))
		for j, c := range cols {
			r[j] = d.Value(i, c)
		}
		rows[i] = r
	}
	return &Dataset{Headers: headers, Rows: rows}
}
