package model

// RawRowColumn holds the verbatim serialization of each captured row
const RawRowColumn = "raw_row"

// Row is one record keyed by column name
type Row map[string]Value

// Get returns the value of a column, or a missing text value if the
// column is not present in the row
func (r Row) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return Missing(KindText)
}

// Clone returns a shallow copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Batch is an ordered set of columns plus the rows of one entity
type Batch struct {
	Entity  string
	Columns []string
	Rows    []Row
}

// NewBatch creates an empty batch with the given columns
func NewBatch(entity string, columns []string) *Batch {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Batch{
		Entity:  entity,
		Columns: cols,
		Rows:    make([]Row, 0),
	}
}

// Len returns the number of rows
func (b *Batch) Len() int {
	return len(b.Rows)
}

// HasColumn reports whether the batch declares a column
func (b *Batch) HasColumn(name string) bool {
	return b.columnIndex(name) >= 0
}

func (b *Batch) columnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a column name if it is not already declared
func (b *Batch) AddColumn(name string) {
	if !b.HasColumn(name) {
		b.Columns = append(b.Columns, name)
	}
}

// DropColumn removes a column from the declaration and from every row
func (b *Batch) DropColumn(name string) {
	idx := b.columnIndex(name)
	if idx < 0 {
		return
	}
	b.Columns = append(b.Columns[:idx:idx], b.Columns[idx+1:]...)
	for _, row := range b.Rows {
		delete(row, name)
	}
}

// Append adds a row to the batch
func (b *Batch) Append(row Row) {
	b.Rows = append(b.Rows, row)
}

// WithRows returns a batch with the same entity and columns holding rows
func (b *Batch) WithRows(rows []Row) *Batch {
	out := NewBatch(b.Entity, b.Columns)
	out.Rows = rows
	return out
}

// Clone deep-copies the batch so stages never mutate their input
func (b *Batch) Clone() *Batch {
	out := NewBatch(b.Entity, b.Columns)
	out.Rows = make([]Row, len(b.Rows))
	for i, row := range b.Rows {
		out.Rows[i] = row.Clone()
	}
	return out
}

// Project keeps only the listed columns that exist, in the listed order
func (b *Batch) Project(columns []string) *Batch {
	keep := make([]string, 0, len(columns))
	for _, c := range columns {
		if b.HasColumn(c) {
			keep = append(keep, c)
		}
	}

	out := NewBatch(b.Entity, keep)
	out.Rows = make([]Row, len(b.Rows))
	for i, row := range b.Rows {
		projected := make(Row, len(keep))
		for _, c := range keep {
			projected[c] = row.Get(c)
		}
		out.Rows[i] = projected
	}
	return out
}

// MissingColumns returns the names from want that the batch does not declare
func (b *Batch) MissingColumns(want ...string) []string {
	var missing []string
	for _, c := range want {
		if !b.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	return missing
}
