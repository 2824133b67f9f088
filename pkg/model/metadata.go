// pkg/model/metadata.go
package model

import "strings"

// Schema is the ordered column→type declaration for one entity
type Schema struct {
	Entity  string   // Entity the schema belongs to
	Columns []Column // Declared columns, in declaration order
}

// Column represents a declared column
type Column struct {
	Name string // Column name after header normalization
	Kind Kind   // Declared type
}

// NewSchema builds a schema from columns
func NewSchema(entity string, columns ...Column) Schema {
	return Schema{Entity: entity, Columns: columns}
}

// Col is shorthand for a column declaration
func Col(name string, kind Kind) Column {
	return Column{Name: name, Kind: kind}
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (s *Schema) GetColumnByName(name string) *Column {
	normalizedName := normalizeColumnName(name)
	for i, col := range s.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return &s.Columns[i]
		}
	}
	return nil
}

// Names returns the declared column names in order
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// TextColumns returns the names of columns declared as text
func (s *Schema) TextColumns() []string {
	var names []string
	for _, col := range s.Columns {
		if col.Kind == KindText {
			names = append(names, col.Name)
		}
	}
	return names
}

// IsText reports whether a column is declared as text
func (s *Schema) IsText(name string) bool {
	col := s.GetColumnByName(name)
	return col != nil && col.Kind == KindText
}

func normalizeColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
