package model

import (
	"fmt"
	"strings"
)

// SchemaError reports that a stage needs columns the batch does not have.
// It is fatal to the entity's run.
type SchemaError struct {
	Entity  string   // Entity whose batch was checked
	Stage   string   // Stage that required the columns
	Columns []string // Required columns that are absent
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: entity %q is missing required column(s): %s",
		e.Stage, e.Entity, strings.Join(e.Columns, ", "))
}

// RequireColumns returns a SchemaError when any of the columns is absent
func RequireColumns(batch *Batch, stage string, columns ...string) error {
	if missing := batch.MissingColumns(columns...); len(missing) > 0 {
		return &SchemaError{Entity: batch.Entity, Stage: stage, Columns: missing}
	}
	return nil
}

// ConfigurationError reports a name that the configuration does not
// know: an unregistered entity or a table outside the allowed targets
type ConfigurationError struct {
	Kind string // "entity" or "table"
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}
