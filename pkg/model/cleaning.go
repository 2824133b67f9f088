// pkg/model/cleaning.go
package model

import (
	"time"
)

// CleaningOperation represents a single cell altered while conforming a batch
type CleaningOperation struct {
	Entity            string    // Entity being conformed
	ColumnName        string    // Column that was cleaned
	RowIndex          int       // Position of the row in the stage input
	OriginalValue     string    // Original value rendered as text
	NewValue          string    // New value rendered as text ("" when now missing)
	CleaningOperation string    // Type of cleaning performed (e.g., "coerce_integer")
	CleaningReason    string    // Reason for cleaning (e.g., "unparsable_value")
	CleanedAt         time.Time // When the cleaning occurred
}

// CountByOperation summarizes operations by their type
func CountByOperation(ops []CleaningOperation) map[string]int {
	counts := make(map[string]int)
	for _, op := range ops {
		counts[op.CleaningOperation]++
	}
	return counts
}
