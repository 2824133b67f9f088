package model

// WriteMode selects how a table write treats existing rows
type WriteMode int

const (
	// WriteAppend adds rows to the table, creating it when absent
	WriteAppend WriteMode = iota
	// WriteReplace discards the table's previous contents
	WriteReplace
)

func (m WriteMode) String() string {
	if m == WriteReplace {
		return "replace"
	}
	return "append"
}
