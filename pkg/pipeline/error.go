package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/David-Botos/warehouse-ingress/pkg/capture"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// ConfigurationError reports an unknown entity or a table outside the
// allowed targets
type ConfigurationError = model.ConfigurationError

// ErrorCategory classifies why an entity pipeline failed
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryNotFound
	ErrorCategorySchema
	ErrorCategoryConfiguration
	ErrorCategorySink
	ErrorCategoryUnknown
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryNotFound:
		return "NotFound"
	case ErrorCategorySchema:
		return "Schema"
	case ErrorCategoryConfiguration:
		return "Configuration"
	case ErrorCategorySink:
		return "Sink"
	case ErrorCategoryUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", int(ec))
	}
}

// Stage names used in StageError
const (
	StageCapture     = "capture"
	StageLedger      = "ledger"
	StageBronzeWrite = "bronze_write"
	StageNormalize   = "normalize"
	StageStandardize = "standardize"
	StageValidate    = "validate"
	StageDeduplicate = "deduplicate"
	StageSilverWrite = "silver_write"
	StageQuarantine  = "quarantine"
)

// StageError ties a failure to the pipeline stage it came from
type StageError struct {
	Entity string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("entity %s failed at %s: %v", e.Entity, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func isSinkStage(stage string) bool {
	switch stage {
	case StageLedger, StageBronzeWrite, StageSilverWrite, StageQuarantine:
		return true
	}
	return false
}

// CategorizeError determines the category of an error. Typed errors win
// over the stage they were raised in.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		notFound  *capture.NotFoundError
		schemaErr *model.SchemaError
		cfgErr    *ConfigurationError
		stageErr  *StageError
	)
	switch {
	case errors.As(err, &notFound):
		return ErrorCategoryNotFound
	case errors.As(err, &schemaErr):
		return ErrorCategorySchema
	case errors.As(err, &cfgErr):
		return ErrorCategoryConfiguration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCategoryUnknown
	case errors.As(err, &stageErr) && isSinkStage(stageErr.Stage):
		return ErrorCategorySink
	default:
		return ErrorCategoryUnknown
	}
}

// ErrorRecord represents a single entity failure
type ErrorRecord struct {
	Category  ErrorCategory
	Entity    string
	Stage     string
	TableName string
	Error     error
	Message   string // Derived from Error but stored for serialization
	Timestamp time.Time
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, category ErrorCategory) ErrorRecord {
	record := ErrorRecord{
		Category:  category,
		Error:     err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		record.Entity = stageErr.Entity
		record.Stage = stageErr.Stage
	}

	return record
}

// WithEntity adds entity information to the error record
func (r ErrorRecord) WithEntity(entity string) ErrorRecord {
	r.Entity = entity
	return r
}

// WithStage adds the failing stage to the error record
func (r ErrorRecord) WithStage(stage string) ErrorRecord {
	r.Stage = stage
	return r
}

// WithTable adds table information to the error record
func (r ErrorRecord) WithTable(schema, table string) ErrorRecord {
	if schema == "" {
		r.TableName = table
		return r
	}
	r.TableName = fmt.Sprintf("%s.%s", schema, table)
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Category))

	if r.Entity != "" {
		sb.WriteString(fmt.Sprintf("Entity: %s ", r.Entity))
	}

	if r.Stage != "" {
		sb.WriteString(fmt.Sprintf("Stage: %s ", r.Stage))
	}

	if r.TableName != "" {
		sb.WriteString(fmt.Sprintf("Table: %s ", r.TableName))
	}

	if r.Error != nil {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Error.Error()))
	} else if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	return sb.String()
}
