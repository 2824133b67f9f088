package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// EntityJob represents one entity pipeline execution within a run
type EntityJob struct {
	ID        string    // Unique job identifier
	RunID     string    // Run this job belongs to
	Entity    string    // Entity name
	Source    string    // Source system
	File      string    // Extract path relative to the data directory
	CreatedAt time.Time // Job creation timestamp
}

// NewEntityJob creates a job for p within run runID
func NewEntityJob(runID string, p EntityPipeline) EntityJob {
	return EntityJob{
		ID:        uuid.New().String(),
		RunID:     runID,
		Entity:    p.Name,
		Source:    p.Source,
		File:      p.File,
		CreatedAt: time.Now(),
	}
}

// EntityResult represents the result of one entity pipeline
type EntityResult struct {
	JobID              string
	Entity             string
	Success            bool
	BronzeSkipped      bool // file was already in the ledger
	RowsCaptured       int64
	RowsBronze         int64
	RowsValid          int64
	RowsInvalid        int64
	RowsDropped        int64
	RowsSuperseded     int64
	RowsWritten        int64
	CleaningOperations int
	QuarantineKeys     []string
	Error              *ErrorRecord
	Warnings           []string
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// NewEntityResult initializes a result for a job
func NewEntityResult(job EntityJob) *EntityResult {
	return &EntityResult{
		JobID:     job.ID,
		Entity:    job.Entity,
		StartTime: time.Now(),
		Warnings:  make([]string, 0),
	}
}

// Complete marks the entity as finished and calculates duration
func (r *EntityResult) Complete(success bool) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Success = success && r.Error == nil
}

// SetError records the failure of the entity
func (r *EntityResult) SetError(err ErrorRecord) {
	r.Error = &err
	r.Success = false
}

// AddWarning adds a warning to the result
func (r *EntityResult) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// RunSummary represents the outcome of a whole run
type RunSummary struct {
	RunID           string
	Total           int
	Succeeded       int
	Failed          int
	Results         []*EntityResult
	ErrorCategories map[ErrorCategory]int
	TotalRows       int64
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

// NewRunSummary initializes a new run summary
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:           runID,
		Results:         make([]*EntityResult, 0),
		StartTime:       time.Now(),
		ErrorCategories: make(map[ErrorCategory]int),
	}
}

// AddResult incorporates an entity result into the summary
func (s *RunSummary) AddResult(result *EntityResult) {
	s.Results = append(s.Results, result)
	s.Total++
	if result.Success {
		s.Succeeded++
		s.TotalRows += result.RowsWritten
		return
	}
	s.Failed++
	if result.Error != nil {
		s.ErrorCategories[result.Error.Category]++
	}
}

// Result returns the result for an entity, or nil
func (s *RunSummary) Result(entity string) *EntityResult {
	for _, r := range s.Results {
		if r.Entity == entity {
			return r
		}
	}
	return nil
}

// FailedEntities lists failed entities in run order
func (s *RunSummary) FailedEntities() []string {
	var failed []string
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r.Entity)
		}
	}
	return failed
}

// Complete marks the run as complete
func (s *RunSummary) Complete() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SuccessRate returns the percentage of entities that succeeded
func (s *RunSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}
