// Package pipeline runs declared entity pipelines from raw extract to the
// conformed silver table, one entity at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/capture"
	"github.com/David-Botos/warehouse-ingress/pkg/cleaner"
	"github.com/David-Botos/warehouse-ingress/pkg/dedup"
	"github.com/David-Botos/warehouse-ingress/pkg/ledger"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/quarantine"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
	"github.com/David-Botos/warehouse-ingress/pkg/validator"
)

// TableSink receives whole batches for a named table
type TableSink interface {
	Write(ctx context.Context, table string, batch *model.Batch, mode model.WriteMode) (int64, error)
}

// schemaDeclarer is implemented by sinks that create typed tables
type schemaDeclarer interface {
	Declare(table string, schema model.Schema)
}

// Quarantine stores rows that were set aside
type Quarantine interface {
	Write(ctx context.Context, runID, entity string, stage quarantine.Stage, columns []string, entries []quarantine.Entry) (string, error)
}

// Options wires the runner to its collaborators
type Options struct {
	DataDir string
	Ledger  *ledger.Ledger
	Bronze  TableSink
	Silver  TableSink

	// Optional
	Quarantine Quarantine
	Metrics    *Metrics
	OnEntity   func(*EntityResult)
}

// Runner executes entity pipelines in declaration order
type Runner struct {
	logger   *zap.Logger
	opts     Options
	entities []EntityPipeline
	index    map[string]int

	capturer     *capture.Capturer
	coercer      *cleaner.Coercer
	normalizer   *cleaner.Normalizer
	standardizer *standardizer.Standardizer
	validator    *validator.Validator
	dedup        *dedup.Deduplicator
}

// NewRunner creates a runner for the given entities
func NewRunner(logger *zap.Logger, opts Options, entities ...EntityPipeline) (*Runner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.Ledger == nil {
		return nil, errors.New("ledger cannot be nil")
	}
	if opts.Bronze == nil || opts.Silver == nil {
		return nil, errors.New("bronze and silver sinks are required")
	}

	r := &Runner{
		logger:   logger.Named("pipeline"),
		opts:     opts,
		index:    make(map[string]int, len(entities)),
		capturer: capture.NewCapturer(logger),
	}

	var err error
	if r.coercer, err = cleaner.NewCoercer(logger); err != nil {
		return nil, err
	}
	if r.normalizer, err = cleaner.NewNormalizer(logger); err != nil {
		return nil, err
	}
	if r.standardizer, err = standardizer.New(logger); err != nil {
		return nil, err
	}
	if r.validator, err = validator.New(logger); err != nil {
		return nil, err
	}
	if r.dedup, err = dedup.New(logger); err != nil {
		return nil, err
	}

	for _, p := range entities {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("entity %s declared twice", p.Name)
		}
		r.index[p.Name] = len(r.entities)
		r.entities = append(r.entities, p)

		if d, ok := opts.Silver.(schemaDeclarer); ok && len(p.Schema.Columns) > 0 {
			d.Declare(p.SilverTable, p.Schema)
		}
	}

	return r, nil
}

// Entities returns the registered entity names in run order
func (r *Runner) Entities() []string {
	names := make([]string, len(r.entities))
	for i, p := range r.entities {
		names[i] = p.Name
	}
	return names
}

// Run executes every registered entity. A failed entity is recorded and
// the run moves on to the next one.
func (r *Runner) Run(ctx context.Context) *RunSummary {
	summary, _ := r.RunSelected(ctx, nil)
	return summary
}

// RunSelected executes the named entities in registration order, or all
// of them when names is empty. Unknown names fail before anything runs.
func (r *Runner) RunSelected(ctx context.Context, names []string) (*RunSummary, error) {
	selected, err := r.selection(names)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	summary := NewRunSummary(runID)
	r.logger.Info("Starting run",
		zap.String("runID", runID),
		zap.Int("entities", len(selected)))

	for _, p := range selected {
		var result *EntityResult
		if err := ctx.Err(); err != nil {
			result = r.cancelled(runID, p, err)
		} else {
			result = r.runPipeline(ctx, NewEntityJob(runID, p), p)
		}
		summary.AddResult(result)
		r.observe(result)
	}

	summary.Complete()
	r.logger.Info("Run completed",
		zap.String("runID", runID),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int64("rowsWritten", summary.TotalRows),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// RunEntity executes a single entity by name
func (r *Runner) RunEntity(ctx context.Context, name string) (*EntityResult, error) {
	idx, ok := r.index[name]
	if !ok {
		return nil, &ConfigurationError{Kind: "entity", Name: name}
	}
	p := r.entities[idx]

	result := r.runPipeline(ctx, NewEntityJob(uuid.New().String(), p), p)
	r.observe(result)
	if result.Error != nil {
		return result, result.Error.Error
	}
	return result, nil
}

func (r *Runner) selection(names []string) ([]EntityPipeline, error) {
	if len(names) == 0 {
		return r.entities, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			return nil, &ConfigurationError{Kind: "entity", Name: n}
		}
		want[n] = true
	}
	var out []EntityPipeline
	for _, p := range r.entities {
		if want[p.Name] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Runner) observe(result *EntityResult) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveEntity(result)
	}
	if r.opts.OnEntity != nil {
		r.opts.OnEntity(result)
	}
}

func (r *Runner) cancelled(runID string, p EntityPipeline, err error) *EntityResult {
	result := NewEntityResult(NewEntityJob(runID, p))
	result.SetError(NewErrorRecord(err, CategorizeError(err)).WithEntity(p.Name))
	result.Complete(false)
	return result
}

// runPipeline never returns an error; failures are recorded on the result
func (r *Runner) runPipeline(ctx context.Context, job EntityJob, p EntityPipeline) *EntityResult {
	result := NewEntityResult(job)
	log := r.logger.With(zap.String("entity", p.Name), zap.String("jobID", job.ID))
	log.Info("Starting entity pipeline",
		zap.String("source", p.Source),
		zap.String("file", p.File))

	if err := r.execute(ctx, job, p, result, log); err != nil {
		record := NewErrorRecord(err, CategorizeError(err)).WithEntity(p.Name)
		result.SetError(record)
		result.Complete(false)
		log.Error("Entity pipeline failed",
			zap.String("category", record.Category.String()),
			zap.String("stage", record.Stage),
			zap.Error(err))
		return result
	}

	result.Complete(true)
	log.Info("Entity pipeline succeeded",
		zap.Int64("captured", result.RowsCaptured),
		zap.Int64("written", result.RowsWritten),
		zap.Int64("invalid", result.RowsInvalid),
		zap.Int64("dropped", result.RowsDropped),
		zap.Int64("superseded", result.RowsSuperseded),
		zap.Bool("bronzeSkipped", result.BronzeSkipped),
		zap.Duration("duration", result.Duration))
	return result
}

func (r *Runner) execute(ctx context.Context, job EntityJob, p EntityPipeline, result *EntityResult, log *zap.Logger) error {
	fail := func(stage string, err error) error {
		return &StageError{Entity: p.Name, Stage: stage, Err: err}
	}

	path := filepath.Join(r.opts.DataDir, p.File)
	raw, err := r.capturer.CaptureFile(ctx, path, p.descriptor())
	if err != nil {
		return fail(StageCapture, err)
	}
	result.RowsCaptured = int64(raw.Len())

	if err := r.loadBronze(ctx, p, raw, result, log); err != nil {
		return err
	}

	typed, ops := r.coercer.Coerce(raw, p.Schema)
	result.CleaningOperations += len(ops)

	normalized, ops, err := r.normalizer.Normalize(typed, p.Schema, p.Normalize)
	if err != nil {
		return fail(StageNormalize, err)
	}
	result.CleaningOperations += len(ops)

	std, err := r.standardizer.Apply(normalized, p.Dictionaries, p.Derives)
	if err != nil {
		return fail(StageStandardize, err)
	}
	result.CleaningOperations += len(std.Operations)
	result.RowsDropped = int64(len(std.Dropped))

	outcome, err := r.validator.Validate(std.Batch, p.Rules)
	if err != nil {
		return fail(StageValidate, err)
	}
	validator.Refine(outcome.Valid, p.Refinements...)
	result.RowsValid = int64(len(outcome.Valid))
	result.RowsInvalid = int64(len(outcome.Invalid))

	kept := outcome.Valid
	var superseded []model.Row
	if p.Deduplicates() {
		res, err := r.dedup.Deduplicate(std.Batch.WithRows(outcome.Valid), p.BusinessKey, p.OrderBy)
		if err != nil {
			return fail(StageDeduplicate, err)
		}
		kept, superseded = res.Kept, res.Superseded
	}
	result.RowsSuperseded = int64(len(superseded))

	silver := std.Batch.WithRows(kept)
	if len(p.SilverColumns) > 0 {
		silver = silver.Project(p.SilverColumns)
	}

	// Rejected rows are stored first so a failed upload leaves the
	// previous silver table in place.
	if err := r.quarantine(ctx, job, std.Batch.Columns, outcome.Invalid, std.Dropped, superseded, result); err != nil {
		return fail(StageQuarantine, err)
	}

	written, err := r.opts.Silver.Write(ctx, p.SilverTable, silver, model.WriteReplace)
	if err != nil {
		return fail(StageSilverWrite, err)
	}
	result.RowsWritten = written
	return nil
}

// loadBronze appends the raw batch unless the ledger already holds the
// file for this table. The ledger is marked only after the write.
func (r *Runner) loadBronze(ctx context.Context, p EntityPipeline, raw *model.Batch, result *EntityResult, log *zap.Logger) error {
	fail := func(stage string, err error) error {
		return &StageError{Entity: p.Name, Stage: stage, Err: err}
	}

	processed, err := r.opts.Ledger.IsProcessed(p.Source, p.FileName(), p.BronzeTable)
	if err != nil {
		return fail(StageLedger, err)
	}
	if processed {
		result.BronzeSkipped = true
		log.Info("File already loaded into bronze",
			zap.String("file", p.File),
			zap.String("table", p.BronzeTable))
		return nil
	}

	n, err := r.opts.Bronze.Write(ctx, p.BronzeTable, raw, model.WriteAppend)
	if err != nil {
		return fail(StageBronzeWrite, err)
	}
	result.RowsBronze = n

	if err := r.opts.Ledger.MarkProcessed(p.Source, p.FileName(), p.BronzeTable); err != nil {
		return fail(StageLedger, err)
	}
	return nil
}

func (r *Runner) quarantine(ctx context.Context, job EntityJob, columns []string, invalid []validator.Rejection, dropped []standardizer.Dropped, superseded []model.Row, result *EntityResult) error {
	if r.opts.Quarantine == nil {
		return nil
	}

	stages := []struct {
		stage   quarantine.Stage
		entries []quarantine.Entry
	}{
		{quarantine.StageInvalid, make([]quarantine.Entry, 0, len(invalid))},
		{quarantine.StageDropped, make([]quarantine.Entry, 0, len(dropped))},
		{quarantine.StageSuperseded, make([]quarantine.Entry, 0, len(superseded))},
	}
	for _, rej := range invalid {
		stages[0].entries = append(stages[0].entries, quarantine.Entry{Row: rej.Row, Reasons: rej.Reasons})
	}
	for _, d := range dropped {
		stages[1].entries = append(stages[1].entries, quarantine.Entry{Row: d.Row, Reasons: []string{d.Reason}})
	}
	for _, row := range superseded {
		stages[2].entries = append(stages[2].entries, quarantine.Entry{Row: row, Reasons: []string{"superseded"}})
	}

	for _, s := range stages {
		key, err := r.opts.Quarantine.Write(ctx, job.RunID, job.Entity, s.stage, columns, s.entries)
		if err != nil {
			return err
		}
		if key != "" {
			result.QuarantineKeys = append(result.QuarantineKeys, key)
		}
	}
	return nil
}
