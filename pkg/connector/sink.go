package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/converter"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

const defaultBatchSize = 1000

// SinkOptions configures a SQLSink
type SinkOptions struct {
	Schema        string   // Target schema; empty uses the connection default
	AllowedTables []string // Tables the sink may write; empty allows any
	BatchSize     int      // Rows between progress logs
}

// SQLSink writes record batches to a database/sql warehouse
type SQLSink struct {
	db        *sqlx.DB
	dialect   Dialect
	converter *converter.TypeConverter
	logger    *zap.Logger
	opts      SinkOptions
	allowed   map[string]struct{}

	mu            sync.Mutex
	schemaCreated bool
	declared      map[string]*model.Schema
}

// NewSQLSink creates a sink over an open pool
func NewSQLSink(db *sqlx.DB, dialect Dialect, conv *converter.TypeConverter, logger *zap.Logger, opts SinkOptions) (*SQLSink, error) {
	if db == nil || dialect == nil || conv == nil {
		return nil, errors.New("db, dialect and converter are required")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	allowed := make(map[string]struct{}, len(opts.AllowedTables))
	for _, t := range opts.AllowedTables {
		allowed[strings.ToLower(t)] = struct{}{}
	}

	return &SQLSink{
		db:        db,
		dialect:   dialect,
		converter: conv,
		logger:    logger,
		opts:      opts,
		allowed:   allowed,
		declared:  make(map[string]*model.Schema),
	}, nil
}

// Declare records the declared column kinds of a table so that columns
// holding only missing values still get their declared type
func (s *SQLSink) Declare(table string, schema model.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared[strings.ToLower(table)] = &schema
}

// Write stores the batch in table. Append creates the table when absent
// and adds rows; Replace drops and recreates it first. Both run in one
// transaction where the database supports transactional DDL.
func (s *SQLSink) Write(ctx context.Context, table string, batch *model.Batch, mode model.WriteMode) (int64, error) {
	if err := s.checkAllowed(table); err != nil {
		return 0, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}

	s.mu.Lock()
	schema := s.declared[strings.ToLower(table)]
	s.mu.Unlock()

	columns := converter.ColumnsForBatch(batch, schema)
	if len(columns) == 0 {
		return 0, fmt.Errorf("batch for %s has no columns", table)
	}
	definitions, err := s.converter.GenerateColumnDefinitions(s.dialect.Name(), columns, s.dialect.QuoteIdentifier)
	if err != nil {
		return 0, fmt.Errorf("failed to generate column definitions: %w", err)
	}

	qualified := QualifiedName(s.dialect, s.opts.Schema, table)
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if mode == model.WriteReplace {
		if _, err := tx.ExecContext(ctx, s.dialect.DropTableQuery(qualified)); err != nil {
			return 0, fmt.Errorf("failed to drop %s: %w", qualified, err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.dialect.CreateTableQuery(qualified, definitions)); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", qualified, err)
	}

	stmt, err := tx.PreparexContext(ctx, s.dialect.InsertQuery(qualified, names))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", qualified, err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range batch.Rows {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		args, err := s.converter.ConvertRow(s.dialect.Name(), columns, row)
		if err != nil {
			return inserted, fmt.Errorf("failed to convert row %d for %s: %w", i, qualified, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("failed to insert row %d into %s: %w", i, qualified, err)
		}
		inserted++

		if inserted%int64(s.opts.BatchSize) == 0 {
			s.logger.Debug("Insert progress",
				zap.String("table", qualified),
				zap.Int64("rows", inserted))
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit %s: %w", qualified, err)
	}

	s.logger.Info("Wrote table",
		zap.String("table", qualified),
		zap.String("mode", mode.String()),
		zap.Int64("rows", inserted))

	if mode == model.WriteReplace {
		s.verifyRowCount(ctx, qualified, inserted)
	}
	return inserted, nil
}

// Count returns the number of rows stored in table
func (s *SQLSink) Count(ctx context.Context, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QualifiedName(s.dialect, s.opts.Schema, table))
	if err := s.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// verifyRowCount compares the stored row count of a replaced table with
// the rows written. A mismatch is logged, not returned.
func (s *SQLSink) verifyRowCount(ctx context.Context, qualified string, written int64) {
	var stored int64
	if err := s.db.GetContext(ctx, &stored, fmt.Sprintf("SELECT COUNT(*) FROM %s", qualified)); err != nil {
		s.logger.Warn("Row count verification failed", zap.String("table", qualified), zap.Error(err))
		return
	}
	if stored != written {
		s.logger.Warn("Row count mismatch",
			zap.String("table", qualified),
			zap.Int64("written", written),
			zap.Int64("stored", stored),
			zap.Int64("difference", written-stored))
	}
}

func (s *SQLSink) checkAllowed(table string) error {
	if len(s.allowed) == 0 {
		return nil
	}
	if _, ok := s.allowed[strings.ToLower(table)]; !ok {
		return &model.ConfigurationError{Kind: "table", Name: table}
	}
	return nil
}

func (s *SQLSink) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schemaCreated || s.opts.Schema == "" {
		return nil
	}
	if q := s.dialect.CreateSchemaQuery(s.opts.Schema); q != "" {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to create/verify schema %s: %w", s.opts.Schema, err)
		}
	}
	s.schemaCreated = true
	return nil
}
