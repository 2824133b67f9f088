// pkg/connector/factory.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/config"
	"github.com/David-Botos/warehouse-ingress/pkg/converter"
)

// ConnectorFactory opens warehouse databases and builds sinks on them.
// Layers that point at the same driver and DSN share one pool; an
// embedded DuckDB file can only be opened once per process.
type ConnectorFactory struct {
	logger    *zap.Logger
	converter *converter.TypeConverter

	mu    sync.Mutex
	pools map[string]*sqlx.DB
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(logger *zap.Logger) (*ConnectorFactory, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	conv, err := converter.NewTypeConverter(logger)
	if err != nil {
		return nil, err
	}
	return &ConnectorFactory{
		logger:    logger.Named("connector"),
		converter: conv,
		pools:     make(map[string]*sqlx.DB),
	}, nil
}

// Open returns a verified pool for the sink configuration
func (f *ConnectorFactory) Open(ctx context.Context, cfg config.SinkConfig) (*sqlx.DB, Dialect, error) {
	dialect, err := GetDialect(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := dialect.DriverName() + "|" + dsn
	if db, ok := f.pools[key]; ok {
		return db, dialect, nil
	}

	f.logger.Info("Connecting to warehouse",
		zap.String("driver", dialect.DriverName()),
		zap.String("schema", cfg.Schema))

	db, err := sqlx.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize %s connection: %w", dialect.Name(), err)
	}

	applyPoolSettings(db.DB, cfg)

	if err := ping(ctx, db.DB); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", dialect.Name(), err)
	}

	logPoolStats(f.logger, "Opened connection pool", dialect.Name(), db.DB)
	f.pools[key] = db
	return db, dialect, nil
}

// CreateSink opens the layer's database and returns a sink restricted to
// the allowed tables
func (f *ConnectorFactory) CreateSink(ctx context.Context, layer string, cfg config.SinkConfig, allowedTables []string) (*SQLSink, error) {
	db, dialect, err := f.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s sink: %w", layer, err)
	}

	return NewSQLSink(db, dialect, f.converter, f.logger.Named(layer), SinkOptions{
		Schema:        cfg.Schema,
		AllowedTables: allowedTables,
		BatchSize:     cfg.BatchSize,
	})
}

// Close closes every pool the factory opened
func (f *ConnectorFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for key, db := range f.pools {
		logPoolStats(f.logger, "Closing connection pool", db.DriverName(), db.DB)
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(f.pools, key)
	}
	return errors.Join(errs...)
}
