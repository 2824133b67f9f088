// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/config"
)

// pingTimeout bounds the connectivity check made when a pool is opened
const pingTimeout = 10 * time.Second

// logPoolStats reports the pool usage of one warehouse database
func logPoolStats(logger *zap.Logger, msg, driver string, db *sql.DB) {
	stats := db.Stats()
	logger.Debug(msg,
		zap.String("driver", driver),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConnections),
		zap.Int64("wait_count", stats.WaitCount),
		zap.Duration("wait_duration", stats.WaitDuration),
	)
}

// ping verifies the database answers within pingTimeout
func ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if pingCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("ping timed out after %v: %w", pingTimeout, pingCtx.Err())
		}
		return err
	}
	return nil
}

// applyPoolSettings copies the sink's pool limits onto db. Zero values
// keep the driver defaults.
func applyPoolSettings(db *sql.DB, cfg config.SinkConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
