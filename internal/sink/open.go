// Package sink opens the destination named by a connection config.
package sink

import (
	"context"
	"fmt"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/sink/postgres"
	"github.com/vvka-141/tripload/internal/sink/sqlsink"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// Open connects to the database cfg.Driver names. PostgreSQL connections
// go through factory so cloud authentication applies; MySQL and SQLite use
// database/sql directly.
func Open(ctx context.Context, cfg *tripload.ConnectionConfig, factory tripload.ConnectorFactory, logger tripload.Logger) (tripload.Sink, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	switch cfg.Driver {
	case tripload.DriverPostgres, "":
		if factory == nil {
			return nil, fmt.Errorf("no connector factory for postgres: %w", tripload.ErrInvalidConfig)
		}
		s, err := postgres.Open(ctx, cfg, factory, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case tripload.DriverMySQL, tripload.DriverSQLite:
		s, err := sqlsink.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown driver %q: %w", cfg.Driver, tripload.ErrInvalidConfig)
	}
}
