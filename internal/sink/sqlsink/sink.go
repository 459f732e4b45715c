// Package sqlsink writes loads into MySQL or SQLite through database/sql.
package sqlsink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// Sink is a tripload.Sink over a database/sql handle.
// Not safe for concurrent use.
type Sink struct {
	db      *sql.DB
	dialect Dialect
	logger  tripload.Logger
	schemas map[string]tripload.Schema
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg *tripload.ConnectionConfig, logger tripload.Logger) (*Sink, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch cfg.Driver {
	case tripload.DriverMySQL:
		dsn = MySQLDSN(cfg)
	case tripload.DriverSQLite:
		dsn = SQLiteDSN(cfg)
	}

	db, err := sql.Open(dialect.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", dialect.Name, tripload.ErrConnectionFailed, err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w: %w", dialect.Name, tripload.ErrConnectionFailed, err)
	}

	logger.Verbose("Connected to %s", dialect.Name)
	return New(db, dialect, logger), nil
}

// New wraps an open handle. The sink takes ownership of db.
func New(db *sql.DB, dialect Dialect, logger tripload.Logger) *Sink {
	if dialect.SingleConn {
		db.SetMaxOpenConns(1)
	}
	return &Sink{
		db:      db,
		dialect: dialect,
		logger:  logger,
		schemas: make(map[string]tripload.Schema),
	}
}

// Replace drops table if present and creates it empty with schema.
// On SQLite both statements share one transaction; MySQL commits DDL
// implicitly, so there they run back to back.
func (s *Sink) Replace(ctx context.Context, table string, schema tripload.Schema) error {
	if len(schema) == 0 {
		return s.fail("replace", table, -1, errors.New("schema has no columns"))
	}

	drop := "DROP TABLE IF EXISTS " + s.dialect.QualifiedName(table)
	create := s.dialect.createTable(table, schema)
	s.logger.Verbose("%s", create)

	if s.dialect.TransactionalDDL {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return s.fail("replace", table, -1, err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, drop); err != nil {
			return s.fail("replace", table, -1, err)
		}
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return s.fail("replace", table, -1, err)
		}
		if err := tx.Commit(); err != nil {
			return s.fail("replace", table, -1, err)
		}
	} else {
		if _, err := s.db.ExecContext(ctx, drop); err != nil {
			return s.fail("replace", table, -1, err)
		}
		if _, err := s.db.ExecContext(ctx, create); err != nil {
			return s.fail("replace", table, -1, err)
		}
	}

	s.schemas[table] = schema
	return nil
}

// Append inserts every row of batch in one transaction.
func (s *Sink) Append(ctx context.Context, table string, batch tripload.Batch) (int64, error) {
	if batch.Len() == 0 {
		return 0, nil
	}

	types, err := s.columnTypes(table, batch.Columns)
	if err != nil {
		return 0, s.fail("append", table, -1, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.fail("append", table, -1, err)
	}
	defer tx.Rollback()

	perStmt := s.dialect.rowsPerStatement(len(batch.Columns))
	fullStmt := ""
	args := make([]any, 0, perStmt*len(batch.Columns))

	for start := 0; start < batch.Len(); start += perStmt {
		end := min(start+perStmt, batch.Len())

		args = args[:0]
		for i, row := range batch.Rows[start:end] {
			for j, v := range row {
				cv, err := tripload.Coerce(v, types[j])
				if err != nil {
					return 0, s.fail("append", table, -1,
						fmt.Errorf("row %d column %q: %w", start+i, batch.Columns[j], err))
				}
				args = append(args, cv)
			}
		}

		var query string
		if end-start == perStmt {
			if fullStmt == "" {
				fullStmt = s.dialect.insert(table, batch.Columns, perStmt)
			}
			query = fullStmt
		} else {
			query = s.dialect.insert(table, batch.Columns, end-start)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, s.fail("append", table, -1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, s.fail("append", table, -1, err)
	}
	return int64(batch.Len()), nil
}

// RowCount reports how many rows table holds and whether it exists.
func (s *Sink) RowCount(ctx context.Context, table string) (int64, bool, error) {
	schema, name := splitTable(table)
	query, args := s.dialect.exists(schema, name)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, false, fmt.Errorf("check table %s: %w", table, err)
	}
	if n == 0 {
		return 0, false, nil
	}

	var rows int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.dialect.QualifiedName(table)).Scan(&rows); err != nil {
		return 0, true, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return rows, true, nil
}

// Close releases the database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}

// columnTypes maps batch columns to the types recorded by Replace.
func (s *Sink) columnTypes(table string, columns []string) ([]tripload.ColumnType, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return nil, fmt.Errorf("table %s was not replaced by this sink", table)
	}
	return schema.TypesOf(columns)
}

func (s *Sink) fail(op, table string, chunk int, err error) error {
	return &tripload.SinkError{Op: op, Table: table, Chunk: chunk, Err: err}
}
