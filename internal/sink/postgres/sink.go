// Package postgres writes loads into PostgreSQL with pgx.
//
// Replace runs DROP TABLE IF EXISTS and CREATE TABLE in one transaction.
// Append streams a batch with COPY FROM, which either lands the whole batch
// or none of it.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// Sink is a tripload.Sink over a pgx pool. Not safe for concurrent use.
type Sink struct {
	pool    *pgxpool.Pool
	closer  io.Closer
	logger  tripload.Logger
	schemas map[string]tripload.Schema
}

// Open builds a connector for cfg with factory and connects it.
// If the connector holds resources of its own (Cloud SQL dialer) the sink
// releases them on Close.
func Open(ctx context.Context, cfg *tripload.ConnectionConfig, factory tripload.ConnectorFactory, logger tripload.Logger) (*Sink, error) {
	connector, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		if c, ok := connector.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}

	s := New(pool, logger)
	s.closer, _ = connector.(io.Closer)
	return s, nil
}

// New wraps an open pool. The sink takes ownership of pool.
func New(pool *pgxpool.Pool, logger tripload.Logger) *Sink {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Sink{
		pool:    pool,
		logger:  logger,
		schemas: make(map[string]tripload.Schema),
	}
}

// Identifier splits an optionally schema-qualified table name.
func Identifier(table string) pgx.Identifier {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}
	}
	return pgx.Identifier{table}
}

func columnType(t tripload.ColumnType) string {
	switch t {
	case tripload.TypeInteger:
		return "BIGINT"
	case tripload.TypeFloat:
		return "DOUBLE PRECISION"
	case tripload.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders the CREATE TABLE statement for schema.
func CreateTableSQL(table string, schema tripload.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(Identifier(table).Sanitize())
	b.WriteString(" (")
	for i, c := range schema {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c.Name}.Sanitize())
		b.WriteByte(' ')
		b.WriteString(columnType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

func (s *Sink) Replace(ctx context.Context, table string, schema tripload.Schema) error {
	if len(schema) == 0 {
		return s.fail("replace", table, errors.New("schema has no columns"))
	}

	create := CreateTableSQL(table, schema)
	s.logger.Verbose("%s", create)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.fail("replace", table, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+Identifier(table).Sanitize()); err != nil {
		return s.fail("replace", table, err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return s.fail("replace", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return s.fail("replace", table, err)
	}

	s.schemas[table] = schema
	return nil
}

// Append copies every row of batch into table with a single COPY.
func (s *Sink) Append(ctx context.Context, table string, batch tripload.Batch) (int64, error) {
	if batch.Len() == 0 {
		return 0, nil
	}

	schema, ok := s.schemas[table]
	if !ok {
		return 0, s.fail("append", table, fmt.Errorf("table %s was not replaced by this sink", table))
	}
	types, err := schema.TypesOf(batch.Columns)
	if err != nil {
		return 0, s.fail("append", table, err)
	}

	rows := make([][]any, batch.Len())
	for i, row := range batch.Rows {
		out := make([]any, len(row))
		for j, v := range row {
			if out[j], err = tripload.Coerce(v, types[j]); err != nil {
				return 0, s.fail("append", table, fmt.Errorf("row %d column %q: %w", i, batch.Columns[j], err))
			}
		}
		rows[i] = out
	}

	n, err := s.pool.CopyFrom(ctx, Identifier(table), batch.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, s.fail("append", table, err)
	}
	return n, nil
}

// RowCount reports how many rows table holds and whether it exists.
func (s *Sink) RowCount(ctx context.Context, table string) (int64, bool, error) {
	ident := Identifier(table).Sanitize()

	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ident).Scan(&exists); err != nil {
		return 0, false, fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return 0, false, nil
	}

	var rows int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+ident).Scan(&rows); err != nil {
		return 0, true, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return rows, true, nil
}

// Close closes the pool, then the connector if it needs closing.
func (s *Sink) Close() error {
	s.pool.Close()
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func (s *Sink) fail(op, table string, err error) error {
	return &tripload.SinkError{Op: op, Table: table, Chunk: -1, Err: err}
}
