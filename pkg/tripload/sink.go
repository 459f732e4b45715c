package tripload

import "context"

// Sink is the relational destination of a load.
//
// A Sink is scoped to one run: Replace defines the table schema that later
// Append calls are coerced to. Implementations are not required to be safe
// for concurrent use; the loader never issues two writes at once.
type Sink interface {
	// Replace drops table if it exists and recreates it with schema and no rows.
	Replace(ctx context.Context, table string, schema Schema) error

	// Append writes all rows of batch into table as one operation.
	// Either the whole batch is written or none of it is.
	Append(ctx context.Context, table string, batch Batch) (int64, error)

	// Close releases the underlying connection.
	Close() error
}

// TableInspector is implemented by sinks that can report on an existing table.
// The ingest service uses it to decide whether replacing needs approval.
type TableInspector interface {
	// RowCount returns the rows in table; exists is false when there is no such table.
	RowCount(ctx context.Context, table string) (rows int64, exists bool, err error)
}
