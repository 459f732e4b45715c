package tripload

import (
	"context"
	"io"
)

// RowSource is a lazy, finite, forward-only producer of rows.
// It cannot be restarted; re-reading requires opening the resource again.
type RowSource interface {
	// Columns returns the column names, known before the first row.
	Columns() []string

	// Next returns the next row, positional with Columns.
	// It returns io.EOF once the source is exhausted.
	Next() ([]any, error)
}

// Fetcher retrieves the raw bytes of a named resource.
// The caller must close the returned reader.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}
