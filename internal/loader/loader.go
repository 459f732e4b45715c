package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/normalize"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// Request describes one load.
type Request struct {
	Source    tripload.RowSource
	Sink      tripload.Sink
	Table     string
	Variant   tripload.Variant
	ChunkSize int

	// RunID identifies the run in logs and progress. Generated when empty.
	RunID string
}

func (r Request) validate() error {
	var errs []error
	if r.Source == nil {
		errs = append(errs, fmt.Errorf("source is required: %w", tripload.ErrInvalidConfig))
	}
	if r.Sink == nil {
		errs = append(errs, fmt.Errorf("sink is required: %w", tripload.ErrInvalidConfig))
	}
	if r.Table == "" {
		errs = append(errs, fmt.Errorf("table is required: %w", tripload.ErrInvalidConfig))
	}
	if r.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d: %w", r.ChunkSize, tripload.ErrInvalidConfig))
	}
	if err := r.Variant.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Loader runs chunked loads. It holds no per-run state and may be reused
// for sequential runs.
type Loader struct {
	logger      tripload.Logger
	progress    tripload.ProgressReporter
	primingRows int
	now         func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to a NullLogger.
func WithLogger(l tripload.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithProgress sets the reporter notified after every appended batch.
func WithProgress(p tripload.ProgressReporter) Option {
	return func(ld *Loader) {
		ld.progress = p
	}
}

// WithPrimingRows sets how many leading rows are read to infer the schema.
// Non-positive values keep the default.
func WithPrimingRows(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.primingRows = n
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	ld := &Loader{
		logger:      logging.NewNullLogger(),
		primingRows: tripload.DefaultPrimingRows,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load primes the destination table and appends every row of the source.
//
// The returned result is non-nil whenever validation passed, including on
// failure, and describes the chunks that reached the sink. Invalid requests
// fail with ErrInvalidConfig before any write.
func (l *Loader) Load(ctx context.Context, req Request) (*tripload.LoadResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &tripload.LoadResult{
		RunID:   runID,
		Table:   req.Table,
		Variant: req.Variant.Name,
		State:   tripload.StateNotStarted,
	}
	start := l.now()
	defer func() { result.Duration = l.now().Sub(start) }()

	if err := advance(result, tripload.StatePriming); err != nil {
		return result, err
	}

	reader, err := l.prime(ctx, req, result)
	if err != nil {
		return result, l.fail(result, err)
	}

	if err := advance(result, tripload.StateLoading); err != nil {
		return result, err
	}

	if err := l.appendAll(ctx, req, reader, result, start); err != nil {
		return result, l.fail(result, err)
	}

	if err := advance(result, tripload.StateDone); err != nil {
		return result, err
	}
	l.logger.Verbose("Run %s loaded %d rows in %d chunks into %s", runID, result.Rows, result.Chunks, req.Table)
	return result, nil
}

// prime reads the leading rows, replaces the table and returns a reader that
// replays those rows before continuing with the source.
func (l *Loader) prime(ctx context.Context, req Request, result *tripload.LoadResult) (*replayReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	head, err := pull(req.Source, l.primingRows)
	if err != nil {
		return nil, fmt.Errorf("priming: %w", err)
	}

	normalized, err := normalize.Normalize(head, req.Variant)
	if err != nil {
		return nil, fmt.Errorf("priming: %w", rebaseRow(err, 0))
	}
	schema := normalize.Schema(normalized, req.Variant)

	l.logger.Verbose("Run %s: replacing %s with %d columns inferred from %d rows",
		result.RunID, req.Table, len(schema), head.Len())

	if err := req.Sink.Replace(ctx, req.Table, schema); err != nil {
		return nil, asSinkError(err, "replace", req.Table, -1)
	}
	result.Schema = schema

	return &replayReader{columns: head.Columns, buffered: head.Rows, src: req.Source}, nil
}

func (l *Loader) appendAll(ctx context.Context, req Request, reader *replayReader, result *tripload.LoadResult, start time.Time) error {
	offset := 0
	for index := 0; ; index, offset = index+1, offset+req.ChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := pull(reader, req.ChunkSize)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", index, err)
		}
		if raw.Len() == 0 {
			return nil
		}

		batch, err := normalize.Normalize(raw, req.Variant)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", index, rebaseRow(err, offset))
		}

		written, err := req.Sink.Append(ctx, req.Table, batch)
		if err != nil {
			return asSinkError(err, "append", req.Table, index)
		}

		result.Chunks++
		result.Rows += written
		l.logger.Verbose("Inserted chunk %d (%d rows, %d total)", index, written, result.Rows)

		if l.progress != nil {
			l.progress.ChunkWritten(tripload.ChunkProgress{
				RunID:     result.RunID,
				Table:     req.Table,
				Index:     index,
				Rows:      batch.Len(),
				TotalRows: result.Rows,
				Elapsed:   l.now().Sub(start),
			})
		}
	}
}

func (l *Loader) fail(result *tripload.LoadResult, cause error) error {
	if err := advance(result, tripload.StateFailed); err != nil {
		return errors.Join(cause, err)
	}
	l.logger.Error("Run %s failed after %d chunks (%d rows): %v", result.RunID, result.Chunks, result.Rows, cause)
	return cause
}

// rebaseRow turns the batch-relative row of a DataFormatError into the
// zero-based data row of the source. Every batch but the last holds exactly
// ChunkSize rows, so offset is the number of rows before the batch.
func rebaseRow(err error, offset int) error {
	var dfe *tripload.DataFormatError
	if errors.As(err, &dfe) && dfe.Row >= 0 {
		dfe.Row += offset
	}
	return err
}

// asSinkError wraps err in a SinkError unless the sink already returned one.
func asSinkError(err error, op, table string, chunk int) error {
	var se *tripload.SinkError
	if errors.As(err, &se) {
		if se.Chunk < 0 && chunk >= 0 {
			se.Chunk = chunk
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &tripload.SinkError{Op: op, Table: table, Chunk: chunk, Err: err}
}

// rowReader is the subset of RowSource that pull needs.
type rowReader interface {
	Columns() []string
	Next() ([]any, error)
}

// replayReader yields buffered rows before reading from src.
type replayReader struct {
	columns  []string
	buffered [][]any
	src      tripload.RowSource
}

func (r *replayReader) Columns() []string { return r.columns }

func (r *replayReader) Next() ([]any, error) {
	if len(r.buffered) > 0 {
		row := r.buffered[0]
		r.buffered[0] = nil
		r.buffered = r.buffered[1:]
		return row, nil
	}
	return r.src.Next()
}

// pull reads up to n rows. A short batch means the source is exhausted.
func pull(src rowReader, n int) (tripload.Batch, error) {
	batch := tripload.Batch{Columns: src.Columns()}
	for len(batch.Rows) < n {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return tripload.Batch{}, err
		}
		batch.Rows = append(batch.Rows, row)
	}
	return batch, nil
}
