package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vvka-141/tripload/internal/checksum"
	"github.com/vvka-141/tripload/internal/fetch"
	"github.com/vvka-141/tripload/internal/loader"
	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/normalize"
	"github.com/vvka-141/tripload/internal/sink"
	"github.com/vvka-141/tripload/internal/source"
	"github.com/vvka-141/tripload/pkg/tripload"
)

type sinkOpener func(ctx context.Context, cfg *tripload.ConnectionConfig, factory tripload.ConnectorFactory, logger tripload.Logger) (tripload.Sink, error)

// IngestService runs one load from a CSV source into a database table.
// Thread-Safety: NOT safe for concurrent Ingest() calls on the same instance.
type IngestService struct {
	connectorFactory tripload.ConnectorFactory
	approver         tripload.Approver
	logger           tripload.Logger
	registry         *normalize.Registry
	progress         tripload.ProgressReporter
	fetcherFor       func(name string) tripload.Fetcher
	openSink         sinkOpener
}

// Option configures an IngestService.
type Option func(*IngestService)

// WithProgress reports every written chunk to p.
func WithProgress(p tripload.ProgressReporter) Option {
	return func(s *IngestService) { s.progress = p }
}

// WithFetcher replaces the fetcher selection. The default is fetch.ForSource
// logging to the run logger.
func WithFetcher(fn func(name string) tripload.Fetcher) Option {
	return func(s *IngestService) { s.fetcherFor = fn }
}

// NewIngestService creates an IngestService with all dependencies injected.
// Nil dependencies are programmer errors and panic.
func NewIngestService(
	connectorFactory tripload.ConnectorFactory,
	approver tripload.Approver,
	logger tripload.Logger,
	registry *normalize.Registry,
	opts ...Option,
) *IngestService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}

	svc := &IngestService{
		connectorFactory: connectorFactory,
		approver:         approver,
		logger:           logger,
		registry:         registry,
		openSink:         sink.Open,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Ingest loads cfg.Source into cfg.Table.
//
// The source is only fetched after the sink is open and, for a table that
// already holds rows, after the approver agreed to replace it. The returned
// result is nil when the run failed before the loader started.
func (s *IngestService) Ingest(ctx context.Context, cfg tripload.IngestConfig) (*tripload.LoadResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	variant, err := s.resolveVariant(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := s.logger
	if cl, ok := logger.(*logging.ConsoleLogger); ok {
		logger = cl.WithRun(runID)
	}
	logger.Verbose("Variant %s resolved for %s", variant.Name, cfg.Source)

	connCfg := *cfg.Connection
	if connCfg.AppName == "" {
		connCfg.AppName = fmt.Sprintf("%s-%s", tripload.ApplicationName, runID[:8])
	}

	dst, err := s.openSink(ctx, &connCfg, s.connectorFactory, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil {
			logger.Error("closing sink: %v", cerr)
		}
	}()

	if err := s.approve(ctx, dst, cfg.Table, logger); err != nil {
		return nil, err
	}

	var fetcher tripload.Fetcher
	if s.fetcherFor != nil {
		fetcher = s.fetcherFor(cfg.Source)
	} else {
		fetcher = fetch.ForSource(cfg.Source, fetch.WithLogger(logger))
	}
	digest := checksum.NewFetcher(fetcher)
	body, err := fetch.Open(ctx, digest, cfg.Source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var csvOpts []source.Option
	if cfg.Delimiter != 0 {
		csvOpts = append(csvOpts, source.WithDelimiter(cfg.Delimiter))
	}
	src, err := source.NewCSV(body, csvOpts...)
	if err != nil {
		return nil, err
	}

	ldOpts := []loader.Option{loader.WithLogger(logger)}
	if s.progress != nil {
		ldOpts = append(ldOpts, loader.WithProgress(s.progress))
	}
	if cfg.PrimingRows > 0 {
		ldOpts = append(ldOpts, loader.WithPrimingRows(cfg.PrimingRows))
	}

	logger.Info("Loading %s into %s (%s, chunk size %d)", cfg.Source, cfg.Table, variant.Name, cfg.ChunkSize)
	if starter, ok := s.progress.(tripload.LoadStarter); ok {
		starter.LoadStarted(cfg.Table)
	}
	result, err := loader.New(ldOpts...).Load(ctx, loader.Request{
		Source:    src,
		Sink:      dst,
		Table:     cfg.Table,
		Variant:   variant,
		ChunkSize: cfg.ChunkSize,
		RunID:     runID,
	})
	if err != nil {
		return result, err
	}

	result.SourceSHA256 = digest.Sum()
	result.SourceBytes = digest.Bytes()
	logger.Verbose("Source %s: %d bytes, sha256 %s", cfg.Source, result.SourceBytes, result.SourceSHA256)
	return result, nil
}

func (s *IngestService) resolveVariant(cfg tripload.IngestConfig) (tripload.Variant, error) {
	if cfg.Variant != "" {
		return s.registry.Lookup(cfg.Variant)
	}
	return s.registry.Resolve(cfg.Source)
}

// approve asks before replacing a table that holds rows. Sinks that cannot
// inspect tables, missing tables and empty tables need no approval.
func (s *IngestService) approve(ctx context.Context, dst tripload.Sink, table string, logger tripload.Logger) error {
	inspector, ok := dst.(tripload.TableInspector)
	if !ok {
		return nil
	}

	rows, exists, err := inspector.RowCount(ctx, table)
	if err != nil {
		return err
	}
	if !exists || rows == 0 {
		logger.Verbose("Table %s is absent or empty, no approval needed", table)
		return nil
	}

	approved, err := s.approver.RequestApproval(ctx, table, rows)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("approval for %s: %w", table, err)
	}
	if !approved {
		return fmt.Errorf("replacing %s (%d rows): %w", table, rows, tripload.ErrApprovalDenied)
	}
	return nil
}
