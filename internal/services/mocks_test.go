package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/tripload/pkg/tripload"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

func mockFactory(_ *tripload.ConnectionConfig) (tripload.Connector, error) {
	return &mockConnector{err: errors.New("no database in unit tests")}, nil
}

type mockApprover struct {
	approved bool
	err      error

	calls int
	table string
	rows  int64
}

func (m *mockApprover) RequestApproval(_ context.Context, table string, rows int64) (bool, error) {
	m.calls++
	m.table = table
	m.rows = rows
	return m.approved, m.err
}

// recordingSink is a Sink and TableInspector that keeps everything in memory.
type recordingSink struct {
	existingRows int64
	exists       bool
	countErr     error

	replaced []string
	appended int64
	closed   bool
}

func (s *recordingSink) Replace(_ context.Context, table string, _ tripload.Schema) error {
	s.replaced = append(s.replaced, table)
	return nil
}

func (s *recordingSink) Append(_ context.Context, _ string, batch tripload.Batch) (int64, error) {
	s.appended += int64(batch.Len())
	return int64(batch.Len()), nil
}

func (s *recordingSink) RowCount(_ context.Context, _ string) (int64, bool, error) {
	return s.existingRows, s.exists, s.countErr
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

// opener returns a sinkOpener handing out s and recording the config it saw.
func (s *recordingSink) opener(seen **tripload.ConnectionConfig) sinkOpener {
	return func(_ context.Context, cfg *tripload.ConnectionConfig, _ tripload.ConnectorFactory, _ tripload.Logger) (tripload.Sink, error) {
		if seen != nil {
			*seen = cfg
		}
		return s, nil
	}
}

type mockFetcher struct {
	body  string
	err   error
	calls int
}

func (f *mockFetcher) Fetch(_ context.Context, _ string) (io.ReadCloser, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}
