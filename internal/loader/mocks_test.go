package loader

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vvka-141/tripload/pkg/tripload"
)

var tripColumns = []string{"VendorID", "tpep_pickup_datetime", "tpep_dropoff_datetime", "trip_distance"}

// tripSource generates n yellow-trip rows. Rows listed in bad carry an
// unparseable pickup timestamp.
type tripSource struct {
	n    int
	next int
	bad  map[int]bool
	err  error
}

func newTripSource(n int) *tripSource {
	return &tripSource{n: n, bad: map[int]bool{}}
}

func (s *tripSource) Columns() []string { return tripColumns }

func (s *tripSource) Next() ([]any, error) {
	if s.err != nil && s.next == s.n {
		return nil, s.err
	}
	if s.next >= s.n {
		return nil, io.EOF
	}
	i := s.next
	s.next++

	pickup := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second)
	pickupCell := any(pickup.Format("2006-01-02 15:04:05"))
	if s.bad[i] {
		pickupCell = "not-a-time"
	}
	return []any{int64(i%2 + 1), pickupCell, pickup.Add(10 * time.Minute).Format("2006-01-02 15:04:05"), float64(i) / 100}, nil
}

type call struct {
	op     string
	table  string
	schema tripload.Schema
	rows   int
}

// recordingSink keeps every call and every appended row.
type recordingSink struct {
	calls      []call
	rows       [][]any
	replaceErr error
	appendErr  map[int]error // by append call index
	appends    int
	closed     bool
}

func (s *recordingSink) Replace(_ context.Context, table string, schema tripload.Schema) error {
	s.calls = append(s.calls, call{op: "replace", table: table, schema: schema})
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.rows = nil
	return nil
}

func (s *recordingSink) Append(_ context.Context, table string, batch tripload.Batch) (int64, error) {
	idx := s.appends
	s.appends++
	s.calls = append(s.calls, call{op: "append", table: table, rows: batch.Len()})
	if err := s.appendErr[idx]; err != nil {
		return 0, err
	}
	s.rows = append(s.rows, batch.Rows...)
	return int64(batch.Len()), nil
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSink) appendSizes() []int {
	var sizes []int
	for _, c := range s.calls {
		if c.op == "append" {
			sizes = append(sizes, c.rows)
		}
	}
	return sizes
}

type progressLog []tripload.ChunkProgress

func (p *progressLog) ChunkWritten(cp tripload.ChunkProgress) { *p = append(*p, cp) }

func (p progressLog) indices() []int {
	out := make([]int, len(p))
	for i, cp := range p {
		out[i] = cp.Index
	}
	return out
}

func (p progressLog) String() string { return fmt.Sprint(p.indices()) }
