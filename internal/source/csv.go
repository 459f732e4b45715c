package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vvka-141/tripload/pkg/tripload"
)

const utf8BOM = "\ufeff"

// CSV is a forward-only tripload.RowSource over CSV text.
type CSV struct {
	r       *csv.Reader
	columns []string
	row     int
}

// Option configures a CSV source.
type Option func(*csv.Reader)

// WithDelimiter sets the field separator. Zero keeps the default comma.
func WithDelimiter(d rune) Option {
	return func(r *csv.Reader) {
		if d != 0 {
			r.Comma = d
		}
	}
}

// NewCSV reads the header row from r and returns a source positioned at the
// first data row. An input without a header row is a data format error.
func NewCSV(r io.Reader, opts ...Option) (*CSV, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	reader.LazyQuotes = true
	for _, opt := range opts {
		opt(reader)
	}

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &tripload.DataFormatError{Row: -1, Err: errors.New("source has no header row")}
	}
	if err != nil {
		return nil, readError(-1, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}
	columns[0] = strings.TrimPrefix(columns[0], utf8BOM)

	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, &tripload.DataFormatError{Row: -1, Column: c, Err: errors.New("duplicate column name")}
		}
		seen[c] = true
	}

	return &CSV{r: reader, columns: columns}, nil
}

// Columns returns the header names.
func (s *CSV) Columns() []string {
	return s.columns
}

// Next returns the next data row, or io.EOF once the input is exhausted.
// Row indexes in errors count data rows from zero.
func (s *CSV) Next() ([]any, error) {
	record, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, readError(s.row, err)
	}
	if len(record) != len(s.columns) {
		return nil, &tripload.DataFormatError{
			Row: s.row,
			Err: fmt.Errorf("row has %d fields, header has %d", len(record), len(s.columns)),
		}
	}

	row := make([]any, len(record))
	for i, cell := range record {
		row[i] = InferValue(cell)
	}
	s.row++
	return row, nil
}

// InferValue converts a raw cell to int64, float64 or string.
// Blank cells become nil. Non-finite floats are kept as text.
func InferValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if looksNumeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
	}
	return s
}

// looksNumeric rejects the spellings ParseFloat accepts that a CSV writer
// never means as numbers: "inf", "nan", hex floats and underscores.
func looksNumeric(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}

func readError(row int, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &tripload.DataFormatError{Row: row, Err: err}
	}
	return fmt.Errorf("read source: %w: %w", tripload.ErrFetchFailed, err)
}
