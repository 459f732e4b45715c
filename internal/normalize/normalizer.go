package normalize

import (
	"errors"
	"fmt"

	"github.com/vvka-141/tripload/pkg/tripload"
)

var (
	errMissingColumn   = errors.New("column not found in source")
	errCanonicalExists = errors.New("canonical column already present in source")
)

// Normalize renames the variant's raw timestamp columns to their canonical
// names and parses their values. All other columns are copied untouched.
//
// The input batch is not modified. A zero-row batch yields a zero-row batch
// with the renamed column list.
func Normalize(b tripload.Batch, v tripload.Variant) (tripload.Batch, error) {
	if err := v.Validate(); err != nil {
		return tripload.Batch{}, err
	}

	pickup, err := locate(b, v.Pickup, v.CanonicalPickup)
	if err != nil {
		return tripload.Batch{}, err
	}
	dropoff, err := locate(b, v.Dropoff, v.CanonicalDropoff)
	if err != nil {
		return tripload.Batch{}, err
	}

	columns := make([]string, len(b.Columns))
	copy(columns, b.Columns)
	columns[pickup] = v.CanonicalPickup
	columns[dropoff] = v.CanonicalDropoff

	rows := make([][]any, len(b.Rows))
	for i, src := range b.Rows {
		if len(src) != len(columns) {
			return tripload.Batch{}, &tripload.DataFormatError{
				Row: i,
				Err: fmt.Errorf("row has %d fields, expected %d", len(src), len(columns)),
			}
		}

		row := make([]any, len(src))
		copy(row, src)

		for _, idx := range [2]int{pickup, dropoff} {
			parsed, err := ParseTimestamp(src[idx])
			if err != nil {
				return tripload.Batch{}, &tripload.DataFormatError{
					Row:    i,
					Column: b.Columns[idx],
					Value:  fmt.Sprint(src[idx]),
					Err:    err,
				}
			}
			row[idx] = parsed
		}
		rows[i] = row
	}

	return tripload.Batch{Columns: columns, Rows: rows}, nil
}

// Schema infers the destination schema of a normalized batch. The canonical
// timestamp columns are always typed timestamp, so a zero-row batch still
// yields the right table definition.
func Schema(normalized tripload.Batch, v tripload.Variant) tripload.Schema {
	return tripload.InferSchema(normalized).
		With(v.CanonicalPickup, tripload.TypeTimestamp).
		With(v.CanonicalDropoff, tripload.TypeTimestamp)
}

func locate(b tripload.Batch, raw, canonical string) (int, error) {
	idx := b.Index(raw)
	if idx < 0 {
		return -1, &tripload.DataFormatError{Row: -1, Column: raw, Err: errMissingColumn}
	}
	if raw != canonical && b.Index(canonical) >= 0 {
		return -1, &tripload.DataFormatError{Row: -1, Column: canonical, Err: errCanonicalExists}
	}
	return idx, nil
}
