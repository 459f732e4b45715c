package tripload

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Batch is an ordered slice of rows sharing one column list.
//
// Cells hold one of int64, float64, string, time.Time or nil. Rows are
// positional; use Index to address a column by name.
type Batch struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (b Batch) Len() int { return len(b.Rows) }

// Index returns the position of column name, or -1.
func (b Batch) Index(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Empty returns the zero-row projection of b: same columns, no rows.
func (b Batch) Empty() Batch {
	return Batch{Columns: append([]string(nil), b.Columns...)}
}

// ColumnType is the destination type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeFloat
	TypeTimestamp
)

func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column is one column of a destination schema.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the ordered column list of a destination table.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// With returns a copy of s where column name has type t.
func (s Schema) With(name string, t ColumnType) Schema {
	out := make(Schema, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Name == name {
			out[i].Type = t
		}
	}
	return out
}

// TypesOf returns the type of each of columns, in order. Every column must
// be part of s.
func (s Schema) TypesOf(columns []string) ([]ColumnType, error) {
	byName := make(map[string]ColumnType, len(s))
	for _, c := range s {
		byName[c.Name] = c.Type
	}

	types := make([]ColumnType, len(columns))
	for i, c := range columns {
		t, ok := byName[c]
		if !ok {
			return nil, fmt.Errorf("column %q is not part of the schema", c)
		}
		types[i] = t
	}
	return types, nil
}

// InferSchema derives column types from the values present in b.
// A column whose values are all nil (or a zero-row batch) is text.
//
// Whole numbers only make an integer column when the column is named as an
// identifier (VendorID, PULocationID, zone_id). Other numeric columns are
// float: the inference sees only the leading rows, and amounts such as
// tolls_amount are 0 for long stretches before the first fraction.
func InferSchema(b Batch) Schema {
	schema := make(Schema, len(b.Columns))
	for i, name := range b.Columns {
		t := inferColumn(b.Rows, i)
		if t == TypeInteger && !IsIdentifierColumn(name) {
			t = TypeFloat
		}
		schema[i] = Column{Name: name, Type: t}
	}
	return schema
}

// IsIdentifierColumn reports whether name follows the ID naming of trip
// files: a trailing "ID" or "Id", or "id" as the last underscore-separated word.
func IsIdentifierColumn(name string) bool {
	if strings.HasSuffix(name, "ID") || strings.HasSuffix(name, "Id") {
		return true
	}
	lower := strings.ToLower(name)
	return lower == "id" || strings.HasSuffix(lower, "_id")
}

func inferColumn(rows [][]any, idx int) ColumnType {
	var seen, ints, floats, times int
	for _, row := range rows {
		if idx >= len(row) || row[idx] == nil {
			continue
		}
		seen++
		switch row[idx].(type) {
		case int64, int:
			ints++
		case float64:
			floats++
		case time.Time:
			times++
		default:
			return TypeText
		}
	}
	switch {
	case seen == 0:
		return TypeText
	case times == seen:
		return TypeTimestamp
	case ints == seen:
		return TypeInteger
	case ints+floats == seen:
		return TypeFloat
	default:
		return TypeText
	}
}

// Bounds of the float64 values that convert to int64 without overflow.
// NaN fails both comparisons.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

// Coerce converts v to the Go representation stored in a column of type t.
// nil is always accepted. A float stored in an integer column is rounded
// half to even; values outside the int64 range are rejected.
func Coerce(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeInteger:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case float64:
			// Rounded half to even, as PostgreSQL casts float8 to bigint.
			if r := math.RoundToEven(x); r >= minInt64Float && r < maxInt64Float {
				return int64(r), nil
			}
		}
	case TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		}
	case TypeTimestamp:
		if x, ok := v.(time.Time); ok {
			return x, nil
		}
	case TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case int:
			return strconv.Itoa(x), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		case time.Time:
			return x.Format("2006-01-02 15:04:05"), nil
		default:
			return fmt.Sprint(x), nil
		}
	}
	return nil, fmt.Errorf("cannot store %T value %v in %s column", v, v, t)
}
