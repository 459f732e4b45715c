package normalize

import (
	"errors"
	"math"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Published trip files use the first;
// the rest cover re-exported and hand-edited files.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04",
	"2006-01-02",
}

var errUnrecognizedTimestamp = errors.New("unrecognized timestamp layout")

// Epoch values must fall in years 1 through 9999, the range every sink
// can store.
var (
	minEpoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpoch = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// ParseTimestamp converts a raw cell into a UTC time.
//
// Strings are matched against the known layouts. Integers are Unix epoch
// seconds and floats fractional epoch seconds; epochs outside years
// 1 through 9999 are rejected. nil stays nil.
func ParseTimestamp(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.UTC(), nil
	case int64:
		return fromEpoch(x)
	case int:
		return fromEpoch(int64(x))
	case float64:
		// NaN fails the comparison.
		if !(x >= float64(minEpoch) && x < float64(maxEpoch+1)) {
			return nil, errUnrecognizedTimestamp
		}
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, errUnrecognizedTimestamp
	default:
		return nil, errUnrecognizedTimestamp
	}
}

func fromEpoch(sec int64) (any, error) {
	if sec < minEpoch || sec > maxEpoch {
		return nil, errUnrecognizedTimestamp
	}
	return time.Unix(sec, 0).UTC(), nil
}
