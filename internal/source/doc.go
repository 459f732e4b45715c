// Package source provides row sources over delimited text.
//
// CSV reads a header row followed by data rows and infers a Go type for
// each cell: int64, float64, string, or nil for an empty cell. Rows are
// produced lazily, one Next call at a time, so memory use is bounded by the
// caller's batch size rather than by the size of the file.
//
//	src, err := source.NewCSV(r, source.WithDelimiter(';'))
//	if err != nil {
//	    return err
//	}
//	for {
//	    row, err := src.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package source
