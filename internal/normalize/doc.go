// Package normalize maps dataset variants onto one canonical schema.
//
// Trip-record flavors publish the same fields under different names: yellow
// trips carry tpep_pickup_datetime, green trips lpep_pickup_datetime. A
// Registry resolves the variant of a run from an identifying token (usually
// the source file name), and Normalize renames the variant's two raw
// timestamp columns to their canonical names while parsing the values into
// time.Time.
//
// # Example Usage
//
//	registry := normalize.DefaultRegistry()
//	variant, err := registry.Resolve("green_tripdata_2019-01.csv.gz")
//	if err != nil {
//	    return err // wraps tripload.ErrInvalidConfig
//	}
//	normalized, err := normalize.Normalize(batch, variant)
//
// Normalize never mutates its input and accepts zero-row batches, which is
// how the loader derives the destination schema before any data is written.
package normalize
