// Package checksum digests source payloads while they stream.
//
// The digest covers the bytes exactly as fetched, before gzip
// decompression, so it can be compared with the checksum a data publisher
// lists next to a file:
//
//	f := checksum.NewFetcher(fetch.ForSource(name))
//	body, err := fetch.Open(ctx, f, name)
//	// ... read body to EOF ...
//	sum, n := f.Sum(), f.Bytes()
//
// A Fetcher digests one payload; it is not safe for concurrent use.
package checksum
