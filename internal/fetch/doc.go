// Package fetch retrieves the raw bytes of a source file.
//
// HTTPFetcher downloads over http(s) and retries transient failures;
// FileFetcher opens local paths. Open wraps either in a gzip reader when the
// payload starts with the gzip magic bytes, so published ".csv.gz" files and
// plain ".csv" files are read the same way.
package fetch
