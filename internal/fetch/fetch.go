package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/vvka-141/tripload/pkg/tripload"
)

var gzipMagic = []byte{0x1f, 0x8b}

// FileFetcher opens local files.
type FileFetcher struct{}

// Fetch opens path for reading.
func (FileFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tripload.ErrFetchFailed, err)
	}
	return f, nil
}

// IsRemote reports whether name is an http(s) URL.
func IsRemote(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ForSource returns the fetcher serving name: HTTP for http(s) URLs, the
// local file system otherwise. opts apply to the HTTP fetcher.
func ForSource(name string, opts ...HTTPOption) tripload.Fetcher {
	if IsRemote(name) {
		return NewHTTPFetcher(opts...)
	}
	return FileFetcher{}
}

// Open fetches name and returns a reader over its decompressed content.
func Open(ctx context.Context, f tripload.Fetcher, name string) (io.ReadCloser, error) {
	raw, err := f.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReaderSize(raw, 64*1024)
	head, err := buffered.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		raw.Close()
		return nil, fmt.Errorf("read %s: %w: %w", name, tripload.ErrFetchFailed, err)
	}

	if len(head) == len(gzipMagic) && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("decompress %s: %w: %w", name, tripload.ErrFetchFailed, err)
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, raw}}, nil
	}

	return &readCloser{Reader: buffered, closers: []io.Closer{raw}}, nil
}

// readCloser closes every layer of a wrapped stream, innermost first.
type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
