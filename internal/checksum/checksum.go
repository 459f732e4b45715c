package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/vvka-141/tripload/pkg/tripload"
)

// SHA256Hex returns the hex-encoded SHA-256 of content.
func SHA256Hex(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Reader hashes everything read through it.
type Reader struct {
	r io.Reader
	h hash.Hash
	n int64
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, h: sha256.New()}
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.n += int64(n)
	}
	return n, err
}

// Sum returns the hex-encoded SHA-256 of the bytes read so far.
func (r *Reader) Sum() string {
	return hex.EncodeToString(r.h.Sum(nil))
}

// Bytes returns the number of bytes read so far.
func (r *Reader) Bytes() int64 { return r.n }

// Fetcher wraps a tripload.Fetcher and digests the payload it returns.
type Fetcher struct {
	next   tripload.Fetcher
	reader *Reader
}

func NewFetcher(next tripload.Fetcher) *Fetcher {
	return &Fetcher{next: next}
}

// Fetch implements tripload.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	body, err := f.next.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	f.reader = NewReader(body)
	return readCloser{Reader: f.reader, Closer: body}, nil
}

// Sum returns the digest of the fetched payload, or "" before Fetch.
func (f *Fetcher) Sum() string {
	if f.reader == nil {
		return ""
	}
	return f.reader.Sum()
}

// Bytes returns the payload bytes read so far.
func (f *Fetcher) Bytes() int64 {
	if f.reader == nil {
		return 0
	}
	return f.reader.Bytes()
}

type readCloser struct {
	io.Reader
	io.Closer
}
