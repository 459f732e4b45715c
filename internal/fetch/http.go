package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vvka-141/tripload/internal/logging"
	"github.com/vvka-141/tripload/internal/retry"
	"github.com/vvka-141/tripload/pkg/tripload"
)

// HTTPFetcher downloads resources with GET, retrying transient failures.
//
// Only establishing the response is retried. Once the body is handed to the
// caller, a dropped connection surfaces as a read error.
type HTTPFetcher struct {
	client    *http.Client
	executor  *retry.Executor
	logger    tripload.Logger
	userAgent string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithClient sets the HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithRetry sets the retry executor.
func WithRetry(e *retry.Executor) HTTPOption {
	return func(f *HTTPFetcher) { f.executor = e }
}

// WithLogger sets the logger used to report retries.
func WithLogger(l tripload.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// NewHTTPFetcher creates a fetcher with a retry budget of
// DefaultRetryMaxAttempts.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		// No overall timeout: monthly files take minutes to stream.
		client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
		}},
		executor: retry.NewExecutor(
			retry.NewHTTPErrorClassifier(),
			retry.NewExponentialBackoff(tripload.DefaultRetryMaxAttempts, retry.WithInitialDelay(500*time.Millisecond)),
		),
		logger:    logging.NewNullLogger(),
		userAgent: tripload.ApplicationName,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues GET url and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	executor := f.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		f.logger.Info("Download of %s failed (%v), retrying in %v (attempt %d)", url, err, delay, attempt+1)
	})

	resp, err := retry.Do(ctx, executor, func(ctx context.Context) (*http.Response, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tripload.ErrFetchFailed, err)
	}

	f.logger.Verbose("Downloading %s (%s)", url, sizeOf(resp))
	return resp.Body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &retry.StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func sizeOf(resp *http.Response) string {
	if resp.ContentLength < 0 {
		return "unknown size"
	}
	return fmt.Sprintf("%.1f MiB", float64(resp.ContentLength)/(1<<20))
}
