// Package fetch retrieves remote resources into local files. Every
// failure resolves to an *Error with a kind and a human-readable detail;
// nothing escapes the package boundary as a panic.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout    Kind = "timeout"
	KindTransport  Kind = "transport"
	KindUnexpected Kind = "unexpected"
)

// Error carries the failure kind plus the detail string the host
// scheduler ultimately sees (prefixed by the job controller).
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// copyChunkSize bounds memory use per copy regardless of resource size.
const copyChunkSize = 8 * 1024

type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New builds a fetcher whose downloads are bounded by timeout. The
// deadline is enforced through the request context so it covers both
// connection setup and body streaming.
func New(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch streams url into dest. A single attempt, no retries: if the
// scheduler wants retry semantics it re-dispatches the job.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	f.logger.Info("downloading", slog.String("url", url))

	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Detail: fmt.Sprintf("Download failed: %v", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.classify(fctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindTransport, Detail: fmt.Sprintf("Download failed: unexpected status %d", resp.StatusCode)}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &Error{Kind: KindUnexpected, Detail: fmt.Sprintf("Unexpected download error: %v", err)}
	}
	defer out.Close()

	// Chunked copy so an arbitrarily large resource never buffers in memory
	written, err := io.CopyBuffer(out, resp.Body, make([]byte, copyChunkSize))
	if err != nil {
		return f.classify(fctx, err)
	}

	f.logger.Info("downloaded",
		slog.String("dest", dest),
		slog.Int64("bytes", written),
	)
	return nil
}

// classify maps a transport-level error to a fetch error kind. The
// request context tells timeouts apart from other transport faults even
// when the HTTP layer has wrapped the deadline error.
func (f *Fetcher) classify(fctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded) {
		return &Error{
			Kind:   KindTimeout,
			Detail: fmt.Sprintf("Download timeout after %d seconds", int(f.timeout.Seconds())),
		}
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnexpected, Detail: fmt.Sprintf("Unexpected download error: %v", err)}
	}

	return &Error{Kind: KindTransport, Detail: fmt.Sprintf("Download failed: %v", err)}
}
