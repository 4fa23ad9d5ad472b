// Package fetch provides the content fetchers used by the area classifier.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/multimediallc/pr-import-bot/pkg/area"
	"golang.org/x/time/rate"
)

// maxContentSize caps the bytes read for one file
const maxContentSize = 10 << 20

// HTTPFetcher loads raw file content from URLs, such as the raw_url of a pull request file
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPFetcher creates a fetcher using client, limited to requestsPerSecond.
// A non-positive rate disables limiting.
func NewHTTPFetcher(client *http.Client, requestsPerSecond float64) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &HTTPFetcher{client: client, limiter: rate.NewLimiter(limit, 1)}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", &area.TransportError{Ref: ref, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", &area.TransportError{Ref: ref, Err: err}
	}
	res, err := h.client.Do(req)
	if err != nil {
		return "", &area.TransportError{Ref: ref, Err: err}
	}
	defer func() {
		_ = res.Body.Close()
	}()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return "", &area.NotFoundError{Ref: ref}
	case res.StatusCode < 200 || res.StatusCode > 299:
		return "", &area.TransportError{Ref: ref, Err: fmt.Errorf("unexpected status %s", res.Status)}
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxContentSize+1))
	if err != nil {
		return "", &area.TransportError{Ref: ref, Err: err}
	}
	if len(body) > maxContentSize {
		return "", &area.TransportError{Ref: ref, Err: fmt.Errorf("content exceeds %d bytes", maxContentSize)}
	}
	return string(body), nil
}

// FileFetcher reads content from a local checkout. References are paths relative to the root.
type FileFetcher struct {
	root string
}

func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

func (ff *FileFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &area.TransportError{Ref: ref, Err: err}
	}
	rel := filepath.FromSlash(strings.TrimPrefix(ref, "/"))
	if !filepath.IsLocal(rel) {
		return "", &area.NotFoundError{Ref: ref}
	}
	content, err := os.ReadFile(filepath.Join(ff.root, rel))
	if errors.Is(err, fs.ErrNotExist) {
		return "", &area.NotFoundError{Ref: ref}
	}
	if err != nil {
		return "", &area.TransportError{Ref: ref, Err: err}
	}
	return string(content), nil
}

// MemoryFetcher serves content from a map and records every request
type MemoryFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls []string
}

func NewMemoryFetcher(files map[string]string) *MemoryFetcher {
	if files == nil {
		files = make(map[string]string)
	}
	return &MemoryFetcher{files: files}
}

func (m *MemoryFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ref)
	content, ok := m.files[ref]
	if !ok {
		return "", &area.NotFoundError{Ref: ref}
	}
	return content, nil
}

// Calls returns the requested references in request order
func (m *MemoryFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
