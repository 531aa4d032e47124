package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/narrascope/internal/cache"
	"github.com/ppiankov/narrascope/internal/model"
	"github.com/ppiankov/narrascope/internal/util"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	maxRedirects = 5
	maxAttempts  = 3
)

// fetchSleepFunc is swapped out in tests
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status: " + e.Status
}

// Fetcher loads pages from the web or from disk
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	store      cache.Cache
	ttl        time.Duration
	logger     *zap.Logger
}

// FetchResult contains the loaded markup and where it came from
type FetchResult struct {
	HTML     string
	Meta     model.FetchMeta
	Subject  string
	FinalURL string // URL after redirects, or the absolute file path
	IsFile   bool
}

// cachedPage is the msgpack form of a cached fetch
type cachedPage struct {
	HTML     string          `msgpack:"h"`
	Meta     model.FetchMeta `msgpack:"m"`
	FinalURL string          `msgpack:"u"`
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithRobots enforces robots.txt before each fetch
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithCache stores fetched pages for ttl
func WithCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.store = c
			f.ttl = ttl
		}
	}
}

// WithFetchLogger sets the logger
func WithFetchLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher from HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: util.NewTransport(cfg),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		store:     cache.Nop{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load fetches target when it is an http(s) URL and reads it from disk otherwise
func (f *Fetcher) Load(ctx context.Context, target string) (*FetchResult, error) {
	if IsURL(target) {
		return f.FetchWithRetry(ctx, target)
	}
	return f.LoadFile(strings.TrimPrefix(target, "file://"))
}

// IsURL reports whether target should be fetched over HTTP
func IsURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// Fetch retrieves HTML content from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.Key(cache.NamespacePage, rawURL)
	if data, ok := f.store.Get(key); ok {
		var page cachedPage
		if err := msgpack.Unmarshal(data, &page); err == nil {
			f.logger.Debug("page cache hit", zap.String("url", rawURL))
			page.Meta.FromCache = true
			return &FetchResult{
				HTML:     page.HTML,
				Meta:     page.Meta,
				Subject:  extractSubject(page.FinalURL),
				FinalURL: page.FinalURL,
			}, nil
		}
		_ = f.store.Delete(key)
	}

	if f.robots != nil {
		decision, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}
	for _, key := range []string{"Content-Length", "Server", "Cache-Control", "Content-Language"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	result := &FetchResult{
		HTML:     string(body),
		Meta:     meta,
		Subject:  extractSubject(finalURL),
		FinalURL: finalURL,
	}

	if data, err := msgpack.Marshal(cachedPage{HTML: result.HTML, Meta: meta, FinalURL: finalURL}); err == nil {
		if err := f.store.Set(key, data, f.ttl); err != nil {
			f.logger.Warn("page cache write failed", zap.Error(err))
		}
	}

	return result, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection errors)
// with linear backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		f.logger.Debug("retrying fetch",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		(strings.HasPrefix(msg, "fetch:") && strings.Contains(msg, "EOF"))
}

// LoadFile reads a local HTML file
func (f *Fetcher) LoadFile(path string) (*FetchResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = file.Close() }()

	limit := f.maxBytes
	if limit <= 0 {
		limit = model.DefaultConfig().HTTP.MaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return &FetchResult{
		HTML:     string(body),
		Subject:  extractSubject(abs),
		FinalURL: abs,
		IsFile:   true,
	}, nil
}

// extractSubject derives a readable subject from the last path segment
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		if parsed.Host != "" {
			return parsed.Host
		}
		return rawURL
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}

	return last
}
