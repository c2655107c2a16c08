package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/filingwatch/internal/core/domain"
	"github.com/custodia-labs/filingwatch/internal/core/ports/driven"
	"github.com/custodia-labs/filingwatch/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// HeaderUserAgent carries the operator identification.
	HeaderUserAgent = "User-Agent"

	// maxBodySize caps a single response; full submissions with
	// exhibits stay well below it.
	maxBodySize = 64 << 20
)

// Ensure Client implements the interface.
var _ driven.Fetcher = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// BaseURL is the archive root. Paths passed to Fetch are resolved against it.
	BaseURL string

	// UserAgent identifies the operator. Required.
	UserAgent string

	// RateLimit is the shared request budget.
	RateLimit RateLimitConfig

	// Timeout bounds each request.
	Timeout time.Duration

	// HTTPClient overrides the underlying client, mainly for tests.
	HTTPClient *http.Client
}

// Client is the rate-limited archive fetcher.
type Client struct {
	base        *url.URL
	userAgent   string
	http        *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates an archive client. A missing UserAgent is a
// configuration error: the archive's usage policy requires it.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.UserAgent) == "" {
		return nil, &domain.ConfigurationError{Setting: "FILINGWATCH_USER_AGENT"}
	}
	if opts.BaseURL == "" {
		return nil, &domain.ConfigurationError{Setting: "FILINGWATCH_ARCHIVE_URL"}
	}

	raw := opts.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, &domain.ConfigurationError{Setting: "FILINGWATCH_ARCHIVE_URL", Reason: err.Error()}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		base:        base,
		userAgent:   opts.UserAgent,
		http:        httpClient,
		rateLimiter: NewRateLimiter(opts.RateLimit),
	}, nil
}

// Fetch returns the body at path, relative to the archive root.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: err}
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: err}
	}
	req.Header.Set(HeaderUserAgent, c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	logger.Debug("GET %s", target)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domain.RemoteFetchError{Path: path, StatusCode: resp.StatusCode}
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: err}
	}
	return body, nil
}

// ListDirectory fetches the JSON index of a directory. dir may name the
// directory itself or its index.json.
func (c *Client) ListDirectory(ctx context.Context, dir string) (*driven.DirectoryListing, error) {
	path := dir
	if !strings.HasSuffix(path, ".json") {
		path = strings.TrimSuffix(path, "/") + "/index.json"
	}

	body, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	var listing driven.DirectoryListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, &domain.RemoteFetchError{Path: path, Err: fmt.Errorf("decode listing: %w", err)}
	}
	return &listing, nil
}

// resolve joins a relative archive path onto the base URL.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return "", fmt.Errorf("%w: absolute path %q", domain.ErrInvalidInput, path)
	}
	return c.base.ResolveReference(ref).String(), nil
}
