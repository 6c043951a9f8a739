// Package client provides the HTTP client used for chapter pages, chapter
// scripts and page images: retries with backoff, proxy support and
// transparent gzip/brotli/deflate decoding.
package client

import (
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ytget/mangadl/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3

	userAgentValue      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	acceptEncodingValue = "gzip, deflate, br"
	initialBackoff      = 200 * time.Millisecond
	maxBackoff          = 3 * time.Second
)

// defaultTransport is shared by clients without a proxy. Compression is
// negotiated by hand so brotli can be offered.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	ForceAttemptHTTP2:     true,
	DisableCompression:    true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
	ProxyURL  string
	// Referer is sent with every request; image hosts reject hotlinks without it.
	Referer string
}

// Client wraps http.Client with retry/backoff and default headers.
type Client struct {
	HTTPClient *http.Client
	Retries    int
	UserAgent  string
	Referer    string

	log *logger.ComponentLogger
}

// StatusError reports a non-2xx response that was not retried away.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// New creates a Client with default timeout and retries.
func New() *Client {
	return NewWith(Config{})
}

// NewWith creates a client from cfg. An unparsable ProxyURL is ignored.
func NewWith(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgentValue
	}

	log := logger.WithComponent(logger.ComponentClient)
	var tr http.RoundTripper = defaultTransport
	if cfg.ProxyURL != "" {
		proxy, err := proxyFromURLString(cfg.ProxyURL)
		if err != nil {
			log.Warn("ignoring invalid proxy", map[string]interface{}{"proxy": cfg.ProxyURL, "error": err.Error()})
		} else {
			t := defaultTransport.Clone()
			t.Proxy = proxy
			tr = t
		}
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout, Transport: tr},
		Retries:    retries,
		UserAgent:  ua,
		Referer:    cfg.Referer,
		log:        log,
	}
}

func (c *Client) clog() *logger.ComponentLogger {
	if c.log == nil {
		c.log = logger.WithComponent(logger.ComponentClient)
	}
	return c.log
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
}

// Get performs a GET with retries on network errors, 5xx and 429. Other
// responses, successful or not, are returned to the caller as-is.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}

	var (
		resp    *http.Response
		err     error
		backoff = initialBackoff
	)
	for attempt := 1; ; attempt++ {
		resp, err = c.do(ctx, rawURL)
		if !retryable(resp, err) || attempt >= retries {
			return resp, err
		}
		fields := map[string]interface{}{"url": rawURL, "attempt": attempt}
		if err != nil {
			fields["error"] = err.Error()
		} else {
			fields["status"] = resp.StatusCode
			_ = resp.Body.Close()
		}
		c.clog().Debug("retrying request", fields)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = userAgentValue
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Encoding", acceptEncodingValue)
	if c.Referer != "" {
		req.Header.Set("Referer", c.Referer)
	}
	return c.HTTPClient.Do(req)
}

// GetBytes fetches rawURL and returns its decoded body. Non-2xx responses
// yield a *StatusError.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	body, err := DecodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	c.clog().Trace("fetched", map[string]interface{}{"url": rawURL, "bytes": len(data)})
	return data, nil
}

// GetText is GetBytes returning a string.
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	b, err := c.GetBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeBody wraps resp.Body according to its Content-Encoding. Closing the
// returned reader does not close resp.Body.
func DecodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate reader: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// proxyFromURLString parses a proxy URL and returns a Proxy function.
func proxyFromURLString(raw string) (func(*http.Request) (*url.URL, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("proxy url %q needs a scheme and host", raw)
	}
	return http.ProxyURL(u), nil
}
