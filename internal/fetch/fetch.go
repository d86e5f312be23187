package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pollsnap/pollsnap/internal/cache"
)

// Client retrieves the source article with a bounded timeout and limited
// retry on transient errors. Any error returned from Page is fatal for the
// run: the caller must not publish a new artifact on top of the old one.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each attempt.
	PerRequestTimeout time.Duration
	// Optional on-disk cache enabling conditional revalidation.
	Cache *cache.HTTPCache
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int
}

// Page issues a GET for the article markup. It returns the body and the URL
// that actually served it, which differs from the argument after redirects.
func (c *Client) Page(ctx context.Context, rawURL string) ([]byte, string, error) {
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, finalURL, res, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil && res.status == http.StatusNotModified {
			if c.Cache != nil {
				if cached, cerr := c.Cache.LoadBody(ctx, rawURL); cerr == nil {
					return cached, finalURL, nil
				}
			}
			// Revalidated, but the cached body is gone (or there is no
			// cache). Drop the validators and fetch the full page; a 304
			// must never surface as an empty body.
			etag, lastMod = "", ""
			body, finalURL, res, err = c.tryOnce(ctx, rawURL, "", "")
			if err == nil && res.status == http.StatusNotModified {
				err = errors.New("not modified on unconditional request")
			}
		}
		if err == nil {
			if c.Cache != nil && res.status == http.StatusOK {
				_ = c.Cache.Save(ctx, rawURL, res.contentType, res.etag, res.lastModified, body)
			}
			return body, finalURL, nil
		}
		if !isTransient(err) || i == attempts-1 {
			return nil, "", err
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("fetch: unknown error")
	}
	return nil, "", lastErr
}

type responseMeta struct {
	status       int
	contentType  string
	etag         string
	lastModified string
}

func (c *Client) tryOnce(ctx context.Context, rawURL, etag, lastMod string) ([]byte, string, responseMeta, error) {
	var meta responseMeta
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", meta, fmt.Errorf("new request: %w", err)
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, "", meta, fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	httpClient := c.httpClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", meta, err
	}
	defer resp.Body.Close()

	meta.status = resp.StatusCode
	meta.contentType = resp.Header.Get("Content-Type")
	meta.etag = resp.Header.Get("ETag")
	meta.lastModified = resp.Header.Get("Last-Modified")
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
		return nil, "", meta, fmt.Errorf("server error: %d", resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotModified {
		return nil, finalURL, meta, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", meta, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if !isHTMLContentType(meta.contentType) {
		return nil, "", meta, fmt.Errorf("unsupported content type: %s", meta.contentType)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", meta, fmt.Errorf("read body: %w", err)
	}
	return b, finalURL, meta, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach the redirect policy without mutating the caller's client.
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "server error:")
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
