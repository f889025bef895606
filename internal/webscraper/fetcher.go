package webscraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy returns a CheckRedirect function that stops after maxHops redirects.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}

// NewHTTPClient builds the client shared by the fetcher, the prober and the robots checker.
// Timeouts are applied per request through the context.
func NewHTTPClient(maxRedirects int) *http.Client {
	return &http.Client{CheckRedirect: RedirectPolicy(maxRedirects)}
}

// Page is a fetched document.
type Page struct {
	URL         string // requested URL
	BaseURL     string // URL after redirects, used to resolve relative links
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageFetcher retrieves a full page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher fetches pages with plain GET requests.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTPFetcher creates a fetcher. Zero values fall back to package defaults.
func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration) *HTTPFetcher {
	if client == nil {
		client = NewHTTPClient(DefaultMaxRedirects)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, timeout: timeout}
}

// Fetch issues a GET and returns the body decoded to UTF-8. Non-2xx responses are not
// errors; callers inspect StatusCode.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	contentType := res.Header.Get("Content-Type")
	reader, err := charset.NewReader(io.LimitReader(res.Body, maxBodyBytes), contentType)
	if err != nil {
		reader = io.LimitReader(res.Body, maxBodyBytes)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:         url,
		BaseURL:     res.Request.URL.String(),
		StatusCode:  res.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}
