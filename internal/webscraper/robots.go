package webscraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
)

const (
	robotsTxtPath      = "/robots.txt"
	maxRobotsBodyBytes = 512 * 1024
)

// RobotsAllower checks robots.txt compliance.
type RobotsAllower interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// RobotsChecker fetches robots.txt once per host and caches it for the checker's lifetime.
// It is not safe for concurrent use; a hunter run owns one.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	cache     map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a RobotsChecker.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = NewHTTPClient(DefaultMaxRedirects)
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether robots.txt of the URL's host permits fetching its path.
// Missing or unreadable robots.txt allows everything.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	data, ok := r.cache[host]
	if !ok {
		data = r.fetch(ctx, parsed.Scheme, host)
		r.cache[host] = data
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(parsed.EscapedPath(), r.userAgent), nil
}

// fetch returns nil when robots.txt could not be retrieved.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+robotsTxtPath, http.NoBody)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	res, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
