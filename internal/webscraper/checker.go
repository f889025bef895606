package webscraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/pkg/domain"
)

// ProbeErrorPolicy decides what a transport failure on a link probe means.
type ProbeErrorPolicy string

const (
	// PolicyIgnore treats an unreachable target as not confirmed broken.
	PolicyIgnore ProbeErrorPolicy = "ignore"
	// PolicyRecord records the failure as a finding with its error kind.
	PolicyRecord ProbeErrorPolicy = "record"
)

// ParseProbeErrorPolicy validates a configured policy name. Empty means PolicyIgnore.
func ParseProbeErrorPolicy(s string) (ProbeErrorPolicy, error) {
	switch ProbeErrorPolicy(s) {
	case "", PolicyIgnore:
		return PolicyIgnore, nil
	case PolicyRecord:
		return PolicyRecord, nil
	}
	return "", fmt.Errorf("unknown probe error policy %q", s)
}

// Prober issues a single request and reports the final status code after redirects.
type Prober interface {
	Probe(ctx context.Context, method, url string) (int, error)
}

// HTTPProber implements Prober with net/http.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber creates a prober sharing client.
func NewHTTPProber(client *http.Client, userAgent string) *HTTPProber {
	if client == nil {
		client = NewHTTPClient(DefaultMaxRedirects)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPProber{client: client, userAgent: userAgent}
}

func (p *HTTPProber) Probe(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	res, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))

	return res.StatusCode, nil
}

// CheckerConfig configures a Checker.
type CheckerConfig struct {
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
	ErrorPolicy  ProbeErrorPolicy
}

// Checker decides whether a single link target is broken.
type Checker struct {
	classifier   *domain.Classifier
	prober       Prober
	probeTimeout time.Duration
	fetchTimeout time.Duration
	errorPolicy  ProbeErrorPolicy
	log          logger.Logger
}

// NewChecker creates a Checker.
func NewChecker(classifier *domain.Classifier, prober Prober, cfg CheckerConfig, log logger.Logger) *Checker {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ErrorPolicy == "" {
		cfg.ErrorPolicy = PolicyIgnore
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Checker{
		classifier:   classifier,
		prober:       prober,
		probeTimeout: cfg.ProbeTimeout,
		fetchTimeout: cfg.FetchTimeout,
		errorPolicy:  cfg.ErrorPolicy,
		log:          log,
	}
}

// CheckStatus probes target as linked from referrer. It returns a finding and true only
// when the target is confirmed broken and referrer is within the allowed prefixes.
func (c *Checker) CheckStatus(ctx context.Context, target, referrer string) (Finding, bool) {
	if c.classifier.IsExcludedDomain(target) {
		return Finding{}, false
	}

	status, err := c.probe(ctx, http.MethodHead, target, c.probeTimeout)
	if err == nil && (status == http.StatusForbidden || status == http.StatusMethodNotAllowed) {
		c.log.Debug("probe rejected, retrying with GET",
			logger.String("url", target), logger.Int("status", status))
		status, err = c.probe(ctx, http.MethodGet, target, c.fetchTimeout)
	}
	if err != nil {
		return c.onProbeError(ctx, target, referrer, err)
	}

	if status != http.StatusNotFound {
		return Finding{}, false
	}
	return c.finding(referrer, target, Status{Code: status})
}

func (c *Checker) probe(ctx context.Context, method, target string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.prober.Probe(ctx, method, target)
}

func (c *Checker) onProbeError(ctx context.Context, target, referrer string, err error) (Finding, bool) {
	if ctx.Err() != nil {
		return Finding{}, false
	}
	kind := ClassifyError(err)
	if c.errorPolicy != PolicyRecord {
		c.log.Debug("probe failed, not counted as broken",
			logger.String("url", target), logger.String("kind", string(kind)), logger.Error(err))
		return Finding{}, false
	}
	return c.finding(referrer, target, Status{Kind: kind})
}

func (c *Checker) finding(referrer, target string, status Status) (Finding, bool) {
	if !c.classifier.IsAllowedSource(referrer) {
		c.log.Debug("discarding out-of-scope finding",
			logger.String("source", referrer), logger.String("url", target))
		return Finding{}, false
	}
	return Finding{Source: referrer, Target: target, Status: status}, true
}
