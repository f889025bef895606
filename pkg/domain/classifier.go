package domain

import "strings"

// Classifier answers the three scope questions asked about every URL the crawl touches.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	baseDomain      string
	excludedDomains []string
	allowedPrefixes []string
}

// NewClassifier builds a Classifier. Empty entries in the domain and prefix lists are ignored.
func NewClassifier(baseDomain string, excludedDomains, allowedPrefixes []string) *Classifier {
	c := &Classifier{
		baseDomain: strings.TrimPrefix(strings.ToLower(strings.TrimSpace(baseDomain)), "."),
	}
	for _, d := range excludedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			c.excludedDomains = append(c.excludedDomains, d)
		}
	}
	for _, p := range allowedPrefixes {
		if p = strings.TrimSpace(p); p != "" {
			c.allowedPrefixes = append(c.allowedPrefixes, p)
		}
	}
	return c
}

// IsInternal reports whether u has no host or is hosted on the base domain or one of its
// subdomains. Subdomain matching happens on a label boundary, so "notsite.test" is not
// internal to "site.test".
func (c *Classifier) IsInternal(u string) bool {
	host, ok := hostOf(u)
	if !ok {
		return false
	}
	if host == "" {
		return true
	}
	if c.baseDomain == "" {
		return false
	}
	return IsSameDomain(c.baseDomain, strings.TrimSpace(u)) || strings.HasSuffix(host, "."+c.baseDomain)
}

// IsExcludedDomain reports whether the host of u contains any excluded substring.
// Excluded targets are never probed and never reported.
func (c *Classifier) IsExcludedDomain(u string) bool {
	host, ok := hostOf(u)
	if !ok || host == "" {
		return false
	}
	for _, d := range c.excludedDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// IsAllowedSource reports whether u starts with one of the allowed prefixes.
func (c *Classifier) IsAllowedSource(u string) bool {
	for _, p := range c.allowedPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// AllowedPrefixes returns a copy of the configured prefixes in order.
func (c *Classifier) AllowedPrefixes() []string {
	return append([]string(nil), c.allowedPrefixes...)
}
