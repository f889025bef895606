package webscraper

import "time"

const (
	DefaultFetchTimeout = 10 * time.Second // full page fetch and GET fallback
	DefaultProbeTimeout = 5 * time.Second  // HEAD reachability probe
	DefaultMaxRedirects = 10
	DefaultMaxFindings  = 100

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxBodyBytes = 10 * 1024 * 1024 // 10 MB
)
