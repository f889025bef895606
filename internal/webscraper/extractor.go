package webscraper

import (
	"bytes"
	"context"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

// Extractor fetches a page and yields the absolute links found on it.
type Extractor struct {
	fetcher PageFetcher
	log     logger.Logger
}

// NewExtractor creates an Extractor on top of fetcher.
func NewExtractor(fetcher PageFetcher, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{fetcher: fetcher, log: log}
}

// Extract fetches target and returns its outbound links as a single-use sequence of
// absolute, fragment-free URLs in document order. Duplicates are kept.
//
// A 404 on a non-seed page, or any transport failure, is reported as *PageError.
// Seeds that return 404 still yield their links. Other non-2xx pages yield nothing.
func (e *Extractor) Extract(ctx context.Context, target CrawlTarget) (iter.Seq[string], error) {
	page, err := e.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &PageError{URL: target.URL, Status: Status{Kind: ClassifyError(err)}, Err: err}
	}

	if page.StatusCode == http.StatusNotFound && target.Role != RoleSeed {
		return nil, &PageError{URL: target.URL, Status: Status{Code: page.StatusCode}}
	}
	if page.StatusCode != http.StatusNotFound && (page.StatusCode < 200 || page.StatusCode > 299) {
		e.log.Warn("page returned non-success status, skipping its links",
			logger.String("url", target.URL), logger.Int("status", page.StatusCode))
		return emptyLinks, nil
	}
	if !isHTML(page.ContentType) {
		return emptyLinks, nil
	}

	return e.links(page), nil
}

func (e *Extractor) links(page *Page) iter.Seq[string] {
	base, err := url.Parse(page.BaseURL)
	if err != nil || page.BaseURL == "" {
		base, err = url.Parse(page.URL)
		if err != nil {
			return emptyLinks
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		e.log.Warn("failed to parse page", logger.String("url", page.URL), logger.Error(err))
		return emptyLinks
	}
	anchors := doc.Find("a[href]")

	consumed := false
	return func(yield func(string) bool) {
		if consumed {
			return
		}
		consumed = true
		for i := range anchors.Length() {
			href, _ := anchors.Eq(i).Attr("href")
			link, ok := resolveLink(base, href)
			if !ok {
				continue
			}
			if !yield(link) {
				return
			}
		}
	}
}

// resolveLink resolves href against base and strips the fragment. Only http(s) targets
// are returned.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html")
}

func emptyLinks(func(string) bool) {}
