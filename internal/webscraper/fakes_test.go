package webscraper_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
	"github.com/yingtu35/deadlink-patrol/pkg/domain"
)

const (
	seedURL     = "https://site.test/media/column/"
	externalURL = "https://external.test/gone"
)

type fakePage struct {
	status int
	links  []string
	err    error
}

// fakeFetcher serves a fixed site and counts fetches per URL.
type fakeFetcher struct {
	pages   map[string]fakePage
	fetches map[string]int
	order   []string
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{pages: pages, fetches: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*webscraper.Page, error) {
	f.fetches[url]++
	f.order = append(f.order, url)

	p, ok := f.pages[url]
	if !ok {
		return &webscraper.Page{URL: url, BaseURL: url, StatusCode: 404, ContentType: "text/html"}, nil
	}
	if p.err != nil {
		return nil, p.err
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, l := range p.links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")

	status := p.status
	if status == 0 {
		status = 200
	}
	return &webscraper.Page{
		URL:         url,
		BaseURL:     url,
		StatusCode:  status,
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(b.String()),
	}, nil
}

type probeReply struct {
	status int
	err    error
}

// fakeProber answers per URL and method; unknown targets answer 200.
type fakeProber struct {
	replies map[string]map[string]probeReply
	calls   []string
}

func newFakeProber() *fakeProber {
	return &fakeProber{replies: make(map[string]map[string]probeReply)}
}

func (p *fakeProber) set(url, method string, reply probeReply) *fakeProber {
	if p.replies[url] == nil {
		p.replies[url] = make(map[string]probeReply)
	}
	p.replies[url][method] = reply
	return p
}

func (p *fakeProber) Probe(_ context.Context, method, url string) (int, error) {
	p.calls = append(p.calls, method+" "+url)
	if r, ok := p.replies[url][method]; ok {
		return r.status, r.err
	}
	return 200, nil
}

func testClassifier() *domain.Classifier {
	return domain.NewClassifier("site.test", []string{"twitter.com"}, []string{seedURL})
}

func newTestHunter(
	fetcher webscraper.PageFetcher,
	prober webscraper.Prober,
	maxFindings int,
	policy webscraper.ProbeErrorPolicy,
	opts ...webscraper.HunterOption,
) *webscraper.DeadLinkHunter {
	classifier := testClassifier()
	extractor := webscraper.NewExtractor(fetcher, nil)
	checker := webscraper.NewChecker(classifier, prober, webscraper.CheckerConfig{ErrorPolicy: policy}, nil)
	return webscraper.NewDeadLinkHunter(classifier, extractor, checker, maxFindings, opts...)
}

type fakeRobots struct {
	disallowed map[string]bool
}

func (r fakeRobots) IsAllowed(_ context.Context, rawURL string) (bool, error) {
	return !r.disallowed[rawURL], nil
}
