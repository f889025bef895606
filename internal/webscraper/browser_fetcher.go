package webscraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// BrowserFetcher renders pages in headless Chromium so links built by scripts are visible.
// Browsers must already be installed (playwright install chromium).
type BrowserFetcher struct {
	pwClient  *playwright.Playwright
	browser   playwright.Browser
	userAgent string
	timeout   time.Duration
}

// NewBrowserFetcher starts Playwright and launches a headless browser.
func NewBrowserFetcher(userAgent string, timeout time.Duration) (*BrowserFetcher, error) {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	return &BrowserFetcher{pwClient: pw, browser: browser, userAgent: userAgent, timeout: timeout}, nil
}

// Fetch navigates to url in a fresh browser context and returns the rendered markup.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := b.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.userAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	defer bctx.Close()

	bctx.SetDefaultNavigationTimeout(float64(b.timeout.Milliseconds()))
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}

	resp, err := page.Goto(url)
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("navigate: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("navigate %s: no response", url)
	}

	markup, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	return &Page{
		URL:         url,
		BaseURL:     page.URL(),
		StatusCode:  resp.Status(),
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(markup),
	}, nil
}

// Close shuts the browser and the Playwright driver down.
func (b *BrowserFetcher) Close() error {
	var errs []error
	if b.browser != nil {
		errs = append(errs, b.browser.Close())
	}
	if b.pwClient != nil {
		errs = append(errs, b.pwClient.Stop())
	}
	return errors.Join(errs...)
}
