package bitinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// PageLoader returns the rendered HTML of a chart page.
type PageLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

// BrowserLoader renders pages in a shared headless Chrome tab.
type BrowserLoader struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	waitTimeout   time.Duration
}

// NewBrowserLoader starts a Chrome allocator. Call Close when done.
func NewBrowserLoader(headless bool, waitTimeout time.Duration) *BrowserLoader {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts, chromedp.Flag("headless", headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}
	return &BrowserLoader{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		waitTimeout:   waitTimeout,
	}
}

// Load navigates to url, waits for the chart container and returns the page source.
func (b *BrowserLoader) Load(ctx context.Context, url string) (string, error) {
	runCtx, cancel := context.WithTimeout(b.browserCtx, b.waitTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(`#container`, chromedp.ByID),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", url, err)
	}
	return html, nil
}

func (b *BrowserLoader) Close() {
	b.browserCancel()
	b.allocCancel()
}
