package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"storefront-importer/internal/types"
)

// BrowserClient renders pages in a headless browser for sites whose product
// data only exists after client-side hydration
type BrowserClient struct {
	config *types.FetchConfig
	logger types.Logger

	// settle is how long to wait after navigation for late scripts
	settle time.Duration
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.FetchConfig, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
		settle: 500 * time.Millisecond,
	}
}

// GetPageContent retrieves the rendered HTML of a page
func (b *BrowserClient) GetPageContent(ctx context.Context, url string) (string, error) {
	return b.render(ctx, url, chromedp.Sleep(b.settle))
}

// GetPageContentAfter retrieves the rendered HTML once selector is visible,
// for pages that hydrate their product block lazily
func (b *BrowserClient) GetPageContentAfter(ctx context.Context, url, selector string) (string, error) {
	return b.render(ctx, url, chromedp.WaitVisible(selector))
}

func (b *BrowserClient) render(ctx context.Context, url string, wait chromedp.Action) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(b.config.UserAgent),
	)...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		wait,
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}

	b.logger.Debugf("Successfully retrieved page content from %s (%d bytes)", url, len(html))
	return html, nil
}
