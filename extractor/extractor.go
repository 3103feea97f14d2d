package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"storefront-importer/adapters"
	"storefront-importer/internal/types"
	"storefront-importer/utils"
)

var (
	// ErrInvalidURL is returned for inputs that are not absolute http(s) URLs
	ErrInvalidURL = errors.New("invalid product URL")

	// ErrListingUnsupported is returned when the platform has no listing selectors
	ErrListingUnsupported = errors.New("listing extraction not supported for platform")
)

// PageLoader fetches the HTML of a page
type PageLoader interface {
	GetPageContent(ctx context.Context, url string) (string, error)
}

// RenderingLoader renders a page and can wait for an element before reading it
type RenderingLoader interface {
	PageLoader
	GetPageContentAfter(ctx context.Context, url, selector string) (string, error)
}

// Extractor is the page-loading front door of the pipeline:
// URL -> platform -> fetched page -> adapter -> CanonicalProduct
type Extractor struct {
	config   *types.FetchConfig
	registry *adapters.Registry
	http     PageLoader
	browser  RenderingLoader
	logger   types.Logger

	closer func()
}

// NewExtractor creates an extractor with the default registry, a rate-limited
// HTTP client and a headless browser client
func NewExtractor(config *types.Config, logger types.Logger) *Extractor {
	httpClient := utils.NewHTTPClient(&config.Fetch, logger)

	e := NewWithLoaders(&config.Fetch, adapters.DefaultRegistry(logger), httpClient, utils.NewBrowserClient(&config.Fetch, logger), logger)
	e.closer = httpClient.Close
	return e
}

// NewWithLoaders creates an extractor over explicit loaders
func NewWithLoaders(config *types.FetchConfig, registry *adapters.Registry, http PageLoader, browser RenderingLoader, logger types.Logger) *Extractor {
	return &Extractor{
		config:   config,
		registry: registry,
		http:     http,
		browser:  browser,
		logger:   logger,
	}
}

// Registry returns the platform registry
func (e *Extractor) Registry() *adapters.Registry {
	return e.registry
}

// Detect returns the platform of rawURL
func (e *Extractor) Detect(rawURL string) types.PlatformID {
	return e.registry.Detect(rawURL)
}

// Extract loads rawURL and extracts its product. The only errors are an
// invalid URL and a failed page load; missing fields never fail extraction.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (types.CanonicalProduct, error) {
	page, adapter, err := e.open(ctx, rawURL)
	if err != nil {
		return types.CanonicalProduct{}, err
	}

	return adapter.Extract(page), nil
}

// ExtractListing loads a search-result or category page and extracts every
// complete product card on it
func (e *Extractor) ExtractListing(ctx context.Context, rawURL string) ([]types.CanonicalProduct, error) {
	if !adapters.ValidProductURL(rawURL) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	platform := e.registry.Detect(rawURL)
	lister, ok := e.registry.Get(platform).(adapters.ListingExtractor)
	if !ok || !lister.SupportsListing() {
		return nil, fmt.Errorf("%w: %s", ErrListingUnsupported, platform)
	}

	page, _, err := e.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	return lister.ExtractFromListing(page), nil
}

// Result is the outcome of one URL in ExtractMany
type Result struct {
	URL     string                  `json:"url"`
	Product *types.CanonicalProduct `json:"product,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// ExtractMany extracts several product pages, at most
// MaxConcurrentRequests at a time. Results keep the order of urls.
func (e *Extractor) ExtractMany(ctx context.Context, urls []string) []Result {
	startTime := time.Now()
	results := make([]Result, len(urls))

	limit := e.config.MaxConcurrentRequests
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = Result{URL: u}
			product, err := e.Extract(ctx, u)
			if err != nil {
				e.logger.Warnf("Failed to extract %s: %v", u, err)
				results[i].Error = err.Error()
				return
			}
			results[i].Product = &product
		}(i, u)
	}
	wg.Wait()

	e.logger.Infof("Extracted %d URLs in %v", len(urls), time.Since(startTime))
	return results
}

// Close releases idle connections
func (e *Extractor) Close() {
	if e.closer != nil {
		e.closer()
	}
}

func (e *Extractor) open(ctx context.Context, rawURL string) (*adapters.Page, adapters.Extractor, error) {
	if !adapters.ValidProductURL(rawURL) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	platform := e.registry.Detect(rawURL)
	adapter := e.registry.Get(platform)
	if adapter == nil {
		adapter = adapters.NewGenericAdapter(e.logger)
	}

	html, err := e.load(ctx, rawURL, adapter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", rawURL, err)
	}

	page, err := adapters.NewPage(rawURL, html)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Debugf("Loaded %s page %s (%d bytes)", platform, rawURL, len(html))
	return page, adapter, nil
}

// load uses the browser when configured globally or when the adapter says the
// page renders client-side; everything else goes through plain HTTP
func (e *Extractor) load(ctx context.Context, rawURL string, adapter adapters.Extractor) (string, error) {
	var ready string
	if hinted, ok := adapter.(adapters.BrowserHinted); ok {
		if u, err := url.Parse(rawURL); err == nil {
			ready = hinted.ReadySelectorFor(u)
		}
	}

	if e.browser != nil && (e.config.UseHeadlessBrowser || ready != "") {
		if ready != "" {
			return e.browser.GetPageContentAfter(ctx, rawURL, ready)
		}
		return e.browser.GetPageContent(ctx, rawURL)
	}

	return e.http.GetPageContent(ctx, rawURL)
}
