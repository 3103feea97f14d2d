package adapters

import (
	"net/url"
	"strings"

	"storefront-importer/internal/types"
)

// Factory builds a fresh extractor for one extraction call
type Factory func(logger types.Logger) Extractor

// Entry ties a platform to its URL predicate and extractor factory
type Entry struct {
	Platform types.PlatformID
	Match    func(u *url.URL) bool
	New      Factory
}

// Registry maps platforms to extractors. Detection tests entries in
// registration order and the first match wins.
type Registry struct {
	entries []Entry
	index   map[types.PlatformID]int
	logger  types.Logger
}

// NewRegistry builds a registry from entries, in order
func NewRegistry(logger types.Logger, entries ...Entry) *Registry {
	r := &Registry{
		index:  make(map[types.PlatformID]int),
		logger: logger,
	}
	for _, e := range entries {
		r.Register(e)
	}
	return r
}

// Register adds an entry. Registering a platform again replaces the earlier
// entry in place, keeping its detection position.
func (r *Registry) Register(e Entry) {
	if i, ok := r.index[e.Platform]; ok {
		r.entries[i] = e
		r.logger.Debugf("Replaced extractor for platform %s", e.Platform)
		return
	}
	r.index[e.Platform] = len(r.entries)
	r.entries = append(r.entries, e)
}

// Detect returns the platform of rawURL, or PlatformUnknown.
// It is a pure function of its input and never fails.
func (r *Registry) Detect(rawURL string) types.PlatformID {
	u, ok := parseProductURL(rawURL)
	if !ok {
		return types.PlatformUnknown
	}

	for _, e := range r.entries {
		if e.Match != nil && e.Match(u) {
			return e.Platform
		}
	}
	return types.PlatformUnknown
}

// Get returns a new extractor for platform, or nil if none is registered
func (r *Registry) Get(platform types.PlatformID) Extractor {
	i, ok := r.index[platform]
	if !ok || r.entries[i].New == nil {
		return nil
	}
	return r.entries[i].New(r.logger)
}

// Platforms lists registered platforms in detection order
func (r *Registry) Platforms() []types.PlatformID {
	platforms := make([]types.PlatformID, len(r.entries))
	for i, e := range r.entries {
		platforms[i] = e.Platform
	}
	return platforms
}

// parseProductURL parses an absolute http(s) URL and normalizes its host
// (lowercase, no "www." prefix, no port)
func parseProductURL(rawURL string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}

	normalized := *u
	normalized.Host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return &normalized, true
}

// ValidProductURL reports whether rawURL is an absolute http(s) URL
func ValidProductURL(rawURL string) bool {
	_, ok := parseProductURL(rawURL)
	return ok
}

// hostIs matches a host against base domains, including their subdomains
// and country variants listed explicitly by the caller
func hostIs(u *url.URL, domains ...string) bool {
	for _, d := range domains {
		if u.Host == d || strings.HasSuffix(u.Host, "."+d) {
			return true
		}
	}
	return false
}

// hostHasLabel matches hosts like amazon.co.uk or ebay.de by their
// second-level label
func hostHasLabel(u *url.URL, label string) bool {
	for _, part := range strings.Split(u.Host, ".") {
		if part == label {
			return true
		}
	}
	return false
}

// DefaultRegistry registers every supported marketplace in detection order
func DefaultRegistry(logger types.Logger) *Registry {
	return NewRegistry(logger,
		Entry{Platform: types.PlatformAmazon, Match: matchAmazon, New: func(l types.Logger) Extractor { return NewAmazonAdapter(l) }},
		Entry{Platform: types.PlatformAliExpress, Match: matchAliExpress, New: func(l types.Logger) Extractor { return NewAliExpressAdapter(l) }},
		Entry{Platform: types.PlatformAlibaba, Match: matchAlibaba, New: func(l types.Logger) Extractor { return NewAlibabaAdapter(l) }},
		Entry{Platform: types.PlatformEbay, Match: matchEbay, New: func(l types.Logger) Extractor { return NewEbayAdapter(l) }},
		Entry{Platform: types.PlatformEtsy, Match: matchEtsy, New: func(l types.Logger) Extractor { return NewEtsyAdapter(l) }},
		Entry{Platform: types.PlatformWalmart, Match: matchWalmart, New: func(l types.Logger) Extractor { return NewWalmartAdapter(l) }},
		Entry{Platform: types.PlatformTemu, Match: matchTemu, New: func(l types.Logger) Extractor { return NewTemuAdapter(l) }},
		Entry{Platform: types.PlatformShein, Match: matchShein, New: func(l types.Logger) Extractor { return NewSheinAdapter(l) }},
		Entry{Platform: types.PlatformShopify, Match: matchShopify, New: func(l types.Logger) Extractor { return NewShopifyAdapter(l) }},
		Entry{Platform: types.PlatformWooCommerce, Match: matchWooCommerce, New: func(l types.Logger) Extractor { return NewWooCommerceAdapter(l) }},
		Entry{Platform: types.PlatformUnknown, New: func(l types.Logger) Extractor { return NewGenericAdapter(l) }},
	)
}
