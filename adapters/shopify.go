package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"storefront-importer/internal/types"
)

var (
	shopifyHandle = regexp.MustCompile(`/products/([^/?#]+)`)

	// "_100x.jpg", "_grande.jpg", "_1024x1024@2x.png"
	shopifyImageSize = regexp.MustCompile(`_(?:\d+x\d*|\d*x\d+|pico|icon|thumb|small|compact|medium|large|grande|master)(?:_crop_[a-z]+)?(?:@\dx)?(\.(?:jpe?g|png|gif|webp))`)
)

// storefront holds per-shop quirks of Shopify-hosted stores
type storefront struct {
	// readySelector marks shops whose theme renders the product block
	// client-side
	readySelector string
}

// knownStorefronts are Shopify-hosted shops on their own domains
var knownStorefronts = map[string]storefront{
	"westside.com":       {readySelector: ".product__title h1"},
	"littleboxindia.com": {},
	"suqah.com":          {},
}

func matchShopify(u *url.URL) bool {
	if hostIs(u, "myshopify.com") {
		return true
	}
	for host := range knownStorefronts {
		if hostIs(u, host) {
			return true
		}
	}
	return strings.Contains(u.Path, "/products/")
}

// ShopifyAdapter handles extraction for Shopify stores, on myshopify.com or
// on a custom domain
type ShopifyAdapter struct {
	*BaseAdapter
	storefronts map[string]storefront
}

// NewShopifyAdapter creates a new Shopify adapter
func NewShopifyAdapter(logger types.Logger) *ShopifyAdapter {
	return &ShopifyAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformShopify,
			Currency: "USD",
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "shopify-product-json",
					Selector: "script[type='application/json'][data-product-json], script#ProductJson-product-template, script[type='application/json'][id^='ProductJson']",
					Map:      mapShopifyProductJSON,
				},
				JSONLDParser{},
				StateScriptParser{
					Label:    "shopify-analytics-meta",
					Contains: "var meta =",
					Marker:   "var meta =",
					Map:      mapShopifyAnalyticsMeta,
				},
			},
			Selectors: Selectors{
				Title:          []string{".product__title h1", "h1.product-title", "h1.product__title", "h1.product-single__title", "h1[class*='title']", ".product-name h1", ".product-info h1", ".product-details h1", "h1"},
				Description:    []string{".product__description", ".product-single__description", "[itemprop='description']", ".product-description"},
				Price:          []string{".price-item--sale", ".price__current", ".product__price", "[data-product-price]", ".product-single__price", "span.money"},
				CompareAtPrice: []string{".price-item--regular", "s.price-item", ".compare-at-price", "[data-compare-price]"},
				Brand:          []string{".product__vendor", ".product-vendor", ".product-single__vendor"},
				Availability:   []string{"button[name='add']", ".product-form__submit"},
				Category:       []string{"nav.breadcrumb a", ".breadcrumbs a"},
				Images:         []string{".product__media img", ".product-single__photo img", ".product-gallery img", ".product__main-photos img"},
				ImageAttrs:     []string{"data-zoom", "data-src", "src", "srcset"},
				Videos:         []string{".product__media video", "deferred-media video"},
				Variants: VariantSelectors{
					Group:       "fieldset.product-form__input, .selector-wrapper",
					Label:       []string{"legend", "label"},
					Option:      "input[type='radio'], select option",
					OptionAttrs: []string{"value"},
				},
				Reviews: ReviewSelectors{
					Item:   ".jdgm-rev, .spr-review, .stamped-review",
					Author: []string{".jdgm-rev__author", ".spr-review-header-byline strong", ".author"},
					Body:   []string{".jdgm-rev__body", ".spr-review-content-body", ".stamped-review-content-body"},
					Rating: []string{".jdgm-rev__rating@data-score", ".spr-starratings@aria-label", ".stamped-starratings@data-rating"},
					Images: []string{".jdgm-rev__pics img", ".stamped-review-image img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  ".wizzy-search-results li, .swiper-slide, .card-wrapper, .product-card, .grid-product, .product-item",
				Title: []string{".card__heading", ".product-card__title", ".grid-product__title", ".product-item__title", "a[href*='/products/']@title", "a[href*='/products/']"},
				URL:   []string{"a[href*='/products/']@href"},
				Price: []string{".price-item--sale", ".price-item", ".money"},
				Image: []string{"img@data-src", "img@src"},
			},
			RewriteImage: regexpRewrite(shopifyImageSize, "$1"),
			ProductID:    pathID(shopifyHandle),
		}, logger),
		storefronts: knownStorefronts,
	}
}

// ReadySelectorFor returns the storefront's render marker, if it needs one
func (s *ShopifyAdapter) ReadySelectorFor(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for domain, sf := range s.storefronts {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return sf.readySelector
		}
	}
	return ""
}

// mapShopifyProductJSON reads the theme's product JSON. Prices are in cents.
func mapShopifyProductJSON(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	title := str(state, "title")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(state, "id"),
		Description:     SanitizeText(str(state, "description")),
		Brand:           str(state, "vendor"),
		Category:        str(state, "type"),
		Images:          imagesOf(page, state["images"]),
		Availability:    types.AvailabilityUnknown,
	}

	p.Price = centsFrom(state["price"])
	if compare := centsFrom(state["compare_at_price"]); compare != nil && p.Price != nil && compare.Amount > p.Price.Amount {
		p.CompareAtPrice = compare
	}
	if available, ok := state["available"].(bool); ok {
		if available {
			p.Availability = types.AvailabilityInStock
		} else {
			p.Availability = types.AvailabilityOutOfStock
		}
	}

	for _, m := range asSlice(state["media"]) {
		mm := asMap(m)
		if str(mm, "media_type") != "video" {
			continue
		}
		for _, source := range asSlice(mm["sources"]) {
			sm := asMap(source)
			if str(sm, "mime_type") != "video/mp4" {
				continue
			}
			if u := page.Resolve(str(sm, "url")); u != "" {
				p.Videos = append(p.Videos, types.Video{URL: u, PosterURL: page.Resolve(str(asMap(mm["preview_image"]), "src"))})
				break
			}
		}
	}

	options := asSlice(state["options"])
	optionType := "variant"
	if len(options) == 1 {
		switch o := options[0].(type) {
		case string:
			optionType = optionTypeOf(o)
		case map[string]any:
			optionType = optionTypeOf(str(o, "name"))
		}
	}

	for _, v := range asSlice(state["variants"]) {
		vm := asMap(v)
		name := str(vm, "title", "public_title")
		if name == "" || name == "Default Title" {
			continue
		}
		variant := types.Variant{
			Name:       name,
			OptionType: optionType,
			Price:      centsFrom(vm["price"]),
			Image:      page.Resolve(str(asMap(vm["featured_image"]), "src")),
		}
		if available, ok := vm["available"].(bool); ok && !available {
			variant.Stock = intPtr(0)
		} else if qty, present := number(vm["inventory_quantity"]); present {
			variant.Stock = intPtr(int(qty))
		}
		p.Variants = append(p.Variants, variant)
	}

	return p, true
}

// mapShopifyAnalyticsMeta reads the ShopifyAnalytics "var meta" object, which
// carries ids, vendor and variant prices but no images
func mapShopifyAnalyticsMeta(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	product := asMap(state["product"])
	if product == nil {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		SourceProductID: str(product, "id"),
		Brand:           str(product, "vendor"),
		Category:        str(product, "type"),
		Availability:    types.AvailabilityUnknown,
	}

	for _, v := range asSlice(product["variants"]) {
		vm := asMap(v)
		price := centsFrom(vm["price"])
		if p.Price == nil {
			p.Price = price
		}
		if name := str(vm, "public_title"); name != "" {
			p.Variants = append(p.Variants, types.Variant{Name: name, OptionType: "variant", Price: price})
		}
		if p.Title == "" {
			p.Title = strings.TrimSpace(strings.TrimSuffix(str(vm, "name"), " - "+str(vm, "public_title")))
		}
	}

	return p, p.SourceProductID != ""
}

// centsFrom converts Shopify's integer cents into a Price; the currency is
// filled in during normalization
func centsFrom(v any) *types.Price {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			t = 0
		}
		return &types.Price{Amount: t / 100}
	case string:
		// Some themes render the formatted price ("$19.99") instead of cents
		return priceFrom(t, DetectCurrency(t, ""))
	}
	return nil
}
