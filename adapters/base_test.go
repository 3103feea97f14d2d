package adapters

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/internal/types"
)

type panicParser struct{}

func (panicParser) Name() string { return "panic" }

func (panicParser) Parse(page *Page) (types.CanonicalProduct, bool) {
	panic("malformed payload")
}

func TestExtract_StructuredTakesPrecedence(t *testing.T) {
	page := mustPage(t, "https://widgets.example/p/1", `<html><head>
<script type="application/ld+json">{"@type":"Product","name":"Structured Title","offers":{"price":"10.00","priceCurrency":"USD"}}</script>
</head><body>
<h1>DOM Title</h1>
<span itemprop="price" content="12.50">$12.50</span>
<span itemprop="brand">Acme</span>
</body></html>`)

	product := NewGenericAdapter(testLogger()).Extract(page)

	assert.Equal(t, "Structured Title", product.Title)
	require.NotNil(t, product.Price)
	assert.Equal(t, 10.0, product.Price.Amount)
	// DOM fills the gap left by structured data
	assert.Equal(t, "Acme", product.Brand)
}

func TestExtract_DOMOnly(t *testing.T) {
	page := mustPage(t, "https://widgets.example/p/2", `<html><body>
<h1> Plain   Page </h1>
<span class="price">€ 7,50</span>
<meta property="og:image" content="/img/a.jpg">
<meta property="og:image" content="/img/a.jpg">
<link itemprop="availability" href="https://schema.org/OutOfStock">
</body></html>`)

	product := NewGenericAdapter(testLogger()).Extract(page)

	assert.Equal(t, "Plain Page", product.Title)
	require.NotNil(t, product.Price)
	assert.Equal(t, types.Price{Amount: 7.5, Currency: "EUR"}, *product.Price)
	assert.Equal(t, []string{"https://widgets.example/img/a.jpg"}, product.Images)
	assert.Equal(t, types.AvailabilityOutOfStock, product.Availability)
}

func TestExtract_FoundVersusParseable(t *testing.T) {
	adapter := NewGenericAdapter(testLogger())

	unparseable := adapter.Extract(mustPage(t, "https://widgets.example/a", `<h1>A</h1><span class="price">Call for price</span>`))
	require.NotNil(t, unparseable.Price)
	assert.Equal(t, 0.0, unparseable.Price.Amount)

	empty := adapter.Extract(mustPage(t, "https://widgets.example/b", `<h1>B</h1><span class="price"></span>`))
	require.NotNil(t, empty.Price)
	assert.Equal(t, 0.0, empty.Price.Amount)

	missing := adapter.Extract(mustPage(t, "https://widgets.example/c", `<h1>C</h1>`))
	assert.Nil(t, missing.Price)
	assert.Nil(t, missing.Rating)
	assert.Nil(t, missing.ReviewCount)

	rating := adapter.Extract(mustPage(t, "https://widgets.example/d", `<h1>D</h1><span itemprop="ratingValue">n/a</span>`))
	require.NotNil(t, rating.Rating)
	assert.Equal(t, 0.0, *rating.Rating)
}

func TestExtract_BoundsEveryList(t *testing.T) {
	var b strings.Builder
	b.WriteString("<h1>Many</h1>")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<img class="gallery" src="/img/%d.jpg">`, i)
		fmt.Fprintf(&b, `<video src="/v/%d.mp4"></video>`, i)
		fmt.Fprintf(&b, `<button class="opt" data-value="v%d"></button>`, i)
		fmt.Fprintf(&b, `<div class="review"><span class="who">u%d</span><p class="body">ok</p></div>`, i)
	}

	limits := Limits{Images: 5, Videos: 2, Variants: 7, Reviews: 3, ReviewImages: 1, Listing: 1}
	adapter := NewBaseAdapter(Profile{
		Platform: types.PlatformEtsy,
		Limits:   limits,
		Selectors: Selectors{
			Title:    []string{"h1"},
			Images:   []string{"img.gallery"},
			Videos:   []string{"video"},
			Variants: VariantSelectors{Option: "button.opt"},
			Reviews:  ReviewSelectors{Item: "div.review", Author: []string{".who"}, Body: []string{".body"}},
		},
	}, testLogger())

	product := adapter.Extract(mustPage(t, "https://www.etsy.com/listing/1/many", b.String()))

	assert.Len(t, product.Images, limits.Images)
	assert.Len(t, product.Videos, limits.Videos)
	assert.Len(t, product.Variants, limits.Variants)
	assert.Len(t, product.Reviews, limits.Reviews)
	assert.Equal(t, "https://www.etsy.com/img/0.jpg", product.Images[0])
}

func TestNewBaseAdapter_PartialLimitsKeepDefaults(t *testing.T) {
	adapter := NewBaseAdapter(Profile{Platform: types.PlatformEtsy, Limits: Limits{Images: 10}}, testLogger())

	want := DefaultLimits
	want.Images = 10
	assert.Equal(t, want, adapter.profile.Limits)
}

// oversizedParser reports a product holding more of every list than any
// platform allows
type oversizedParser struct{ n int }

func (oversizedParser) Name() string { return "oversized" }

func (o oversizedParser) Parse(page *Page) (types.CanonicalProduct, bool) {
	p := types.CanonicalProduct{Title: "Oversized"}
	for i := 0; i < o.n; i++ {
		p.Images = append(p.Images, fmt.Sprintf("https://cdn.example/img/%d.jpg", i))
		p.Videos = append(p.Videos, types.Video{URL: fmt.Sprintf("https://cdn.example/v/%d.mp4", i)})
		p.Variants = append(p.Variants, types.Variant{Name: fmt.Sprintf("v%d", i), OptionType: "size"})

		review := types.Review{Author: fmt.Sprintf("u%d", i), Body: "ok"}
		for j := 0; j < o.n; j++ {
			review.Images = append(review.Images, fmt.Sprintf("https://cdn.example/r/%d/%d.jpg", i, j))
		}
		p.Reviews = append(p.Reviews, review)
	}
	return p, true
}

func TestExtract_EveryPlatformBoundsLists(t *testing.T) {
	registry := DefaultRegistry(testLogger())
	adapters := map[types.PlatformID]Extractor{types.PlatformUnknown: NewGenericAdapter(testLogger())}
	for _, platform := range registry.Platforms() {
		adapters[platform] = registry.Get(platform)
	}

	for platform, adapter := range adapters {
		t.Run(string(platform), func(t *testing.T) {
			// every platform adapter embeds *BaseAdapter
			base, ok := reflect.ValueOf(adapter).Elem().FieldByName("BaseAdapter").Interface().(*BaseAdapter)
			require.True(t, ok)

			limits := base.profile.Limits
			base.profile.Parsers = append([]StructuredParser{oversizedParser{n: 250}}, base.profile.Parsers...)

			product := adapter.Extract(mustPage(t, "https://shop.example/products/oversized", "<html><body></body></html>"))

			assert.Len(t, product.Images, limits.Images)
			assert.Len(t, product.Videos, limits.Videos)
			assert.Len(t, product.Variants, limits.Variants)
			require.Len(t, product.Reviews, limits.Reviews)
			for _, review := range product.Reviews {
				assert.Len(t, review.Images, limits.ReviewImages)
			}
		})
	}
}

func TestExtract_PanickingParserFallsThrough(t *testing.T) {
	adapter := NewBaseAdapter(Profile{
		Platform:  types.PlatformWalmart,
		Parsers:   []StructuredParser{panicParser{}, JSONLDParser{}},
		Selectors: Selectors{Title: []string{"h1"}},
	}, testLogger())

	page := mustPage(t, "https://www.walmart.com/ip/1", `<script type="application/ld+json">{"@type":"Product","name":"Kettle"}</script>`)
	product := adapter.Extract(page)

	assert.Equal(t, "Kettle", product.Title)
	assert.Equal(t, types.PlatformWalmart, product.Platform)
}

func TestExtract_PanicYieldsSparseRecord(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	adapter := NewBaseAdapter(Profile{
		Platform:  types.PlatformTemu,
		Selectors: Selectors{Title: []string{"h1"}},
		ProductID: func(*url.URL) string { panic("bad pattern") },
	}, testLogger())
	adapter.now = func() time.Time { return fixed }

	product := adapter.Extract(mustPage(t, "https://www.temu.com/x-g-1.html", "<h1>Lamp</h1>"))

	assert.Equal(t, types.PlatformTemu, product.Platform)
	assert.Equal(t, "https://www.temu.com/x-g-1.html", product.SourceURL)
	assert.Equal(t, fixed, product.ExtractedAt)
	assert.Empty(t, product.Title)
}

func TestExtract_StampsExtractionTime(t *testing.T) {
	fixed := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	adapter := NewGenericAdapter(testLogger())
	adapter.now = func() time.Time { return fixed }

	product := adapter.Extract(mustPage(t, "https://widgets.example/", "<h1>T</h1>"))

	assert.Equal(t, fixed, product.ExtractedAt)
}

func TestMerge(t *testing.T) {
	domRating := 3.0
	structured := types.CanonicalProduct{
		Title:        "S",
		Price:        &types.Price{Amount: 0, Currency: "USD"},
		Availability: types.AvailabilityUnknown,
		Images:       []string{"https://s/1.jpg"},
	}
	dom := types.CanonicalProduct{
		Title:        "D",
		Description:  "from dom",
		Price:        &types.Price{Amount: 9, Currency: "USD"},
		Rating:       &domRating,
		Availability: types.AvailabilityInStock,
		Images:       []string{"https://d/1.jpg"},
	}

	out := merge(structured, dom)

	assert.Equal(t, "S", out.Title)
	assert.Equal(t, "from dom", out.Description)
	// an unparseable structured price does not hide a parsed DOM price
	assert.Equal(t, 9.0, out.Price.Amount)
	assert.Equal(t, 3.0, *out.Rating)
	assert.Equal(t, types.AvailabilityInStock, out.Availability)
	assert.Equal(t, []string{"https://s/1.jpg"}, out.Images)
}

func TestExtractFromListing_DropsIncompleteItems(t *testing.T) {
	page := mustPage(t, "https://shop.example.com/shop/", `<ul class="products">
<li class="product"><a class="woocommerce-LoopProduct-link" href="/product/blue-mug/"><img src="/wp-content/uploads/mug-300x300.jpg"><h2 class="woocommerce-loop-product__title">Blue Mug</h2><span class="price"><span class="woocommerce-Price-amount">$12.00</span></span></a></li>
<li class="product"><a class="woocommerce-LoopProduct-link" href="/product/no-title/"><h2 class="woocommerce-loop-product__title"> </h2></a></li>
<li class="product"><h2 class="woocommerce-loop-product__title">No Link</h2></li>
</ul>`)

	adapter := NewWooCommerceAdapter(testLogger())
	require.True(t, adapter.SupportsListing())

	items := adapter.ExtractFromListing(page)

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "Blue Mug", item.Title)
	assert.Equal(t, "https://shop.example.com/product/blue-mug/", item.SourceURL)
	assert.Equal(t, types.PlatformWooCommerce, item.Platform)
	assert.Equal(t, "blue-mug", item.SourceProductID)
	assert.Equal(t, []string{"https://shop.example.com/wp-content/uploads/mug.jpg"}, item.Images)
	require.NotNil(t, item.Price)
	assert.Equal(t, types.Price{Amount: 12, Currency: "USD"}, *item.Price)
}

func TestExtractFromListing_Unsupported(t *testing.T) {
	adapter := NewGenericAdapter(testLogger())

	assert.False(t, adapter.SupportsListing())
	assert.Nil(t, adapter.ExtractFromListing(mustPage(t, "https://widgets.example/", "<a href='/x'>x</a>")))
}
