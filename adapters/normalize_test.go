package adapters

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/internal/types"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text   string
		amount float64
		ok     bool
	}{
		{"$1,299.99", 1299.99, true},
		{"19,99 €", 19.99, true},
		{"1.299,99 €", 1299.99, true},
		{"US $10.50 - 12.00", 10.50, true},
		{"₹ 1 299", 1299, true},
		{"¥12,000", 12000, true},
		{"12,5 €", 12.5, true},
		{"€1.299", 1299, true},
		{"1.299 €", 1299, true},
		{"$9.5", 9.5, true},
		{"1.234.567", 1234567, true},
		{"Price: 42", 42, true},
		{"Call for price", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			amount, ok := ParsePrice(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.amount, amount, 0.001)
		})
	}
}

func TestParseRatingAndCount(t *testing.T) {
	rating, ok := ParseRating("4.5 out of 5 stars")
	assert.True(t, ok)
	assert.Equal(t, 4.5, rating)

	rating, ok = ParseRating("4,2 von 5")
	assert.True(t, ok)
	assert.Equal(t, 4.2, rating)

	_, ok = ParseRating("no rating yet")
	assert.False(t, ok)

	count, ok := ParseCount("12,345 ratings")
	assert.True(t, ok)
	assert.Equal(t, 12345, count)

	count, ok = ParseCount("2.3K reviews")
	assert.True(t, ok)
	assert.Equal(t, 2300, count)

	count, ok = ParseCount("(87)")
	assert.True(t, ok)
	assert.Equal(t, 87, count)

	count, ok = ParseCount("12 Monate")
	assert.True(t, ok)
	assert.Equal(t, 12, count)

	_, ok = ParseCount("no reviews")
	assert.False(t, ok)
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DetectCurrency("19,99 €", "USD"))
	assert.Equal(t, "GBP", DetectCurrency("£5.00", "USD"))
	assert.Equal(t, "INR", DetectCurrency("Rs. 1,299", "USD"))
	assert.Equal(t, "CAD", DetectCurrency("CA$12.00", "USD"))
	assert.Equal(t, "AUD", DetectCurrency("$12.00", "AUD"))
	assert.Equal(t, "USD", DetectCurrency("$12.00", "EUR"))
	assert.Equal(t, "CNY", DetectCurrency("¥88", "CNY"))
	assert.Equal(t, "JPY", DetectCurrency("¥88", "USD"))
	assert.Equal(t, "SEK", DetectCurrency("129 kr", "SEK"))
	assert.Equal(t, "USD", DetectCurrency("Try it: $5.00", "EUR"))
	assert.Equal(t, "USD", DetectCurrency("$5.00 SARL", "EUR"))
	assert.Equal(t, "TRY", DetectCurrency("249,90 TRY", "USD"))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, types.AvailabilityOutOfStock, ClassifyAvailability("Currently unavailable."))
	assert.Equal(t, types.AvailabilityLimited, ClassifyAvailability("Only 3 left in stock - order soon."))
	assert.Equal(t, types.AvailabilityInStock, ClassifyAvailability("In Stock"))
	assert.Equal(t, types.AvailabilityUnknown, ClassifyAvailability(""))

	assert.Equal(t, types.AvailabilityInStock, SchemaAvailability("https://schema.org/InStock"))
	assert.Equal(t, types.AvailabilityOutOfStock, SchemaAvailability("http://schema.org/OutOfStock"))
	assert.Equal(t, types.AvailabilityLimited, SchemaAvailability("PreOrder"))
	assert.Equal(t, types.AvailabilityUnknown, SchemaAvailability("sometimes"))
}

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://shop.example.com/products/mug?variant=1")
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/img/a.jpg", ResolveURL(base, "/img/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", ResolveURL(base, "//cdn.example.com/a.jpg"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", ResolveURL(base, "https://cdn.example.com/a.jpg 2x"))
	assert.Equal(t, "", ResolveURL(base, "data:image/gif;base64,R0lGOD"))
	assert.Equal(t, "", ResolveURL(base, "javascript:void(0)"))
	assert.Equal(t, "", ResolveURL(base, "  "))
}

func TestRemoveDuplicates(t *testing.T) {
	in := []string{"b", "a", "", "b", "c", "a"}
	assert.Equal(t, []string{"b", "a", "c"}, RemoveDuplicates(in))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Soft & breathable linen.", SanitizeText("<p>Soft &amp; breathable</p>\n<p>linen.</p><script>alert(1)</script>"))
	assert.Equal(t, "plain", SanitizeText("plain"))
}

func TestBound(t *testing.T) {
	p := types.CanonicalProduct{
		Images:   make([]string, 40),
		Videos:   make([]types.Video, 9),
		Variants: make([]types.Variant, 200),
		Reviews:  []types.Review{{Images: make([]string, 25)}},
	}

	Bound(&p, DefaultLimits)

	assert.Len(t, p.Images, DefaultLimits.Images)
	assert.Len(t, p.Videos, DefaultLimits.Videos)
	assert.Len(t, p.Variants, DefaultLimits.Variants)
	assert.Len(t, p.Reviews[0].Images, DefaultLimits.ReviewImages)
}

func TestImageRewrites(t *testing.T) {
	tests := []struct {
		name    string
		rewrite func(string) string
		in      string
		want    string
	}{
		{"amazon", regexpRewrite(amazonImageSize, "$1"), "https://m.media-amazon.com/images/I/71abc._AC_SX300_.jpg", "https://m.media-amazon.com/images/I/71abc.jpg"},
		{"aliexpress", regexpRewrite(alicdnResize, "$1"), "https://ae01.alicdn.com/kf/Sabc.jpg_50x50.jpg_.webp", "https://ae01.alicdn.com/kf/Sabc.jpg"},
		{"ebay", regexpRewrite(ebayImageSize, "/s-l1600.$1"), "https://i.ebayimg.com/images/g/abc/s-l64.jpg", "https://i.ebayimg.com/images/g/abc/s-l1600.jpg"},
		{"etsy", regexpRewrite(etsyImageSize, "/il_fullxfull."), "https://i.etsystatic.com/1/r/il/aa/123/il_75x75.123_ab.jpg", "https://i.etsystatic.com/1/r/il/aa/123/il_fullxfull.123_ab.jpg"},
		{"shopify", regexpRewrite(shopifyImageSize, "$1"), "https://cdn.shopify.com/s/files/1/shirt_1024x1024@2x.png?v=3", "https://cdn.shopify.com/s/files/1/shirt.png?v=3"},
		{"shein", regexpRewrite(sheinThumbnail, ""), "https://img.ltwebstatic.com/images3/dress_thumbnail_405x552.jpg", "https://img.ltwebstatic.com/images3/dress.jpg"},
		{"walmart", stripQuery, "https://i5.walmartimages.com/asr/a.jpeg?odnHeight=180&odnWidth=180", "https://i5.walmartimages.com/asr/a.jpeg"},
		{"woocommerce", regexpRewrite(wooImageSize, "$1"), "https://shop.example.com/wp-content/uploads/mug-300x300.jpg", "https://shop.example.com/wp-content/uploads/mug.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rewrite(tt.in))
		})
	}
}
