package adapters

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mustPage(t *testing.T, rawURL, html string) *Page {
	t.Helper()
	page, err := NewPage(rawURL, html)
	require.NoError(t, err)
	return page
}

func TestNewPage_RejectsRelativeURL(t *testing.T) {
	_, err := NewPage("/products/mug", "<html></html>")
	assert.Error(t, err)
}

func TestJSONLD_WidgetWithoutDOM(t *testing.T) {
	page := mustPage(t, "https://widgets.example/item/1", `<html><head>
<script type="application/ld+json">{"@type":"Product","name":"Widget","offers":{"price":"19.99","priceCurrency":"USD"}}</script>
</head><body></body></html>`)

	product := NewGenericAdapter(testLogger()).Extract(page)

	assert.Equal(t, "Widget", product.Title)
	require.NotNil(t, product.Price)
	assert.Equal(t, types.Price{Amount: 19.99, Currency: "USD"}, *product.Price)
	assert.Equal(t, types.PlatformUnknown, product.Platform)
	assert.Equal(t, "https://widgets.example/item/1", product.SourceURL)
}

func TestJSONLD_MalformedBlockDoesNotHideOthers(t *testing.T) {
	page := mustPage(t, "https://widgets.example/item/2", `<html><head>
<script type="application/ld+json">{"@type": "Product", "name": </script>
<script type="application/ld+json">{"@type":"Organization","name":"Widgets Inc"}</script>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":["Product"],"name":"Gadget","sku":"G-1",
   "brand":{"@type":"Brand","name":"Acme"},
   "image":["/img/g1.jpg",{"url":"/img/g2.jpg"}],
   "offers":[{"@type":"Offer","price":12.5,"priceCurrency":"eur","availability":"https://schema.org/InStock"}],
   "aggregateRating":{"ratingValue":"4.4","reviewCount":31},
   "review":[{"author":{"name":"Ann"},"reviewBody":"<b>Great</b>","reviewRating":{"ratingValue":5}}]}
]}</script>
</head><body></body></html>`)

	product, ok := JSONLDParser{Currency: "USD"}.Parse(page)

	require.True(t, ok)
	assert.Equal(t, "Gadget", product.Title)
	assert.Equal(t, "G-1", product.SourceProductID)
	assert.Equal(t, "Acme", product.Brand)
	assert.Equal(t, []string{"https://widgets.example/img/g1.jpg", "https://widgets.example/img/g2.jpg"}, product.Images)
	require.NotNil(t, product.Price)
	assert.Equal(t, types.Price{Amount: 12.5, Currency: "EUR"}, *product.Price)
	assert.Equal(t, types.AvailabilityInStock, product.Availability)
	require.NotNil(t, product.Rating)
	assert.Equal(t, 4.4, *product.Rating)
	require.NotNil(t, product.ReviewCount)
	assert.Equal(t, 31, *product.ReviewCount)
	require.Len(t, product.Reviews, 1)
	assert.Equal(t, "Ann", product.Reviews[0].Author)
	assert.Equal(t, "Great", product.Reviews[0].Body)
}

func TestJSONLD_ProductGroupVariants(t *testing.T) {
	page := mustPage(t, "https://widgets.example/tee", `<script type="application/ld+json">
{"@type":"ProductGroup","name":"Tee","variesBy":["https://schema.org/size"],
 "hasVariant":[
  {"@type":"Product","name":"Tee - S","size":"S","offers":{"price":"15.00","priceCurrency":"USD","availability":"https://schema.org/InStock"}},
  {"@type":"Product","name":"Tee - M","size":"M","offers":{"price":"15.00","priceCurrency":"USD","availability":"https://schema.org/OutOfStock"}}
 ]}
</script>`)

	product, ok := JSONLDParser{}.Parse(page)

	require.True(t, ok)
	require.Len(t, product.Variants, 2)
	assert.Equal(t, "S", product.Variants[0].Name)
	assert.Equal(t, "size", product.Variants[0].OptionType)
	assert.Nil(t, product.Variants[0].Stock)
	require.NotNil(t, product.Variants[1].Stock)
	assert.Equal(t, 0, *product.Variants[1].Stock)
	require.NotNil(t, product.Price)
	assert.Equal(t, 15.0, product.Price.Amount)
}

func TestJSONLD_NoProduct(t *testing.T) {
	page := mustPage(t, "https://widgets.example/", `<script type="application/ld+json">{"@type":"WebSite","name":"Widgets"}</script>`)

	_, ok := JSONLDParser{}.Parse(page)

	assert.False(t, ok)
}

func TestJSONLD_UnparseablePriceIsZero(t *testing.T) {
	page := mustPage(t, "https://widgets.example/x", `<script type="application/ld+json">{"@type":"Product","name":"X","offers":{"price":"see store","priceCurrency":"USD"}}</script>`)

	product, ok := JSONLDParser{}.Parse(page)

	require.True(t, ok)
	require.NotNil(t, product.Price)
	assert.Equal(t, 0.0, product.Price.Amount)
}

func TestStateScriptParser_MarkerAndTrailingScript(t *testing.T) {
	page := mustPage(t, "https://www.aliexpress.us/item/1005001.html", `<script>
window.runParams = {
  data: {"titleModule":{"subject":"Phone Case"},
         "imageModule":{"imagePathList":["https://ae01.alicdn.com/kf/Sabc.jpg_50x50.jpg"]},
         "priceModule":{"minActivityAmount":{"value":3.5,"currency":"USD"},"minAmount":{"value":5,"currency":"USD"}},
         "feedbackModule":{"averageStar":"4.8","totalValidNum":210},
         "skuModule":{"productSKUPropertyList":[{"skuPropertyName":"Color","skuPropertyValues":[{"propertyValueDisplayName":"Black"},{"propertyValueDisplayName":"Red"}]}]}}
};
var csrfToken = 'abc';
</script>`)

	parser := StateScriptParser{Label: "run-params", Contains: "runParams", Marker: "data:", Map: mapAliExpressRunParams}
	product, ok := parser.Parse(page)

	require.True(t, ok)
	assert.Equal(t, "Phone Case", product.Title)
	require.NotNil(t, product.Price)
	assert.Equal(t, 3.5, product.Price.Amount)
	require.NotNil(t, product.CompareAtPrice)
	assert.Equal(t, 5.0, product.CompareAtPrice.Amount)
	require.Len(t, product.Variants, 2)
	assert.Equal(t, "color", product.Variants[0].OptionType)
}

func TestStateScriptParser_PanickingMapIsIsolated(t *testing.T) {
	page := mustPage(t, "https://widgets.example/", `<script>var state = {"a":1};</script><script>var state = {"b":2};</script>`)

	calls := 0
	parser := StateScriptParser{
		Label:  "panicky",
		Marker: "var state =",
		Map: func(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
			calls++
			if _, ok := state["a"]; ok {
				panic("boom")
			}
			return types.CanonicalProduct{Title: "from b"}, true
		},
	}

	product, ok := parser.Parse(page)

	require.True(t, ok)
	assert.Equal(t, "from b", product.Title)
	assert.Equal(t, 2, calls)
}

func TestDecodeLDBlock(t *testing.T) {
	node, err := decodeLDBlock(`<!-- {"@graph":[{"@type":"WebPage"},{"@type":"Product","name":"Mug"}]} -->`)
	require.NoError(t, err)
	assert.Equal(t, "Mug", node["name"])

	node, err = decodeLDBlock(`{"@type":"Product",`)
	assert.Error(t, err)
	assert.Nil(t, node)
}

func TestNumber_PlainDecimalStrings(t *testing.T) {
	v, present := number("29.000")
	assert.True(t, present)
	assert.Equal(t, 29.0, v)

	v, present = number("€1.299")
	assert.True(t, present)
	assert.Equal(t, 1299.0, v)
}
