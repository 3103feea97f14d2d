package adapters

import (
	"net/url"
	"regexp"

	"storefront-importer/internal/types"
)

var (
	aliexpressItemID = regexp.MustCompile(`/item/(?:[^/]+/)?(\d+)\.html`)

	// "...jpg_50x50.jpg", "...jpg_Q90.jpg_.webp", "...png_220x220q75.png"
	alicdnResize = regexp.MustCompile(`(\.(?:jpe?g|png|webp))_[^/]*$`)
)

func matchAliExpress(u *url.URL) bool {
	return hostHasLabel(u, "aliexpress")
}

// AliExpressAdapter handles extraction for aliexpress.* item pages
type AliExpressAdapter struct {
	*BaseAdapter
}

// NewAliExpressAdapter creates a new AliExpress adapter
func NewAliExpressAdapter(logger types.Logger) *AliExpressAdapter {
	return &AliExpressAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformAliExpress,
			Currency: "USD",
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "aliexpress-run-params",
					Contains: "runParams",
					Marker:   "data:",
					Map:      mapAliExpressRunParams,
				},
				JSONLDParser{Currency: "USD"},
			},
			Selectors: Selectors{
				Title:          []string{"h1[data-pl='product-title']", ".product-title-text", "h1"},
				Description:    []string{"#product-description", ".product-description"},
				Price:          []string{".product-price-current", "[class*='price--current']", ".uniform-banner-box-price"},
				CompareAtPrice: []string{".product-price-original", "[class*='price--original']"},
				Brand:          []string{"[class*='store-header--storeName']", ".shop-name a"},
				Rating:         []string{"[class*='reviewer--rating'] strong", ".overview-rating-average"},
				ReviewCount:    []string{"[class*='reviewer--reviews']", ".product-reviewer-reviews"},
				Availability:   []string{"[class*='quantity--info']", ".product-quantity-tip"},
				Category:       []string{"[class*='cross-link--breadcrumb'] a", ".breadcrumb a"},
				Images:         []string{"[class*='slider--img'] img", ".images-view-item img", "[class*='magnifier--image']"},
				Videos:         []string{"video"},
				Variants: VariantSelectors{
					Group:       "[class*='sku-item--property']",
					Label:       []string{"[class*='sku-item--title']"},
					Option:      "[class*='sku-item--image'] img, [class*='sku-item--text']",
					OptionAttrs: []string{"alt", "title"},
				},
				Reviews: ReviewSelectors{
					Item:   "[class*='list--itemBox']",
					Author: []string{"[class*='list--itemInfo'] span"},
					Body:   []string{"[class*='list--itemReview']"},
					Images: []string{"[class*='list--itemThumbnail'] img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  "a[href*='/item/']",
				Title: []string{"h3", "[class*='title']@title", "[class*='title']"},
				URL:   []string{"@href"},
				Price: []string{"[class*='price-sale']", "[class*='price']"},
				Image: []string{"img@src"},
			},
			RewriteImage: regexpRewrite(alicdnResize, "$1"),
			ProductID:    pathID(aliexpressItemID),
		}, logger),
	}
}

// mapAliExpressRunParams reads the module-per-section payload assigned to
// window.runParams
func mapAliExpressRunParams(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	title := str(asMap(state["titleModule"]), "subject")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(asMap(state["productInfoComponent"]), "id"),
		Brand:           str(asMap(state["storeModule"]), "storeName"),
		Images:          imagesOf(page, dig(state, "imageModule", "imagePathList")),
		Availability:    types.AvailabilityUnknown,
	}
	if p.SourceProductID == "" {
		p.SourceProductID = str(asMap(state["actionModule"]), "productId")
	}

	priceModule := asMap(state["priceModule"])
	currency := str(asMap(priceModule["minActivityAmount"]), "currency")
	if currency == "" {
		currency = str(asMap(priceModule["minAmount"]), "currency")
	}
	if currency == "" {
		currency = "USD"
	}
	if v := firstPresent(asMap(priceModule["minActivityAmount"]), "value"); v != nil {
		p.Price = priceFrom(v, currency)
		p.CompareAtPrice = priceFrom(asMap(priceModule["minAmount"])["value"], currency)
	} else if v := firstPresent(asMap(priceModule["minAmount"]), "value"); v != nil {
		p.Price = priceFrom(v, currency)
	} else if text := str(priceModule, "formatedActivityPrice", "formatedPrice"); text != "" {
		p.Price = priceFrom(text, DetectCurrency(text, currency))
	}

	feedback := asMap(state["feedbackModule"])
	if v, present := number(feedback["averageStar"]); present {
		p.Rating = floatPtr(v)
	}
	if v, present := number(feedback["totalValidNum"]); present {
		p.ReviewCount = intPtr(int(v))
	}

	if qty, present := number(dig(state, "quantityModule", "totalAvailQuantity")); present {
		if qty == 0 {
			p.Availability = types.AvailabilityOutOfStock
		} else if qty < 10 {
			p.Availability = types.AvailabilityLimited
		} else {
			p.Availability = types.AvailabilityInStock
		}
	}

	for _, prop := range asSlice(dig(state, "skuModule", "productSKUPropertyList")) {
		pm := asMap(prop)
		optionType := optionTypeOf(str(pm, "skuPropertyName"))
		for _, value := range asSlice(pm["skuPropertyValues"]) {
			vm := asMap(value)
			name := str(vm, "propertyValueDisplayName", "propertyValueName")
			if name == "" {
				continue
			}
			p.Variants = append(p.Variants, types.Variant{
				Name:       name,
				OptionType: optionType,
				Image:      page.Resolve(str(vm, "skuPropertyImagePath")),
			})
		}
	}

	return p, true
}
