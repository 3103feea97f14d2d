package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"storefront-importer/internal/types"
)

var walmartItemID = regexp.MustCompile(`/ip/(?:[^/]+/)?(\d+)`)

func matchWalmart(u *url.URL) bool {
	return hostHasLabel(u, "walmart")
}

// WalmartAdapter handles extraction for walmart.com item pages
type WalmartAdapter struct {
	*BaseAdapter
}

// NewWalmartAdapter creates a new Walmart adapter
func NewWalmartAdapter(logger types.Logger) *WalmartAdapter {
	return &WalmartAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformWalmart,
			Currency: "USD",
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "walmart-next-data",
					Selector: "script#__NEXT_DATA__",
					Map:      mapWalmartNextData,
				},
				JSONLDParser{Currency: "USD"},
			},
			Selectors: Selectors{
				Title:          []string{"h1[itemprop='name']", "h1#main-title", "h1"},
				Description:    []string{"[data-testid='product-description-content']", ".about-desc"},
				Price:          []string{"[itemprop='price']", "[data-testid='price-wrap'] span[itemprop='price']", "[data-fs-element='price']"},
				CompareAtPrice: []string{"[data-testid='strike-through-price']", ".strike-through"},
				Brand:          []string{"a[link-identifier='brandName']", "[data-testid='brand-link']"},
				Rating:         []string{"[data-testid='reviews-and-ratings'] .rating-number", "span[itemprop='ratingValue']"},
				ReviewCount:    []string{"[itemprop='ratingCount']", "a[link-identifier='reviewsLink']"},
				Availability:   []string{"[data-testid='add-to-cart-section']", "[data-testid='fulfillment-badge']"},
				Category:       []string{"nav[aria-label='breadcrumb'] li a", "[data-testid='breadcrumb'] a"},
				Images:         []string{"[data-testid='hero-image-container'] img", "[data-testid='media-thumbnail'] img"},
				Videos:         []string{"[data-testid='video-player'] video", "video"},
				Variants: VariantSelectors{
					Group:  "[data-testid='variant-group']",
					Label:  []string{"[data-testid='variant-group-label']", "label"},
					Option: "[data-testid='variant-tile'], input[type='radio']",
				},
				Reviews: ReviewSelectors{
					Item:   "[data-testid='enhanced-review-content']",
					Author: []string{".f7.b.mv0", "[data-testid='review-author']"},
					Body:   []string{"span.tl-m", "[data-testid='review-text']"},
					Rating: []string{".w_iUH7"},
					Images: []string{"[data-testid='review-media'] img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  "[data-item-id]",
				Title: []string{"[data-automation-id='product-title']", "span.lh-title"},
				URL:   []string{"a[href*='/ip/']@href", "a@href"},
				Price: []string{"[data-automation-id='product-price'] .f2", "[data-automation-id='product-price']"},
				Image: []string{"img[data-testid='productTileImage']@src", "img@src"},
			},
			RewriteImage: stripQuery,
			ProductID:    pathID(walmartItemID),
		}, logger),
	}
}

// mapWalmartNextData reads the server-rendered product and review sections
// of the Next.js payload
func mapWalmartNextData(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	data := dig(state, "props", "pageProps", "initialData", "data")
	product := asMap(dig(data, "product"))
	title := str(product, "name")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(product, "usItemId", "id"),
		Description:     SanitizeText(str(product, "shortDescription")),
		Brand:           str(product, "brand"),
		Availability:    SchemaAvailability(strings.ReplaceAll(strings.ToLower(str(product, "availabilityStatus")), "_", "")),
	}
	if p.Description == "" {
		p.Description = SanitizeText(str(asMap(dig(data, "idml")), "longDescription"))
	}

	var crumbs []string
	for _, c := range asSlice(dig(product, "category", "path")) {
		if name := str(asMap(c), "name"); name != "" {
			crumbs = append(crumbs, name)
		}
	}
	p.Category = strings.Join(crumbs, " > ")

	priceInfo := asMap(product["priceInfo"])
	currency := str(asMap(priceInfo["currentPrice"]), "currencyUnit")
	if currency == "" {
		currency = "USD"
	}
	p.Price = priceFrom(asMap(priceInfo["currentPrice"])["price"], currency)
	p.CompareAtPrice = priceFrom(asMap(priceInfo["wasPrice"])["price"], currency)

	for _, img := range asSlice(dig(product, "imageInfo", "allImages")) {
		if u := page.Resolve(str(asMap(img), "url")); u != "" {
			p.Images = append(p.Images, u)
		}
	}

	if v, present := number(product["averageRating"]); present {
		p.Rating = floatPtr(v)
	}
	if v, present := number(product["numberOfReviews"]); present {
		p.ReviewCount = intPtr(int(v))
	}

	for _, criteria := range asSlice(product["variantCriteria"]) {
		cm := asMap(criteria)
		optionType := optionTypeOf(str(cm, "name"))
		for _, v := range asSlice(cm["variantList"]) {
			vm := asMap(v)
			variant := types.Variant{Name: str(vm, "name"), OptionType: optionType}
			if variant.Name == "" {
				continue
			}
			if str(vm, "availabilityStatus") == "OUT_OF_STOCK" {
				variant.Stock = intPtr(0)
			}
			if images := asSlice(vm["images"]); len(images) > 0 {
				if s, ok := images[0].(string); ok {
					variant.Image = page.Resolve(s)
				}
			}
			p.Variants = append(p.Variants, variant)
		}
	}

	for _, r := range asSlice(dig(data, "reviews", "customerReviews")) {
		rm := asMap(r)
		review := types.Review{
			Author: str(rm, "userNickname"),
			Body:   SanitizeText(str(rm, "reviewText")),
		}
		if v, present := number(rm["rating"]); present {
			review.Rating = floatPtr(v)
		}
		for _, photo := range asSlice(rm["photos"]) {
			if u := page.Resolve(str(asMap(dig(photo, "sizes", "normal")), "url")); u != "" {
				review.Images = append(review.Images, u)
			}
		}
		if review.Body != "" || review.Author != "" {
			p.Reviews = append(p.Reviews, review)
		}
	}

	return p, true
}
