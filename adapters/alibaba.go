package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"storefront-importer/internal/types"
)

var alibabaProductID = regexp.MustCompile(`_(\d{6,})\.html`)

func matchAlibaba(u *url.URL) bool {
	return hostIs(u, "alibaba.com")
}

// AlibabaAdapter handles extraction for alibaba.com product-detail pages
type AlibabaAdapter struct {
	*BaseAdapter
}

// NewAlibabaAdapter creates a new Alibaba adapter
func NewAlibabaAdapter(logger types.Logger) *AlibabaAdapter {
	return &AlibabaAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformAlibaba,
			Currency: "USD",
			Limits:   Limits{Images: 20, Videos: 3, Variants: 50, Reviews: 20, ReviewImages: 5, Listing: 48},
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "alibaba-detail-data",
					Contains: "window.detailData",
					Marker:   "window.detailData",
					Map:      mapAlibabaDetailData,
				},
				JSONLDParser{Currency: "USD"},
			},
			Selectors: Selectors{
				Title:        []string{".product-title h1", "h1[title]", "h1"},
				Description:  []string{".module_productDescription", "#J-rich-text-description"},
				Price:        []string{".price-list .price", ".promotion-price strong", "[class*='price-item'] [class*='price']"},
				Brand:        []string{".company-name a", "[class*='company-name']"},
				Rating:       []string{"[class*='review-score']", ".rating-value"},
				ReviewCount:  []string{"[class*='review-count']", ".rating-count"},
				Category:     []string{".detail-breadcrumb a", "[class*='breadcrumb'] a"},
				Images:       []string{".main-image img", ".detail-next-slick img", "[class*='image-list'] img"},
				Videos:       []string{".main-video video", "video"},
				Availability: []string{"[class*='stock']"},
				Variants: VariantSelectors{
					Group:       "[class*='sku-info'] > div, .sku-list",
					Label:       []string{"[class*='sku-title']", "h4"},
					Option:      "[class*='sku-item'], a[title]",
					OptionAttrs: []string{"title"},
				},
				Reviews: ReviewSelectors{
					Item:   "[class*='review-item']",
					Author: []string{"[class*='review-user']"},
					Body:   []string{"[class*='review-content']"},
					Rating: []string{"[class*='review-rating']@data-score"},
					Images: []string{"[class*='review-image'] img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  ".organic-list-offer-outter, .fy23-search-card",
				Title: []string{"h2", ".search-card-e-title"},
				URL:   []string{"a[href*='product-detail']@href", "a@href"},
				Price: []string{".search-card-e-price-main", ".elements-offer-price-normal__price"},
				Image: []string{"img@src"},
			},
			RewriteImage: regexpRewrite(alicdnResize, "$1"),
			ProductID:    pathID(alibabaProductID),
		}, logger),
	}
}

// mapAlibabaDetailData reads the globalData.product section of window.detailData
func mapAlibabaDetailData(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	product := asMap(dig(state, "globalData", "product"))
	title := str(product, "subject")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(product, "productId"),
		Brand:           str(asMap(dig(state, "globalData", "seller")), "companyName"),
		Category:        categoryOf(dig(state, "globalData", "trade", "categoryPath")),
		Availability:    types.AvailabilityUnknown,
	}

	for _, item := range asSlice(product["mediaItems"]) {
		m := asMap(item)
		switch str(m, "type") {
		case "video":
			if u := page.Resolve(str(asMap(m["videoUrl"]), "hd", "sd")); u != "" {
				p.Videos = append(p.Videos, types.Video{URL: u, PosterURL: page.Resolve(str(m, "videoCoverUrl"))})
			} else if u := page.Resolve(str(m, "videoUrl")); u != "" {
				p.Videos = append(p.Videos, types.Video{URL: u})
			}
		default:
			ref := str(asMap(m["imageUrl"]), "big", "normal")
			if ref == "" {
				ref = str(m, "imageUrl")
			}
			if u := page.Resolve(ref); u != "" {
				p.Images = append(p.Images, u)
			}
		}
	}

	// Ladder prices are tiered by quantity; the first tier is the list price
	price := asMap(product["price"])
	if ladder := asSlice(price["productLadderPrices"]); len(ladder) > 0 {
		tier := asMap(ladder[0])
		p.Price = priceFrom(firstPresent(tier, "dollarPrice", "price"), "USD")
	} else if ranges := asSlice(price["productRangePrices"]); len(ranges) > 0 {
		p.Price = priceFrom(firstPresent(asMap(ranges[0]), "dollarPriceRangeLow", "priceRangeLow"), "USD")
	}

	review := asMap(dig(state, "globalData", "review"))
	if v, present := number(review["averageStar"]); present {
		p.Rating = floatPtr(v)
	}
	if v, present := number(review["totalReviewCount"]); present {
		p.ReviewCount = intPtr(int(v))
	}

	for _, attr := range asSlice(dig(product, "sku", "skuAttrs")) {
		am := asMap(attr)
		optionType := optionTypeOf(str(am, "name"))
		for _, value := range asSlice(am["values"]) {
			vm := asMap(value)
			name := strings.TrimSpace(str(vm, "name"))
			if name == "" {
				continue
			}
			p.Variants = append(p.Variants, types.Variant{
				Name:       name,
				OptionType: optionType,
				Image:      page.Resolve(str(vm, "largeImage", "image")),
			})
		}
	}

	return p, true
}
