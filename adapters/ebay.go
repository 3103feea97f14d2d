package adapters

import (
	"net/url"
	"regexp"

	"storefront-importer/internal/types"
)

var (
	ebayItemID    = regexp.MustCompile(`/itm/(?:[^/]+/)?(\d{9,})`)
	ebayImageSize = regexp.MustCompile(`/s-l\d+\.(jpe?g|png|webp)`)
)

func matchEbay(u *url.URL) bool {
	return hostHasLabel(u, "ebay")
}

// EbayAdapter handles extraction for ebay.* item pages
type EbayAdapter struct {
	*BaseAdapter
}

// NewEbayAdapter creates a new eBay adapter
func NewEbayAdapter(logger types.Logger) *EbayAdapter {
	return &EbayAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformEbay,
			Currency: "USD",
			Limits:   Limits{Images: 24, Videos: 2, Variants: 100, Reviews: 20, ReviewImages: 5, Listing: 60},
			Parsers:  []StructuredParser{JSONLDParser{Currency: "USD"}},
			Selectors: Selectors{
				Title:          []string{"h1.x-item-title__mainTitle span", "#itemTitle", "h1"},
				Description:    []string{"[data-testid='x-item-description-child']", "#viTabs_0_is"},
				Price:          []string{".x-price-primary span.ux-textspans", "#prcIsum", "[itemprop='price']@content"},
				CompareAtPrice: []string{".x-additional-info .ux-textspans--STRIKETHROUGH", ".ux-textspans--STRIKETHROUGH", "#orgPrc"},
				Brand:          []string{".ux-labels-values--brand .ux-labels-values__values span", "[itemprop='brand'] [itemprop='name']"},
				Rating:         []string{".x-star-rating .ux-textspans--BOLD", ".reviews-star-rating@title"},
				ReviewCount:    []string{".x-star-rating .ux-textspans--SECONDARY", ".reviews-right .reviews-total"},
				Availability:   []string{"#qtySubTxt", ".d-quantity__availability", ".x-quantity__availability"},
				Category:       []string{"nav.breadcrumbs li a span", ".seo-breadcrumb-text span"},
				Images:         []string{".ux-image-carousel-item img", "#icImg", ".ux-image-filmstrip-carousel-item img"},
				ImageAttrs:     []string{"data-zoom-src", "data-src", "src"},
				Videos:         []string{".ux-image-carousel-item video", "video"},
				Variants: VariantSelectors{
					Group:       ".x-msku__box-cont",
					Label:       []string{".x-msku__label-text", "label"},
					Option:      "select option",
					OptionAttrs: []string{"data-sku-value-name"},
				},
				Reviews: ReviewSelectors{
					Item:   ".fdbk-container",
					Author: []string{".fdbk-container__details__info__username span"},
					Body:   []string{".fdbk-container__details__comment span"},
					Images: []string{".fdbk-container__details__image img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  "li.s-item, li.s-card",
				Title: []string{".s-item__title span[role='heading']", ".s-item__title", ".s-card__title"},
				URL:   []string{"a.s-item__link@href", "a.su-link@href"},
				Price: []string{".s-item__price", ".s-card__price"},
				Image: []string{".s-item__image img@src", "img@src"},
			},
			RewriteImage: regexpRewrite(ebayImageSize, "/s-l1600.$1"),
			ProductID:    pathID(ebayItemID),
		}, logger),
	}
}
