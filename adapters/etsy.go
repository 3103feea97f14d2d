package adapters

import (
	"net/url"
	"regexp"

	"storefront-importer/internal/types"
)

var (
	etsyListingID = regexp.MustCompile(`/listing/(\d+)`)
	etsyImageSize = regexp.MustCompile(`/il_(?:\d+x\d+|\d+xN|fullxfull)\.`)
)

func matchEtsy(u *url.URL) bool {
	return hostIs(u, "etsy.com")
}

// EtsyAdapter handles extraction for etsy.com listing pages
type EtsyAdapter struct {
	*BaseAdapter
}

// NewEtsyAdapter creates a new Etsy adapter
func NewEtsyAdapter(logger types.Logger) *EtsyAdapter {
	return &EtsyAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformEtsy,
			Currency: "USD",
			Limits:   Limits{Images: 20, Videos: 2, Variants: 100, Reviews: 25, ReviewImages: 4, Listing: 64},
			Parsers:  []StructuredParser{JSONLDParser{Currency: "USD"}},
			Selectors: Selectors{
				Title:          []string{"h1[data-buy-box-listing-title]", "[data-buy-box-region='title'] h1", "h1"},
				Description:    []string{"[data-product-details-description-text-content]", "#wt-content-toggle-product-details-read-more p"},
				Price:          []string{"[data-buy-box-region='price'] p.wt-text-title-larger", "[data-selector='price-only'] .currency-value", ".currency-value"},
				CompareAtPrice: []string{"[data-buy-box-region='price'] .wt-text-strikethrough"},
				Brand:          []string{"[data-shop-name]@data-shop-name", "a[href*='/shop/'] span"},
				Rating:         []string{"input[name='initial-rating']@value", "[data-reviews-total] .wt-screen-reader-only"},
				ReviewCount:    []string{"[data-reviews-total] h2", "#same-listing-reviews-tab .wt-badge"},
				Availability:   []string{"[data-buy-box-region='stock_indicator']", "[data-selector='add-to-cart-button'] button"},
				Category:       []string{"#wt-content-toggle-tags-read-more a", "nav[aria-label='Breadcrumb'] a"},
				Images:         []string{"[data-carousel-pane] img", "ul.carousel-pane-list img"},
				ImageAttrs:     []string{"data-src-zoom-image", "data-src", "src"},
				Videos:         []string{"[data-carousel-pane] video source", "video"},
				Variants: VariantSelectors{
					Group:       "[data-selector='listing-page-variation']",
					Label:       []string{"label"},
					Option:      "select option",
					OptionAttrs: []string{},
				},
				Reviews: ReviewSelectors{
					Item:   "[data-review-region]",
					Author: []string{"a.wt-text-link", "[data-review-username]"},
					Body:   []string{"[id^='review-preview-toggle']", "p.wt-text-truncate--multi-line"},
					Rating: []string{"input[name='rating']@value", ".wt-screen-reader-only"},
					Images: []string{"[data-review-image] img", ".appreciation-photo img"},
				},
			},
			Listing: &ListingSelectors{
				Item:   "[data-listing-id]",
				Title:  []string{"h3", "h2"},
				URL:    []string{"a.listing-link@href", "a[href*='/listing/']@href"},
				Price:  []string{".currency-value"},
				Image:  []string{"img@src"},
				Rating: []string{"input[name='rating']@value"},
			},
			RewriteImage: regexpRewrite(etsyImageSize, "/il_fullxfull."),
			ProductID:    pathID(etsyListingID),
		}, logger),
	}
}
