package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"storefront-importer/internal/types"
)

var (
	wooSlug      = regexp.MustCompile(`/product/([^/?#]+)`)
	wooImageSize = regexp.MustCompile(`-\d+x\d+(\.(?:jpe?g|png|gif|webp))$`)
)

func matchWooCommerce(u *url.URL) bool {
	return strings.Contains(u.Path, "/product/") || u.Query().Get("post_type") == "product"
}

// WooCommerceAdapter handles extraction for WordPress stores running WooCommerce
type WooCommerceAdapter struct {
	*BaseAdapter
}

// NewWooCommerceAdapter creates a new WooCommerce adapter
func NewWooCommerceAdapter(logger types.Logger) *WooCommerceAdapter {
	return &WooCommerceAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformWooCommerce,
			Currency: "USD",
			Parsers:  []StructuredParser{JSONLDParser{}},
			Selectors: Selectors{
				Title:          []string{"h1.product_title", ".product h1.entry-title", "h1"},
				Description:    []string{"#tab-description", ".woocommerce-product-details__short-description"},
				Price:          []string{".summary .price ins .woocommerce-Price-amount", ".summary .price .woocommerce-Price-amount", "p.price"},
				CompareAtPrice: []string{".summary .price del .woocommerce-Price-amount"},
				Brand:          []string{".product_meta .posted_in a[rel='tag']", ".pwb-single-product-brands a"},
				Rating:         []string{".woocommerce-product-rating .rating", ".star-rating@aria-label", ".star-rating strong.rating"},
				ReviewCount:    []string{".woocommerce-review-link .count", ".woocommerce-review-link"},
				Availability:   []string{".summary .stock", "p.stock"},
				Category:       []string{".woocommerce-breadcrumb a"},
				Images:         []string{".woocommerce-product-gallery__image a", ".woocommerce-product-gallery__image img"},
				ImageAttrs:     []string{"href", "data-large_image", "data-src", "src"},
				Videos:         []string{".woocommerce-product-gallery video"},
				Variants: VariantSelectors{
					Group:       "table.variations tr",
					Label:       []string{"th.label label", "th label"},
					Option:      "select option",
					OptionAttrs: []string{},
				},
				Reviews: ReviewSelectors{
					Item:   "#reviews ol.commentlist li.review",
					Author: []string{".woocommerce-review__author"},
					Body:   []string{".description"},
					Rating: []string{".star-rating@aria-label", ".star-rating strong.rating"},
					Images: []string{".review-images img"},
				},
			},
			Listing: &ListingSelectors{
				Item:   "ul.products li.product",
				Title:  []string{".woocommerce-loop-product__title", "h2", "h3"},
				URL:    []string{"a.woocommerce-LoopProduct-link@href", "a@href"},
				Price:  []string{".price ins .woocommerce-Price-amount", ".price .woocommerce-Price-amount"},
				Image:  []string{"img@data-src", "img@src"},
				Rating: []string{".star-rating@aria-label"},
			},
			RewriteImage: regexpRewrite(wooImageSize, "$1"),
			ProductID:    pathID(wooSlug),
		}, logger),
	}
}
