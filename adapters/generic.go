package adapters

import (
	"storefront-importer/internal/types"
)

// GenericAdapter extracts from pages of unrecognized sites using schema.org
// data, OpenGraph tags and common product markup. Its products carry
// platform "unknown".
type GenericAdapter struct {
	*BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter(logger types.Logger) *GenericAdapter {
	return &GenericAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformUnknown,
			Parsers:  []StructuredParser{JSONLDParser{}},
			Selectors: Selectors{
				Title:          []string{"[itemprop='name']", "meta[property='og:title']@content", "h1"},
				Description:    []string{"[itemprop='description']", "meta[property='og:description']@content", "meta[name='description']@content"},
				Price:          []string{"[itemprop='price']@content", "[itemprop='price']", "meta[property='product:price:amount']@content", "meta[property='og:price:amount']@content", ".price"},
				CompareAtPrice: []string{".price del", ".was-price", ".compare-price"},
				Brand:          []string{"[itemprop='brand'] [itemprop='name']", "[itemprop='brand']", "meta[property='product:brand']@content"},
				Rating:         []string{"[itemprop='ratingValue']@content", "[itemprop='ratingValue']"},
				ReviewCount:    []string{"[itemprop='reviewCount']@content", "[itemprop='reviewCount']", "[itemprop='ratingCount']"},
				Availability:   []string{"link[itemprop='availability']@href", "[itemprop='availability']@content", "meta[property='product:availability']@content"},
				Category:       []string{"[itemtype*='BreadcrumbList'] [itemprop='name']", "nav.breadcrumb a", ".breadcrumbs a"},
				Images:         []string{"meta[property='og:image']@content", "[itemprop='image']", "img[itemprop='image']"},
				Videos:         []string{"video"},
				Reviews: ReviewSelectors{
					Item:   "[itemprop='review']",
					Author: []string{"[itemprop='author'] [itemprop='name']", "[itemprop='author']"},
					Body:   []string{"[itemprop='reviewBody']", "[itemprop='description']"},
					Rating: []string{"[itemprop='ratingValue']@content", "[itemprop='ratingValue']"},
				},
			},
		}, logger),
	}
}
