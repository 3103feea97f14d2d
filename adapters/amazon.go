package adapters

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storefront-importer/internal/types"
)

var (
	amazonASIN      = regexp.MustCompile(`/(?:dp|gp/product|gp/aw/d|exec/obidos/asin)/([A-Z0-9]{10})`)
	amazonImageSize = regexp.MustCompile(`\._[^/]*_(\.(?:jpe?g|png|webp|gif))$`)
)

func matchAmazon(u *url.URL) bool {
	return hostHasLabel(u, "amazon") || hostIs(u, "amzn.to", "amzn.eu", "a.co")
}

// AmazonAdapter handles extraction for amazon.* product pages
type AmazonAdapter struct {
	*BaseAdapter
}

// NewAmazonAdapter creates a new Amazon adapter
func NewAmazonAdapter(logger types.Logger) *AmazonAdapter {
	return &AmazonAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformAmazon,
			Currency: "USD",
			Limits:   Limits{Images: 20, Videos: 5, Variants: 100, Reviews: 20, ReviewImages: 10, Listing: 48},
			Parsers: []StructuredParser{
				JSONLDParser{Currency: "USD"},
				amazonImageBlock{},
			},
			Selectors: Selectors{
				Title:          []string{"#productTitle", "#title", "h1"},
				Description:    []string{"#productDescription", "#feature-bullets", "#bookDescription_feature_div"},
				Price:          []string{"#corePrice_feature_div .a-price .a-offscreen", "#corePriceDisplay_desktop_feature_div .a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice", ".a-price .a-offscreen"},
				CompareAtPrice: []string{".basisPrice .a-offscreen", "#corePriceDisplay_desktop_feature_div .a-text-price .a-offscreen"},
				Brand:          []string{"#bylineInfo", "tr.po-brand td.po-break-word"},
				Rating:         []string{"#acrPopover@title", "#averageCustomerReviews .a-icon-alt", "span[data-hook='rating-out-of-text']"},
				ReviewCount:    []string{"#acrCustomerReviewText", "span[data-hook='total-review-count']"},
				Availability:   []string{"#availability span", "#availability"},
				Category:       []string{"#wayfinding-breadcrumbs_feature_div ul li a"},
				Images:         []string{"#landingImage", "#imgTagWrapperId img", "#altImages li.imageThumbnail img"},
				ImageAttrs:     []string{"data-old-hires", "src"},
				Videos:         []string{"#ivVideoBlock video", "video"},
				Variants: VariantSelectors{
					Group:       "div[id^='variation_']",
					Label:       []string{"label.a-form-label", ".a-row label"},
					Option:      "li[data-defaultasin], li.swatchAvailable, li.swatchUnavailable, select option",
					OptionAttrs: []string{"title", "data-a-html-content"},
				},
				Reviews: ReviewSelectors{
					Item:   "div[data-hook='review']",
					Author: []string{".a-profile-name"},
					Body:   []string{"span[data-hook='review-body']", ".review-text-content"},
					Rating: []string{"i[data-hook='review-star-rating'] .a-icon-alt", "i[data-hook='cmps-review-star-rating'] .a-icon-alt"},
					Images: []string{"img.review-image-tile"},
					Video:  []string{"div[data-hook='review-video'] video@src"},
				},
			},
			Listing: &ListingSelectors{
				Item:   "div[data-component-type='s-search-result']",
				Title:  []string{"h2 span", "h2 a span"},
				URL:    []string{"h2 a@href", "a.a-link-normal.s-no-outline@href"},
				Price:  []string{".a-price .a-offscreen"},
				Image:  []string{"img.s-image@src"},
				Rating: []string{".a-icon-alt"},
			},
			RewriteImage: regexpRewrite(amazonImageSize, "$1"),
			ProductID:    pathID(amazonASIN),
		}, logger),
	}
}

// amazonImageBlock reads the gallery from the ImageBlockATF script, which
// lists every hi-res image even when the DOM only carries thumbnails.
// The surrounding object is JavaScript, so decoding starts at the
// JSON array following 'initial'.
type amazonImageBlock struct{}

func (amazonImageBlock) Name() string { return "amazon-image-block" }

func (amazonImageBlock) Parse(page *Page) (types.CanonicalProduct, bool) {
	var product types.CanonicalProduct

	page.Doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "colorImages") {
			return true
		}

		idx := strings.Index(text, "'initial':")
		if idx < 0 {
			return true
		}
		rest := text[idx+len("'initial':"):]
		start := strings.IndexByte(rest, '[')
		if start < 0 {
			return true
		}

		var images []map[string]any
		if err := json.NewDecoder(strings.NewReader(rest[start:])).Decode(&images); err != nil {
			return true
		}

		for _, img := range images {
			if u := page.Resolve(str(img, "hiRes", "large", "thumb")); u != "" {
				product.Images = append(product.Images, u)
			}
		}
		return len(product.Images) == 0
	})

	return product, len(product.Images) > 0
}
