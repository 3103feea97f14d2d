package adapters

import (
	"net/url"
	"regexp"

	"storefront-importer/internal/types"
)

var temuGoodsID = regexp.MustCompile(`-g-(\d+)\.html`)

func matchTemu(u *url.URL) bool {
	return hostIs(u, "temu.com")
}

// TemuAdapter handles extraction for temu.com goods pages. Temu renders its
// product block client-side, so pages are loaded through the browser.
type TemuAdapter struct {
	*BaseAdapter
}

// NewTemuAdapter creates a new Temu adapter
func NewTemuAdapter(logger types.Logger) *TemuAdapter {
	return &TemuAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformTemu,
			Currency: "USD",
			Limits:   Limits{Images: 20, Videos: 3, Variants: 80, Reviews: 20, ReviewImages: 6, Listing: 60},
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "temu-raw-data",
					Contains: "window.rawData",
					Marker:   "window.rawData",
					Map:      mapTemuRawData,
				},
				JSONLDParser{Currency: "USD"},
			},
			Selectors: Selectors{
				Title:          []string{"h1", "[class*='goodsName']"},
				Price:          []string{"[data-type='price'] [aria-hidden='true']", "[class*='goodsPrice']", "[aria-label*='$']@aria-label"},
				CompareAtPrice: []string{"[class*='marketPrice']", "[class*='linePrice']"},
				Rating:         []string{"[class*='goodsRating']@aria-label", "[class*='starScore']"},
				ReviewCount:    []string{"[class*='reviewNum']", "[class*='commentNum']"},
				Images:         []string{"[class*='goodsImage'] img", "[class*='mainImg'] img"},
				Videos:         []string{"video"},
				Variants: VariantSelectors{
					Group:       "[class*='skuGroup']",
					Label:       []string{"[class*='specTitle']"},
					Option:      "[role='radio']",
					OptionAttrs: []string{"aria-label", "title"},
				},
				Reviews: ReviewSelectors{
					Item:   "[class*='reviewItem']",
					Author: []string{"[class*='nickname']"},
					Body:   []string{"[class*='reviewContent']"},
					Rating: []string{"[class*='reviewStar']@aria-label"},
					Images: []string{"[class*='reviewImg'] img"},
				},
			},
			RewriteImage:  stripQuery,
			ProductID:     pathID(temuGoodsID),
			ReadySelector: "h1",
		}, logger),
	}
}

// mapTemuRawData reads the goods section of window.rawData
func mapTemuRawData(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	goods := asMap(dig(state, "store", "goods"))
	title := str(goods, "goodsName")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(goods, "goodsId"),
		Description:     SanitizeText(str(goods, "goodsDesc")),
		Images:          imagesOf(page, goods["gallery"]),
		Availability:    types.AvailabilityUnknown,
	}

	priceInfo := asMap(goods["priceInfo"])
	currency := str(priceInfo, "currency")
	if currency == "" {
		currency = "USD"
	}
	if text := str(priceInfo, "priceStr"); text != "" {
		p.Price = priceFrom(text, DetectCurrency(text, currency))
	} else if cents, present := number(priceInfo["price"]); present {
		p.Price = &types.Price{Amount: cents / 100, Currency: currency}
	}
	if text := str(priceInfo, "marketPriceStr", "linePriceStr"); text != "" {
		p.CompareAtPrice = priceFrom(text, DetectCurrency(text, currency))
	}

	if video := asMap(goods["video"]); video != nil {
		if u := page.Resolve(str(video, "url")); u != "" {
			p.Videos = append(p.Videos, types.Video{URL: u, PosterURL: page.Resolve(str(video, "coverUrl"))})
		}
	}

	comment := asMap(dig(state, "store", "comment"))
	if v, present := number(comment["goodsScore"]); present {
		p.Rating = floatPtr(v)
	}
	if v, present := number(comment["commentNum"]); present {
		p.ReviewCount = intPtr(int(v))
	}

	if sold, ok := goods["soldOut"].(bool); ok {
		if sold {
			p.Availability = types.AvailabilityOutOfStock
		} else {
			p.Availability = types.AvailabilityInStock
		}
	}

	for _, spec := range asSlice(dig(state, "store", "sku", "specs")) {
		sm := asMap(spec)
		optionType := optionTypeOf(str(sm, "specName"))
		for _, value := range asSlice(sm["values"]) {
			vm := asMap(value)
			if name := str(vm, "specValue"); name != "" {
				p.Variants = append(p.Variants, types.Variant{
					Name:       name,
					OptionType: optionType,
					Image:      page.Resolve(str(vm, "thumbUrl")),
				})
			}
		}
	}

	return p, true
}
