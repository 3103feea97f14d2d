package adapters

import (
	"net/url"
	"regexp"
	"strings"

	"storefront-importer/internal/types"
)

var (
	sheinGoodsID   = regexp.MustCompile(`-p-(\d+)`)
	sheinThumbnail = regexp.MustCompile(`_thumbnail_\d+x\d*`)
)

func matchShein(u *url.URL) bool {
	return hostHasLabel(u, "shein") || hostIs(u, "sheingroup.com")
}

// SheinAdapter handles extraction for shein.* goods pages
type SheinAdapter struct {
	*BaseAdapter
}

// NewSheinAdapter creates a new Shein adapter
func NewSheinAdapter(logger types.Logger) *SheinAdapter {
	return &SheinAdapter{
		BaseAdapter: NewBaseAdapter(Profile{
			Platform: types.PlatformShein,
			Currency: "USD",
			Limits:   Limits{Images: 20, Videos: 2, Variants: 60, Reviews: 20, ReviewImages: 6, Listing: 60},
			Parsers: []StructuredParser{
				StateScriptParser{
					Label:    "shein-product-intro",
					Contains: "productIntroData",
					Marker:   "productIntroData:",
					Map:      mapSheinProductIntro,
				},
				JSONLDParser{Currency: "USD"},
			},
			Selectors: Selectors{
				Title:          []string{".product-intro__head-name", "h1"},
				Description:    []string{".product-intro__description-table", ".product-intro__description"},
				Price:          []string{".product-intro__head-mainprice .from", ".product-intro__head-price .original", ".product-intro__head-mainprice"},
				CompareAtPrice: []string{".product-intro__head-price .del-price", ".del-price"},
				Rating:         []string{".product-intro__head-reviews .rate-num", ".rate-num"},
				ReviewCount:    []string{".product-intro__head-reviews-text", ".product-reviews__count"},
				Availability:   []string{".product-intro__add-btn", ".product-intro__sold-out"},
				Category:       []string{".bread-crumb__item a", ".bread-crumb__item-link"},
				Images:         []string{".product-intro__thumbs-item img", ".product-intro__main-item img"},
				ImageAttrs:     []string{"data-src", "src"},
				Videos:         []string{".product-intro__video video"},
				Variants: VariantSelectors{
					Group:       ".product-intro__size, .product-intro__color",
					Label:       []string{".product-intro__size-title", ".product-intro__color-title"},
					Option:      ".product-intro__size-radio, .product-intro__color-radio",
					OptionAttrs: []string{"aria-label", "data-attr_value_name"},
				},
				Reviews: ReviewSelectors{
					Item:   ".common-reviews__list-item",
					Author: []string{".nikename"},
					Body:   []string{".rate-des"},
					Rating: []string{".star-html@aria-label"},
					Images: []string{".common-reviews__list-item-pic img"},
				},
			},
			Listing: &ListingSelectors{
				Item:  ".product-list__item, section.product-card",
				Title: []string{".goods-title-link", "a[title]@title"},
				URL:   []string{"a.goods-title-link@href", "a[href*='-p-']@href"},
				Price: []string{".product-item__camecase-wrap", ".normal-price-ctn__sale-price"},
				Image: []string{"img.crop-image-container__img@src", "img@data-src", "img@src"},
			},
			RewriteImage:  regexpRewrite(sheinThumbnail, ""),
			ProductID:     pathID(sheinGoodsID),
			ReadySelector: ".product-intro__head-name",
		}, logger),
	}
}

// mapSheinProductIntro reads the productIntroData object of the goods page
func mapSheinProductIntro(page *Page, state map[string]any) (types.CanonicalProduct, bool) {
	detail := asMap(state["detail"])
	title := str(detail, "goods_name")
	if title == "" {
		return types.CanonicalProduct{}, false
	}

	p := types.CanonicalProduct{
		Title:           title,
		SourceProductID: str(detail, "goods_id", "goods_sn"),
		Category:        str(detail, "cat_name"),
		Brand:           str(detail, "brand", "brand_name"),
		Availability:    types.AvailabilityUnknown,
	}

	var descParts []string
	for _, attr := range asSlice(detail["productDetails"]) {
		am := asMap(attr)
		if name, value := str(am, "attr_name"), str(am, "attr_value"); name != "" && value != "" {
			descParts = append(descParts, name+": "+value)
		}
	}
	p.Description = strings.Join(descParts, "; ")

	images := []any{dig(state, "goods_imgs", "main_image", "origin_image")}
	for _, img := range asSlice(dig(state, "goods_imgs", "detail_image")) {
		images = append(images, str(asMap(img), "origin_image"))
	}
	p.Images = imagesOf(page, images)

	sale := asMap(detail["salePrice"])
	retail := asMap(detail["retailPrice"])
	currency := str(state, "currency")
	if currency == "" {
		currency = DetectCurrency(str(sale, "amountWithSymbol"), "USD")
	}
	p.Price = priceFrom(firstPresent(sale, "amount"), currency)
	if retailAmount, present := number(retail["amount"]); present && p.Price != nil && retailAmount > p.Price.Amount {
		p.CompareAtPrice = &types.Price{Amount: retailAmount, Currency: currency}
	}

	comment := asMap(state["commentInfo"])
	if v, present := number(comment["comment_rank_average"]); present {
		p.Rating = floatPtr(v)
	}
	if v, present := number(comment["comment_num"]); present {
		p.ReviewCount = intPtr(int(v))
	}

	if stock, present := number(detail["stock"]); present {
		switch {
		case stock == 0:
			p.Availability = types.AvailabilityOutOfStock
		case stock < 10:
			p.Availability = types.AvailabilityLimited
		default:
			p.Availability = types.AvailabilityInStock
		}
	}

	for _, size := range asSlice(dig(state, "attrSizeList", "sale_attr_list", "sku_list")) {
		sm := asMap(size)
		for _, attr := range asSlice(sm["sku_sale_attr"]) {
			am := asMap(attr)
			name := str(am, "attr_value_name")
			if name == "" {
				continue
			}
			variant := types.Variant{Name: name, OptionType: optionTypeOf(str(am, "attr_name"))}
			if stock, present := number(sm["stock"]); present {
				variant.Stock = intPtr(int(stock))
			}
			p.Variants = append(p.Variants, variant)
		}
	}

	return p, true
}
