package adapters

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"storefront-importer/internal/types"
)

// Extractor turns a loaded product page into a CanonicalProduct.
// Extract never fails: missing fields are left empty and a panic anywhere in
// the chain yields a sparse record carrying only platform, URL and timestamp.
type Extractor interface {
	Platform() types.PlatformID
	Extract(page *Page) types.CanonicalProduct
}

// BrowserHinted is implemented by adapters whose pages need a rendering
// browser before extraction
type BrowserHinted interface {
	ReadySelectorFor(u *url.URL) string
}

// ListingExtractor is implemented by adapters that can read search-result
// and category pages
type ListingExtractor interface {
	SupportsListing() bool
	ExtractFromListing(page *Page) []types.CanonicalProduct
}

// Selectors holds the prioritized CSS-selector candidates for every field of
// the DOM pass. The first candidate yielding a non-empty value wins.
// A trailing "@attr" reads that attribute instead of the element text.
type Selectors struct {
	Title          []string
	Description    []string
	Price          []string
	CompareAtPrice []string
	Brand          []string
	Rating         []string
	ReviewCount    []string
	Availability   []string

	// Category matches breadcrumb items; their texts are joined with " > "
	Category []string

	// Images matches image elements; ImageAttrs lists the attributes read
	// from each, most preferred first
	Images     []string
	ImageAttrs []string

	// Videos matches <video> or <source> elements
	Videos []string

	Variants VariantSelectors
	Reviews  ReviewSelectors
}

// VariantSelectors locates option groups (e.g. "Color", "Size") and their options
type VariantSelectors struct {
	Group       string
	Label       []string
	Option      string
	OptionAttrs []string
}

// ReviewSelectors locates review cards and the fields inside each
type ReviewSelectors struct {
	Item   string
	Author []string
	Body   []string
	Rating []string
	Images []string
	Video  []string
}

// ListingSelectors locates product cards on a listing page
type ListingSelectors struct {
	Item   string
	Title  []string
	URL    []string
	Price  []string
	Image  []string
	Rating []string
}

// Profile is everything that makes one marketplace different from another.
// The extraction algorithm itself lives in BaseAdapter and is shared.
type Profile struct {
	Platform types.PlatformID

	// Currency is assumed when the page does not state one
	Currency string

	Limits    Limits
	Parsers   []StructuredParser
	Selectors Selectors
	Listing   *ListingSelectors

	// RewriteImage maps a thumbnail URL to its full-size form
	RewriteImage func(string) string

	// ProductID derives the marketplace-native id from the page URL
	ProductID func(*url.URL) string

	// ReadySelector, when set, marks pages that only render their product
	// block client-side; the browser loader waits for it
	ReadySelector string
}

// BaseAdapter runs the extraction strategy chain (structured pass, DOM pass,
// merge, normalize, bound) for a platform Profile. Platform adapters embed it.
type BaseAdapter struct {
	profile Profile
	logger  types.Logger
	now     func() time.Time
}

// NewBaseAdapter creates a base adapter for profile
func NewBaseAdapter(profile Profile, logger types.Logger) *BaseAdapter {
	profile.Limits = profile.Limits.withDefaults()
	if len(profile.Selectors.ImageAttrs) == 0 {
		profile.Selectors.ImageAttrs = []string{"data-old-hires", "data-zoom-image", "data-large-image", "data-src", "src", "srcset"}
	}
	if profile.RewriteImage == nil {
		profile.RewriteImage = func(s string) string { return s }
	}

	return &BaseAdapter{
		profile: profile,
		logger:  logger,
		now:     time.Now,
	}
}

// Platform returns the platform identifier
func (b *BaseAdapter) Platform() types.PlatformID {
	return b.profile.Platform
}

// ReadySelectorFor returns the element the browser loader should wait for
// on u, or "" when the page is fully server-rendered
func (b *BaseAdapter) ReadySelectorFor(u *url.URL) string {
	return b.profile.ReadySelector
}

// SupportsListing reports whether listing selectors are configured
func (b *BaseAdapter) SupportsListing() bool {
	return b.profile.Listing != nil
}

// Extract implements Extractor
func (b *BaseAdapter) Extract(page *Page) (product types.CanonicalProduct) {
	extractedAt := b.now()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Extraction panicked for %s: %v", page.RawURL(), r)
			product = b.sparse(page.RawURL(), extractedAt)
		}
	}()

	structured, ok := b.structuredPass(page)
	dom := b.domPass(page)

	product = dom
	if ok {
		product = merge(structured, dom)
	}

	b.normalize(&product, page)
	product.Platform = b.profile.Platform
	product.SourceURL = page.RawURL()
	product.ExtractedAt = extractedAt
	if product.SourceProductID == "" && b.profile.ProductID != nil {
		product.SourceProductID = b.profile.ProductID(page.URL)
	}

	Bound(&product, b.profile.Limits)

	b.logger.Debugf("Extracted %s product %q from %s (structured=%t, images=%d, variants=%d, reviews=%d)",
		b.profile.Platform, product.Title, page.RawURL(), ok, len(product.Images), len(product.Variants), len(product.Reviews))

	return product
}

func (b *BaseAdapter) sparse(sourceURL string, at time.Time) types.CanonicalProduct {
	return types.CanonicalProduct{
		Platform:     b.profile.Platform,
		SourceURL:    sourceURL,
		Availability: types.AvailabilityUnknown,
		ExtractedAt:  at,
	}
}

// structuredPass tries each structured parser in order; the first match wins
func (b *BaseAdapter) structuredPass(page *Page) (types.CanonicalProduct, bool) {
	for _, parser := range b.profile.Parsers {
		var product types.CanonicalProduct
		var ok bool

		if err := guard(func() { product, ok = parser.Parse(page) }); err != nil {
			b.logger.Warnf("Structured parser %s failed on %s: %v", parser.Name(), page.RawURL(), err)
			continue
		}
		if ok {
			b.logger.Debugf("Structured parser %s matched %s", parser.Name(), page.RawURL())
			return product, true
		}
	}
	return types.CanonicalProduct{}, false
}

// domPass reads visible elements using the profile's selector candidates
func (b *BaseAdapter) domPass(page *Page) types.CanonicalProduct {
	s := b.profile.Selectors
	root := page.Doc.Selection

	p := types.CanonicalProduct{Availability: types.AvailabilityUnknown}

	p.Title, _ = firstValue(root, s.Title)
	if desc, _ := firstValue(root, s.Description); desc != "" {
		p.Description = SanitizeText(desc)
	}
	p.Brand, _ = firstValue(root, s.Brand)
	p.Price = b.priceOf(root, s.Price)
	p.CompareAtPrice = b.priceOf(root, s.CompareAtPrice)

	if text, matched := firstValue(root, s.Rating); matched != "" {
		v, _ := ParseRating(text)
		p.Rating = floatPtr(v)
	} else if anyMatch(root, s.Rating) {
		p.Rating = floatPtr(0)
	}

	if text, matched := firstValue(root, s.ReviewCount); matched != "" {
		v, _ := ParseCount(text)
		p.ReviewCount = intPtr(v)
	} else if anyMatch(root, s.ReviewCount) {
		p.ReviewCount = intPtr(0)
	}

	if text, _ := firstValue(root, s.Availability); text != "" {
		if p.Availability = SchemaAvailability(text); p.Availability == types.AvailabilityUnknown {
			p.Availability = ClassifyAvailability(text)
		}
	}

	for _, selector := range s.Category {
		var crumbs []string
		root.Find(selector).Each(func(i int, sel *goquery.Selection) {
			if t := collapseSpace(sel.Text()); t != "" {
				crumbs = append(crumbs, t)
			}
		})
		if len(crumbs) > 0 {
			p.Category = strings.Join(crumbs, " > ")
			break
		}
	}

	p.Images = allValues(root, s.Images, s.ImageAttrs)
	p.Videos = videosFromDOM(root, s.Videos)
	p.Variants = b.variantsFromDOM(root)
	p.Reviews = b.reviewsFromDOM(root)

	return p
}

// priceOf applies the found-vs-parseable rule: nil when no element matched,
// Amount 0 when an element matched but its text holds no amount
func (b *BaseAdapter) priceOf(root *goquery.Selection, selectors []string) *types.Price {
	text, matched := firstValue(root, selectors)
	if matched == "" {
		if anyMatch(root, selectors) {
			return &types.Price{Currency: b.profile.Currency}
		}
		return nil
	}

	amount, _ := ParsePrice(text)
	return &types.Price{Amount: amount, Currency: DetectCurrency(text, b.profile.Currency)}
}

func videosFromDOM(root *goquery.Selection, selectors []string) []types.Video {
	var videos []types.Video
	for _, selector := range selectors {
		root.Find(selector).Each(func(i int, s *goquery.Selection) {
			src := firstAttr(s, []string{"src", "data-src", "data-video-url"})
			if src == "" {
				src = firstAttr(s.Find("source"), []string{"src", "data-src"})
			}
			if src == "" {
				return
			}
			videos = append(videos, types.Video{URL: src, PosterURL: firstAttr(s, []string{"poster", "data-poster"})})
		})
	}
	return videos
}

func (b *BaseAdapter) variantsFromDOM(root *goquery.Selection) []types.Variant {
	vs := b.profile.Selectors.Variants
	if vs.Option == "" {
		return nil
	}

	// nil means the defaults; an empty list reads option text only
	attrs := vs.OptionAttrs
	if attrs == nil {
		attrs = []string{"data-value", "title", "aria-label", "value"}
	}

	groups := root
	if vs.Group != "" {
		groups = root.Find(vs.Group)
	}

	var variants []types.Variant
	groups.Each(func(i int, group *goquery.Selection) {
		label, _ := firstValue(group, vs.Label)
		optionType := optionTypeOf(strings.SplitN(label, ":", 2)[0])

		group.Find(vs.Option).Each(func(j int, opt *goquery.Selection) {
			name := firstAttr(opt, attrs)
			if name == "" {
				name = collapseSpace(opt.Text())
			}
			name = strings.TrimSpace(strings.TrimPrefix(name, "Click to select "))
			if name == "" || strings.HasPrefix(strings.ToLower(name), "select") {
				return
			}

			variant := types.Variant{Name: name, OptionType: optionType}
			if opt.Is("[disabled], .disabled, .unavailable, .sold-out, [aria-disabled='true']") {
				variant.Stock = intPtr(0)
			}
			variant.Image = firstAttr(opt, []string{"data-image", "data-src"})
			if variant.Image == "" {
				variant.Image = firstAttr(opt.Find("img"), []string{"data-src", "src"})
			}
			variants = append(variants, variant)
		})
	})

	return variants
}

func (b *BaseAdapter) reviewsFromDOM(root *goquery.Selection) []types.Review {
	rs := b.profile.Selectors.Reviews
	if rs.Item == "" {
		return nil
	}

	var reviews []types.Review
	root.Find(rs.Item).EachWithBreak(func(i int, item *goquery.Selection) bool {
		review := types.Review{}
		review.Author, _ = firstValue(item, rs.Author)
		if body, _ := firstValue(item, rs.Body); body != "" {
			review.Body = SanitizeText(body)
		}
		if text, matched := firstValue(item, rs.Rating); matched != "" {
			if v, ok := ParseRating(text); ok {
				review.Rating = floatPtr(v)
			}
		}
		review.Images = allValues(item, rs.Images, []string{"data-src", "src"})
		review.Video, _ = firstValue(item, rs.Video)

		if review.Body != "" || review.Author != "" {
			reviews = append(reviews, review)
		}
		return len(reviews) < b.profile.Limits.Reviews
	})

	return reviews
}

// merge combines the two passes. A structured value wins whenever it is
// present and non-empty; DOM values fill the gaps.
func merge(structured, dom types.CanonicalProduct) types.CanonicalProduct {
	out := dom

	out.SourceProductID = pick(structured.SourceProductID, dom.SourceProductID)
	out.Title = pick(structured.Title, dom.Title)
	out.Description = pick(structured.Description, dom.Description)
	out.Brand = pick(structured.Brand, dom.Brand)
	out.Category = pick(structured.Category, dom.Category)

	if structured.Price != nil && (structured.Price.Amount > 0 || dom.Price == nil) {
		out.Price = structured.Price
	}
	if structured.CompareAtPrice != nil && (structured.CompareAtPrice.Amount > 0 || dom.CompareAtPrice == nil) {
		out.CompareAtPrice = structured.CompareAtPrice
	}
	if structured.Rating != nil && (*structured.Rating > 0 || dom.Rating == nil) {
		out.Rating = structured.Rating
	}
	if structured.ReviewCount != nil && (*structured.ReviewCount > 0 || dom.ReviewCount == nil) {
		out.ReviewCount = structured.ReviewCount
	}
	if structured.Availability != "" && structured.Availability != types.AvailabilityUnknown {
		out.Availability = structured.Availability
	}

	if len(structured.Images) > 0 {
		out.Images = structured.Images
	}
	if len(structured.Videos) > 0 {
		out.Videos = structured.Videos
	}
	if len(structured.Variants) > 0 {
		out.Variants = structured.Variants
	}
	if len(structured.Reviews) > 0 {
		out.Reviews = structured.Reviews
	}

	return out
}

func pick(preferred, fallback string) string {
	if strings.TrimSpace(preferred) != "" {
		return preferred
	}
	return fallback
}

// normalize resolves and rewrites URLs, fills default currencies and
// deduplicates list fields
func (b *BaseAdapter) normalize(p *types.CanonicalProduct, page *Page) {
	p.Title = collapseSpace(p.Title)
	p.Brand = cleanBrand(p.Brand)

	for _, price := range []*types.Price{p.Price, p.CompareAtPrice} {
		if price == nil {
			continue
		}
		if price.Amount < 0 {
			price.Amount = 0
		}
		if price.Currency == "" {
			price.Currency = b.profile.Currency
		}
	}
	if p.Availability == "" {
		p.Availability = types.AvailabilityUnknown
	}

	p.Images = b.images(page, p.Images)

	var videos []types.Video
	seen := make(map[string]bool)
	for _, v := range p.Videos {
		v.URL = page.Resolve(v.URL)
		if v.URL == "" || seen[v.URL] {
			continue
		}
		seen[v.URL] = true
		v.PosterURL = page.Resolve(v.PosterURL)
		videos = append(videos, v)
	}
	p.Videos = videos

	var variants []types.Variant
	seenVariant := make(map[string]bool)
	for _, v := range p.Variants {
		key := v.OptionType + "\x00" + v.Name
		if seenVariant[key] {
			continue
		}
		seenVariant[key] = true
		if v.Image != "" {
			v.Image = b.profile.RewriteImage(page.Resolve(v.Image))
		}
		if v.Price != nil && v.Price.Currency == "" {
			v.Price.Currency = b.profile.Currency
		}
		variants = append(variants, v)
	}
	p.Variants = variants

	for i := range p.Reviews {
		p.Reviews[i].Images = b.images(page, p.Reviews[i].Images)
		if p.Reviews[i].Images == nil {
			p.Reviews[i].Images = []string{}
		}
		p.Reviews[i].Video = page.Resolve(p.Reviews[i].Video)
	}
}

func (b *BaseAdapter) images(page *Page, refs []string) []string {
	resolved := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u := page.Resolve(ref); u != "" {
			resolved = append(resolved, b.profile.RewriteImage(u))
		}
	}
	return RemoveDuplicates(resolved)
}

// cleanBrand strips marketplace boilerplate around brand names
func cleanBrand(brand string) string {
	brand = collapseSpace(brand)
	lower := strings.ToLower(brand)
	switch {
	case strings.HasPrefix(lower, "visit the ") && strings.HasSuffix(lower, " store"):
		brand = brand[len("visit the ") : len(brand)-len(" store")]
	case strings.HasPrefix(lower, "brand:"):
		brand = brand[len("brand:"):]
	case strings.HasPrefix(lower, "by "):
		brand = brand[len("by "):]
	}
	return strings.TrimSpace(brand)
}

// anyMatch reports whether any selector matches an element at all, even one
// with empty content
func anyMatch(root *goquery.Selection, selectors []string) bool {
	for _, selector := range selectors {
		css, _ := splitSelector(selector)
		if root.Find(css).Length() > 0 {
			return true
		}
	}
	return false
}

// ExtractFromListing implements ListingExtractor. Items missing either a
// title or a product URL are dropped.
func (b *BaseAdapter) ExtractFromListing(page *Page) (items []types.CanonicalProduct) {
	ls := b.profile.Listing
	if ls == nil {
		return nil
	}

	extractedAt := b.now()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Listing extraction panicked for %s after %d items: %v", page.RawURL(), len(items), r)
		}
	}()

	seen := make(map[string]bool)
	page.Doc.Find(ls.Item).EachWithBreak(func(i int, card *goquery.Selection) bool {
		title, _ := firstValue(card, ls.Title)
		link, _ := firstValue(card, ls.URL)
		productURL := page.Resolve(link)
		if title == "" || productURL == "" || seen[productURL] {
			return true
		}
		seen[productURL] = true

		item := b.sparse(productURL, extractedAt)
		item.Title = title
		item.Price = b.priceOf(card, ls.Price)
		if text, matched := firstValue(card, ls.Rating); matched != "" {
			v, _ := ParseRating(text)
			item.Rating = floatPtr(v)
		}
		if img, _ := firstValue(card, ls.Image); img != "" {
			item.Images = b.images(page, []string{img})
		}
		if b.profile.ProductID != nil {
			if u, err := url.Parse(productURL); err == nil {
				item.SourceProductID = b.profile.ProductID(u)
			}
		}

		items = append(items, item)
		return len(items) < b.profile.Limits.Listing
	})

	b.logger.Debugf("Extracted %d listing items from %s", len(items), page.RawURL())
	return items
}
