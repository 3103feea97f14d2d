package adapters

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"storefront-importer/internal/types"
)

// StructuredParser reads machine-authored embedded data (JSON-LD, hydration
// state) from a page. ok is false when the page carries nothing it recognizes.
type StructuredParser interface {
	Name() string
	Parse(page *Page) (product types.CanonicalProduct, ok bool)
}

// JSONLDParser reads the first schema.org Product (or ProductGroup) found in
// the page's ld+json blocks. Each block is decoded in isolation, so one
// malformed block never hides a valid one.
type JSONLDParser struct {
	// Currency is used when an offer omits priceCurrency
	Currency string
}

// Name returns the parser name
func (j JSONLDParser) Name() string { return "json-ld" }

// Parse implements StructuredParser
func (j JSONLDParser) Parse(page *Page) (types.CanonicalProduct, bool) {
	var product types.CanonicalProduct
	found := false

	page.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		node, err := decodeLDBlock(s.Text())
		if err != nil || node == nil {
			return true
		}
		if err := guard(func() { product = j.mapProduct(page, node) }); err != nil {
			return true
		}
		found = true
		return false
	})

	return product, found
}

// decodeLDBlock decodes one ld+json block and returns its Product node
func decodeLDBlock(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "<!--")
	text = strings.TrimSuffix(text, "-->")
	text = strings.TrimPrefix(strings.TrimSpace(text), "//<![CDATA[")
	text = strings.TrimSuffix(strings.TrimSpace(text), "//]]>")

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return findProductNode(v, 0), nil
}

// findProductNode walks arrays, @graph containers and mainEntity references
// looking for a node typed Product or ProductGroup
func findProductNode(v any, depth int) map[string]any {
	if depth > 6 {
		return nil
	}

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findProductNode(item, depth+1); n != nil {
				return n
			}
		}
	case map[string]any:
		if isProductType(t["@type"]) {
			return t
		}
		for _, key := range []string{"@graph", "mainEntity", "itemOffered"} {
			if n := findProductNode(t[key], depth+1); n != nil {
				return n
			}
		}
	}
	return nil
}

func isProductType(v any) bool {
	for _, t := range asSlice(v) {
		if s, ok := t.(string); ok {
			s = s[strings.LastIndex(s, "/")+1:]
			if s == "Product" || s == "ProductGroup" || s == "IndividualProduct" || s == "ProductModel" {
				return true
			}
		}
	}
	return false
}

func (j JSONLDParser) mapProduct(page *Page, m map[string]any) types.CanonicalProduct {
	p := types.CanonicalProduct{
		Title:           str(m, "name"),
		Description:     SanitizeText(str(m, "description")),
		SourceProductID: str(m, "sku", "productID", "productGroupID", "mpn"),
		Brand:           nameOf(m["brand"]),
		Category:        categoryOf(m["category"]),
		Images:          imagesOf(page, m["image"]),
		Videos:          videosOf(page, m["video"]),
		Availability:    types.AvailabilityUnknown,
	}

	// A ProductGroup usually carries its offers on each variant
	offers := asSlice(m["offers"])
	if len(offers) > 0 {
		offer := asMap(offers[0])
		currency := str(offer, "priceCurrency")
		if currency == "" {
			currency = str(asMap(offer["priceSpecification"]), "priceCurrency")
		}
		if currency == "" {
			currency = j.Currency
		}

		priceValue := firstPresent(offer, "price", "lowPrice")
		if priceValue == nil {
			priceValue = asMap(offer["priceSpecification"])["price"]
		}
		p.Price = priceFrom(priceValue, currency)
		p.CompareAtPrice = listPriceOf(offer["priceSpecification"], currency)
		p.Availability = SchemaAvailability(str(offer, "availability"))
	}

	if rating := asMap(m["aggregateRating"]); rating != nil {
		if v, present := number(rating["ratingValue"]); present {
			p.Rating = floatPtr(v)
		}
		countValue := firstPresent(rating, "reviewCount", "ratingCount")
		if v, present := number(countValue); present {
			p.ReviewCount = intPtr(int(v))
		}
	}

	for _, r := range asSlice(m["review"]) {
		rm := asMap(r)
		if rm == nil {
			continue
		}
		review := types.Review{
			Author: nameOf(rm["author"]),
			Body:   SanitizeText(str(rm, "reviewBody", "description")),
			Images: imagesOf(page, rm["image"]),
		}
		if v, present := number(asMap(rm["reviewRating"])["ratingValue"]); present {
			review.Rating = floatPtr(v)
		}
		if videos := videosOf(page, rm["video"]); len(videos) > 0 {
			review.Video = videos[0].URL
		}
		if review.Body == "" && review.Author == "" {
			continue
		}
		p.Reviews = append(p.Reviews, review)
	}

	optionType := "variant"
	if varies := asSlice(m["variesBy"]); len(varies) > 0 {
		if s, ok := varies[0].(string); ok {
			optionType = strings.ToLower(s[strings.LastIndex(s, "/")+1:])
		}
	}
	for _, v := range asSlice(m["hasVariant"]) {
		vm := asMap(v)
		if vm == nil {
			continue
		}
		variant := types.Variant{Name: str(vm, "name", "sku"), OptionType: optionType}
		for _, attr := range []string{"color", "size", "material", "pattern"} {
			if value := str(vm, attr); value != "" {
				variant.Name, variant.OptionType = value, attr
				break
			}
		}
		if vo := asSlice(vm["offers"]); len(vo) > 0 {
			offer := asMap(vo[0])
			currency := str(offer, "priceCurrency")
			if currency == "" {
				currency = j.Currency
			}
			variant.Price = priceFrom(offer["price"], currency)
			switch SchemaAvailability(str(offer, "availability")) {
			case types.AvailabilityOutOfStock:
				variant.Stock = intPtr(0)
			}
			if p.Price == nil {
				p.Price = variant.Price
			}
		}
		if images := imagesOf(page, vm["image"]); len(images) > 0 {
			variant.Image = images[0]
		}
		if variant.Name != "" {
			p.Variants = append(p.Variants, variant)
		}
	}

	return p
}

// StateScriptParser reads a server-rendered hydration payload embedded in a
// script tag, e.g. <script id="__NEXT_DATA__"> or "window.runParams = {...}".
type StateScriptParser struct {
	// Label names the payload in debug logs
	Label string

	// Selector picks candidate script tags; defaults to "script"
	Selector string

	// Contains filters candidates by a substring of their text
	Contains string

	// Marker locates the payload; decoding starts at the first '{' after it.
	// Empty means the whole script text is the payload.
	Marker string

	// Map turns the decoded payload into product fields
	Map func(page *Page, state map[string]any) (types.CanonicalProduct, bool)
}

// Name returns the parser name
func (s StateScriptParser) Name() string { return s.Label }

// Parse implements StructuredParser
func (s StateScriptParser) Parse(page *Page) (types.CanonicalProduct, bool) {
	selector := s.Selector
	if selector == "" {
		selector = "script"
	}

	var product types.CanonicalProduct
	found := false

	page.Doc.Find(selector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()
		if s.Contains != "" && !strings.Contains(text, s.Contains) {
			return true
		}

		state, err := decodeState(text, s.Marker)
		if err != nil || state == nil {
			return true
		}

		var ok bool
		if err := guard(func() { product, ok = s.Map(page, state) }); err != nil || !ok {
			return true
		}
		found = true
		return false
	})

	return product, found
}

// decodeState decodes the first JSON object after marker. The decoder stops
// at the end of that value, so trailing JavaScript (";", more assignments) is ignored.
func decodeState(text, marker string) (map[string]any, error) {
	if marker != "" {
		i := strings.Index(text, marker)
		if i < 0 {
			return nil, fmt.Errorf("marker %q not found", marker)
		}
		text = text[i+len(marker):]
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, fmt.Errorf("no object in payload")
	}

	var state map[string]any
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&state); err != nil {
		return nil, err
	}
	return state, nil
}

// guard runs fn and converts a panic into an error, isolating one parse
// attempt from the rest of the extraction
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered: %v", r)
		}
	}()
	fn()
	return nil
}

// dig walks nested maps by key
func dig(v any, path ...string) any {
	for _, key := range path {
		m := asMap(v)
		if m == nil {
			return nil
		}
		v = m[key]
	}
	return v
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asSlice treats a single value as a one-element list
func asSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// str returns the first non-empty string value among keys. Numbers are formatted.
func str(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

// number reads a JSON number or numeric string. present is true when the
// value exists at all; an unparseable value yields (0, true).
func number(v any) (value float64, present bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if t < 0 {
			return 0, true
		}
		return t, true
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, true
			}
			return f, true
		}
		f, _ := ParsePrice(t)
		return f, true
	default:
		return 0, true
	}
}

func priceFrom(v any, currency string) *types.Price {
	amount, present := number(v)
	if !present {
		return nil
	}
	return &types.Price{Amount: amount, Currency: strings.ToUpper(currency)}
}

func listPriceOf(spec any, currency string) *types.Price {
	for _, s := range asSlice(spec) {
		sm := asMap(s)
		priceType := strings.ToLower(str(sm, "priceType"))
		if strings.Contains(priceType, "listprice") || strings.Contains(priceType, "strikethroughprice") {
			c := str(sm, "priceCurrency")
			if c == "" {
				c = currency
			}
			return priceFrom(sm["price"], c)
		}
	}
	return nil
}

// nameOf reads "Acme" or {"@type": "Brand", "name": "Acme"}
func nameOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return str(t, "name")
	case []any:
		if len(t) > 0 {
			return nameOf(t[0])
		}
	}
	return ""
}

func categoryOf(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var parts []string
		for _, item := range t {
			if s := nameOf(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " > ")
	case map[string]any:
		return str(t, "name")
	}
	return ""
}

// imagesOf reads "url", ["url", ...], {"url": ...} or [{"contentUrl": ...}]
func imagesOf(page *Page, v any) []string {
	var images []string
	for _, item := range asSlice(v) {
		var ref string
		switch t := item.(type) {
		case string:
			ref = t
		case map[string]any:
			ref = str(t, "url", "contentUrl", "src")
		}
		if u := page.Resolve(ref); u != "" {
			images = append(images, u)
		}
	}
	return images
}

func videosOf(page *Page, v any) []types.Video {
	var videos []types.Video
	for _, item := range asSlice(v) {
		m := asMap(item)
		if m == nil {
			continue
		}
		u := page.Resolve(str(m, "contentUrl", "embedUrl", "url"))
		if u == "" {
			continue
		}
		video := types.Video{URL: u}
		if thumbs := imagesOf(page, m["thumbnailUrl"]); len(thumbs) > 0 {
			video.PosterURL = thumbs[0]
		}
		videos = append(videos, video)
	}
	return videos
}
