package adapters

import (
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"storefront-importer/internal/types"
)

// Limits caps every list field of a product to bound payload size
type Limits struct {
	Images       int
	Videos       int
	Variants     int
	Reviews      int
	ReviewImages int
	Listing      int
}

// DefaultLimits applies to platforms that do not override them
var DefaultLimits = Limits{
	Images:       30,
	Videos:       5,
	Variants:     100,
	Reviews:      50,
	ReviewImages: 10,
	Listing:      60,
}

const isoCodes = "USD|EUR|GBP|CAD|AUD|INR|JPY|CNY|MXN|BRL|AED|SAR|PLN|SEK|CHF|TRY"

// withDefaults fills every unset cap from DefaultLimits
func (l Limits) withDefaults() Limits {
	fill := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	fill(&l.Images, DefaultLimits.Images)
	fill(&l.Videos, DefaultLimits.Videos)
	fill(&l.Variants, DefaultLimits.Variants)
	fill(&l.Reviews, DefaultLimits.Reviews)
	fill(&l.ReviewImages, DefaultLimits.ReviewImages)
	fill(&l.Listing, DefaultLimits.Listing)
	return l
}

var (
	ratingPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countPattern  = regexp.MustCompile(`(\d[\d,.\s\x{00a0}]*)\s*(?:([kKmM])\b)?`)

	// an ISO code counts only as a whole word next to an amount or symbol
	currencyCodePattern = regexp.MustCompile(`\b(` + isoCodes + `)\s?[\d$€£¥]|[\d.,]\s?(` + isoCodes + `)\b`)
)

// descriptionPolicy strips all markup from descriptions and review bodies
var descriptionPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// ParsePrice extracts a non-negative decimal from price text such as
// "$1,299.99", "19,99 €" or "US $10.50 - 12.00" (first amount wins).
// ok is false when the text holds no parseable amount.
func ParsePrice(text string) (amount float64, ok bool) {
	s := firstAmount(text)
	if s == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// 1.299,99
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,299.99
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = singleSeparator(s, ",", lastComma)
	case lastDot >= 0:
		s = singleSeparator(s, ".", lastDot)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// singleSeparator normalizes an amount holding one kind of separator. A
// repeated separator, or a single one followed by exactly three digits,
// groups thousands ("1.299", "12,000"); otherwise it is the decimal point
// ("12,5", "19.99").
func singleSeparator(s, sep string, last int) string {
	if strings.Count(s, sep) > 1 || len(s)-last-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return strings.Replace(s, sep, ".", 1)
}

// firstAmount returns the first run of digits and separators in text.
// Spaces are kept only between digits ("1 299,99").
func firstAmount(text string) string {
	runes := []rune(text)
	var b strings.Builder
	started := false

	for i, r := range runes {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			started = true
		case started && (r == '.' || r == ','):
			b.WriteRune(r)
		case started && unicode.IsSpace(r):
			if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) && i > 0 && unicode.IsDigit(runes[i-1]) {
				continue
			}
			return strings.Trim(b.String(), ".,")
		case started:
			return strings.Trim(b.String(), ".,")
		}
	}
	return strings.Trim(b.String(), ".,")
}

// ParseRating extracts the first decimal from rating text ("4.5 out of 5 stars")
func ParseRating(text string) (float64, bool) {
	m := ratingPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// ParseCount extracts an integer count from text such as "1,234 ratings" or "2.3K reviews"
func ParseCount(text string) (int, bool) {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	number := strings.TrimSpace(m[1])
	switch strings.ToLower(m[2]) {
	case "k", "m":
		v, ok := ParsePrice(number)
		if !ok {
			return 0, false
		}
		mult := 1000.0
		if strings.ToLower(m[2]) == "m" {
			mult = 1000000.0
		}
		return int(math.Round(v * mult)), true
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DetectCurrency guesses an ISO currency code from price text, falling back
// to the platform default
func DetectCurrency(text, fallback string) string {
	upper := strings.ToUpper(text)

	if m := currencyCodePattern.FindStringSubmatch(upper); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}

	switch {
	case strings.Contains(upper, "US$"):
		return "USD"
	case strings.Contains(upper, "CA$"), strings.Contains(upper, "C$"):
		return "CAD"
	case strings.Contains(upper, "AU$"), strings.Contains(upper, "A$"):
		return "AUD"
	case strings.Contains(text, "€"):
		return "EUR"
	case strings.Contains(text, "£"):
		return "GBP"
	case strings.Contains(text, "₹"), strings.Contains(upper, "RS."):
		return "INR"
	case strings.Contains(text, "¥"), strings.Contains(text, "￥"):
		if fallback == "CNY" {
			return "CNY"
		}
		return "JPY"
	case strings.Contains(text, "$"):
		if strings.HasSuffix(fallback, "D") {
			return fallback
		}
		return "USD"
	}

	return fallback
}

// ClassifyAvailability maps visible stock text onto the Availability enum
func ClassifyAvailability(text string) types.Availability {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return types.AvailabilityUnknown
	case strings.Contains(t, "out of stock"), strings.Contains(t, "sold out"),
		strings.Contains(t, "unavailable"), strings.Contains(t, "no longer available"):
		return types.AvailabilityOutOfStock
	case strings.Contains(t, "only"), strings.Contains(t, "left"), strings.Contains(t, "limited"),
		strings.Contains(t, "few"), strings.Contains(t, "pre-order"), strings.Contains(t, "preorder"):
		return types.AvailabilityLimited
	case strings.Contains(t, "in stock"), strings.Contains(t, "add to cart"), strings.Contains(t, "available"),
		strings.Contains(t, "buy now"), strings.Contains(t, "ships"):
		return types.AvailabilityInStock
	default:
		return types.AvailabilityUnknown
	}
}

// SchemaAvailability maps a schema.org ItemAvailability value (full URL or
// short name) onto the Availability enum
func SchemaAvailability(value string) types.Availability {
	v := strings.ToLower(value)
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	switch v {
	case "instock", "onlineonly", "instoreonly", "in_stock":
		return types.AvailabilityInStock
	case "outofstock", "soldout", "discontinued", "out_of_stock":
		return types.AvailabilityOutOfStock
	case "limitedavailability", "preorder", "presale", "backorder", "limited":
		return types.AvailabilityLimited
	default:
		return types.AvailabilityUnknown
	}
}

// ResolveURL turns ref into an absolute http(s) URL relative to base
func ResolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") {
		return ""
	}

	// srcset-style values: keep the first candidate
	if i := strings.IndexAny(ref, " \t\n"); i > 0 {
		ref = ref[:i]
	}

	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// RemoveDuplicates removes duplicate and empty strings, preserving first-seen order
func RemoveDuplicates(values []string) []string {
	seen := make(map[string]bool, len(values))
	var unique []string

	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		unique = append(unique, v)
	}

	return unique
}

// SanitizeText reduces an HTML fragment to plain, single-spaced text
func SanitizeText(fragment string) string {
	text := descriptionPolicy.Sanitize(fragment)
	return collapseSpace(html.UnescapeString(text))
}

// Bound truncates every list field of p to the caps in limits
func Bound(p *types.CanonicalProduct, limits Limits) {
	p.Images = truncate(p.Images, limits.Images)
	p.Videos = truncate(p.Videos, limits.Videos)
	p.Variants = truncate(p.Variants, limits.Variants)
	p.Reviews = truncate(p.Reviews, limits.Reviews)
	for i := range p.Reviews {
		p.Reviews[i].Images = truncate(p.Reviews[i].Images, limits.ReviewImages)
	}
}

func truncate[T any](s []T, max int) []T {
	if max >= 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

// pathID returns a ProductID func reading the first capture group of
// pattern from the URL path
func pathID(pattern *regexp.Regexp) func(*url.URL) string {
	return func(u *url.URL) string {
		if m := pattern.FindStringSubmatch(u.Path); m != nil {
			return m[1]
		}
		return ""
	}
}

// regexpRewrite returns an image rewrite replacing pattern with repl
func regexpRewrite(pattern *regexp.Regexp, repl string) func(string) string {
	return func(s string) string {
		return pattern.ReplaceAllString(s, repl)
	}
}

// stripQuery drops resize parameters carried in the query string
func stripQuery(s string) string {
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}

// optionTypeOf normalizes a variant group label such as "Color:" to "color"
func optionTypeOf(label string) string {
	label = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")))
	if label == "" {
		return "variant"
	}
	return label
}
