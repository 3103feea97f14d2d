package adapters

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is one loaded product or listing page: its URL, the parsed document
// and the raw markup the document was parsed from
type Page struct {
	URL  *url.URL
	Doc  *goquery.Document
	HTML string
}

// NewPage parses html as the page found at rawURL
func NewPage(rawURL, html string) (*Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("page URL must be absolute: %q", rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Page{URL: u, Doc: doc, HTML: html}, nil
}

// RawURL returns the page URL as a string
func (p *Page) RawURL() string {
	return p.URL.String()
}

// Resolve turns an href/src found on the page into an absolute http(s) URL.
// It returns "" for empty, inline (data:) or unparseable references.
func (p *Page) Resolve(ref string) string {
	return ResolveURL(p.URL, ref)
}

// splitSelector separates an optional trailing "@attr" from a CSS selector.
// "meta[itemprop='price']@content" reads the content attribute instead of text.
func splitSelector(s string) (selector, attr string) {
	if i := strings.LastIndex(s, "@"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// valueOf returns the trimmed text (or the attribute, for "@attr" selectors)
// of the first element matching selector within sel
func valueOf(sel *goquery.Selection, selector string) (string, bool) {
	css, attr := splitSelector(selector)

	var found *goquery.Selection
	if css == "" {
		found = sel
	} else {
		found = sel.Find(css)
	}
	if found.Length() == 0 {
		return "", false
	}

	var value string
	found.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if attr != "" {
			value = collapseSpace(s.AttrOr(attr, ""))
		} else {
			value = collapseSpace(s.Text())
		}
		return value == ""
	})

	return value, value != ""
}

// firstValue tries selectors in priority order and returns the first
// non-empty value along with the selector that produced it
func firstValue(sel *goquery.Selection, selectors []string) (value, matched string) {
	for _, selector := range selectors {
		if v, ok := valueOf(sel, selector); ok {
			return v, selector
		}
	}
	return "", ""
}

// allValues collects every non-empty value for every selector, in document
// order per selector and selector order overall
func allValues(sel *goquery.Selection, selectors []string, attrs []string) []string {
	var values []string
	for _, selector := range selectors {
		css, attr := splitSelector(selector)
		sel.Find(css).Each(func(i int, s *goquery.Selection) {
			if attr != "" {
				if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
					values = append(values, v)
				}
				return
			}
			if v := firstAttr(s, attrs); v != "" {
				values = append(values, v)
			}
		})
	}
	return values
}

// firstAttr returns the first non-empty attribute among attrs
func firstAttr(s *goquery.Selection, attrs []string) string {
	for _, attr := range attrs {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
