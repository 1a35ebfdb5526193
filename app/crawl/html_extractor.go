package crawl

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/rent-comb/app/listing"
	"github.com/lysyi3m/rent-comb/app/sector"
)

// HTMLExtractor reads result cards with CSS selectors. A selector may end in
// "@attr" to read an attribute instead of text; an empty selector part means
// the card element itself.
type HTMLExtractor struct {
	source         string
	selectors      Selectors
	locationSuffix string
}

func NewHTMLExtractor(source string, selectors Selectors, locationSuffix string) *HTMLExtractor {
	return &HTMLExtractor{
		source:         source,
		selectors:      selectors,
		locationSuffix: locationSuffix,
	}
}

func (e *HTMLExtractor) Extract(data []byte, pageURL string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)

	var page Page
	doc.Find(e.selectors.Card).Each(func(i int, card *goquery.Selection) {
		rec, err := e.extractCard(card, base)
		if err != nil {
			page.Failures = append(page.Failures, fmt.Errorf("%w: card %d: %v", ErrExtraction, i, err))
			return
		}
		page.Records = append(page.Records, rec)
	})

	return page, nil
}

func (e *HTMLExtractor) extractCard(card *goquery.Selection, base *url.URL) (listing.RawRecord, error) {
	link := resolveURL(base, selectValue(card, e.selectors.Link, "href"))
	if link == "" {
		return listing.RawRecord{}, fmt.Errorf("no link")
	}

	rec := listing.RawRecord{
		CanonicalLink: link,
		Title:         selectValue(card, e.selectors.Title, ""),
		RawLocation:   withSuffix(selectValue(card, e.selectors.Location, ""), e.locationSuffix),
		Description:   selectValue(card, e.selectors.Description, ""),
		ExternalID:    selectValue(card, e.selectors.ExternalID, ""),
		ImageURL:      resolveURL(base, selectValue(card, e.selectors.Image, "src")),
		Source:        e.source,
	}

	if e.selectors.Price != "" {
		rec.Price = parseAmount(selectValue(card, e.selectors.Price, ""))
	}
	if e.selectors.Area != "" {
		rec.Area = parseDecimal(selectValue(card, e.selectors.Area, ""))
	}
	if e.selectors.Bedrooms != "" {
		rec.Bedrooms = parseCount(selectValue(card, e.selectors.Bedrooms, ""))
	}
	if e.selectors.Bathrooms != "" {
		rec.Bathrooms = parseCount(selectValue(card, e.selectors.Bathrooms, ""))
	}

	return rec, nil
}

func splitSelector(selector string) (string, string) {
	if i := strings.LastIndex(selector, "@"); i >= 0 {
		return strings.TrimSpace(selector[:i]), strings.TrimSpace(selector[i+1:])
	}
	return strings.TrimSpace(selector), ""
}

func selectValue(card *goquery.Selection, selector, defaultAttr string) string {
	if selector == "" {
		return ""
	}

	sel, attr := splitSelector(selector)
	if attr == "" {
		attr = defaultAttr
	}

	target := card
	if sel != "" {
		target = card.Find(sel).First()
	}
	if target.Length() == 0 {
		return ""
	}

	if attr != "" {
		v, _ := target.Attr(attr)
		return strings.TrimSpace(v)
	}
	return collapseSpace(target.Text())
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// withSuffix appends the portal's city to locations that do not name it, so
// the coarse city filter can match listings from single-city portals.
func withSuffix(location, suffix string) string {
	if suffix == "" {
		return location
	}
	if location == "" {
		return suffix
	}
	if sector.ContainsWords(sector.Words(location), sector.Words(suffix)) {
		return location
	}
	return location + ", " + suffix
}
