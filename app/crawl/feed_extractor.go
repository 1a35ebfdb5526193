package crawl

import (
	"bytes"
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/rent-comb/app/listing"
)

var pricePattern = regexp.MustCompile(`\$\s?\d[\d.,]*`)

// FeedExtractor reads portals that publish their results as RSS or Atom.
type FeedExtractor struct {
	gofeedParser   *gofeed.Parser
	source         string
	locationSuffix string
}

func NewFeedExtractor(source, locationSuffix string) *FeedExtractor {
	return &FeedExtractor{
		gofeedParser:   gofeed.NewParser(),
		source:         source,
		locationSuffix: locationSuffix,
	}
}

func (e *FeedExtractor) Extract(data []byte, pageURL string) (Page, error) {
	feed, err := e.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse feed: %w", err)
	}

	base, _ := url.Parse(pageURL)

	var page Page
	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		rec, err := e.normalizeItem(item, base)
		if err != nil {
			page.Failures = append(page.Failures, fmt.Errorf("%w: item %d: %v", ErrExtraction, i, err))
			continue
		}
		page.Records = append(page.Records, rec)
	}

	return page, nil
}

func (e *FeedExtractor) normalizeItem(item *gofeed.Item, base *url.URL) (listing.RawRecord, error) {
	link := resolveURL(base, strings.TrimSpace(item.Link))
	if link == "" {
		return listing.RawRecord{}, fmt.Errorf("no link")
	}

	description := htmlText(cmp.Or(item.Description, item.Content))

	rec := listing.RawRecord{
		CanonicalLink: link,
		Title:         collapseSpace(item.Title),
		Description:   description,
		ExternalID:    item.GUID,
		Source:        e.source,
	}

	location := custom(item, "location")
	if location == "" {
		location = strings.Join(item.Categories, ", ")
	}
	rec.RawLocation = withSuffix(location, e.locationSuffix)

	if v := custom(item, "price"); v != "" {
		rec.Price = parseAmount(v)
	} else if m := pricePattern.FindString(rec.Title + " " + description); m != "" {
		rec.Price = parseAmount(m)
	}
	if v := custom(item, "area"); v != "" {
		rec.Area = parseDecimal(v)
	}
	if v := custom(item, "bedrooms"); v != "" {
		rec.Bedrooms = parseCount(v)
	}
	if v := custom(item, "bathrooms"); v != "" {
		rec.Bathrooms = parseCount(v)
	}

	if item.Image != nil {
		rec.ImageURL = resolveURL(base, item.Image.URL)
	}
	if rec.ImageURL == "" {
		for _, enc := range item.Enclosures {
			if enc != nil && strings.HasPrefix(enc.Type, "image/") {
				rec.ImageURL = resolveURL(base, enc.URL)
				break
			}
		}
	}

	return rec, nil
}

func custom(item *gofeed.Item, key string) string {
	if item.Custom == nil {
		return ""
	}
	return strings.TrimSpace(item.Custom[key])
}

func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}
