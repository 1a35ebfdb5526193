package crawl

import (
	"errors"
	"testing"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Arriendos</title>
  <link>https://inmobiliaria.example.com</link>
  <item>
    <title>Apartamento en Laureles $ 2.100.000</title>
    <link>https://inmobiliaria.example.com/inmueble/77</link>
    <guid>77</guid>
    <category>Laureles</category>
    <category>Medellín</category>
    <description><![CDATA[<p>Apartamento   con balcón</p>]]></description>
    <enclosure url="https://cdn.example.com/77.jpg" length="100" type="image/jpeg"/>
  </item>
  <item>
    <title>Casa sin precio</title>
    <link>/inmueble/78</link>
    <category>Sabaneta</category>
  </item>
  <item>
    <title>Sin enlace</title>
  </item>
</channel>
</rss>`

func TestFeedExtractorExtract(t *testing.T) {
	extractor := NewFeedExtractor("inmobiliaria", "")

	page, err := extractor.Extract([]byte(feedFixture), "https://inmobiliaria.example.com/feed")
	if err != nil {
		t.Fatal(err)
	}

	if len(page.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(page.Records))
	}
	if len(page.Failures) != 1 || !errors.Is(page.Failures[0], ErrExtraction) {
		t.Errorf("Expected 1 extraction failure, got %v", page.Failures)
	}

	first := page.Records[0]
	if first.CanonicalLink != "https://inmobiliaria.example.com/inmueble/77" {
		t.Errorf("Unexpected link %q", first.CanonicalLink)
	}
	if first.RawLocation != "Laureles, Medellín" {
		t.Errorf("Unexpected location %q", first.RawLocation)
	}
	if first.Price == nil || *first.Price != 2100000 {
		t.Errorf("Unexpected price %v", first.Price)
	}
	if first.Description != "Apartamento con balcón" {
		t.Errorf("Unexpected description %q", first.Description)
	}
	if first.ImageURL != "https://cdn.example.com/77.jpg" {
		t.Errorf("Unexpected image %q", first.ImageURL)
	}
	if first.ExternalID != "77" || first.Source != "inmobiliaria" {
		t.Errorf("Unexpected identity %q %q", first.ExternalID, first.Source)
	}

	second := page.Records[1]
	if second.CanonicalLink != "https://inmobiliaria.example.com/inmueble/78" {
		t.Errorf("Expected relative link to be resolved, got %q", second.CanonicalLink)
	}
	if second.Price != nil {
		t.Errorf("Expected unknown price, got %v", *second.Price)
	}
}

func TestFeedExtractorInvalidFeed(t *testing.T) {
	if _, err := NewFeedExtractor("x", "").Extract([]byte("not a feed"), ""); err == nil {
		t.Error("Expected an error for an unparseable feed")
	}
}
