package crawl

import (
	"errors"
	"net/url"
	"testing"
)

const cardsFixture = `<html><body>
<div class="estate_itm">
  <div class="_top"><span>Código 4512</span></div>
  <div class="_estate-link"><a href="/inmueble/4512#fotos">Ver</a></div>
  <h4>Apartamento en arriendo - BELEN PARQUE</h4>
  <div class="loc">Belén Parque</div>
  <div class="price"><p>$ 2.300.000</p></div>
  <div class="size"><small>70,5 m²</small></div>
  <span class="beds">3 alcobas</span>
  <span class="baths">2 baños</span>
  <img src="https://cdn.example.com/4512.jpg">
</div>
<div class="estate_itm">
  <div class="_estate-link"><a href="https://www.example.com/inmueble/4513">Ver</a></div>
  <h4>Casa en Envigado</h4>
  <div class="loc">Zúñiga, Envigado</div>
  <div class="price"><p>Consultar</p></div>
  <img data-src="/img/4513.jpg">
</div>
<div class="estate_itm">
  <h4>Sin enlace</h4>
</div>
</body></html>`

func testSelectors() Selectors {
	return Selectors{
		Card:       ".estate_itm",
		Link:       "._estate-link a",
		Title:      "h4",
		Price:      ".price p",
		Location:   ".loc",
		Area:       ".size small",
		Bedrooms:   ".beds",
		Bathrooms:  ".baths",
		Image:      "img@data-src",
		ExternalID: "._top span",
	}
}

func TestHTMLExtractorExtract(t *testing.T) {
	extractor := NewHTMLExtractor("elcastillo", testSelectors(), "Medellín")

	page, err := extractor.Extract([]byte(cardsFixture), "https://www.example.com/resultados?page=1")
	if err != nil {
		t.Fatal(err)
	}

	if len(page.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(page.Records))
	}
	if len(page.Failures) != 1 || !errors.Is(page.Failures[0], ErrExtraction) {
		t.Fatalf("Expected 1 extraction failure, got %v", page.Failures)
	}

	first := page.Records[0]
	if first.CanonicalLink != "https://www.example.com/inmueble/4512" {
		t.Errorf("Unexpected link %q", first.CanonicalLink)
	}
	if first.Title != "Apartamento en arriendo - BELEN PARQUE" {
		t.Errorf("Unexpected title %q", first.Title)
	}
	if first.RawLocation != "Belén Parque, Medellín" {
		t.Errorf("Expected city suffix to be appended, got %q", first.RawLocation)
	}
	if first.Price == nil || *first.Price != 2300000 {
		t.Errorf("Unexpected price %v", first.Price)
	}
	if first.Area == nil || *first.Area != 70.5 {
		t.Errorf("Unexpected area %v", first.Area)
	}
	if first.Bedrooms == nil || *first.Bedrooms != 3 || first.Bathrooms == nil || *first.Bathrooms != 2 {
		t.Errorf("Unexpected room counts %v %v", first.Bedrooms, first.Bathrooms)
	}
	if first.ExternalID != "Código 4512" {
		t.Errorf("Unexpected external id %q", first.ExternalID)
	}
	if first.ImageURL != "" {
		t.Errorf("Expected no image without data-src, got %q", first.ImageURL)
	}
	if first.Source != "elcastillo" {
		t.Errorf("Unexpected source %q", first.Source)
	}

	second := page.Records[1]
	if second.Price != nil {
		t.Errorf("Expected unknown price for 'Consultar', got %v", *second.Price)
	}
	if second.Area != nil || second.Bedrooms != nil {
		t.Errorf("Expected missing fields to stay unknown")
	}
	if second.RawLocation != "Zúñiga, Envigado, Medellín" {
		t.Errorf("Unexpected location %q", second.RawLocation)
	}
	if second.ImageURL != "https://www.example.com/img/4513.jpg" {
		t.Errorf("Unexpected image %q", second.ImageURL)
	}
}

func TestWithSuffix(t *testing.T) {
	tests := []struct {
		location, suffix, want string
	}{
		{"Laureles", "Medellín", "Laureles, Medellín"},
		{"Laureles, MEDELLIN", "Medellín", "Laureles, MEDELLIN"},
		{"", "Medellín", "Medellín"},
		{"Laureles", "", "Laureles"},
	}

	for _, tt := range tests {
		if got := withSuffix(tt.location, tt.suffix); got != tt.want {
			t.Errorf("withSuffix(%q, %q) = %q, want %q", tt.location, tt.suffix, got, tt.want)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.example.com/arriendo/page/2")

	tests := []struct {
		ref, want string
	}{
		{"/inmueble/1", "https://www.example.com/inmueble/1"},
		{"inmueble/2#top", "https://www.example.com/arriendo/page/inmueble/2"},
		{"javascript:void(0)", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := resolveURL(base, tt.ref); got != tt.want {
			t.Errorf("resolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
