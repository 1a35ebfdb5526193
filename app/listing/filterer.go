package listing

import (
	"strings"

	"github.com/lysyi3m/rent-comb/app/sector"
)

// ZoneObserver receives every location segment that is not a target city.
type ZoneObserver interface {
	Observe(zone string) sector.LearnResult
}

// Filterer is the coarse geography and price gate applied before ingestion.
type Filterer struct {
	maxPrice float64
	cities   []string
	observer ZoneObserver
}

// NewFilterer builds a filter for the given price ceiling and target cities.
// observer may be nil to disable zone discovery.
func NewFilterer(maxPrice float64, targetCities []string, observer ZoneObserver) *Filterer {
	cities := make([]string, 0, len(targetCities))
	seen := make(map[string]bool)
	for _, c := range targetCities {
		w := sector.Words(c)
		if w != "" && !seen[w] {
			seen[w] = true
			cities = append(cities, w)
		}
	}
	return &Filterer{maxPrice: maxPrice, cities: cities, observer: observer}
}

// Accept reports whether a listing belongs in the catalog. Location segments
// are offered to the zone observer regardless of the outcome.
func (f *Filterer) Accept(title, rawLocation string, price *float64) bool {
	f.discover(rawLocation)

	if price != nil && *price > f.maxPrice {
		return false
	}

	if strings.TrimSpace(title) == "" && strings.TrimSpace(rawLocation) == "" {
		return false
	}

	normTitle := sector.Words(title)
	normLocation := sector.Words(rawLocation)
	for _, city := range f.cities {
		if sector.ContainsWords(normTitle, city) || sector.ContainsWords(normLocation, city) {
			return true
		}
	}
	return false
}

func (f *Filterer) discover(rawLocation string) {
	if f.observer == nil || rawLocation == "" {
		return
	}
	for _, part := range strings.Split(rawLocation, ",") {
		part = strings.TrimSpace(part)
		if part == "" || f.isCity(part) {
			continue
		}
		f.observer.Observe(part)
	}
}

func (f *Filterer) isCity(segment string) bool {
	w := sector.Words(segment)
	for _, city := range f.cities {
		if w == city {
			return true
		}
	}
	return false
}
