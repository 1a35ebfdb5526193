package sector

import (
	"sort"
)

// minVariantLength is the shortest cleaned variant considered for containment
// matching.
const minVariantLength = 4

// StopWords are generic articles and directionals that never match on their own.
var StopWords = map[string]bool{
	"la": true, "las": true, "el": true, "los": true, "de": true, "del": true,
	"san": true, "santa": true, "norte": true, "sur": true, "este": true,
	"oeste": true, "oriente": true, "occidente": true, "centro": true,
	"alto": true, "alta": true, "bajo": true, "parte": true, "via": true,
}

type MapSource interface {
	Snapshot() Map
}

// Resolver classifies free-text locations against the current map.
type Resolver struct {
	source MapSource
}

func NewResolver(source MapSource) *Resolver {
	return &Resolver{source: source}
}

// IsKnown reports whether raw exactly equals, after cleaning, any variant.
func (r *Resolver) IsKnown(raw string) bool {
	cleaned := Clean(raw)
	if cleaned == "" {
		return false
	}
	for _, c := range r.source.Snapshot().Categories {
		for _, v := range c.Variants {
			if Clean(v) == cleaned {
				return true
			}
		}
	}
	return false
}

// ResolveCategory returns the first category, in map order, with a variant
// contained in raw or containing it. ok is false when nothing matches.
func (r *Resolver) ResolveCategory(raw string) (string, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", false
	}
	for _, c := range r.source.Snapshot().Categories {
		for _, v := range c.Variants {
			if matches(cleaned, Clean(v)) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// ResolveDisplayVariant returns the most specific variant matching raw across
// all categories. Longer variants are tried first so "Prado Verde" wins over
// "Prado".
func (r *Resolver) ResolveDisplayVariant(raw string) (string, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", false
	}

	type candidate struct {
		variant string
		cleaned string
	}

	var candidates []candidate
	seen := make(map[string]bool)
	for _, c := range r.source.Snapshot().Categories {
		for _, v := range c.Variants {
			if seen[v] {
				continue
			}
			seen[v] = true
			candidates = append(candidates, candidate{variant: v, cleaned: Clean(v)})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].cleaned) > len(candidates[j].cleaned)
	})

	for _, cand := range candidates {
		if matches(cleaned, cand.cleaned) {
			return cand.variant, true
		}
	}
	return "", false
}

// Sector resolves a listing's category from its location, falling back to the
// title, then to Unclassified.
func (r *Resolver) Sector(location, title string) string {
	if category, ok := r.ResolveCategory(location); ok {
		return category
	}
	if category, ok := r.ResolveCategory(title); ok {
		return category
	}
	return Unclassified
}

// matches tests whole-word containment in both directions. Short or generic
// terms on either side are ignored.
func matches(input, variant string) bool {
	if !eligible(variant) {
		return false
	}
	if ContainsWords(input, variant) {
		return true
	}
	return eligible(input) && ContainsWords(variant, input)
}

func eligible(term string) bool {
	return len(term) >= minVariantLength && !StopWords[term]
}
