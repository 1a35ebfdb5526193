package sector

import (
	"log/slog"
)

// LearnResult describes what Learner.Observe did with a zone.
type LearnResult int

const (
	LearnIgnored LearnResult = iota
	LearnKnown
	LearnVariantAdded
	LearnDiscovered
)

func (r LearnResult) String() string {
	switch r {
	case LearnKnown:
		return "known"
	case LearnVariantAdded:
		return "variant_added"
	case LearnDiscovered:
		return "discovered"
	default:
		return "ignored"
	}
}

// Learner grows the neighborhood map from zones seen during ingestion.
type Learner struct {
	store    *Store
	resolver *Resolver
}

func NewLearner(store *Store, resolver *Resolver) *Learner {
	return &Learner{store: store, resolver: resolver}
}

// Observe classifies a raw zone string. Zones already known are left alone,
// zones resolvable to a category become new variants of that category, and
// the rest are queued for manual curation. Persistence failures are logged and
// do not affect the returned classification.
func (l *Learner) Observe(zone string) LearnResult {
	if Clean(zone) == "" {
		return LearnIgnored
	}

	if l.resolver.IsKnown(zone) {
		if err := l.store.Flush(); err != nil {
			slog.Warn("Neighborhood store flush failed", "error", err)
		}
		return LearnKnown
	}

	if category, ok := l.resolver.ResolveCategory(zone); ok {
		added, err := l.store.AddVariant(category, zone)
		if err != nil {
			slog.Error("Failed to persist learned variant", "zone", zone, "category", category, "error", err)
		} else if added {
			slog.Info("Neighborhood variant learned", "zone", zone, "category", category)
		}
		return LearnVariantAdded
	}

	added, err := l.store.AddDiscovered(zone)
	if err != nil {
		slog.Error("Failed to persist discovered zone", "zone", zone, "error", err)
	} else if added {
		slog.Debug("Unresolved zone recorded", "zone", zone)
	}
	return LearnDiscovered
}

// SyncDiscovered re-processes the discovered zones: those now known are
// dropped, those resolvable are learned, the rest are kept. Only the zones
// resolved here are removed, so zones recorded during the pass survive.
func (l *Learner) SyncDiscovered() (learned int, remaining int, err error) {
	var resolved []string
	for _, zone := range l.store.Discovered() {
		if l.resolver.IsKnown(zone) {
			resolved = append(resolved, zone)
			continue
		}
		if category, ok := l.resolver.ResolveCategory(zone); ok {
			added, err := l.store.AddVariant(category, zone)
			if err != nil {
				return learned, 0, err
			}
			if added {
				learned++
			}
			resolved = append(resolved, zone)
		}
	}

	err = l.store.RemoveDiscovered(resolved)
	return learned, len(l.store.Discovered()), err
}
