package scheduler

import (
	"sort"
	"strings"

	"mvault/internal/store"
)

// Policy decides which discovered candidates are worth acquiring.
type Policy struct {
	IncludeKinds []string
	ExcludeKinds []string
	KindKeywords map[string][]string
}

// DefaultKind is assumed when the provider reports no kind and no keyword
// matches the title.
const DefaultKind = "official"

// Classify returns the effective kind for a candidate, inferring one from
// title keywords when the provider reported none.
func (p Policy) Classify(kind, title string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != "" {
		return kind
	}
	lowered := strings.ToLower(title)

	// Deterministic iteration so ambiguous titles classify stably.
	kinds := make([]string, 0, len(p.KindKeywords))
	for k := range p.KindKeywords {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		for _, keyword := range p.KindKeywords[k] {
			if keyword != "" && strings.Contains(lowered, keyword) {
				return k
			}
		}
	}
	return DefaultKind
}

// ForArtist returns the policy with per-artist kind overrides applied. A nil
// override inherits the global setting; a non-nil one replaces it, so an
// empty include list means "everything" and an empty exclude list means
// "nothing excluded" for that artist.
func (p Policy) ForArtist(includeKinds, excludeKinds []string) Policy {
	if includeKinds != nil {
		p.IncludeKinds = includeKinds
	}
	if excludeKinds != nil {
		p.ExcludeKinds = excludeKinds
	}
	return p
}

// Decide maps a candidate's kind and title onto its post-discovery status:
// wanted when policy accepts it, skipped otherwise. The effective kind is
// returned so callers can persist the inference.
func (p Policy) Decide(kind, title string) (store.Status, string) {
	effective := p.Classify(kind, title)
	for _, excluded := range p.ExcludeKinds {
		if effective == excluded {
			return store.StatusSkipped, effective
		}
	}
	if len(p.IncludeKinds) > 0 {
		for _, included := range p.IncludeKinds {
			if effective == included {
				return store.StatusWanted, effective
			}
		}
		return store.StatusSkipped, effective
	}
	return store.StatusWanted, effective
}
