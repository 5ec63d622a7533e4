// Package catalog shapes published listings for the public homepage.
package catalog

import (
	"strconv"

	"github.com/iliyamo/services-marketplace/internal/model"
)

// Group is the representative listing of a category together with the
// number of published listings (provider profiles) sharing its key.
type Group struct {
	Listing      model.Listing `json:"listing"`
	ProfileCount int           `json:"profile_count"`
}

// Key returns the grouping key of l: its category id, or for listings
// without a category, its normalized legacy name.
func Key(l model.Listing) string {
	if l.CategoryID != nil {
		return "type:" + strconv.FormatUint(*l.CategoryID, 10)
	}
	return "legacy:" + l.LegacyKey()
}

// Dedupe keeps the first listing seen per key, in input order, and
// annotates it with the size of its group. Callers pass listings sorted
// by category name, listing name and id so the representative is stable.
func Dedupe(listings []model.Listing) []Group {
	counts := make(map[string]int, len(listings))
	for _, l := range listings {
		counts[Key(l)]++
	}

	out := make([]Group, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, l := range listings {
		k := Key(l)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, Group{Listing: l, ProfileCount: counts[k]})
	}
	return out
}
