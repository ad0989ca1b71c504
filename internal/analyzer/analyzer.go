// Package analyzer derives budget insights from one snapshot:
// overspending with cover plans, spending trends, run-rate forecasts,
// credit card payment coverage and affordability checks. Every function
// is pure; deleted, hidden and bookkeeping categories are excluded
// throughout.
package analyzer

import (
	"sort"

	"bilancio/internal/core"
)

// CoverSource is a category with money available to donate to a deficit.
type CoverSource struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Available  core.Milliunits `json:"available"`
}

// coverSources lists donor categories largest-first, excluding excludeID.
func coverSources(snap *core.Snapshot, excludeID string) []CoverSource {
	var out []CoverSource
	for _, c := range snap.ActiveCategories(false) {
		if c.ID == excludeID || c.Balance <= 0 {
			continue
		}
		out = append(out, CoverSource{CategoryID: c.ID, Name: c.Name, Available: c.Balance})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Available != out[j].Available {
			return out[i].Available > out[j].Available
		}
		return out[i].Name < out[j].Name
	})
	return out
}
