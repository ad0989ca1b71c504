package analyzer

import (
	"fmt"

	"bilancio/internal/core"
)

// Affordability answers whether a category can absorb a planned expense.
type Affordability struct {
	Category   core.Category   `json:"category"`
	Amount     core.Milliunits `json:"amount"`
	Available  core.Milliunits `json:"available"`
	Remaining  core.Milliunits `json:"remaining"`
	Affordable bool            `json:"affordable"`
	Shortfall  core.Milliunits `json:"shortfall,omitempty"`
	Sources    []CoverSource   `json:"sources,omitempty"`
}

// CheckAffordability tests a planned expense of amount against the
// category's available balance. Unaffordable results carry the shortfall
// and ranked donor categories.
func CheckAffordability(snap *core.Snapshot, categoryID string, amount core.Milliunits) (Affordability, error) {
	if amount <= 0 {
		return Affordability{}, fmt.Errorf("planned expense must be positive, got %s: %w", amount, core.ErrInvalidAmount)
	}
	c, ok := snap.Category(categoryID)
	if !ok {
		return Affordability{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: categoryID}
	}

	result := Affordability{
		Category:   c,
		Amount:     amount,
		Available:  c.Balance,
		Remaining:  c.Balance - amount,
		Affordable: amount <= c.Balance+core.Epsilon,
	}
	if !result.Affordable {
		result.Shortfall = amount - c.Balance
		result.Sources = coverSources(snap, categoryID)
	}
	return result, nil
}
