package analyzer

import (
	"sort"

	"bilancio/internal/core"
)

type (
	// Overspend is a category spent beyond its budget.
	Overspend struct {
		Category  core.Category   `json:"category"`
		GroupName string          `json:"group_name"`
		Deficit   core.Milliunits `json:"deficit"`
		Sources   []CoverSource   `json:"sources,omitempty"`
	}

	// CoverPlan pays one category's deficit from the largest donors first.
	CoverPlan struct {
		CategoryID string          `json:"category_id"`
		Deficit    core.Milliunits `json:"deficit"`
		Moves      []PlannedMove   `json:"moves"`
		Covered    core.Milliunits `json:"covered"`
		Shortfall  core.Milliunits `json:"shortfall"`
	}

	// PlannedMove takes Amount from one donor category.
	PlannedMove struct {
		FromCategoryID string          `json:"from_category_id"`
		FromName       string          `json:"from_name"`
		Amount         core.Milliunits `json:"amount"`
	}
)

// DetectOverspending returns the categories whose balance sits below
// -Epsilon, most overspent first. The deficit is exact: epsilon only
// guards the flagging, never the amount.
func DetectOverspending(snap *core.Snapshot) []Overspend {
	var out []Overspend
	for _, c := range snap.ActiveCategories(false) {
		if c.Balance >= -core.Epsilon {
			continue
		}
		out = append(out, Overspend{
			Category:  c,
			GroupName: snap.GroupName(c.ID),
			Deficit:   -c.Balance,
			Sources:   coverSources(snap, c.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Deficit != out[j].Deficit {
			return out[i].Deficit > out[j].Deficit
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out
}

// PlanCover builds a greedy plan covering categoryID's deficit. A healthy
// category yields a plan with no moves.
func PlanCover(snap *core.Snapshot, categoryID string) (CoverPlan, error) {
	c, ok := snap.Category(categoryID)
	if !ok {
		return CoverPlan{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: categoryID}
	}

	plan := CoverPlan{CategoryID: categoryID}
	if c.Balance >= -core.Epsilon {
		return plan, nil
	}
	plan.Deficit = -c.Balance

	remaining := plan.Deficit
	for _, src := range coverSources(snap, categoryID) {
		if remaining <= 0 {
			break
		}
		amount := src.Available
		if amount > remaining {
			amount = remaining
		}
		plan.Moves = append(plan.Moves, PlannedMove{
			FromCategoryID: src.CategoryID,
			FromName:       src.Name,
			Amount:         amount,
		})
		remaining -= amount
	}
	plan.Covered = plan.Deficit - remaining
	plan.Shortfall = remaining
	return plan, nil
}
