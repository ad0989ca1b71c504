package analyzer

import (
	"sort"
	"time"

	"bilancio/internal/core"
)

// Forecast projects a category's end-of-month spend from its run rate.
type Forecast struct {
	Category         core.Category   `json:"category"`
	Month            core.Month      `json:"month"`
	Budgeted         core.Milliunits `json:"budgeted"`
	Spent            core.Milliunits `json:"spent"`
	Projected        core.Milliunits `json:"projected"`
	DaysElapsed      int             `json:"days_elapsed"`
	DaysInMonth      int             `json:"days_in_month"`
	WillStayInBudget bool            `json:"will_stay_in_budget"`
}

// ForecastCategory projects one category for month as of now.
func ForecastCategory(snap *core.Snapshot, categoryID string, month core.Month, now time.Time) (Forecast, error) {
	c, ok := snap.Category(categoryID)
	if !ok {
		return Forecast{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: categoryID}
	}
	return forecastFor(snap, c, month, now), nil
}

// ForecastMonth projects every active category with spend or budget,
// worst projected overage first.
func ForecastMonth(snap *core.Snapshot, month core.Month, now time.Time) []Forecast {
	var out []Forecast
	for _, c := range snap.ActiveCategories(false) {
		f := forecastFor(snap, c, month, now)
		if f.Spent == 0 && f.Budgeted == 0 {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		oi := out[i].Projected - out[i].Budgeted
		oj := out[j].Projected - out[j].Budgeted
		if oi != oj {
			return oi > oj
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out
}

// forecastFor does the run-rate math. Elapsed days include today; a past
// month projects its own actuals and a future month projects zero.
func forecastFor(snap *core.Snapshot, c core.Category, month core.Month, now time.Time) Forecast {
	spent := snap.SpendIn(month, c.ID)
	days := month.Days()

	var elapsed int
	nowMonth := core.MonthOf(now)
	switch {
	case month == nowMonth:
		elapsed = now.Day()
	case month.Before(nowMonth):
		elapsed = days
	}

	var projected core.Milliunits
	if elapsed > 0 {
		projected = spent * core.Milliunits(days) / core.Milliunits(elapsed)
	}

	return Forecast{
		Category:         c,
		Month:            month,
		Budgeted:         c.Budgeted,
		Spent:            spent,
		Projected:        projected,
		DaysElapsed:      elapsed,
		DaysInMonth:      days,
		WillStayInBudget: projected <= c.Budgeted+core.Epsilon,
	}
}
