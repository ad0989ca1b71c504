package analyzer

import (
	"math"
	"sort"

	"bilancio/internal/core"
)

// Trend defaults: three full months of baseline, anomaly at 1.5x.
const (
	DefaultTrailingMonths    = 3
	DefaultAnomalyMultiplier = 1.5
)

type (
	// TrendConfig holds trend detection tuning.
	TrendConfig struct {
		TrailingMonths    int
		AnomalyMultiplier float64
	}

	// MonthSpend is one month's outflow magnitude for a category.
	MonthSpend struct {
		Month core.Month      `json:"month"`
		Spend core.Milliunits `json:"spend"`
	}

	// Trend compares a category's current month against its trailing
	// baseline. A category with no history but current spending reports
	// Ratio 0 and sorts first; the infinite ratio exists only as a sort
	// key so the struct stays JSON-encodable.
	Trend struct {
		Category        core.Category   `json:"category"`
		GroupName       string          `json:"group_name"`
		CurrentSpend    core.Milliunits `json:"current_spend"`
		TrailingAverage core.Milliunits `json:"trailing_average"`
		Ratio           float64         `json:"ratio"`
		Anomaly         bool            `json:"anomaly"`
		Irregular       bool            `json:"irregular"`
		Months          []MonthSpend    `json:"months"`
	}
)

// DefaultTrendConfig returns the standard trend tuning.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		TrailingMonths:    DefaultTrailingMonths,
		AnomalyMultiplier: DefaultAnomalyMultiplier,
	}
}

// DetectTrends analyzes every active category against the months before
// current. The current partial month never contaminates the baseline.
// Categories silent across the whole window and the current month are
// omitted.
func DetectTrends(snap *core.Snapshot, current core.Month, cfg TrendConfig) []Trend {
	if cfg.TrailingMonths <= 0 {
		cfg.TrailingMonths = DefaultTrailingMonths
	}
	if cfg.AnomalyMultiplier <= 0 {
		cfg.AnomalyMultiplier = DefaultAnomalyMultiplier
	}

	window := make([]core.Month, cfg.TrailingMonths)
	m := current
	for i := cfg.TrailingMonths - 1; i >= 0; i-- {
		m = m.Prev()
		window[i] = m
	}

	var out []Trend
	for _, c := range snap.ActiveCategories(false) {
		months := make([]MonthSpend, 0, len(window)+1)
		var total core.Milliunits
		zeroMonths, activeMonths := 0, 0
		for _, wm := range window {
			spend := snap.SpendIn(wm, c.ID)
			months = append(months, MonthSpend{Month: wm, Spend: spend})
			total += spend
			if spend == 0 {
				zeroMonths++
			} else {
				activeMonths++
			}
		}

		currentSpend := snap.SpendIn(current, c.ID)
		months = append(months, MonthSpend{Month: current, Spend: currentSpend})
		if total == 0 && currentSpend == 0 {
			continue
		}

		average := total / core.Milliunits(len(window))
		t := Trend{
			Category:        c,
			GroupName:       snap.GroupName(c.ID),
			CurrentSpend:    currentSpend,
			TrailingAverage: average,
			Irregular:       zeroMonths > 0 && activeMonths > 0,
			Months:          months,
		}
		switch {
		case average > 0:
			t.Ratio = float64(currentSpend) / float64(average)
			t.Anomaly = float64(currentSpend) > cfg.AnomalyMultiplier*float64(average)
		case currentSpend > 0:
			// Spending with no baseline is always an anomaly.
			t.Anomaly = true
		}
		out = append(out, t)
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := sortRatio(out[i]), sortRatio(out[j])
		if ri != rj {
			return ri > rj
		}
		if out[i].CurrentSpend != out[j].CurrentSpend {
			return out[i].CurrentSpend > out[j].CurrentSpend
		}
		return out[i].Category.Name < out[j].Category.Name
	})
	return out
}

func sortRatio(t Trend) float64 {
	if t.TrailingAverage == 0 && t.CurrentSpend > 0 {
		return math.Inf(1)
	}
	return t.Ratio
}
