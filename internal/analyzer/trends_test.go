package analyzer

import (
	"testing"

	"bilancio/internal/core"
)

func trendByID(t *testing.T, trends []Trend, id string) Trend {
	t.Helper()
	for _, tr := range trends {
		if tr.Category.ID == id {
			return tr
		}
	}
	t.Fatalf("no trend for %s in %+v", id, trends)
	return Trend{}
}

func TestDetectTrends(t *testing.T) {
	snap := fixtureSnapshot()

	trends := DetectTrends(snap, fixtureMonth, DefaultTrendConfig())

	// Silent categories are omitted; categories new this month sort
	// ahead of every finite ratio.
	wantOrder := []string{"Hobbies", "Household Goods", "Groceries", "Dining Out", "Rent"}
	if len(trends) != len(wantOrder) {
		t.Fatalf("got %d trends, want %d: %+v", len(trends), len(wantOrder), trends)
	}
	for i, name := range wantOrder {
		if trends[i].Category.Name != name {
			t.Errorf("trends[%d] = %s, want %s", i, trends[i].Category.Name, name)
		}
	}

	groc := trendByID(t, trends, "c-groc")
	if groc.TrailingAverage != 31000 {
		t.Errorf("groceries average = %s, want 31000", groc.TrailingAverage)
	}
	if groc.CurrentSpend != 72000 {
		t.Errorf("groceries current = %s, want 72000 (split line included)", groc.CurrentSpend)
	}
	if !groc.Anomaly || groc.Irregular {
		t.Errorf("groceries flags = anomaly %v irregular %v, want true/false", groc.Anomaly, groc.Irregular)
	}
	wantRatio := 72000.0 / 31000.0
	if diff := groc.Ratio - wantRatio; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("groceries ratio = %v, want %v", groc.Ratio, wantRatio)
	}
	if len(groc.Months) != 4 {
		t.Fatalf("groceries months = %+v, want window plus current", groc.Months)
	}
	if first := groc.Months[0]; first.Month != (core.Month{Year: 2025, Month: 5}) || first.Spend != 28000 {
		t.Errorf("months[0] = %+v, want 2025-05/28000", first)
	}
	if last := groc.Months[3]; last.Month != fixtureMonth || last.Spend != 72000 {
		t.Errorf("months[3] = %+v, want current month", last)
	}
}

func TestDetectTrendsIrregular(t *testing.T) {
	snap := fixtureSnapshot()

	dine := trendByID(t, DetectTrends(snap, fixtureMonth, DefaultTrendConfig()), "c-dine")
	if !dine.Irregular {
		t.Error("dining skipped a month in the window, want irregular")
	}
	if dine.Anomaly {
		t.Errorf("dining ratio %v under the multiplier, want no anomaly", dine.Ratio)
	}
	// 35000 over three months truncates.
	if dine.TrailingAverage != 11666 {
		t.Errorf("dining average = %s, want 11666", dine.TrailingAverage)
	}
}

func TestDetectTrendsNoBaseline(t *testing.T) {
	snap := fixtureSnapshot()

	hobby := trendByID(t, DetectTrends(snap, fixtureMonth, DefaultTrendConfig()), "c-hobby")
	if hobby.TrailingAverage != 0 || hobby.CurrentSpend != 5000 {
		t.Errorf("hobby baseline = %s current = %s", hobby.TrailingAverage, hobby.CurrentSpend)
	}
	if !hobby.Anomaly {
		t.Error("new spending with no baseline must flag as anomaly")
	}
	if hobby.Ratio != 0 {
		t.Errorf("hobby ratio = %v, want 0 so the value stays JSON-encodable", hobby.Ratio)
	}
}

func TestDetectTrendsSteadyCategory(t *testing.T) {
	snap := fixtureSnapshot()

	rent := trendByID(t, DetectTrends(snap, fixtureMonth, DefaultTrendConfig()), "c-rent")
	if rent.Anomaly || rent.Irregular {
		t.Errorf("rent flags = %+v, want none", rent)
	}
	if rent.Ratio != 1.0 {
		t.Errorf("rent ratio = %v, want 1.0", rent.Ratio)
	}
}

func TestDetectTrendsConfig(t *testing.T) {
	snap := fixtureSnapshot()

	trends := DetectTrends(snap, fixtureMonth, TrendConfig{TrailingMonths: 2, AnomalyMultiplier: 3})

	groc := trendByID(t, trends, "c-groc")
	if groc.TrailingAverage != 32500 {
		t.Errorf("two-month average = %s, want 32500", groc.TrailingAverage)
	}
	if groc.Anomaly {
		t.Errorf("ratio %v under multiplier 3, want no anomaly", groc.Ratio)
	}
	if len(groc.Months) != 3 {
		t.Errorf("months = %+v, want two window months plus current", groc.Months)
	}

	// Zero config falls back to the defaults.
	fallback := trendByID(t, DetectTrends(snap, fixtureMonth, TrendConfig{}), "c-groc")
	if fallback.TrailingAverage != 31000 {
		t.Errorf("fallback average = %s, want 31000", fallback.TrailingAverage)
	}
}
