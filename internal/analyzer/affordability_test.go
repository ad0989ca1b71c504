package analyzer

import (
	"errors"
	"testing"

	"bilancio/internal/core"
)

func TestCheckAffordability(t *testing.T) {
	snap := fixtureSnapshot()

	got, err := CheckAffordability(snap, "c-dine", 10000)
	if err != nil {
		t.Fatalf("CheckAffordability: %v", err)
	}
	if !got.Affordable {
		t.Error("10000 against 17500 available, want affordable")
	}
	if got.Available != 17500 || got.Remaining != 7500 {
		t.Errorf("available %s remaining %s, want 17500/7500", got.Available, got.Remaining)
	}
	if got.Shortfall != 0 || got.Sources != nil {
		t.Errorf("affordable result carries shortfall data: %+v", got)
	}
}

func TestCheckAffordabilityEpsilonBoundary(t *testing.T) {
	snap := fixtureSnapshot()

	// Epsilon past the balance still passes; one more does not.
	got, err := CheckAffordability(snap, "c-dine", 17505)
	if err != nil {
		t.Fatalf("CheckAffordability: %v", err)
	}
	if !got.Affordable {
		t.Errorf("amount within epsilon of balance, want affordable: %+v", got)
	}

	got, err = CheckAffordability(snap, "c-dine", 17506)
	if err != nil {
		t.Fatalf("CheckAffordability: %v", err)
	}
	if got.Affordable {
		t.Errorf("amount past epsilon, want unaffordable: %+v", got)
	}
	if got.Shortfall != 6 || got.Remaining != -6 {
		t.Errorf("shortfall %s remaining %s, want 6/-6", got.Shortfall, got.Remaining)
	}
	if len(got.Sources) != 3 || got.Sources[0].CategoryID != "c-pay" {
		t.Errorf("sources = %+v, want donors ranked largest-first without c-dine", got.Sources)
	}
}

func TestCheckAffordabilityRejectsNonPositive(t *testing.T) {
	snap := fixtureSnapshot()

	for _, amount := range []core.Milliunits{0, -5000} {
		if _, err := CheckAffordability(snap, "c-dine", amount); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("amount %s: err = %v, want ErrInvalidAmount", amount, err)
		}
	}
}

func TestCheckAffordabilityUnknownCategory(t *testing.T) {
	snap := fixtureSnapshot()

	_, err := CheckAffordability(snap, "c-gone", 1000)
	var stale *core.StaleReferenceError
	if !errors.As(err, &stale) {
		t.Fatalf("err = %v, want StaleReferenceError", err)
	}
}
