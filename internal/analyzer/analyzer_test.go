package analyzer

import (
	"time"

	"bilancio/internal/core"
)

// Fixture months: analysis runs as of 2025-08-12 with a May..July
// baseline.
var (
	fixtureNow   = time.Date(2025, 8, 12, 15, 4, 5, 0, time.UTC)
	fixtureMonth = core.Month{Year: 2025, Month: 8}
)

func fixtureSnapshot() *core.Snapshot {
	snap := core.NewSnapshot("b1")

	snap.Accounts["a-check"] = core.Account{ID: "a-check", Name: "Checking", Type: core.AccountTypeChecking, OnBudget: true, Balance: 1250000}
	snap.Accounts["a-amex"] = core.Account{ID: "a-amex", Name: "Amex", Type: core.AccountTypeCreditCard, OnBudget: true, Balance: -45000}
	snap.Accounts["a-disc"] = core.Account{ID: "a-disc", Name: "Discover", Type: core.AccountTypeCreditCard, OnBudget: true, Balance: 0}
	snap.Accounts["a-visa"] = core.Account{ID: "a-visa", Name: "Visa", Type: core.AccountTypeCreditCard, OnBudget: true, Balance: -10000}
	snap.Accounts["a-old"] = core.Account{ID: "a-old", Name: "Old Card", Type: core.AccountTypeCreditCard, OnBudget: true, Balance: -777, Closed: true}

	snap.Groups["g1"] = core.CategoryGroup{ID: "g1", Name: "Everyday Expenses"}
	snap.Groups["g2"] = core.CategoryGroup{ID: "g2", Name: core.CreditCardPaymentsGroup}
	snap.Groups["g3"] = core.CategoryGroup{ID: "g3", Name: core.InternalMasterGroup}

	snap.Categories["c-groc"] = core.Category{ID: "c-groc", GroupID: "g1", Name: "Groceries", Budgeted: 60000, Activity: -72000, Balance: -12000}
	snap.Categories["c-rent"] = core.Category{ID: "c-rent", GroupID: "g1", Name: "Rent", Budgeted: 150000, Activity: -150000, Balance: 0}
	snap.Categories["c-dine"] = core.Category{ID: "c-dine", GroupID: "g1", Name: "Dining Out", Budgeted: 30000, Activity: -12500, Balance: 17500}
	snap.Categories["c-house"] = core.Category{ID: "c-house", GroupID: "g1", Name: "Household Goods", Budgeted: 8000, Activity: -3000, Balance: 5000}
	snap.Categories["c-hobby"] = core.Category{ID: "c-hobby", GroupID: "g1", Name: "Hobbies", Budgeted: 5000, Activity: -5000, Balance: 0}
	snap.Categories["c-buffer"] = core.Category{ID: "c-buffer", GroupID: "g1", Name: "Rounding Buffer", Budgeted: 1000, Activity: -995, Balance: 5}
	snap.Categories["c-tight"] = core.Category{ID: "c-tight", GroupID: "g1", Name: "Tight", Budgeted: 1000, Activity: -1005, Balance: -5}
	snap.Categories["c-pay"] = core.Category{ID: "c-pay", GroupID: "g2", Name: "Amex", Budgeted: 40000, Activity: 0, Balance: 40000}
	snap.Categories["c-disc"] = core.Category{ID: "c-disc", GroupID: "g2", Name: "Discover", Balance: 0}
	snap.Categories["c-inflow"] = core.Category{ID: "c-inflow", GroupID: "g3", Name: "Inflow: Ready to Assign", Balance: 999999}
	snap.Categories["c-gift"] = core.Category{ID: "c-gift", GroupID: "g1", Name: "Gifts", Hidden: true, Balance: 7000}

	tx := func(id string, d core.Date, amount core.Milliunits, categoryID string) {
		snap.Transactions[id] = core.Transaction{
			ID: id, Date: d, Amount: amount, AccountID: "a-check", CategoryID: categoryID,
		}
	}

	// May baseline.
	tx("t-may-rent", core.NewDate(2025, 5, 1), -150000, "c-rent")
	tx("t-may-groc", core.NewDate(2025, 5, 6), -28000, "c-groc")
	tx("t-may-dine", core.NewDate(2025, 5, 10), -15000, "c-dine")
	// June baseline: no dining at all.
	tx("t-jun-rent", core.NewDate(2025, 6, 1), -150000, "c-rent")
	tx("t-jun-groc", core.NewDate(2025, 6, 7), -30000, "c-groc")
	// July baseline.
	tx("t-jul-rent", core.NewDate(2025, 7, 1), -150000, "c-rent")
	tx("t-jul-groc", core.NewDate(2025, 7, 8), -35000, "c-groc")
	tx("t-jul-dine", core.NewDate(2025, 7, 12), -20000, "c-dine")
	// August, the month under analysis. Groceries totals 72000.
	tx("t-aug-rent", core.NewDate(2025, 8, 1), -150000, "c-rent")
	tx("t-aug-groc1", core.NewDate(2025, 8, 2), -30000, "c-groc")
	tx("t-aug-dine1", core.NewDate(2025, 8, 5), -7500, "c-dine")
	tx("t-aug-groc2", core.NewDate(2025, 8, 9), -24000, "c-groc")
	tx("t-aug-hobby", core.NewDate(2025, 8, 10), -5000, "c-hobby")
	tx("t-aug-dine2", core.NewDate(2025, 8, 11), -5000, "c-dine")
	tx("t-aug-groc3", core.NewDate(2025, 8, 12), -12000, "c-groc")
	snap.Transactions["t-aug-split"] = core.Transaction{
		ID: "t-aug-split", Date: core.NewDate(2025, 8, 5), Amount: -9000, AccountID: "a-check",
		Subtransactions: []core.Subtransaction{
			{ID: "s1", Amount: -6000, CategoryID: "c-groc"},
			{ID: "s2", Amount: -3000, CategoryID: "c-house"},
		},
	}

	return snap
}
