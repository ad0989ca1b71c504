package memory

import (
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// DemoBudgetID is the budget served by NewDemoStore.
const DemoBudgetID = "demo"

// NewDemoStore seeds a realistic single-budget store: a checking account
// and a credit card, three months of history, one overspent category, an
// irregular one, an uncategorized purchase and upcoming scheduled bills.
func NewDemoStore() *Store {
	now := time.Now()
	cur := core.MonthOf(now)
	m1, m2 := cur.Prev(), cur.Prev().Prev()
	m3 := m2.Prev()

	// Transactions never postdate today.
	day := func(d int) core.Date {
		if d > now.Day() {
			d = now.Day()
		}
		return core.NewDate(cur.Year, cur.Month, d)
	}
	past := func(m core.Month, d int) core.Date {
		return core.NewDate(m.Year, m.Month, d)
	}

	checking := core.Account{ID: uuid.NewString(), Name: "Checking", Type: core.AccountTypeChecking, OnBudget: true, Balance: 1250000, ClearedBalance: 1180000}
	amex := core.Account{ID: uuid.NewString(), Name: "Amex", Type: core.AccountTypeCreditCard, OnBudget: true, Balance: -45000, ClearedBalance: -45000}

	obligations := core.CategoryGroup{ID: uuid.NewString(), Name: "Immediate Obligations"}
	everyday := core.CategoryGroup{ID: uuid.NewString(), Name: "Everyday Expenses"}
	quality := core.CategoryGroup{ID: uuid.NewString(), Name: "Quality of Life"}
	ccPayments := core.CategoryGroup{ID: uuid.NewString(), Name: "Credit Card Payments"}
	internal := core.CategoryGroup{ID: uuid.NewString(), Name: core.InternalMasterGroup}

	rent := core.Category{ID: uuid.NewString(), GroupID: obligations.ID, Name: "Rent", Budgeted: 150000, Activity: -150000, Balance: 0}
	utilities := core.Category{ID: uuid.NewString(), GroupID: obligations.ID, Name: "Utilities", Budgeted: 20000, Activity: -18000, Balance: 2000}
	groceries := core.Category{ID: uuid.NewString(), GroupID: everyday.ID, Name: "Groceries", Budgeted: 60000, Activity: -72000, Balance: -12000}
	dining := core.Category{ID: uuid.NewString(), GroupID: everyday.ID, Name: "Dining Out", Budgeted: 30000, Activity: -12500, Balance: 17500}
	household := core.Category{ID: uuid.NewString(), GroupID: everyday.ID, Name: "Household Goods", Budgeted: 8000, Activity: -3000, Balance: 5000}
	entertainment := core.Category{ID: uuid.NewString(), GroupID: quality.ID, Name: "Entertainment", Budgeted: 15000, Activity: -5000, Balance: 10000}
	subscriptions := core.Category{ID: uuid.NewString(), GroupID: quality.ID, Name: "Subscriptions", Budgeted: 10000, Activity: -9990, Balance: 10}
	amexPayment := core.Category{ID: uuid.NewString(), GroupID: ccPayments.ID, Name: "Amex", Budgeted: 40000, Activity: 0, Balance: 40000}
	inflow := core.Category{ID: uuid.NewString(), GroupID: internal.ID, Name: "Inflow: Ready to Assign"}

	heb := core.Payee{ID: uuid.NewString(), Name: "HEB"}
	landlord := core.Payee{ID: uuid.NewString(), Name: "Landlord"}
	netflix := core.Payee{ID: uuid.NewString(), Name: "Netflix"}
	netWorth := core.Payee{ID: uuid.NewString(), Name: "Net Worth Tracker"}
	amazon := core.Payee{ID: uuid.NewString(), Name: "Amazon"}
	cafeRio := core.Payee{ID: uuid.NewString(), Name: "Cafe Rio"}
	chipotle := core.Payee{ID: uuid.NewString(), Name: "Chipotle"}
	cityPower := core.Payee{ID: uuid.NewString(), Name: "City Power"}
	cinema := core.Payee{ID: uuid.NewString(), Name: "Alamo Drafthouse"}
	employer := core.Payee{ID: uuid.NewString(), Name: "Employer"}

	tx := func(d core.Date, amount core.Milliunits, account core.Account, payee core.Payee, category string, memo string) core.Transaction {
		return core.Transaction{
			ID: uuid.NewString(), Date: d, Amount: amount, Memo: memo, Cleared: true, Approved: true,
			AccountID: account.ID, PayeeID: payee.ID, PayeeName: payee.Name, CategoryID: category,
		}
	}

	transactions := []core.Transaction{
		// Current month. Groceries sums to the category's -72000.
		tx(day(1), -150000, checking, landlord, rent.ID, "rent"),
		tx(day(1), 3000000, checking, employer, inflow.ID, "salary"),
		tx(day(2), -30000, checking, heb, groceries.ID, ""),
		tx(day(3), -9990, amex, netflix, subscriptions.ID, ""),
		tx(day(5), -7500, checking, cafeRio, dining.ID, ""),
		tx(day(7), -18000, checking, cityPower, utilities.ID, ""),
		tx(day(9), -24000, checking, heb, groceries.ID, ""),
		tx(day(10), -5000, checking, cinema, entertainment.ID, "matinee"),
		tx(day(11), -5000, checking, chipotle, dining.ID, ""),
		tx(day(12), -12000, checking, heb, groceries.ID, ""),
		{
			ID: uuid.NewString(), Date: day(14), Amount: -9000, Cleared: true, Approved: true,
			AccountID: checking.ID, PayeeID: heb.ID, PayeeName: heb.Name,
			Subtransactions: []core.Subtransaction{
				{ID: uuid.NewString(), Amount: -6000, CategoryID: groceries.ID},
				{ID: uuid.NewString(), Amount: -3000, CategoryID: household.ID, Memo: "paper towels"},
			},
		},
		tx(day(13), -15990, amex, amazon, "", "needs a category"),

		// Last month.
		tx(past(m1, 1), -150000, checking, landlord, rent.ID, ""),
		tx(past(m1, 4), -35000, checking, heb, groceries.ID, ""),
		tx(past(m1, 3), -9990, amex, netflix, subscriptions.ID, ""),
		tx(past(m1, 9), -17500, checking, cityPower, utilities.ID, ""),
		tx(past(m1, 16), -30000, checking, heb, groceries.ID, ""),
		tx(past(m1, 20), -20000, checking, cafeRio, dining.ID, ""),

		// Two months back. No dining spend at all.
		tx(past(m2, 1), -150000, checking, landlord, rent.ID, ""),
		tx(past(m2, 3), -9990, amex, netflix, subscriptions.ID, ""),
		tx(past(m2, 7), -28000, checking, heb, groceries.ID, ""),
		tx(past(m2, 11), -19000, checking, cityPower, utilities.ID, ""),
		tx(past(m2, 21), -30000, checking, heb, groceries.ID, ""),

		// Three months back.
		tx(past(m3, 1), -150000, checking, landlord, rent.ID, ""),
		tx(past(m3, 3), -9990, amex, netflix, subscriptions.ID, ""),
		tx(past(m3, 6), -33000, checking, heb, groceries.ID, ""),
		tx(past(m3, 13), -16500, checking, cityPower, utilities.ID, ""),
		tx(past(m3, 18), -28000, checking, heb, groceries.ID, ""),
		tx(past(m3, 25), -15000, checking, chipotle, dining.ID, ""),
	}

	next := cur.Next()
	scheduled := []core.ScheduledTransaction{
		{ID: uuid.NewString(), DateNext: core.NewDate(next.Year, next.Month, 1), Frequency: "monthly", Amount: -150000,
			AccountID: checking.ID, PayeeID: landlord.ID, PayeeName: landlord.Name, CategoryID: rent.ID},
		{ID: uuid.NewString(), DateNext: core.NewDate(next.Year, next.Month, 3), Frequency: "monthly", Amount: -9990,
			AccountID: amex.ID, PayeeID: netflix.ID, PayeeName: netflix.Name, CategoryID: subscriptions.ID},
	}

	store, err := New(Seed{
		BudgetID:     DemoBudgetID,
		Accounts:     []core.Account{checking, amex},
		Groups:       []core.CategoryGroup{obligations, everyday, quality, ccPayments, internal},
		Categories:   []core.Category{rent, utilities, groceries, dining, household, entertainment, subscriptions, amexPayment, inflow},
		Payees:       []core.Payee{heb, landlord, netflix, netWorth, amazon, cafeRio, chipotle, cityPower, cinema, employer},
		Transactions: transactions,
		Scheduled:    scheduled,
	})
	if err != nil {
		// The demo seed is static; a failure here is a programming error.
		panic(err)
	}
	return store
}
