package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// Seed is the JSON shape a store starts from. Entities without IDs get
// one minted. MonthBudgets keys are "2006-01" month strings.
type Seed struct {
	BudgetID     string                                  `json:"budget_id"`
	Accounts     []core.Account                          `json:"accounts,omitempty"`
	Groups       []core.CategoryGroup                    `json:"groups,omitempty"`
	Categories   []core.Category                         `json:"categories,omitempty"`
	Payees       []core.Payee                            `json:"payees,omitempty"`
	Transactions []core.Transaction                      `json:"transactions,omitempty"`
	Scheduled    []core.ScheduledTransaction             `json:"scheduled,omitempty"`
	MonthBudgets map[string]map[string]core.Milliunits   `json:"month_budgets,omitempty"`
}

// New builds a store from a seed. Every seeded entity is stamped at the
// first knowledge tick, so an empty-cursor fetch returns all of it.
func New(seed Seed) (*Store, error) {
	budgetID := seed.BudgetID
	if budgetID == "" {
		budgetID = "default"
	}
	s := &Store{
		budgetID:     budgetID,
		knowledge:    1,
		accounts:     make(map[string]core.Account),
		groups:       make(map[string]core.CategoryGroup),
		categories:   make(map[string]core.Category),
		payees:       make(map[string]core.Payee),
		transactions: make(map[string]core.Transaction),
		scheduled:    make(map[string]core.ScheduledTransaction),
		stamps:       make(map[string]int64),
		monthBudgets: make(map[core.Month]map[string]core.Milliunits),
	}

	for _, a := range seed.Accounts {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		s.accounts[a.ID] = a
		s.stamps[a.ID] = 1
	}
	for _, g := range seed.Groups {
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		s.groups[g.ID] = g
		s.stamps[g.ID] = 1
	}
	for _, c := range seed.Categories {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		s.categories[c.ID] = c
		s.stamps[c.ID] = 1
	}
	for _, p := range seed.Payees {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.payees[p.ID] = p
		s.stamps[p.ID] = 1
	}
	for _, t := range seed.Transactions {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.transactions[t.ID] = t
		s.stamps[t.ID] = 1
	}
	for _, sc := range seed.Scheduled {
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		s.scheduled[sc.ID] = sc
		s.stamps[sc.ID] = 1
	}
	for monthKey, budgets := range seed.MonthBudgets {
		month, err := core.ParseMonth(monthKey)
		if err != nil {
			return nil, fmt.Errorf("seed month %q: %w", monthKey, err)
		}
		mb := make(map[string]core.Milliunits, len(budgets))
		for id, amount := range budgets {
			mb[id] = amount
		}
		s.monthBudgets[month] = mb
	}
	return s, nil
}

// NewFromFile loads a JSON seed file.
func NewFromFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(seed)
}
