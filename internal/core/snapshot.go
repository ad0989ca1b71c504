package core

import (
	"sort"
	"time"
)

// The provider keeps two bookkeeping groups that never take part in
// resolution, suggestions or analysis. Credit card payment categories
// live in their own well-known group.
const (
	InternalMasterGroup     = "Internal Master Category"
	HiddenGroup             = "Hidden Categories"
	CreditCardPaymentsGroup = "Credit Card Payments"
)

// IsInternalGroup reports whether a group name is provider bookkeeping.
func IsInternalGroup(name string) bool {
	return name == InternalMasterGroup || name == HiddenGroup
}

type (
	// Snapshot is one consistent view of a budget. Published snapshots are
	// immutable; Merge builds the successor on a copy. Deleted entities
	// stay in the maps so later deltas can reference them; the accessors
	// filter them out.
	Snapshot struct {
		BudgetID     string                          `json:"budget_id"`
		Accounts     map[string]Account              `json:"accounts"`
		Groups       map[string]CategoryGroup        `json:"groups"`
		Categories   map[string]Category             `json:"categories"`
		Payees       map[string]Payee                `json:"payees"`
		Transactions map[string]Transaction          `json:"transactions"`
		Scheduled    map[string]ScheduledTransaction `json:"scheduled"`
		Cursor       string                          `json:"cursor"`
		FetchedAt    time.Time                       `json:"fetched_at"`
	}

	// Delta carries the entities changed since a cursor, plus the cursor
	// they bring the snapshot up to. An empty since-cursor fetch carries
	// the whole budget.
	Delta struct {
		Accounts     []Account
		Groups       []CategoryGroup
		Categories   []Category
		Payees       []Payee
		Transactions []Transaction
		Scheduled    []ScheduledTransaction
		Cursor       string
	}
)

// NewSnapshot returns an empty snapshot for budgetID.
func NewSnapshot(budgetID string) *Snapshot {
	return &Snapshot{
		BudgetID:     budgetID,
		Accounts:     make(map[string]Account),
		Groups:       make(map[string]CategoryGroup),
		Categories:   make(map[string]Category),
		Payees:       make(map[string]Payee),
		Transactions: make(map[string]Transaction),
		Scheduled:    make(map[string]ScheduledTransaction),
	}
}

// Merge applies d to a copy of s and returns the copy; s is never touched.
// Delta entities overwrite by ID, everything else carries over, and the
// cursor advances to the delta's cursor.
func (s *Snapshot) Merge(d Delta, at time.Time) *Snapshot {
	next := &Snapshot{
		BudgetID:     s.BudgetID,
		Accounts:     make(map[string]Account, len(s.Accounts)+len(d.Accounts)),
		Groups:       make(map[string]CategoryGroup, len(s.Groups)+len(d.Groups)),
		Categories:   make(map[string]Category, len(s.Categories)+len(d.Categories)),
		Payees:       make(map[string]Payee, len(s.Payees)+len(d.Payees)),
		Transactions: make(map[string]Transaction, len(s.Transactions)+len(d.Transactions)),
		Scheduled:    make(map[string]ScheduledTransaction, len(s.Scheduled)+len(d.Scheduled)),
		Cursor:       d.Cursor,
		FetchedAt:    at,
	}
	for id, v := range s.Accounts {
		next.Accounts[id] = v
	}
	for _, v := range d.Accounts {
		next.Accounts[v.ID] = v
	}
	for id, v := range s.Groups {
		next.Groups[id] = v
	}
	for _, v := range d.Groups {
		next.Groups[v.ID] = v
	}
	for id, v := range s.Categories {
		next.Categories[id] = v
	}
	for _, v := range d.Categories {
		next.Categories[v.ID] = v
	}
	for id, v := range s.Payees {
		next.Payees[id] = v
	}
	for _, v := range d.Payees {
		next.Payees[v.ID] = v
	}
	for id, v := range s.Transactions {
		next.Transactions[id] = v
	}
	for _, v := range d.Transactions {
		next.Transactions[v.ID] = v
	}
	for id, v := range s.Scheduled {
		next.Scheduled[id] = v
	}
	for _, v := range d.Scheduled {
		next.Scheduled[v.ID] = v
	}
	return next
}

// Age returns how old the snapshot is at now.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

func (s *Snapshot) Account(id string) (Account, bool) {
	a, ok := s.Accounts[id]
	if !ok || a.Deleted {
		return Account{}, false
	}
	return a, true
}

func (s *Snapshot) Group(id string) (CategoryGroup, bool) {
	g, ok := s.Groups[id]
	if !ok || g.Deleted {
		return CategoryGroup{}, false
	}
	return g, true
}

func (s *Snapshot) Category(id string) (Category, bool) {
	c, ok := s.Categories[id]
	if !ok || c.Deleted {
		return Category{}, false
	}
	return c, true
}

func (s *Snapshot) Payee(id string) (Payee, bool) {
	p, ok := s.Payees[id]
	if !ok || p.Deleted {
		return Payee{}, false
	}
	return p, true
}

func (s *Snapshot) Transaction(id string) (Transaction, bool) {
	t, ok := s.Transactions[id]
	if !ok || t.Deleted {
		return Transaction{}, false
	}
	return t, true
}

// GroupName returns the name of the category's group, or "" when either
// side is missing.
func (s *Snapshot) GroupName(categoryID string) string {
	c, ok := s.Category(categoryID)
	if !ok {
		return ""
	}
	g, ok := s.Group(c.GroupID)
	if !ok {
		return ""
	}
	return g.Name
}

// categoryVisible reports whether c belongs to a live, non-internal group
// and clears the hidden filter.
func (s *Snapshot) categoryVisible(c Category, includeHidden bool) bool {
	if c.Deleted {
		return false
	}
	g, ok := s.Group(c.GroupID)
	if !ok || IsInternalGroup(g.Name) {
		return false
	}
	if !includeHidden && (c.Hidden || g.Hidden) {
		return false
	}
	return true
}

// ActiveAccounts returns open, non-deleted accounts sorted by name.
func (s *Snapshot) ActiveAccounts() []Account {
	out := make([]Account, 0, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Deleted || a.Closed {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveGroups returns non-deleted, non-internal groups sorted by name.
func (s *Snapshot) ActiveGroups(includeHidden bool) []CategoryGroup {
	out := make([]CategoryGroup, 0, len(s.Groups))
	for _, g := range s.Groups {
		if g.Deleted || IsInternalGroup(g.Name) {
			continue
		}
		if !includeHidden && g.Hidden {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActiveCategories returns categories eligible for resolution and
// analysis, sorted by name.
func (s *Snapshot) ActiveCategories(includeHidden bool) []Category {
	out := make([]Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		if s.categoryVisible(c, includeHidden) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ActivePayees returns non-deleted payees sorted by name.
func (s *Snapshot) ActivePayees() []Payee {
	out := make([]Payee, 0, len(s.Payees))
	for _, p := range s.Payees {
		if p.Deleted {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LastActivity returns the most recent non-deleted transaction date
// touching the entity, or the zero date.
func (s *Snapshot) LastActivity(kind EntityKind, id string) Date {
	var last Date
	for _, t := range s.Transactions {
		if t.Deleted {
			continue
		}
		if !s.transactionTouches(t, kind, id) {
			continue
		}
		if last.IsZero() || t.Date.After(last.Time) {
			last = t.Date
		}
	}
	return last
}

func (s *Snapshot) transactionTouches(t Transaction, kind EntityKind, id string) bool {
	switch kind {
	case KindAccount:
		return t.AccountID == id
	case KindPayee:
		return t.PayeeID == id
	case KindCategory:
		if t.CategoryID == id {
			return true
		}
		for _, sub := range t.Subtransactions {
			if sub.CategoryID == id {
				return true
			}
		}
	}
	return false
}

// TransactionsIn returns the month's non-deleted transactions sorted by
// date descending, then ID.
func (s *Snapshot) TransactionsIn(m Month) []Transaction {
	out := make([]Transaction, 0)
	for _, t := range s.Transactions {
		if t.Deleted || !m.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SpendIn returns the category's outflow magnitude for the month. Split
// lines attribute to their own category; net inflow months report zero.
func (s *Snapshot) SpendIn(m Month, categoryID string) Milliunits {
	var net Milliunits
	for _, t := range s.Transactions {
		if t.Deleted || !m.Contains(t.Date) {
			continue
		}
		if t.IsSplit() {
			for _, sub := range t.Subtransactions {
				if sub.CategoryID == categoryID {
					net += sub.Amount
				}
			}
			continue
		}
		if t.CategoryID == categoryID {
			net += t.Amount
		}
	}
	if net >= 0 {
		return 0
	}
	return -net
}
