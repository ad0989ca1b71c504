// Package memory implements the provider ports in process. It backs the
// memory backend, demo runs and service tests, keeping the same delta
// semantics as the remote API: writes bump a knowledge counter and stamp
// the entities they touch, and Fetch returns everything stamped after the
// requested cursor.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// Store is an in-process budget backend.
type Store struct {
	mu        sync.Mutex
	budgetID  string
	knowledge int64

	accounts     map[string]core.Account
	groups       map[string]core.CategoryGroup
	categories   map[string]core.Category
	payees       map[string]core.Payee
	transactions map[string]core.Transaction
	scheduled    map[string]core.ScheduledTransaction

	// stamps records the knowledge tick that last touched an entity.
	stamps map[string]int64

	// monthBudgets overrides budgeted figures for non-current months.
	monthBudgets map[core.Month]map[string]core.Milliunits
}

// BudgetID returns the budget this store serves.
func (s *Store) BudgetID() string {
	return s.budgetID
}

// Fetch implements the delta protocol. An empty cursor returns the whole
// budget; otherwise only entities written after the cursor come back.
func (s *Store) Fetch(_ context.Context, budgetID, sinceCursor string) (core.Delta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return core.Delta{}, err
	}
	var since int64
	if sinceCursor != "" {
		n, err := strconv.ParseInt(sinceCursor, 10, 64)
		if err != nil {
			return core.Delta{}, fmt.Errorf("bad cursor %q: %w", sinceCursor, err)
		}
		since = n
	}

	d := core.Delta{Cursor: strconv.FormatInt(s.knowledge, 10)}
	for id, v := range s.accounts {
		if s.stamps[id] > since {
			d.Accounts = append(d.Accounts, v)
		}
	}
	for id, v := range s.groups {
		if s.stamps[id] > since {
			d.Groups = append(d.Groups, v)
		}
	}
	for id, v := range s.categories {
		if s.stamps[id] > since {
			d.Categories = append(d.Categories, v)
		}
	}
	for id, v := range s.payees {
		if s.stamps[id] > since {
			d.Payees = append(d.Payees, v)
		}
	}
	for id, v := range s.transactions {
		if s.stamps[id] > since {
			d.Transactions = append(d.Transactions, v)
		}
	}
	for id, v := range s.scheduled {
		if s.stamps[id] > since {
			d.Scheduled = append(d.Scheduled, v)
		}
	}
	return d, nil
}

// CreateTransaction posts a transaction, minting IDs and creating the
// payee by name when it does not exist yet. Current-month category and
// account balances move with the posting.
func (s *Store) CreateTransaction(_ context.Context, budgetID string, tx core.NewTransaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return core.Transaction{}, err
	}
	if _, ok := s.liveAccount(tx.AccountID); !ok {
		return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindAccount, ID: tx.AccountID}
	}
	if tx.CategoryID != "" {
		if _, ok := s.liveCategory(tx.CategoryID); !ok {
			return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: tx.CategoryID}
		}
	}
	for _, split := range tx.Splits {
		if split.CategoryID == "" {
			continue
		}
		if _, ok := s.liveCategory(split.CategoryID); !ok {
			return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: split.CategoryID}
		}
	}

	touched := make([]string, 0, 4)

	payeeID, payeeName := tx.PayeeID, tx.PayeeName
	switch {
	case payeeID != "":
		p, ok := s.payees[payeeID]
		if !ok || p.Deleted {
			return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindPayee, ID: payeeID}
		}
		payeeName = p.Name
	case payeeName != "":
		if p, ok := s.findPayeeByName(payeeName); ok {
			payeeID, payeeName = p.ID, p.Name
		} else {
			p := core.Payee{ID: uuid.NewString(), Name: payeeName}
			s.payees[p.ID] = p
			payeeID = p.ID
			touched = append(touched, p.ID)
		}
	}

	t := core.Transaction{
		ID:         uuid.NewString(),
		Date:       tx.Date,
		Amount:     tx.Amount,
		Memo:       tx.Memo,
		Cleared:    tx.Cleared,
		Approved:   tx.Approved,
		AccountID:  tx.AccountID,
		PayeeID:    payeeID,
		PayeeName:  payeeName,
		CategoryID: tx.CategoryID,
	}
	for _, split := range tx.Splits {
		t.Subtransactions = append(t.Subtransactions, core.Subtransaction{
			ID:         uuid.NewString(),
			Amount:     split.Amount,
			CategoryID: split.CategoryID,
			Memo:       split.Memo,
		})
	}
	if t.IsSplit() {
		t.CategoryID = ""
	}
	s.transactions[t.ID] = t
	touched = append(touched, t.ID)

	acct := s.accounts[t.AccountID]
	acct.Balance += t.Amount
	if t.Cleared {
		acct.ClearedBalance += t.Amount
	}
	s.accounts[acct.ID] = acct
	touched = append(touched, acct.ID)

	if core.MonthOf(time.Now()).Contains(t.Date) {
		if t.IsSplit() {
			for _, sub := range t.Subtransactions {
				touched = append(touched, s.postToCategory(sub.CategoryID, sub.Amount)...)
			}
		} else {
			touched = append(touched, s.postToCategory(t.CategoryID, t.Amount)...)
		}
	}

	s.stamp(touched...)
	return t, nil
}

// UpdateTransaction patches category and memo. Category changes move
// current-month activity between the old and new category.
func (s *Store) UpdateTransaction(_ context.Context, budgetID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return core.Transaction{}, err
	}
	t, ok := s.transactions[id]
	if !ok || t.Deleted {
		return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindTransaction, ID: id}
	}

	touched := []string{id}
	if patch.CategoryID != nil && !t.IsSplit() {
		newCat := *patch.CategoryID
		if newCat != "" {
			if _, ok := s.liveCategory(newCat); !ok {
				return core.Transaction{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: newCat}
			}
		}
		if core.MonthOf(time.Now()).Contains(t.Date) {
			touched = append(touched, s.postToCategory(t.CategoryID, -t.Amount)...)
			touched = append(touched, s.postToCategory(newCat, t.Amount)...)
		}
		t.CategoryID = newCat
	}
	if patch.Memo != nil {
		t.Memo = *patch.Memo
	}
	s.transactions[id] = t
	s.stamp(touched...)
	return t, nil
}

// UpdateMonthCategory sets a category's budgeted figure for a month. The
// current month moves the snapshot figures; other months land in the
// month override table.
func (s *Store) UpdateMonthCategory(_ context.Context, budgetID string, month core.Month, categoryID string, budgeted core.Milliunits) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return err
	}
	c, ok := s.liveCategory(categoryID)
	if !ok {
		return &core.StaleReferenceError{Kind: core.KindCategory, ID: categoryID}
	}

	if month == core.MonthOf(time.Now()) {
		diff := budgeted - c.Budgeted
		c.Budgeted = budgeted
		c.Balance += diff
		s.categories[c.ID] = c
		s.stamp(c.ID)
		return nil
	}

	mb, ok := s.monthBudgets[month]
	if !ok {
		mb = make(map[string]core.Milliunits)
		s.monthBudgets[month] = mb
	}
	mb[categoryID] = budgeted
	return nil
}

// RenamePayee renames the payee and the denormalized name on its
// transactions.
func (s *Store) RenamePayee(_ context.Context, budgetID, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return err
	}
	p, ok := s.payees[id]
	if !ok || p.Deleted {
		return &core.StaleReferenceError{Kind: core.KindPayee, ID: id}
	}

	p.Name = name
	s.payees[id] = p
	touched := []string{id}
	for tid, t := range s.transactions {
		if t.PayeeID == id {
			t.PayeeName = name
			s.transactions[tid] = t
			touched = append(touched, tid)
		}
	}
	s.stamp(touched...)
	return nil
}

// MonthCategories returns per-category figures for the month. Past and
// future months combine the override table with activity recomputed from
// that month's transactions.
func (s *Store) MonthCategories(_ context.Context, budgetID string, month core.Month) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBudget(budgetID); err != nil {
		return nil, err
	}

	current := month == core.MonthOf(time.Now())
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.Deleted {
			continue
		}
		if current {
			out = append(out, c)
			continue
		}
		c.Budgeted = s.monthBudgets[month][c.ID]
		c.Activity = s.monthActivity(month, c.ID)
		c.Balance = c.Budgeted + c.Activity
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) monthActivity(month core.Month, categoryID string) core.Milliunits {
	var net core.Milliunits
	for _, t := range s.transactions {
		if t.Deleted || !month.Contains(t.Date) {
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
	return net
}

// postToCategory moves activity and balance; an empty category is a no-op.
func (s *Store) postToCategory(categoryID string, amount core.Milliunits) []string {
	if categoryID == "" {
		return nil
	}
	c, ok := s.categories[categoryID]
	if !ok {
		return nil
	}
	c.Activity += amount
	c.Balance += amount
	s.categories[categoryID] = c
	return []string{categoryID}
}

func (s *Store) findPayeeByName(name string) (core.Payee, bool) {
	want := core.NormalizeName(name)
	for _, p := range s.payees {
		if !p.Deleted && core.NormalizeName(p.Name) == want {
			return p, true
		}
	}
	return core.Payee{}, false
}

func (s *Store) liveAccount(id string) (core.Account, bool) {
	a, ok := s.accounts[id]
	if !ok || a.Deleted {
		return core.Account{}, false
	}
	return a, true
}

func (s *Store) liveCategory(id string) (core.Category, bool) {
	c, ok := s.categories[id]
	if !ok || c.Deleted {
		return core.Category{}, false
	}
	return c, true
}

func (s *Store) checkBudget(budgetID string) error {
	if budgetID != s.budgetID {
		return fmt.Errorf("budget %s: %w", budgetID, core.ErrNotFound)
	}
	return nil
}

// stamp marks ids as touched by one new knowledge tick.
func (s *Store) stamp(ids ...string) {
	if len(ids) == 0 {
		return
	}
	s.knowledge++
	for _, id := range ids {
		s.stamps[id] = s.knowledge
	}
}
