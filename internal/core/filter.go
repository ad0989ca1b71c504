package core

import (
	"sort"
	"strings"
)

// TransactionFilter selects transactions; every set field must match.
// Amount bounds compare absolute magnitude so "charges over 50" works for
// outflows and inflows alike.
type TransactionFilter struct {
	AccountID     string     `json:"account_id,omitempty"`
	CategoryID    string     `json:"category_id,omitempty"`
	PayeeID       string     `json:"payee_id,omitempty"`
	PayeeContains string     `json:"payee_contains,omitempty"`
	MemoContains  string     `json:"memo_contains,omitempty"`
	MinAmount     Milliunits `json:"min_amount,omitempty"`
	MaxAmount     Milliunits `json:"max_amount,omitempty"`
	Since         Date       `json:"since,omitempty"`
	Until         Date       `json:"until,omitempty"`
	Uncategorized bool       `json:"uncategorized,omitempty"`
}

// Matches reports whether t passes the filter. Deleted transactions never
// match. Category matching follows split lines.
func (f TransactionFilter) Matches(t Transaction) bool {
	if t.Deleted {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.PayeeID != "" && t.PayeeID != f.PayeeID {
		return false
	}
	if f.CategoryID != "" && !hasCategory(t, f.CategoryID) {
		return false
	}
	if f.PayeeContains != "" && !strings.Contains(NormalizeName(t.PayeeName), NormalizeName(f.PayeeContains)) {
		return false
	}
	if f.MemoContains != "" && !strings.Contains(strings.ToLower(t.Memo), strings.ToLower(f.MemoContains)) {
		return false
	}
	if f.MinAmount > 0 && t.Amount.Abs() < f.MinAmount {
		return false
	}
	if f.MaxAmount > 0 && t.Amount.Abs() > f.MaxAmount {
		return false
	}
	if !f.Since.IsZero() && t.Date.Before(f.Since.Time) {
		return false
	}
	if !f.Until.IsZero() && t.Date.After(f.Until.Time) {
		return false
	}
	if f.Uncategorized && !IsUncategorized(t) {
		return false
	}
	return true
}

// IsUncategorized reports whether t needs a category: not a split, not a
// transfer, and no category set.
func IsUncategorized(t Transaction) bool {
	return t.CategoryID == "" && !t.IsSplit() && !t.IsTransfer()
}

func hasCategory(t Transaction, categoryID string) bool {
	if t.CategoryID == categoryID {
		return true
	}
	for _, sub := range t.Subtransactions {
		if sub.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// FilterTransactions returns the snapshot's matches sorted by date
// descending, then ID.
func FilterTransactions(s *Snapshot, f TransactionFilter) []Transaction {
	out := make([]Transaction, 0)
	for _, t := range s.Transactions {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
