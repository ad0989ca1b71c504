// Package core defines the budget domain shared by every other package:
// accounts, category groups, categories, payees, transactions, scheduled
// transactions, and the snapshot/delta model they travel in, plus the
// money and date primitives.
package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	KindAccount     EntityKind = "account"
	KindCategory    EntityKind = "category"
	KindGroup       EntityKind = "category_group"
	KindPayee       EntityKind = "payee"
	KindTransaction EntityKind = "transaction"
	KindScheduled   EntityKind = "scheduled"
)

const (
	AccountTypeChecking     = "checking"
	AccountTypeSavings      = "savings"
	AccountTypeCash         = "cash"
	AccountTypeCreditCard   = "creditCard"
	AccountTypeLineOfCredit = "lineOfCredit"
)

type (
	EntityKind string

	Account struct {
		ID             string     `json:"id"`
		Name           string     `json:"name"`
		Type           string     `json:"type"`
		OnBudget       bool       `json:"on_budget"`
		Closed         bool       `json:"closed"`
		Balance        Milliunits `json:"balance"`
		ClearedBalance Milliunits `json:"cleared_balance"`
		Deleted        bool       `json:"deleted"`
	}

	CategoryGroup struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Hidden  bool   `json:"hidden"`
		Deleted bool   `json:"deleted"`
	}

	// Category carries the current month's budgeted/activity/balance
	// figures. Other months are served by the provider's month view.
	Category struct {
		ID       string     `json:"id"`
		GroupID  string     `json:"group_id"`
		Name     string     `json:"name"`
		Hidden   bool       `json:"hidden"`
		Deleted  bool       `json:"deleted"`
		Budgeted Milliunits `json:"budgeted"`
		Activity Milliunits `json:"activity"`
		Balance  Milliunits `json:"balance"`
	}

	Payee struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		TransferAccountID string `json:"transfer_account_id,omitempty"`
		Deleted           bool   `json:"deleted"`
	}

	Subtransaction struct {
		ID         string     `json:"id"`
		Amount     Milliunits `json:"amount"`
		CategoryID string     `json:"category_id,omitempty"`
		Memo       string     `json:"memo,omitempty"`
	}

	// Transaction with a non-empty Subtransactions slice is a split;
	// spend attribution then follows the sub lines, not the top-level
	// category.
	Transaction struct {
		ID                string           `json:"id"`
		Date              Date             `json:"date"`
		Amount            Milliunits       `json:"amount"`
		Memo              string           `json:"memo,omitempty"`
		Cleared           bool             `json:"cleared"`
		Approved          bool             `json:"approved"`
		AccountID         string           `json:"account_id"`
		PayeeID           string           `json:"payee_id,omitempty"`
		PayeeName         string           `json:"payee_name,omitempty"`
		CategoryID        string           `json:"category_id,omitempty"`
		TransferAccountID string           `json:"transfer_account_id,omitempty"`
		Deleted           bool             `json:"deleted"`
		Subtransactions   []Subtransaction `json:"subtransactions,omitempty"`
	}

	ScheduledTransaction struct {
		ID         string     `json:"id"`
		DateNext   Date       `json:"date_next"`
		Frequency  string     `json:"frequency"`
		Amount     Milliunits `json:"amount"`
		AccountID  string     `json:"account_id"`
		PayeeID    string     `json:"payee_id,omitempty"`
		PayeeName  string     `json:"payee_name,omitempty"`
		CategoryID string     `json:"category_id,omitempty"`
		Deleted    bool       `json:"deleted"`
	}

	// NewTransaction is the write-side shape for creating a transaction.
	NewTransaction struct {
		AccountID  string     `json:"account_id"`
		Date       Date       `json:"date"`
		Amount     Milliunits `json:"amount"`
		PayeeID    string     `json:"payee_id,omitempty"`
		PayeeName  string     `json:"payee_name,omitempty"`
		CategoryID string     `json:"category_id,omitempty"`
		Memo       string     `json:"memo,omitempty"`
		Cleared    bool       `json:"cleared"`
		Approved   bool       `json:"approved"`
		Splits     []NewSplit `json:"splits,omitempty"`
	}

	NewSplit struct {
		Amount     Milliunits `json:"amount"`
		CategoryID string     `json:"category_id"`
		Memo       string     `json:"memo,omitempty"`
	}

	// TransactionPatch updates only the non-nil fields.
	TransactionPatch struct {
		CategoryID *string `json:"category_id,omitempty"`
		Memo       *string `json:"memo,omitempty"`
	}

	// Match is a resolved entity with the confidence of the match.
	Match struct {
		Kind       EntityKind `json:"kind"`
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Confidence float64    `json:"confidence"`
	}
)

func (k EntityKind) IsValid() bool {
	switch k {
	case KindAccount, KindCategory, KindGroup, KindPayee, KindTransaction, KindScheduled:
		return true
	}
	return false
}

func (k EntityKind) String() string {
	return string(k)
}

// IsCredit reports whether the account is a liability card account.
func (a Account) IsCredit() bool {
	return a.Type == AccountTypeCreditCard || a.Type == AccountTypeLineOfCredit
}

func (t Transaction) IsSplit() bool {
	return len(t.Subtransactions) > 0
}

func (t Transaction) IsTransfer() bool {
	return t.TransferAccountID != ""
}

func (t NewTransaction) IsSplit() bool {
	return len(t.Splits) > 0
}

func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return errors.New("account id is required")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date: %w", ErrInvalidDate)
	}
	if t.Amount == 0 {
		return fmt.Errorf("transaction amount cannot be zero: %w", ErrInvalidAmount)
	}
	if len(t.Memo) > 500 {
		return errors.New("memo too long (max 500 characters)")
	}
	if len(t.Splits) == 1 {
		return fmt.Errorf("split transaction needs at least two lines: %w", ErrInvalidAmount)
	}
	if len(t.Splits) > 1 {
		var sum Milliunits
		for _, s := range t.Splits {
			sum += s.Amount
		}
		if !EqualsApprox(sum, t.Amount) {
			return fmt.Errorf("split lines sum to %s, transaction total is %s: %w", sum, t.Amount, ErrInvalidAmount)
		}
	}
	return nil
}

// NormalizeName lowers the case, drops punctuation and collapses whitespace.
// Resolution queries and categorizer rule keys share this form.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
	}
	return b.String()
}
