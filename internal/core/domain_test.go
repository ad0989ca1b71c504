package core

import (
	"errors"
	"testing"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Amazon", "amazon"},
		{"AMAZON", "amazon"},
		{" Amazon  ", "amazon"},
		{"HEB #42", "heb 42"},
		{"Trader Joe's", "trader joes"},
		{"NETFLIX.COM", "netflixcom"},
		{"  spaced   out  words ", "spaced out words"},
		{"", ""},
		{"!!!", ""},
	}
	for i, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("case %d: NormalizeName(%q) = %q, want %q", i, tc.in, got, tc.want)
		}
	}
}

func TestEntityKindIsValid(t *testing.T) {
	for _, k := range []EntityKind{KindAccount, KindCategory, KindGroup, KindPayee, KindTransaction, KindScheduled} {
		if !k.IsValid() {
			t.Fatalf("expected %s to be valid", k)
		}
	}
	if EntityKind("budget").IsValid() {
		t.Fatalf("expected unknown kind to be invalid")
	}
}

func TestNewTransactionValidate(t *testing.T) {
	good := NewTransaction{
		AccountID: "a1",
		Date:      NewDate(2025, 8, 12),
		Amount:    -10000,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	split := good
	split.Splits = []NewSplit{
		{Amount: -6000, CategoryID: "c1"},
		{Amount: -4000, CategoryID: "c2"},
	}
	if err := split.Validate(); err != nil {
		t.Fatalf("expected split ok, got %v", err)
	}

	nearSplit := good
	nearSplit.Splits = []NewSplit{
		{Amount: -6000, CategoryID: "c1"},
		{Amount: -3996, CategoryID: "c2"},
	}
	if err := nearSplit.Validate(); err != nil {
		t.Fatalf("expected within-epsilon split ok, got %v", err)
	}

	cases := []struct {
		mutate func(*NewTransaction)
		want   error
	}{
		{func(tx *NewTransaction) { tx.AccountID = " " }, nil},
		{func(tx *NewTransaction) { tx.Date = Date{} }, ErrInvalidDate},
		{func(tx *NewTransaction) { tx.Amount = 0 }, ErrInvalidAmount},
		{func(tx *NewTransaction) { tx.Splits = []NewSplit{{Amount: -10000}} }, ErrInvalidAmount},
		{func(tx *NewTransaction) {
			tx.Splits = []NewSplit{{Amount: -6000}, {Amount: -3990}}
		}, ErrInvalidAmount},
	}
	for i, tc := range cases {
		tx := good
		tc.mutate(&tx)
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestTransactionShape(t *testing.T) {
	plain := Transaction{ID: "t1", CategoryID: "c1"}
	if plain.IsSplit() || plain.IsTransfer() {
		t.Fatalf("plain transaction misclassified")
	}
	split := Transaction{ID: "t2", Subtransactions: []Subtransaction{{Amount: -1}}}
	if !split.IsSplit() {
		t.Fatalf("expected split")
	}
	transfer := Transaction{ID: "t3", TransferAccountID: "a2"}
	if !transfer.IsTransfer() {
		t.Fatalf("expected transfer")
	}
}
