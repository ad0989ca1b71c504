package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Token: "tok"}, log.New(log.Config{Level: slog.LevelError}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{BaseURL: "http://x", Token: "t"}).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (Config{Token: "t"}).Validate(); err == nil {
		t.Fatalf("missing base URL accepted")
	}
	if err := (Config{BaseURL: "http://x"}).Validate(); err == nil {
		t.Fatalf("missing token accepted")
	}
}

func TestFetchFullBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/budgets/b1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Has("last_knowledge_of_server") {
			t.Errorf("full fetch sent a cursor: %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"server_knowledge":42,"budget":{
			"id":"b1",
			"accounts":[{"id":"a1","name":"Checking","type":"checking","on_budget":true,"balance":500000,"cleared_balance":480000}],
			"category_groups":[{"id":"g1","name":"Everyday"}],
			"categories":[{"id":"c1","category_group_id":"g1","name":"Groceries","budgeted":60000,"activity":-10000,"balance":50000}],
			"payees":[{"id":"p1","name":"HEB"}],
			"transactions":[
				{"id":"t1","date":"2025-08-02","amount":-10000,"cleared":"cleared","approved":true,"account_id":"a1","payee_id":"p1","payee_name":"HEB","category_id":"c1"},
				{"id":"t2","date":"2025-08-05","amount":-9000,"cleared":"uncleared","account_id":"a1","payee_id":"p1","payee_name":"HEB","category_id":"c1"}
			],
			"subtransactions":[
				{"id":"s1","transaction_id":"t2","amount":-6000,"category_id":"c1"},
				{"id":"s2","transaction_id":"t2","amount":-3000,"category_id":"c2"},
				{"id":"s3","transaction_id":"t2","amount":-1,"deleted":true}
			],
			"scheduled_transactions":[{"id":"st1","date_next":"2025-09-01","frequency":"monthly","amount":-150000,"account_id":"a1"}]
		}}}`))
	}))
	defer server.Close()

	d, err := testClient(t, server.URL).Fetch(context.Background(), "b1", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if d.Cursor != "42" {
		t.Errorf("Cursor = %q, want %q", d.Cursor, "42")
	}
	if len(d.Accounts) != 1 || len(d.Groups) != 1 || len(d.Categories) != 1 || len(d.Payees) != 1 || len(d.Scheduled) != 1 {
		t.Fatalf("entity counts wrong: %+v", d)
	}
	if len(d.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(d.Transactions))
	}

	a := d.Accounts[0]
	if a.Type != core.AccountTypeChecking || !a.OnBudget || a.ClearedBalance != 480000 {
		t.Errorf("account converted wrong: %+v", a)
	}

	var t1, t2 core.Transaction
	for _, tx := range d.Transactions {
		switch tx.ID {
		case "t1":
			t1 = tx
		case "t2":
			t2 = tx
		}
	}
	if !t1.Cleared || t1.CategoryID != "c1" {
		t.Errorf("t1 converted wrong: %+v", t1)
	}
	if t2.Cleared {
		t.Errorf("t2 should be uncleared")
	}
	if len(t2.Subtransactions) != 2 {
		t.Fatalf("t2 sub-lines = %d, want 2 (deleted one dropped)", len(t2.Subtransactions))
	}
	if t2.CategoryID != "" {
		t.Errorf("split kept top-level category %q", t2.CategoryID)
	}
}

func TestFetchDeltaSendsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("last_knowledge_of_server"); got != "42" {
			t.Errorf("last_knowledge_of_server = %q, want %q", got, "42")
		}
		_, _ = w.Write([]byte(`{"data":{"server_knowledge":43,"budget":{"id":"b1"}}}`))
	}))
	defer server.Close()

	d, err := testClient(t, server.URL).Fetch(context.Background(), "b1", "42")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if d.Cursor != "43" {
		t.Errorf("Cursor = %q, want %q", d.Cursor, "43")
	}
	if len(d.Transactions) != 0 {
		t.Errorf("empty delta carried transactions: %+v", d.Transactions)
	}
}

func TestFetchBadCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request sent despite bad cursor")
	}))
	defer server.Close()

	if _, err := testClient(t, server.URL).Fetch(context.Background(), "b1", "not-a-number"); err == nil {
		t.Fatalf("expected bad cursor error")
	}
}

func TestCreateTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/budgets/b1/transactions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		var req newTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Transaction.AccountID != "a1" || req.Transaction.Amount != -9000 {
			t.Errorf("request body wrong: %+v", req.Transaction)
		}
		if req.Transaction.Cleared != "uncleared" {
			t.Errorf("Cleared = %q, want %q", req.Transaction.Cleared, "uncleared")
		}
		if len(req.Transaction.Subtransactions) != 2 {
			t.Errorf("sub-lines = %d, want 2", len(req.Transaction.Subtransactions))
		}

		_, _ = w.Write([]byte(`{"data":{"transaction":{
			"id":"t9","date":"2025-08-12","amount":-9000,"cleared":"uncleared","account_id":"a1",
			"payee_id":"p9","payee_name":"Corner Store",
			"subtransactions":[{"id":"s1","amount":-6000,"category_id":"c1"},{"id":"s2","amount":-3000,"category_id":"c2"}]
		}}}`))
	}))
	defer server.Close()

	created, err := testClient(t, server.URL).CreateTransaction(context.Background(), "b1", core.NewTransaction{
		AccountID: "a1",
		Date:      core.NewDate(2025, 8, 12),
		Amount:    -9000,
		PayeeName: "Corner Store",
		Splits: []core.NewSplit{
			{Amount: -6000, CategoryID: "c1"},
			{Amount: -3000, CategoryID: "c2"},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID != "t9" || !created.IsSplit() {
		t.Errorf("created = %+v", created)
	}
}

func TestCreateTransactionValidatesFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("invalid transaction reached the server")
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).CreateTransaction(context.Background(), "b1", core.NewTransaction{
		AccountID: "a1", Date: core.NewDate(2025, 8, 12),
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
}

func TestUpdateTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/budgets/b1/transactions/t1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var raw map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if got := raw["transaction"]["category_id"]; got != "c2" {
			t.Errorf("category_id = %v, want c2", got)
		}
		if _, ok := raw["transaction"]["memo"]; ok {
			t.Errorf("nil memo was serialized")
		}

		_, _ = w.Write([]byte(`{"data":{"transaction":{"id":"t1","date":"2025-08-02","amount":-10000,"cleared":"cleared","account_id":"a1","category_id":"c2"}}}`))
	}))
	defer server.Close()

	cat := "c2"
	updated, err := testClient(t, server.URL).UpdateTransaction(context.Background(), "b1", "t1", core.TransactionPatch{CategoryID: &cat})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.CategoryID != "c2" {
		t.Errorf("CategoryID = %q, want %q", updated.CategoryID, "c2")
	}
}

func TestUpdateMonthCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/budgets/b1/months/2025-07/categories/c1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req patchCategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Category.Budgeted != 45000 {
			t.Errorf("budgeted = %d, want 45000", req.Category.Budgeted)
		}
		_, _ = w.Write([]byte(`{"data":{"category":{"id":"c1","budgeted":45000}}}`))
	}))
	defer server.Close()

	err := testClient(t, server.URL).UpdateMonthCategory(context.Background(), "b1", core.Month{Year: 2025, Month: 7}, "c1", 45000)
	if err != nil {
		t.Fatalf("UpdateMonthCategory: %v", err)
	}
}

func TestRenamePayee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/budgets/b1/payees/p1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req patchPayeeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Payee.Name != "H-E-B" {
			t.Errorf("name = %q, want %q", req.Payee.Name, "H-E-B")
		}
		_, _ = w.Write([]byte(`{"data":{"payee":{"id":"p1","name":"H-E-B"}}}`))
	}))
	defer server.Close()

	if err := testClient(t, server.URL).RenamePayee(context.Background(), "b1", "p1", "H-E-B"); err != nil {
		t.Fatalf("RenamePayee: %v", err)
	}
}

func TestMonthCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/budgets/b1/months/2025-07" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"month":{"month":"2025-07","categories":[
			{"id":"c1","category_group_id":"g1","name":"Groceries","budgeted":60000,"activity":-55000,"balance":5000},
			{"id":"c2","category_group_id":"g1","name":"Rent","budgeted":150000,"activity":-150000,"balance":0}
		]}}}`))
	}))
	defer server.Close()

	cats, err := testClient(t, server.URL).MonthCategories(context.Background(), "b1", core.Month{Year: 2025, Month: 7})
	if err != nil {
		t.Fatalf("MonthCategories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", len(cats))
	}
	if cats[0].ID != "c1" || cats[0].Activity != -55000 || cats[0].GroupID != "g1" {
		t.Errorf("first category converted wrong: %+v", cats[0])
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, core.ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, c := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", c.status)
		}))
		_, err := testClient(t, server.URL).Fetch(context.Background(), "b1", "")
		server.Close()
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: got %v, want %v", c.status, err, c.want)
		}
	}
}

func TestUnexpectedStatusCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database exploded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).Fetch(context.Background(), "b1", "")
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if want := "status 500"; !strings.Contains(msg, want) {
		t.Errorf("error %q missing %q", msg, want)
	}
	if want := "database exploded"; !strings.Contains(msg, want) {
		t.Errorf("error %q missing body detail", msg)
	}
}
