package rest

import (
	"strconv"

	"bilancio/internal/core"
)

// Wire DTOs for the YNAB-shaped API. Everything arrives under a "data"
// envelope; amounts are milliunit integers; sub-lines of the budget
// endpoint come as a flat list keyed by transaction_id and get stitched
// onto their parents here, at the edge.

type (
	budgetResponse struct {
		Data struct {
			Budget          budgetDetail `json:"budget"`
			ServerKnowledge int64        `json:"server_knowledge"`
		} `json:"data"`
	}

	budgetDetail struct {
		ID              string            `json:"id"`
		Accounts        []wireAccount     `json:"accounts"`
		CategoryGroups  []wireGroup       `json:"category_groups"`
		Categories      []wireCategory    `json:"categories"`
		Payees          []wirePayee       `json:"payees"`
		Transactions    []wireTransaction `json:"transactions"`
		Subtransactions []wireSub         `json:"subtransactions"`
		Scheduled       []wireScheduled   `json:"scheduled_transactions"`
	}

	transactionResponse struct {
		Data struct {
			Transaction wireTransaction `json:"transaction"`
		} `json:"data"`
	}

	categoryResponse struct {
		Data struct {
			Category wireCategory `json:"category"`
		} `json:"data"`
	}

	payeeResponse struct {
		Data struct {
			Payee wirePayee `json:"payee"`
		} `json:"data"`
	}

	monthResponse struct {
		Data struct {
			Month struct {
				Month      string         `json:"month"`
				Categories []wireCategory `json:"categories"`
			} `json:"month"`
		} `json:"data"`
	}

	wireAccount struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		Type           string          `json:"type"`
		OnBudget       bool            `json:"on_budget"`
		Closed         bool            `json:"closed"`
		Balance        core.Milliunits `json:"balance"`
		ClearedBalance core.Milliunits `json:"cleared_balance"`
		Deleted        bool            `json:"deleted"`
	}

	wireGroup struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Hidden  bool   `json:"hidden"`
		Deleted bool   `json:"deleted"`
	}

	wireCategory struct {
		ID       string          `json:"id"`
		GroupID  string          `json:"category_group_id"`
		Name     string          `json:"name"`
		Hidden   bool            `json:"hidden"`
		Budgeted core.Milliunits `json:"budgeted"`
		Activity core.Milliunits `json:"activity"`
		Balance  core.Milliunits `json:"balance"`
		Deleted  bool            `json:"deleted"`
	}

	wirePayee struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		TransferAccountID string `json:"transfer_account_id,omitempty"`
		Deleted           bool   `json:"deleted"`
	}

	wireTransaction struct {
		ID                string          `json:"id"`
		Date              core.Date       `json:"date"`
		Amount            core.Milliunits `json:"amount"`
		Memo              string          `json:"memo,omitempty"`
		Cleared           string          `json:"cleared"`
		Approved          bool            `json:"approved"`
		AccountID         string          `json:"account_id"`
		PayeeID           string          `json:"payee_id,omitempty"`
		PayeeName         string          `json:"payee_name,omitempty"`
		CategoryID        string          `json:"category_id,omitempty"`
		TransferAccountID string          `json:"transfer_account_id,omitempty"`
		Deleted           bool            `json:"deleted"`
		Subtransactions   []wireSub       `json:"subtransactions,omitempty"`
	}

	wireSub struct {
		ID            string          `json:"id"`
		TransactionID string          `json:"transaction_id,omitempty"`
		Amount        core.Milliunits `json:"amount"`
		CategoryID    string          `json:"category_id,omitempty"`
		Memo          string          `json:"memo,omitempty"`
		Deleted       bool            `json:"deleted"`
	}

	wireScheduled struct {
		ID         string          `json:"id"`
		DateNext   core.Date       `json:"date_next"`
		Frequency  string          `json:"frequency"`
		Amount     core.Milliunits `json:"amount"`
		AccountID  string          `json:"account_id"`
		PayeeID    string          `json:"payee_id,omitempty"`
		PayeeName  string          `json:"payee_name,omitempty"`
		CategoryID string          `json:"category_id,omitempty"`
		Deleted    bool            `json:"deleted"`
	}

	newTransactionRequest struct {
		Transaction newTransactionBody `json:"transaction"`
	}

	newTransactionBody struct {
		AccountID       string          `json:"account_id"`
		Date            core.Date       `json:"date"`
		Amount          core.Milliunits `json:"amount"`
		PayeeID         string          `json:"payee_id,omitempty"`
		PayeeName       string          `json:"payee_name,omitempty"`
		CategoryID      string          `json:"category_id,omitempty"`
		Memo            string          `json:"memo,omitempty"`
		Cleared         string          `json:"cleared"`
		Approved        bool            `json:"approved"`
		Subtransactions []wireSub       `json:"subtransactions,omitempty"`
	}

	patchTransactionRequest struct {
		Transaction patchTransactionBody `json:"transaction"`
	}

	patchTransactionBody struct {
		CategoryID *string `json:"category_id,omitempty"`
		Memo       *string `json:"memo,omitempty"`
	}

	patchCategoryRequest struct {
		Category struct {
			Budgeted core.Milliunits `json:"budgeted"`
		} `json:"category"`
	}

	patchPayeeRequest struct {
		Payee struct {
			Name string `json:"name"`
		} `json:"payee"`
	}
)

const (
	clearedStatus   = "cleared"
	unclearedStatus = "uncleared"
)

func clearedToWire(cleared bool) string {
	if cleared {
		return clearedStatus
	}
	return unclearedStatus
}

func clearedFromWire(status string) bool {
	return status != unclearedStatus && status != ""
}

func cursorFromKnowledge(k int64) string {
	return strconv.FormatInt(k, 10)
}

func knowledgeFromCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	return strconv.ParseInt(cursor, 10, 64)
}

func (a wireAccount) toCore() core.Account {
	return core.Account{
		ID:             a.ID,
		Name:           a.Name,
		Type:           a.Type,
		OnBudget:       a.OnBudget,
		Closed:         a.Closed,
		Balance:        a.Balance,
		ClearedBalance: a.ClearedBalance,
		Deleted:        a.Deleted,
	}
}

func (g wireGroup) toCore() core.CategoryGroup {
	return core.CategoryGroup{ID: g.ID, Name: g.Name, Hidden: g.Hidden, Deleted: g.Deleted}
}

func (c wireCategory) toCore() core.Category {
	return core.Category{
		ID:       c.ID,
		GroupID:  c.GroupID,
		Name:     c.Name,
		Hidden:   c.Hidden,
		Deleted:  c.Deleted,
		Budgeted: c.Budgeted,
		Activity: c.Activity,
		Balance:  c.Balance,
	}
}

func (p wirePayee) toCore() core.Payee {
	return core.Payee{ID: p.ID, Name: p.Name, TransferAccountID: p.TransferAccountID, Deleted: p.Deleted}
}

func (t wireTransaction) toCore() core.Transaction {
	out := core.Transaction{
		ID:                t.ID,
		Date:              t.Date,
		Amount:            t.Amount,
		Memo:              t.Memo,
		Cleared:           clearedFromWire(t.Cleared),
		Approved:          t.Approved,
		AccountID:         t.AccountID,
		PayeeID:           t.PayeeID,
		PayeeName:         t.PayeeName,
		CategoryID:        t.CategoryID,
		TransferAccountID: t.TransferAccountID,
		Deleted:           t.Deleted,
	}
	for _, sub := range t.Subtransactions {
		if sub.Deleted {
			continue
		}
		out.Subtransactions = append(out.Subtransactions, core.Subtransaction{
			ID:         sub.ID,
			Amount:     sub.Amount,
			CategoryID: sub.CategoryID,
			Memo:       sub.Memo,
		})
	}
	if out.IsSplit() {
		out.CategoryID = ""
	}
	return out
}

func (st wireScheduled) toCore() core.ScheduledTransaction {
	return core.ScheduledTransaction{
		ID:         st.ID,
		DateNext:   st.DateNext,
		Frequency:  st.Frequency,
		Amount:     st.Amount,
		AccountID:  st.AccountID,
		PayeeID:    st.PayeeID,
		PayeeName:  st.PayeeName,
		CategoryID: st.CategoryID,
		Deleted:    st.Deleted,
	}
}

// toDelta flattens a budget payload into a core delta, stitching the flat
// sub-line list onto its parent transactions.
func (b budgetDetail) toDelta(knowledge int64) core.Delta {
	subsByTxn := make(map[string][]wireSub, len(b.Subtransactions))
	for _, sub := range b.Subtransactions {
		if sub.Deleted || sub.TransactionID == "" {
			continue
		}
		subsByTxn[sub.TransactionID] = append(subsByTxn[sub.TransactionID], sub)
	}

	d := core.Delta{Cursor: cursorFromKnowledge(knowledge)}
	for _, a := range b.Accounts {
		d.Accounts = append(d.Accounts, a.toCore())
	}
	for _, g := range b.CategoryGroups {
		d.Groups = append(d.Groups, g.toCore())
	}
	for _, c := range b.Categories {
		d.Categories = append(d.Categories, c.toCore())
	}
	for _, p := range b.Payees {
		d.Payees = append(d.Payees, p.toCore())
	}
	for _, t := range b.Transactions {
		if subs, ok := subsByTxn[t.ID]; ok {
			t.Subtransactions = subs
		}
		d.Transactions = append(d.Transactions, t.toCore())
	}
	for _, st := range b.Scheduled {
		d.Scheduled = append(d.Scheduled, st.toCore())
	}
	return d
}

func newTransactionToWire(tx core.NewTransaction) newTransactionRequest {
	body := newTransactionBody{
		AccountID:  tx.AccountID,
		Date:       tx.Date,
		Amount:     tx.Amount,
		PayeeID:    tx.PayeeID,
		PayeeName:  tx.PayeeName,
		CategoryID: tx.CategoryID,
		Memo:       tx.Memo,
		Cleared:    clearedToWire(tx.Cleared),
		Approved:   tx.Approved,
	}
	for _, split := range tx.Splits {
		body.Subtransactions = append(body.Subtransactions, wireSub{
			Amount:     split.Amount,
			CategoryID: split.CategoryID,
			Memo:       split.Memo,
		})
	}
	return newTransactionRequest{Transaction: body}
}
