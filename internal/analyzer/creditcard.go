package analyzer

import (
	"sort"

	"bilancio/internal/core"
)

// CreditCardStatus reports whether a card's payment category holds
// enough to pay the card balance off.
type CreditCardStatus struct {
	Account          core.Account    `json:"account"`
	PaymentCategory  *core.Category  `json:"payment_category,omitempty"`
	Owed             core.Milliunits `json:"owed"`
	PaymentAvailable core.Milliunits `json:"payment_available"`
	Discrepancy      core.Milliunits `json:"discrepancy"`
	Underfunded      bool            `json:"underfunded"`
}

// AnalyzeCreditCards matches each credit account to the same-named
// category in the payments group. A card without a payment category
// reports zero available.
func AnalyzeCreditCards(snap *core.Snapshot) []CreditCardStatus {
	payment := make(map[string]core.Category)
	for _, c := range snap.ActiveCategories(true) {
		if snap.GroupName(c.ID) != core.CreditCardPaymentsGroup {
			continue
		}
		payment[core.NormalizeName(c.Name)] = c
	}

	var out []CreditCardStatus
	for _, a := range snap.ActiveAccounts() {
		if !a.IsCredit() {
			continue
		}
		status := CreditCardStatus{Account: a}
		if a.Balance < 0 {
			status.Owed = -a.Balance
		}
		if c, ok := payment[core.NormalizeName(a.Name)]; ok {
			c := c
			status.PaymentCategory = &c
			status.PaymentAvailable = c.Balance
		}
		status.Discrepancy = status.PaymentAvailable - status.Owed
		status.Underfunded = status.Discrepancy < -core.Epsilon
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Name < out[j].Account.Name })
	return out
}
