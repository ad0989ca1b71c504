// Package provider defines the ports a budget backend implements. The
// rest subpackage speaks the remote API, the memory subpackage backs
// demos and tests.
package provider

import (
	"context"

	"bilancio/internal/core"
)

// Ports for the budget backend.
type (
	// Reader fetches entity deltas. An empty sinceCursor means the whole
	// budget; the returned delta carries the cursor it brings a snapshot
	// up to.
	Reader interface {
		Fetch(ctx context.Context, budgetID, sinceCursor string) (core.Delta, error)
	}

	// Writer applies changes to the budget.
	Writer interface {
		CreateTransaction(ctx context.Context, budgetID string, tx core.NewTransaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, budgetID, id string, patch core.TransactionPatch) (core.Transaction, error)
		UpdateMonthCategory(ctx context.Context, budgetID string, month core.Month, categoryID string, budgeted core.Milliunits) error
		RenamePayee(ctx context.Context, budgetID, id, name string) error
	}

	// MonthReader serves category figures for months other than the
	// current one.
	MonthReader interface {
		MonthCategories(ctx context.Context, budgetID string, month core.Month) ([]core.Category, error)
	}

	// Provider is a full backend.
	Provider interface {
		Reader
		Writer
		MonthReader
	}
)
