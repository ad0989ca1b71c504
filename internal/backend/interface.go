// Package backend selects and builds the budget provider implementation
// from configuration.
package backend

import (
	"bilancio/internal/config"
	"bilancio/internal/provider"
)

// Type identifies a provider implementation.
type Type string

const (
	// RestBackend talks to the remote budget API.
	RestBackend Type = "rest"

	// MemoryBackend serves an in-process store, seeded from a file or
	// the built-in demo budget.
	MemoryBackend Type = "memory"
)

// DefaultRestBudgetID is the budget ID the remote API resolves to the
// most recently used budget.
const DefaultRestBudgetID = "last-used"

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether the type names a known backend.
func (t Type) IsValid() bool {
	switch t {
	case RestBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result carries the built provider, the budget it serves and an
// optional cleanup function.
type Result struct {
	Provider provider.Provider
	BudgetID string
	Cleanup  CleanupFunc
}

// Factory creates providers based on configuration.
type Factory interface {
	Create(cfg *config.Config) (*Result, error)
}
