package services

import (
	"fmt"

	"bilancio/internal/core"
)

// Strategy names accepted by SetupBudget.
const (
	StrategyLastMonthBudget = "last_month_budget"
	StrategyLastMonthActual = "last_month_actual"
)

// SetupStrategy derives the budgeted figure one category should start the
// target month with. sourceBudgeted is the category's budgeted amount in
// the month before the target.
type SetupStrategy interface {
	Target(snap *core.Snapshot, c core.Category, sourceBudgeted core.Milliunits, sourceMonth core.Month) core.Milliunits
}

// LastMonthBudgetStrategy repeats the previous month's budgeted figures.
type LastMonthBudgetStrategy struct{}

func (LastMonthBudgetStrategy) Target(_ *core.Snapshot, _ core.Category, sourceBudgeted core.Milliunits, _ core.Month) core.Milliunits {
	return sourceBudgeted
}

// LastMonthActualStrategy budgets what was actually spent the previous
// month, ignoring what had been budgeted.
type LastMonthActualStrategy struct{}

func (LastMonthActualStrategy) Target(snap *core.Snapshot, c core.Category, _ core.Milliunits, sourceMonth core.Month) core.Milliunits {
	return snap.SpendIn(sourceMonth, c.ID)
}

var setupStrategies = map[string]SetupStrategy{
	StrategyLastMonthBudget: LastMonthBudgetStrategy{},
	StrategyLastMonthActual: LastMonthActualStrategy{},
}

// GetSetupStrategy returns the strategy registered under name.
func GetSetupStrategy(name string) (SetupStrategy, error) {
	s, ok := setupStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown setup strategy: %q", name)
	}
	return s, nil
}

// ValidSetupStrategy reports whether name is registered.
func ValidSetupStrategy(name string) bool {
	_, ok := setupStrategies[name]
	return ok
}

// RegisterSetupStrategy adds a strategy under name, replacing any
// previous registration.
func RegisterSetupStrategy(name string, s SetupStrategy) {
	setupStrategies[name] = s
}
