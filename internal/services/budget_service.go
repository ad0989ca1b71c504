// Package services orchestrates the snapshot cache, provider, resolver,
// categorizer and analyzers behind one budget-facing API. It owns the
// stale-reference retry protocol and write-path cache invalidation.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bilancio/internal/analyzer"
	"bilancio/internal/cache"
	"bilancio/internal/categorizer"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/provider"
	"bilancio/internal/resolver"
)

// Defaults for service tuning knobs left zero in Config.
const (
	DefaultMaxStaleness   = 5 * time.Minute
	DefaultMonthCacheSize = 24
	DefaultMonthCacheTTL  = 15 * time.Minute
	DefaultSearchLimit    = 50
	DefaultUpcomingWindow = 7 * 24 * time.Hour
)

type (
	// Config tunes the service. Zero fields take the defaults above.
	Config struct {
		MaxStaleness   time.Duration
		MonthCacheSize int
		MonthCacheTTL  time.Duration
		Trend          analyzer.TrendConfig
	}

	// SnapshotInfo describes the cached snapshot without carrying it.
	SnapshotInfo struct {
		BudgetID     string    `json:"budget_id"`
		Cursor       string    `json:"cursor"`
		FetchedAt    time.Time `json:"fetched_at"`
		AgeSeconds   int64     `json:"age_seconds"`
		Accounts     int       `json:"accounts"`
		Categories   int       `json:"categories"`
		Payees       int       `json:"payees"`
		Transactions int       `json:"transactions"`
		Scheduled    int       `json:"scheduled"`
	}

	// UncategorizedTransaction pairs a transaction needing a category
	// with the categorizer's suggestion when one clears the floor.
	UncategorizedTransaction struct {
		Transaction core.Transaction        `json:"transaction"`
		Suggestion  *categorizer.Suggestion `json:"suggestion,omitempty"`
	}

	// CreateTransactionRequest carries user-facing fields: names or IDs
	// for entities, decimal strings for amounts, "2006-01-02" dates.
	CreateTransactionRequest struct {
		Account  string         `json:"account"`
		Date     string         `json:"date,omitempty"`
		Amount   string         `json:"amount"`
		Payee    string         `json:"payee,omitempty"`
		Category string         `json:"category,omitempty"`
		Memo     string         `json:"memo,omitempty"`
		Cleared  bool           `json:"cleared,omitempty"`
		Approved bool           `json:"approved,omitempty"`
		Splits   []SplitRequest `json:"splits,omitempty"`
	}

	// SplitRequest is one line of a split create.
	SplitRequest struct {
		Amount   string `json:"amount"`
		Category string `json:"category"`
		Memo     string `json:"memo,omitempty"`
	}

	// MoveMoneyRequest moves budgeted money between two categories. A
	// zero Month means the current one.
	MoveMoneyRequest struct {
		From   string     `json:"from"`
		To     string     `json:"to"`
		Amount string     `json:"amount"`
		Month  core.Month `json:"month,omitempty"`
	}

	// MoveResult reports the post-move budgeted figures.
	MoveResult struct {
		FromCategoryID string          `json:"from_category_id"`
		FromName       string          `json:"from_name"`
		ToCategoryID   string          `json:"to_category_id"`
		ToName         string          `json:"to_name"`
		Month          core.Month      `json:"month"`
		Amount         core.Milliunits `json:"amount"`
		FromBudgeted   core.Milliunits `json:"from_budgeted"`
		ToBudgeted     core.Milliunits `json:"to_budgeted"`
	}

	// SetupBudgetRequest fills a month's budgeted figures from a
	// strategy. A zero Month means next month.
	SetupBudgetRequest struct {
		Strategy string     `json:"strategy"`
		Month    core.Month `json:"month,omitempty"`
	}

	// SetupResult reports how much of the month got budgeted.
	SetupResult struct {
		Month    core.Month      `json:"month"`
		Strategy string          `json:"strategy"`
		Applied  int             `json:"applied"`
		Total    core.Milliunits `json:"total_budgeted"`
	}
)

// BudgetService is the budget-facing API over one budget.
type BudgetService struct {
	cache       *cache.SnapshotCache
	provider    provider.Provider
	resolver    *resolver.Resolver
	categorizer *categorizer.Categorizer
	budgetID    string
	cfg         Config
	logger      *log.Logger

	// Non-current month views; evicted on writes that touch the month.
	months *cache.LRU[core.Month, []core.Category]
}

// New wires the service. Zero config fields take defaults.
func New(
	snapCache *cache.SnapshotCache,
	prov provider.Provider,
	res *resolver.Resolver,
	cat *categorizer.Categorizer,
	budgetID string,
	cfg Config,
	logger *log.Logger,
) *BudgetService {
	if cfg.MaxStaleness <= 0 {
		cfg.MaxStaleness = DefaultMaxStaleness
	}
	if cfg.MonthCacheSize <= 0 {
		cfg.MonthCacheSize = DefaultMonthCacheSize
	}
	if cfg.MonthCacheTTL <= 0 {
		cfg.MonthCacheTTL = DefaultMonthCacheTTL
	}
	return &BudgetService{
		cache:       snapCache,
		provider:    prov,
		resolver:    res,
		categorizer: cat,
		budgetID:    budgetID,
		cfg:         cfg,
		logger:      logger.WithComponent(log.ComponentService),
		months:      cache.NewLRU[core.Month, []core.Category](cfg.MonthCacheSize, cfg.MonthCacheTTL),
	}
}

// MonthCache exposes the month-view cache for cleanup registration.
func (s *BudgetService) MonthCache() cache.Cleaner {
	return s.months
}

func (s *BudgetService) snapshot(ctx context.Context) (*core.Snapshot, error) {
	return s.cache.Get(ctx, s.cfg.MaxStaleness)
}

// runStaleRetry runs op against a fresh-enough snapshot. A stale
// reference forces one refresh and a single retry; a second stale turns
// into NotFoundError. This is the only place stale becomes not-found.
func (s *BudgetService) runStaleRetry(ctx context.Context, op func(snap *core.Snapshot) error) error {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	err = op(snap)
	if err == nil || !errors.Is(err, core.ErrStaleReference) {
		return err
	}

	s.logger.Debug("stale reference, refreshing and retrying", log.FieldError, err.Error())
	snap, err = s.cache.ForceRefresh(ctx)
	if err != nil {
		return err
	}
	err = op(snap)
	var stale *core.StaleReferenceError
	if errors.As(err, &stale) {
		return &core.NotFoundError{Kind: stale.Kind, Query: stale.ID}
	}
	return err
}

// Snapshot reports on the cached snapshot, fetching one if needed.
func (s *BudgetService) Snapshot(ctx context.Context) (SnapshotInfo, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return SnapshotInfo{}, err
	}
	return snapshotInfo(snap), nil
}

// Refresh forces a provider round-trip regardless of snapshot age.
func (s *BudgetService) Refresh(ctx context.Context) (SnapshotInfo, error) {
	snap, err := s.cache.ForceRefresh(ctx)
	if err != nil {
		return SnapshotInfo{}, err
	}
	return snapshotInfo(snap), nil
}

// Ready reports whether a snapshot is available, fetching the first one
// when the cache is still empty. Readiness probes call this.
func (s *BudgetService) Ready(ctx context.Context) error {
	if s.cache.Current() != nil {
		return nil
	}
	_, err := s.snapshot(ctx)
	return err
}

// SnapshotAge returns the cached snapshot's age. ok is false while no
// snapshot has been fetched yet.
func (s *BudgetService) SnapshotAge() (age time.Duration, ok bool) {
	snap := s.cache.Current()
	if snap == nil {
		return 0, false
	}
	return snap.Age(time.Now()), true
}

func snapshotInfo(snap *core.Snapshot) SnapshotInfo {
	info := SnapshotInfo{
		BudgetID:   snap.BudgetID,
		Cursor:     snap.Cursor,
		FetchedAt:  snap.FetchedAt,
		AgeSeconds: int64(snap.Age(time.Now()).Seconds()),
		Accounts:   len(snap.ActiveAccounts()),
		Categories: len(snap.ActiveCategories(true)),
		Payees:     len(snap.ActivePayees()),
	}
	for _, t := range snap.Transactions {
		if !t.Deleted {
			info.Transactions++
		}
	}
	for _, st := range snap.Scheduled {
		if !st.Deleted {
			info.Scheduled++
		}
	}
	return info
}

// Resolve finds the entity a free-form query names.
func (s *BudgetService) Resolve(ctx context.Context, kind core.EntityKind, query string, includeHidden bool) (core.Match, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return core.Match{}, err
	}
	return s.resolver.Resolve(snap, kind, query, resolveOpts(includeHidden)...)
}

func resolveOpts(includeHidden bool) []resolver.Option {
	if includeHidden {
		return []resolver.Option{resolver.WithHidden()}
	}
	return nil
}

// resolveCategory accepts a raw category ID or a resolvable name.
func (s *BudgetService) resolveCategory(snap *core.Snapshot, query string, includeHidden bool) (core.Category, error) {
	if c, ok := snap.Category(query); ok {
		return c, nil
	}
	m, err := s.resolver.Resolve(snap, core.KindCategory, query, resolveOpts(includeHidden)...)
	if err != nil {
		return core.Category{}, err
	}
	c, ok := snap.Category(m.ID)
	if !ok {
		return core.Category{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: m.ID}
	}
	return c, nil
}

// resolveAccount accepts a raw account ID or a resolvable name.
func (s *BudgetService) resolveAccount(snap *core.Snapshot, query string) (core.Account, error) {
	if a, ok := snap.Account(query); ok {
		return a, nil
	}
	m, err := s.resolver.Resolve(snap, core.KindAccount, query)
	if err != nil {
		return core.Account{}, err
	}
	a, ok := snap.Account(m.ID)
	if !ok {
		return core.Account{}, &core.StaleReferenceError{Kind: core.KindAccount, ID: m.ID}
	}
	return a, nil
}

// resolvePayee accepts a raw payee ID or a resolvable name.
func (s *BudgetService) resolvePayee(snap *core.Snapshot, query string) (core.Payee, error) {
	if p, ok := snap.Payee(query); ok {
		return p, nil
	}
	m, err := s.resolver.Resolve(snap, core.KindPayee, query)
	if err != nil {
		return core.Payee{}, err
	}
	p, ok := snap.Payee(m.ID)
	if !ok {
		return core.Payee{}, &core.StaleReferenceError{Kind: core.KindPayee, ID: m.ID}
	}
	return p, nil
}

// SearchTransactions returns filtered transactions, newest first.
func (s *BudgetService) SearchTransactions(ctx context.Context, f core.TransactionFilter, limit int) ([]core.Transaction, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := core.FilterTransactions(snap, f)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Uncategorized lists transactions needing a category, newest first,
// each with the categorizer's suggestion when one clears the floor.
func (s *BudgetService) Uncategorized(ctx context.Context, limit int) ([]UncategorizedTransaction, error) {
	txns, err := s.SearchTransactions(ctx, core.TransactionFilter{Uncategorized: true}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]UncategorizedTransaction, 0, len(txns))
	for _, t := range txns {
		u := UncategorizedTransaction{Transaction: t}
		if key := categorizer.PayeeKey(t.PayeeID, t.PayeeName); key != "" {
			if sugg, err := s.categorizer.Suggest(key); err == nil {
				u.Suggestion = &sugg
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// Overspending lists categories spent past their budget.
func (s *BudgetService) Overspending(ctx context.Context) ([]analyzer.Overspend, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analyzer.DetectOverspending(snap), nil
}

// CoverPlan plans covering a category's deficit from donor categories.
func (s *BudgetService) CoverPlan(ctx context.Context, category string) (analyzer.CoverPlan, error) {
	var plan analyzer.CoverPlan
	err := s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		plan, err = analyzer.PlanCover(snap, c.ID)
		return err
	})
	return plan, err
}

// Trends compares each category's month against its trailing baseline.
// A zero month means the current one.
func (s *BudgetService) Trends(ctx context.Context, month core.Month) ([]analyzer.Trend, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if month.IsZero() {
		month = core.MonthOf(time.Now())
	}
	return analyzer.DetectTrends(snap, month, s.cfg.Trend), nil
}

// Forecast projects one category's end-of-month spend. A zero month
// means the current one.
func (s *BudgetService) Forecast(ctx context.Context, category string, month core.Month) (analyzer.Forecast, error) {
	if month.IsZero() {
		month = core.MonthOf(time.Now())
	}
	var f analyzer.Forecast
	err := s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		f, err = analyzer.ForecastCategory(snap, c.ID, month, time.Now())
		return err
	})
	return f, err
}

// ForecastMonth projects every active category for the month.
func (s *BudgetService) ForecastMonth(ctx context.Context, month core.Month) ([]analyzer.Forecast, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if month.IsZero() {
		month = core.MonthOf(time.Now())
	}
	return analyzer.ForecastMonth(snap, month, time.Now()), nil
}

// Affordability tests a planned expense amount against a category.
func (s *BudgetService) Affordability(ctx context.Context, category, amount string) (analyzer.Affordability, error) {
	amt, err := core.ParseAmount(amount)
	if err != nil {
		return analyzer.Affordability{}, err
	}
	var result analyzer.Affordability
	err = s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		result, err = analyzer.CheckAffordability(snap, c.ID, amt)
		return err
	})
	return result, err
}

// CreditCards reports payment coverage for every credit account.
func (s *BudgetService) CreditCards(ctx context.Context) ([]analyzer.CreditCardStatus, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return analyzer.AnalyzeCreditCards(snap), nil
}

// Upcoming lists scheduled transactions due within the window, soonest
// first. Overdue items count as upcoming.
func (s *BudgetService) Upcoming(ctx context.Context, within time.Duration) ([]core.ScheduledTransaction, error) {
	if within <= 0 {
		within = DefaultUpcomingWindow
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	horizon := core.DateOf(time.Now().Add(within))
	out := make([]core.ScheduledTransaction, 0)
	for _, st := range snap.Scheduled {
		if st.Deleted || st.DateNext.IsZero() || st.DateNext.After(horizon.Time) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateNext.Equal(out[j].DateNext.Time) {
			return out[i].DateNext.Before(out[j].DateNext.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Suggest proposes a category for a payee given by name or ID. Payees
// the resolver cannot place fall back to the normalized raw string, so
// name-keyed rules still answer.
func (s *BudgetService) Suggest(ctx context.Context, payee string) (categorizer.Suggestion, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return categorizer.Suggestion{}, err
	}
	key := ""
	if p, err := s.resolvePayee(snap, payee); err == nil {
		key = p.ID
	} else {
		key = categorizer.PayeeKey("", payee)
	}
	if key == "" {
		return categorizer.Suggestion{}, &core.NotFoundError{Kind: core.KindPayee, Query: payee}
	}
	return s.categorizer.Suggest(key)
}

// CreateTransaction resolves the request's names, writes the transaction
// through the provider, invalidates the snapshot and teaches the
// categorizer. An uncategorized non-split pulls the categorizer's
// suggestion when one clears the floor.
func (s *BudgetService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	date := core.DateOf(time.Now())
	if req.Date != "" {
		var err error
		if date, err = core.ParseDate(req.Date); err != nil {
			return core.Transaction{}, err
		}
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	var created core.Transaction
	err = s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		account, err := s.resolveAccount(snap, req.Account)
		if err != nil {
			return err
		}

		nt := core.NewTransaction{
			AccountID: account.ID,
			Date:      date,
			Amount:    amount,
			Memo:      req.Memo,
			Cleared:   req.Cleared,
			Approved:  req.Approved,
		}

		if req.Payee != "" {
			if p, err := s.resolvePayee(snap, req.Payee); err == nil {
				nt.PayeeID = p.ID
				nt.PayeeName = p.Name
			} else if errors.Is(err, core.ErrNotFound) {
				// Unknown payee names pass through; the provider
				// creates the payee.
				nt.PayeeName = req.Payee
			} else {
				return err
			}
		}

		if req.Category != "" {
			c, err := s.resolveCategory(snap, req.Category, false)
			if err != nil {
				return err
			}
			nt.CategoryID = c.ID
		}

		for _, sp := range req.Splits {
			amt, err := core.ParseAmount(sp.Amount)
			if err != nil {
				return err
			}
			c, err := s.resolveCategory(snap, sp.Category, false)
			if err != nil {
				return err
			}
			nt.Splits = append(nt.Splits, core.NewSplit{Amount: amt, CategoryID: c.ID, Memo: sp.Memo})
		}

		if nt.CategoryID == "" && !nt.IsSplit() {
			if key := categorizer.PayeeKey(nt.PayeeID, nt.PayeeName); key != "" {
				if sugg, err := s.categorizer.Suggest(key); err == nil {
					nt.CategoryID = sugg.CategoryID
					s.logger.Info("transaction auto-categorized",
						log.FieldPayee, key,
						log.FieldCategory, sugg.CategoryID,
						log.FieldConfidence, sugg.Confidence)
				}
			}
		}

		if err := nt.Validate(); err != nil {
			return err
		}

		created, err = s.provider.CreateTransaction(ctx, s.budgetID, nt)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.cache.Invalidate(core.KindTransaction, created.ID)
	s.learnFrom(created)
	s.logger.Info("transaction created",
		log.FieldEntityID, created.ID,
		log.FieldAmount, created.Amount.String())
	return created, nil
}

// CategorizeTransaction assigns a category to an existing transaction and
// teaches the categorizer the pairing.
func (s *BudgetService) CategorizeTransaction(ctx context.Context, txID, category string) (core.Transaction, error) {
	var updated core.Transaction
	err := s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		t, ok := snap.Transaction(txID)
		if !ok {
			return &core.StaleReferenceError{Kind: core.KindTransaction, ID: txID}
		}
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		patch := core.TransactionPatch{CategoryID: &c.ID}
		updated, err = s.provider.UpdateTransaction(ctx, s.budgetID, t.ID, patch)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.cache.Invalidate(core.KindTransaction, updated.ID)
	s.learnFrom(updated)
	return updated, nil
}

// learnFrom teaches the categorizer from a committed transaction. Splits
// never teach; their lines carry no payee-level signal.
func (s *BudgetService) learnFrom(t core.Transaction) {
	if t.IsSplit() || t.CategoryID == "" {
		return
	}
	if key := categorizer.PayeeKey(t.PayeeID, t.PayeeName); key != "" {
		s.categorizer.Learn(key, t.CategoryID, t.Date)
	}
}

// RenamePayee renames a payee given by name or ID.
func (s *BudgetService) RenamePayee(ctx context.Context, payee, newName string) error {
	var renamed core.Payee
	err := s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		p, err := s.resolvePayee(snap, payee)
		if err != nil {
			return err
		}
		renamed = p
		return s.provider.RenamePayee(ctx, s.budgetID, p.ID, newName)
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(core.KindPayee, renamed.ID)
	s.logger.Info("payee renamed", log.FieldEntityID, renamed.ID, log.FieldPayee, newName)
	return nil
}

// MoveMoney moves budgeted money between two categories in a month. The
// source must have the amount available. The debit lands first; a failed
// credit rolls the debit back best-effort.
func (s *BudgetService) MoveMoney(ctx context.Context, req MoveMoneyRequest) (MoveResult, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return MoveResult{}, err
	}
	if amount <= 0 {
		return MoveResult{}, fmt.Errorf("move amount must be positive, got %s: %w", amount, core.ErrInvalidAmount)
	}
	month := req.Month
	if month.IsZero() {
		month = core.MonthOf(time.Now())
	}

	var result MoveResult
	err = s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		from, err := s.resolveCategory(snap, req.From, false)
		if err != nil {
			return err
		}
		to, err := s.resolveCategory(snap, req.To, false)
		if err != nil {
			return err
		}
		if from.ID == to.ID {
			return fmt.Errorf("source and destination are both %q: %w", from.Name, core.ErrInvalidAmount)
		}

		figures, err := s.monthFigures(ctx, snap, month, from.ID, to.ID)
		if err != nil {
			return err
		}
		if amount > figures.fromAvailable+core.Epsilon {
			return fmt.Errorf("%s has %s available, cannot move %s: %w",
				from.Name, figures.fromAvailable, amount, core.ErrInsufficientFunds)
		}

		if err := s.provider.UpdateMonthCategory(ctx, s.budgetID, month, from.ID, figures.fromBudgeted-amount); err != nil {
			return fmt.Errorf("debit %s: %w", from.Name, err)
		}
		if err := s.provider.UpdateMonthCategory(ctx, s.budgetID, month, to.ID, figures.toBudgeted+amount); err != nil {
			s.rollbackBudgeted(ctx, month, from.ID, figures.fromBudgeted)
			return fmt.Errorf("credit %s: %w", to.Name, err)
		}

		result = MoveResult{
			FromCategoryID: from.ID,
			FromName:       from.Name,
			ToCategoryID:   to.ID,
			ToName:         to.Name,
			Month:          month,
			Amount:         amount,
			FromBudgeted:   figures.fromBudgeted - amount,
			ToBudgeted:     figures.toBudgeted + amount,
		}
		return nil
	})
	if err != nil {
		return MoveResult{}, err
	}

	s.cache.Invalidate(core.KindCategory, result.FromCategoryID)
	s.months.Delete(month)
	s.logger.Info("money moved",
		log.FieldAmount, amount.String(),
		log.FieldMonth, month.String(),
		"from", result.FromName,
		"to", result.ToName)
	return result, nil
}

// monthFigures holds the budgeted/available numbers a move starts from.
type monthFigures struct {
	fromBudgeted  core.Milliunits
	fromAvailable core.Milliunits
	toBudgeted    core.Milliunits
}

// monthFigures reads the two categories' figures for the month: the
// snapshot for the current month, the cached month view otherwise.
func (s *BudgetService) monthFigures(ctx context.Context, snap *core.Snapshot, month core.Month, fromID, toID string) (monthFigures, error) {
	if month == core.MonthOf(time.Now()) {
		from, _ := snap.Category(fromID)
		to, _ := snap.Category(toID)
		return monthFigures{
			fromBudgeted:  from.Budgeted,
			fromAvailable: from.Balance,
			toBudgeted:    to.Budgeted,
		}, nil
	}

	cats, err := s.monthCategories(ctx, month)
	if err != nil {
		return monthFigures{}, err
	}
	var fig monthFigures
	foundFrom, foundTo := false, false
	for _, c := range cats {
		switch c.ID {
		case fromID:
			fig.fromBudgeted, fig.fromAvailable = c.Budgeted, c.Balance
			foundFrom = true
		case toID:
			fig.toBudgeted = c.Budgeted
			foundTo = true
		}
	}
	if !foundFrom {
		return monthFigures{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: fromID}
	}
	if !foundTo {
		return monthFigures{}, &core.StaleReferenceError{Kind: core.KindCategory, ID: toID}
	}
	return fig, nil
}

// monthCategories serves non-current month views through the LRU.
func (s *BudgetService) monthCategories(ctx context.Context, month core.Month) ([]core.Category, error) {
	if cats, ok := s.months.Get(month); ok {
		return cats, nil
	}
	cats, err := s.provider.MonthCategories(ctx, s.budgetID, month)
	if err != nil {
		return nil, err
	}
	s.months.Set(month, cats)
	return cats, nil
}

// rollbackBudgeted best-effort restores a category's budgeted figure
// after a half-applied move. It ignores the caller's cancellation so the
// restore still lands when the caller gave up.
func (s *BudgetService) rollbackBudgeted(ctx context.Context, month core.Month, categoryID string, budgeted core.Milliunits) {
	if err := s.provider.UpdateMonthCategory(context.WithoutCancel(ctx), s.budgetID, month, categoryID, budgeted); err != nil {
		s.logger.Error("rollback failed, budget figures inconsistent",
			log.FieldCategory, categoryID,
			log.FieldMonth, month.String(),
			log.FieldError, err.Error())
	}
}

// CoverOverspending plans covering a category's deficit and, when apply
// is set, executes the plan's moves in the current month.
func (s *BudgetService) CoverOverspending(ctx context.Context, category string, apply bool) (analyzer.CoverPlan, error) {
	var plan analyzer.CoverPlan
	err := s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		plan, err = analyzer.PlanCover(snap, c.ID)
		if err != nil || !apply || len(plan.Moves) == 0 {
			return err
		}

		month := core.MonthOf(time.Now())
		target, _ := snap.Category(c.ID)
		targetBudgeted := target.Budgeted
		for _, mv := range plan.Moves {
			donor, _ := snap.Category(mv.FromCategoryID)
			if err := s.provider.UpdateMonthCategory(ctx, s.budgetID, month, donor.ID, donor.Budgeted-mv.Amount); err != nil {
				return fmt.Errorf("debit %s: %w", mv.FromName, err)
			}
			if err := s.provider.UpdateMonthCategory(ctx, s.budgetID, month, c.ID, targetBudgeted+mv.Amount); err != nil {
				s.rollbackBudgeted(ctx, month, donor.ID, donor.Budgeted)
				return fmt.Errorf("credit %s: %w", c.Name, err)
			}
			targetBudgeted += mv.Amount
		}
		return nil
	})
	if err != nil {
		return analyzer.CoverPlan{}, err
	}

	if apply && len(plan.Moves) > 0 {
		s.cache.Invalidate(core.KindCategory, plan.CategoryID)
		s.logger.Info("overspending covered",
			log.FieldCategory, plan.CategoryID,
			log.FieldAmount, plan.Covered.String(),
			log.FieldCount, len(plan.Moves))
	}
	return plan, nil
}

// SetupBudget writes a month's budgeted figures from a strategy. It
// stops at the first write error, reporting what was applied.
func (s *BudgetService) SetupBudget(ctx context.Context, req SetupBudgetRequest) (SetupResult, error) {
	strategy, err := GetSetupStrategy(req.Strategy)
	if err != nil {
		return SetupResult{}, err
	}
	month := req.Month
	if month.IsZero() {
		month = core.MonthOf(time.Now()).Next()
	}
	sourceMonth := month.Prev()

	snap, err := s.snapshot(ctx)
	if err != nil {
		return SetupResult{}, err
	}

	sourceBudgeted, err := s.budgetedIn(ctx, snap, sourceMonth)
	if err != nil {
		return SetupResult{}, err
	}

	result := SetupResult{Month: month, Strategy: req.Strategy}
	for _, c := range snap.ActiveCategories(false) {
		target := strategy.Target(snap, c, sourceBudgeted[c.ID], sourceMonth)
		if target == 0 {
			continue
		}
		if err := s.provider.UpdateMonthCategory(ctx, s.budgetID, month, c.ID, target); err != nil {
			s.months.Delete(month)
			return result, fmt.Errorf("setup stopped at %s after %d categories: %w", c.Name, result.Applied, err)
		}
		result.Applied++
		result.Total += target
	}

	s.months.Delete(month)
	s.cache.Invalidate(core.KindCategory, month.String())
	s.logger.Info("budget set up",
		log.FieldMonth, month.String(),
		"strategy", req.Strategy,
		log.FieldCount, result.Applied,
		log.FieldAmount, result.Total.String())
	return result, nil
}

// budgetedIn maps category ID to budgeted figure for the month, from the
// snapshot when current and the month view otherwise.
func (s *BudgetService) budgetedIn(ctx context.Context, snap *core.Snapshot, month core.Month) (map[string]core.Milliunits, error) {
	out := make(map[string]core.Milliunits)
	if month == core.MonthOf(time.Now()) {
		for _, c := range snap.ActiveCategories(true) {
			out[c.ID] = c.Budgeted
		}
		return out, nil
	}
	cats, err := s.monthCategories(ctx, month)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		out[c.ID] = c.Budgeted
	}
	return out, nil
}

// Learn manually teaches the categorizer a payee-to-category pairing.
func (s *BudgetService) Learn(ctx context.Context, payee, category string, observedAt core.Date) error {
	return s.runStaleRetry(ctx, func(snap *core.Snapshot) error {
		c, err := s.resolveCategory(snap, category, false)
		if err != nil {
			return err
		}
		key := ""
		if p, err := s.resolvePayee(snap, payee); err == nil {
			key = p.ID
		} else {
			key = categorizer.PayeeKey("", payee)
		}
		if key == "" {
			return &core.NotFoundError{Kind: core.KindPayee, Query: payee}
		}
		if observedAt.IsZero() {
			observedAt = core.DateOf(time.Now())
		}
		s.categorizer.Learn(key, c.ID, observedAt)
		return nil
	})
}

// LearnFromHistory seeds the categorizer from the snapshot's categorized
// transactions and reports how many observations were learned.
func (s *BudgetService) LearnFromHistory(ctx context.Context) (int, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return s.categorizer.SeedFromSnapshot(snap), nil
}
