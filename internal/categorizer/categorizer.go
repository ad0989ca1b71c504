// Package categorizer learns payee to category associations from
// categorized spending and suggests categories for new transactions.
// Associations are a multiset with recency decay: frequent recent
// observations outweigh stale history, and rules are never deleted.
package categorizer

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// Defaults: suggestions below the confidence floor are withheld, and an
// observation loses half its weight every 90 days.
const (
	DefaultMinConfidence = 0.6
	DefaultHalfLife      = 90 * 24 * time.Hour
)

// Config holds categorizer tuning.
type Config struct {
	MinConfidence float64
	HalfLife      time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence: DefaultMinConfidence,
		HalfLife:      DefaultHalfLife,
	}
}

// Suggestion is a category suggestion for a payee key.
type Suggestion struct {
	CategoryID   string    `json:"category_id"`
	Confidence   float64   `json:"confidence"`
	Observations int       `json:"observations"`
	LastSeen     core.Date `json:"last_seen"`
}

// association counts sightings of one payee/category pair.
type association struct {
	count    int
	lastSeen core.Date
}

// Categorizer holds the learned rules. Safe for concurrent use.
type Categorizer struct {
	cfg    Config
	logger *log.Logger

	mu    sync.Mutex
	rules map[string]map[string]*association
}

// New creates a categorizer. Non-positive config values fall back to the
// defaults.
func New(cfg Config, logger *log.Logger) *Categorizer {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultHalfLife
	}
	return &Categorizer{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentCategorizer),
		rules:  make(map[string]map[string]*association),
	}
}

// PayeeKey returns the rule key for a payee: the ID when known, otherwise
// the normalized display name.
func PayeeKey(payeeID, payeeName string) string {
	if payeeID != "" {
		return payeeID
	}
	return core.NormalizeName(payeeName)
}

// Learn records one observation of key spending in categoryID.
func (c *Categorizer) Learn(key, categoryID string, observedAt core.Date) {
	if key == "" || categoryID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	byCategory := c.rules[key]
	if byCategory == nil {
		byCategory = make(map[string]*association)
		c.rules[key] = byCategory
	}
	a := byCategory[categoryID]
	if a == nil {
		a = &association{}
		byCategory[categoryID] = a
	}
	a.count++
	if observedAt.After(a.lastSeen.Time) {
		a.lastSeen = observedAt
	}
}

// Suggest returns the best category for key. Unknown keys and suggestions
// below the confidence floor return an error wrapping ErrNoSuggestion.
func (c *Categorizer) Suggest(key string) (Suggestion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byCategory := c.rules[key]
	if len(byCategory) == 0 {
		return Suggestion{}, fmt.Errorf("payee key %q: %w", key, core.ErrNoSuggestion)
	}

	type scoredCategory struct {
		categoryID string
		score      float64
		count      int
		lastSeen   core.Date
	}

	now := time.Now()
	var total float64
	ranked := make([]scoredCategory, 0, len(byCategory))
	for categoryID, a := range byCategory {
		score := c.score(a, now)
		total += score
		ranked = append(ranked, scoredCategory{categoryID, score, a.count, a.lastSeen})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if !ranked[i].lastSeen.Equal(ranked[j].lastSeen.Time) {
			return ranked[i].lastSeen.After(ranked[j].lastSeen.Time)
		}
		return ranked[i].categoryID < ranked[j].categoryID
	})

	best := ranked[0]
	if total <= 0 {
		return Suggestion{}, fmt.Errorf("payee key %q: observations fully decayed: %w", key, core.ErrNoSuggestion)
	}
	confidence := best.score / total
	if confidence < c.cfg.MinConfidence {
		return Suggestion{}, fmt.Errorf("payee key %q: confidence %.2f below floor: %w", key, confidence, core.ErrNoSuggestion)
	}

	c.logger.Debug("suggestion",
		log.FieldPayee, key,
		log.FieldCategory, best.categoryID,
		log.FieldConfidence, confidence,
	)
	return Suggestion{
		CategoryID:   best.categoryID,
		Confidence:   confidence,
		Observations: best.count,
		LastSeen:     best.lastSeen,
	}, nil
}

// score weighs an association by count and recency. Half the weight is
// gone after one half-life.
func (c *Categorizer) score(a *association, now time.Time) float64 {
	age := now.Sub(a.lastSeen.Time)
	if age < 0 {
		age = 0
	}
	halfLives := float64(age) / float64(c.cfg.HalfLife)
	return float64(a.count) * math.Pow(0.5, halfLives)
}

// Rules returns the number of payee keys with at least one association.
func (c *Categorizer) Rules() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rules)
}

// SeedFromSnapshot bulk-learns from the snapshot's categorized history
// and returns the number of observations taken. Split transactions never
// teach: their sub-line categories are ambiguous signals for the payee.
func (c *Categorizer) SeedFromSnapshot(snap *core.Snapshot) int {
	learned := 0
	for _, t := range snap.Transactions {
		if t.Deleted || t.IsSplit() || t.CategoryID == "" {
			continue
		}
		key := PayeeKey(t.PayeeID, t.PayeeName)
		if key == "" {
			continue
		}
		c.Learn(key, t.CategoryID, t.Date)
		learned++
	}
	c.logger.Info("seeded payee rules",
		log.FieldCount, learned,
		log.FieldBudgetID, snap.BudgetID,
	)
	return learned
}
