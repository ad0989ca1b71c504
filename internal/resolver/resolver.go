// Package resolver matches human text to budget entities inside one
// snapshot. Resolution is pure: same snapshot, query and options always
// produce the same result.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"bilancio/internal/core"
	"bilancio/internal/log"
)

// DefaultSimilarityThreshold is the floor for the fuzzy stage.
const DefaultSimilarityThreshold = 0.55

// Stage confidences. The fuzzy stage reports the measured similarity
// instead of a constant.
const (
	confidenceExact  = 1.0
	confidencePrefix = 0.9
	confidenceTokens = 0.75
)

// Config holds resolver tuning.
type Config struct {
	SimilarityThreshold float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{SimilarityThreshold: DefaultSimilarityThreshold}
}

// Resolver resolves queries against snapshot entities of one kind.
type Resolver struct {
	cfg    Config
	logger *log.Logger
}

// New creates a resolver. A non-positive threshold falls back to the
// default.
func New(cfg Config, logger *log.Logger) *Resolver {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Resolver{cfg: cfg, logger: logger.WithComponent(log.ComponentResolver)}
}

// Option adjusts one resolution call.
type Option func(*options)

type options struct {
	includeHidden bool
}

// WithHidden opts hidden categories and groups into the candidate set.
func WithHidden() Option {
	return func(o *options) { o.includeHidden = true }
}

type candidate struct {
	id   string
	name string
	norm string
}

type scored struct {
	candidate
	confidence float64
}

// Resolve matches query against the active entities of kind. Exactly one
// hit at the deciding stage returns a Match; several return an
// AmbiguousError ranked by recent activity; none returns a NotFoundError.
func (r *Resolver) Resolve(snap *core.Snapshot, kind core.EntityKind, query string, opts ...Option) (core.Match, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	norm := core.NormalizeName(query)
	if norm == "" {
		return core.Match{}, &core.NotFoundError{Kind: kind, Query: query}
	}

	cands, err := candidatesOf(snap, kind, o.includeHidden)
	if err != nil {
		return core.Match{}, err
	}

	hits := r.match(cands, norm)
	switch len(hits) {
	case 0:
		return core.Match{}, &core.NotFoundError{Kind: kind, Query: query}
	case 1:
		m := core.Match{Kind: kind, ID: hits[0].id, Name: hits[0].name, Confidence: hits[0].confidence}
		r.logger.Debug("resolved",
			log.FieldEntityKind, kind.String(),
			log.FieldQuery, query,
			log.FieldEntityID, m.ID,
			log.FieldConfidence, m.Confidence,
		)
		return m, nil
	}

	return core.Match{}, &core.AmbiguousError{
		Kind:       kind,
		Query:      query,
		Candidates: rankCandidates(snap, kind, hits),
	}
}

// match runs the four stages in order; the first stage with any hit
// decides.
func (r *Resolver) match(cands []candidate, query string) []scored {
	var hits []scored

	for _, c := range cands {
		if c.norm == query {
			hits = append(hits, scored{c, confidenceExact})
		}
	}
	if len(hits) > 0 {
		return hits
	}

	for _, c := range cands {
		if strings.HasPrefix(c.norm, query) {
			hits = append(hits, scored{c, confidencePrefix})
		}
	}
	if len(hits) > 0 {
		return hits
	}

	tokens := strings.Fields(query)
	for _, c := range cands {
		if containsAllTokens(c.norm, tokens) {
			hits = append(hits, scored{c, confidenceTokens})
		}
	}
	if len(hits) > 0 {
		return hits
	}

	for _, c := range cands {
		if sim := similarity(query, c.norm); sim >= r.cfg.SimilarityThreshold {
			hits = append(hits, scored{c, sim})
		}
	}
	return hits
}

func candidatesOf(snap *core.Snapshot, kind core.EntityKind, includeHidden bool) ([]candidate, error) {
	var out []candidate
	add := func(id, name string) {
		out = append(out, candidate{id: id, name: name, norm: core.NormalizeName(name)})
	}

	switch kind {
	case core.KindAccount:
		for _, a := range snap.ActiveAccounts() {
			add(a.ID, a.Name)
		}
	case core.KindGroup:
		for _, g := range snap.ActiveGroups(includeHidden) {
			add(g.ID, g.Name)
		}
	case core.KindCategory:
		for _, c := range snap.ActiveCategories(includeHidden) {
			add(c.ID, c.Name)
		}
	case core.KindPayee:
		for _, p := range snap.ActivePayees() {
			add(p.ID, p.Name)
		}
	default:
		return nil, fmt.Errorf("resolver: kind %q has no name index", kind)
	}
	return out, nil
}

func containsAllTokens(name string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(name, tok) {
			return false
		}
	}
	return true
}

// similarity is 1 - dist/maxLen over runes, so a one-letter typo in a
// ten-letter name scores 0.9.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// rankCandidates orders ambiguous hits by most recent transaction
// activity, then name, so callers can present the likeliest first.
func rankCandidates(snap *core.Snapshot, kind core.EntityKind, hits []scored) []core.Candidate {
	out := make([]core.Candidate, 0, len(hits))
	for _, h := range hits {
		out = append(out, core.Candidate{
			ID:           h.id,
			Name:         h.name,
			LastActivity: snap.LastActivity(kind, h.id),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastActivity, out[j].LastActivity
		if !a.Equal(b.Time) {
			return a.After(b.Time)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
