// Package matcher resolves free-text winner announcements onto catalog
// category and nominee identities.
//
// Matching is best effort and never fails: a candidate either resolves to a
// (category, nominee) pair or yields a NoMatch reason the caller can log.
package matcher

import (
	"context"
	"strings"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Reason explains why a candidate did not resolve.
type Reason string

// NoMatch reasons.
const (
	ReasonNone             Reason = ""
	ReasonCategoryNotFound Reason = "category_not_found"
	ReasonNomineeNotFound  Reason = "nominee_not_found"
)

// Strategy names the pass that produced a match.
type Strategy string

// Matching passes, in the order they are attempted.
const (
	StrategySubstring    Strategy = "substring"
	StrategyTokens       Strategy = "tokens"
	StrategyExact        Strategy = "exact"
	StrategyStoredHas    Strategy = "stored_contains_candidate"
	StrategyCandidateHas Strategy = "candidate_contains_stored"
)

// Resolution is the tagged outcome of matching one candidate.
// Exactly one of Matched or Reason is meaningful.
type Resolution struct {
	Matched          bool     `json:"matched"`
	Reason           Reason   `json:"reason,omitempty"`
	CategoryID       string   `json:"category_id,omitempty"`
	CategoryName     string   `json:"category_name,omitempty"`
	NomineeID        string   `json:"nominee_id,omitempty"`
	NomineeName      string   `json:"nominee_name,omitempty"`
	CategoryStrategy Strategy `json:"category_strategy,omitempty"`
	NomineeStrategy  Strategy `json:"nominee_strategy,omitempty"`
}

type normalizedNominee struct {
	nominee model.Nominee
	norm    string
}

type normalizedCategory struct {
	category model.Category
	norm     string
	tokens   []string
	nominees []normalizedNominee
}

// Index holds the normalized names of one event's catalog.
type Index struct {
	categories []normalizedCategory
}

// NewIndex normalizes every category and nominee name once.
func NewIndex(categories []model.Category) *Index {
	idx := &Index{categories: make([]normalizedCategory, 0, len(categories))}
	for _, c := range categories {
		nc := normalizedCategory{category: c, norm: Normalize(c.Name)}
		nc.tokens = strings.Fields(nc.norm)
		nc.nominees = make([]normalizedNominee, 0, len(c.Nominees))
		for _, n := range c.Nominees {
			nc.nominees = append(nc.nominees, normalizedNominee{nominee: n, norm: Normalize(n.Name)})
		}
		idx.categories = append(idx.categories, nc)
	}
	return idx
}

// Resolve matches a candidate against the index.
func (idx *Index) Resolve(c model.WinnerCandidate) Resolution {
	cat, strategy, ok := idx.category(Normalize(c.CategoryText))
	if !ok {
		return Resolution{Reason: ReasonCategoryNotFound}
	}
	res := Resolution{
		CategoryID:       cat.category.ID,
		CategoryName:     cat.category.Name,
		CategoryStrategy: strategy,
	}

	nom, nstrategy, ok := nominee(cat.nominees, Normalize(c.WinnerText))
	if !ok {
		res.Reason = ReasonNomineeNotFound
		return res
	}
	res.Matched = true
	res.NomineeID = nom.ID
	res.NomineeName = nom.Name
	res.NomineeStrategy = nstrategy
	return res
}

func (idx *Index) category(text string) (normalizedCategory, Strategy, bool) {
	if text == "" {
		return normalizedCategory{}, "", false
	}
	for _, c := range idx.categories {
		if c.norm == "" {
			continue
		}
		if strings.Contains(text, c.norm) || strings.Contains(c.norm, text) {
			return c, StrategySubstring, true
		}
	}
	// Token fallback prefers the category closest in length so that
	// "best actor" does not swallow "best supporting actor".
	tokens := strings.Fields(text)
	best, bestExtra := -1, 0
	for i, c := range idx.categories {
		if !containsTokens(c.tokens, tokens) && !containsTokens(tokens, c.tokens) {
			continue
		}
		extra := len(c.tokens) - len(tokens)
		if extra < 0 {
			extra = -extra
		}
		if best < 0 || extra < bestExtra {
			best, bestExtra = i, extra
		}
	}
	if best < 0 {
		return normalizedCategory{}, "", false
	}
	return idx.categories[best], StrategyTokens, true
}

func nominee(nominees []normalizedNominee, text string) (model.Nominee, Strategy, bool) {
	if text == "" {
		return model.Nominee{}, "", false
	}
	for _, n := range nominees {
		if n.norm == text {
			return n.nominee, StrategyExact, true
		}
	}
	for _, n := range nominees {
		if n.norm != "" && strings.Contains(n.norm, text) {
			return n.nominee, StrategyStoredHas, true
		}
	}
	for _, n := range nominees {
		if n.norm != "" && strings.Contains(text, n.norm) {
			return n.nominee, StrategyCandidateHas, true
		}
	}
	return model.Nominee{}, "", false
}

// Matcher resolves candidates and reports dropped ones.
type Matcher struct {
	logger logger.Logger
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithLogger sets a custom logger for the matcher.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("matcher")
	}
	return m
}

// Match resolves candidate against an event's categories. A candidate that
// does not resolve is logged with its reason and returned unmatched.
func (m *Matcher) Match(ctx context.Context, eventID string, categories []model.Category, candidate model.WinnerCandidate) Resolution {
	res := NewIndex(categories).Resolve(candidate)
	if !res.Matched {
		metrics.RecordMatchFailure(string(res.Reason))
		m.logger.Warn(ctx, "winner candidate dropped",
			logger.String("event_id", eventID),
			logger.String("reason", string(res.Reason)),
			logger.String("category_text", candidate.CategoryText),
			logger.String("winner_text", candidate.WinnerText),
		)
		return res
	}
	m.logger.Debug(ctx, "winner candidate matched",
		logger.String("event_id", eventID),
		logger.String("category_id", res.CategoryID),
		logger.String("nominee_id", res.NomineeID),
		logger.String("category_strategy", string(res.CategoryStrategy)),
		logger.String("nominee_strategy", string(res.NomineeStrategy)),
	)
	return res
}
