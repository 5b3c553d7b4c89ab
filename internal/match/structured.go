package match

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"
)

// StructuredMatcher searches within the label's category first, boosting
// in-category scores, and falls back to the full pool when the partition
// produces nothing above threshold.
type StructuredMatcher struct {
	scorer Scorer
	opts   Options
}

// NewStructuredMatcher creates a category-aware matching strategy.
func NewStructuredMatcher(scorer Scorer, opts Options) (*StructuredMatcher, error) {
	if scorer == nil {
		return nil, common.NewConfigurationError("scorer is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &StructuredMatcher{scorer: scorer, opts: opts}, nil
}

// Match maps every label, preferring accounts in the label's category.
func (m *StructuredMatcher) Match(_ context.Context, labels []model.Label, accounts []model.Account) ([]model.MappingEntry, error) {
	entries := make([]model.MappingEntry, 0, len(labels))
	for i := range labels {
		entries = append(entries, m.matchOne(labels[i], accounts))
	}
	return entries, nil
}

func (m *StructuredMatcher) matchOne(label model.Label, accounts []model.Account) model.MappingEntry {
	if entry, ok := exactMatch(label, accounts); ok {
		return entry
	}

	// Labels without a recognized category go straight to the full pool.
	if label.Category.Known() {
		sameCategory := func(a *model.Account) bool { return a.Category == label.Category }
		if idx, score, found := bestIn(m.scorer, label, accounts, sameCategory); found {
			boosted := score + m.opts.CategoryBoost
			if boosted > 100 {
				boosted = 100
			}
			if boosted >= m.opts.Threshold {
				return mappedEntry(label, accounts[idx], boosted, model.MethodCategoryBoosted,
					fmt.Sprintf("Similarity %d boosted to %d within %s accounts", score, boosted, label.Category))
			}
		}
	}

	// Full pool fallback scores without the boost.
	idx, score, found := bestIn(m.scorer, label, accounts, nil)
	if !found || score < m.opts.Threshold {
		return unmappedEntry(label, m.opts.Threshold)
	}

	return mappedEntry(label, accounts[idx], score, model.MethodFuzzy,
		fmt.Sprintf("Best similarity %d across all accounts", score))
}
