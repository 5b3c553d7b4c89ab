package match

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"
)

// BasicMatcher maps each label to its best scoring account across the whole
// pool, ignoring category partitions.
type BasicMatcher struct {
	scorer Scorer
	opts   Options
}

// NewBasicMatcher creates a basic matching strategy.
func NewBasicMatcher(scorer Scorer, opts Options) (*BasicMatcher, error) {
	if scorer == nil {
		return nil, common.NewConfigurationError("scorer is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &BasicMatcher{scorer: scorer, opts: opts}, nil
}

// Match maps every label against the full account pool.
func (m *BasicMatcher) Match(_ context.Context, labels []model.Label, accounts []model.Account) ([]model.MappingEntry, error) {
	entries := make([]model.MappingEntry, 0, len(labels))
	for i := range labels {
		entries = append(entries, m.matchOne(labels[i], accounts))
	}
	return entries, nil
}

func (m *BasicMatcher) matchOne(label model.Label, accounts []model.Account) model.MappingEntry {
	if entry, ok := exactMatch(label, accounts); ok {
		return entry
	}

	idx, score, found := bestIn(m.scorer, label, accounts, nil)
	if !found || score < m.opts.Threshold {
		return unmappedEntry(label, m.opts.Threshold)
	}

	return mappedEntry(label, accounts[idx], score, model.MethodFuzzy,
		fmt.Sprintf("Best similarity %d across all accounts", score))
}
