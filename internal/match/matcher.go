// Package match maps statement labels onto chart of account entries using
// lexical similarity. Strategies return exactly one entry per label, in
// label order, and never modify their inputs.
package match

import (
	"context"
	"fmt"

	"github.com/Veraticus/tally-ho/internal/model"
)

// Scorer computes a 0-100 similarity between two normalized names.
type Scorer interface {
	Score(a, b string) int
}

// Strategy produces one mapping entry per label, in label order.
type Strategy interface {
	Match(ctx context.Context, labels []model.Label, accounts []model.Account) ([]model.MappingEntry, error)
}

// exactMatch returns a completed entry when an account's normalized name
// equals the label's. The first such account in pool order wins.
func exactMatch(label model.Label, accounts []model.Account) (model.MappingEntry, bool) {
	if label.Normalized == "" {
		return model.MappingEntry{}, false
	}
	for i := range accounts {
		if accounts[i].Normalized == label.Normalized {
			return mappedEntry(label, accounts[i], 100, model.MethodExact,
				fmt.Sprintf("Exact match on normalized name %q", label.Normalized)), true
		}
	}
	return model.MappingEntry{}, false
}

// bestIn scans the pool for the best scoring account among those the filter
// keeps. Ties go to the candidate sharing the label's category, then to the
// earlier pool position.
func bestIn(s Scorer, label model.Label, accounts []model.Account, keep func(*model.Account) bool) (bestIdx, bestScore int, found bool) {
	bestIdx = -1
	for i := range accounts {
		if keep != nil && !keep(&accounts[i]) {
			continue
		}
		sc := s.Score(label.Normalized, accounts[i].Normalized)
		if !found || sc > bestScore {
			bestIdx, bestScore, found = i, sc, true
			continue
		}
		if sc == bestScore && betterTie(label, &accounts[i], &accounts[bestIdx]) {
			bestIdx = i
		}
	}
	return bestIdx, bestScore, found
}

// betterTie reports whether the challenger wins an equal-score tie against
// the incumbent.
func betterTie(label model.Label, challenger, incumbent *model.Account) bool {
	return challenger.Category == label.Category && incumbent.Category != label.Category
}

func mappedEntry(label model.Label, account model.Account, confidence int, method model.MappingMethod, reasoning string) model.MappingEntry {
	return model.MappingEntry{
		Label:      label,
		Account:    &account,
		Value:      account.Value,
		Confidence: confidence,
		Method:     method,
		Reasoning:  reasoning,
	}
}

func unmappedEntry(label model.Label, threshold int) model.MappingEntry {
	return model.MappingEntry{
		Label:      label,
		Account:    nil,
		Confidence: 0,
		Method:     model.MethodUnmapped,
		Reasoning:  fmt.Sprintf("No account scored at or above threshold %d", threshold),
	}
}
