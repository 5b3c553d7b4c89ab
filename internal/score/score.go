// Package score computes lexical similarity between normalized names on a
// 0-100 scale. The score blends a token-set measure (order and duplicate
// independent) with a partial measure that rewards containment of the
// shorter name in the longer one.
package score

import (
	"math"
	"sort"
	"strings"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/normalize"

	"github.com/agnivade/levenshtein"
)

// Default measure weights.
const (
	DefaultTokenSetWeight = 0.7
	DefaultPartialWeight  = 0.3
)

// Tokens at least this long count as shared when within one edit of each
// other, which absorbs plural forms and single-character typos.
const fuzzyTokenMinLen = 5

// Options configures a Scorer.
type Options struct {
	Synonyms       map[string]string
	TokenSetWeight float64
	PartialWeight  float64
}

// DefaultOptions returns the documented default weighting with the built-in
// synonym table.
func DefaultOptions() Options {
	return Options{
		TokenSetWeight: DefaultTokenSetWeight,
		PartialWeight:  DefaultPartialWeight,
		Synonyms:       DefaultSynonyms(),
	}
}

// Scorer computes similarity scores. It is stateless after construction and
// safe for concurrent use.
type Scorer struct {
	synonyms       map[string]string
	tokenSetWeight float64
	partialWeight  float64
}

// NewScorer returns a scorer with default options.
func NewScorer() *Scorer {
	s, _ := NewScorerWithOptions(DefaultOptions())
	return s
}

// NewScorerWithOptions returns a scorer with the given options.
func NewScorerWithOptions(opts Options) (*Scorer, error) {
	if opts.TokenSetWeight < 0 || opts.PartialWeight < 0 {
		return nil, common.NewConfigurationError("score weights must be non-negative")
	}
	sum := opts.TokenSetWeight + opts.PartialWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, common.NewConfigurationError("score weights must sum to 1")
	}

	return &Scorer{
		tokenSetWeight: opts.TokenSetWeight,
		partialWeight:  opts.PartialWeight,
		synonyms:       opts.Synonyms,
	}, nil
}

// Score returns the similarity of two normalized names as an integer in
// [0, 100]. It is symmetric, and identical non-empty inputs score 100.
func (s *Scorer) Score(a, b string) int {
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}

	ta := s.canonicalTokens(a)
	tb := s.canonicalTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	tokenSet := tokenSetRatio(ta, tb)
	partial := partialRatio(strings.Join(ta, " "), strings.Join(tb, " "))

	combined := s.tokenSetWeight*tokenSet + s.partialWeight*partial
	return clampScore(int(math.Round(combined)))
}

// canonicalTokens maps a normalized string to its sorted unique token list
// with synonyms collapsed onto their canonical term.
func (s *Scorer) canonicalTokens(normalized string) []string {
	fields := normalize.Tokens(normalized)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if canon, ok := s.synonyms[tok]; ok {
			tok = canon
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	sort.Strings(out)
	return out
}

// tokenSetRatio compares the two token sets the way fuzzy token-set
// matching does: build the shared-token string and the two full strings
// (shared + leftovers), then take the best pairwise character ratio.
func tokenSetRatio(ta, tb []string) float64 {
	matchedA := make([]bool, len(ta))
	matchedB := make([]bool, len(tb))
	for i, x := range ta {
		for j, y := range tb {
			if equivToken(x, y) {
				matchedA[i] = true
				matchedB[j] = true
			}
		}
	}

	shared := make([]string, 0, len(ta))
	sharedSeen := make(map[string]struct{})
	for i, ok := range matchedA {
		if ok {
			addUnique(&shared, sharedSeen, ta[i])
		}
	}
	for j, ok := range matchedB {
		if ok {
			addUnique(&shared, sharedSeen, tb[j])
		}
	}
	sort.Strings(shared)

	var restA, restB []string
	for i, ok := range matchedA {
		if !ok {
			restA = append(restA, ta[i])
		}
	}
	for j, ok := range matchedB {
		if !ok {
			restB = append(restB, tb[j])
		}
	}

	s0 := strings.Join(shared, " ")
	s1 := strings.TrimSpace(s0 + " " + strings.Join(restA, " "))
	s2 := strings.TrimSpace(s0 + " " + strings.Join(restB, " "))

	best := lcsRatio(s0, s1)
	if r := lcsRatio(s0, s2); r > best {
		best = r
	}
	if r := lcsRatio(s1, s2); r > best {
		best = r
	}
	return best
}

// partialRatio scores the shorter string against every equal-length window
// of the longer one. Full containment scores 100.
func partialRatio(x, y string) float64 {
	if x == "" || y == "" {
		return 0
	}

	shorter, longer := []rune(x), []rune(y)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(string(longer), string(shorter)) {
		return 100
	}

	w := len(shorter)
	var best float64
	for i := 0; i+w <= len(longer); i++ {
		if r := lcsRatio(string(shorter), string(longer[i:i+w])); r > best {
			best = r
		}
	}
	return best
}

// equivToken reports whether two tokens count as the same for set
// intersection purposes.
func equivToken(x, y string) bool {
	if x == y {
		return true
	}
	if len(x) < fuzzyTokenMinLen || len(y) < fuzzyTokenMinLen {
		return false
	}
	return levenshtein.ComputeDistance(x, y) <= 1
}

// lcsRatio is the difflib-style character ratio: twice the longest common
// subsequence over the combined length, scaled to 0-100.
func lcsRatio(x, y string) float64 {
	if x == y {
		if x == "" {
			return 0
		}
		return 100
	}
	if x == "" || y == "" {
		return 0
	}

	rx, ry := []rune(x), []rune(y)
	l := lcsLength(rx, ry)
	return 200 * float64(l) / float64(len(rx)+len(ry))
}

func lcsLength(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func addUnique(dst *[]string, seen map[string]struct{}, tok string) {
	if _, dup := seen[tok]; dup {
		return
	}
	seen[tok] = struct{}{}
	*dst = append(*dst, tok)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
