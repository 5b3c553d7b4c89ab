package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/llm"
)

// SemanticMatcher resolves batches of labels through an external semantic
// service. Implementations must be safe for concurrent use.
type SemanticMatcher interface {
	MatchBatch(ctx context.Context, req llm.BatchRequest) (llm.BatchResponse, error)
}

// Strategy selects how labels are mapped onto accounts.
type Strategy string

// Available mapping strategies.
const (
	// StrategyBasic scores each label against the full account pool.
	StrategyBasic Strategy = "basic"
	// StrategyStructured searches the label's category partition first.
	StrategyStructured Strategy = "structured"
	// StrategySemantic maps labels through the external semantic matcher,
	// falling back to lexical matching per failed batch.
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy converts a user-supplied strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyBasic:
		return StrategyBasic, nil
	case StrategyStructured:
		return StrategyStructured, nil
	case StrategySemantic:
		return StrategySemantic, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownMode, name)
	}
}
