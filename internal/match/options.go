package match

import (
	"fmt"

	"github.com/Veraticus/tally-ho/internal/common"
)

// Default tunables.
const (
	DefaultThreshold     = 70
	DefaultCategoryBoost = 10
)

// Options configures a matching strategy.
type Options struct {
	// Threshold is the minimum similarity score for a mapping.
	Threshold int
	// CategoryBoost is added to in-category scores by the structured
	// strategy before the threshold check.
	CategoryBoost int
}

// DefaultOptions returns the documented default tunables.
func DefaultOptions() Options {
	return Options{
		Threshold:     DefaultThreshold,
		CategoryBoost: DefaultCategoryBoost,
	}
}

// Validate checks that the tunables are within range.
func (o Options) Validate() error {
	if o.Threshold < 0 || o.Threshold > 100 {
		return common.NewConfigurationError(fmt.Sprintf("similarity threshold %d outside [0, 100]", o.Threshold))
	}
	if o.CategoryBoost < 0 || o.CategoryBoost > 100 {
		return common.NewConfigurationError(fmt.Sprintf("category boost %d outside [0, 100]", o.CategoryBoost))
	}
	return nil
}
