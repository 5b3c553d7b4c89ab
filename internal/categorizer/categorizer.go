// Package categorizer classifies normalized label and account names into
// coarse financial statement categories.
package categorizer

import (
	"fmt"
	"os"

	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/normalize"

	"gopkg.in/yaml.v3"
)

// entry pairs a category with its keyword set. Entries are evaluated in
// order; the first category whose keywords intersect the input's token set
// wins.
type entry struct {
	keywords map[string]struct{}
	category model.Category
}

// Categorizer resolves normalized names to categories by keyword lookup.
type Categorizer struct {
	entries []entry
}

// New returns a categorizer with the default keyword table.
func New() *Categorizer {
	return &Categorizer{entries: buildEntries(defaultKeywords())}
}

// NewFromConfig returns a categorizer using the keyword table from cfg.
func NewFromConfig(cfg Config) (*Categorizer, error) {
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("categorizer config has no categories")
	}

	ordered := make([]keywordSet, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		category := model.Category(c.Category)
		switch category {
		case model.CategoryRevenue, model.CategoryExpense, model.CategoryAsset,
			model.CategoryLiability, model.CategoryEquity:
		default:
			return nil, fmt.Errorf("unknown category %q in categorizer config", c.Category)
		}
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", c.Category)
		}
		ordered = append(ordered, keywordSet{Category: category, Keywords: c.Keywords})
	}

	return &Categorizer{entries: buildEntries(ordered)}, nil
}

// Categorize returns the first category whose keyword set intersects the
// token set of the normalized input, or Unknown when none match.
func (c *Categorizer) Categorize(normalized string) model.Category {
	tokens := normalize.Tokens(normalized)
	if len(tokens) == 0 {
		return model.CategoryUnknown
	}

	for _, e := range c.entries {
		for _, tok := range tokens {
			if _, ok := e.keywords[tok]; ok {
				return e.category
			}
		}
	}

	return model.CategoryUnknown
}

// Config is the on-disk shape of a keyword table. The list order defines
// tie-break priority.
type Config struct {
	Categories []CategoryConfig `yaml:"categories"`
}

// CategoryConfig is one category's keyword list.
type CategoryConfig struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// LoadConfig reads a keyword table from a YAML file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read categorizer config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse categorizer config: %w", err)
	}

	return cfg, nil
}

func buildEntries(sets []keywordSet) []entry {
	entries := make([]entry, 0, len(sets))
	for _, s := range sets {
		kw := make(map[string]struct{}, len(s.Keywords))
		for _, k := range s.Keywords {
			kw[normalize.Normalize(k)] = struct{}{}
		}
		entries = append(entries, entry{category: s.Category, keywords: kw})
	}
	return entries
}
