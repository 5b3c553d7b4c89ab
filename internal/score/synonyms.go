package score

import (
	"fmt"
	"os"

	"github.com/Veraticus/tally-ho/internal/normalize"

	"gopkg.in/yaml.v3"
)

// DefaultSynonyms returns the built-in alias table mapping common financial
// terms onto a canonical token. Keys are aliases, values are canonical.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		"sales":     "revenue",
		"turnover":  "revenue",
		"profit":    "income",
		"earnings":  "income",
		"debtors":   "receivables",
		"creditors": "payables",
		"stock":     "inventory",
	}
}

// synonymsFile is the on-disk shape: each canonical term lists its aliases.
type synonymsFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadSynonyms reads an alias table from a YAML file. Each entry maps a
// canonical term to the aliases that should collapse onto it. Aliases are
// normalized before use, and an alias may not map to two different
// canonical terms.
func LoadSynonyms(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading synonyms file: %w", err)
	}

	var file synonymsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing synonyms file: %w", err)
	}

	out := make(map[string]string)
	for canonical, aliases := range file.Synonyms {
		canon := normalize.Normalize(canonical)
		if canon == "" {
			return nil, fmt.Errorf("synonyms file: empty canonical term")
		}
		for _, alias := range aliases {
			a := normalize.Normalize(alias)
			if a == "" {
				return nil, fmt.Errorf("synonyms file: empty alias for %q", canonical)
			}
			if existing, ok := out[a]; ok && existing != canon {
				return nil, fmt.Errorf("synonyms file: alias %q maps to both %q and %q", a, existing, canon)
			}
			out[a] = canon
		}
	}
	return out, nil
}
