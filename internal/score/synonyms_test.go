package score

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSynonyms(t *testing.T) {
	syn := DefaultSynonyms()
	assert.Equal(t, "revenue", syn["sales"])
	assert.Equal(t, "revenue", syn["turnover"])
	assert.Equal(t, "income", syn["profit"])
	assert.Equal(t, "income", syn["earnings"])
}

func TestLoadSynonyms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	data := `synonyms:
  revenue:
    - sales
    - Turnover
  income:
    - profit
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	got, err := LoadSynonyms(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"sales":    "revenue",
		"turnover": "revenue",
		"profit":   "income",
	}, got)
}

func TestLoadSynonymsConflictingAlias(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synonyms.yaml")
	data := `synonyms:
  revenue:
    - sales
  income:
    - sales
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	_, err := LoadSynonyms(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales")
}

func TestLoadSynonymsMissingFile(t *testing.T) {
	_, err := LoadSynonyms(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
