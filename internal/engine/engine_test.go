package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/tally-ho/internal/categorizer"
	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/score"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, semantic SemanticMatcher, config Config) *Engine {
	t.Helper()
	eng, err := NewWithConfig(score.NewScorer(), categorizer.New(), semantic, config)
	require.NoError(t, err)
	return eng
}

func testLabels() []string {
	return []string{"Total Revenue", "Net Income", "Trade Receivables"}
}

func testAccounts() []model.AccountInput {
	return []model.AccountInput{
		{Name: "40000 - Revenue from Sales", Value: decimal.NewFromInt(1000000)},
		{Name: "Profit After Tax", Value: decimal.NewFromInt(250000)},
		{Name: "A1200 - Trade Receivables", Value: decimal.NewFromInt(125000)},
	}
}

func TestCreateSessionStructured(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)
	require.Len(t, session.Entries, 3)
	assert.NotEmpty(t, session.ID)

	revenue := session.Entries[0]
	require.True(t, revenue.Mapped())
	assert.Equal(t, "40000 - Revenue from Sales", revenue.Account.Raw)
	assert.Equal(t, model.MethodCategoryBoosted, revenue.Method)
	assert.Equal(t, 79, revenue.Confidence)
	assert.Equal(t, model.TierMedium, revenue.Tier())

	income := session.Entries[1]
	require.True(t, income.Mapped())
	assert.Equal(t, "Profit After Tax", income.Account.Raw)
	assert.Equal(t, model.MethodFuzzy, income.Method)
	assert.Equal(t, 77, income.Confidence)

	receivables := session.Entries[2]
	require.True(t, receivables.Mapped())
	assert.Equal(t, "A1200 - Trade Receivables", receivables.Account.Raw)
	assert.Equal(t, model.MethodExact, receivables.Method)
	assert.Equal(t, 100, receivables.Confidence)
	assert.Equal(t, model.TierHigh, receivables.Tier())
}

func TestCreateSessionBasic(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyBasic)
	require.NoError(t, err)
	require.Len(t, session.Entries, 3)

	// Without the category boost the best lexical score for "Total
	// Revenue" sits just under the threshold.
	revenue := session.Entries[0]
	assert.False(t, revenue.Mapped())
	assert.Equal(t, model.MethodUnmapped, revenue.Method)
	assert.Equal(t, 0, revenue.Confidence)

	income := session.Entries[1]
	require.True(t, income.Mapped())
	assert.Equal(t, "Profit After Tax", income.Account.Raw)
	assert.Equal(t, 77, income.Confidence)
}

func TestCreateSessionDeterministic(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	first, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)
	second, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)

	assert.Equal(t, first.Entries, second.Entries)
}

func TestCreateSessionDropsBlankLabels(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	labels := []string{"Total Revenue", "", "   ", "Net Income"}
	session, err := eng.CreateSession(context.Background(), labels, testAccounts(), StrategyStructured)
	require.NoError(t, err)

	require.Len(t, session.Entries, 2)
	assert.Equal(t, "Total Revenue", session.Entries[0].Label.Raw)
	assert.Equal(t, "Net Income", session.Entries[1].Label.Raw)
}

func TestCreateSessionEmptyLabels(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	tests := []struct {
		name   string
		labels []string
	}{
		{name: "nil", labels: nil},
		{name: "empty", labels: []string{}},
		{name: "only blank lines", labels: []string{"", "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// An empty template maps to an empty session, not an error.
			session, err := eng.CreateSession(context.Background(), tt.labels, testAccounts(), StrategyStructured)
			require.NoError(t, err)
			assert.Empty(t, session.Entries)
			assert.NotEmpty(t, session.ID)
		})
	}
}

func TestCreateSessionDuplicateLabels(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	labels := []string{"Net Income", "Net Income"}
	session, err := eng.CreateSession(context.Background(), labels, testAccounts(), StrategyStructured)
	require.NoError(t, err)

	require.Len(t, session.Entries, 2)
	assert.Equal(t, session.Entries[0], session.Entries[1])
}

func TestCreateSessionMalformedInput(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	tests := []struct {
		name     string
		labels   []string
		accounts []model.AccountInput
	}{
		{
			name:     "no accounts",
			labels:   testLabels(),
			accounts: nil,
		},
		{
			name:     "account with empty name",
			labels:   testLabels(),
			accounts: []model.AccountInput{{Name: "   ", Value: decimal.NewFromInt(10)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.CreateSession(context.Background(), tt.labels, tt.accounts, StrategyStructured)
			require.Error(t, err)

			var malformed *common.MalformedInputError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestCreateSessionUnknownStrategy(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	_, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), Strategy("psychic"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnknownMode)
}

func TestCreateSessionSemanticRequiresMatcher(t *testing.T) {
	eng := newTestEngine(t, nil, DefaultConfig())

	_, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategySemantic)
	require.Error(t, err)

	var configErr *common.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestNewWithConfigValidation(t *testing.T) {
	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "negative threshold", mutate: func(c *Config) { c.SimilarityThreshold = -1 }},
		{name: "threshold above 100", mutate: func(c *Config) { c.SimilarityThreshold = 101 }},
		{name: "negative boost", mutate: func(c *Config) { c.CategoryBoost = -5 }},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "negative batch size", mutate: func(c *Config) { c.BatchSize = -20 }},
		{name: "zero top-N", mutate: func(c *Config) { c.TopNCandidates = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.PerBatchTimeout = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.MaxBatchRetries = -1 }},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			_, err := NewWithConfig(score.NewScorer(), categorizer.New(), nil, config)
			require.Error(t, err)

			var configErr *common.ConfigurationError
			assert.ErrorAs(t, err, &configErr)
		})
	}
}

func TestNewWithConfigRequiresDependencies(t *testing.T) {
	var configErr *common.ConfigurationError

	_, err := NewWithConfig(nil, categorizer.New(), nil, DefaultConfig())
	require.Error(t, err)
	assert.ErrorAs(t, err, &configErr)

	_, err = NewWithConfig(score.NewScorer(), nil, nil, DefaultConfig())
	require.Error(t, err)
	assert.ErrorAs(t, err, &configErr)
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Strategy
		wantErr bool
	}{
		{name: "basic", input: "basic", want: StrategyBasic},
		{name: "structured", input: "structured", want: StrategyStructured},
		{name: "semantic", input: "semantic", want: StrategySemantic},
		{name: "mixed case", input: "Structured", want: StrategyStructured},
		{name: "padded", input: " semantic ", want: StrategySemantic},
		{name: "unknown", input: "telepathy", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStats(t *testing.T) {
	account := model.Account{Raw: "Revenue from Sales", Normalized: "revenue from sales", Category: model.CategoryRevenue}
	entries := []model.MappingEntry{
		{Label: model.Label{Raw: "A"}, Account: &account, Confidence: 100, Method: model.MethodExact},
		{Label: model.Label{Raw: "B"}, Account: &account, Confidence: 85, Method: model.MethodSemantic},
		{Label: model.Label{Raw: "C"}, Method: model.MethodUnmapped},
	}

	stats := ComputeStats(entries, 2*time.Second)

	assert.Equal(t, 2*time.Second, stats.Duration)
	assert.Equal(t, 3, stats.TotalLabels)
	assert.Equal(t, 2, stats.Mapped)
	assert.Equal(t, 1, stats.Unmapped)
	assert.Equal(t, 1, stats.Refined)
	assert.Equal(t, 1, stats.HighTier)
	assert.Equal(t, 1, stats.MediumTier)
	assert.Equal(t, 1, stats.LowTier)
}

func TestUpgradeExactMatches(t *testing.T) {
	account := model.Account{Raw: "A1200 - Trade Receivables", Normalized: "trade receivables", Category: model.CategoryAsset}
	entries := []model.MappingEntry{
		{
			Label:      model.Label{Raw: "Trade Receivables", Normalized: "trade receivables"},
			Account:    &account,
			Confidence: 82,
			Method:     model.MethodSemantic,
			Reasoning:  "Close match",
		},
		{
			Label:      model.Label{Raw: "Net Income", Normalized: "net income"},
			Account:    &account,
			Confidence: 75,
			Method:     model.MethodFuzzy,
			Reasoning:  "Best similarity 75 across all accounts",
		},
	}

	upgradeExactMatches(entries)

	assert.Equal(t, model.MethodExact, entries[0].Method)
	assert.Equal(t, 100, entries[0].Confidence)

	// Entries whose names differ stay as matched.
	assert.Equal(t, model.MethodFuzzy, entries[1].Method)
	assert.Equal(t, 75, entries[1].Confidence)
}
