package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/tally-ho/internal/llm"
	"github.com/Veraticus/tally-ho/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemanticStrategyMapsAllLabels(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Matches = map[string]string{"Net Income": "Profit After Tax"}

	eng := newTestEngine(t, mock, DefaultConfig())
	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategySemantic)
	require.NoError(t, err)
	require.Len(t, session.Entries, 3)

	revenue := session.Entries[0]
	require.True(t, revenue.Mapped())
	assert.Equal(t, "40000 - Revenue from Sales", revenue.Account.Raw)
	assert.Equal(t, model.MethodSemantic, revenue.Method)
	assert.Equal(t, 85, revenue.Confidence)
	assert.True(t, strings.HasPrefix(revenue.Reasoning, revalidatedPrefix))

	income := session.Entries[1]
	require.True(t, income.Mapped())
	assert.Equal(t, "Profit After Tax", income.Account.Raw)
	assert.Equal(t, model.MethodSemantic, income.Method)

	// The semantic answer lands on the account whose normalized name
	// equals the label, so the pipeline upgrades it.
	receivables := session.Entries[2]
	assert.Equal(t, model.MethodExact, receivables.Method)
	assert.Equal(t, 100, receivables.Confidence)

	requests := mock.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, llm.ModeInitial, requests[0].Mode)
	assert.Len(t, requests[0].Labels, 3)
	assert.Len(t, requests[0].Candidates, 3)
	assert.Equal(t, llm.ModeDoubleCheck, requests[1].Mode)
	assert.Len(t, requests[1].Labels, 2)
}

func TestSemanticFallbackOnTotalFailure(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.FailBatches = 1000

	eng := newTestEngine(t, mock, DefaultConfig())
	semantic, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategySemantic)
	require.NoError(t, err)

	structured, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)

	// With every batch failing, the refined mapping is exactly what the
	// structured strategy alone produces.
	assert.Equal(t, structured.Entries, semantic.Entries)
}

func TestSemanticUnknownAccountFallsBack(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Matches = map[string]string{"Net Income": "Bogus Account"}

	eng := newTestEngine(t, mock, DefaultConfig())
	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategySemantic)
	require.NoError(t, err)

	// The label the service pointed at a nonexistent account keeps its
	// lexical result, in both passes.
	income := session.Entries[1]
	require.True(t, income.Mapped())
	assert.Equal(t, "Profit After Tax", income.Account.Raw)
	assert.Equal(t, model.MethodFuzzy, income.Method)
	assert.Equal(t, 77, income.Confidence)
	assert.False(t, strings.HasPrefix(income.Reasoning, revalidatedPrefix))
}

func TestRefineSkipsHighConfidenceEntries(t *testing.T) {
	mock := NewMockSemanticMatcher()
	eng := newTestEngine(t, mock, DefaultConfig())

	labels := []string{"40000 - Revenue from Sales", "A1200 - Trade Receivables"}
	session, err := eng.CreateSession(context.Background(), labels, testAccounts(), StrategyStructured)
	require.NoError(t, err)
	require.Equal(t, 100, session.Entries[0].Confidence)
	require.Equal(t, 100, session.Entries[1].Confidence)

	require.NoError(t, eng.Refine(context.Background(), session))
	assert.Equal(t, 0, mock.RequestCount())
}

func TestRefineRaisesConfidenceOnConfirmation(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Confidence = 95
	mock.Matches = map[string]string{"Net Income": "Profit After Tax"}

	eng := newTestEngine(t, mock, DefaultConfig())
	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)
	require.Equal(t, 79, session.Entries[0].Confidence)
	require.Equal(t, 77, session.Entries[1].Confidence)

	require.NoError(t, eng.Refine(context.Background(), session))

	revenue := session.Entries[0]
	assert.Equal(t, 95, revenue.Confidence)
	assert.Equal(t, model.MethodSemantic, revenue.Method)
	assert.True(t, strings.HasPrefix(revenue.Reasoning, revalidatedPrefix))
	assert.Equal(t, model.TierHigh, revenue.Tier())

	income := session.Entries[1]
	assert.Equal(t, "Profit After Tax", income.Account.Raw)
	assert.Equal(t, 95, income.Confidence)

	assert.Equal(t, 1, mock.RequestCount())
}

func TestRefineIgnoresLowerConfidenceAlternative(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Confidence = 60
	mock.Matches = map[string]string{"Net Income": "40000 - Revenue from Sales"}

	eng := newTestEngine(t, mock, DefaultConfig())
	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)
	before := session.Entries[1]

	require.NoError(t, eng.Refine(context.Background(), session))

	// A different account at lower confidence does not displace the
	// current mapping.
	income := session.Entries[1]
	assert.Equal(t, before.Account.Raw, income.Account.Raw)
	assert.Equal(t, before.Confidence, income.Confidence)
	assert.Equal(t, before.Method, income.Method)
	assert.Equal(t, before.Reasoning, income.Reasoning)
}

func TestRefineReplacesWithHigherConfidenceAlternative(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Confidence = 88
	mock.Matches = map[string]string{"Net Income": "40000 - Revenue from Sales"}

	eng := newTestEngine(t, mock, DefaultConfig())
	session, err := eng.CreateSession(context.Background(), testLabels(), testAccounts(), StrategyStructured)
	require.NoError(t, err)
	require.Equal(t, "Profit After Tax", session.Entries[1].Account.Raw)

	require.NoError(t, eng.Refine(context.Background(), session))

	income := session.Entries[1]
	assert.Equal(t, "40000 - Revenue from Sales", income.Account.Raw)
	assert.Equal(t, 88, income.Confidence)
	assert.Equal(t, model.MethodSemantic, income.Method)
	assert.Equal(t, "Pinned answer", income.Reasoning)
}

func TestRefineNarrowsCandidates(t *testing.T) {
	pool := []model.AccountInput{
		{Name: "Profit After Tax", Value: decimal.NewFromInt(250000)},
		{Name: "Warehouse Rent", Value: decimal.NewFromInt(1)},
		{Name: "Office Supplies", Value: decimal.NewFromInt(2)},
		{Name: "Machinery", Value: decimal.NewFromInt(3)},
		{Name: "Land and Buildings", Value: decimal.NewFromInt(4)},
		{Name: "Goodwill", Value: decimal.NewFromInt(5)},
		{Name: "Bank Overdraft", Value: decimal.NewFromInt(6)},
		{Name: "Share Premium", Value: decimal.NewFromInt(7)},
		{Name: "Retained Earnings", Value: decimal.NewFromInt(8)},
		{Name: "Accrued Wages", Value: decimal.NewFromInt(9)},
		{Name: "Prepaid Insurance", Value: decimal.NewFromInt(10)},
		{Name: "Deferred Consideration", Value: decimal.NewFromInt(11)},
	}

	config := DefaultConfig()
	config.TopNCandidates = 3

	mock := NewMockSemanticMatcher()
	eng := newTestEngine(t, mock, config)

	session, err := eng.CreateSession(context.Background(), []string{"Net Income"}, pool, StrategyStructured)
	require.NoError(t, err)
	require.True(t, session.Entries[0].Confidence < model.HighConfidenceFloor)

	require.NoError(t, eng.Refine(context.Background(), session))

	requests := mock.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, llm.ModeDoubleCheck, requests[0].Mode)
	require.Len(t, requests[0].Candidates, 3)

	names := make([]string, 0, len(requests[0].Candidates))
	for _, c := range requests[0].Candidates {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Profit After Tax")
}

func TestSemanticBatchSplitting(t *testing.T) {
	labels := make([]string, 25)
	for i := range labels {
		labels[i] = fmt.Sprintf("Line Item %d Revenue", i+1)
	}
	pool := []model.AccountInput{{Name: "General Revenue", Value: decimal.NewFromInt(5)}}

	config := DefaultConfig()
	config.BatchSize = 10

	mock := NewMockSemanticMatcher()
	eng := newTestEngine(t, mock, config)

	session, err := eng.CreateSession(context.Background(), labels, pool, StrategySemantic)
	require.NoError(t, err)
	require.Len(t, session.Entries, 25)

	for i, entry := range session.Entries {
		require.True(t, entry.Mapped(), "entry %d unmapped", i)
		assert.Equal(t, "General Revenue", entry.Account.Raw)
	}

	var initial, doubleCheck []llm.BatchRequest
	for _, req := range mock.Requests() {
		switch req.Mode {
		case llm.ModeInitial:
			initial = append(initial, req)
		case llm.ModeDoubleCheck:
			doubleCheck = append(doubleCheck, req)
		}
	}

	require.Len(t, initial, 3)
	assert.Len(t, initial[0].Labels, 10)
	assert.Len(t, initial[1].Labels, 10)
	assert.Len(t, initial[2].Labels, 5)
	require.Len(t, doubleCheck, 3)
}

func TestConcurrentDispatchPreservesOrder(t *testing.T) {
	labels := make([]string, 40)
	for i := range labels {
		labels[i] = fmt.Sprintf("Line Item %d Revenue", i+1)
	}
	pool := []model.AccountInput{{Name: "General Revenue", Value: decimal.NewFromInt(5)}}

	config := DefaultConfig()
	config.BatchSize = 5
	config.Workers = 4

	mock := NewMockSemanticMatcher()
	eng := newTestEngine(t, mock, config)

	session, err := eng.CreateSession(context.Background(), labels, pool, StrategySemantic)
	require.NoError(t, err)
	require.Len(t, session.Entries, 40)

	for i, entry := range session.Entries {
		assert.Equal(t, labels[i], entry.Label.Raw, "entry %d out of order", i)
		require.True(t, entry.Mapped(), "entry %d unmapped", i)
		assert.Equal(t, model.MethodSemantic, entry.Method)
	}
}

// cancelAfterFirst cancels the run after its first successful batch.
type cancelAfterFirst struct {
	inner  SemanticMatcher
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelAfterFirst) MatchBatch(ctx context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
	resp, err := c.inner.MatchBatch(ctx, req)
	c.once.Do(c.cancel)
	return resp, err
}

func TestCancellationKeepsCompletedBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := NewMockSemanticMatcher()
	mock.Matches = map[string]string{"Net Income": "Profit After Tax"}
	wrapped := &cancelAfterFirst{inner: mock, cancel: cancel}

	config := DefaultConfig()
	config.BatchSize = 2

	labels := []string{
		"Total Revenue", "Net Income",
		"Trade Receivables", "Total Revenue",
		"Net Income", "Trade Receivables",
	}

	eng := newTestEngine(t, wrapped, config)
	session, err := eng.CreateSession(ctx, labels, testAccounts(), StrategySemantic)
	require.NoError(t, err)
	require.Len(t, session.Entries, 6)

	// The first batch completed before cancellation and keeps its
	// semantic results.
	assert.Equal(t, model.MethodSemantic, session.Entries[0].Method)
	assert.Equal(t, model.MethodSemantic, session.Entries[1].Method)

	// The rest never reached the service and match lexical output.
	reference := newTestEngine(t, nil, config)
	structured, err := reference.CreateSession(context.Background(), labels, testAccounts(), StrategyStructured)
	require.NoError(t, err)
	assert.Equal(t, structured.Entries[2:], session.Entries[2:])
}

func TestProgressCallback(t *testing.T) {
	mock := NewMockSemanticMatcher()
	mock.Matches = map[string]string{"Net Income": "Profit After Tax"}

	config := DefaultConfig()
	config.BatchSize = 2

	eng := newTestEngine(t, mock, config)

	type call struct{ done, total int }
	var calls []call
	eng.SetProgress(func(done, total int) {
		calls = append(calls, call{done, total})
	})

	labels := []string{"Total Revenue", "Net Income", "Total Revenue", "Net Income"}
	_, err := eng.CreateSession(context.Background(), labels, testAccounts(), StrategySemantic)
	require.NoError(t, err)

	expected := []call{{2, 4}, {4, 4}, {2, 4}, {4, 4}}
	assert.Equal(t, expected, calls)
}
