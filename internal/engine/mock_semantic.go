package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/tally-ho/internal/llm"
	"github.com/Veraticus/tally-ho/internal/normalize"
)

// MockSemanticMatcher is a deterministic SemanticMatcher for tests and
// offline runs. It answers by normalized token overlap against the request
// candidates and records every request it sees.
type MockSemanticMatcher struct {
	// Matches pins specific answers by raw label text, bypassing the
	// token overlap heuristic. The pinned name does not have to exist in
	// the candidate list.
	Matches map[string]string
	mu      sync.Mutex

	requests []llm.BatchRequest
	failed   int

	// FailBatches makes the first n calls fail before any matching.
	FailBatches int
	// Confidence is assigned to every mapped result.
	Confidence int
}

// NewMockSemanticMatcher creates a mock matcher with a default confidence.
func NewMockSemanticMatcher() *MockSemanticMatcher {
	return &MockSemanticMatcher{Confidence: 85}
}

// MatchBatch answers one batch deterministically.
func (m *MockSemanticMatcher) MatchBatch(_ context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.failed < m.FailBatches {
		m.failed++
		return llm.BatchResponse{}, fmt.Errorf("mock batch failure %d", m.failed)
	}

	resp := llm.BatchResponse{BatchID: req.BatchID}
	for _, label := range req.Labels {
		match := llm.BatchMatch{Label: label}

		if pinned, ok := m.Matches[label]; ok {
			name := pinned
			match.Account = &name
			match.Confidence = m.Confidence
			match.Reasoning = "Pinned answer"
			resp.Matches = append(resp.Matches, match)
			continue
		}

		if best, ok := closestCandidate(label, req.Candidates); ok {
			name := best
			match.Account = &name
			match.Confidence = m.Confidence
			match.Reasoning = "Closest candidate by shared tokens"
		} else {
			match.Reasoning = "No candidate shares tokens with this label"
		}
		resp.Matches = append(resp.Matches, match)
	}
	return resp, nil
}

// Requests returns a copy of every recorded request.
func (m *MockSemanticMatcher) Requests() []llm.BatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	requests := make([]llm.BatchRequest, len(m.requests))
	copy(requests, m.requests)
	return requests
}

// RequestCount returns how many batches were received.
func (m *MockSemanticMatcher) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reset clears recorded requests and the failure counter.
func (m *MockSemanticMatcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.failed = 0
}

// closestCandidate picks the candidate sharing the most normalized tokens
// with the label. Earlier candidates win ties.
func closestCandidate(label string, candidates []llm.Candidate) (string, bool) {
	labelTokens := normalize.TokenSet(normalize.Normalize(label))

	best := ""
	bestShared := 0
	for _, c := range candidates {
		shared := 0
		for tok := range normalize.TokenSet(normalize.Normalize(c.Name)) {
			if _, ok := labelTokens[tok]; ok {
				shared++
			}
		}
		if shared > bestShared {
			best, bestShared = c.Name, shared
		}
	}
	return best, bestShared > 0
}
