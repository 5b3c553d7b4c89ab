package llm

import (
	"context"
	"time"
)

// Mode selects which matching pass a request belongs to.
type Mode string

// Matching pass modes.
const (
	// ModeInitial maps every label from scratch.
	ModeInitial Mode = "initial"
	// ModeDoubleCheck re-examines low and medium confidence entries
	// against a narrowed candidate list.
	ModeDoubleCheck Mode = "double-check"
)

// Candidate is one account name and value offered to the service.
type Candidate struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// BatchRequest is one batch of labels sent to the external matcher.
type BatchRequest struct {
	BatchID    string      `json:"batch_id"`
	Labels     []string    `json:"labels"`
	Candidates []Candidate `json:"candidates"`
	Mode       Mode        `json:"mode"`
}

// BatchMatch is one label's result within a batch response. Account is nil
// when the service declines to map the label.
type BatchMatch struct {
	Account    *string `json:"account"`
	Label      string  `json:"label"`
	Reasoning  string  `json:"reasoning"`
	Confidence int     `json:"confidence"`
}

// BatchResponse is the structured reply for one batch.
type BatchResponse struct {
	BatchID string       `json:"batch_id"`
	Matches []BatchMatch `json:"matches"`
}

// Client defines the interface for semantic matching providers.
type Client interface {
	MatchBatch(ctx context.Context, req BatchRequest) (BatchResponse, error)
}

// Config holds configuration for the semantic matcher.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// temperatureFor lowers the sampling temperature for the double-check pass.
func temperatureFor(base float64, mode Mode) float64 {
	if mode != ModeDoubleCheck {
		return base
	}
	halved := base / 2
	if halved < 0.01 {
		halved = 0.01
	}
	return halved
}
