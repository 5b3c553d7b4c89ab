package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/service"
)

// Matcher wraps a provider client with caching, rate limiting, and retry
// behavior. It satisfies the engine's semantic matcher contract.
type Matcher struct {
	client      Client
	cache       *batchCache
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewMatcher creates a semantic matcher for the configured provider.
func NewMatcher(ctx context.Context, cfg Config, logger *slog.Logger) (*Matcher, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic matcher client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Matcher{
		client:      client,
		cache:       newBatchCache(cfg.CacheTTL),
		logger:      logger,
		retryOpts:   retryOptionsFromConfig(cfg),
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// retryOptionsFromConfig translates the retry budget into attempt counts.
// MaxRetries is taken literally: zero means one attempt and no retry.
func retryOptionsFromConfig(cfg Config) service.RetryOptions {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	opts := service.RetryOptions{
		MaxAttempts:  retries + 1,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if opts.InitialDelay == 0 {
		opts.InitialDelay = time.Second
	}
	return opts
}

// MatchBatch resolves one batch through the external service.
func (m *Matcher) MatchBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	key := requestKey(req)
	if key != "" {
		if resp, found := m.cache.get(key); found {
			m.logger.Debug("cache hit for batch",
				"batch_id", req.BatchID,
				"labels", len(req.Labels))
			return resp, nil
		}
	}

	if err := m.rateLimiter.wait(ctx); err != nil {
		return BatchResponse{}, err
	}

	var resp BatchResponse
	operation := func() error {
		r, opErr := m.client.MatchBatch(ctx, req)
		if opErr != nil {
			// Transport and parse failures are both worth one more try
			// against a stochastic service.
			return &common.RetryableError{Err: opErr, Retryable: true}
		}
		resp = r
		return nil
	}

	if err := common.WithRetry(ctx, operation, m.retryOpts); err != nil {
		return BatchResponse{}, err
	}

	if key != "" {
		m.cache.set(key, resp)
	}

	m.logger.Debug("batch matched",
		"batch_id", req.BatchID,
		"labels", len(req.Labels),
		"mode", req.Mode)

	return resp, nil
}

// Close releases the cache, limiter, and underlying client.
func (m *Matcher) Close() error {
	m.cache.Close()
	m.rateLimiter.Close()
	if closer, ok := m.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// requestKey builds a stable cache key from the request contents. The batch
// id is excluded so identical content hits the cache across runs.
func requestKey(req BatchRequest) string {
	payload := struct {
		Labels     []string    `json:"labels"`
		Candidates []Candidate `json:"candidates"`
		Mode       Mode        `json:"mode"`
	}{req.Labels, req.Candidates, req.Mode}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
