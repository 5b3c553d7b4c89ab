// Package engine orchestrates the mapping pipeline: it normalizes and
// categorizes both sides of the input, runs the selected matching strategy,
// refines low confidence entries through the external semantic matcher, and
// hands back a session ready for review.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/tally-ho/internal/categorizer"
	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/match"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/normalize"
	"github.com/Veraticus/tally-ho/internal/service"

	"github.com/google/uuid"
)

// Config holds the engine tunables.
type Config struct {
	// SimilarityThreshold is the minimum score for a lexical mapping.
	SimilarityThreshold int
	// CategoryBoost is added to in-category scores by the structured
	// strategy.
	CategoryBoost int
	// BatchSize bounds how many labels go into one semantic request.
	BatchSize int
	// TopNCandidates limits candidates per label in the double-check pass.
	TopNCandidates int
	// PerBatchTimeout bounds one semantic batch call.
	PerBatchTimeout time.Duration
	// MaxBatchRetries is how many extra attempts a failing batch gets.
	MaxBatchRetries int
	// Workers is the number of concurrent batch dispatchers. 1 means
	// sequential.
	Workers int
	// RequireFullCoverage blocks Accept while unmapped entries remain.
	RequireFullCoverage bool
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: match.DefaultThreshold,
		CategoryBoost:       match.DefaultCategoryBoost,
		BatchSize:           20,
		TopNCandidates:      10,
		PerBatchTimeout:     30 * time.Second,
		MaxBatchRetries:     1,
		Workers:             1,
	}
}

// Validate checks the tunables and fails fast on anything out of range.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100 {
		return common.NewConfigurationError(fmt.Sprintf("similarity threshold %d outside [0, 100]", c.SimilarityThreshold))
	}
	if c.CategoryBoost < 0 || c.CategoryBoost > 100 {
		return common.NewConfigurationError(fmt.Sprintf("category boost %d outside [0, 100]", c.CategoryBoost))
	}
	if c.BatchSize <= 0 {
		return common.NewConfigurationError(fmt.Sprintf("batch size %d must be positive", c.BatchSize))
	}
	if c.TopNCandidates <= 0 {
		return common.NewConfigurationError(fmt.Sprintf("top-N candidate count %d must be positive", c.TopNCandidates))
	}
	if c.PerBatchTimeout <= 0 {
		return common.NewConfigurationError("per-batch timeout must be positive")
	}
	if c.MaxBatchRetries < 0 {
		return common.NewConfigurationError(fmt.Sprintf("max batch retries %d must not be negative", c.MaxBatchRetries))
	}
	if c.Workers < 1 {
		return common.NewConfigurationError(fmt.Sprintf("worker count %d must be at least 1", c.Workers))
	}
	return nil
}

// Engine wires the scorer, categorizer, and matching strategies together.
type Engine struct {
	scorer      match.Scorer
	categorizer *categorizer.Categorizer
	basic       *match.BasicMatcher
	structured  *match.StructuredMatcher
	semantic    SemanticMatcher
	progress    func(completed, total int)
	config      Config
}

// New creates an engine with default tunables. The semantic matcher may be
// nil when only lexical strategies are used.
func New(scorer match.Scorer, cat *categorizer.Categorizer, semantic SemanticMatcher) (*Engine, error) {
	return NewWithConfig(scorer, cat, semantic, DefaultConfig())
}

// NewWithConfig creates an engine with custom tunables.
func NewWithConfig(scorer match.Scorer, cat *categorizer.Categorizer, semantic SemanticMatcher, config Config) (*Engine, error) {
	if scorer == nil {
		return nil, common.NewConfigurationError("scorer is required")
	}
	if cat == nil {
		return nil, common.NewConfigurationError("categorizer is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := match.Options{
		Threshold:     config.SimilarityThreshold,
		CategoryBoost: config.CategoryBoost,
	}
	basic, err := match.NewBasicMatcher(scorer, opts)
	if err != nil {
		return nil, err
	}
	structured, err := match.NewStructuredMatcher(scorer, opts)
	if err != nil {
		return nil, err
	}

	return &Engine{
		scorer:      scorer,
		categorizer: cat,
		basic:       basic,
		structured:  structured,
		semantic:    semantic,
		config:      config,
	}, nil
}

// SetProgress registers a callback invoked as semantic batches complete,
// with counts of processed and total labels. Must not be changed while a
// mapping operation is running.
func (e *Engine) SetProgress(fn func(completed, total int)) {
	e.progress = fn
}

// CreateSession maps every label onto the account pool using the given
// strategy and returns a reviewable session.
func (e *Engine) CreateSession(ctx context.Context, labels []string, accounts []model.AccountInput, strategy Strategy) (*Session, error) {
	start := time.Now()

	pool, err := e.prepareAccounts(accounts)
	if err != nil {
		return nil, err
	}

	// An empty template is not malformed: it simply yields an empty
	// session, one entry per label holding for zero labels too.
	prepared, dropped := e.prepareLabels(labels)
	if dropped > 0 {
		slog.Debug("Dropped blank labels", "count", dropped)
	}

	var entries []model.MappingEntry
	switch strategy {
	case StrategyBasic:
		entries, err = e.basic.Match(ctx, prepared, pool)
	case StrategyStructured:
		entries, err = e.structured.Match(ctx, prepared, pool)
	case StrategySemantic:
		if e.semantic == nil {
			return nil, common.NewConfigurationError("semantic strategy requires a configured semantic matcher")
		}
		entries, err = e.runInitialPass(ctx, prepared, pool)
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownMode, strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to map labels: %w", err)
	}

	upgradeExactMatches(entries)

	session := &Session{
		ID:                  uuid.New().String(),
		CreatedAt:           time.Now().UTC(),
		Accounts:            pool,
		Entries:             entries,
		requireFullCoverage: e.config.RequireFullCoverage,
	}

	if strategy == StrategySemantic {
		if err := e.Refine(ctx, session); err != nil {
			return nil, err
		}
	}

	stats := ComputeStats(session.Entries, time.Since(start))
	slog.Info("Mapping session created",
		"session_id", session.ID,
		"strategy", string(strategy),
		"labels", stats.TotalLabels,
		"mapped", stats.Mapped,
		"unmapped", stats.Unmapped,
		"duration", stats.Duration)

	return session, nil
}

// prepareAccounts normalizes and categorizes the raw account rows. Every
// raw name stays a distinct account even when two normalize identically.
func (e *Engine) prepareAccounts(rows []model.AccountInput) ([]model.Account, error) {
	if len(rows) == 0 {
		return nil, common.NewMalformedInputError("no accounts to map against")
	}

	pool := make([]model.Account, 0, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			return nil, common.NewMalformedInputError(fmt.Sprintf("account %d has an empty name", i+1))
		}
		normalized := normalize.Normalize(name)
		pool = append(pool, model.Account{
			Raw:        name,
			Normalized: normalized,
			Category:   e.categorizer.Categorize(normalized),
			Value:      row.Value,
		})
	}
	return pool, nil
}

// prepareLabels normalizes and categorizes the template lines. Blank lines
// carry no mappable content and are dropped before matching; duplicates
// are kept, each occurrence getting its own entry.
func (e *Engine) prepareLabels(raw []string) (labels []model.Label, dropped int) {
	for _, r := range raw {
		trimmed := strings.TrimSpace(r)
		if trimmed == "" {
			dropped++
			continue
		}
		normalized := normalize.Normalize(trimmed)
		labels = append(labels, model.Label{
			Raw:        trimmed,
			Normalized: normalized,
			Category:   e.categorizer.Categorize(normalized),
		})
	}
	return labels, dropped
}

// upgradeExactMatches raises entries whose normalized label equals the
// matched account's normalized name. Lexical strategies detect these up
// front; this pass catches semantic results that land on the same account
// under a different raw spelling.
func upgradeExactMatches(entries []model.MappingEntry) {
	for i := range entries {
		entry := &entries[i]
		if entry.Account == nil || entry.Method == model.MethodExact || entry.Method == model.MethodManual {
			continue
		}
		if entry.Label.Normalized != "" && entry.Label.Normalized == entry.Account.Normalized {
			entry.Confidence = 100
			entry.Method = model.MethodExact
			entry.Reasoning = fmt.Sprintf("Exact match on normalized name %q", entry.Label.Normalized)
		}
	}
}

// ComputeStats summarizes a set of entries for logging and CLI output.
func ComputeStats(entries []model.MappingEntry, duration time.Duration) service.MappingStats {
	stats := service.MappingStats{
		Duration:    duration,
		TotalLabels: len(entries),
	}
	for i := range entries {
		if entries[i].Mapped() {
			stats.Mapped++
		} else {
			stats.Unmapped++
		}
		if entries[i].Method == model.MethodSemantic {
			stats.Refined++
		}
		switch entries[i].Tier() {
		case model.TierHigh:
			stats.HighTier++
		case model.TierMedium:
			stats.MediumTier++
		case model.TierLow:
			stats.LowTier++
		}
	}
	return stats
}
