package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/tally-ho/internal/categorizer"
	"github.com/Veraticus/tally-ho/internal/engine"
	"github.com/Veraticus/tally-ho/internal/llm"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/score"
	"github.com/Veraticus/tally-ho/internal/storage"

	"github.com/spf13/viper"
)

// openStorage opens the session database and brings its schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "tally", "tally.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}
	return store, nil
}

// engineConfigFromViper builds the engine tunables from configuration,
// starting from the documented defaults.
func engineConfigFromViper() engine.Config {
	config := engine.DefaultConfig()
	if viper.IsSet("mapping.similarity_threshold") {
		config.SimilarityThreshold = viper.GetInt("mapping.similarity_threshold")
	}
	if viper.IsSet("mapping.category_boost") {
		config.CategoryBoost = viper.GetInt("mapping.category_boost")
	}
	if viper.IsSet("mapping.batch_size") {
		config.BatchSize = viper.GetInt("mapping.batch_size")
	}
	if viper.IsSet("mapping.top_n_candidates_for_recheck") {
		config.TopNCandidates = viper.GetInt("mapping.top_n_candidates_for_recheck")
	}
	if viper.IsSet("mapping.per_batch_timeout") {
		config.PerBatchTimeout = viper.GetDuration("mapping.per_batch_timeout")
	}
	if viper.IsSet("mapping.max_batch_retries") {
		config.MaxBatchRetries = viper.GetInt("mapping.max_batch_retries")
	}
	if viper.IsSet("mapping.workers") {
		config.Workers = viper.GetInt("mapping.workers")
	}
	if viper.IsSet("mapping.require_full_coverage") {
		config.RequireFullCoverage = viper.GetBool("mapping.require_full_coverage")
	}
	return config
}

// buildScorer creates the similarity scorer, merging a synonyms file over
// the built-in alias table when one is configured.
func buildScorer() (*score.Scorer, error) {
	opts := score.DefaultOptions()
	if path := viper.GetString("mapping.synonyms_file"); path != "" {
		loaded, err := score.LoadSynonyms(path)
		if err != nil {
			return nil, err
		}
		for alias, canonical := range loaded {
			opts.Synonyms[alias] = canonical
		}
	}
	return score.NewScorerWithOptions(opts)
}

// buildCategorizer creates the categorizer, preferring a keywords file when
// one is configured.
func buildCategorizer() (*categorizer.Categorizer, error) {
	path := viper.GetString("mapping.categories_file")
	if path == "" {
		return categorizer.New(), nil
	}
	cfg, err := categorizer.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return categorizer.NewFromConfig(cfg)
}

// buildSemanticMatcher creates the external semantic matcher from the llm
// configuration block. Returns nil when no provider is usable and semantic
// matching was not explicitly requested.
func buildSemanticMatcher(ctx context.Context, required bool) (*llm.Matcher, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = "openrouter"
	}

	apiKey := viper.GetString("llm.api_key")
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnvVar(provider))
	}
	if apiKey == "" {
		if required {
			return nil, fmt.Errorf("semantic matching needs an API key: set llm.api_key or %s", apiKeyEnvVar(provider))
		}
		return nil, nil
	}

	cfg := llm.Config{
		Provider:    provider,
		APIKey:      apiKey,
		Model:       viper.GetString("llm.model"),
		BaseURL:     viper.GetString("llm.base_url"),
		MaxRetries:  engineConfigFromViper().MaxBatchRetries,
		RetryDelay:  viper.GetDuration("llm.retry_delay"),
		CacheTTL:    viper.GetDuration("llm.cache_ttl"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}
	return llm.NewMatcher(ctx, cfg, nil)
}

func apiKeyEnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return "OPENROUTER_API_KEY"
	}
}

// loadSessionRecord resolves a session argument: an explicit ID, or the
// latest stored session when the argument is empty or "latest".
func loadSessionRecord(ctx context.Context, store *storage.SQLiteStorage, arg string) (*model.SessionRecord, error) {
	if arg == "" || strings.EqualFold(arg, "latest") {
		record, err := store.GetLatestSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("no session to operate on: %w", err)
		}
		return record, nil
	}
	return store.GetSession(ctx, arg)
}

func entryValue(entry *model.MappingEntry) string {
	if entry.Account == nil {
		return "-"
	}
	return entry.Value.StringFixed(2)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
