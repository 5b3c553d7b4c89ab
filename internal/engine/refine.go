package engine

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/llm"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/normalize"

	"github.com/google/uuid"
)

// revalidatedPrefix marks entries the double-check pass confirmed.
const revalidatedPrefix = "[Re-validated] "

// batchJob is one batch of entry indices to resolve semantically. Each job
// owns a disjoint index set, so concurrent workers write results without
// locks.
type batchJob struct {
	indices []int
	labels  []model.Label
}

// runInitialPass maps every label through the semantic matcher with the
// full pool as candidates. Failed batches get lexical results instead.
func (e *Engine) runInitialPass(ctx context.Context, labels []model.Label, pool []model.Account) ([]model.MappingEntry, error) {
	entries := make([]model.MappingEntry, len(labels))

	all := make([]int, len(labels))
	for i := range all {
		all[i] = i
	}
	jobs := e.makeJobs(all, labels)
	candidates := buildCandidates(pool, nil)

	slog.Info("Running semantic mapping pass", "labels", len(labels), "batches", len(jobs))

	e.dispatchBatches(ctx, jobs, len(labels), func(ctx context.Context, job batchJob) {
		e.runBatch(ctx, job, entries, pool, candidates, llm.ModeInitial)
	})

	// A cancelled run leaves later batches untouched. Those labels still
	// get lexical results so the session stays complete.
	var remaining batchJob
	for i := range entries {
		if entries[i].Label.Raw == "" {
			remaining.indices = append(remaining.indices, i)
			remaining.labels = append(remaining.labels, labels[i])
		}
	}
	if len(remaining.indices) > 0 {
		slog.Warn("Semantic pass interrupted, using lexical fallback", "labels", len(remaining.indices))
		e.fallbackFill(ctx, remaining, pool, entries)
	}

	return entries, nil
}

// Refine runs the double-check pass over the session's Medium and Low
// entries, narrowing candidates to the lexically closest accounts. High
// confidence entries are never touched.
func (e *Engine) Refine(ctx context.Context, session *Session) error {
	if e.semantic == nil {
		return common.NewConfigurationError("semantic matcher is not configured")
	}

	var review []int
	for i := range session.Entries {
		if session.Entries[i].Confidence < model.HighConfidenceFloor {
			review = append(review, i)
		}
	}
	if len(review) == 0 {
		return nil
	}

	labels := make([]model.Label, len(session.Entries))
	for i := range session.Entries {
		labels[i] = session.Entries[i].Label
	}

	jobs := e.makeJobs(review, labels)
	slog.Info("Refining low confidence entries", "entries", len(review), "batches", len(jobs))

	e.dispatchBatches(ctx, jobs, len(review), func(ctx context.Context, job batchJob) {
		candidates := buildCandidates(session.Accounts, e.topCandidateIndices(job.labels, session.Accounts))
		e.runBatch(ctx, job, session.Entries, session.Accounts, candidates, llm.ModeDoubleCheck)
	})

	upgradeExactMatches(session.Entries)
	return nil
}

// makeJobs splits entry indices into batches of the configured size.
func (e *Engine) makeJobs(indices []int, labels []model.Label) []batchJob {
	size := e.config.BatchSize
	jobs := make([]batchJob, 0, (len(indices)+size-1)/size)
	for start := 0; start < len(indices); start += size {
		end := start + size
		if end > len(indices) {
			end = len(indices)
		}
		job := batchJob{indices: indices[start:end]}
		job.labels = make([]model.Label, 0, len(job.indices))
		for _, idx := range job.indices {
			job.labels = append(job.labels, labels[idx])
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// dispatchBatches runs jobs sequentially or across a small worker pool.
// Jobs write disjoint entry indices, so results need no locking.
// Cancellation stops dispatching new jobs; completed batches are kept.
func (e *Engine) dispatchBatches(ctx context.Context, jobs []batchJob, total int, run func(context.Context, batchJob)) {
	var completed atomic.Int64
	finish := func(job batchJob) {
		done := completed.Add(int64(len(job.indices)))
		if e.progress != nil {
			e.progress(int(done), total)
		}
	}

	workers := e.config.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	if workers <= 1 {
		for _, job := range jobs {
			if ctx.Err() != nil {
				return
			}
			run(ctx, job)
			finish(job)
		}
		return
	}

	jobCh := make(chan batchJob)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				run(ctx, job)
				finish(job)
			}
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	wg.Wait()
}

// runBatch resolves one batch through the semantic matcher and merges the
// result. A failed batch falls back to the structured strategy in the
// initial pass and leaves existing entries alone in the double-check pass.
func (e *Engine) runBatch(ctx context.Context, job batchJob, entries []model.MappingEntry, pool []model.Account, candidates []llm.Candidate, mode llm.Mode) {
	req := llm.BatchRequest{
		BatchID:    uuid.New().String(),
		Labels:     rawLabels(job.labels),
		Candidates: candidates,
		Mode:       mode,
	}

	bctx, cancel := context.WithTimeout(ctx, e.config.PerBatchTimeout)
	defer cancel()

	resp, err := e.semantic.MatchBatch(bctx, req)
	if err != nil {
		failure := common.NewRecoverableMatchFailure(req.BatchID, err)
		slog.Warn("Semantic batch failed, falling back to lexical matching",
			"batch_id", req.BatchID,
			"labels", len(job.labels),
			"mode", string(mode),
			"error", failure)
		if mode == llm.ModeInitial {
			e.fallbackFill(ctx, job, pool, entries)
		}
		return
	}

	if mode == llm.ModeDoubleCheck {
		e.mergeDoubleCheck(job, resp.Matches, entries, pool)
		return
	}
	e.mergeInitial(ctx, job, resp.Matches, entries, pool)
}

// fallbackFill writes structured-strategy entries at the job's indices.
func (e *Engine) fallbackFill(ctx context.Context, job batchJob, pool []model.Account, entries []model.MappingEntry) {
	fallback, err := e.structured.Match(ctx, job.labels, pool)
	if err != nil {
		return
	}
	for i, idx := range job.indices {
		entries[idx] = fallback[i]
	}
}

// mergeInitial writes semantic results for a fresh batch. Matches are
// consumed in response order so duplicate label texts resolve to distinct
// entries. A label the service skipped, or pointed at an account outside
// the pool, falls back to the structured strategy.
func (e *Engine) mergeInitial(ctx context.Context, job batchJob, matches []llm.BatchMatch, entries []model.MappingEntry, pool []model.Account) {
	used := make([]bool, len(matches))
	for i, idx := range job.indices {
		label := job.labels[i]

		match, ok := takeMatch(matches, used, label.Raw)
		if !ok {
			e.fallbackFill(ctx, batchJob{indices: []int{idx}, labels: []model.Label{label}}, pool, entries)
			continue
		}

		entry, ok := semanticEntry(label, match, pool)
		if !ok {
			slog.Debug("Semantic match named an unknown account",
				"label", label.Raw,
				"account", *match.Account)
			e.fallbackFill(ctx, batchJob{indices: []int{idx}, labels: []model.Label{label}}, pool, entries)
			continue
		}
		entries[idx] = entry
	}
}

// mergeDoubleCheck folds second-pass results into existing entries. A
// confirmation of the current account keeps the higher confidence and tags
// the reasoning; a different account replaces the entry only when it does
// not lower the confidence; a null account or unknown name leaves the
// existing entry alone.
func (e *Engine) mergeDoubleCheck(job batchJob, matches []llm.BatchMatch, entries []model.MappingEntry, pool []model.Account) {
	used := make([]bool, len(matches))
	for i, idx := range job.indices {
		label := job.labels[i]

		match, ok := takeMatch(matches, used, label.Raw)
		if !ok {
			continue
		}

		current := &entries[idx]
		if match.Account == nil {
			if !current.Mapped() && match.Reasoning != "" {
				current.Reasoning = match.Reasoning
			}
			continue
		}

		proposed, ok := semanticEntry(label, match, pool)
		if !ok {
			slog.Debug("Double-check named an unknown account",
				"label", label.Raw,
				"account", *match.Account)
			continue
		}

		if current.Mapped() && current.Account.Raw == proposed.Account.Raw {
			if proposed.Confidence > current.Confidence {
				current.Confidence = proposed.Confidence
			}
			current.Method = model.MethodSemantic
			current.Reasoning = revalidatedReasoning(proposed.Reasoning)
			continue
		}

		if proposed.Confidence < current.Confidence {
			slog.Debug("Double-check proposed a lower confidence alternative",
				"label", label.Raw,
				"account", proposed.Account.Raw,
				"confidence", proposed.Confidence)
			continue
		}
		entries[idx] = proposed
	}
}

// takeMatch finds the first unconsumed response match for a label text.
func takeMatch(matches []llm.BatchMatch, used []bool, labelRaw string) (llm.BatchMatch, bool) {
	for i := range matches {
		if !used[i] && matches[i].Label == labelRaw {
			used[i] = true
			return matches[i], true
		}
	}
	return llm.BatchMatch{}, false
}

// semanticEntry converts one service match to a mapping entry. Returns
// false when the named account cannot be resolved in the pool.
func semanticEntry(label model.Label, match llm.BatchMatch, pool []model.Account) (model.MappingEntry, bool) {
	if match.Account == nil {
		return model.MappingEntry{
			Label:     label,
			Method:    model.MethodUnmapped,
			Reasoning: match.Reasoning,
		}, true
	}

	idx, ok := resolveAccount(pool, *match.Account)
	if !ok {
		return model.MappingEntry{}, false
	}

	account := pool[idx]
	return model.MappingEntry{
		Label:      label,
		Account:    &account,
		Value:      account.Value,
		Confidence: match.Confidence,
		Method:     model.MethodSemantic,
		Reasoning:  match.Reasoning,
	}, true
}

// resolveAccount finds a pool account by the name the service returned.
// Raw name first, then case insensitive, then normalized equality.
func resolveAccount(pool []model.Account, name string) (int, bool) {
	for i := range pool {
		if pool[i].Raw == name {
			return i, true
		}
	}
	for i := range pool {
		if strings.EqualFold(pool[i].Raw, name) {
			return i, true
		}
	}
	normalized := normalize.Normalize(name)
	if normalized == "" {
		return 0, false
	}
	for i := range pool {
		if pool[i].Normalized == normalized {
			return i, true
		}
	}
	return 0, false
}

// topCandidateIndices returns the pool indices of the closest accounts for
// a batch: the union of each label's top-N by similarity, in pool order.
// A nil result means the whole pool qualifies.
func (e *Engine) topCandidateIndices(labels []model.Label, pool []model.Account) []int {
	topN := e.config.TopNCandidates
	if topN >= len(pool) {
		return nil
	}

	selected := make(map[int]struct{})
	ranked := make([]int, len(pool))
	scores := make([]int, len(pool))
	for _, label := range labels {
		for i := range pool {
			ranked[i] = i
			scores[i] = e.scorer.Score(label.Normalized, pool[i].Normalized)
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			return scores[ranked[a]] > scores[ranked[b]]
		})
		for _, idx := range ranked[:topN] {
			selected[idx] = struct{}{}
		}
	}

	indices := make([]int, 0, len(selected))
	for idx := range selected {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// buildCandidates projects pool accounts onto the wire shape. A nil index
// list takes the whole pool.
func buildCandidates(pool []model.Account, indices []int) []llm.Candidate {
	if indices == nil {
		candidates := make([]llm.Candidate, 0, len(pool))
		for i := range pool {
			candidates = append(candidates, llm.Candidate{Name: pool[i].Raw, Value: pool[i].Value.InexactFloat64()})
		}
		return candidates
	}

	candidates := make([]llm.Candidate, 0, len(indices))
	for _, idx := range indices {
		candidates = append(candidates, llm.Candidate{Name: pool[idx].Raw, Value: pool[idx].Value.InexactFloat64()})
	}
	return candidates
}

func rawLabels(labels []model.Label) []string {
	raws := make([]string, len(labels))
	for i := range labels {
		raws[i] = labels[i].Raw
	}
	return raws
}

func revalidatedReasoning(reasoning string) string {
	if reasoning == "" {
		return strings.TrimSpace(revalidatedPrefix)
	}
	if strings.HasPrefix(reasoning, revalidatedPrefix) {
		return reasoning
	}
	return revalidatedPrefix + reasoning
}
