// Package synthesis generates scored, diversity-gated project suggestions
// from a user's capabilities and interests. One run fills a small batch of
// suggestion slots: each slot selects capabilities, asks the generative-text
// service for an idea, scores it on novelty, feasibility and interest
// alignment, and pushes it through the diversity gate before persisting.
package synthesis

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"polymath-backend/internal/config"
	"polymath-backend/internal/domain"
	"polymath-backend/internal/repository"
	"polymath-backend/internal/service/embedding"
	"polymath-backend/internal/service/llm"
	appErrors "polymath-backend/pkg/errors"

	"go.uber.org/zap"
)

// slotMode is how a suggestion slot builds its candidate.
type slotMode int

const (
	slotNormal slotMode = iota
	slotWildcard
	slotCreative
)

// recentTitleLimit bounds how many prior titles are fed into the prompt as
// anti-repetition context.
const recentTitleLimit = 10

// Engine runs suggestion synthesis for one user scope at a time. All
// collaborators are injected; the random source makes selection
// deterministic under test.
type Engine struct {
	store     repository.Store
	generator *llm.Service
	embedder  embedding.Embedder
	scorer    *Scorer
	cfg       config.Synthesis
	logger    *zap.Logger
	rng       *rand.Rand
	metrics   *Collector
}

// NewEngine creates a synthesis engine.
func NewEngine(
	store repository.Store,
	generator *llm.Service,
	embedder embedding.Embedder,
	cfg config.Synthesis,
	logger *zap.Logger,
	rng *rand.Rand,
	metrics *Collector,
) *Engine {
	return &Engine{
		store:     store,
		generator: generator,
		embedder:  embedder,
		scorer:    NewScorer(store, cfg),
		cfg:       cfg,
		logger:    logger,
		rng:       rng,
		metrics:   metrics,
	}
}

// candidate is one generated-and-scored idea awaiting the gate's verdict.
type candidate struct {
	idea     domain.ProjectIdea
	comboKey string
	vec      []float32
}

// Run executes one synthesis pass and returns every suggestion it managed
// to persist. Slot-level generation failures skip the slot; a persistence
// failure aborts the run and returns the suggestions already durably
// written together with the error.
func (e *Engine) Run(ctx context.Context, userID string) ([]domain.Suggestion, error) {
	capabilities, interests, err := e.loadContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(capabilities) < 2 {
		return nil, appErrors.NewPrecondition("synthesis requires at least 2 capabilities")
	}

	historyVecs, recentTitles := e.loadHistory(ctx, userID)
	alignmentPool := e.loadAlignmentPool(ctx, userID)

	sel := newSelector(e.rng, e.cfg.Selection)
	gate := newDiversityGate(e.cfg, historyVecs)

	accepted := make([]domain.Suggestion, 0, e.cfg.BatchSize)
	nonWildcardSlots := 0
	wildcardSlots := 0

	for slot := 0; slot < e.cfg.BatchSize; slot++ {
		mode := slotNormal
		wildcardIteration := 0
		if e.cfg.WildcardInterval > 0 && (slot+1)%e.cfg.WildcardInterval == 0 {
			mode = slotWildcard
			wildcardIteration = wildcardSlots
			wildcardSlots++
		} else {
			nonWildcardSlots++
			if e.cfg.CreativeInterval > 0 && nonWildcardSlots%e.cfg.CreativeInterval == 0 && len(interests) >= 2 {
				mode = slotCreative
			}
		}

		suggestion, err := e.fillSlot(ctx, userID, slot, mode, wildcardIteration,
			capabilities, interests, recentTitles, alignmentPool, sel, gate)
		if err != nil {
			if appErrors.IsPersistence(err) {
				e.logger.Error("persistence failure aborted the run",
					zap.String("user_id", userID),
					zap.Int("slot", slot),
					zap.Int("persisted", len(accepted)),
					zap.Error(err))
				return accepted, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// Stop producing further slots; what was accepted is
				// already persisted.
				return accepted, appErrors.NewRemoteService("synthesis run interrupted", err)
			}
			e.metrics.incSkipped()
			e.logger.Warn("skipping suggestion slot",
				zap.String("user_id", userID),
				zap.Int("slot", slot),
				zap.Error(err))
			continue
		}
		accepted = append(accepted, *suggestion)
	}

	e.logger.Info("synthesis run complete",
		zap.String("user_id", userID),
		zap.Int("requested", e.cfg.BatchSize),
		zap.Int("persisted", len(accepted)))
	return accepted, nil
}

// loadContext fetches capabilities (fatal on error) and merges interests
// from the two extraction sources. The sources are independent reads, so
// they run concurrently; each one degrades to an empty list on failure.
func (e *Engine) loadContext(ctx context.Context, userID string) ([]domain.Capability, []domain.Interest, error) {
	capabilities, err := e.store.FindCapabilities(ctx, userID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, "failed to load capabilities")
	}

	var (
		wg               sync.WaitGroup
		memoryInterests  []domain.Interest
		articleInterests []domain.Interest
		memoryErr        error
		articleErr       error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		memoryInterests, memoryErr = e.store.FindMemoryInterests(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		articleInterests, articleErr = e.store.FindArticleInterests(ctx, userID)
	}()
	wg.Wait()

	if memoryErr != nil {
		e.logger.Warn("memory interest source unavailable, continuing without it",
			zap.String("user_id", userID), zap.Error(memoryErr))
		memoryInterests = nil
	}
	if articleErr != nil {
		e.logger.Warn("article interest source unavailable, continuing without it",
			zap.String("user_id", userID), zap.Error(articleErr))
		articleInterests = nil
	}

	return capabilities, domain.MergeInterests(memoryInterests, articleInterests), nil
}

// loadHistory returns the embeddings of recent persisted suggestions plus
// their most recent titles. Stored embeddings are reused; any rows without
// one are embedded in a single batch call. History is an enrichment: every
// failure degrades to a smaller comparison set.
func (e *Engine) loadHistory(ctx context.Context, userID string) ([][]float32, []string) {
	history, err := e.store.FindRecentSuggestions(ctx, userID, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Warn("suggestion history unavailable, similarity checks run against this batch only",
			zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}

	titles := make([]string, 0, recentTitleLimit)
	for _, s := range history {
		if len(titles) < recentTitleLimit {
			titles = append(titles, s.Title)
		}
	}

	vecs := make([][]float32, 0, len(history))
	var missingTexts []string
	for _, s := range history {
		if len(s.Embedding) > 0 {
			vecs = append(vecs, s.Embedding)
		} else {
			missingTexts = append(missingTexts, s.EmbeddingText())
		}
	}

	if len(missingTexts) > 0 {
		embedded, embedErr := e.embedder.EmbedBatch(ctx, missingTexts)
		if embedErr != nil {
			e.logger.Warn("failed to embed suggestion history, similarity checks use stored embeddings only",
				zap.String("user_id", userID),
				zap.Int("missing", len(missingTexts)),
				zap.Error(embedErr))
		} else {
			vecs = append(vecs, embedded...)
		}
	}
	return vecs, titles
}

// loadAlignmentPool fetches the embedded memory records used for
// interest-alignment scoring, degrading to the substring fallback on error.
func (e *Engine) loadAlignmentPool(ctx context.Context, userID string) []domain.EmbeddedRecord {
	pool, err := e.store.FindRecentEmbeddings(ctx, userID, e.cfg.AlignmentSampleLimit)
	if err != nil {
		e.logger.Warn("embedded memories unavailable, interest alignment falls back to name matching",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return pool
}

// fillSlot generates candidates for one slot until the diversity gate
// accepts one or the attempt cap forces the last candidate through.
func (e *Engine) fillSlot(
	ctx context.Context,
	userID string,
	slot int,
	mode slotMode,
	wildcardIteration int,
	capabilities []domain.Capability,
	interests []domain.Interest,
	recentTitles []string,
	alignmentPool []domain.EmbeddedRecord,
	sel *selector,
	gate *diversityGate,
) (*domain.Suggestion, error) {
	gate.ResetSlot()
	var last *candidate

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		cand, err := e.buildCandidate(ctx, userID, mode, wildcardIteration,
			capabilities, interests, recentTitles, alignmentPool, sel)
		if err != nil {
			return nil, err
		}

		decision := gate.Check(cand.comboKey, cand.vec, attempt)
		if decision.Accepted {
			return e.acceptCandidate(ctx, userID, cand, gate)
		}

		e.metrics.incRejected(decision.Reason)
		e.logger.Debug("candidate rejected",
			zap.String("user_id", userID),
			zap.Int("slot", slot),
			zap.Int("attempt", attempt),
			zap.String("reason", decision.Reason),
			zap.Float64("similarity", decision.Similarity))
		last = cand
	}

	// The gate never let anything through. Producing something beats
	// stalling the slot forever, so the last candidate goes out as-is.
	e.metrics.incForced()
	e.logger.Warn("attempt cap reached, forcing acceptance of last candidate",
		zap.String("user_id", userID),
		zap.Int("slot", slot),
		zap.Int("attempts", e.cfg.MaxAttempts),
		zap.String("title", last.idea.Title))
	return e.acceptCandidate(ctx, userID, last, gate)
}

// buildCandidate selects capabilities, generates an idea, and scores it.
func (e *Engine) buildCandidate(
	ctx context.Context,
	userID string,
	mode slotMode,
	wildcardIteration int,
	capabilities []domain.Capability,
	interests []domain.Interest,
	recentTitles []string,
	alignmentPool []domain.EmbeddedRecord,
	sel *selector,
) (*candidate, error) {
	var (
		selected []domain.Capability
		strategy string
		gen      *llm.GeneratedIdea
		err      error
	)

	switch mode {
	case slotCreative:
		if err := sel.SelectCreative(interests); err != nil {
			return nil, err
		}
		gen, err = e.generator.GenerateCreativeIdea(ctx, domain.TopInterests(interests, e.cfg.PromptInterestLimit))
	case slotWildcard:
		selected, strategy = sel.SelectWildcard(capabilities, wildcardIteration)
		gen, err = e.generator.GenerateIdea(ctx, selected, domain.TopInterests(interests, e.cfg.PromptInterestLimit), recentTitles)
	default:
		selected = sel.SelectNormal(capabilities)
		gen, err = e.generator.GenerateIdea(ctx, selected, domain.TopInterests(interests, e.cfg.PromptInterestLimit), recentTitles)
	}
	if err != nil {
		return nil, err
	}

	capabilityIDs := make([]string, 0, len(selected))
	for _, cap := range selected {
		capabilityIDs = append(capabilityIDs, cap.ID)
	}

	novelty, err := e.scorer.Novelty(ctx, userID, capabilityIDs)
	if err != nil {
		return nil, err
	}
	feasibility := e.scorer.Feasibility(selected)

	idea := domain.ProjectIdea{
		Title:         gen.Title,
		Description:   gen.Description,
		Reasoning:     gen.Reasoning,
		CapabilityIDs: capabilityIDs,
		IsWildcard:    mode == slotWildcard,
	}

	// One batch call covers both texts the run needs: the description for
	// alignment scoring and the combined text for the diversity gate.
	var descVec, candVec []float32
	vecs, embedErr := e.embedder.EmbedBatch(ctx, []string{gen.Description, idea.EmbeddingText()})
	if embedErr != nil {
		e.logger.Warn("candidate embedding failed, similarity checks degraded for this candidate",
			zap.String("user_id", userID),
			zap.String("strategy", strategy),
			zap.Error(embedErr))
	} else {
		descVec, candVec = vecs[0], vecs[1]
	}

	interestScore, alignedMemoryID := e.scorer.InterestAlignment(gen.Description, descVec, interests, alignmentPool)
	if alignedMemoryID != "" {
		idea.MemoryIDs = []string{alignedMemoryID}
	}

	idea.NoveltyScore = novelty
	idea.FeasibilityScore = feasibility
	idea.InterestScore = interestScore
	idea.TotalPoints = e.scorer.TotalPoints(novelty, feasibility, interestScore)

	return &candidate{
		idea:     idea,
		comboKey: domain.CombinationKey(capabilityIDs),
		vec:      candVec,
	}, nil
}

// acceptCandidate marks the combination used, records usage for future
// novelty scoring, and persists the suggestion. Persistence failure is
// fatal; combination tracking failure only costs future novelty accuracy
// and is logged instead.
func (e *Engine) acceptCandidate(ctx context.Context, userID string, cand *candidate, gate *diversityGate) (*domain.Suggestion, error) {
	gate.Accept(cand.comboKey, cand.vec)

	if len(cand.idea.CapabilityIDs) > 0 {
		if err := e.store.RecordUsage(ctx, userID, cand.idea.CapabilityIDs); err != nil {
			e.logger.Warn("failed to record combination usage",
				zap.String("user_id", userID),
				zap.String("combo", cand.comboKey),
				zap.Error(err))
		}
	}

	suggestion := domain.NewSuggestion(userID, cand.idea, cand.vec)
	if err := e.store.CreateSuggestion(ctx, suggestion); err != nil {
		if appErrors.IsPersistence(err) {
			return nil, err
		}
		return nil, appErrors.NewPersistence("failed to persist accepted suggestion", err)
	}

	e.metrics.incAccepted()
	e.logger.Info("suggestion accepted",
		zap.String("user_id", userID),
		zap.String("suggestion_id", suggestion.ID),
		zap.String("title", suggestion.Title),
		zap.Int("total_points", suggestion.TotalPoints),
		zap.Bool("wildcard", suggestion.IsWildcard))
	return &suggestion, nil
}
