package synthesis

import (
	"context"
	"math/rand"
	"testing"

	"polymath-backend/internal/config"
	"polymath-backend/internal/domain"
	"polymath-backend/internal/repository/mocks"
	"polymath-backend/internal/service/embedding"
	"polymath-backend/internal/service/llm"
	appErrors "polymath-backend/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUser = "user-1"

type engineFixture struct {
	store    *mocks.MockStore
	provider *llm.MockProvider
	embedder *embedding.MockEmbedder
	metrics  *Collector
	engine   *Engine
}

func newEngineFixture(t *testing.T, cfg config.Synthesis) *engineFixture {
	t.Helper()
	store := mocks.NewMockStore()
	provider := llm.NewMockProvider()
	embedder := embedding.NewMockEmbedder(64)
	metrics := NewCollector("test")

	engine := NewEngine(
		store,
		llm.NewService(provider),
		embedder,
		cfg,
		zap.NewNop(),
		rand.New(rand.NewSource(42)),
		metrics,
	)
	return &engineFixture{store: store, provider: provider, embedder: embedder, metrics: metrics, engine: engine}
}

func seedProfile(f *engineFixture) {
	f.store.AddCapabilities(testUser,
		domain.Capability{ID: "c1", Name: "Go services", Strength: 8, SourceProject: "polymath"},
		domain.Capability{ID: "c2", Name: "DynamoDB modeling", Strength: 6, SourceProject: "polymath"},
		domain.Capability{ID: "c3", Name: "Prompt design", Strength: 3, SourceProject: "sideproject"},
	)
	f.store.AddMemoryInterests(testUser,
		domain.Interest{ID: "i1", Name: "Birdwatching", Type: "hobby", Strength: 7, Mentions: 12},
	)
	f.store.AddArticleInterests(testUser,
		domain.Interest{ID: "i2", Name: "Local-first software", Type: "topic", Strength: 6, Mentions: 8},
	)
}

func TestEngineRunHappyPath(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	for _, s := range suggestions {
		assert.Equal(t, domain.SuggestionStatusPending, s.Status)
		assert.Equal(t, testUser, s.UserID)
		assert.NotEmpty(t, s.Title)
		assert.GreaterOrEqual(t, s.TotalPoints, 0)
		assert.LessOrEqual(t, s.TotalPoints, 100)
	}

	// Every third slot is a wildcard.
	assert.False(t, suggestions[0].IsWildcard)
	assert.False(t, suggestions[1].IsWildcard)
	assert.True(t, suggestions[2].IsWildcard)

	assert.Len(t, f.store.StoredSuggestions(testUser), 3, "every accepted suggestion is persisted")
}

func TestEngineRecordsCombinationUsage(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)

	for _, s := range suggestions {
		if len(s.CapabilityIDs) == 0 {
			continue
		}
		assert.GreaterOrEqual(t, f.store.CombinationCount(testUser, s.CapabilityIDs), 1,
			"accepted combination %v must be tracked", s.CapabilityIDs)
	}
}

func TestEngineCreativeSlot(t *testing.T) {
	cfg := config.DefaultSynthesis()
	cfg.BatchSize = 5
	f := newEngineFixture(t, cfg)
	seedProfile(f)

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 5)

	// Slot 4 is the third non-wildcard slot (slot 3 is a wildcard), so it
	// runs in creative mode: no capabilities, fixed novelty and feasibility.
	creative := suggestions[3]
	assert.Empty(t, creative.CapabilityIDs)
	assert.False(t, creative.IsWildcard)
	assert.InDelta(t, cfg.CreativeNovelty, creative.NoveltyScore, 1e-9)
	assert.InDelta(t, cfg.CreativeFeasibility, creative.FeasibilityScore, 1e-9)
}

func TestEngineSkipsCreativeWithoutInterests(t *testing.T) {
	cfg := config.DefaultSynthesis()
	cfg.BatchSize = 5
	f := newEngineFixture(t, cfg)
	f.store.AddCapabilities(testUser,
		domain.Capability{ID: "c1", Name: "Go services", Strength: 8},
		domain.Capability{ID: "c2", Name: "DynamoDB modeling", Strength: 6},
	)

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 5)

	for _, s := range suggestions {
		assert.NotEmpty(t, s.CapabilityIDs, "without interests every slot stays capability-based")
	}
}

func TestEngineRequiresTwoCapabilities(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	f.store.AddCapabilities(testUser, domain.Capability{ID: "c1", Name: "Go services", Strength: 8})

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.Error(t, err)
	assert.True(t, appErrors.IsPrecondition(err))
	assert.Empty(t, suggestions)
	assert.Zero(t, f.provider.Calls(), "no generation happens without enough capabilities")
}

func TestEngineSkipsSlotOnParseFailure(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)

	// The first completion is unusable; the remaining slots fall through to
	// the mock's canned responses.
	f.provider.QueueResponse("I had trouble thinking of anything.")

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err, "a bad slot is skipped, not fatal")
	assert.Len(t, suggestions, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SlotsSkipped))
}

func TestEnginePersistenceFailureAbortsRun(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)
	f.store.SetError("CreateSuggestion", appErrors.NewPersistence("table write throttled", nil))

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.Error(t, err)
	assert.True(t, appErrors.IsPersistence(err))
	assert.Empty(t, suggestions, "nothing was durably written before the failure")
}

func TestEngineForcesAcceptanceWhenBatchConverges(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)

	// Every candidate embeds to the same vector: after the first acceptance
	// the batch similarity check rejects everything, so the remaining slots
	// exhaust their attempts and force-accept.
	f.embedder.SetFixedVector([]float32{1, 0})

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, suggestions, 3, "forced acceptance keeps the batch full")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ForcedAcceptances))
}

func TestEngineRejectsHistoryLookalikes(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)

	// History already contains a suggestion at the exact embedding every new
	// candidate will get, so every slot ends in forced acceptance.
	fixed := []float32{1, 0}
	f.embedder.SetFixedVector(fixed)
	f.store.AddSuggestions(testUser, domain.Suggestion{
		ID: "old", UserID: testUser, Status: domain.SuggestionStatusPending, Embedding: fixed,
		ProjectIdea: domain.ProjectIdea{Title: "Old project", Description: "Exists already."},
	})

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, suggestions, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.ForcedAcceptances))
}

func TestEngineDegradesWithoutInterestSources(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)
	f.store.SetError("FindMemoryInterests", appErrors.NewRemoteService("interest extraction down", nil))
	f.store.SetError("FindArticleInterests", appErrors.NewRemoteService("interest extraction down", nil))

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err, "interest sources are enrichment, not prerequisites")
	assert.Len(t, suggestions, 3)
}

func TestEngineDegradesWithoutEmbeddings(t *testing.T) {
	f := newEngineFixture(t, config.DefaultSynthesis())
	seedProfile(f)
	f.embedder.SetError(appErrors.NewRemoteService("embedding service down", nil))

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err, "embedding failures degrade similarity checks, not the run")
	assert.Len(t, suggestions, 3)
}

func TestEngineRecordsAlignedMemory(t *testing.T) {
	cfg := config.DefaultSynthesis()
	cfg.BatchSize = 1
	f := newEngineFixture(t, cfg)
	seedProfile(f)

	// The candidate embeds to the same vector as the seeded memory, so the
	// alignment scorer anchors on that record and it travels with the idea.
	f.embedder.SetFixedVector([]float32{1, 0})
	f.store.AddEmbeddings(testUser, domain.EmbeddedRecord{
		ID: "m1", Text: "Notes about birds", Vector: []float32{1, 0},
	})

	suggestions, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, []string{"m1"}, suggestions[0].MemoryIDs)
}

func TestEngineReusesStoredHistoryEmbeddings(t *testing.T) {
	cfg := config.DefaultSynthesis()
	cfg.BatchSize = 1
	f := newEngineFixture(t, cfg)
	seedProfile(f)

	// Both history rows carry embeddings, so loading history must not call
	// the embedder at all.
	f.store.AddSuggestions(testUser,
		domain.Suggestion{ID: "s1", UserID: testUser, Embedding: []float32{0, 1},
			ProjectIdea: domain.ProjectIdea{Title: "First", Description: "Old."}},
		domain.Suggestion{ID: "s2", UserID: testUser, Embedding: []float32{0, 1},
			ProjectIdea: domain.ProjectIdea{Title: "Second", Description: "Old too."}},
	)

	_, err := f.engine.Run(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.Calls(), "only the candidate itself is embedded")
}
