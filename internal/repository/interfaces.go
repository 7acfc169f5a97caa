// Package repository defines the persistence interfaces the synthesis engine
// depends on. The interfaces are segregated by concern so services and tests
// only depend on the operations they actually use; ddb provides the DynamoDB
// implementation and mocks provides an in-memory fake.
package repository

import (
	"context"

	"polymath-backend/internal/domain"
)

// CapabilityReader provides read access to the user's capability profile.
type CapabilityReader interface {
	// FindCapabilities returns the user's capabilities ordered by strength
	// descending.
	FindCapabilities(ctx context.Context, userID string) ([]domain.Capability, error)
}

// InterestReader provides read access to the two interest extraction
// sources. The rows are written by the external extraction pipeline; the
// engine only reads them.
type InterestReader interface {
	// FindMemoryInterests returns interests extracted from personal notes.
	FindMemoryInterests(ctx context.Context, userID string) ([]domain.Interest, error)

	// FindArticleInterests returns interests extracted from read articles.
	FindArticleInterests(ctx context.Context, userID string) ([]domain.Interest, error)
}

// CombinationRepository tracks capability-combination usage for novelty
// scoring.
type CombinationRepository interface {
	// FindCombination looks up the usage record for a sorted combination
	// key. Returns a NOT_FOUND error when the combination was never
	// suggested.
	FindCombination(ctx context.Context, userID, key string) (*domain.CapabilityCombination, error)

	// RecordUsage upserts the combination row for the given capability IDs:
	// a fresh row starts at times_suggested = 1, an existing row is
	// atomically incremented so concurrent runs never lose an update.
	RecordUsage(ctx context.Context, userID string, capabilityIDs []string) error
}

// SuggestionRepository persists accepted suggestions and serves the recent
// history used for similarity checks.
type SuggestionRepository interface {
	// CreateSuggestion inserts a new pending suggestion. Suggestions are
	// never updated by the engine.
	CreateSuggestion(ctx context.Context, suggestion domain.Suggestion) error

	// FindRecentSuggestions returns up to limit suggestions, most recent
	// first.
	FindRecentSuggestions(ctx context.Context, userID string, limit int) ([]domain.Suggestion, error)
}

// EmbeddingReader serves previously embedded user content (memories) for
// interest-alignment scoring.
type EmbeddingReader interface {
	// FindRecentEmbeddings returns up to limit embedded records, most
	// recent first.
	FindRecentEmbeddings(ctx context.Context, userID string, limit int) ([]domain.EmbeddedRecord, error)
}

// Store aggregates every persistence concern of the engine. Concrete
// implementations satisfy the focused interfaces above.
type Store interface {
	CapabilityReader
	InterestReader
	CombinationRepository
	SuggestionRepository
	EmbeddingReader
}
