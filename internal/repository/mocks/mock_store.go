// Package mocks provides an in-memory implementation of the repository
// interfaces for unit testing. Behavior mirrors the DynamoDB store,
// including the upsert-with-increment semantics of combination tracking.
package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"polymath-backend/internal/domain"
	appErrors "polymath-backend/pkg/errors"
)

// MockStore is an in-memory store with per-method error injection.
type MockStore struct {
	mu sync.Mutex

	capabilities     map[string][]domain.Capability
	memoryInterests  map[string][]domain.Interest
	articleInterests map[string][]domain.Interest
	combinations     map[string]map[string]*domain.CapabilityCombination
	suggestions      map[string][]domain.Suggestion
	embeddings       map[string][]domain.EmbeddedRecord

	// errors maps method name to an injected error returned on next call
	errors map[string]error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		capabilities:     make(map[string][]domain.Capability),
		memoryInterests:  make(map[string][]domain.Interest),
		articleInterests: make(map[string][]domain.Interest),
		combinations:     make(map[string]map[string]*domain.CapabilityCombination),
		suggestions:      make(map[string][]domain.Suggestion),
		embeddings:       make(map[string][]domain.EmbeddedRecord),
		errors:           make(map[string]error),
	}
}

// SetError configures an error to be returned by the named method.
func (m *MockStore) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method] = err
}

func (m *MockStore) injectedError(method string) error {
	return m.errors[method]
}

// Seed helpers

// AddCapabilities seeds capabilities for a user.
func (m *MockStore) AddCapabilities(userID string, caps ...domain.Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities[userID] = append(m.capabilities[userID], caps...)
}

// AddMemoryInterests seeds note-derived interests for a user.
func (m *MockStore) AddMemoryInterests(userID string, interests ...domain.Interest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memoryInterests[userID] = append(m.memoryInterests[userID], interests...)
}

// AddArticleInterests seeds article-derived interests for a user.
func (m *MockStore) AddArticleInterests(userID string, interests ...domain.Interest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articleInterests[userID] = append(m.articleInterests[userID], interests...)
}

// AddCombination seeds a combination usage record.
func (m *MockStore) AddCombination(userID string, combo domain.CapabilityCombination) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.combinations[userID] == nil {
		m.combinations[userID] = make(map[string]*domain.CapabilityCombination)
	}
	c := combo
	m.combinations[userID][domain.CombinationKey(combo.CapabilityIDs)] = &c
}

// AddEmbeddings seeds embedded memory records for a user.
func (m *MockStore) AddEmbeddings(userID string, records ...domain.EmbeddedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[userID] = append(m.embeddings[userID], records...)
}

// AddSuggestions seeds persisted suggestions (most recent last).
func (m *MockStore) AddSuggestions(userID string, suggestions ...domain.Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions[userID] = append(m.suggestions[userID], suggestions...)
}

// Store implementation

// FindCapabilities returns seeded capabilities sorted by strength descending.
func (m *MockStore) FindCapabilities(ctx context.Context, userID string) ([]domain.Capability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindCapabilities"); err != nil {
		return nil, err
	}
	caps := append([]domain.Capability(nil), m.capabilities[userID]...)
	sort.SliceStable(caps, func(i, j int) bool { return caps[i].Strength > caps[j].Strength })
	return caps, nil
}

// FindMemoryInterests returns seeded note-derived interests.
func (m *MockStore) FindMemoryInterests(ctx context.Context, userID string) ([]domain.Interest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindMemoryInterests"); err != nil {
		return nil, err
	}
	return append([]domain.Interest(nil), m.memoryInterests[userID]...), nil
}

// FindArticleInterests returns seeded article-derived interests.
func (m *MockStore) FindArticleInterests(ctx context.Context, userID string) ([]domain.Interest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindArticleInterests"); err != nil {
		return nil, err
	}
	return append([]domain.Interest(nil), m.articleInterests[userID]...), nil
}

// FindCombination looks up a combination record by its sorted key.
func (m *MockStore) FindCombination(ctx context.Context, userID, key string) (*domain.CapabilityCombination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindCombination"); err != nil {
		return nil, err
	}
	combo, ok := m.combinations[userID][key]
	if !ok {
		return nil, appErrors.NewNotFound(fmt.Sprintf("combination %s not found", key))
	}
	c := *combo
	return &c, nil
}

// RecordUsage upserts the combination row, incrementing on collision like
// the DynamoDB implementation.
func (m *MockStore) RecordUsage(ctx context.Context, userID string, capabilityIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("RecordUsage"); err != nil {
		return err
	}
	key := domain.CombinationKey(capabilityIDs)
	if key == "" {
		return appErrors.NewValidation("cannot record usage for an empty capability combination")
	}
	if m.combinations[userID] == nil {
		m.combinations[userID] = make(map[string]*domain.CapabilityCombination)
	}
	if combo, ok := m.combinations[userID][key]; ok {
		combo.TimesSuggested++
		combo.LastSuggestedAt = time.Now().UTC()
		return nil
	}
	sorted := make([]string, len(capabilityIDs))
	copy(sorted, capabilityIDs)
	sort.Strings(sorted)
	m.combinations[userID][key] = &domain.CapabilityCombination{
		CapabilityIDs:   sorted,
		TimesSuggested:  1,
		LastSuggestedAt: time.Now().UTC(),
	}
	return nil
}

// CreateSuggestion appends a suggestion to the user's history.
func (m *MockStore) CreateSuggestion(ctx context.Context, suggestion domain.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("CreateSuggestion"); err != nil {
		return err
	}
	m.suggestions[suggestion.UserID] = append(m.suggestions[suggestion.UserID], suggestion)
	return nil
}

// FindRecentSuggestions returns up to limit suggestions, most recent first.
func (m *MockStore) FindRecentSuggestions(ctx context.Context, userID string, limit int) ([]domain.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindRecentSuggestions"); err != nil {
		return nil, err
	}
	stored := m.suggestions[userID]
	recent := make([]domain.Suggestion, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		recent = append(recent, stored[i])
		if limit > 0 && len(recent) >= limit {
			break
		}
	}
	return recent, nil
}

// FindRecentEmbeddings returns up to limit embedded records, most recent
// first.
func (m *MockStore) FindRecentEmbeddings(ctx context.Context, userID string, limit int) ([]domain.EmbeddedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedError("FindRecentEmbeddings"); err != nil {
		return nil, err
	}
	stored := m.embeddings[userID]
	recent := make([]domain.EmbeddedRecord, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		recent = append(recent, stored[i])
		if limit > 0 && len(recent) >= limit {
			break
		}
	}
	return recent, nil
}

// CombinationCount reports times_suggested for a combination, 0 if absent.
// Test helper.
func (m *MockStore) CombinationCount(userID string, capabilityIDs []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	combo, ok := m.combinations[userID][domain.CombinationKey(capabilityIDs)]
	if !ok {
		return 0
	}
	return combo.TimesSuggested
}

// StoredSuggestions returns all persisted suggestions for a user. Test
// helper.
func (m *MockStore) StoredSuggestions(userID string) []domain.Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Suggestion(nil), m.suggestions[userID]...)
}
