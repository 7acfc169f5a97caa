package mocks

import (
	"context"
	"testing"

	"polymath-backend/internal/domain"
	appErrors "polymath-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUsageInsertThenIncrement(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	// First call takes the insert path, the second collides and increments.
	// Selection order must not matter.
	require.NoError(t, store.RecordUsage(ctx, "user-1", []string{"c1", "c2"}))
	require.NoError(t, store.RecordUsage(ctx, "user-1", []string{"c2", "c1"}))

	assert.Equal(t, 2, store.CombinationCount("user-1", []string{"c1", "c2"}))

	combo, err := store.FindCombination(ctx, "user-1", domain.CombinationKey([]string{"c2", "c1"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, combo.CapabilityIDs, "stored IDs are canonical sorted order")
	assert.Equal(t, 2, combo.TimesSuggested, "no lost update, no double increment")
	assert.False(t, combo.LastSuggestedAt.IsZero())
}

func TestRecordUsageRejectsEmptyCombination(t *testing.T) {
	store := NewMockStore()

	err := store.RecordUsage(context.Background(), "user-1", nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))
}

func TestFindCombinationMissing(t *testing.T) {
	store := NewMockStore()

	_, err := store.FindCombination(context.Background(), "user-1", "c1#c2")
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}
