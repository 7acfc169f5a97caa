package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinationKey(t *testing.T) {
	t.Run("is order independent", func(t *testing.T) {
		a := CombinationKey([]string{"cap-3", "cap-1", "cap-2"})
		b := CombinationKey([]string{"cap-2", "cap-3", "cap-1"})
		assert.Equal(t, "cap-1#cap-2#cap-3", a)
		assert.Equal(t, a, b)
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		ids := []string{"z", "a"}
		CombinationKey(ids)
		assert.Equal(t, []string{"z", "a"}, ids)
	})

	t.Run("empty input yields empty key", func(t *testing.T) {
		assert.Equal(t, "", CombinationKey(nil))
	})
}

func TestMergeInterests(t *testing.T) {
	memory := []Interest{
		{ID: "m1", Name: "Rust", Type: "topic", Strength: 6, Mentions: 3},
		{ID: "m2", Name: "Gardening", Type: "topic", Strength: 2, Mentions: 1},
	}
	articles := []Interest{
		{ID: "a1", Name: "rust", Type: "topic", Strength: 8, Mentions: 5},
		{ID: "a2", Name: "Distributed Systems", Type: "topic", Strength: 7, Mentions: 4},
	}

	merged := MergeInterests(memory, articles)
	require.Len(t, merged, 3)

	// Sorted by strength descending.
	assert.Equal(t, "Rust", merged[0].Name)
	assert.Equal(t, 8.0, merged[0].Strength, "duplicate takes the max strength")
	assert.Equal(t, 8, merged[0].Mentions, "duplicate sums mentions")

	assert.Equal(t, "Distributed Systems", merged[1].Name)
	assert.Equal(t, "Gardening", merged[2].Name)
}

func TestMergeInterestsSkipsBlankNames(t *testing.T) {
	merged := MergeInterests([]Interest{{Name: "  "}, {Name: "Go", Strength: 5}}, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "Go", merged[0].Name)
}

func TestTopInterests(t *testing.T) {
	interests := []Interest{{Name: "a", Strength: 9}, {Name: "b", Strength: 5}, {Name: "c", Strength: 1}}
	assert.Len(t, TopInterests(interests, 2), 2)
	assert.Len(t, TopInterests(interests, 10), 3)
	assert.Len(t, TopInterests(interests, 0), 3)
}

func TestMeanStrength(t *testing.T) {
	assert.Equal(t, 0.0, MeanStrength(nil))
	assert.InDelta(t, 5.0, MeanStrength([]Interest{{Strength: 4}, {Strength: 6}}), 1e-9)
}

func TestNewSuggestion(t *testing.T) {
	idea := ProjectIdea{Title: "CLI garden planner", Description: "Plans beds.", TotalPoints: 72}
	vec := []float32{0.1, 0.2}

	s := NewSuggestion("user-1", idea, vec)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, SuggestionStatusPending, s.Status)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Equal(t, vec, s.Embedding)
	assert.Equal(t, idea.Title, s.Title)
}

func TestEmbeddingText(t *testing.T) {
	idea := ProjectIdea{Title: "Bird logger", Description: "Logs birds."}
	assert.Equal(t, "Bird logger. Logs birds.", idea.EmbeddingText())
}
