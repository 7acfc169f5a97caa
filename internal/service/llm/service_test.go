package llm

import (
	"context"
	"fmt"
	"testing"

	"polymath-backend/internal/domain"
	appErrors "polymath-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCapabilities = []domain.Capability{
	{ID: "c1", Name: "Go services", Strength: 8, SourceProject: "polymath", Description: "Backend services in Go"},
	{ID: "c2", Name: "DynamoDB modeling", Strength: 6, SourceProject: "polymath", Description: "Single-table design"},
}

var testInterests = []domain.Interest{
	{ID: "i1", Name: "Birdwatching", Type: "hobby", Strength: 7, Mentions: 12},
	{ID: "i2", Name: "Local-first software", Type: "topic", Strength: 6, Mentions: 8},
}

func TestGenerateIdea(t *testing.T) {
	provider := NewMockProvider()
	svc := NewService(provider)

	idea, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, []string{"Old project"})
	require.NoError(t, err)

	assert.NotEmpty(t, idea.Title)
	assert.NotEmpty(t, idea.Description)
	assert.NotEmpty(t, idea.Reasoning)
	assert.Equal(t, 1, provider.Calls())
}

func TestGenerateIdeaFencedResponse(t *testing.T) {
	provider := NewMockProvider()
	provider.QueueResponse("```json\n{\"title\": \"Bird feeder cam\", \"description\": \"A camera.\", \"reasoning\": \"Fits.\"}\n```")
	svc := NewService(provider)

	idea, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bird feeder cam", idea.Title)
}

func TestGenerateIdeaParseFailure(t *testing.T) {
	provider := NewMockProvider()
	provider.QueueResponse("Sorry, I had trouble thinking of anything today.")
	svc := NewService(provider)

	_, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsGenerationParse(err))
	// The raw response travels with the error for diagnosis.
	assert.Contains(t, appErrors.RawResponse(err), "trouble thinking")
}

func TestGenerateIdeaMissingFields(t *testing.T) {
	provider := NewMockProvider()
	provider.QueueResponse(`{"title": "Only a title"}`)
	svc := NewService(provider)

	_, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsGenerationParse(err))
}

func TestGenerateIdeaProviderFailure(t *testing.T) {
	provider := NewMockProvider()
	provider.SetError(fmt.Errorf("rate limited"))
	svc := NewService(provider)

	_, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsRemoteService(err))
}

func TestGenerateIdeaProviderUnavailable(t *testing.T) {
	provider := NewMockProvider()
	provider.SetAvailable(false)
	svc := NewService(provider)

	_, err := svc.GenerateIdea(context.Background(), testCapabilities, testInterests, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsRemoteService(err))
	assert.Zero(t, provider.Calls())
}

func TestGenerateCreativeIdea(t *testing.T) {
	provider := NewMockProvider()
	svc := NewService(provider)

	idea, err := svc.GenerateCreativeIdea(context.Background(), testInterests)
	require.NoError(t, err)
	assert.NotEmpty(t, idea.Title)
}

func TestGenerateCreativeIdeaRequiresTwoInterests(t *testing.T) {
	svc := NewService(NewMockProvider())

	_, err := svc.GenerateCreativeIdea(context.Background(), testInterests[:1])
	require.Error(t, err)
	assert.True(t, appErrors.IsPrecondition(err))
}

func TestGenerateIdeaBatch(t *testing.T) {
	provider := NewMockProvider()
	provider.QueueResponse(`[
		{"title": "A", "description": "First.", "reasoning": "Fits."},
		{"title": "B", "description": "Second.", "reasoning": "Fits."},
		{"title": "", "description": "Invalid: empty title.", "reasoning": "Dropped."}
	]`)
	svc := NewService(provider)

	ideas, err := svc.GenerateIdeaBatch(context.Background(), testCapabilities, testInterests, 3)
	require.NoError(t, err)

	// Invalid entries are dropped, not fatal.
	require.Len(t, ideas, 2)
	assert.Equal(t, "A", ideas[0].Title)
}

func TestGenerateIdeaBatchAllInvalid(t *testing.T) {
	provider := NewMockProvider()
	provider.QueueResponse(`[{"title": ""}]`)
	svc := NewService(provider)

	_, err := svc.GenerateIdeaBatch(context.Background(), testCapabilities, testInterests, 1)
	require.Error(t, err)
	assert.True(t, appErrors.IsGenerationParse(err))
}

func TestBuildIdeaPromptIncludesContext(t *testing.T) {
	svc := NewService(NewMockProvider())

	prompt := svc.buildIdeaPrompt(testCapabilities, testInterests, []string{"Recent one"})

	assert.Contains(t, prompt, "Go services")
	assert.Contains(t, prompt, "Birdwatching")
	assert.Contains(t, prompt, "Recent one")
	assert.Contains(t, prompt, "avoid anything similar")
}
