// Package llm turns capability and interest context into generated project
// ideas via a pluggable generative-text provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"polymath-backend/internal/domain"
	appErrors "polymath-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Provider defines the interface for generative-text providers.
type Provider interface {
	Complete(ctx context.Context, prompt string, options CompletionOptions) (string, error)
	IsAvailable() bool
}

// CompletionOptions configures completion requests
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Format      string  `json:"format"` // "json" or "text"
}

// GeneratedIdea is the JSON shape the provider is instructed to return. It
// is an untrusted external schema: every field is validated before an idea
// is constructed from it.
type GeneratedIdea struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Reasoning   string `json:"reasoning" validate:"required"`
}

// Service provides idea generation on top of a Provider.
type Service struct {
	provider Provider
	validate *validator.Validate
}

// NewService creates a new idea generation service with the specified
// provider.
func NewService(provider Provider) *Service {
	return &Service{
		provider: provider,
		validate: validator.New(),
	}
}

// IsAvailable returns true if the underlying provider is available.
func (s *Service) IsAvailable() bool {
	return s.provider != nil && s.provider.IsAvailable()
}

// GenerateIdea asks the provider for one technical project idea built from
// the selected capabilities and the user's strongest interests. The
// recentTitles are passed as anti-repetition context. No retry happens
// here; retries belong to the caller's acceptance loop.
func (s *Service) GenerateIdea(
	ctx context.Context,
	capabilities []domain.Capability,
	interests []domain.Interest,
	recentTitles []string,
) (*GeneratedIdea, error) {
	if !s.IsAvailable() {
		return nil, appErrors.NewRemoteService("generative-text provider is not available", nil)
	}

	prompt := s.buildIdeaPrompt(capabilities, interests, recentTitles)

	response, err := s.provider.Complete(ctx, prompt, CompletionOptions{
		Temperature: 0.9, // High for idea variety
		MaxTokens:   600,
		Format:      "json",
	})
	if err != nil {
		return nil, appErrors.NewRemoteService("idea generation call failed", err)
	}

	return s.parseIdea(response)
}

// GenerateCreativeIdea asks the provider for one capability-free,
// non-technical idea built purely from interests.
func (s *Service) GenerateCreativeIdea(
	ctx context.Context,
	interests []domain.Interest,
) (*GeneratedIdea, error) {
	if !s.IsAvailable() {
		return nil, appErrors.NewRemoteService("generative-text provider is not available", nil)
	}
	if len(interests) < 2 {
		return nil, appErrors.NewPrecondition("creative generation requires at least 2 interests")
	}

	prompt := s.buildCreativePrompt(interests)

	response, err := s.provider.Complete(ctx, prompt, CompletionOptions{
		Temperature: 1.0,
		MaxTokens:   500,
		Format:      "json",
	})
	if err != nil {
		return nil, appErrors.NewRemoteService("creative idea generation call failed", err)
	}

	return s.parseIdea(response)
}

// GenerateIdeaBatch asks the provider for several ideas in one call and
// parses the returned JSON array.
func (s *Service) GenerateIdeaBatch(
	ctx context.Context,
	capabilities []domain.Capability,
	interests []domain.Interest,
	count int,
) ([]GeneratedIdea, error) {
	if !s.IsAvailable() {
		return nil, appErrors.NewRemoteService("generative-text provider is not available", nil)
	}
	if count < 1 {
		return nil, appErrors.NewValidation("batch count must be at least 1")
	}

	prompt := s.buildIdeaPrompt(capabilities, interests, nil) +
		fmt.Sprintf("\nReturn a JSON array of exactly %d such objects instead of a single object.\n", count)

	response, err := s.provider.Complete(ctx, prompt, CompletionOptions{
		Temperature: 0.9,
		MaxTokens:   600 * count,
		Format:      "json",
	})
	if err != nil {
		return nil, appErrors.NewRemoteService("batch idea generation call failed", err)
	}

	return s.parseIdeaList(response)
}

// buildIdeaPrompt creates the technical idea generation prompt.
func (s *Service) buildIdeaPrompt(capabilities []domain.Capability, interests []domain.Interest, recentTitles []string) string {
	var b strings.Builder

	b.WriteString("You are a project idea generator for a developer. Combine the developer's proven capabilities with their current interests into one novel, concrete project idea.\n\n")

	b.WriteString("Capabilities to build on:\n")
	for _, cap := range capabilities {
		project := cap.SourceProject
		if project == "" {
			project = "unknown project"
		}
		b.WriteString(fmt.Sprintf("- %s (strength %.1f, from %s): %s\n", cap.Name, cap.Strength, project, cap.Description))
	}

	b.WriteString("\nCurrent interests:\n")
	b.WriteString(s.formatInterests(interests))

	if len(recentTitles) > 0 {
		b.WriteString("\nRecently suggested projects (avoid anything similar):\n")
		for _, title := range recentTitles {
			b.WriteString(fmt.Sprintf("- %s\n", title))
		}
	}

	b.WriteString(`
Return a single JSON object with this structure:
{"title": "Project name", "description": "What it is and what it does, 2-4 sentences", "reasoning": "Why this fits the capabilities and interests"}

Rules:
1. The project must genuinely use the listed capabilities together
2. Tie the idea to at least one listed interest
3. Keep the title short and specific (under 8 words)
4. The description must be concrete enough to start building from
5. Return only the JSON object, nothing else
`)

	return b.String()
}

// buildCreativePrompt creates the capability-free creative prompt.
func (s *Service) buildCreativePrompt(interests []domain.Interest) string {
	var b strings.Builder

	b.WriteString("You are a creative idea generator. Suggest one personal, non-technical project inspired by the topics this person keeps coming back to.\n\n")
	b.WriteString("Recurring interests:\n")
	b.WriteString(s.formatInterests(interests))

	b.WriteString(`
Return a single JSON object with this structure:
{"title": "Idea name", "description": "What it is, 2-4 sentences", "reasoning": "Why it fits these interests"}

Rules:
1. No software, no coding, nothing technical
2. Concrete and doable within a few weekends
3. Different in kind from the interests themselves, not just a restatement
4. Return only the JSON object, nothing else
`)

	return b.String()
}

// formatInterests formats interests for the prompt
func (s *Service) formatInterests(interests []domain.Interest) string {
	if len(interests) == 0 {
		return "No recorded interests.\n"
	}
	var formatted []string
	for _, in := range interests {
		formatted = append(formatted, fmt.Sprintf("- %s (%s, mentioned %d times)", in.Name, in.Type, in.Mentions))
	}
	return strings.Join(formatted, "\n") + "\n"
}

// parseIdea extracts and validates a single idea object from the raw
// response.
func (s *Service) parseIdea(response string) (*GeneratedIdea, error) {
	span, err := ExtractJSONSpan(response)
	if err != nil {
		return nil, appErrors.NewGenerationParse("no JSON object found in response", response, err)
	}

	var idea GeneratedIdea
	if err := json.Unmarshal([]byte(span), &idea); err != nil {
		return nil, appErrors.NewGenerationParse("failed to parse JSON response", response, err)
	}

	if err := s.validate.Struct(&idea); err != nil {
		return nil, appErrors.NewGenerationParse("response is missing required idea fields", response, err)
	}
	return &idea, nil
}

// parseIdeaList extracts and validates an idea array from the raw response.
// Objects failing validation are dropped; an empty result is a parse error.
func (s *Service) parseIdeaList(response string) ([]GeneratedIdea, error) {
	span, err := ExtractJSONSpan(response)
	if err != nil {
		return nil, appErrors.NewGenerationParse("no JSON array found in response", response, err)
	}

	var ideas []GeneratedIdea
	if err := json.Unmarshal([]byte(span), &ideas); err != nil {
		return nil, appErrors.NewGenerationParse("failed to parse JSON array response", response, err)
	}

	valid := make([]GeneratedIdea, 0, len(ideas))
	for _, idea := range ideas {
		if s.validate.Struct(&idea) == nil {
			valid = append(valid, idea)
		}
	}
	if len(valid) == 0 {
		return nil, appErrors.NewGenerationParse("response contained no usable ideas", response, nil)
	}
	return valid, nil
}
