// Package domain contains the core types of the suggestion synthesis engine:
// capabilities, interests, capability combinations, project ideas, and
// persisted suggestions.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SuggestionStatusPending is the status every freshly persisted suggestion
// carries. Status transitions happen downstream during review, never here.
const SuggestionStatusPending = "pending"

// Capability is a recorded skill or technology extracted from past work.
// Capabilities are read-only from the engine's perspective; strength grows
// elsewhere in the system as the capability is reinforced.
type Capability struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Strength      float64 `json:"strength"`
	SourceProject string  `json:"source_project"`
}

// Interest is a topic or entity inferred from repeated mentions in personal
// notes and reading within a trailing time window.
type Interest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Strength float64 `json:"strength"`
	Mentions int     `json:"mentions"`
}

// CapabilityCombination is the durable novelty bookkeeping aggregate, keyed
// by the sorted tuple of capability IDs used together.
type CapabilityCombination struct {
	CapabilityIDs      []string  `json:"capability_ids"`
	TimesSuggested     int       `json:"times_suggested"`
	TimesRatedNegative int       `json:"times_rated_negative"`
	PenaltyScore       float64   `json:"penalty_score"`
	LastSuggestedAt    time.Time `json:"last_suggested_at"`
}

// ProjectIdea is an in-flight candidate produced by the generator and scored
// by the engine. It becomes a Suggestion only after passing the diversity
// gate.
type ProjectIdea struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Reasoning        string   `json:"reasoning"`
	CapabilityIDs    []string `json:"capability_ids"`
	MemoryIDs        []string `json:"memory_ids"`
	NoveltyScore     float64  `json:"novelty_score"`
	FeasibilityScore float64  `json:"feasibility_score"`
	InterestScore    float64  `json:"interest_score"`
	TotalPoints      int      `json:"total_points"`
	IsWildcard       bool     `json:"is_wildcard"`
}

// Suggestion is a persisted project idea. Immutable once written except for
// a status transition performed by downstream review actions.
type Suggestion struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	// Embedding of the title+description, stored so later runs can compare
	// against history without re-embedding it.
	Embedding []float32 `json:"embedding,omitempty"`

	ProjectIdea
}

// EmbeddedRecord is a previously embedded piece of user content (a memory or
// prior suggestion) used for interest-alignment scoring.
type EmbeddedRecord struct {
	ID     string    `json:"id"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// NewSuggestion wraps an accepted idea as a pending suggestion for the user.
func NewSuggestion(userID string, idea ProjectIdea, embedding []float32) Suggestion {
	return Suggestion{
		ID:          uuid.New().String(),
		UserID:      userID,
		Status:      SuggestionStatusPending,
		CreatedAt:   time.Now().UTC(),
		Embedding:   embedding,
		ProjectIdea: idea,
	}
}

// EmbeddingText is the candidate text compared against history and batch
// members by the diversity gate.
func (s *ProjectIdea) EmbeddingText() string {
	return s.Title + ". " + s.Description
}

// CombinationKey builds the canonical identity of a capability combination.
// The input is copied and sorted first: selection order must never affect
// which combination record is read or written.
func CombinationKey(capabilityIDs []string) string {
	if len(capabilityIDs) == 0 {
		return ""
	}
	ids := make([]string, len(capabilityIDs))
	copy(ids, capabilityIDs)
	sort.Strings(ids)
	return strings.Join(ids, "#")
}

// MergeInterests merges interests from the two extraction sources (personal
// notes vs read articles) by case-insensitive name. Strength takes the max
// of the sources, mention counts are summed. The result is sorted by
// strength descending.
func MergeInterests(memoryInterests, articleInterests []Interest) []Interest {
	byName := make(map[string]Interest)
	order := make([]string, 0, len(memoryInterests)+len(articleInterests))

	add := func(in Interest) {
		key := strings.ToLower(strings.TrimSpace(in.Name))
		if key == "" {
			return
		}
		existing, ok := byName[key]
		if !ok {
			byName[key] = in
			order = append(order, key)
			return
		}
		if in.Strength > existing.Strength {
			existing.Strength = in.Strength
		}
		existing.Mentions += in.Mentions
		byName[key] = existing
	}

	for _, in := range memoryInterests {
		add(in)
	}
	for _, in := range articleInterests {
		add(in)
	}

	merged := make([]Interest, 0, len(byName))
	for _, key := range order {
		merged = append(merged, byName[key])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Strength > merged[j].Strength
	})
	return merged
}

// TopInterests returns up to n strongest interests. The input is assumed
// sorted by strength descending, as produced by MergeInterests.
func TopInterests(interests []Interest, n int) []Interest {
	if n <= 0 || len(interests) <= n {
		return interests
	}
	return interests[:n]
}

// MeanStrength averages interest strengths; zero for an empty list.
func MeanStrength(interests []Interest) float64 {
	if len(interests) == 0 {
		return 0
	}
	var sum float64
	for _, in := range interests {
		sum += in.Strength
	}
	return sum / float64(len(interests))
}
