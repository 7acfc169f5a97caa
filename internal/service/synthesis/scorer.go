package synthesis

import (
	"context"
	"math"
	"strings"

	"polymath-backend/internal/config"
	"polymath-backend/internal/domain"
	"polymath-backend/internal/repository"
	appErrors "polymath-backend/pkg/errors"
)

// Scoring constants shared by every run. The per-axis weights live in
// config.Synthesis; these shape the individual axes.
const (
	// negativeRatingWeight is the novelty deduction per negative rating of
	// a combination.
	negativeRatingWeight = 0.2

	// strengthScale normalizes capability strength (nominally 0-10) to [0,1].
	strengthScale = 10.0

	// avgStrengthWeight is the share of feasibility carried by normalized
	// mean capability strength.
	avgStrengthWeight = 0.5

	// integrationBonus rewards combinations whose capabilities all come
	// from one source project; they integrate more easily.
	integrationBonus = 0.3

	// simplicityWeight is the share of feasibility carried by the inverse
	// complexity penalty.
	simplicityWeight = 0.2

	// complexityStep and complexityCap grow the penalty per capability
	// beyond two, up to the cap.
	complexityStep = 0.1
	complexityCap  = 0.3

	// neutralInterestScore is returned when the user has no interests to
	// align with.
	neutralInterestScore = 0.5

	// interestBoostWeight scales the mean interest strength added on top
	// of the best embedding similarity.
	interestBoostWeight = 0.3
)

// Scorer computes the three independent [0,1] score axes and the weighted
// total for a candidate idea.
type Scorer struct {
	combinations repository.CombinationRepository
	cfg          config.Synthesis
}

// NewScorer creates a scorer over the combination usage history.
func NewScorer(combinations repository.CombinationRepository, cfg config.Synthesis) *Scorer {
	return &Scorer{combinations: combinations, cfg: cfg}
}

// Novelty scores how fresh a capability combination is. A combination that
// was never suggested scores exactly 1.0; repeat suggestions decay
// logarithmically, negative ratings and accumulated penalties push the score
// down further, and the floor guarantees every combination keeps some chance
// of resurfacing.
func (s *Scorer) Novelty(ctx context.Context, userID string, capabilityIDs []string) (float64, error) {
	if len(capabilityIDs) == 0 {
		// Capability-free (creative) ideas have no combination to look up.
		return s.cfg.CreativeNovelty, nil
	}

	key := domain.CombinationKey(capabilityIDs)
	combo, err := s.combinations.FindCombination(ctx, userID, key)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return 1.0, nil
		}
		return 0, appErrors.Wrap(err, "novelty lookup failed")
	}

	base := 1.0 / (1.0 + math.Log(float64(combo.TimesSuggested)+1))
	score := base - negativeRatingWeight*float64(combo.TimesRatedNegative) - combo.PenaltyScore
	return domain.Clamp(score, s.cfg.NoveltyFloor, 1.0), nil
}

// Feasibility scores how buildable the capability set is: stronger
// capabilities help, same-project capabilities integrate more easily, and
// each capability beyond two costs coordination overhead.
func (s *Scorer) Feasibility(capabilities []domain.Capability) float64 {
	if len(capabilities) == 0 {
		// No code to write: trivially feasible.
		return s.cfg.CreativeFeasibility
	}

	var total float64
	for _, cap := range capabilities {
		total += cap.Strength
	}
	avgStrength := domain.Clamp(total/float64(len(capabilities))/strengthScale, 0, 1)

	bonus := 0.0
	if sameSourceProject(capabilities) {
		bonus = integrationBonus
	}

	complexity := domain.Clamp(float64(len(capabilities)-2)*complexityStep, 0, complexityCap)

	score := avgStrengthWeight*avgStrength + bonus + simplicityWeight*(1-complexity)
	return domain.Clamp(score, 0, 1)
}

func sameSourceProject(capabilities []domain.Capability) bool {
	project := capabilities[0].SourceProject
	if project == "" {
		return false
	}
	for _, cap := range capabilities[1:] {
		if cap.SourceProject != project {
			return false
		}
	}
	return true
}

// InterestAlignment scores how well the idea's description matches what the
// user has been reading and writing about, and returns the ID of the pool
// record that anchored the score. descriptionVec is the already embedded
// description (nil when embedding failed); the pool holds
// collaborator-provided embedded records to compare against. With no pool
// or no vector the score degrades to substring matching against interest
// names and no anchor record is reported.
func (s *Scorer) InterestAlignment(description string, descriptionVec []float32, interests []domain.Interest, pool []domain.EmbeddedRecord) (float64, string) {
	if len(interests) == 0 {
		return neutralInterestScore, ""
	}

	if len(pool) == 0 || len(descriptionVec) == 0 {
		return s.substringAlignment(description, interests), ""
	}

	best := 0.0
	bestID := ""
	for _, record := range pool {
		if sim := domain.CosineSimilarity(descriptionVec, record.Vector); sim > best {
			best = sim
			bestID = record.ID
		}
	}

	boost := math.Min(interestBoostWeight*domain.MeanStrength(interests), interestBoostWeight)
	return domain.Clamp(best+boost, 0, 1), bestID
}

// substringAlignment is the embedding-free fallback: case-insensitive name
// matching scored by the matched interest's strength.
func (s *Scorer) substringAlignment(description string, interests []domain.Interest) float64 {
	lowered := strings.ToLower(description)
	best := 0.0
	for _, in := range interests {
		name := strings.ToLower(strings.TrimSpace(in.Name))
		if name == "" || !strings.Contains(lowered, name) {
			continue
		}
		if score := in.Strength / strengthScale; score > best {
			best = score
		}
	}
	return domain.Clamp(best, 0, 1)
}

// TotalPoints combines the three axes into the 0-100 integer shown to the
// user.
func (s *Scorer) TotalPoints(novelty, feasibility, interest float64) int {
	weighted := s.cfg.NoveltyWeight*novelty +
		s.cfg.FeasibilityWeight*feasibility +
		s.cfg.InterestWeight*interest
	points := int(math.Round(100 * weighted))
	if points < 0 {
		return 0
	}
	if points > 100 {
		return 100
	}
	return points
}
