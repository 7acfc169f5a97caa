package synthesis

import (
	"math/rand"
	"sort"

	"polymath-backend/internal/config"
	"polymath-backend/internal/domain"
	appErrors "polymath-backend/pkg/errors"
)

// Wildcard strategy names, rotated by iteration so consecutive wildcard
// slots don't repeat the same anti-echo-chamber trick.
const (
	strategyUnpopular  = "unpopular"
	strategyNovelCombo = "novel-combo"
	strategyInverted   = "inverted"
	strategyRandom     = "random"
)

var wildcardRotation = []string{strategyUnpopular, strategyNovelCombo, strategyInverted, strategyRandom}

// selector picks capability subsets for a candidate idea. The random source
// is injected so selection is deterministic under test.
type selector struct {
	rng    *rand.Rand
	policy config.Selection
}

func newSelector(rng *rand.Rand, policy config.Selection) *selector {
	return &selector{rng: rng, policy: policy}
}

// drawCount picks how many capabilities to combine: 2, 3 or 4, biased
// toward smaller combinations.
func (s *selector) drawCount() int {
	roll := s.rng.Float64()
	switch {
	case roll < s.policy.TwoProbability:
		return 2
	case roll < s.policy.TwoProbability+s.policy.ThreeProbability:
		return 3
	default:
		return 4
	}
}

// SelectNormal picks k distinct capabilities using either strength-weighted
// or uniform sampling. The returned list never holds duplicate IDs and can
// be shorter than k only when the pool is smaller than k.
func (s *selector) SelectNormal(capabilities []domain.Capability) []domain.Capability {
	k := s.drawCount()
	if s.rng.Float64() < s.policy.WeightedProbability {
		return s.selectWeighted(capabilities, k)
	}
	return s.selectUniform(capabilities, k)
}

// selectWeighted samples from a virtual multiset where each capability
// appears max(1, floor(strength)) times, deduplicating by ID, then tops up
// uniformly from whatever remains.
func (s *selector) selectWeighted(capabilities []domain.Capability, k int) []domain.Capability {
	pool := make([]int, 0, len(capabilities))
	for i, cap := range capabilities {
		copies := int(cap.Strength)
		if copies < 1 {
			copies = 1
		}
		for c := 0; c < copies; c++ {
			pool = append(pool, i)
		}
	}

	chosen := make([]domain.Capability, 0, k)
	seen := make(map[string]struct{}, k)
	for len(pool) > 0 && len(chosen) < k {
		pick := s.rng.Intn(len(pool))
		idx := pool[pick]
		pool[pick] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		cap := capabilities[idx]
		if _, dup := seen[cap.ID]; dup {
			continue
		}
		seen[cap.ID] = struct{}{}
		chosen = append(chosen, cap)
	}

	if len(chosen) < k {
		remaining := make([]domain.Capability, 0, len(capabilities))
		for _, cap := range capabilities {
			if _, dup := seen[cap.ID]; !dup {
				remaining = append(remaining, cap)
			}
		}
		s.rng.Shuffle(len(remaining), func(i, j int) {
			remaining[i], remaining[j] = remaining[j], remaining[i]
		})
		for _, cap := range remaining {
			if len(chosen) == k {
				break
			}
			seen[cap.ID] = struct{}{}
			chosen = append(chosen, cap)
		}
	}
	return chosen
}

// selectUniform shuffles the capabilities and takes the first k.
func (s *selector) selectUniform(capabilities []domain.Capability, k int) []domain.Capability {
	shuffled := append([]domain.Capability(nil), capabilities...)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > k {
		shuffled = shuffled[:k]
	}
	return shuffled
}

// SelectWildcard picks a deliberately non-obvious capability pair using the
// strategy for this iteration. Returns the pair and the strategy name.
func (s *selector) SelectWildcard(capabilities []domain.Capability, iteration int) ([]domain.Capability, string) {
	strategy := wildcardRotation[iteration%len(wildcardRotation)]

	switch strategy {
	case strategyUnpopular:
		// The two weakest capabilities: the ones normal selection
		// almost never reaches for.
		weakest := append([]domain.Capability(nil), capabilities...)
		sort.SliceStable(weakest, func(i, j int) bool {
			return weakest[i].Strength < weakest[j].Strength
		})
		if len(weakest) > 2 {
			weakest = weakest[:2]
		}
		return weakest, strategy

	case strategyNovelCombo:
		filtered := make([]domain.Capability, 0, len(capabilities))
		for _, cap := range capabilities {
			if cap.Strength < s.policy.NovelComboCutoff {
				filtered = append(filtered, cap)
			}
		}
		if len(filtered) < 2 {
			filtered = capabilities
		}
		return s.selectUniform(filtered, 2), strategy

	default: // inverted, random
		return s.selectUniform(capabilities, 2), strategy
	}
}

// SelectCreative validates the creative-mode precondition. Creative
// candidates use no capabilities at all.
func (s *selector) SelectCreative(interests []domain.Interest) error {
	if len(interests) < 2 {
		return appErrors.NewPrecondition("creative selection requires at least 2 interests")
	}
	return nil
}
