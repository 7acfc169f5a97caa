package synthesis

import (
	"polymath-backend/internal/config"
	"polymath-backend/internal/domain"
)

// Rejection reasons reported by the diversity gate.
const (
	reasonDuplicateCombo = "duplicate_combo"
	reasonHistorySimilar = "history_similarity"
	reasonBatchSimilar   = "batch_similarity"
)

// gateDecision is the outcome of one diversity check.
type gateDecision struct {
	Accepted bool
	Reason   string
	// Similarity carries the offending score for rejected candidates.
	Similarity float64
}

// diversityGate holds the run-local state used to keep a batch diverse:
// combination keys already used this run, embeddings of recent persisted
// suggestions, and embeddings of candidates accepted so far. It is used by
// a single goroutine per run.
type diversityGate struct {
	cfg         config.Synthesis
	usedCombos  map[string]struct{}
	historyVecs [][]float32
	batchVecs   [][]float32

	// comboRejectSeen blocks threshold relaxation within the current slot:
	// relaxation only applies when every failure in this slot's attempt
	// loop was a similarity failure. Cleared by ResetSlot.
	comboRejectSeen bool
}

func newDiversityGate(cfg config.Synthesis, historyVecs [][]float32) *diversityGate {
	return &diversityGate{
		cfg:         cfg,
		usedCombos:  make(map[string]struct{}),
		historyVecs: historyVecs,
	}
}

// ResetSlot clears the per-slot relaxation state. Called at the start of
// each slot's attempt loop; the used-combination and batch-embedding state
// persists for the whole run.
func (g *diversityGate) ResetSlot() {
	g.comboRejectSeen = false
}

// Check evaluates the three rejection rules for a candidate. comboKey is
// empty for creative candidates, which exempts them from the duplicate
// check. Late attempts in a slot that never failed on a duplicate
// combination get the relaxed history threshold.
func (g *diversityGate) Check(comboKey string, vec []float32, attempt int) gateDecision {
	if comboKey != "" {
		if _, used := g.usedCombos[comboKey]; used {
			g.comboRejectSeen = true
			return gateDecision{Reason: reasonDuplicateCombo}
		}
	}

	historyThreshold := g.cfg.HistoryThreshold
	if attempt > g.cfg.RelaxAfterAttempts && !g.comboRejectSeen {
		historyThreshold = g.cfg.RelaxedHistoryThreshold
	}

	if sim := domain.MaxSimilarity(vec, g.historyVecs); sim > historyThreshold {
		return gateDecision{Reason: reasonHistorySimilar, Similarity: sim}
	}

	// Intra-batch near-duplicates sit side by side in the UI, so the bar
	// is lower than for history.
	if sim := domain.MaxSimilarity(vec, g.batchVecs); sim > g.cfg.BatchThreshold {
		return gateDecision{Reason: reasonBatchSimilar, Similarity: sim}
	}

	return gateDecision{Accepted: true}
}

// Accept records an accepted candidate: its combination key can't be reused
// this run and its embedding joins the batch comparison set.
func (g *diversityGate) Accept(comboKey string, vec []float32) {
	if comboKey != "" {
		g.usedCombos[comboKey] = struct{}{}
	}
	if len(vec) > 0 {
		g.batchVecs = append(g.batchVecs, vec)
	}
}
