package domain

import "math"

// CosineSimilarity calculates the cosine similarity between two equal-length
// embedding vectors, in [-1, 1]. Mismatched lengths and zero vectors yield
// 0 rather than dividing by zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dotProduct, magnitudeA, magnitudeB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		magnitudeA += float64(a[i]) * float64(a[i])
		magnitudeB += float64(b[i]) * float64(b[i])
	}

	if magnitudeA == 0 || magnitudeB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(magnitudeA) * math.Sqrt(magnitudeB))
}

// MaxSimilarity returns the highest cosine similarity between v and any
// vector in the pool, or 0 for an empty pool.
func MaxSimilarity(v []float32, pool [][]float32) float64 {
	best := 0.0
	for _, candidate := range pool {
		if sim := CosineSimilarity(v, candidate); sim > best {
			best = sim
		}
	}
	return best
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
