package embedding

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbedder is an in-memory Embedder for testing and development. By
// default each distinct text maps deterministically to its own unit vector;
// tests can pin every text to one fixed vector to provoke similarity
// collisions, or inject an error.
type MockEmbedder struct {
	mu    sync.Mutex
	dim   int
	fixed []float32
	err   error
	calls int
}

// NewMockEmbedder creates a mock embedder producing vectors of the given
// dimensionality.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{dim: dim}
}

// SetFixedVector makes every text embed to vec, regardless of content.
func (m *MockEmbedder) SetFixedVector(vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed = vec
}

// SetError makes every embedding call fail with err until cleared with nil.
func (m *MockEmbedder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many embedding calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) vectorFor(text string) []float32 {
	if m.fixed != nil {
		return m.fixed
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	vec := make([]float32, m.dim)
	vec[int(h.Sum32())%m.dim] = 1
	return vec
}

// EmbedText returns the deterministic vector for one text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls++
	return m.vectorFor(text), nil
}

// EmbedBatch returns one vector per text, in input order.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.calls++
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = m.vectorFor(text)
	}
	return vecs, nil
}

// Dimensions returns the configured vector dimensionality.
func (m *MockEmbedder) Dimensions() int {
	return m.dim
}
