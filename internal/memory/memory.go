// Package memory persists opportunity embeddings across sessions so repeat
// postings can be suppressed. It is best-effort: any backend failure turns
// memory off for the session instead of failing the search.
package memory

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
)

const DefaultSimilarityThreshold = 0.92

// Payload is the metadata stored next to an embedding.
type Payload struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Match is a stored opportunity whose embedding is close to the query vector.
type Match struct {
	Key        string
	Similarity float64
	Payload    Payload
}

// Store is the vector-store contract. Any backend that can upsert by key and
// answer nearest-neighbor queries satisfies it.
type Store interface {
	Upsert(ctx context.Context, key string, vector []float32, payload Payload) error
	QuerySimilar(ctx context.Context, vector []float32, threshold float64) ([]Match, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Memory ties an embedder and a store together. After the first backend error
// it disables itself and every later call is a no-op. One instance may be
// shared by concurrent searches, so the latch is atomic.
type Memory struct {
	store     Store
	embedder  Embedder
	threshold float64
	logger    *zap.Logger
	disabled  atomic.Bool
}

func New(store Store, embedder Embedder, threshold float64, logger *zap.Logger) *Memory {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// Enabled reports whether memory is still usable.
func (m *Memory) Enabled() bool {
	return m != nil && m.store != nil && m.embedder != nil && !m.disabled.Load()
}

// SeenBefore reports whether text is a near-duplicate of something stored in
// a previous session. On any failure it answers false and disables memory.
func (m *Memory) SeenBefore(ctx context.Context, text string) bool {
	if !m.Enabled() {
		return false
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.degrade("embedding failed", err)
		return false
	}

	matches, err := m.store.QuerySimilar(ctx, vector, m.threshold)
	if err != nil {
		m.degrade("similarity query failed", err)
		return false
	}

	return len(matches) > 0
}

// Remember stores the text embedding and payload under key.
func (m *Memory) Remember(ctx context.Context, key, text string, payload Payload) {
	if !m.Enabled() {
		return
	}

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		m.degrade("embedding failed", err)
		return
	}

	if err := m.store.Upsert(ctx, key, vector, payload); err != nil {
		m.degrade("upsert failed", err)
	}
}

func (m *Memory) degrade(reason string, err error) {
	// Swap keeps the latch one-way and warns only once under concurrency.
	if m.disabled.Swap(true) {
		return
	}
	m.logger.Warn("memory store unavailable, continuing without memory",
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// Cosine returns the cosine similarity of two vectors, 0 when either is a
// zero vector or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
