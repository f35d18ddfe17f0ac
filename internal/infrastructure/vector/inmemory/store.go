package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

// Store is a brute-force in-process vector index for local development and
// tests. It reports raw euclidean distances, lowest first, and is adapted to
// the similarity port at wiring time.
type Store struct {
	mu      sync.RWMutex
	chunks  []domain.Chunk
	vectors [][]float32
}

func New() *Store {
	return &Store{}
}

func (s *Store) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d vs %d", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Store) SearchByDistance(_ context.Context, queryVector []float32, limit int) ([]domain.ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ScoredCandidate, 0, len(s.chunks))
	for i, chunk := range s.chunks {
		out = append(out, domain.ScoredCandidate{
			Chunk: chunk,
			Score: euclideanDistance(queryVector, s.vectors[i]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Chunk.Key() < out[j].Chunk.Key()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

func euclideanDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
