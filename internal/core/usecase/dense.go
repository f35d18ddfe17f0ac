package usecase

import (
	"context"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
)

// distanceAdapter turns a raw-distance vector index into the similarity
// contract the engine consumes, via 1/(1+distance). The variant is chosen
// once at construction; the engine never probes index capabilities per call.
type distanceAdapter struct {
	store ports.DistanceVectorStore
}

func NewSimilarityFromDistance(store ports.DistanceVectorStore) ports.VectorStore {
	return &distanceAdapter{store: store}
}

func (a *distanceAdapter) IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error {
	return a.store.IndexChunks(ctx, doc, chunks, vectors)
}

func (a *distanceAdapter) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredCandidate, error) {
	results, err := a.store.SearchByDistance(ctx, queryVector, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScoredCandidate, len(results))
	for i, r := range results {
		distance := r.Score
		if distance < 0 {
			distance = 0
		}
		out[i] = domain.ScoredCandidate{Chunk: r.Chunk, Score: 1.0 / (1.0 + distance)}
	}
	return out, nil
}

func (a *distanceAdapter) AllChunks(ctx context.Context) ([]domain.Chunk, error) {
	return a.store.AllChunks(ctx)
}
