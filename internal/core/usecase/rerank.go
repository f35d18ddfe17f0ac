package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
)

// rerankByCrossEncoder scores every candidate against every sub-query with a
// pairwise relevance model and pools by row maximum: a chunk only needs to
// answer one requirement well to be valuable, so max beats averaging here.
// A scorer failure fails the whole call; returning the unscored candidates
// would hand the caller relevance numbers that do not exist.
func rerankByCrossEncoder(
	ctx context.Context,
	scorer ports.CrossEncoder,
	subQueries []string,
	candidates []domain.ScoredCandidate,
	threshold float64,
	topK int,
) ([]domain.ScoredCandidate, error) {
	if len(candidates) == 0 || len(subQueries) == 0 {
		return nil, nil
	}
	if scorer == nil {
		return nil, domain.WrapError(domain.ErrScoringUnavailable, "cross-encoder rerank", fmt.Errorf("no cross-encoder configured"))
	}

	queries := make([]string, 0, len(candidates)*len(subQueries))
	texts := make([]string, 0, len(candidates)*len(subQueries))
	for _, cand := range candidates {
		for _, q := range subQueries {
			queries = append(queries, q)
			texts = append(texts, cand.Chunk.Text)
		}
	}

	scores, err := scorer.ScorePairs(ctx, queries, texts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrScoringUnavailable, "cross-encoder rerank", err)
	}
	if len(scores) != len(queries) {
		return nil, domain.WrapError(domain.ErrScoringUnavailable, "cross-encoder rerank", fmt.Errorf("expected %d scores, got %d", len(queries), len(scores)))
	}

	pooled := make([]domain.ScoredCandidate, 0, len(candidates))
	for i, cand := range candidates {
		row := scores[i*len(subQueries) : (i+1)*len(subQueries)]
		max := row[0]
		for _, s := range row[1:] {
			if s > max {
				max = s
			}
		}
		if max < threshold {
			continue
		}
		pooled = append(pooled, domain.ScoredCandidate{Chunk: cand.Chunk, Score: max})
	}

	sortCandidates(pooled)
	return trimCandidates(pooled, topK), nil
}
