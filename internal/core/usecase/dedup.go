package usecase

import (
	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

// dedupCandidates collapses near-duplicate candidates by pairwise embedding
// similarity, keeping one representative per cluster. Candidates and their
// vectors are iterated in score-descending order (identity tie-break), so the
// representative for any cluster is always its highest-scoring member
// regardless of input ordering. O(n²) pairwise, acceptable for post-filter
// pool sizes.
//
// Returned vectors are parallel to the kept candidates and reusable for MMR.
func dedupCandidates(candidates []domain.ScoredCandidate, vectors [][]float32, threshold float64) ([]domain.ScoredCandidate, [][]float32, int) {
	if len(candidates) <= 1 {
		return candidates, vectors, 0
	}

	kept := make([]domain.ScoredCandidate, 0, len(candidates))
	keptVectors := make([][]float32, 0, len(candidates))
	skipped := make(map[int]bool, len(candidates))

	for i := range candidates {
		if skipped[i] {
			continue
		}
		representative := i
		for j := i + 1; j < len(candidates); j++ {
			if skipped[j] {
				continue
			}
			if cosineSimilarity(vectors[i], vectors[j]) >= threshold {
				if candidates[j].Score > candidates[representative].Score {
					representative = j
				}
				skipped[j] = true
			}
		}
		kept = append(kept, candidates[representative])
		keptVectors = append(keptVectors, vectors[representative])
	}

	return kept, keptVectors, len(candidates) - len(kept)
}
