package usecase

import (
	"math"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

// mmrSelect picks up to k candidates by greedy marginal-relevance selection:
// each step adds the candidate maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// with lambda=1 degenerating to plain top-k by relevance and lambda=0 to
// maximum dissimilarity after the first pick. Candidates must arrive sorted
// score-descending with identity tie-breaks so argmax ties resolve
// deterministically to the earlier entry. Selection stops early once only
// exhausted (-inf) candidates remain.
func mmrSelect(candidates []domain.ScoredCandidate, vectors [][]float32, k int, lambda float64) []domain.ScoredCandidate {
	if k > len(candidates) {
		k = len(candidates)
	}
	if k <= 0 {
		return nil
	}

	seed := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[seed].Score {
			seed = i
		}
	}
	selected := []int{seed}

	for len(selected) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for idx := range candidates {
			if containsInt(selected, idx) {
				continue
			}
			redundancy := math.Inf(-1)
			for _, sel := range selected {
				if sim := cosineSimilarity(vectors[idx], vectors[sel]); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*candidates[idx].Score - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = idx
			}
		}
		if bestIdx < 0 || math.IsInf(bestScore, -1) {
			break
		}
		selected = append(selected, bestIdx)
	}

	out := make([]domain.ScoredCandidate, 0, len(selected))
	for _, idx := range selected {
		out = append(out, candidates[idx])
	}
	return out
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
