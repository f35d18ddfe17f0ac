package usecase

import (
	"math"
	"sort"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

type fusedCandidate struct {
	chunk     domain.Chunk
	score     float64
	denseRank int
}

// fuseCandidatesRRF merges a dense and a lexical ranked list with weighted
// reciprocal-rank fusion: a chunk at 1-based rank r in a source list
// contributes weight/(rrfK+r), and absent lists contribute nothing. Rank
// positions matter, raw source scores do not, so the two incomparable score
// scales never need normalizing against each other.
func fuseCandidatesRRF(dense, lexical []domain.ScoredCandidate, denseWeight, lexicalWeight float64, rrfK int) []domain.ScoredCandidate {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(lexical))
	for rank, cand := range dense {
		key := cand.Chunk.Key()
		entry, ok := acc[key]
		if !ok {
			entry = fusedCandidate{chunk: cand.Chunk, denseRank: math.MaxInt}
		}
		entry.score += denseWeight / float64(rrfK+rank+1)
		entry.denseRank = rank
		acc[key] = entry
	}
	for rank, cand := range lexical {
		key := cand.Chunk.Key()
		entry, ok := acc[key]
		if !ok {
			entry = fusedCandidate{chunk: cand.Chunk, denseRank: math.MaxInt}
		}
		entry.score += lexicalWeight / float64(rrfK+rank+1)
		acc[key] = entry
	}

	out := make([]fusedCandidate, 0, len(acc))
	for _, c := range acc {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].denseRank != out[j].denseRank {
			return out[i].denseRank < out[j].denseRank
		}
		return out[i].chunk.Key() < out[j].chunk.Key()
	})

	fused := make([]domain.ScoredCandidate, 0, len(out))
	for _, c := range out {
		fused = append(fused, domain.ScoredCandidate{Chunk: c.chunk, Score: c.score})
	}
	return fused
}

// scaleScores maps fused scores onto [0,1] by dividing by the maximum.
// RRF sums live on a much smaller scale than similarity scores; scaling lets
// one relevance threshold serve both hybrid and dense-only modes. Ranking is
// unchanged.
func scaleScores(candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	max := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > max {
			max = c.Score
		}
	}
	if max <= 0 {
		return candidates
	}
	out := make([]domain.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		c.Score = c.Score / max
		out[i] = c
	}
	return out
}

// mergeByIdentity unions candidate lists keeping the higher score per chunk.
func mergeByIdentity(lists ...[]domain.ScoredCandidate) []domain.ScoredCandidate {
	acc := make(map[string]domain.ScoredCandidate)
	for _, list := range lists {
		for _, cand := range list {
			key := cand.Chunk.Key()
			existing, ok := acc[key]
			if !ok || cand.Score > existing.Score {
				acc[key] = cand
			}
		}
	}
	out := make([]domain.ScoredCandidate, 0, len(acc))
	for _, cand := range acc {
		out = append(out, cand)
	}
	sortCandidates(out)
	return out
}

// sortCandidates orders by score descending with chunk identity as the final
// tie-break, so equal-score runs are byte-stable across calls.
func sortCandidates(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.Key() < candidates[j].Chunk.Key()
	})
}

func trimCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
