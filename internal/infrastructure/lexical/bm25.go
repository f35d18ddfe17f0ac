package lexical

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type posting struct {
	chunkIdx int
	freq     int
}

// Index is an in-memory BM25 index over the chunk corpus. It is built once
// at startup from the vector store's chunk listing and is read-only
// afterwards, so concurrent searches need no locking.
type Index struct {
	chunks       []domain.Chunk
	postings     map[string][]posting
	docLengths   []int
	avgDocLength float64
}

// NewIndex tokenizes every chunk and builds the term postings. An empty
// corpus yields a valid index that returns no results.
func NewIndex(chunks []domain.Chunk) *Index {
	idx := &Index{
		chunks:     chunks,
		postings:   make(map[string][]posting, len(chunks)*8),
		docLengths: make([]int, len(chunks)),
	}

	totalLength := 0
	for i, chunk := range chunks {
		tokens := tokenizeAlphaNum(chunk.Text)
		idx.docLengths[i] = len(tokens)
		totalLength += len(tokens)

		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		for term, n := range freq {
			idx.postings[term] = append(idx.postings[term], posting{chunkIdx: i, freq: n})
		}
	}
	if len(chunks) > 0 {
		idx.avgDocLength = float64(totalLength) / float64(len(chunks))
	}
	return idx
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// SearchLexical scores the whole corpus against the query with BM25 and
// returns the top limit chunks, highest first. Scores are raw BM25 sums and
// are only comparable with each other.
func (idx *Index) SearchLexical(query string, limit int) []domain.ScoredCandidate {
	terms := tokenizeAlphaNum(query)
	if len(terms) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	scores := make(map[int]float64, 32)
	for _, term := range terms {
		postings, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := computeIDF(int64(len(idx.chunks)), int64(len(postings)))
		for _, p := range postings {
			tfNorm := computeTFNorm(float64(p.freq), float64(idx.docLengths[p.chunkIdx]), idx.avgDocLength)
			scores[p.chunkIdx] += idf * tfNorm
		}
	}

	result := make([]domain.ScoredCandidate, 0, len(scores))
	for chunkIdx, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, domain.ScoredCandidate{
			Chunk: idx.chunks[chunkIdx],
			Score: math.Round(score*10000) / 10000,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Chunk.Key() < result[j].Chunk.Key()
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func computeIDF(totalDocs, docFreq int64) float64 {
	numerator := float64(totalDocs) - float64(docFreq)
	denominator := float64(docFreq) + 0.5
	return math.Log(numerator/denominator + 1)
}

func computeTFNorm(termFreq, docLength, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + bm25K1*(1-bm25B+bm25B*lengthRatio)
	return (termFreq * (bm25K1 + 1)) / denominator
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
