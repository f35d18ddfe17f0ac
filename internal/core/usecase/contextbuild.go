package usecase

import (
	"strings"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

// assembleContext allocates the token budget across the ranked candidates:
// the top keepRawTopN go in verbatim at their full token cost, the next
// summarizeLowN are extractively summarized, and assembly stops the moment
// the next snippet would push past the budget. The budget is a hard ceiling.
func assembleContext(candidates []domain.ScoredCandidate, cfg domain.RetrievalConfig) []domain.ContextSnippet {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]domain.ScoredCandidate, len(candidates))
	copy(ranked, candidates)
	sortCandidates(ranked)
	candidates = ranked

	maxTokens := cfg.MaxContextTokens()
	assembled := make([]domain.ContextSnippet, 0, len(candidates))
	tokensUsed := 0
	summariesAdded := 0

	for idx, cand := range candidates {
		var (
			text   string
			tokens int
			mode   domain.SnippetMode
		)
		if idx < cfg.KeepRawTopN {
			text = strings.TrimSpace(cand.Chunk.Text)
			tokens = chunkTokenCost(cand.Chunk)
			mode = domain.SnippetRaw
		} else {
			if summariesAdded >= cfg.SummarizeLowN {
				break
			}
			text = extractiveSummary(cand.Chunk.Text, cfg.SummaryMaxTokens)
			if text == "" {
				continue
			}
			tokens = approximateTokenCount(text)
			mode = domain.SnippetSummary
			summariesAdded++
		}

		if tokens == 0 {
			continue
		}
		if tokensUsed+tokens > maxTokens {
			break
		}

		assembled = append(assembled, domain.ContextSnippet{
			Text:     text,
			Score:    cand.Score,
			Mode:     mode,
			SourceID: cand.Chunk.SourceID,
			DocType:  cand.Chunk.DocType,
			Tokens:   tokens,
		})
		tokensUsed += tokens
	}

	return assembled
}

func chunkTokenCost(chunk domain.Chunk) int {
	if chunk.TokenCount > 0 {
		return chunk.TokenCount
	}
	return approximateTokenCount(chunk.Text)
}

// approximateTokenCount estimates generation-model tokens at ~4 chars each.
func approximateTokenCount(text string) int {
	if text == "" {
		return 0
	}
	n := (len(text) + 2) / 4
	if n < 1 {
		return 1
	}
	return n
}

// extractiveSummary accumulates lead sentences until the token cap is hit.
// Deterministic: no model call, just sentence boundaries.
func extractiveSummary(text string, maxTokens int) string {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return ""
	}

	parts := make([]string, 0, 8)
	tokensUsed := 0
	for _, sentence := range splitSentences(normalized) {
		sentenceTokens := approximateTokenCount(sentence)
		if sentenceTokens == 0 {
			continue
		}
		if tokensUsed+sentenceTokens > maxTokens {
			break
		}
		parts = append(parts, sentence)
		tokensUsed += sentenceTokens
		if tokensUsed >= maxTokens {
			break
		}
	}

	if len(parts) == 0 {
		// First sentence alone exceeds the cap; fall back to a character cut.
		runes := []rune(normalized)
		limit := maxTokens * 4
		if limit >= len(runes) {
			return normalized
		}
		return strings.TrimSpace(string(runes[:limit]))
	}
	return strings.Join(parts, " ")
}

func splitSentences(text string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			if atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentence := strings.TrimSpace(b.String())
				if sentence != "" {
					out = append(out, sentence)
				}
				b.Reset()
			}
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
