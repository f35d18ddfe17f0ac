package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

func budgetConfig() domain.RetrievalConfig {
	cfg := domain.DefaultRetrievalConfig()
	cfg.ModelContextTokens = 2000
	cfg.PromptReservedTokens = 1000
	return cfg
}

func TestAssembleContextNeverExceedsBudget(t *testing.T) {
	cfg := budgetConfig()
	long := strings.Repeat("word ", 400) // ~500 tokens per chunk

	candidates := make([]domain.ScoredCandidate, 0, 8)
	for i := 0; i < 8; i++ {
		candidates = append(candidates, domain.ScoredCandidate{
			Chunk: domain.Chunk{SourceID: "doc", ChunkID: i, Text: long, TokenCount: 500},
			Score: 1.0 - float64(i)*0.1,
		})
	}

	snippets := assembleContext(candidates, cfg)
	total := 0
	for _, s := range snippets {
		total += s.Tokens
	}
	if total > cfg.MaxContextTokens() {
		t.Fatalf("assembled %d tokens, budget is %d", total, cfg.MaxContextTokens())
	}
	if len(snippets) == 0 {
		t.Fatalf("expected at least one snippet within budget")
	}
}

func TestAssembleContextRawThenSummaryModes(t *testing.T) {
	cfg := domain.DefaultRetrievalConfig()
	cfg.KeepRawTopN = 2
	cfg.SummarizeLowN = 2

	text := "First sentence here. Second sentence follows. Third one closes."
	candidates := make([]domain.ScoredCandidate, 0, 5)
	for i := 0; i < 5; i++ {
		candidates = append(candidates, domain.ScoredCandidate{
			Chunk: domain.Chunk{SourceID: "doc", ChunkID: i, Text: text, TokenCount: 20},
			Score: 1.0 - float64(i)*0.1,
		})
	}

	snippets := assembleContext(candidates, cfg)
	if len(snippets) != 4 {
		t.Fatalf("expected 2 raw + 2 summary snippets, got %d", len(snippets))
	}
	if snippets[0].Mode != domain.SnippetRaw || snippets[1].Mode != domain.SnippetRaw {
		t.Fatalf("expected top 2 snippets raw, got %s/%s", snippets[0].Mode, snippets[1].Mode)
	}
	if snippets[2].Mode != domain.SnippetSummary || snippets[3].Mode != domain.SnippetSummary {
		t.Fatalf("expected trailing snippets summarized, got %s/%s", snippets[2].Mode, snippets[3].Mode)
	}
}

func TestAssembleContextOrdersByScore(t *testing.T) {
	cfg := domain.DefaultRetrievalConfig()
	candidates := []domain.ScoredCandidate{
		{Chunk: domain.Chunk{SourceID: "low", ChunkID: 0, Text: "low score text.", TokenCount: 5}, Score: 0.2},
		{Chunk: domain.Chunk{SourceID: "high", ChunkID: 0, Text: "high score text.", TokenCount: 5}, Score: 0.9},
	}

	snippets := assembleContext(candidates, cfg)
	if len(snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d", len(snippets))
	}
	if snippets[0].SourceID != "high" {
		t.Fatalf("expected highest score first, got %s", snippets[0].SourceID)
	}
}

func TestAssembleContextEmptyInput(t *testing.T) {
	if out := assembleContext(nil, domain.DefaultRetrievalConfig()); len(out) != 0 {
		t.Fatalf("expected no snippets for empty input, got %d", len(out))
	}
}

func TestExtractiveSummaryStopsAtTokenCap(t *testing.T) {
	text := "Short opener. " + strings.Repeat("This sentence is about twelve tokens of filler content right here. ", 30)
	summary := extractiveSummary(text, 20)
	if summary == "" {
		t.Fatalf("expected non-empty summary")
	}
	if approximateTokenCount(summary) > 20 {
		t.Fatalf("summary exceeds cap: %d tokens", approximateTokenCount(summary))
	}
	if !strings.HasPrefix(summary, "Short opener.") {
		t.Fatalf("expected lead-sentence accumulation, got %q", summary)
	}
}

func TestExtractiveSummaryFallsBackToCharacterCut(t *testing.T) {
	// A single sentence larger than the cap still produces output.
	text := strings.Repeat("waffle ", 200) + "."
	summary := extractiveSummary(text, 10)
	if summary == "" {
		t.Fatalf("expected truncated summary, got empty string")
	}
	if len(summary) > 10*4+1 {
		t.Fatalf("character cut too long: %d chars", len(summary))
	}
}

func TestApproximateTokenCount(t *testing.T) {
	if n := approximateTokenCount(""); n != 0 {
		t.Fatalf("empty text should cost 0 tokens, got %d", n)
	}
	if n := approximateTokenCount("ab"); n != 1 {
		t.Fatalf("short text should cost at least 1 token, got %d", n)
	}
}
