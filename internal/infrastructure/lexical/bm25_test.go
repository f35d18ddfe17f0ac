package lexical

import (
	"testing"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

func corpus() []domain.Chunk {
	return []domain.Chunk{
		{SourceID: "cv", ChunkID: 0, Text: "Backend engineer with Go and PostgreSQL experience."},
		{SourceID: "cv", ChunkID: 1, Text: "Led migration of billing services to Kubernetes."},
		{SourceID: "letter", ChunkID: 0, Text: "I enjoy building Go services and mentoring engineers."},
		{SourceID: "notes", ChunkID: 0, Text: "Grocery list: milk, bread, coffee."},
	}
}

func TestSearchLexicalRanksMatchingChunks(t *testing.T) {
	idx := NewIndex(corpus())

	out := idx.SearchLexical("Go services", 10)
	if len(out) == 0 {
		t.Fatalf("expected matches for indexed terms")
	}
	// Both query terms appear in the letter chunk; it must outrank
	// chunks matching a single term.
	if out[0].Chunk.SourceID != "letter" {
		t.Fatalf("expected dual-term chunk first, got %s", out[0].Chunk.Key())
	}
	for _, cand := range out {
		if cand.Chunk.SourceID == "notes" {
			t.Fatalf("chunk with no query terms must not be returned")
		}
	}
}

func TestSearchLexicalRespectsLimit(t *testing.T) {
	idx := NewIndex(corpus())
	out := idx.SearchLexical("go engineer services experience", 1)
	if len(out) != 1 {
		t.Fatalf("expected limit of 1, got %d", len(out))
	}
}

func TestSearchLexicalUnknownTerms(t *testing.T) {
	idx := NewIndex(corpus())
	if out := idx.SearchLexical("zeppelin", 10); len(out) != 0 {
		t.Fatalf("expected no matches for unknown term, got %d", len(out))
	}
}

func TestSearchLexicalEmptyCorpus(t *testing.T) {
	idx := NewIndex(nil)
	if idx.Len() != 0 {
		t.Fatalf("empty index should report zero chunks")
	}
	if out := idx.SearchLexical("anything", 10); out != nil {
		t.Fatalf("empty index must return nil, got %v", out)
	}
}

func TestSearchLexicalDeterministicOrdering(t *testing.T) {
	chunks := []domain.Chunk{
		{SourceID: "a", ChunkID: 0, Text: "identical text here"},
		{SourceID: "b", ChunkID: 0, Text: "identical text here"},
	}
	idx := NewIndex(chunks)

	first := idx.SearchLexical("identical text", 10)
	second := idx.SearchLexical("identical text", 10)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both chunks returned")
	}
	for i := range first {
		if first[i].Chunk.Key() != second[i].Chunk.Key() {
			t.Fatalf("ordering changed between identical queries")
		}
	}
	if first[0].Chunk.SourceID != "a" {
		t.Fatalf("equal scores must tie-break by chunk key, got %s first", first[0].Chunk.Key())
	}
}

func TestTokenizeAlphaNum(t *testing.T) {
	got := tokenizeAlphaNum("Go-1.25, services!")
	want := []string{"go", "1", "25", "services"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
