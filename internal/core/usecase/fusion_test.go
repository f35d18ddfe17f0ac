package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

func chunkN(source string, id int, text string) domain.Chunk {
	return domain.Chunk{SourceID: source, ChunkID: id, DocType: domain.DocTypeNotes, Text: text}
}

func TestFuseCandidatesRRFSumsContributions(t *testing.T) {
	dense := []domain.ScoredCandidate{
		{Chunk: chunkN("doc-1", 0, "a"), Score: 0.9},
		{Chunk: chunkN("doc-2", 0, "b"), Score: 0.8},
	}
	lexical := []domain.ScoredCandidate{
		{Chunk: chunkN("doc-2", 0, "b"), Score: 12.0},
		{Chunk: chunkN("doc-3", 0, "c"), Score: 4.0},
	}

	fused := fuseCandidatesRRF(dense, lexical, 0.5, 0.5, 60)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}
	if fused[0].Chunk.SourceID != "doc-2" {
		t.Fatalf("expected doc-2 first (present in both lists), got %s", fused[0].Chunk.SourceID)
	}

	// doc-2: dense rank 2 + lexical rank 1.
	want := 0.5/62.0 + 0.5/61.0
	if diff := fused[0].Score - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("expected fused score %.12f, got %.12f", want, fused[0].Score)
	}
}

func TestFuseCandidatesRRFDualSourceOutscoresSingleSource(t *testing.T) {
	// Same rank in both lists must never score below the same rank in one list.
	both := fuseCandidatesRRF(
		[]domain.ScoredCandidate{{Chunk: chunkN("doc-1", 0, "a"), Score: 0.9}},
		[]domain.ScoredCandidate{{Chunk: chunkN("doc-1", 0, "a"), Score: 3.0}},
		0.5, 0.5, 60,
	)
	single := fuseCandidatesRRF(
		[]domain.ScoredCandidate{{Chunk: chunkN("doc-1", 0, "a"), Score: 0.9}},
		nil,
		0.5, 0.5, 60,
	)
	if both[0].Score < single[0].Score {
		t.Fatalf("dual-source score %.6f below single-source %.6f", both[0].Score, single[0].Score)
	}
}

func TestFuseCandidatesRRFDeterministic(t *testing.T) {
	dense := []domain.ScoredCandidate{
		{Chunk: chunkN("doc-1", 0, "a"), Score: 0.9},
		{Chunk: chunkN("doc-2", 1, "b"), Score: 0.8},
		{Chunk: chunkN("doc-3", 2, "c"), Score: 0.7},
	}
	lexical := []domain.ScoredCandidate{
		{Chunk: chunkN("doc-3", 2, "c"), Score: 9.0},
		{Chunk: chunkN("doc-4", 0, "d"), Score: 2.0},
	}

	first := fuseCandidatesRRF(dense, lexical, 0.5, 0.5, 60)
	second := fuseCandidatesRRF(dense, lexical, 0.5, 0.5, 60)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two fusion runs over the same input diverged:\n%v\n%v", first, second)
	}
}

func TestFuseCandidatesRRFTieBreakByChunkKey(t *testing.T) {
	// Equal scores, neither in the dense list: identity decides.
	fused := fuseCandidatesRRF(
		nil,
		[]domain.ScoredCandidate{
			{Chunk: chunkN("doc-b", 0, "b"), Score: 1.0},
		},
		0.5, 0.5, 60,
	)
	fused2 := fuseCandidatesRRF(
		nil,
		[]domain.ScoredCandidate{
			{Chunk: chunkN("doc-a", 0, "a"), Score: 1.0},
		},
		0.5, 0.5, 60,
	)
	if len(fused) != 1 || len(fused2) != 1 {
		t.Fatalf("expected singleton results")
	}

	merged := mergeByIdentity(fused, fused2)
	if merged[0].Chunk.SourceID != "doc-a" {
		t.Fatalf("expected doc-a first on score tie, got %s", merged[0].Chunk.SourceID)
	}
}

func TestScaleScoresMapsTopToOne(t *testing.T) {
	scaled := scaleScores([]domain.ScoredCandidate{
		{Chunk: chunkN("doc-1", 0, "a"), Score: 0.02},
		{Chunk: chunkN("doc-2", 0, "b"), Score: 0.01},
	})
	if scaled[0].Score != 1.0 {
		t.Fatalf("expected top score scaled to 1.0, got %g", scaled[0].Score)
	}
	if scaled[1].Score != 0.5 {
		t.Fatalf("expected second score 0.5, got %g", scaled[1].Score)
	}
}

func TestMergeByIdentityKeepsHigherScore(t *testing.T) {
	a := []domain.ScoredCandidate{{Chunk: chunkN("doc-1", 0, "a"), Score: 0.4}}
	b := []domain.ScoredCandidate{{Chunk: chunkN("doc-1", 0, "a"), Score: 0.9}}

	merged := mergeByIdentity(a, b)
	if len(merged) != 1 {
		t.Fatalf("expected identity union of size 1, got %d", len(merged))
	}
	if merged[0].Score != 0.9 {
		t.Fatalf("expected higher score kept on conflict, got %g", merged[0].Score)
	}
}
