package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type processRepoFake struct {
	doc              *domain.Document
	getErr           error
	saveErr          error
	statusErr        error
	failStatusErr    error
	statusCalls      []statusCall
	classification   domain.Classification
	classificationID string
	chunkCount       int
}

func (f *processRepoFake) Create(context.Context, *domain.Document) error { return nil }

func (f *processRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *processRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *processRepoFake) SaveClassification(_ context.Context, id string, cls domain.Classification, chunkCount int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.classificationID = id
	f.classification = cls
	f.chunkCount = chunkCount
	return nil
}

type processExtractorFake struct {
	text string
	err  error
}

func (f *processExtractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type processClassifierFake struct {
	cls domain.Classification
	err error
}

func (f *processClassifierFake) Classify(context.Context, string) (domain.Classification, error) {
	if f.err != nil {
		return domain.Classification{}, f.err
	}
	return f.cls, nil
}

type processChunkerFake struct {
	chunks []string
}

func (f *processChunkerFake) Split(string) []string { return f.chunks }

type processEmbedderFake struct {
	vectors [][]float32
	err     error
}

func (f *processEmbedderFake) Embed(context.Context, []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *processEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, nil
}

type processVectorFake struct {
	indexed []domain.Chunk
	err     error
}

func (f *processVectorFake) IndexChunks(_ context.Context, _ *domain.Document, chunks []domain.Chunk, _ [][]float32) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = chunks
	return nil
}

func (f *processVectorFake) Search(context.Context, []float32, int) ([]domain.ScoredCandidate, error) {
	return nil, nil
}

func (f *processVectorFake) AllChunks(context.Context) ([]domain.Chunk, error) {
	return nil, nil
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1", Filename: "cv.txt"}}
	vector := &processVectorFake{}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{text: "text"},
		&processClassifierFake{cls: domain.Classification{DocType: "resume", Confidence: 0.9}},
		&processChunkerFake{chunks: []string{"a", "b"}},
		&processEmbedderFake{vectors: [][]float32{{1}, {2}}},
		vector,
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusReady {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.classificationID != "doc-1" {
		t.Fatalf("expected classification save for doc-1, got %s", repo.classificationID)
	}
	if repo.chunkCount != 2 {
		t.Fatalf("expected chunk count 2, got %d", repo.chunkCount)
	}
	if len(vector.indexed) != 2 {
		t.Fatalf("expected 2 indexed chunks, got %d", len(vector.indexed))
	}
	if vector.indexed[0].SourceID != "doc-1" || vector.indexed[1].ChunkID != 1 {
		t.Fatalf("unexpected chunk identity: %+v", vector.indexed)
	}
	if vector.indexed[0].DocType != domain.DocTypeResume {
		t.Fatalf("expected chunks to carry doc type, got %s", vector.indexed[0].DocType)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{err: errors.New("extract fail")},
		&processClassifierFake{},
		&processChunkerFake{chunks: []string{"a"}},
		&processEmbedderFake{vectors: [][]float32{{1}}},
		&processVectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected processing + failed status updates, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %+v", repo.statusCalls[1])
	}
}

func TestProcessByIDMarksFailedOnVectorMismatch(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{text: "text"},
		&processClassifierFake{cls: domain.Classification{DocType: "notes"}},
		&processChunkerFake{chunks: []string{"a", "b"}},
		&processEmbedderFake{vectors: [][]float32{{1}}},
		&processVectorFake{},
	)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected final failed status, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDNormalizesUnknownDocType(t *testing.T) {
	repo := &processRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewProcessDocumentUseCase(
		repo,
		&processExtractorFake{text: "text"},
		&processClassifierFake{cls: domain.Classification{DocType: "invoice"}},
		&processChunkerFake{chunks: []string{"a"}},
		&processEmbedderFake{vectors: [][]float32{{1}}},
		&processVectorFake{},
	)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.classification.DocType != domain.DocTypeOther {
		t.Fatalf("expected doc type other, got %s", repo.classification.DocType)
	}
}
