package ports

import (
	"context"
	"io"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveClassification(ctx context.Context, id string, cls domain.Classification, chunkCount int) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// DocumentClassifier assigns a doc type to extracted text.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// Embedder builds vectors for chunk texts and query text. Results must be
// deterministic for identical input within a process lifetime.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// VectorStore indexes chunks and performs dense similarity search.
// Search scores are similarities in [0,1], highest first.
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredCandidate, error)
	AllChunks(ctx context.Context) ([]domain.Chunk, error)
}

// DistanceVectorStore is the variant for indexes that report raw distances
// instead of similarities. It is adapted once at construction, not probed
// per call.
type DistanceVectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) error
	SearchByDistance(ctx context.Context, queryVector []float32, limit int) ([]domain.ScoredCandidate, error)
	AllChunks(ctx context.Context) ([]domain.Chunk, error)
}

// LexicalSearcher scores the whole corpus lexically for a query, top-k first.
// Implementations are built once at startup and are read-only afterwards.
type LexicalSearcher interface {
	SearchLexical(query string, limit int) []domain.ScoredCandidate
}

// CrossEncoder scores (query, text) pairs with a pairwise relevance model.
// Scores are unbounded and comparable only with each other.
type CrossEncoder interface {
	ScorePairs(ctx context.Context, queries, texts []string) ([]float64, error)
}
