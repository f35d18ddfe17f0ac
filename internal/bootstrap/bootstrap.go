package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/draft-assistant/internal/config"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
	"github.com/kirillkom/draft-assistant/internal/core/usecase"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/crossencoder"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/extractor/xlsx"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/lexical"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/vector/inmemory"
	"github.com/kirillkom/draft-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      ports.MessageQueue
	Repo       ports.DocumentRepository
	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	RetrieveUC ports.ContextRetriever

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	classifier := ollama.NewClassifier(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectorDB := newVectorStore(cfg)

	var crossEnc ports.CrossEncoder
	if cfg.RerankerURL != "" {
		crossEnc = crossencoder.New(cfg.RerankerURL, cfg.RerankerModel, executor)
	}

	lexIndex := buildLexicalIndex(ctx, cfg, vectorDB, logger)

	retrieveUC, err := usecase.NewRetrieveUseCase(cfg.Retrieval, vectorDB, lexIndex, embedder, crossEnc, logger)
	if err != nil {
		return nil, fmt.Errorf("init retrieval engine: %w", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extract := newExtractor(storage)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, extract, classifier, chunker, embedder, vectorDB)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		RetrieveUC: retrieveUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newVectorStore(cfg config.Config) ports.VectorStore {
	if cfg.VectorStoreMode == "memory" {
		return usecase.NewSimilarityFromDistance(inmemory.New())
	}
	return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
}

// buildLexicalIndex snapshots the corpus once at startup. A failed build is
// not fatal: the retrieval engine degrades to dense-only mode.
func buildLexicalIndex(ctx context.Context, cfg config.Config, vectorDB ports.VectorStore, logger *slog.Logger) ports.LexicalSearcher {
	if !cfg.Retrieval.HybridEnabled {
		return nil
	}
	chunks, err := vectorDB.AllChunks(ctx)
	if err != nil {
		logger.Warn("lexical index build failed", "error", err)
		return nil
	}
	index := lexical.NewIndex(chunks)
	logger.Info("lexical index built", "chunks", index.Len())
	return index
}

func newExtractor(storage ports.ObjectStorage) ports.TextExtractor {
	dispatcher := extractor.NewDispatcher(plaintext.NewExtractor(storage))
	dispatcher.Register(".pdf", pdf.NewExtractor(storage))
	dispatcher.Register(".xlsx", xlsx.NewExtractor(storage))
	return dispatcher
}
