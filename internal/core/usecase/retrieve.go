package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/draft-assistant/internal/core/domain"
	"github.com/kirillkom/draft-assistant/internal/core/ports"
)

const (
	strategyMMR    = "mmr"
	strategyRerank = "rerank"
)

// RetrieveUseCase is the adaptive hybrid retrieval engine. One instance is
// shared by all callers: the config is immutable, the two indexes are
// read-only after construction, and every call runs its stages strictly in
// sequence, so concurrent Retrieve calls are safe.
type RetrieveUseCase struct {
	cfg          domain.RetrievalConfig
	vectorDB     ports.VectorStore
	lexical      ports.LexicalSearcher
	embedder     ports.Embedder
	crossEncoder ports.CrossEncoder
	logger       *slog.Logger

	hybridActive bool
}

// NewRetrieveUseCase validates the config and fixes the retrieval mode for
// the engine's lifetime. A nil lexical searcher (the index failed to build at
// startup) degrades to dense-only mode permanently; it is logged once here
// and never surfaced as a per-call error.
func NewRetrieveUseCase(
	cfg domain.RetrievalConfig,
	vectorDB ports.VectorStore,
	lexical ports.LexicalSearcher,
	embedder ports.Embedder,
	crossEncoder ports.CrossEncoder,
	logger *slog.Logger,
) (*RetrieveUseCase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	hybridActive := cfg.HybridEnabled && lexical != nil
	if cfg.HybridEnabled && lexical == nil {
		logger.Warn("lexical index unavailable, retrieval degraded to dense-only mode")
	}

	return &RetrieveUseCase{
		cfg:          cfg,
		vectorDB:     vectorDB,
		lexical:      lexical,
		embedder:     embedder,
		crossEncoder: crossEncoder,
		logger:       logger,
		hybridActive: hybridActive,
	}, nil
}

// Retrieve runs the pipeline: fuse -> threshold -> expand once if thin ->
// dedup -> diversify (MMR, or cross-encoder rerank for sub-query batches) ->
// assemble under the token budget. An empty result is a valid outcome.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, error) {
	queries, err := normalizeQueries(req)
	if err != nil {
		return nil, err
	}

	diag := domain.RetrievalDiagnostics{
		Strategy:     strategyMMR,
		HybridActive: uc.hybridActive,
	}
	if req.IsMultiQuery() {
		diag.Strategy = strategyRerank
	}

	candidates, err := uc.gatherCandidates(ctx, queries, uc.cfg.PoolSize, &diag)
	if err != nil {
		return nil, err
	}

	filtered := filterByScore(candidates, uc.cfg.ScoreThreshold)

	if len(filtered) < uc.cfg.MinHighScore {
		expanded, err := uc.gatherCandidates(ctx, queries, uc.cfg.PoolSize*2, &diag)
		if err != nil {
			return nil, err
		}
		filtered = mergeByIdentity(filtered, expanded)
		diag.Expanded = true
	}

	if len(filtered) == 0 {
		uc.logger.Info("retrieval produced no candidates above threshold",
			"strategy", diag.Strategy,
			"expanded", diag.Expanded,
		)
		return &domain.RetrievalResult{Snippets: nil, Diagnostics: diag}, nil
	}

	deduped, vectors, err := uc.dedup(ctx, filtered)
	if err != nil {
		return nil, err
	}
	diag.DedupDropped = len(filtered) - len(deduped)

	var selected []domain.ScoredCandidate
	if req.IsMultiQuery() {
		selected, err = rerankByCrossEncoder(ctx, uc.crossEncoder, queries, deduped, uc.cfg.RerankThreshold, uc.cfg.RerankTopK)
		if err != nil {
			return nil, err
		}
	} else {
		selected = mmrSelect(deduped, vectors, uc.cfg.MMRK, uc.cfg.MMRLambda)
	}

	snippets := assembleContext(selected, uc.cfg)

	uc.logger.Info("retrieval completed",
		"strategy", diag.Strategy,
		"dense_candidates", diag.DenseCandidates,
		"lexical_candidates", diag.LexicalCandidates,
		"expanded", diag.Expanded,
		"dedup_dropped", diag.DedupDropped,
		"selected", len(selected),
		"snippets", len(snippets),
	)

	return &domain.RetrievalResult{Snippets: snippets, Diagnostics: diag}, nil
}

// gatherCandidates runs the fusion stage for every query and unions the
// per-query lists by chunk identity, keeping the higher fused score.
func (uc *RetrieveUseCase) gatherCandidates(
	ctx context.Context,
	queries []string,
	poolSize int,
	diag *domain.RetrievalDiagnostics,
) ([]domain.ScoredCandidate, error) {
	perQuery := make([][]domain.ScoredCandidate, 0, len(queries))
	diag.DenseCandidates = 0
	diag.LexicalCandidates = 0

	for _, query := range queries {
		queryVector, err := uc.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		dense, err := uc.vectorDB.Search(ctx, queryVector, poolSize)
		if err != nil {
			return nil, fmt.Errorf("dense search: %w", err)
		}
		diag.DenseCandidates += len(dense)

		if !uc.hybridActive {
			perQuery = append(perQuery, trimCandidates(dense, poolSize))
			continue
		}

		lexical := uc.lexical.SearchLexical(query, poolSize)
		diag.LexicalCandidates += len(lexical)

		fused := fuseCandidatesRRF(dense, lexical, uc.cfg.DenseWeight, uc.cfg.LexicalWeight, uc.cfg.RRFK)
		perQuery = append(perQuery, trimCandidates(scaleScores(fused), poolSize))
	}

	return mergeByIdentity(perQuery...), nil
}

func (uc *RetrieveUseCase) dedup(ctx context.Context, candidates []domain.ScoredCandidate) ([]domain.ScoredCandidate, [][]float32, error) {
	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed candidates: %w", err)
	}
	if len(vectors) != len(candidates) {
		return nil, nil, fmt.Errorf("embed candidates: expected %d vectors, got %d", len(candidates), len(vectors))
	}

	kept, keptVectors, _ := dedupCandidates(candidates, vectors, uc.cfg.DedupThreshold)
	return kept, keptVectors, nil
}

func filterByScore(candidates []domain.ScoredCandidate, threshold float64) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Score >= threshold {
			out = append(out, cand)
		}
	}
	return out
}

func normalizeQueries(req domain.RetrievalRequest) ([]string, error) {
	raw := req.Queries()
	out := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("query is required"))
	}
	return out, nil
}
