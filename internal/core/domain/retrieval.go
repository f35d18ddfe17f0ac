package domain

import (
	"fmt"
	"math"
)

// Chunk is one retrievable unit of text produced at ingestion time.
// Identity is (SourceID, ChunkID); text and metadata are read-only after indexing.
type Chunk struct {
	SourceID   string  `json:"source_id"`
	ChunkID    int     `json:"chunk_id"`
	DocType    DocType `json:"doc_type"`
	Text       string  `json:"text"`
	TokenCount int     `json:"token_count"`
}

func (c Chunk) Key() string {
	return fmt.Sprintf("%s:%d", c.SourceID, c.ChunkID)
}

// ScoredCandidate pairs a chunk with a stage-local score. Scores from
// different stages (lexical, fused, rerank) are not comparable with each other.
type ScoredCandidate struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type SnippetMode string

const (
	SnippetRaw     SnippetMode = "raw"
	SnippetSummary SnippetMode = "summary"
)

// ContextSnippet is the assembled output unit handed to the drafting step.
type ContextSnippet struct {
	Text     string      `json:"text"`
	Score    float64     `json:"score"`
	Mode     SnippetMode `json:"mode"`
	SourceID string      `json:"source_id"`
	DocType  DocType     `json:"doc_type"`
	Tokens   int         `json:"tokens"`
}

// RetrievalRequest carries either a single query or a batch of decomposed
// sub-queries. Sub-query requests take the cross-encoder rerank path instead
// of MMR selection.
type RetrievalRequest struct {
	Query      string   `json:"query"`
	SubQueries []string `json:"sub_queries,omitempty"`
}

func (r RetrievalRequest) IsMultiQuery() bool {
	return len(r.SubQueries) > 0
}

func (r RetrievalRequest) Queries() []string {
	if len(r.SubQueries) > 0 {
		return r.SubQueries
	}
	return []string{r.Query}
}

// RetrievalDiagnostics reports what the pipeline did for one call.
type RetrievalDiagnostics struct {
	DenseCandidates   int    `json:"dense_candidates"`
	LexicalCandidates int    `json:"lexical_candidates"`
	Expanded          bool   `json:"expanded"`
	DedupDropped      int    `json:"dedup_dropped"`
	Strategy          string `json:"strategy"`
	HybridActive      bool   `json:"hybrid_active"`
}

// RetrievalResult is the output of one Retrieve call.
type RetrievalResult struct {
	Snippets    []ContextSnippet     `json:"snippets"`
	Diagnostics RetrievalDiagnostics `json:"diagnostics"`
}

// RetrievalConfig is validated once at construction and never mutated
// during a request.
type RetrievalConfig struct {
	PoolSize       int     `json:"pool_size" yaml:"pool_size"`
	ScoreThreshold float64 `json:"score_threshold" yaml:"score_threshold"`
	MinHighScore   int     `json:"min_high_score" yaml:"min_high_score"`
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`
	MMRLambda      float64 `json:"mmr_lambda" yaml:"mmr_lambda"`
	MMRK           int     `json:"mmr_k" yaml:"mmr_k"`

	HybridEnabled bool    `json:"hybrid_enabled" yaml:"hybrid_enabled"`
	LexicalWeight float64 `json:"lexical_weight" yaml:"lexical_weight"`
	DenseWeight   float64 `json:"dense_weight" yaml:"dense_weight"`
	RRFK          int     `json:"rrf_k" yaml:"rrf_k"`

	RerankThreshold float64 `json:"rerank_threshold" yaml:"rerank_threshold"`
	RerankTopK      int     `json:"rerank_top_k" yaml:"rerank_top_k"`

	ModelContextTokens   int `json:"model_context_tokens" yaml:"model_context_tokens"`
	PromptReservedTokens int `json:"prompt_reserved_tokens" yaml:"prompt_reserved_tokens"`
	KeepRawTopN          int `json:"keep_raw_top_n" yaml:"keep_raw_top_n"`
	SummarizeLowN        int `json:"summarize_low_n" yaml:"summarize_low_n"`
	SummaryMaxTokens     int `json:"summary_max_tokens" yaml:"summary_max_tokens"`
}

// DefaultRetrievalConfig mirrors the tuned production profile.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		PoolSize:       10,
		ScoreThreshold: 0.15,
		MinHighScore:   5,
		DedupThreshold: 0.88,
		MMRLambda:      0.6,
		MMRK:           5,

		HybridEnabled: true,
		LexicalWeight: 0.5,
		DenseWeight:   0.5,
		RRFK:          60,

		RerankThreshold: 0.0,
		RerankTopK:      5,

		ModelContextTokens:   8192,
		PromptReservedTokens: 2000,
		KeepRawTopN:          3,
		SummarizeLowN:        7,
		SummaryMaxTokens:     120,
	}
}

const weightSumTolerance = 0.05

func (c RetrievalConfig) Validate() error {
	fail := func(err error) error {
		return WrapError(ErrInvalidConfig, "validate retrieval config", err)
	}

	if c.PoolSize <= 0 {
		return fail(fmt.Errorf("pool_size must be positive, got %d", c.PoolSize))
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fail(fmt.Errorf("score_threshold must be in [0,1], got %g", c.ScoreThreshold))
	}
	if c.MinHighScore <= 0 || c.MinHighScore > c.PoolSize {
		return fail(fmt.Errorf("min_high_score must be in [1,pool_size], got %d", c.MinHighScore))
	}
	if c.DedupThreshold < 0 || c.DedupThreshold > 1 {
		return fail(fmt.Errorf("dedup_threshold must be in [0,1], got %g", c.DedupThreshold))
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fail(fmt.Errorf("mmr_lambda must be in [0,1], got %g", c.MMRLambda))
	}
	if c.MMRK <= 0 || c.MMRK > c.PoolSize {
		return fail(fmt.Errorf("mmr_k must be in [1,pool_size], got %d", c.MMRK))
	}
	if c.HybridEnabled {
		if c.LexicalWeight < 0 || c.LexicalWeight > 1 || c.DenseWeight < 0 || c.DenseWeight > 1 {
			return fail(fmt.Errorf("fusion weights must be in [0,1], got lexical=%g dense=%g", c.LexicalWeight, c.DenseWeight))
		}
		if sum := c.LexicalWeight + c.DenseWeight; math.Abs(sum-1.0) > weightSumTolerance {
			return fail(fmt.Errorf("fusion weights must sum to ~1.0, got %g", sum))
		}
	}
	if c.RRFK <= 0 {
		return fail(fmt.Errorf("rrf_k must be positive, got %d", c.RRFK))
	}
	if c.RerankTopK <= 0 || c.RerankTopK > c.PoolSize {
		return fail(fmt.Errorf("rerank_top_k must be in [1,pool_size], got %d", c.RerankTopK))
	}
	if c.ModelContextTokens <= 0 || c.PromptReservedTokens <= 0 || c.KeepRawTopN <= 0 || c.SummarizeLowN <= 0 || c.SummaryMaxTokens <= 0 {
		return fail(fmt.Errorf("token budget parameters must be positive"))
	}
	return nil
}

// MaxContextTokens is the usable budget after reserving prompt overhead.
func (c RetrievalConfig) MaxContextTokens() int {
	usable := c.ModelContextTokens - c.PromptReservedTokens
	if usable < 512 {
		return 512
	}
	return usable
}
