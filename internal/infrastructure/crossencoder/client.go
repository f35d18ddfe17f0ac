package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/draft-assistant/internal/infrastructure/resilience"
)

// Client scores (query, text) pairs against an HTTP cross-encoder scoring
// service. The service returns one relevance score per pair, in request order.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) ScorePairs(ctx context.Context, queries, texts []string) ([]float64, error) {
	if len(queries) != len(texts) {
		return nil, fmt.Errorf("cross-encoder: %d queries for %d texts", len(queries), len(texts))
	}
	if len(queries) == 0 {
		return nil, nil
	}

	pairs := make([][2]string, len(queries))
	for i := range queries {
		pairs[i] = [2]string{queries[i], texts[i]}
	}
	reqBody := map[string]any{
		"model": c.model,
		"pairs": pairs,
	}

	var scores []float64
	score := func(ctx context.Context) error {
		var err error
		scores, err = c.postScore(ctx, reqBody)
		return err
	}

	if c.executor == nil {
		if err := score(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := c.executor.Execute(ctx, "crossencoder_score", score, classifyScoreError); err != nil {
			return nil, err
		}
	}

	if len(scores) != len(queries) {
		return nil, fmt.Errorf("cross-encoder: expected %d scores, got %d", len(queries), len(scores))
	}
	return scores, nil
}

func (c *Client) postScore(ctx context.Context, payload any) ([]float64, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return nil, &statusError{status: resp.Status, code: resp.StatusCode, body: msg}
		}
		return nil, &statusError{status: resp.Status, code: resp.StatusCode}
	}

	var scoreResp struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scoreResp); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
	}
	return scoreResp.Scores, nil
}

type statusError struct {
	status string
	code   int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("cross-encoder score status: %s", e.status)
	}
	return fmt.Sprintf("cross-encoder score status: %s: %s", e.status, e.body)
}
