package openai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"patentrag/internal/domain"
	"patentrag/internal/llm"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	dimension  int
	client     *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ domain.Embedder = (*Client)(nil)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
	// MaxRetries bounds retries on 429/5xx and transport failures. Negative disables retries.
	MaxRetries int
}

// NewClient resolves the API key (APIKey, else the env var named by
// APIKeyEnv) and fills defaults for the OpenAI endpoint.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	c := &Client{
		baseURL:    strings.TrimRight(cmp.Or(cfg.BaseURL, "https://api.openai.com/v1"), "/"),
		apiKey:     key,
		model:      cmp.Or(cfg.Model, "text-embedding-3-small"),
		batchSize:  cfg.BatchSize,
		client:     &http.Client{Timeout: cmp.Or(cfg.Timeout, 30*time.Second)},
		maxRetries: max(0, cmp.Or(cfg.MaxRetries, 5)),
		sleep:      sleepContext,
	}
	if c.batchSize <= 0 {
		c.batchSize = 64
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding. Dimension is set on first embed.
func (c *Client) Prepare(context.Context, []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// embedBatch retries 429, 5xx and transport failures with backoff, honouring
// Retry-After. Other statuses fail immediately.
func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{"input": batch, "model": c.model})
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		vecs, wait, err := c.post(ctx, body, len(batch))
		if err == nil {
			if c.dimension == 0 && len(vecs) > 0 {
				c.dimension = len(vecs[0])
			}
			return vecs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if wait < 0 || attempt >= c.maxRetries {
			return nil, lastErr
		}
		if err := c.sleep(ctx, cmp.Or(wait, retryDelay(attempt))); err != nil {
			return nil, err
		}
	}
}

// post performs one request. wait is negative for permanent failures, zero
// for retryable ones using the default backoff, positive from Retry-After.
func (c *Client) post(ctx context.Context, body []byte, want int) ([][]float64, time.Duration, error) {
	fail := func(status int, err error) error {
		return &llm.ServiceError{Provider: c.Name(), Op: "embed", Status: status, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fail(0, err)
	}
	defer resp.Body.Close()
	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<20))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retryAfter(resp.Header.Get("Retry-After")), fail(resp.StatusCode, errors.New(resp.Status))
	case resp.StatusCode >= 300:
		return nil, -1, fail(resp.StatusCode, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(payload))))
	case readErr != nil:
		return nil, 0, fail(resp.StatusCode, readErr)
	}
	vecs, err := decodeEmbeddings(payload, want)
	if err != nil {
		return nil, -1, fail(resp.StatusCode, err)
	}
	return vecs, 0, nil
}

func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// decodeEmbeddings accepts the OpenAI list shape and the single-vector shape
// returned by Ollama-compatible servers.
func decodeEmbeddings(payload []byte, want int) ([][]float64, error) {
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		sort.SliceStable(openaiOut.Data, func(i, j int) bool { return openaiOut.Data[i].Index < openaiOut.Data[j].Index })
		vecs := make([][]float64, 0, len(openaiOut.Data))
		for _, d := range openaiOut.Data {
			vecs = append(vecs, d.Embedding)
		}
		if len(vecs) != want {
			return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(vecs))
		}
		return vecs, nil
	}
	var ollamaOut struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 && want == 1 {
		return [][]float64{ollamaOut.Embedding}, nil
	}
	return nil, errors.New("no embedding returned")
}

// retryDelay doubles from 200ms, capped at 5s.
func retryDelay(attempt int) time.Duration {
	return min(200*time.Millisecond<<min(attempt, 8), 5*time.Second)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
