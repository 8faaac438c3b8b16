package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/jerrybuks/agentic-ecommerce/pkg/config"
	pkgerrors "github.com/jerrybuks/agentic-ecommerce/pkg/errors"
	"github.com/jerrybuks/agentic-ecommerce/pkg/retry"
)

// Message is a single entry in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client talks to any OpenAI-compatible API (chat completions + embeddings).
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	chatModel  string
	embedModel string
	policy     retry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy overrides the retry policy for transient failures.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) { c.policy = policy }
}

// New builds a client from configuration.
func New(cfg config.OpenAIConfig, opts ...Option) *Client {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = uint64(cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.RetryBaseDelay
	}

	client := &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		policy:     policy,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Complete performs a non-streaming chat completion and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":    c.chatModel,
		"messages": messages,
		"stream":   false,
	}

	var content string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		raw, err := c.post(ctx, "/chat/completions", payload)
		if err != nil {
			return err
		}

		var parsed struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parsing chat completion response")
		}
		if len(parsed.Choices) == 0 {
			return pkgerrors.New(pkgerrors.CodeDependency, "chat completion returned no choices")
		}
		content = parsed.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// EmbedBatch embeds texts and returns vectors in input order. The response
// entries are reordered by their index field before the length check, so a
// provider that shuffles entries still yields aligned output.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}

	var vectors [][]float64
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		raw, err := c.post(ctx, "/embeddings", payload)
		if err != nil {
			return err
		}

		var parsed struct {
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float64 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parsing embeddings response")
		}
		if len(parsed.Data) != len(texts) {
			return pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("embeddings response returned %d vectors for %d inputs", len(parsed.Data), len(texts)))
		}

		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})

		vectors = make([][]float64, len(parsed.Data))
		for i, entry := range parsed.Data {
			if len(entry.Embedding) == 0 {
				return pkgerrors.New(pkgerrors.CodeDependency, "embeddings response contained an empty vector")
			}
			vectors[i] = entry.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling model API"))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading model API response"))
	}

	switch {
	case resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retry.RetryableError(pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("model API status %d: %s", resp.StatusCode, truncate(raw, 256))))
	default:
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("model API status %d: %s", resp.StatusCode, truncate(raw, 256)))
	}
}

func truncate(raw []byte, limit int) string {
	s := string(raw)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
