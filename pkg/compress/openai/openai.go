// Package openai provides a compression driver backed by an
// OpenAI-compatible chat completion API. Tier-gated in configuration; when
// absent or failing, wake prompt generation falls back to truncation.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reveriehq/reverie/pkg/compress"
	"github.com/reveriehq/reverie/pkg/memory"
	"github.com/reveriehq/reverie/pkg/tokens"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

const systemPrompt = `You condense a list of memories about a person into the smallest faithful summary.

Rules:
- Keep at least one fact from every category present in the input.
- Never invent facts that are not in the input.
- Write plain prose lines, one theme per line, no preamble.
- Stay within the token target you are given.`

// Driver implements compress.Compressor against an OpenAI-compatible API.
type Driver struct {
	httpClient *http.Client
	estimator  tokens.Estimator
	apiKey     string
	baseURL    string
	model      string
}

// Option configures a Driver.
type Option func(*Driver)

// WithModel sets the model used for compression calls.
func WithModel(model string) Option {
	return func(d *Driver) {
		if model != "" {
			d.model = model
		}
	}
}

// WithBaseURL points the driver at a non-default endpoint.
func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		if baseURL != "" {
			d.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		d.httpClient = c
	}
}

// NewDriver creates an OpenAI-compatible compression driver.
func NewDriver(apiKey string, estimator tokens.Estimator, opts ...Option) (*Driver, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if estimator == nil {
		return nil, fmt.Errorf("token estimator is required")
	}

	d := &Driver{
		httpClient: &http.Client{Timeout: defaultTimeout},
		estimator:  estimator,
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      defaultModel,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Name returns the canonical driver name.
func (d *Driver) Name() string {
	return "openai"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Compress sends the memory set to the model and returns the condensed
// text. Any error surfaces to the caller, which falls back to truncation.
func (d *Driver) Compress(ctx context.Context, mems []*memory.Memory, targetTokens int) (*compress.Result, error) {
	if len(mems) == 0 {
		return nil, compress.ErrNothingToCompress
	}

	seen := make(map[memory.Category]bool)
	var input strings.Builder
	fmt.Fprintf(&input, "Token target: %d\n\nMemories:\n", targetTokens)
	for _, m := range mems {
		fmt.Fprintf(&input, "- [%s, importance %d] %s\n", m.Category, m.Importance, m.Content)
		seen[m.Category] = true
	}

	body, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: input.String()},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding compression request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building compression request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compression request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading compression response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compression endpoint returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(payload, &chat); err != nil {
		return nil, fmt.Errorf("parsing chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	text := strings.TrimSpace(chat.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("compression returned empty text")
	}

	var cats []memory.Category
	for _, cat := range memory.Categories() {
		if seen[cat] {
			cats = append(cats, cat)
		}
	}

	return &compress.Result{
		Text:       text,
		Tokens:     d.estimator.Estimate(text),
		Categories: cats,
	}, nil
}
