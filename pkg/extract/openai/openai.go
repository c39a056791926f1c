// Package openai provides an extraction driver for OpenAI-compatible chat
// completion APIs.
//
// The driver works against any endpoint that speaks the /chat/completions
// wire format, which covers the three credential strategies: the operator's
// own key, a user-supplied key (BYOK), and a proxied endpoint that injects
// the credential upstream.
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

	"github.com/reveriehq/reverie/pkg/extract"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

const systemPrompt = `You distill durable memories from a conversation transcript between a user and their companion.

Return a JSON object with a "memories" array. Each entry has:
- "category": one of "emotional", "work", "hobbies", "relationships", "preferences"
- "content": a single factual statement worth remembering
- "emotional_note": the emotional significance, or null if none
- "importance": an integer 1-5, 5 being most important
- "verbatim": the exact excerpt from the transcript supporting the fact

Only include facts actually present in the transcript. Return {"memories": []} if nothing is worth keeping.`

// Driver implements extract.Extractor against an OpenAI-compatible API.
type Driver struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	keySource  extract.KeySource
}

// Option configures a Driver.
type Option func(*Driver)

// WithModel sets the model used for extraction calls.
func WithModel(model string) Option {
	return func(d *Driver) {
		if model != "" {
			d.model = model
		}
	}
}

// WithBaseURL points the driver at a non-default endpoint. This is how the
// proxy credential strategy works: the proxy holds the key and the driver
// sends requests without one.
func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		if baseURL != "" {
			d.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithKeySource tags which credential strategy this driver was built for.
func WithKeySource(source extract.KeySource) Option {
	return func(d *Driver) {
		d.keySource = source
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		d.httpClient = c
	}
}

// NewDriver creates an OpenAI-compatible extraction driver. The API key may
// be empty only for the proxy strategy.
func NewDriver(apiKey string, opts ...Option) (*Driver, error) {
	d := &Driver{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      defaultModel,
		keySource:  extract.KeyOperator,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.apiKey == "" && d.keySource != extract.KeyProxy {
		return nil, fmt.Errorf("API key is required for key source %q", d.keySource)
	}

	return d, nil
}

// Name returns the canonical driver name.
func (d *Driver) Name() string {
	return "openai"
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type extractionEnvelope struct {
	Memories []extract.Candidate `json:"memories"`
}

// Extract calls the chat completions endpoint and parses the structured
// response into candidates. Network, timeout, rate limit, and server-side
// failures are marked transient; malformed model output is not, since
// retrying a deterministic parse failure changes nothing.
func (d *Driver) Extract(ctx context.Context, rawText string, profile extract.ProfileContext) ([]Candidate, error) {
	body, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(rawText, profile)},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, extract.Transient(fmt.Errorf("extraction request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, extract.Transient(fmt.Errorf("reading extraction response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("extraction endpoint returned status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, extract.Transient(err)
		}
		return nil, err
	}

	var chat chatResponse
	if err := json.Unmarshal(payload, &chat); err != nil {
		return nil, fmt.Errorf("parsing chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	content := stripCodeFence(chat.Choices[0].Message.Content)

	var envelope extractionEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("parsing extraction payload: %w", err)
	}

	return envelope.Memories, nil
}

// Candidate aliases the extract type so callers don't import both packages.
type Candidate = extract.Candidate

func userPrompt(rawText string, profile extract.ProfileContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Companion name: %s\n", profile.ProfileName)
	fmt.Fprintf(&b, "Capture method: %s\n", profile.Method)
	if profile.PlatformHint != "" {
		fmt.Fprintf(&b, "Platform: %s\n", profile.PlatformHint)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(rawText)

	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON in one despite the response format hint.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
