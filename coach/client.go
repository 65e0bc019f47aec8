/*
Package coach wraps the chat-completion API behind the AI coach.

PURPOSE:
  The coach is a dialogue flavor layer: a persona system prompt plus
  the user's message go to a chat-completion endpoint, a text reply
  comes back. The contract with the provider is exactly that - a
  prompt string in, a completion out - nothing here is part of the
  ledger's guarantees.

FAILURE:
  Network and non-2xx responses surface as errors to the caller; there
  is no retry layer. Chat is best-effort and never blocks coin
  operations.

SEE ALSO:
  - api/handlers.go: The /coach/chat endpoint
  - config: Provider URL, key and model
*/
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds provider settings.
type Config struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
}

const defaultMaxTokens = 1024

// Client is a minimal chat-completion client (OpenAI-compatible wire
// shape).
type Client struct {
	client    *http.Client
	apiURL    string
	apiKey    string
	model     string
	maxTokens int
}

func New(cfg Config) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.openai.com"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		client:    &http.Client{Timeout: 60 * time.Second},
		apiURL:    apiURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// =============================================================================
// PERSONAS
// =============================================================================

// Persona is an AI coach profile. Personas shape tone only; they carry
// no ledger semantics.
type Persona struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Style        string `json:"style"`
	SystemPrompt string `json:"-"`
}

var personas = []Persona{
	{
		ID: "marcus", Name: "Marcus", Style: "direct",
		SystemPrompt: "You are Marcus, a direct, no-excuses confidence coach. Keep replies short and actionable.",
	},
	{
		ID: "jake", Name: "Jake", Style: "supportive",
		SystemPrompt: "You are Jake, a warm and encouraging confidence coach. Validate first, then suggest one small step.",
	},
	{
		ID: "alex", Name: "Alex", Style: "analytical",
		SystemPrompt: "You are Alex, an analytical confidence coach. Break problems into concrete, measurable steps.",
	},
}

// Personas returns the available coach personas.
func Personas() []Persona {
	return append([]Persona(nil), personas...)
}

// PersonaByID returns a persona, falling back to the first one for
// unknown ids.
func PersonaByID(id string) Persona {
	for _, p := range personas {
		if p.ID == id {
			return p
		}
	}
	return personas[0]
}

// =============================================================================
// CHAT
// =============================================================================

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends one user message under a persona and returns the reply.
func (c *Client) Chat(ctx context.Context, persona Persona, message string) (string, error) {
	if c.model == "" {
		return "", errors.New("coach: model is required")
	}
	if message == "" {
		return "", errors.New("coach: message is required")
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: persona.SystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("coach: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("coach: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("coach: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("coach: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("coach: provider returned %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("coach: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("coach: provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("coach: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
