package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fixlifyapp/fixlyfy-ai-automate-sub010/internal/session"
)

// HTTPModel is a LanguageModel backed by an OpenAI-compatible
// chat-completions endpoint. Timeouts and cancellation come from the
// request context; retries and circuit breaking belong to the Engine.
type HTTPModel struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// HTTPModelOpts holds parameters for NewHTTPModel.
type HTTPModelOpts struct {
	Endpoint  string
	APIKey    string
	Model     string
	MaxTokens int // defaults to 256
	Client    *http.Client
}

// NewHTTPModel creates an HTTPModel.
func NewHTTPModel(opts HTTPModelOpts) (*HTTPModel, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("dialogue: model: endpoint is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("dialogue: model: model name is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &HTTPModel{
		endpoint:  opts.Endpoint,
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		client:    opts.Client,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the system prompt and conversation history to the
// completion endpoint and returns the assistant's reply text.
func (m *HTTPModel) Complete(ctx context.Context, systemPrompt string, history []session.Turn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, turn := range history {
		role := "user"
		if turn.Role == session.RoleAgent {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}

	payload, err := json.Marshal(chatRequest{
		Model:     m.model,
		Messages:  messages,
		MaxTokens: m.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("dialogue: model: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("dialogue: model: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("dialogue: model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("dialogue: model: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dialogue: model: endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("dialogue: model: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("dialogue: model: response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// truncate bounds a string for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
