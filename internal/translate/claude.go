package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultClaudeURL   = "https://api.anthropic.com/v1/messages"
	DefaultClaudeModel = "claude-sonnet-4-5"
)

// Claude translates through the Anthropic Messages API.
type Claude struct {
	apiKey     string
	model      string
	baseURL    string
	system     string
	httpClient *http.Client
}

func NewClaude(apiKey, model, baseURL string, langs Languages, timeout time.Duration) *Claude {
	if model == "" {
		model = DefaultClaudeModel
	}
	if baseURL == "" {
		baseURL = DefaultClaudeURL
	}
	return &Claude{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		system:     BuildSystemPrompt(langs),
		httpClient: newHTTPClient(timeout),
	}
}

func (c *Claude) Name() string  { return "claude" }
func (c *Claude) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Claude) Translate(ctx context.Context, text string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokensFor(text),
		System:    c.system,
		Messages: []anthropicMessage{
			{Role: "user", Content: text},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	status, respBody, err := roundTrip(c.httpClient, c.Name(), req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &ProviderError{Backend: c.Name(), Status: status, Payload: string(respBody)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &ProviderError{Backend: c.Name(), Status: status, Payload: string(respBody)}
	}
	if apiResp.Error != nil || apiResp.StopReason == "max_tokens" {
		return "", &ProviderError{Backend: c.Name(), Status: status, Payload: string(respBody)}
	}

	var out strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", &ProviderError{Backend: c.Name(), Status: status, Payload: string(respBody)}
	}
	return out.String(), nil
}

// Close releases resources.
func (c *Claude) Close() {
	c.httpClient.CloseIdleConnections()
}
