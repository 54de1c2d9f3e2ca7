package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	defaultMaxOutputTokens = 4096
)

// ClaudeClient calls the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return &ClaudeClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: anthropicURL,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// WithEndpoint points the client at a different Messages URL (proxies, tests).
func (c *ClaudeClient) WithEndpoint(url string) *ClaudeClient {
	c.endpoint = url
	return c
}

func (c *ClaudeClient) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
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

// Generate sends one user turn. Structured requests get a JSON-only
// instruction and a "{" prefill so the reply starts inside the object.
func (c *ClaudeClient) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	system := req.System
	messages := []anthropicMessage{{Role: "user", Content: req.Prompt}}
	if req.Structured {
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single JSON object and nothing else."
		messages = append(messages, anthropicMessage{Role: "assistant", Content: "{"})
	}
	temp := req.Temperature

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: &temp,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &GenerationError{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &GenerationError{Provider: "anthropic", Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &GenerationError{Provider: "anthropic", Err: &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{Provider: "anthropic", Err: fmt.Errorf("status %d: %s", resp.StatusCode, Truncate(string(respBody), 500))}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &GenerationError{Provider: "anthropic", Err: fmt.Errorf("decode response: %w", err)}
	}
	if apiResp.Error != nil {
		return "", &GenerationError{Provider: "anthropic", Err: fmt.Errorf("%s: %s", apiResp.Error.Type, apiResp.Error.Message)}
	}
	if len(apiResp.Content) == 0 {
		return "", &GenerationError{Provider: "anthropic", Err: fmt.Errorf("empty response")}
	}

	text := apiResp.Content[0].Text
	if req.Structured {
		text = "{" + text
	}
	return text, nil
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
