// Package azure provides a chat model backed by an Azure OpenAI deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"druglookup/internal/domain"
)

// Ensure ChatModel implements the interface.
var _ domain.ChatModel = (*ChatModel)(nil)

// DefaultTimeout is the request timeout when none is configured.
const DefaultTimeout = 120 * time.Second

// Config holds configuration for the Azure chat deployment.
type Config struct {
	// Endpoint is the resource endpoint, e.g. https://<name>.openai.azure.com.
	Endpoint string

	// APIKey is sent in the api-key header. Not checked until the first call.
	APIKey string

	// Deployment is the chat model deployment name.
	Deployment string

	// APIVersion is the api-version query parameter.
	APIVersion string

	// Temperature is the sampling temperature.
	Temperature float64

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// ChatModel calls the chat completions endpoint of one deployment.
type ChatModel struct {
	client      *http.Client
	url         string
	apiKey      string
	temperature float64
}

type chatRequest struct {
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
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewChatModel creates a chat model client.
func NewChatModel(cfg Config) *ChatModel {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(cfg.Deployment), url.QueryEscape(cfg.APIVersion))
	return &ChatModel{
		client:      &http.Client{Timeout: cfg.Timeout},
		url:         u,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
	}
}

// Chat sends the conversation and returns the first choice's content.
func (m *ChatModel) Chat(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	body := chatRequest{Messages: make([]chatMessage, len(messages)), Temperature: m.temperature}
	for i, msg := range messages {
		body.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("azure chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("azure chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure chat: send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("azure chat: read response: %w", err)
	}
	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("azure chat: decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("azure chat error: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("azure chat error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("azure chat: no response choices returned")
	}
	return out.Choices[0].Message.Content, nil
}
