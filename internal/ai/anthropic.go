package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 1024
)

type anthropicConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type anthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type anthropicMessagesRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Name() string {
	return "anthropic"
}

func (p *anthropicProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	reqBody := anthropicMessagesRequest{
		Model:     model,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		MaxTokens: anthropicMaxTokens,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateBody(raw))
	}
	var out anthropicMessagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", fmt.Errorf("empty messages response")
	}
	return answer, nil
}

// Embed always fails: the API has no embeddings endpoint. Deployments that
// generate with anthropic pair it with another provider's embed model.
func (p *anthropicProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	return nil, fmt.Errorf("anthropic has no embeddings endpoint: %w", ErrUnavailable)
}

func createAnthropicProvider(args interface{}) (IProvider, error) {
	cfg := &anthropicConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  http.DefaultClient,
	}, nil
}

func init() {
	Register("anthropic", createAnthropicProvider)
}
