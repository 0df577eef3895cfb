package ai

import (
	"net/http"
	"strings"
)

// Mistral speaks the OpenAI chat/embeddings wire format, so the provider
// reuses it with a different endpoint.
const defaultMistralBaseURL = "https://api.mistral.ai/v1"

type mistralConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type mistralProvider struct {
	openAIProvider
}

func (p *mistralProvider) Name() string {
	return "mistral"
}

func createMistralProvider(args interface{}) (IProvider, error) {
	cfg := &mistralConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultMistralBaseURL
	}
	return &mistralProvider{openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		client:  http.DefaultClient,
	}}, nil
}

func init() {
	Register("mistral", createMistralProvider)
}
