package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// noReasoningModels get reasoning output disabled; their reasoning traces
// otherwise leak into the visible reply.
var noReasoningModels = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

// Endpoint is the connection shared by every agent's model.
type Endpoint struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	SiteURL  string
	SiteName string
}

// ModelSettings is what may differ between agents on the same endpoint.
type ModelSettings struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

func (e Endpoint) baseURL() string {
	if trimmed := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/"); trimmed != "" {
		return trimmed
	}
	return DefaultBaseURL
}

// attributionHeaders are the optional OpenRouter app-ranking headers.
func (e Endpoint) attributionHeaders() map[string]string {
	headers := map[string]string{}
	if v := strings.TrimSpace(e.SiteURL); v != "" {
		headers["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(e.SiteName); v != "" {
		headers["X-Title"] = v
	}
	return headers
}

// ChatModelConfig maps one agent's settings onto the eino OpenAI model config.
func ChatModelConfig(e Endpoint, s ModelSettings) *openaimodel.ChatModelConfig {
	modelName := strings.TrimSpace(s.Model)
	temperature := s.Temperature

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     e.baseURL(),
		APIKey:      strings.TrimSpace(e.APIKey),
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     e.Timeout,
	}
	if s.MaxTokens > 0 {
		maxTokens := s.MaxTokens
		conf.MaxTokens = &maxTokens
	}
	if headers := e.attributionHeaders(); len(headers) > 0 {
		conf.HTTPClient = &http.Client{
			Timeout:   e.Timeout,
			Transport: headerTransport{headers: headers, next: http.DefaultTransport},
		}
	}
	if noReasoningModels[modelName] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{
				"exclude": true,
				"effort":  "none",
			},
		}
	}
	return conf
}

// NewChatModel builds the tool-calling chat model for one agent.
func NewChatModel(ctx context.Context, e Endpoint, s ModelSettings) (model.ToolCallingChatModel, error) {
	m, err := openaimodel.NewChatModel(ctx, ChatModelConfig(e, s))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", s.Model, err)
	}
	return m, nil
}

// NewClient returns an OpenAI SDK client for the endpoint, or nil without
// an API key.
func NewClient(e Endpoint) *openaisdk.Client {
	apiKey := strings.TrimSpace(e.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(e.baseURL()),
	}
	for k, v := range e.attributionHeaders() {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}

// VerifyModel checks that the configured model is served by the endpoint.
func VerifyModel(ctx context.Context, client *openaisdk.Client, modelName string) error {
	if client == nil {
		return fmt.Errorf("openrouter: client is not configured")
	}
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return fmt.Errorf("openrouter: model name is required")
	}
	m, err := client.Models.Get(ctx, modelName)
	if err != nil {
		return fmt.Errorf("openrouter: verify model %s: %w", modelName, err)
	}
	if m == nil || m.ID == "" {
		return fmt.Errorf("openrouter: verify model %s: empty response", modelName)
	}
	return nil
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.next.RoundTrip(req)
}
