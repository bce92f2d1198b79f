package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// KeyManager hands out an available API key and records when one gets
// rate-limited, so a Provider can fail over between a primary and backup
// keys without hardcoding key rotation policy into the provider itself.
// Grounded on the original service's OpenAIKeyManager (primary + backup
// keys, each independently markable as rate-limited).
type KeyManager interface {
	APIKey(ctx context.Context) (string, error)
	MarkLimited(ctx context.Context, key string)
}

// StaticKeyManager always returns the same key; MarkLimited is a no-op.
// Used when no backup-key rotation is configured.
type StaticKeyManager struct{ Key string }

func (s StaticKeyManager) APIKey(ctx context.Context) (string, error) {
	if s.Key == "" {
		return "", fmt.Errorf("llm: no API key configured")
	}
	return s.Key, nil
}

func (s StaticKeyManager) MarkLimited(ctx context.Context, key string) {}

// OpenAIProvider implements Provider against the OpenAI chat completions
// API, requesting JSON-object responses and retrying once against a
// different key on a detected rate limit, following the original
// service's analyze_text retry-on-rate-limit behavior.
type OpenAIProvider struct {
	Keys        KeyManager
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewOpenAIProvider builds a Provider with the model/limits resolved from
// config (§6 openai.*).
func NewOpenAIProvider(keys KeyManager, model string, maxTokens int) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 40960
	}
	return &OpenAIProvider{Keys: keys, Model: model, MaxTokens: maxTokens, Temperature: 0.3}
}

// Complete sanitizes userContent, sends it with the analysisType's fixed
// system prompt, and returns the assistant's raw JSON response text.
func (p *OpenAIProvider) Complete(ctx context.Context, analysisType AnalysisType, userContent string) (string, error) {
	return p.complete(ctx, analysisType, userContent, true)
}

func (p *OpenAIProvider) complete(ctx context.Context, analysisType AnalysisType, userContent string, retryOnLimit bool) (string, error) {
	key, err := p.Keys.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("llm: get api key: %w", err)
	}

	client := openai.NewClient(key)
	sanitized := SanitizePrompt(userContent)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(analysisType)},
			{Role: openai.ChatMessageRoleUser, Content: sanitized},
		},
		MaxTokens:      p.MaxTokens,
		Temperature:    p.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		if isRateLimit(err) && retryOnLimit {
			p.Keys.MarkLimited(ctx, key)
			return p.complete(ctx, analysisType, userContent, false)
		}
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429
	}
	return false
}
