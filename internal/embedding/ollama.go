package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaProvider calls a local or remote Ollama instance's embeddings API,
// following the teacher's resty-based OllamaProvider.
type OllamaProvider struct {
	client *resty.Client
	model  string
}

// NewOllamaProvider builds a DenseProvider against baseURL (defaulting to
// http://localhost:11434 when empty) for the given model.
func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &OllamaProvider{client: client, model: model}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates a dense vector for text, retrying once after a
// best-effort model pull if the first request returns a non-200 status,
// the way the teacher's provider tolerates a missing local model. A
// transport error on the first request is returned without a retry.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("embedding: empty text")
	}

	reqBody := ollamaEmbedRequest{Model: p.model, Prompt: text}

	resp, err := p.client.R().SetContext(ctx).SetBody(&reqBody).Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("ollama embed request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		_ = p.pullModel(ctx)
		resp2, err2 := p.client.R().SetContext(ctx).SetBody(&reqBody).Post("/api/embeddings")
		if err2 != nil || resp2.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("ollama embed status %d (after pull attempt)", resp.StatusCode())
		}
		resp = resp2
	}

	var out ollamaEmbedResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode ollama embed response: %w", err)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (p *OllamaProvider) pullModel(ctx context.Context) error {
	_, err := p.client.R().SetContext(ctx).SetBody(map[string]string{"name": p.model}).Post("/api/pull")
	return err
}
