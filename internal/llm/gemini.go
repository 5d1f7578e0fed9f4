package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// GeminiProvider generates completions with the Gemini API.
type GeminiProvider struct {
	Model  string
	apiKey string
	client *genai.Client
}

// NewGeminiProvider creates a Gemini provider. baseURL overrides the API
// endpoint when non-empty.
func NewGeminiProvider(ctx context.Context, model, baseURL, apiKey string, timeout time.Duration) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiProvider{Model: model, apiKey: apiKey, client: client}, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) IsConfigured() bool { return g.apiKey != "" }

// Complete sends the user prompt with the system prompt as instruction.
func (g *GeminiProvider) Complete(ctx context.Context, system, user string, expectJSON bool) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if expectJSON {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return result.Text(), nil
}
