package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/TobiSchelling/antirec/internal/logging"
	"github.com/TobiSchelling/antirec/internal/metrics"
)

// ErrModelUnavailable is returned when the model endpoint cannot be reached
// or answers with a non-success status.
var ErrModelUnavailable = errors.New("language model unavailable")

// DefaultMaxPromptChars is the prompt budget applied by Client.
const DefaultMaxPromptChars = 4000

// Completer turns a system/user prompt pair into text.
type Completer interface {
	Complete(ctx context.Context, system, user string, expectJSON bool) (string, error)
}

// Provider is the interface for LLM providers.
type Provider interface {
	Completer
	Name() string
	IsConfigured() bool
}

// Client applies the prompt budget and classifies provider failures.
type Client struct {
	provider Provider
	maxChars int
}

// NewClient wraps a provider. A maxPromptChars of 0 uses DefaultMaxPromptChars.
func NewClient(provider Provider, maxPromptChars int) *Client {
	if maxPromptChars == 0 {
		maxPromptChars = DefaultMaxPromptChars
	}
	return &Client{provider: provider, maxChars: maxPromptChars}
}

// Complete truncates the user prompt and submits it. The returned text is
// whatever the model produced; parsing it is the caller's job.
func (c *Client) Complete(ctx context.Context, system, user string, expectJSON bool) (string, error) {
	if c == nil || c.provider == nil {
		return "", fmt.Errorf("%w: no provider configured", ErrModelUnavailable)
	}

	prompt := Truncate(user, c.maxChars)
	if len(prompt) < len(user) {
		logging.Debug().Int("from", len(user)).Int("to", len(prompt)).Msg("prompt truncated")
	}

	text, err := c.provider.Complete(ctx, system, prompt, expectJSON)
	if err != nil {
		metrics.ModelCompletions.WithLabelValues(c.provider.Name(), "error").Inc()
		return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	metrics.ModelCompletions.WithLabelValues(c.provider.Name(), "ok").Inc()
	return text, nil
}

// Options selects and configures a provider.
type Options struct {
	Provider string // openai, ollama or gemini
	Model    string
	BaseURL  string // OpenAI-compatible gateway, Ollama URL or Gemini endpoint override
	APIKey   string
	Timeout  time.Duration
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	logging.Warn().Str("model", o.Model).Msg("ollama model not found")
	return false
}

// Complete sends the prompt pair to Ollama's chat endpoint.
func (o *OllamaProvider) Complete(ctx context.Context, system, user string, expectJSON bool) (string, error) {
	body := map[string]any{
		"model":    o.Model,
		"messages": messages(system, user),
		"stream":   false,
	}
	if expectJSON {
		body["format"] = "json"
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/api/chat", "", body, &result); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return result.Message.Content, nil
}

// OpenAIProvider talks to an OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	Model   string
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider. baseURL may point at a
// gateway; it defaults to the public API.
func NewOpenAIProvider(model, baseURL, apiKey string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Complete sends the prompt pair to the chat completions endpoint.
func (o *OpenAIProvider) Complete(ctx context.Context, system, user string, expectJSON bool) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	body := map[string]any{
		"model":    o.Model,
		"messages": messages(system, user),
	}
	if expectJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, o.BaseURL+"/chat/completions", o.APIKey, body, &result); err != nil {
		return "", fmt.Errorf("OpenAI: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}
	return result.Choices[0].Message.Content, nil
}

// CreateProvider builds the configured provider. An unreachable Ollama falls
// back to OpenAI; nil is returned when nothing is usable.
func CreateProvider(ctx context.Context, opts Options, openAIKey string) Provider {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	switch strings.ToLower(opts.Provider) {
	case "gemini":
		p, err := NewGeminiProvider(ctx, opts.Model, opts.BaseURL, opts.APIKey, timeout)
		if err == nil && p.IsConfigured() {
			logging.Info().Str("model", opts.Model).Msg("using Gemini")
			return p
		}
		logging.Warn().Err(err).Msg("Gemini not available")
		return nil
	case "ollama":
		p := NewOllamaProvider(opts.Model, opts.BaseURL, timeout)
		if p.IsConfigured() {
			logging.Info().Str("model", opts.Model).Msg("using Ollama")
			return p
		}
		logging.Warn().Msg("Ollama not available, trying OpenAI fallback")
		opts.BaseURL = ""
		opts.APIKey = openAIKey
		opts.Model = "gpt-4o-mini"
	}

	p := NewOpenAIProvider(opts.Model, opts.BaseURL, opts.APIKey, timeout)
	if p.IsConfigured() {
		logging.Info().Str("model", opts.Model).Str("base_url", p.BaseURL).Msg("using OpenAI")
		return p
	}

	logging.Warn().Msg("no LLM provider available; profiles will use fallbacks")
	return nil
}

func messages(system, user string) []map[string]string {
	var msgs []map[string]string
	if system != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": system})
	}
	return append(msgs, map[string]string{"role": "user", "content": user})
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
