package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/contentforge/contentforge-backend/pkg/config"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

const (
	defaultTextBaseURL        = "https://api.openai.com/v1"
	defaultTextModel          = "gpt-4o-mini"
	responseBodyReadLimit     = int64(2048)
	defaultProviderTimeout    = 60 * time.Second
	defaultTextMaxOutputToken = 2048
)

var errProviderKeyRequired = errors.New("provider api key is required")

// Option configures optional client behavior.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	baseURL    string
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithBaseURL overrides the provider base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

func applyOptions(defaults settings, opts []Option) settings {
	for _, opt := range opts {
		if opt != nil {
			opt(&defaults)
		}
	}
	if defaults.httpClient == nil {
		defaults.httpClient = &http.Client{Timeout: defaultProviderTimeout}
	}
	return defaults
}

func timeoutFrom(cfg config.ProvidersConfig) time.Duration {
	if cfg.RequestTimeout > 0 {
		return cfg.RequestTimeout
	}
	return defaultProviderTimeout
}

// TextClient wraps the chat-completions endpoint of an OpenAI-compatible API.
type TextClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// TextRequest is one text-generation call.
type TextRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// TextResult is the provider's completion with token accounting.
type TextResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// NewTextClient builds the text provider client from config.
func NewTextClient(cfg config.ProvidersConfig, opts ...Option) (*TextClient, error) {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	if apiKey == "" {
		return nil, errProviderKeyRequired
	}
	s := applyOptions(settings{
		baseURL:    defaultTextBaseURL,
		httpClient: &http.Client{Timeout: timeoutFrom(cfg)},
	}, opts)
	if strings.TrimSpace(cfg.OpenAIBaseURL) != "" {
		s.baseURL = strings.TrimSpace(cfg.OpenAIBaseURL)
	}
	return &TextClient{
		httpClient: s.httpClient,
		baseURL:    s.baseURL,
		apiKey:     apiKey,
		model:      defaultTextModel,
	}, nil
}

// Generate requests a completion for the prompt.
func (c *TextClient) Generate(ctx context.Context, req TextRequest) (*TextResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "text provider not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultTextMaxOutputToken
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	payload, err := json.Marshal(map[string]any{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": maxTokens,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal text request")
	}

	body, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var apiResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode text response")
	}
	if len(apiResp.Choices) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "text provider returned no choices")
	}

	return &TextResult{
		Text:             apiResp.Choices[0].Message.Content,
		Model:            apiResp.Model,
		PromptTokens:     apiResp.Usage.PromptTokens,
		CompletionTokens: apiResp.Usage.CompletionTokens,
	}, nil
}

func (c *TextClient) post(ctx context.Context, path string, payload []byte) (io.ReadCloser, error) {
	return doProviderPost(ctx, c.httpClient, c.baseURL, path, c.apiKey, payload)
}

func doProviderPost(ctx context.Context, client *http.Client, baseURL, path, apiKey string, payload []byte) (io.ReadCloser, error) {
	u := strings.TrimRight(baseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build provider request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute provider request")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		_ = resp.Body.Close()
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"provider request failed",
		)
	}
	return resp.Body, nil
}
