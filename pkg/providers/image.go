package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/contentforge/contentforge-backend/pkg/config"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

const (
	defaultImageModel = "dall-e-3"
	defaultImageSize  = "1024x1024"
)

// ImageClient wraps the image-generation endpoint of an OpenAI-compatible API.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ImageRequest is one image-generation call.
type ImageRequest struct {
	Prompt string
	Size   string
}

// ImageResult carries the decoded artifact bytes.
type ImageResult struct {
	Data     []byte
	MIMEType string
	Model    string
}

// NewImageClient builds the image provider client. The image provider falls
// back to the text provider's key when no dedicated key is configured.
func NewImageClient(cfg config.ProvidersConfig, opts ...Option) (*ImageClient, error) {
	apiKey := strings.TrimSpace(cfg.ImageAPIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, errProviderKeyRequired
	}
	s := applyOptions(settings{
		baseURL:    defaultTextBaseURL,
		httpClient: &http.Client{Timeout: timeoutFrom(cfg)},
	}, opts)
	if strings.TrimSpace(cfg.ImageBaseURL) != "" {
		s.baseURL = strings.TrimSpace(cfg.ImageBaseURL)
	}
	return &ImageClient{
		httpClient: s.httpClient,
		baseURL:    s.baseURL,
		apiKey:     apiKey,
		model:      defaultImageModel,
	}, nil
}

// Generate renders one image and returns its PNG bytes.
func (c *ImageClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image provider not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}

	size := req.Size
	if size == "" {
		size = defaultImageSize
	}
	payload, err := json.Marshal(map[string]any{
		"model":           c.model,
		"prompt":          req.Prompt,
		"n":               1,
		"size":            size,
		"response_format": "b64_json",
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal image request")
	}

	body, err := doProviderPost(ctx, c.httpClient, c.baseURL, "/images/generations", c.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var apiResp struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode image response")
	}
	if len(apiResp.Data) == 0 || apiResp.Data[0].B64JSON == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image provider returned no data")
	}

	raw, err := base64.StdEncoding.DecodeString(apiResp.Data[0].B64JSON)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode image payload")
	}

	return &ImageResult{
		Data:     raw,
		MIMEType: "image/png",
		Model:    c.model,
	}, nil
}
