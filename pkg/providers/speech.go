package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/contentforge/contentforge-backend/pkg/config"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
)

const (
	defaultSpeechModel = "tts-1"
	defaultSpeechVoice = "alloy"
	// Provider responses are raw audio; cap reads so a misbehaving upstream
	// cannot exhaust memory.
	speechReadLimit = int64(25 << 20)
)

// SpeechClient wraps the text-to-speech endpoint of an OpenAI-compatible API.
type SpeechClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	voice      string
}

// SpeechRequest is one synthesis call.
type SpeechRequest struct {
	Input string
	Voice string
}

// SpeechResult carries the synthesized audio bytes.
type SpeechResult struct {
	Data     []byte
	MIMEType string
	Model    string
}

// NewSpeechClient builds the TTS provider client. Falls back to the text
// provider's key when no dedicated key is configured.
func NewSpeechClient(cfg config.ProvidersConfig, opts ...Option) (*SpeechClient, error) {
	apiKey := strings.TrimSpace(cfg.TTSAPIKey)
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
	if strings.TrimSpace(cfg.TTSBaseURL) != "" {
		s.baseURL = strings.TrimSpace(cfg.TTSBaseURL)
	}
	return &SpeechClient{
		httpClient: s.httpClient,
		baseURL:    s.baseURL,
		apiKey:     apiKey,
		model:      defaultSpeechModel,
		voice:      defaultSpeechVoice,
	}, nil
}

// Synthesize renders the input text as MP3 audio.
func (c *SpeechClient) Synthesize(ctx context.Context, req SpeechRequest) (*SpeechResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "speech provider not configured")
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "input text is required")
	}

	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}
	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"voice": voice,
		"input": req.Input,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal speech request")
	}

	body, err := doProviderPost(ctx, c.httpClient, c.baseURL, "/audio/speech", c.apiKey, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(body, speechReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read speech response")
	}
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "speech provider returned no audio")
	}

	return &SpeechResult{
		Data:     raw,
		MIMEType: "audio/mpeg",
		Model:    c.model,
	}, nil
}
