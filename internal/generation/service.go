package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/internal/entitlement"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/metrics"
	"github.com/contentforge/contentforge-backend/pkg/providers"
)

// artifactURLTTL bounds how long a generated artifact link stays valid.
const artifactURLTTL = 7 * 24 * time.Hour

// systemPromptsByType steers the text provider per generator kind.
var systemPromptsByType = map[enums.ContentType]string{
	enums.ContentTypeBlogPost:           "You are a professional blog writer. Produce a well-structured post with a headline.",
	enums.ContentTypeSocialMedia:        "You write short, punchy social media posts. Keep it under 280 characters unless asked otherwise.",
	enums.ContentTypeEmail:              "You write clear, persuasive marketing emails with a subject line and a call to action.",
	enums.ContentTypeAdCopy:             "You write concise advertising copy with a strong hook.",
	enums.ContentTypeProductDescription: "You write compelling product descriptions that highlight benefits over features.",
}

// extensionsByMIME maps artifact content types to object name extensions.
var extensionsByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"audio/mpeg": ".mp3",
}

type entitlementGate interface {
	CheckAndConsume(ctx context.Context, userID uuid.UUID, contentType enums.ContentType) (*entitlement.Decision, error)
}

type textProvider interface {
	Generate(ctx context.Context, req providers.TextRequest) (*providers.TextResult, error)
}

type imageProvider interface {
	Generate(ctx context.Context, req providers.ImageRequest) (*providers.ImageResult, error)
}

type speechProvider interface {
	Synthesize(ctx context.Context, req providers.SpeechRequest) (*providers.SpeechResult, error)
}

type artifactStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
	SignedURL(object string, expires time.Duration) (string, error)
	ObjectURL(object string) string
}

type contentRepo interface {
	Create(ctx context.Context, row *models.Content) (*models.Content, error)
}

// Request is one generation call from an authenticated user.
type Request struct {
	Type   enums.ContentType `json:"type" validate:"required"`
	Prompt string            `json:"prompt" validate:"required"`
	Title  string            `json:"title,omitempty"`
}

// Response carries the persisted artifact and the post-consume usage numbers.
type Response struct {
	Content   *models.Content `json:"content"`
	Usage     int             `json:"current"`
	Limit     *int            `json:"limit,omitempty"`
	Remaining *int            `json:"remaining,omitempty"`
}

// ServiceParams groups dependencies for the generation orchestrator.
type ServiceParams struct {
	Entitlement entitlementGate
	Text        textProvider
	Image       imageProvider
	Speech      speechProvider
	Store       artifactStore
	Content     contentRepo
	Logger      *logger.Logger
	Metrics     *metrics.GenerationMetrics
	Now         func() time.Time
}

// Service runs one generation end to end: entitlement gate, provider call,
// artifact storage for binary kinds, then the library row. The quota unit is
// burned before the provider is called; a provider failure does not refund it.
type Service struct {
	gate    entitlementGate
	text    textProvider
	image   imageProvider
	speech  speechProvider
	store   artifactStore
	content contentRepo
	logg    *logger.Logger
	metrics *metrics.GenerationMetrics
	now     func() time.Time
}

// NewService builds a generation service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Entitlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "entitlement gate is required")
	}
	if params.Content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "content repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		gate:    params.Entitlement,
		text:    params.Text,
		image:   params.Image,
		speech:  params.Speech,
		store:   params.Store,
		content: params.Content,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// Generate authorizes, runs the provider, and persists the result.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req Request) (*Response, error) {
	if !req.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown content type")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}

	decision, err := s.gate.CheckAndConsume(ctx, userID, req.Type)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "entitlement check failed")
	}
	if !decision.Allowed {
		return nil, denyError(decision)
	}

	row, err := s.runProvider(ctx, userID, req.Type, prompt)
	if err != nil {
		return nil, err
	}
	row.Title = s.resolveTitle(req.Title, prompt)

	saved, err := s.content.Create(ctx, row)
	if err != nil {
		// The quota unit is already burned at this point; surface the
		// failure rather than pretending nothing happened.
		if s.logg != nil {
			s.logg.Error(ctx, "persisting generated content failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save generated content")
	}

	resp := &Response{Content: saved, Usage: decision.Usage, Limit: decision.Limit}
	if decision.Limit != nil {
		remaining := *decision.Limit - decision.Usage
		if remaining < 0 {
			remaining = 0
		}
		resp.Remaining = &remaining
	}
	return resp, nil
}

func (s *Service) runProvider(ctx context.Context, userID uuid.UUID, contentType enums.ContentType, prompt string) (*models.Content, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveProviderLatency(contentType.String(), s.now().Sub(start))
		}
	}()

	switch contentType {
	case enums.ContentTypeImage:
		if s.image == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "image provider not configured")
		}
		result, err := s.image.Generate(ctx, providers.ImageRequest{Prompt: prompt})
		if err != nil {
			return nil, err
		}
		return s.storeArtifact(ctx, userID, contentType, prompt, result.Model, result.MIMEType, result.Data)
	case enums.ContentTypeAudio:
		if s.speech == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "speech provider not configured")
		}
		result, err := s.speech.Synthesize(ctx, providers.SpeechRequest{Input: prompt})
		if err != nil {
			return nil, err
		}
		return s.storeArtifact(ctx, userID, contentType, prompt, result.Model, result.MIMEType, result.Data)
	default:
		if s.text == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "text provider not configured")
		}
		result, err := s.text.Generate(ctx, providers.TextRequest{
			System: systemPromptsByType[contentType],
			Prompt: prompt,
		})
		if err != nil {
			return nil, err
		}
		return &models.Content{
			ID:       uuid.New(),
			UserID:   userID,
			Type:     contentType,
			Body:     result.Text,
			Prompt:   prompt,
			Metadata: providerMetadata(result.Model),
		}, nil
	}
}

func (s *Service) storeArtifact(ctx context.Context, userID uuid.UUID, contentType enums.ContentType, prompt, model, mimeType string, data []byte) (*models.Content, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "artifact store not configured")
	}

	object := fmt.Sprintf("generations/%s/%s%s", userID, uuid.New(), extensionsByMIME[mimeType])
	if err := s.store.Upload(ctx, object, mimeType, data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store generation artifact")
	}

	url, err := s.store.SignedURL(object, artifactURLTTL)
	if err != nil {
		// Deployments without signing credentials serve public objects.
		url = s.store.ObjectURL(object)
	}

	return &models.Content{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        contentType,
		Prompt:      prompt,
		ArtifactURL: &url,
		Metadata:    providerMetadata(model),
	}, nil
}

func (s *Service) resolveTitle(title, prompt string) string {
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		return trimmed
	}
	runes := []rune(prompt)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return prompt
}

func denyError(decision *entitlement.Decision) error {
	if decision.DenyReason == enums.DenyReasonBlocked {
		// Opaque on purpose; the block reason stays internal.
		return pkgerrors.New(pkgerrors.CodeBlocked, "account restricted, contact support")
	}
	appErr := pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly generation quota exceeded")
	details := map[string]any{"current": decision.Usage}
	if decision.Limit != nil {
		details["limit"] = *decision.Limit
	}
	return appErr.WithDetails(details)
}

func providerMetadata(model string) json.RawMessage {
	raw, err := json.Marshal(map[string]string{"model": model})
	if err != nil {
		return nil
	}
	return raw
}
