package contact

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/pkg/db/models"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

// SubmitMessageRequest is the public contact-form payload.
type SubmitMessageRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body" validate:"required"`
}

type contactRepo interface {
	CreateMessage(ctx context.Context, row *models.ContactMessage) (*models.ContactMessage, error)
	ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error)
	MarkMessageRead(ctx context.Context, id uuid.UUID) error
	UpsertSubscriber(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	DeactivateSubscriber(ctx context.Context, email string) error
	ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error)
}

// ServiceParams groups dependencies for the contact service.
type ServiceParams struct {
	Repo   contactRepo
	Logger *logger.Logger
}

// Service handles the public contact form and the newsletter list, plus the
// admin moderation views over both.
type Service struct {
	repo contactRepo
	logg *logger.Logger
}

// NewService builds a contact service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "contact repo is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// SubmitMessage records one contact-form inquiry.
func (s *Service) SubmitMessage(ctx context.Context, req SubmitMessageRequest) (*models.ContactMessage, error) {
	name := strings.TrimSpace(req.Name)
	body := strings.TrimSpace(req.Body)
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	return s.repo.CreateMessage(ctx, &models.ContactMessage{
		ID:      uuid.New(),
		Name:    name,
		Email:   email,
		Subject: strings.TrimSpace(req.Subject),
		Body:    body,
	})
}

// Subscribe adds (or reactivates) a newsletter subscriber.
func (s *Service) Subscribe(ctx context.Context, rawEmail string) (*models.NewsletterSubscriber, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	return s.repo.UpsertSubscriber(ctx, email)
}

// Unsubscribe deactivates a subscriber. Unknown emails are a silent no-op so
// the endpoint leaks nothing about list membership.
func (s *Service) Unsubscribe(ctx context.Context, rawEmail string) error {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return err
	}
	if err := s.repo.DeactivateSubscriber(ctx, email); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "newsletter unsubscribe for unknown email")
		}
	}
	return nil
}

// ListMessages is the admin inbox view.
func (s *Service) ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error) {
	return s.repo.ListMessages(ctx, unreadOnly, limit)
}

// MarkMessageRead marks one inquiry handled.
func (s *Service) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	err := s.repo.MarkMessageRead(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "contact message not found")
	}
	return nil
}

// ListSubscribers is the admin newsletter view.
func (s *Service) ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error) {
	return s.repo.ListSubscribers(ctx, activeOnly, limit)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	return email, nil
}
