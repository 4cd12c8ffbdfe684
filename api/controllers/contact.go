package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/contact"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

type ContactService interface {
	SubmitMessage(ctx context.Context, req contact.SubmitMessageRequest) (*models.ContactMessage, error)
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	ListMessages(ctx context.Context, unreadOnly bool, limit int) ([]models.ContactMessage, error)
	MarkMessageRead(ctx context.Context, id uuid.UUID) error
	ListSubscribers(ctx context.Context, activeOnly bool, limit int) ([]models.NewsletterSubscriber, error)
}

type newsletterBody struct {
	Email string `json:"email" validate:"required,email"`
}

// ContactSubmit accepts a public contact-form message.
func ContactSubmit(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body contact.SubmitMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		msg, err := svc.SubmitMessage(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, msg)
	}
}

// NewsletterSubscribe adds or reactivates a newsletter subscriber.
func NewsletterSubscribe(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body newsletterBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Subscribe(r.Context(), body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sub)
	}
}

// NewsletterUnsubscribe deactivates a subscriber. Unknown emails succeed so
// the endpoint leaks nothing about the list.
func NewsletterUnsubscribe(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body newsletterBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unsubscribe(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// AdminContactMessages lists contact-form messages for moderation.
func AdminContactMessages(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListMessages(r.Context(), r.URL.Query().Get("unread_only") == "true", limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminMarkMessageRead marks one contact message handled.
func AdminMarkMessageRead(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamUUID(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkMessageRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// AdminNewsletterSubscribers lists newsletter subscribers.
func AdminNewsletterSubscribers(svc ContactService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 100, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListSubscribers(r.Context(), r.URL.Query().Get("active_only") == "true", limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
